// Package cli is responsible for parsing command-line arguments, layering
// them over the settings file and environment, and handling process-level
// concerns like exit codes. It translates every error the monitor can
// return into a sysexits-style status.
package cli
