// Package config defines the format-agnostic settings model of dagwatch and
// the layering used to build it.
//
// Settings start from Defaults and are overlaid, in order, by a settings
// file (read by a Loader such as the one in the hcl package), by DAGWATCH_*
// environment variables and by command line flags. Every layer produces an
// Overrides value in which nil fields mean "not set here". Validate checks
// the merged result.
package config
