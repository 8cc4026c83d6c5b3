// Package app contains the core application logic. It wires the scheduler
// adapter, the poll loop and the output sinks for one monitored workflow,
// decoupled from any specific entrypoint like a CLI.
package app
