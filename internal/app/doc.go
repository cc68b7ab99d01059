// Package app wires application dependencies for the dapp binaries.
//
// Config is read from DAPP_* environment variables and then overridden by
// command-line flags. NewWire builds the stores, remote client, stage
// services, gate and web site from it; Serve runs them.
package app
