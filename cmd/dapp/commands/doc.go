// Package commands defines the dapp CLI and wires dependencies for subcommands.
//
// Commands
//
//   - serve          Start the gate and serve the dapp to the browser
//   - account init   Create the wallet key and store it encrypted
//   - account show   Print the wallet address and key fingerprint
//   - routes         Print the gated route table in match order
//
// # Implementation
//
// The root command reads DAPP_* environment variables, applies any flags on
// top, and builds the dependency graph (stores, remote client, services,
// gate, site) before a subcommand runs.
package commands
