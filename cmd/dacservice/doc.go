// Command dacservice runs the DAC service the dapp talks to, backed by a
// SQLite database. It is meant for local development and tests.
//
// The HTTP API is documented in package remote. Writes must be signed by the
// owning wallet unless --insecure is given. The whitelist is read from a JSON
// file; without one every address passes.
package main
