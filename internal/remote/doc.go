// Package remote talks to the DAC service that owns users, DACs, campaigns,
// milestones and donations.
//
// HTTP is the client used by dapp; it implements domain.RemoteService.
// NewServer returns the matching chi handler used by cmd/dacservice during
// development and by tests.
//
// API
//
//	GET  /whitelist
//	GET  /network                     {"networkId": N}
//	GET  /balances/{address}          {"address": A, "balance": "N"}
//	GET  /users/{address}
//	PUT  /users/{address}             signed
//	GET  /dacs?owner=A
//	POST /dacs                        signed, create
//	GET  /dacs/{id}
//	PUT  /dacs/{id}                   signed, update
//	GET  /campaigns?owner=A           (same shape as /dacs)
//	GET  /milestones?campaign=ID&owner=A
//	POST /donations                   signed
//	GET  /donations?giver=A
//	GET  /delegations?owner=A
//
// Requests that change state carry an Ed25519 signature over the method,
// path and body digest. The server checks that the signing key derives the
// claimed address and that the address owns what is being written.
// Non-2xx responses carry {"error": "..."} and surface as *StatusError,
// except 404 which maps to domain.ErrNotFound.
package remote
