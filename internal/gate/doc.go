// Package gate decides what the dapp renders while its three start-up stages
// (whitelist, wallet, session) are loading.
//
// Stages run strictly one after the other: the wallet stage is only started
// once the whitelist stage has completed, and it receives the resolved
// whitelist; the session stage likewise receives the wallet. Every stage
// completes exactly once. A failed stage still counts as completed.
//
// State changes go through the pure Reduce function and are applied by a
// single event-loop goroutine per Gate. Readers get immutable snapshots.
// Decide maps a snapshot to the loading view, the error view, or the routed
// application. Only a failure of the session stage is fatal by default;
// Policy.StrictStages makes every stage failure fatal.
//
// A Gate is single use. There is no retry: recovering from a fatal stage
// failure means starting a new process.
package gate
