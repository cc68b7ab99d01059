// Package web is the browser-facing HTTP surface of the dapp.
//
// Routed pages are served through a gate.Gate, so they render only once the
// start-up stages have resolved; health, metrics, toast and upload endpoints
// are mounted beside it on a chi router and are always available.
package web
