// Package toast delivers transient notifications to browser clients.
//
// Each browser is identified by a cookie set on its first request. Toasts
// for a client are pushed over its websocket connections when it has any and
// are queued otherwise, to be drained into the next rendered page.
package toast
