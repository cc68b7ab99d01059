// Package rates converts on-chain amounts into the fiat currencies the
// platform whitelist offers. Rates come from the DAC service and are cached
// for a short while; a failed refresh keeps serving the last rates.
package rates
