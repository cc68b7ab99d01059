// Package whitelist resolves the first start-up stage: the platform
// whitelist served by the DAC service.
package whitelist
