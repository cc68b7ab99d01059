// Package session resolves the terminal start-up stage: the profile of the
// user behind the connected wallet.
//
// Profiles come from the DAC service and are cached in the preference store.
// When the service cannot be reached the cached profile for the same account
// is used instead; when there is none the stage fails.
package session
