// Package sqlite provides the SQLite-backed entity store used by the dev DAC
// service (cmd/dacservice). It persists users, DACs, campaigns, milestones,
// donations and account balances, and applies embedded migrations on Open.
package sqlite
