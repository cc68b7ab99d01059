package interfaces

import (
	"context"

	domaintypes "dapp/internal/domain/types"
)

// WhitelistSource serves the platform whitelist.
type WhitelistSource interface {
	FetchWhitelist(ctx context.Context) (domaintypes.Whitelist, error)
}

// ChainBackend reports chain-level facts for the wallet stage.
type ChainBackend interface {
	FetchNetworkID(ctx context.Context) (int64, error)
	FetchBalance(ctx context.Context, addr domaintypes.Address) (string, error)
}

// UserDirectory looks up and stores user profiles.
type UserDirectory interface {
	FetchUser(ctx context.Context, addr domaintypes.Address) (domaintypes.User, error)
	SaveUser(ctx context.Context, user domaintypes.User) (domaintypes.User, error)
}

// EntityRepository loads and saves DACs, campaigns and milestones.
//
// List calls take an optional owner filter; an empty owner lists everything.
type EntityRepository interface {
	FetchDAC(ctx context.Context, id domaintypes.EntityID) (domaintypes.DAC, error)
	SaveDAC(ctx context.Context, dac domaintypes.DAC) (domaintypes.DAC, error)
	ListDACs(ctx context.Context, owner domaintypes.Address) ([]domaintypes.DAC, error)

	FetchCampaign(ctx context.Context, id domaintypes.EntityID) (domaintypes.Campaign, error)
	SaveCampaign(ctx context.Context, c domaintypes.Campaign) (domaintypes.Campaign, error)
	ListCampaigns(ctx context.Context, owner domaintypes.Address) ([]domaintypes.Campaign, error)

	FetchMilestone(ctx context.Context, id domaintypes.EntityID) (domaintypes.Milestone, error)
	SaveMilestone(ctx context.Context, m domaintypes.Milestone) (domaintypes.Milestone, error)
	ListMilestones(
		ctx context.Context,
		campaign domaintypes.EntityID,
		owner domaintypes.Address,
	) ([]domaintypes.Milestone, error)
}

// DonationLedger lists donations made by a giver and delegations waiting on
// DACs owned by an address.
type DonationLedger interface {
	ListDonations(ctx context.Context, giver domaintypes.Address) ([]domaintypes.Donation, error)
	ListDelegations(ctx context.Context, owner domaintypes.Address) ([]domaintypes.Donation, error)
}

// RateSource serves the latest fiat conversion rates for a currency symbol.
type RateSource interface {
	FetchConversionRates(ctx context.Context, symbol string) (domaintypes.ConversionRates, error)
}

// RemoteService is how we talk to the remote DAC service, all with context.
type RemoteService interface {
	WhitelistSource
	ChainBackend
	UserDirectory
	EntityRepository
	DonationLedger
}
