package domain

import (
	interfaces "dapp/internal/domain/interfaces"
	types "dapp/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	Address        = types.Address
	EntityID       = types.EntityID
	EntityKind     = types.EntityKind
	Fingerprint    = types.Fingerprint
	Ed25519Public  = types.Ed25519Public
	Ed25519Private = types.Ed25519Private
	WalletKey      = types.WalletKey
	Wallet         = types.Wallet
	Whitelist      = types.Whitelist
	User           = types.User
	Session        = types.Session
	DAC            = types.DAC
	Campaign       = types.Campaign
	Milestone      = types.Milestone
	Donation       = types.Donation
	Toast          = types.Toast
	ToastLevel     = types.ToastLevel

	ConversionRates = types.ConversionRates
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	WhitelistSource  = interfaces.WhitelistSource
	ChainBackend     = interfaces.ChainBackend
	UserDirectory    = interfaces.UserDirectory
	EntityRepository = interfaces.EntityRepository
	DonationLedger   = interfaces.DonationLedger
	RateSource       = interfaces.RateSource
	RemoteService    = interfaces.RemoteService
	KeyStore         = interfaces.KeyStore
	PreferenceStore  = interfaces.PreferenceStore
	ImageStore       = interfaces.ImageStore
	WhitelistService = interfaces.WhitelistService
	WalletService    = interfaces.WalletService
	SessionService   = interfaces.SessionService
	Notifier         = interfaces.Notifier
	Tracker          = interfaces.Tracker
)

// Constants re-exported for callers that only import domain.
const (
	KindDAC       = types.KindDAC
	KindCampaign  = types.KindCampaign
	KindMilestone = types.KindMilestone

	ToastSuccess = types.ToastSuccess
	ToastInfo    = types.ToastInfo
	ToastWarning = types.ToastWarning
	ToastError   = types.ToastError

	MilestoneProposed   = types.MilestoneProposed
	MilestoneInProgress = types.MilestoneInProgress
	MilestoneCompleted  = types.MilestoneCompleted
)

// IsOwner reports whether user owns an entity owned by owner.
func IsOwner(owner Address, user *User) bool { return types.IsOwner(owner, user) }

// ErrNotFound is returned when an entity does not exist.
var ErrNotFound = types.ErrNotFound
