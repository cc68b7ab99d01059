package types

import "time"

// EntityKind names the entity families served by the remote service.
type EntityKind string

const (
	KindDAC       EntityKind = "dac"
	KindCampaign  EntityKind = "campaign"
	KindMilestone EntityKind = "milestone"
)

// Milestone statuses.
const (
	MilestoneProposed   = "Proposed"
	MilestoneInProgress = "InProgress"
	MilestoneCompleted  = "Completed"
)

// DAC is a decentralized fund ("Fund" in the UI).
type DAC struct {
	ID           EntityID  `json:"id,omitempty"`
	OwnerAddress Address   `json:"ownerAddress"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Summary      string    `json:"summary"`
	CommunityURL string    `json:"communityUrl,omitempty"`
	Image        string    `json:"image,omitempty"`
	DelegateID   int64     `json:"delegateId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Campaign raises funds for a concrete project and is split into milestones.
type Campaign struct {
	ID              EntityID  `json:"id,omitempty"`
	OwnerAddress    Address   `json:"ownerAddress"`
	ReviewerAddress Address   `json:"reviewerAddress,omitempty"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Summary         string    `json:"summary"`
	CommunityURL    string    `json:"communityUrl,omitempty"`
	Image           string    `json:"image,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Milestone is a deliverable of a campaign with a maximum payout.
//
// MaxAmount is a decimal string in the smallest currency unit.
type Milestone struct {
	ID               EntityID  `json:"id,omitempty"`
	CampaignID       EntityID  `json:"campaignId"`
	OwnerAddress     Address   `json:"ownerAddress"`
	RecipientAddress Address   `json:"recipientAddress,omitempty"`
	ReviewerAddress  Address   `json:"reviewerAddress,omitempty"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Image            string    `json:"image,omitempty"`
	MaxAmount        string    `json:"maxAmount"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Donation moves funds from a giver to a DAC, campaign or milestone.
//
// A donation to a DAC waits as a delegation until the DAC owner delegates it
// further; DelegateID then names the receiving entity.
type Donation struct {
	ID           EntityID   `json:"id,omitempty"`
	GiverAddress Address    `json:"giverAddress"`
	OwnerType    EntityKind `json:"ownerType"`
	OwnerID      EntityID   `json:"ownerId"`
	DelegateID   EntityID   `json:"delegateId,omitempty"`
	Amount       string     `json:"amount"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
}
