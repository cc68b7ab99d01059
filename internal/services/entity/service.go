package entity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"dapp/internal/domain"
)

// Actor is the visitor performing an edit, as resolved by the start-up
// stages.
type Actor struct {
	User      *domain.User
	Whitelist domain.Whitelist
}

// DACForm is the editable part of a DAC.
type DACForm struct {
	Title        string
	Description  string
	CommunityURL string
	Image        string
}

// CampaignForm is the editable part of a campaign.
type CampaignForm struct {
	Title        string
	Description  string
	CommunityURL string
	Image        string
	Reviewer     string
}

// MilestoneForm is the editable part of a milestone.
type MilestoneForm struct {
	Title       string
	Description string
	Image       string
	MaxAmount   string
	Recipient   string
	Reviewer    string
}

// MilestoneMode selects which milestone flow applies.
type MilestoneMode uint8

const (
	// MilestoneAdd lets a campaign owner add a milestone directly.
	MilestoneAdd MilestoneMode = iota
	// MilestonePropose lets any user propose a milestone to a campaign.
	MilestonePropose
	// MilestoneEdit lets the milestone owner edit it.
	MilestoneEdit
	// MilestoneEditProposed is MilestoneEdit restricted to milestones that
	// are still proposals.
	MilestoneEditProposed
)

// Service runs the entity edit flows against the DAC service.
type Service struct {
	repo    domain.EntityRepository
	tracker domain.Tracker
	logger  *slog.Logger
}

// New constructs an entity service. tracker may be nil.
func New(repo domain.EntityRepository, tracker domain.Tracker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, tracker: tracker, logger: logger.With("component", "entity")}
}

// checkUser requires a current user with a profile who passes allowed.
func checkUser(a Actor, allowed func(domain.Address) bool) error {
	if a.User == nil || a.User.Address.IsZero() {
		return ErrNoUser
	}
	if allowed != nil && !allowed(a.User.Address) {
		return ErrNotWhitelisted
	}
	if !a.User.HasProfile() {
		return ErrNoProfile
	}
	return nil
}

func (s *Service) track(kind domain.EntityKind, created bool, id domain.EntityID) {
	action := "updated"
	if created {
		action = "created"
	}
	s.logger.Info("entity saved", "kind", string(kind), "action", action, "id", id.String())
	if s.tracker != nil {
		s.tracker.TrackEvent(category(kind), action, id.String())
	}
}

// category is the analytics event category for kind.
func category(kind domain.EntityKind) string {
	if kind == domain.KindDAC {
		return "DAC"
	}
	return Noun(kind)
}

// ---------- DACs ----------

// EditDAC returns the DAC to show in the edit form: a blank one owned by the
// actor when id is empty, otherwise the stored DAC if the actor owns it.
func (s *Service) EditDAC(ctx context.Context, a Actor, id domain.EntityID) (domain.DAC, error) {
	if err := checkUser(a, a.Whitelist.IsDelegate); err != nil {
		return domain.DAC{}, err
	}
	if id == "" {
		return domain.DAC{OwnerAddress: a.User.Address}, nil
	}
	d, err := s.repo.FetchDAC(ctx, id)
	if err != nil {
		return domain.DAC{}, fmt.Errorf("%w: dac %s: %w", ErrLoad, id, err)
	}
	if !domain.IsOwner(d.OwnerAddress, a.User) {
		return domain.DAC{}, ErrNotOwner
	}
	return d, nil
}

// SaveDAC validates f and creates (empty id) or updates the DAC.
func (s *Service) SaveDAC(ctx context.Context, a Actor, id domain.EntityID, f DACForm) (domain.DAC, error) {
	d, err := s.EditDAC(ctx, a, id)
	if err != nil {
		return domain.DAC{}, err
	}
	if id != "" && d.DelegateID == 0 {
		return domain.DAC{}, fmt.Errorf("%w: dac %s is still being set up", ErrNotEditable, id)
	}

	v := &validator{}
	validateText(v, f.Title, f.Description)
	v.url("communityUrl", f.CommunityURL, "Please provide a url.")
	if id == "" {
		v.required("image", f.Image, "Please upload an image.")
	}
	if err := v.err(); err != nil {
		return domain.DAC{}, err
	}

	d.Title = strings.TrimSpace(f.Title)
	d.Description = f.Description
	d.Summary = Summary(f.Description)
	d.CommunityURL = f.CommunityURL
	if f.Image != "" {
		d.Image = f.Image
	}

	saved, err := s.repo.SaveDAC(ctx, d)
	if err != nil {
		return domain.DAC{}, fmt.Errorf("%w: dac: %w", ErrSave, err)
	}
	s.track(domain.KindDAC, id == "", saved.ID)
	return saved, nil
}

// ---------- Campaigns ----------

// EditCampaign is EditDAC for campaigns; creating one requires the actor to
// be a whitelisted project owner.
func (s *Service) EditCampaign(ctx context.Context, a Actor, id domain.EntityID) (domain.Campaign, error) {
	if err := checkUser(a, a.Whitelist.IsProjectOwner); err != nil {
		return domain.Campaign{}, err
	}
	if id == "" {
		return domain.Campaign{OwnerAddress: a.User.Address}, nil
	}
	c, err := s.repo.FetchCampaign(ctx, id)
	if err != nil {
		return domain.Campaign{}, fmt.Errorf("%w: campaign %s: %w", ErrLoad, id, err)
	}
	if !domain.IsOwner(c.OwnerAddress, a.User) {
		return domain.Campaign{}, ErrNotOwner
	}
	return c, nil
}

// SaveCampaign validates f and creates (empty id) or updates the campaign.
func (s *Service) SaveCampaign(
	ctx context.Context,
	a Actor,
	id domain.EntityID,
	f CampaignForm,
) (domain.Campaign, error) {
	c, err := s.EditCampaign(ctx, a, id)
	if err != nil {
		return domain.Campaign{}, err
	}

	v := &validator{}
	validateText(v, f.Title, f.Description)
	v.url("communityUrl", f.CommunityURL, "Please provide a url.")
	if id == "" {
		v.required("image", f.Image, "Please upload an image.")
	}
	reviewer := v.address("reviewer", f.Reviewer, "Please provide a valid address.")
	if reviewer != "" && !a.Whitelist.IsReviewer(reviewer) {
		v.fail("reviewer", "This address is not a whitelisted reviewer.")
	}
	if err := v.err(); err != nil {
		return domain.Campaign{}, err
	}

	c.Title = strings.TrimSpace(f.Title)
	c.Description = f.Description
	c.Summary = Summary(f.Description)
	c.CommunityURL = f.CommunityURL
	c.ReviewerAddress = reviewer
	if f.Image != "" {
		c.Image = f.Image
	}

	saved, err := s.repo.SaveCampaign(ctx, c)
	if err != nil {
		return domain.Campaign{}, fmt.Errorf("%w: campaign: %w", ErrSave, err)
	}
	s.track(domain.KindCampaign, id == "", saved.ID)
	return saved, nil
}

// ---------- Milestones ----------

// MilestoneTarget names the milestone being edited. CampaignID is used by
// the add and propose flows, ID by the edit flows.
type MilestoneTarget struct {
	Mode       MilestoneMode
	CampaignID domain.EntityID
	ID         domain.EntityID
}

// EditMilestone returns the milestone to show in the form for t.
func (s *Service) EditMilestone(ctx context.Context, a Actor, t MilestoneTarget) (domain.Milestone, error) {
	if err := checkUser(a, nil); err != nil {
		return domain.Milestone{}, err
	}

	switch t.Mode {
	case MilestoneAdd, MilestonePropose:
		c, err := s.repo.FetchCampaign(ctx, t.CampaignID)
		if err != nil {
			return domain.Milestone{}, fmt.Errorf("%w: campaign %s: %w", ErrLoad, t.CampaignID, err)
		}
		status := domain.MilestoneProposed
		if t.Mode == MilestoneAdd {
			if !domain.IsOwner(c.OwnerAddress, a.User) {
				return domain.Milestone{}, ErrNotOwner
			}
			status = domain.MilestoneInProgress
		}
		return domain.Milestone{
			CampaignID:       c.ID,
			OwnerAddress:     a.User.Address,
			RecipientAddress: a.User.Address,
			ReviewerAddress:  c.ReviewerAddress,
			Status:           status,
		}, nil

	default:
		m, err := s.repo.FetchMilestone(ctx, t.ID)
		if err != nil {
			return domain.Milestone{}, fmt.Errorf("%w: milestone %s: %w", ErrLoad, t.ID, err)
		}
		if !domain.IsOwner(m.OwnerAddress, a.User) {
			return domain.Milestone{}, ErrNotOwner
		}
		if t.Mode == MilestoneEditProposed && m.Status != domain.MilestoneProposed {
			return domain.Milestone{}, fmt.Errorf("%w: milestone %s is %s", ErrNotEditable, m.ID, m.Status)
		}
		if m.Status == domain.MilestoneCompleted {
			return domain.Milestone{}, fmt.Errorf("%w: milestone %s is completed", ErrNotEditable, m.ID)
		}
		return m, nil
	}
}

// SaveMilestone validates f and saves the milestone for t.
func (s *Service) SaveMilestone(
	ctx context.Context,
	a Actor,
	t MilestoneTarget,
	f MilestoneForm,
) (domain.Milestone, error) {
	m, err := s.EditMilestone(ctx, a, t)
	if err != nil {
		return domain.Milestone{}, err
	}

	v := &validator{}
	validateText(v, f.Title, f.Description)
	amount := v.positiveAmount("maxAmount", f.MaxAmount, "The maximum amount must be a positive number.")
	recipient := v.address("recipient", f.Recipient, "Please provide a valid address.")
	reviewer := v.address("reviewer", f.Reviewer, "Please provide a valid address.")
	if reviewer != "" && !a.Whitelist.IsReviewer(reviewer) {
		v.fail("reviewer", "This address is not a whitelisted reviewer.")
	}
	if err := v.err(); err != nil {
		return domain.Milestone{}, err
	}

	m.Title = strings.TrimSpace(f.Title)
	m.Description = f.Description
	m.MaxAmount = amount
	if f.Image != "" {
		m.Image = f.Image
	}
	if recipient != "" {
		m.RecipientAddress = recipient
	}
	if reviewer != "" {
		m.ReviewerAddress = reviewer
	}

	created := m.ID == ""
	saved, err := s.repo.SaveMilestone(ctx, m)
	if err != nil {
		return domain.Milestone{}, fmt.Errorf("%w: milestone: %w", ErrSave, err)
	}
	s.track(domain.KindMilestone, created, saved.ID)
	return saved, nil
}
