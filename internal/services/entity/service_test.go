package entity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"dapp/internal/domain"
)

const (
	alice = domain.Address("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	bob   = domain.Address("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
)

const longDescription = "<p>Funding clean water wells in <b>rural</b> villages.</p>"

type fakeRepo struct {
	dacs       map[domain.EntityID]domain.DAC
	campaigns  map[domain.EntityID]domain.Campaign
	milestones map[domain.EntityID]domain.Milestone
	saveErr    error
	seq        int
}

func newRepo() *fakeRepo {
	return &fakeRepo{
		dacs:       map[domain.EntityID]domain.DAC{},
		campaigns:  map[domain.EntityID]domain.Campaign{},
		milestones: map[domain.EntityID]domain.Milestone{},
	}
}

func (f *fakeRepo) nextID() domain.EntityID {
	f.seq++
	return domain.EntityID(fmt.Sprintf("id-%d", f.seq))
}

func (f *fakeRepo) FetchDAC(_ context.Context, id domain.EntityID) (domain.DAC, error) {
	d, ok := f.dacs[id]
	if !ok {
		return domain.DAC{}, domain.ErrNotFound
	}
	return d, nil
}

func (f *fakeRepo) SaveDAC(_ context.Context, d domain.DAC) (domain.DAC, error) {
	if f.saveErr != nil {
		return domain.DAC{}, f.saveErr
	}
	if d.ID == "" {
		d.ID = f.nextID()
		d.DelegateID = int64(f.seq)
	}
	f.dacs[d.ID] = d
	return d, nil
}

func (f *fakeRepo) ListDACs(context.Context, domain.Address) ([]domain.DAC, error) { return nil, nil }

func (f *fakeRepo) FetchCampaign(_ context.Context, id domain.EntityID) (domain.Campaign, error) {
	c, ok := f.campaigns[id]
	if !ok {
		return domain.Campaign{}, domain.ErrNotFound
	}
	return c, nil
}

func (f *fakeRepo) SaveCampaign(_ context.Context, c domain.Campaign) (domain.Campaign, error) {
	if f.saveErr != nil {
		return domain.Campaign{}, f.saveErr
	}
	if c.ID == "" {
		c.ID = f.nextID()
	}
	f.campaigns[c.ID] = c
	return c, nil
}

func (f *fakeRepo) ListCampaigns(context.Context, domain.Address) ([]domain.Campaign, error) {
	return nil, nil
}

func (f *fakeRepo) FetchMilestone(_ context.Context, id domain.EntityID) (domain.Milestone, error) {
	m, ok := f.milestones[id]
	if !ok {
		return domain.Milestone{}, domain.ErrNotFound
	}
	return m, nil
}

func (f *fakeRepo) SaveMilestone(_ context.Context, m domain.Milestone) (domain.Milestone, error) {
	if f.saveErr != nil {
		return domain.Milestone{}, f.saveErr
	}
	if m.ID == "" {
		m.ID = f.nextID()
	}
	f.milestones[m.ID] = m
	return m, nil
}

func (f *fakeRepo) ListMilestones(context.Context, domain.EntityID, domain.Address) ([]domain.Milestone, error) {
	return nil, nil
}

type event struct{ category, action, label string }

type fakeTracker struct{ events []event }

func (f *fakeTracker) TrackEvent(category, action, label string) {
	f.events = append(f.events, event{category, action, label})
}

func actor(addr domain.Address, name string) Actor {
	return Actor{User: &domain.User{Address: addr, Name: name}}
}

func validDAC() DACForm {
	return DACForm{
		Title:        "Water",
		Description:  longDescription,
		CommunityURL: "https://chat.example.org/water",
		Image:        "/uploads/water.png",
	}
}

func TestCheckUserOrder(t *testing.T) {
	svc := New(newRepo(), nil, nil)
	ctx := context.Background()
	wl := domain.Whitelist{Enforced: true, Delegates: []domain.Address{alice}}

	if _, err := svc.EditDAC(ctx, Actor{Whitelist: wl}, ""); !errors.Is(err, ErrNoUser) {
		t.Fatalf("no user: %v", err)
	}
	// Whitelist is checked before the profile.
	noProfile := Actor{User: &domain.User{Address: bob}, Whitelist: wl}
	if _, err := svc.EditDAC(ctx, noProfile, ""); !errors.Is(err, ErrNotWhitelisted) {
		t.Fatalf("not whitelisted: %v", err)
	}
	noProfile.User.Address = alice
	if _, err := svc.EditDAC(ctx, noProfile, ""); !errors.Is(err, ErrNoProfile) {
		t.Fatalf("no profile: %v", err)
	}
}

func TestCreateAndUpdateDAC(t *testing.T) {
	repo := newRepo()
	tr := &fakeTracker{}
	svc := New(repo, tr, nil)
	ctx := context.Background()
	a := actor(alice, "Alice")

	d, err := svc.SaveDAC(ctx, a, "", validDAC())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if d.OwnerAddress != alice || d.Summary != "Funding clean water wells in rural villages." {
		t.Fatalf("dac = %+v", d)
	}

	f := validDAC()
	f.Title = "Water for all"
	f.Image = ""
	d2, err := svc.SaveDAC(ctx, a, d.ID, f)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if d2.Title != "Water for all" || d2.Image != "/uploads/water.png" {
		t.Fatalf("updated = %+v", d2)
	}

	want := []event{{"DAC", "created", string(d.ID)}, {"DAC", "updated", string(d.ID)}}
	if len(tr.events) != 2 || tr.events[0] != want[0] || tr.events[1] != want[1] {
		t.Fatalf("events = %+v", tr.events)
	}
}

func TestDACValidation(t *testing.T) {
	svc := New(newRepo(), nil, nil)
	f := DACForm{Title: "ab", Description: "<p>too short</p>", CommunityURL: "not a url"}
	_, err := svc.SaveDAC(context.Background(), actor(alice, "Alice"), "", f)
	fields := FieldErrors(err)
	for _, k := range []string{"title", "description", "communityUrl", "image"} {
		if fields[k] == "" {
			t.Fatalf("missing %s error in %v", k, err)
		}
	}
	if Message(domain.KindDAC, err) != "Please correct the highlighted fields." {
		t.Fatalf("message = %q", Message(domain.KindDAC, err))
	}
}

func TestDACOwnershipAndEditability(t *testing.T) {
	repo := newRepo()
	repo.dacs["pending"] = domain.DAC{ID: "pending", OwnerAddress: alice}
	repo.dacs["live"] = domain.DAC{ID: "live", OwnerAddress: alice, DelegateID: 3}
	svc := New(repo, nil, nil)
	ctx := context.Background()

	if _, err := svc.EditDAC(ctx, actor(bob, "Bob"), "live"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("non owner: %v", err)
	}
	if _, err := svc.SaveDAC(ctx, actor(alice, "Alice"), "pending", validDAC()); !errors.Is(err, ErrNotEditable) {
		t.Fatalf("pending dac: %v", err)
	}
	_, err := svc.EditDAC(ctx, actor(alice, "Alice"), "missing")
	if !errors.Is(err, ErrLoad) || !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing: %v", err)
	}
	if !strings.HasPrefix(Message(domain.KindDAC, err), "Sadly we were unable to load the Fund.") {
		t.Fatalf("message = %q", Message(domain.KindDAC, err))
	}
}

func TestSaveErrorIsWrapped(t *testing.T) {
	repo := newRepo()
	repo.saveErr = errors.New("boom")
	svc := New(repo, nil, nil)
	_, err := svc.SaveDAC(context.Background(), actor(alice, "Alice"), "", validDAC())
	if !errors.Is(err, ErrSave) {
		t.Fatalf("err = %v", err)
	}
}

func TestCampaignReviewerMustBeWhitelisted(t *testing.T) {
	svc := New(newRepo(), nil, nil)
	wl := domain.Whitelist{
		Enforced:      true,
		ProjectOwners: []domain.Address{alice},
		Reviewers:     []domain.Address{alice},
	}
	a := Actor{User: &domain.User{Address: alice, Name: "Alice"}, Whitelist: wl}
	f := CampaignForm{
		Title:       "Wells",
		Description: longDescription,
		Image:       "/uploads/wells.png",
		Reviewer:    strings.ToLower(string(bob)),
	}
	_, err := svc.SaveCampaign(context.Background(), a, "", f)
	if FieldErrors(err)["reviewer"] == "" {
		t.Fatalf("err = %v", err)
	}

	f.Reviewer = strings.ToLower(string(alice))
	c, err := svc.SaveCampaign(context.Background(), a, "", f)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if c.ReviewerAddress != alice {
		t.Fatalf("reviewer = %q", c.ReviewerAddress)
	}
}

func TestMilestoneFlows(t *testing.T) {
	repo := newRepo()
	repo.campaigns["c1"] = domain.Campaign{ID: "c1", OwnerAddress: alice, ReviewerAddress: alice}
	svc := New(repo, nil, nil)
	ctx := context.Background()
	form := MilestoneForm{Title: "Dig", Description: longDescription, MaxAmount: "1000"}

	_, err := svc.SaveMilestone(ctx, actor(bob, "Bob"), MilestoneTarget{Mode: MilestoneAdd, CampaignID: "c1"}, form)
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("add by non owner: %v", err)
	}

	added, err := svc.SaveMilestone(ctx, actor(alice, "Alice"), MilestoneTarget{Mode: MilestoneAdd, CampaignID: "c1"}, form)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if added.Status != domain.MilestoneInProgress || added.RecipientAddress != alice || added.ReviewerAddress != alice {
		t.Fatalf("added = %+v", added)
	}

	proposed, err := svc.SaveMilestone(ctx, actor(bob, "Bob"), MilestoneTarget{Mode: MilestonePropose, CampaignID: "c1"}, form)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if proposed.Status != domain.MilestoneProposed || proposed.OwnerAddress != bob {
		t.Fatalf("proposed = %+v", proposed)
	}

	editProposed := MilestoneTarget{Mode: MilestoneEditProposed, ID: added.ID}
	if _, err := svc.EditMilestone(ctx, actor(alice, "Alice"), editProposed); !errors.Is(err, ErrNotEditable) {
		t.Fatalf("edit proposed on in-progress milestone: %v", err)
	}
	editProposed.ID = proposed.ID
	if _, err := svc.EditMilestone(ctx, actor(bob, "Bob"), editProposed); err != nil {
		t.Fatalf("edit proposed: %v", err)
	}
}

func TestMilestoneAmountValidation(t *testing.T) {
	repo := newRepo()
	repo.campaigns["c1"] = domain.Campaign{ID: "c1", OwnerAddress: alice}
	svc := New(repo, nil, nil)
	target := MilestoneTarget{Mode: MilestoneAdd, CampaignID: "c1"}
	for _, amount := range []string{"", "0", "-5", "1.5", "abc"} {
		form := MilestoneForm{Title: "Dig", Description: longDescription, MaxAmount: amount}
		_, err := svc.SaveMilestone(context.Background(), actor(alice, "Alice"), target, form)
		if FieldErrors(err)["maxAmount"] == "" {
			t.Fatalf("amount %q accepted: %v", amount, err)
		}
	}
}

func TestSummaryTruncates(t *testing.T) {
	s := Summary("<p>" + strings.Repeat("word ", 40) + "</p>")
	if !strings.HasSuffix(s, "...") || len([]rune(s)) > summaryLength+3 {
		t.Fatalf("summary = %q", s)
	}
	if Summary("<b>short</b> text") != "short text" {
		t.Fatalf("short summary = %q", Summary("<b>short</b> text"))
	}
}
