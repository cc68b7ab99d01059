package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"dapp/internal/domain"
)

const (
	alice = domain.Address("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	bob   = domain.Address("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "dacs.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenTwiceReappliesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dacs.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if _, err := s.SaveUser(context.Background(), domain.User{Address: alice, Name: "Alice"}); err != nil {
		t.Fatalf("save user: %v", err)
	}
	_ = s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s.Close()
	u, err := s.FetchUser(context.Background(), alice)
	if err != nil {
		t.Fatalf("fetch after reopen: %v", err)
	}
	if u.Name != "Alice" {
		t.Fatalf("name = %q", u.Name)
	}
}

func TestUsersUpsertAndCaseInsensitiveLookup(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if _, err := s.FetchUser(ctx, alice); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.SaveUser(ctx, domain.User{Address: alice, Name: "A"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := s.SaveUser(ctx, domain.User{Address: alice, Name: "Alice", Email: "a@example.org"}); err != nil {
		t.Fatalf("resave: %v", err)
	}
	u, err := s.FetchUser(ctx, domain.Address("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if u.Name != "Alice" || u.Email != "a@example.org" {
		t.Fatalf("unexpected user %+v", u)
	}
	if _, err := s.SaveUser(ctx, domain.User{Name: "nobody"}); err == nil {
		t.Fatalf("expected error for empty address")
	}
}

func TestDACCreateUpdateList(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	first, err := s.SaveDAC(ctx, domain.DAC{
		OwnerAddress: alice, Title: "Clean water", Description: "Wells for villages in need",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.ID == "" || first.DelegateID != 1 || first.CreatedAt.IsZero() {
		t.Fatalf("unexpected created dac %+v", first)
	}
	second, err := s.SaveDAC(ctx, domain.DAC{
		OwnerAddress: bob, Title: "Open source", Description: "Funding maintainers of libraries",
	})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if second.DelegateID != 2 {
		t.Fatalf("delegate id = %d, want 2", second.DelegateID)
	}

	first.Title = "Clean water now"
	updated, err := s.SaveDAC(ctx, first)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Clean water now" || updated.DelegateID != 1 {
		t.Fatalf("unexpected updated dac %+v", updated)
	}

	if _, err := s.SaveDAC(ctx, domain.DAC{ID: "missing", Title: "x"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating missing dac, got %v", err)
	}

	all, err := s.ListDACs(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len(all) = %d", len(all))
	}
	mine, err := s.ListDACs(ctx, alice)
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != first.ID {
		t.Fatalf("unexpected owner listing %+v", mine)
	}
}

func TestMilestonesRequireCampaign(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.SaveMilestone(ctx, domain.Milestone{
		CampaignID: "nope", OwnerAddress: alice, Title: "M1",
		Description: "First milestone of nothing", MaxAmount: "10", Status: domain.MilestoneProposed,
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing campaign, got %v", err)
	}

	c, err := s.SaveCampaign(ctx, domain.Campaign{
		OwnerAddress: alice, ReviewerAddress: bob, Title: "Bridge", Description: "Build a footbridge over the river",
	})
	if err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	m, err := s.SaveMilestone(ctx, domain.Milestone{
		CampaignID: c.ID, OwnerAddress: alice, Title: "Survey",
		Description: "Survey both river banks", MaxAmount: "1000", Status: domain.MilestoneProposed,
	})
	if err != nil {
		t.Fatalf("create milestone: %v", err)
	}

	m.Status = domain.MilestoneInProgress
	if _, err := s.SaveMilestone(ctx, m); err != nil {
		t.Fatalf("update milestone: %v", err)
	}
	got, err := s.FetchMilestone(ctx, m.ID)
	if err != nil {
		t.Fatalf("fetch milestone: %v", err)
	}
	if got.Status != domain.MilestoneInProgress || got.CampaignID != c.ID {
		t.Fatalf("unexpected milestone %+v", got)
	}

	byCampaign, err := s.ListMilestones(ctx, c.ID, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(byCampaign) != 1 {
		t.Fatalf("len = %d", len(byCampaign))
	}
	byOther, err := s.ListMilestones(ctx, "", bob)
	if err != nil {
		t.Fatalf("list by bob: %v", err)
	}
	if len(byOther) != 0 {
		t.Fatalf("bob owns no milestones, got %d", len(byOther))
	}
}

func TestDonationsAndDelegations(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	dac, err := s.SaveDAC(ctx, domain.DAC{OwnerAddress: alice, Title: "Fund", Description: "A fund for good causes"})
	if err != nil {
		t.Fatalf("create dac: %v", err)
	}
	camp, err := s.SaveCampaign(ctx, domain.Campaign{OwnerAddress: alice, Title: "Camp", Description: "A campaign for good causes"})
	if err != nil {
		t.Fatalf("create campaign: %v", err)
	}

	toDAC, err := s.CreateDonation(ctx, domain.Donation{
		GiverAddress: bob, OwnerType: domain.KindDAC, OwnerID: dac.ID, Amount: "5",
	})
	if err != nil {
		t.Fatalf("donate to dac: %v", err)
	}
	if toDAC.Status != DonationWaiting {
		t.Fatalf("dac donation status = %q", toDAC.Status)
	}
	toCampaign, err := s.CreateDonation(ctx, domain.Donation{
		GiverAddress: bob, OwnerType: domain.KindCampaign, OwnerID: camp.ID, Amount: "7",
	})
	if err != nil {
		t.Fatalf("donate to campaign: %v", err)
	}
	if toCampaign.Status != DonationCommitted {
		t.Fatalf("campaign donation status = %q", toCampaign.Status)
	}

	given, err := s.ListDonations(ctx, bob)
	if err != nil {
		t.Fatalf("list donations: %v", err)
	}
	if len(given) != 2 {
		t.Fatalf("len(given) = %d", len(given))
	}
	waiting, err := s.ListDelegations(ctx, alice)
	if err != nil {
		t.Fatalf("list delegations: %v", err)
	}
	if len(waiting) != 1 || waiting[0].ID != toDAC.ID {
		t.Fatalf("unexpected delegations %+v", waiting)
	}
	none, err := s.ListDelegations(ctx, bob)
	if err != nil {
		t.Fatalf("list delegations bob: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("bob has no dacs, got %d", len(none))
	}
}

func TestBalances(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	b, err := s.FetchBalance(ctx, alice)
	if err != nil || b != "0" {
		t.Fatalf("unknown balance = %q, %v", b, err)
	}
	if err := s.SetBalance(ctx, alice, "42"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.SetBalance(ctx, alice, "43"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	b, err = s.FetchBalance(ctx, alice)
	if err != nil || b != "43" {
		t.Fatalf("balance = %q, %v", b, err)
	}
}

func TestConversionRates(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	r, err := s.FetchConversionRates(ctx, "eth")
	if err != nil || len(r.Rates) != 0 || r.Symbol != "ETH" {
		t.Fatalf("unknown symbol = %+v, %v", r, err)
	}
	if err := s.SetConversionRate(ctx, "eth", "eur", 1800); err != nil {
		t.Fatalf("set eur: %v", err)
	}
	if err := s.SetConversionRate(ctx, "ETH", "USD", 2000); err != nil {
		t.Fatalf("set usd: %v", err)
	}
	if err := s.SetConversionRate(ctx, "ETH", "EUR", 1850.5); err != nil {
		t.Fatalf("update eur: %v", err)
	}
	if err := s.SetConversionRate(ctx, "ETH", "GBP", 0); err == nil {
		t.Fatalf("zero rate accepted")
	}

	r, err = s.FetchConversionRates(ctx, "ETH")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(r.Rates) != 2 || r.Rates["EUR"] != 1850.5 || r.Rates["USD"] != 2000 || r.Timestamp.IsZero() {
		t.Fatalf("rates = %+v", r)
	}
}
