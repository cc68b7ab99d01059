package remote_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"dapp/internal/crypto"
	"dapp/internal/domain"
	"dapp/internal/remote"
	"dapp/internal/store/sqlite"
)

func newSigner(t *testing.T) *remote.Signer {
	t.Helper()
	key, err := crypto.NewWalletKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return remote.NewSigner(key)
}

func newService(t *testing.T, opts ...remote.ServerOption) (*remote.HTTP, *sqlite.Store) {
	t.Helper()
	st, err := sqlite.Open(filepath.Join(t.TempDir(), "dacs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	srv := httptest.NewServer(remote.NewServer(st, opts...))
	t.Cleanup(srv.Close)
	c := remote.NewHTTP(srv.URL)
	c.HTTP = srv.Client()
	return c, st
}

func TestWhitelistNetworkAndBalance(t *testing.T) {
	ctx := context.Background()
	wl := domain.Whitelist{
		Enforced:      true,
		Delegates:     []domain.Address{"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"},
		FiatWhitelist: []string{"EUR", "USD"},
	}
	c, st := newService(t, remote.WithWhitelist(wl), remote.WithNetworkID(66))

	got, err := c.FetchWhitelist(ctx)
	if err != nil {
		t.Fatalf("whitelist: %v", err)
	}
	if !got.Enforced || len(got.Delegates) != 1 || len(got.FiatWhitelist) != 2 {
		t.Fatalf("unexpected whitelist %+v", got)
	}
	id, err := c.FetchNetworkID(ctx)
	if err != nil || id != 66 {
		t.Fatalf("network id = %d, %v", id, err)
	}

	addr := domain.Address("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
	if err := st.SetBalance(ctx, addr, "1500"); err != nil {
		t.Fatalf("set balance: %v", err)
	}
	bal, err := c.FetchBalance(ctx, addr)
	if err != nil || bal != "1500" {
		t.Fatalf("balance = %q, %v", bal, err)
	}
}

func TestFetchMissingMapsToNotFound(t *testing.T) {
	c, _ := newService(t)
	_, err := c.FetchUser(context.Background(), "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := c.FetchDAC(context.Background(), "nope"); !errors.Is(err, remote.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for dac, got %v", err)
	}
}

func TestUnsignedWritesAreRejected(t *testing.T) {
	c, _ := newService(t)
	_, err := c.SaveDAC(context.Background(), domain.DAC{
		OwnerAddress: "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		Title:        "Fund", Description: "A fund for good causes",
	})
	if !remote.IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestSignedOwnerCanCreateAndUpdate(t *testing.T) {
	ctx := context.Background()
	c, _ := newService(t)
	alice := newSigner(t)
	c.UseSigner(alice)

	created, err := c.SaveDAC(ctx, domain.DAC{Title: "Fund", Description: "A fund for good causes"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !created.OwnerAddress.Equal(alice.Address()) || created.ID == "" {
		t.Fatalf("unexpected dac %+v", created)
	}

	created.Title = "Better fund"
	updated, err := c.SaveDAC(ctx, created)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Better fund" {
		t.Fatalf("title = %q", updated.Title)
	}

	c.UseSigner(newSigner(t))
	updated.Title = "Hijacked"
	if _, err := c.SaveDAC(ctx, updated); !remote.IsStatus(err, http.StatusForbidden) {
		t.Fatalf("expected 403 for non-owner, got %v", err)
	}

	mine, err := c.ListDACs(ctx, alice.Address())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 1 || mine[0].Title != "Better fund" {
		t.Fatalf("unexpected listing %+v", mine)
	}
}

func TestWhitelistIsEnforcedOnCreate(t *testing.T) {
	ctx := context.Background()
	delegate := newSigner(t)
	c, _ := newService(t, remote.WithWhitelist(domain.Whitelist{
		Enforced:  true,
		Delegates: []domain.Address{delegate.Address()},
	}))

	c.UseSigner(newSigner(t))
	if _, err := c.SaveDAC(ctx, domain.DAC{Title: "Fund", Description: "A fund for good causes"}); !remote.IsStatus(err, http.StatusForbidden) {
		t.Fatalf("expected 403 for non-delegate, got %v", err)
	}
	if _, err := c.SaveCampaign(ctx, domain.Campaign{Title: "Camp", Description: "A campaign for a project"}); !remote.IsStatus(err, http.StatusForbidden) {
		t.Fatalf("expected 403 for non-project-owner, got %v", err)
	}

	c.UseSigner(delegate)
	if _, err := c.SaveDAC(ctx, domain.DAC{Title: "Fund", Description: "A fund for good causes"}); err != nil {
		t.Fatalf("delegate create: %v", err)
	}
}

func TestMilestonesAndDonations(t *testing.T) {
	ctx := context.Background()
	c, _ := newService(t)
	owner := newSigner(t)
	giver := newSigner(t)

	c.UseSigner(owner)
	if _, err := c.SaveMilestone(ctx, domain.Milestone{
		CampaignID: "missing", Title: "M", Description: "Milestone without a campaign", MaxAmount: "1",
	}); !remote.IsStatus(err, http.StatusBadRequest) {
		t.Fatalf("expected 400 for unknown campaign, got %v", err)
	}

	camp, err := c.SaveCampaign(ctx, domain.Campaign{Title: "Camp", Description: "A campaign for a project"})
	if err != nil {
		t.Fatalf("campaign: %v", err)
	}
	m, err := c.SaveMilestone(ctx, domain.Milestone{
		CampaignID: camp.ID, Title: "Survey", Description: "Survey the river banks", MaxAmount: "100",
		Status: domain.MilestoneProposed,
	})
	if err != nil {
		t.Fatalf("milestone: %v", err)
	}
	list, err := c.ListMilestones(ctx, camp.ID, "")
	if err != nil || len(list) != 1 || list[0].ID != m.ID {
		t.Fatalf("milestones = %+v, %v", list, err)
	}

	dac, err := c.SaveDAC(ctx, domain.DAC{Title: "Fund", Description: "A fund for good causes"})
	if err != nil {
		t.Fatalf("dac: %v", err)
	}

	c.UseSigner(giver)
	if _, err := c.CreateDonation(ctx, domain.Donation{
		OwnerType: domain.KindDAC, OwnerID: dac.ID, Amount: "3",
	}); err != nil {
		t.Fatalf("donate: %v", err)
	}
	given, err := c.ListDonations(ctx, giver.Address())
	if err != nil || len(given) != 1 {
		t.Fatalf("donations = %+v, %v", given, err)
	}
	waiting, err := c.ListDelegations(ctx, owner.Address())
	if err != nil || len(waiting) != 1 {
		t.Fatalf("delegations = %+v, %v", waiting, err)
	}
}

func TestUserProfileIsOwnerOnly(t *testing.T) {
	ctx := context.Background()
	c, _ := newService(t)
	alice := newSigner(t)
	c.UseSigner(alice)

	if _, err := c.SaveUser(ctx, domain.User{Address: alice.Address(), Name: "Alice"}); err != nil {
		t.Fatalf("save self: %v", err)
	}
	u, err := c.FetchUser(ctx, alice.Address())
	if err != nil || u.Name != "Alice" {
		t.Fatalf("user = %+v, %v", u, err)
	}
	other := newSigner(t).Address()
	if _, err := c.SaveUser(ctx, domain.User{Address: other, Name: "Mallory"}); !remote.IsStatus(err, http.StatusForbidden) {
		t.Fatalf("expected 403 writing another profile, got %v", err)
	}
}

// recorder keeps the last request it forwarded so it can be sent again.
type recorder struct {
	next   http.RoundTripper
	method string
	url    string
	header http.Header
	body   []byte
}

func (r *recorder) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		r.body, _ = io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewReader(r.body))
	}
	r.method, r.url, r.header = req.Method, req.URL.String(), req.Header.Clone()
	return r.next.RoundTrip(req)
}

func TestSignedRequestCannotBeReplayed(t *testing.T) {
	ctx := context.Background()
	c, _ := newService(t)
	rec := &recorder{next: c.HTTP.Transport}
	c.HTTP = &http.Client{Transport: rec}
	c.UseSigner(newSigner(t))

	if _, err := c.SaveDAC(ctx, domain.DAC{Title: "Fund", Description: "A fund for good causes"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.header.Get("X-Dapp-Timestamp") == "" {
		t.Fatalf("signed request carries no timestamp")
	}

	again, _ := http.NewRequest(rec.method, rec.url, bytes.NewReader(rec.body))
	again.Header = rec.header
	resp, err := rec.next.RoundTrip(again)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("replayed request status = %d", resp.StatusCode)
	}
}

func TestStaleSignatureRejected(t *testing.T) {
	later := func() time.Time { return time.Now().Add(10 * time.Minute) }
	c, _ := newService(t, remote.WithClock(later))
	c.UseSigner(newSigner(t))
	_, err := c.SaveDAC(context.Background(), domain.DAC{Title: "Fund", Description: "A fund for good causes"})
	if !remote.IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestRequestsTimeOut(t *testing.T) {
	if remote.NewHTTP("http://127.0.0.1:1").HTTP.Timeout != remote.DefaultTimeout {
		t.Fatalf("default client has no timeout")
	}
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := remote.NewHTTP(srv.URL)
	c.HTTP.Timeout = 50 * time.Millisecond
	start := time.Now()
	if _, err := c.FetchWhitelist(context.Background()); err == nil {
		t.Fatalf("expected a timeout error")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("request was not bounded by the client timeout")
	}
}

func TestFetchConversionRates(t *testing.T) {
	ctx := context.Background()
	c, st := newService(t)
	if err := st.SetConversionRate(ctx, "ETH", "EUR", 1850.5); err != nil {
		t.Fatalf("set rate: %v", err)
	}

	got, err := c.FetchConversionRates(ctx, "eth")
	if err != nil {
		t.Fatalf("rates: %v", err)
	}
	if got.Symbol != "ETH" || got.Rates["EUR"] != 1850.5 || got.Timestamp.IsZero() {
		t.Fatalf("rates = %+v", got)
	}

	if _, err := c.FetchConversionRates(ctx, ""); !remote.IsStatus(err, http.StatusBadRequest) {
		t.Fatalf("missing symbol: expected 400, got %v", err)
	}
}
