package whitelist

import (
	"context"
	"errors"
	"testing"

	"dapp/internal/domain"
)

type fakeSource struct {
	wl  domain.Whitelist
	err error
}

func (f fakeSource) FetchWhitelist(context.Context) (domain.Whitelist, error) { return f.wl, f.err }

func TestLoadWhitelistChecksumsAndDropsMalformed(t *testing.T) {
	svc := New(fakeSource{wl: domain.Whitelist{
		Enforced: true,
		Delegates: []domain.Address{
			"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
			"not-an-address",
		},
		ProjectOwners: []domain.Address{"0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359"},
	}}, nil)

	wl, err := svc.LoadWhitelist(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(wl.Delegates) != 1 || wl.Delegates[0] != "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed" {
		t.Fatalf("delegates = %v", wl.Delegates)
	}
	if !wl.IsProjectOwner("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359") {
		t.Fatalf("project owner not recognised")
	}
	if wl.IsDelegate("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359") {
		t.Fatalf("non-delegate passed an enforced whitelist")
	}
}

func TestUnenforcedWhitelistLetsEveryoneIn(t *testing.T) {
	wl, err := New(fakeSource{}, nil).LoadWhitelist(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	addr := domain.Address("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
	if !wl.IsDelegate(addr) || !wl.IsReviewer(addr) || !wl.IsProjectOwner(addr) {
		t.Fatalf("unenforced whitelist rejected %s", addr)
	}
	if wl.IsDelegate("") {
		t.Fatalf("empty address must never pass")
	}
}

func TestLoadWhitelistWrapsSourceError(t *testing.T) {
	boom := errors.New("boom")
	_, err := New(fakeSource{err: boom}, nil).LoadWhitelist(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}
