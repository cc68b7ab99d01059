package route

import (
	"errors"
	"testing"
)

func appTable(t *testing.T) *Table[string] {
	t.Helper()
	tbl := New("not-found")
	for _, p := range []string{
		"/dacs/new",
		"/dacs/:id",
		"/dacs/:id/edit",
		"/campaigns/:id/milestones/new",
		"/campaigns/:id/milestones/:milestoneId",
		"/campaigns/:id/milestones",
		"/",
		"/uploads/*",
	} {
		if err := tbl.Add(p, p); err != nil {
			t.Fatalf("add %s: %v", p, err)
		}
	}
	return tbl
}

func TestMatchViewEntity(t *testing.T) {
	m, ok := appTable(t).Match("/dacs/42")
	if !ok {
		t.Fatalf("expected a match")
	}
	if m.Handler != "/dacs/:id" {
		t.Fatalf("handler = %q", m.Handler)
	}
	if m.Params.Get("id") != "42" {
		t.Fatalf("id = %q, want 42", m.Params.Get("id"))
	}
}

func TestUnmatchedPathSelectsFallback(t *testing.T) {
	m, ok := appTable(t).Match("/not-a-real-page")
	if ok {
		t.Fatalf("expected fallback, got %q", m.Pattern)
	}
	if m.Handler != "not-found" || m.Pattern != "" {
		t.Fatalf("unexpected fallback match %+v", m)
	}
}

func TestFirstMatchWinsInDeclaredOrder(t *testing.T) {
	m, ok := appTable(t).Match("/dacs/new")
	if !ok || m.Handler != "/dacs/new" {
		t.Fatalf("/dacs/new should hit the static route, got %q", m.Handler)
	}

	tbl := New("nf")
	tbl.MustAdd("/dacs/:id", "param").MustAdd("/dacs/new", "static")
	m, _ = tbl.Match("/dacs/new")
	if m.Handler != "param" {
		t.Fatalf("earlier param route should win, got %q", m.Handler)
	}
}

func TestExactRoutesNeedSameSegmentCount(t *testing.T) {
	tbl := appTable(t)
	cases := map[string]string{
		"/dacs/42/edit":                  "/dacs/:id/edit",
		"/campaigns/7/milestones":        "/campaigns/:id/milestones",
		"/campaigns/7/milestones/new":    "/campaigns/:id/milestones/new",
		"/campaigns/7/milestones/9":      "/campaigns/:id/milestones/:milestoneId",
		"/":                              "/",
		"/dacs/42/edit/extra":            "not-found",
		"/campaigns/7/milestones/9/nope": "not-found",
	}
	for path, want := range cases {
		m, _ := tbl.Match(path)
		if m.Handler != want {
			t.Errorf("Match(%q) = %q, want %q", path, m.Handler, want)
		}
	}
	m, _ := tbl.Match("/campaigns/7/milestones/9")
	if m.Params.Get("id") != "7" || m.Params.Get("milestoneId") != "9" {
		t.Fatalf("params = %v", m.Params)
	}
}

func TestCanonicalization(t *testing.T) {
	tbl := appTable(t)
	for _, p := range []string{"/dacs//42", "/dacs/42/", "/dacs/./42", "/campaigns/../dacs/42", "/dacs/42?tab=x"} {
		m, ok := tbl.Match(p)
		if !ok || m.Handler != "/dacs/:id" || m.Params.Get("id") != "42" {
			t.Errorf("Match(%q) = %q %v", p, m.Handler, m.Params)
		}
		if m.Path != "/dacs/42" {
			t.Errorf("canonical path of %q = %q", p, m.Path)
		}
	}
	for _, p := range []string{`/dacs\42`, "/dacs/%00", "/dacs/%zz", "/../etc"} {
		if _, ok := tbl.Match(p); ok {
			t.Errorf("Match(%q) should fall back", p)
		}
	}
}

func TestParamsAreDecoded(t *testing.T) {
	tbl := New("nf")
	tbl.MustAdd("/profile/:userAddress", "profile")
	m, ok := tbl.Match("/profile/hello%20world")
	if !ok || m.Params.Get("userAddress") != "hello world" {
		t.Fatalf("params = %v", m.Params)
	}
	if _, ok := tbl.Match("/profile/a%2Fb"); ok {
		t.Fatalf("encoded slash in a parameter must not match")
	}
}

func TestCatchAll(t *testing.T) {
	tbl := appTable(t)
	m, ok := tbl.Match("/uploads/a/b.png")
	if !ok || m.Params.Get(CatchAllParam) != "a/b.png" {
		t.Fatalf("catch-all = %v, %v", m.Params, ok)
	}
	m, ok = tbl.Match("/uploads")
	if !ok || m.Params.Get(CatchAllParam) != "" {
		t.Fatalf("empty catch-all = %v, %v", m.Params, ok)
	}
}

func TestAddRejectsMalformedPatterns(t *testing.T) {
	tbl := New(0)
	for _, p := range []string{"", "dacs", "/dacs/:", "/a/:id/b/:id", "/files/*/more", "/a//b"} {
		if err := tbl.Add(p, 1); !errors.Is(err, ErrBadPattern) {
			t.Errorf("Add(%q) = %v, want ErrBadPattern", p, err)
		}
	}
	if got := len(tbl.Patterns()); got != 0 {
		t.Fatalf("malformed patterns were registered: %d", got)
	}
}

func TestPatternsKeepOrder(t *testing.T) {
	got := appTable(t).Patterns()
	if got[0] != "/dacs/new" || got[len(got)-1] != "/uploads/*" {
		t.Fatalf("patterns = %v", got)
	}
}
