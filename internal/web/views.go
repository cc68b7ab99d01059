package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"dapp/internal/domain"
	"dapp/internal/gate"
	"dapp/internal/services/rates"
)

//go:embed templates/*.html
var templateFS embed.FS

// pages are rendered inside the layout; each gets its own template set so
// they can all define "content".
var pages = []string{
	"home", "dacs", "campaigns", "milestones", "donations",
	"dac", "campaign", "milestone", "form", "profile", "text", "notfound",
}

type templates struct {
	pages   map[string]*template.Template
	loading *template.Template
	failed  *template.Template
}

func parseTemplates() (*templates, error) {
	t := &templates{pages: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		tmpl, err := template.ParseFS(templateFS,
			"templates/layout.html", "templates/lists.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		t.pages[name] = tmpl
	}
	var err error
	if t.loading, err = template.ParseFS(templateFS, "templates/loading.html"); err != nil {
		return nil, fmt.Errorf("parse loading: %w", err)
	}
	if t.failed, err = template.ParseFS(templateFS, "templates/error.html"); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return t, nil
}

// page is the data every layout render receives.
type page struct {
	Title  string
	User   *domain.User
	Wallet domain.Wallet
	// BalanceFiat is the wallet balance in the whitelisted fiat currencies.
	BalanceFiat string
	FromCache   bool
	Beta        bool
	CSRF        string
	Toasts      []domain.Toast
	Body        any
}

// render writes the named page with status code. Queued toasts for the
// client are drained into the page.
func (s *Site) render(w http.ResponseWriter, r *http.Request, req gate.Request, code int, name, title string, body any) {
	tmpl, ok := s.tmpl.pages[name]
	if !ok {
		s.logger.Error("unknown page", "page", name)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	p := page{
		Title:     title,
		User:      s.currentUser(req),
		Wallet:    req.Resolved.Wallet,
		FromCache: req.Resolved.Session.FromCache,
		Beta:      s.beta,
		CSRF:      s.csrfToken(clientID(r)),
		Body:      body,
	}
	if p.Wallet.Connected() {
		p.BalanceFiat = s.quote(r, req).Format(p.Wallet.Balance)
	}
	if s.toasts != nil {
		p.Toasts = s.toasts.Drain(clientID(r))
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", p); err != nil {
		s.logger.Error("render", "page", name, "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_, _ = buf.WriteTo(w)
}

// quote returns the rates for the currencies the whitelist offers. It is
// empty when rates are not configured or unavailable.
func (s *Site) quote(r *http.Request, req gate.Request) rates.Quote {
	return s.rates.Quote(r.Context(), req.Resolved.Whitelist)
}

type donationRow struct {
	domain.Donation
	Fiat string
}

func donationRows(q rates.Quote, list []domain.Donation) []donationRow {
	rows := make([]donationRow, len(list))
	for i, d := range list {
		rows[i] = donationRow{Donation: d, Fiat: q.Format(d.Amount)}
	}
	return rows
}

type milestoneRow struct {
	domain.Milestone
	Fiat string
}

func milestoneRows(q rates.Quote, list []domain.Milestone) []milestoneRow {
	rows := make([]milestoneRow, len(list))
	for i, m := range list {
		rows[i] = milestoneRow{Milestone: m, Fiat: q.Format(m.MaxAmount)}
	}
	return rows
}

// Loading renders the auto-refreshing loading page.
func (s *Site) Loading(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusServiceUnavailable)
	if err := s.tmpl.loading.Execute(w, nil); err != nil {
		s.logger.Error("render loading", "err", err)
	}
}

// Error renders the fatal start-up error page listing the failed stages.
func (s *Site) Error(w http.ResponseWriter, _ *http.Request, st gate.State) {
	var failed []string
	for _, stage := range gate.Stages {
		if ss := st.Stage(stage); ss.Status == gate.Failed {
			failed = append(failed, fmt.Sprintf("%s: %s", stage, ss.Err))
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusInternalServerError)
	if err := s.tmpl.failed.Execute(w, failed); err != nil {
		s.logger.Error("render error", "err", err)
	}
}

var _ gate.Views = (*Site)(nil)
