package gate

import (
	"context"
	"net/http"

	"dapp/internal/route"
)

// Request is what a route handler receives besides the HTTP request: the
// resolved stage data and the path parameters of the matched route.
type Request struct {
	Resolved Resolved
	Params   route.Params
	// Pattern is the matched route pattern, "" for the not-found handler.
	Pattern string
}

// Handler serves one route of the gated application.
type Handler func(w http.ResponseWriter, r *http.Request, req Request)

// Views renders the two non-routed states of the gate.
type Views interface {
	Loading(w http.ResponseWriter, r *http.Request)
	Error(w http.ResponseWriter, r *http.Request, st State)
}

type requestKey struct{}

// FromContext returns the gate request attached to ctx by ServeHTTP.
func FromContext(ctx context.Context) (Request, bool) {
	req, ok := ctx.Value(requestKey{}).(Request)
	return req, ok
}

// ServeHTTP renders the loading view, the error view, or the handler the
// route table selects for the escaped request path.
func (g *Gate) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	st := g.Snapshot()
	view := Decide(st, g.policy)
	g.m.renders.WithLabelValues(view.String()).Inc()

	switch view {
	case ViewLoading:
		g.views.Loading(w, r)
		return
	case ViewError:
		g.views.Error(w, r, st)
		return
	}

	m, _ := g.table.Match(r.URL.EscapedPath())
	req := Request{Resolved: st.Resolved, Params: m.Params, Pattern: m.Pattern}
	if m.Handler == nil {
		http.NotFound(w, r)
		return
	}
	m.Handler(w, r.WithContext(context.WithValue(r.Context(), requestKey{}, req)), req)
}

// Routes returns the gated route patterns in match order.
func (g *Gate) Routes() []string { return g.table.Patterns() }

// plainViews is the fallback used when no Views are configured.
type plainViews struct{}

func (plainViews) Loading(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Refresh", "1")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("Loading...\n"))
}

func (plainViews) Error(w http.ResponseWriter, _ *http.Request, _ State) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte("Oops, something went wrong...\n"))
}
