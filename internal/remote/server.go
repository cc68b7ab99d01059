package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"dapp/internal/domain"
)

const maxBodyBytes = 1 << 20

var (
	errForbidden  = errors.New("forbidden")
	errBadRequest = errors.New("bad request")
)

// Backend is the persistence the server needs. internal/store/sqlite
// implements it.
type Backend interface {
	domain.UserDirectory
	domain.EntityRepository
	domain.DonationLedger
	domain.RateSource
	FetchBalance(ctx context.Context, addr domain.Address) (string, error)
	CreateDonation(ctx context.Context, d domain.Donation) (domain.Donation, error)
}

// ServerOption configures NewServer.
type ServerOption func(*server)

// WithWhitelist sets the whitelist served on /whitelist and enforced on
// DAC and campaign creation.
func WithWhitelist(wl domain.Whitelist) ServerOption {
	return func(s *server) { s.whitelist = wl }
}

// WithNetworkID sets the network id served on /network.
func WithNetworkID(id int64) ServerOption {
	return func(s *server) { s.networkID = id }
}

// WithServerLogger sets the access and error logger.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithoutSignatures accepts unsigned writes and trusts the addresses in the
// request body. Only meant for local experiments.
func WithoutSignatures() ServerOption {
	return func(s *server) { s.insecure = true }
}

// WithClock sets the clock signed request timestamps are checked against.
func WithClock(now func() time.Time) ServerOption {
	return func(s *server) {
		if now != nil {
			s.now = now
		}
	}
}

type server struct {
	backend   Backend
	whitelist domain.Whitelist
	networkID int64
	logger    *slog.Logger
	insecure  bool
	now       func() time.Time
	replays   *replayGuard
}

// NewServer returns the DAC service HTTP handler over backend.
func NewServer(backend Backend, opts ...ServerOption) http.Handler {
	s := &server{
		backend: backend,
		logger:  slog.Default().With("component", "dacservice"),
		now:     time.Now,
		replays: newReplayGuard(),
	}
	for _, o := range opts {
		o(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)

	r.Get("/whitelist", s.getWhitelist)
	r.Get("/network", s.getNetwork)
	r.Get("/balances/{address}", s.getBalance)
	r.Get("/conversionRates", s.getConversionRates)

	r.Get("/users/{address}", s.getUser)
	r.Put("/users/{address}", s.putUser)

	r.Route("/dacs", func(r chi.Router) {
		r.Get("/", s.listDACs)
		r.Post("/", s.createDAC)
		r.Get("/{id}", s.getDAC)
		r.Put("/{id}", s.updateDAC)
	})
	r.Route("/campaigns", func(r chi.Router) {
		r.Get("/", s.listCampaigns)
		r.Post("/", s.createCampaign)
		r.Get("/{id}", s.getCampaign)
		r.Put("/{id}", s.updateCampaign)
	})
	r.Route("/milestones", func(r chi.Router) {
		r.Get("/", s.listMilestones)
		r.Post("/", s.createMilestone)
		r.Get("/{id}", s.getMilestone)
		r.Put("/{id}", s.updateMilestone)
	})

	r.Get("/donations", s.listDonations)
	r.Post("/donations", s.createDonation)
	r.Get("/delegations", s.listDelegations)
	return r
}

// accessLog records method, path, status, bytes and duration per request.
func (s *server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// ---------- read handlers ----------

func (s *server) getWhitelist(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.whitelist)
}

func (s *server) getNetwork(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, networkResponse{NetworkID: s.networkID})
}

func (s *server) getBalance(w http.ResponseWriter, r *http.Request) {
	addr := domain.Address(chi.URLParam(r, "address"))
	bal, err := s.backend.FetchBalance(r.Context(), addr)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Address: addr, Balance: bal})
}

func (s *server) getConversionRates(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		s.writeError(w, r, fmt.Errorf("%w: symbol is required", errBadRequest))
		return
	}
	rates, err := s.backend.FetchConversionRates(r.Context(), symbol)
	s.respond(w, r, rates, err)
}

func (s *server) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.backend.FetchUser(r.Context(), domain.Address(chi.URLParam(r, "address")))
	s.respond(w, r, u, err)
}

func (s *server) getDAC(w http.ResponseWriter, r *http.Request) {
	d, err := s.backend.FetchDAC(r.Context(), domain.EntityID(chi.URLParam(r, "id")))
	s.respond(w, r, d, err)
}

func (s *server) listDACs(w http.ResponseWriter, r *http.Request) {
	out, err := s.backend.ListDACs(r.Context(), domain.Address(r.URL.Query().Get("owner")))
	s.respond(w, r, out, err)
}

func (s *server) getCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := s.backend.FetchCampaign(r.Context(), domain.EntityID(chi.URLParam(r, "id")))
	s.respond(w, r, c, err)
}

func (s *server) listCampaigns(w http.ResponseWriter, r *http.Request) {
	out, err := s.backend.ListCampaigns(r.Context(), domain.Address(r.URL.Query().Get("owner")))
	s.respond(w, r, out, err)
}

func (s *server) getMilestone(w http.ResponseWriter, r *http.Request) {
	m, err := s.backend.FetchMilestone(r.Context(), domain.EntityID(chi.URLParam(r, "id")))
	s.respond(w, r, m, err)
}

func (s *server) listMilestones(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := s.backend.ListMilestones(r.Context(),
		domain.EntityID(q.Get("campaign")), domain.Address(q.Get("owner")))
	s.respond(w, r, out, err)
}

func (s *server) listDonations(w http.ResponseWriter, r *http.Request) {
	out, err := s.backend.ListDonations(r.Context(), domain.Address(r.URL.Query().Get("giver")))
	s.respond(w, r, out, err)
}

func (s *server) listDelegations(w http.ResponseWriter, r *http.Request) {
	out, err := s.backend.ListDelegations(r.Context(), domain.Address(r.URL.Query().Get("owner")))
	s.respond(w, r, out, err)
}

// ---------- write handlers ----------

func (s *server) putUser(w http.ResponseWriter, r *http.Request) {
	var u domain.User
	caller, err := s.decodeSigned(r, &u)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	u.Address = domain.Address(chi.URLParam(r, "address"))
	if err := s.requireCaller(caller, u.Address); err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.backend.SaveUser(r.Context(), u)
	s.respond(w, r, out, err)
}

func (s *server) createDAC(w http.ResponseWriter, r *http.Request) {
	var d domain.DAC
	caller, err := s.decodeSigned(r, &d)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	d.ID = ""
	if d.OwnerAddress.IsZero() {
		d.OwnerAddress = caller
	}
	if err := s.requireCaller(caller, d.OwnerAddress); err != nil {
		s.writeError(w, r, err)
		return
	}
	if !s.whitelist.IsDelegate(d.OwnerAddress) {
		s.writeError(w, r, fmt.Errorf("%w: %s is not a whitelisted delegate", errForbidden, d.OwnerAddress))
		return
	}
	out, err := s.backend.SaveDAC(r.Context(), d)
	s.respondCreated(w, r, out, err)
}

func (s *server) updateDAC(w http.ResponseWriter, r *http.Request) {
	var d domain.DAC
	caller, err := s.decodeSigned(r, &d)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	existing, err := s.backend.FetchDAC(r.Context(), domain.EntityID(chi.URLParam(r, "id")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.requireCaller(caller, existing.OwnerAddress); err != nil {
		s.writeError(w, r, err)
		return
	}
	d.ID, d.OwnerAddress = existing.ID, existing.OwnerAddress
	out, err := s.backend.SaveDAC(r.Context(), d)
	s.respond(w, r, out, err)
}

func (s *server) createCampaign(w http.ResponseWriter, r *http.Request) {
	var c domain.Campaign
	caller, err := s.decodeSigned(r, &c)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	c.ID = ""
	if c.OwnerAddress.IsZero() {
		c.OwnerAddress = caller
	}
	if err := s.requireCaller(caller, c.OwnerAddress); err != nil {
		s.writeError(w, r, err)
		return
	}
	if !s.whitelist.IsProjectOwner(c.OwnerAddress) {
		s.writeError(w, r, fmt.Errorf("%w: %s is not a whitelisted project owner", errForbidden, c.OwnerAddress))
		return
	}
	out, err := s.backend.SaveCampaign(r.Context(), c)
	s.respondCreated(w, r, out, err)
}

func (s *server) updateCampaign(w http.ResponseWriter, r *http.Request) {
	var c domain.Campaign
	caller, err := s.decodeSigned(r, &c)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	existing, err := s.backend.FetchCampaign(r.Context(), domain.EntityID(chi.URLParam(r, "id")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.requireCaller(caller, existing.OwnerAddress); err != nil {
		s.writeError(w, r, err)
		return
	}
	c.ID, c.OwnerAddress = existing.ID, existing.OwnerAddress
	out, err := s.backend.SaveCampaign(r.Context(), c)
	s.respond(w, r, out, err)
}

func (s *server) createMilestone(w http.ResponseWriter, r *http.Request) {
	var m domain.Milestone
	caller, err := s.decodeSigned(r, &m)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	m.ID = ""
	if m.OwnerAddress.IsZero() {
		m.OwnerAddress = caller
	}
	if err := s.requireCaller(caller, m.OwnerAddress); err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.backend.SaveMilestone(r.Context(), m)
	if errors.Is(err, domain.ErrNotFound) {
		err = fmt.Errorf("%w: unknown campaign %s", errBadRequest, m.CampaignID)
	}
	s.respondCreated(w, r, out, err)
}

func (s *server) updateMilestone(w http.ResponseWriter, r *http.Request) {
	var m domain.Milestone
	caller, err := s.decodeSigned(r, &m)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	existing, err := s.backend.FetchMilestone(r.Context(), domain.EntityID(chi.URLParam(r, "id")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.requireCaller(caller, existing.OwnerAddress); err != nil {
		s.writeError(w, r, err)
		return
	}
	m.ID, m.OwnerAddress, m.CampaignID = existing.ID, existing.OwnerAddress, existing.CampaignID
	out, err := s.backend.SaveMilestone(r.Context(), m)
	s.respond(w, r, out, err)
}

func (s *server) createDonation(w http.ResponseWriter, r *http.Request) {
	var d domain.Donation
	caller, err := s.decodeSigned(r, &d)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if d.GiverAddress.IsZero() {
		d.GiverAddress = caller
	}
	if err := s.requireCaller(caller, d.GiverAddress); err != nil {
		s.writeError(w, r, err)
		return
	}
	if d.OwnerID == "" || d.Amount == "" {
		s.writeError(w, r, fmt.Errorf("%w: ownerId and amount are required", errBadRequest))
		return
	}
	d.ID, d.Status = "", ""
	out, err := s.backend.CreateDonation(r.Context(), d)
	s.respondCreated(w, r, out, err)
}

// ---------- helpers ----------

// decodeSigned reads the body, checks its signature unless signatures are
// disabled, and decodes it into out. It returns the signing address.
func (s *server) decodeSigned(r *http.Request, out any) (domain.Address, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("%w: %v", errBadRequest, err)
	}
	var caller domain.Address
	if !s.insecure {
		if caller, err = verifyRequest(r, body, s.now(), s.replays); err != nil {
			return "", err
		}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return "", fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return caller, nil
}

func (s *server) requireCaller(caller, owner domain.Address) error {
	if s.insecure {
		return nil
	}
	if !caller.Equal(owner) {
		return fmt.Errorf("%w: %s may not write for %s", errForbidden, caller, owner)
	}
	return nil
}

func (s *server) respond(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *server) respondCreated(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		code = http.StatusUnauthorized
	case errors.Is(err, errForbidden):
		code = http.StatusForbidden
	case errors.Is(err, errBadRequest):
		code = http.StatusBadRequest
	}
	msg := err.Error()
	if code == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		msg = http.StatusText(code)
	}
	writeJSON(w, code, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
