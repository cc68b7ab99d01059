package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dapp/internal/analytics"
	"dapp/internal/domain"
	"dapp/internal/gate"
	"dapp/internal/services/entity"
	"dapp/internal/services/rates"
	"dapp/internal/toast"
	"dapp/internal/upload"
)

// ProfileSaver stores the current user's profile.
type ProfileSaver interface {
	SaveProfile(ctx context.Context, u domain.User) (domain.User, error)
}

// Deps are the collaborators the site renders from.
type Deps struct {
	Remote   domain.RemoteService
	Entities *entity.Service
	Profiles ProfileSaver
	Toasts   *toast.Hub
	Tracker  *analytics.Tracker
	Images   domain.ImageStore
	// Rates, when set, adds fiat equivalents next to amounts.
	Rates *rates.Service
	// UploadDir, when set, is served under /uploads/.
	UploadDir string
	// Gatherer, when set, is served under /metrics.
	Gatherer   prometheus.Gatherer
	BetaBanner bool
	Logger     *slog.Logger
}

// Site renders the gated pages and the gate's loading and error views.
type Site struct {
	remote    domain.RemoteService
	entities  *entity.Service
	profiles  ProfileSaver
	toasts    *toast.Hub
	tracker   *analytics.Tracker
	images    domain.ImageStore
	rates     *rates.Service
	uploadDir string
	gatherer  prometheus.Gatherer
	beta      bool
	logger    *slog.Logger
	tmpl      *templates
	overlay   profileOverlay
	csrfKey   []byte
}

// NewSite parses the embedded templates.
func NewSite(d Deps) (*Site, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	key, err := newCSRFKey()
	if err != nil {
		return nil, err
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Site{
		remote:    d.Remote,
		entities:  d.Entities,
		profiles:  d.Profiles,
		toasts:    d.Toasts,
		tracker:   d.Tracker,
		images:    d.Images,
		rates:     d.Rates,
		uploadDir: d.UploadDir,
		gatherer:  d.Gatherer,
		beta:      d.BetaBanner,
		logger:    logger.With("component", "web"),
		tmpl:      tmpl,
		csrfKey:   key,
	}, nil
}

// Router mounts g and the always-available endpoints.
func (s *Site) Router(g *gate.Gate) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		view := g.View()
		code := http.StatusOK
		if view != gate.ViewReady {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(code)
		_, _ = w.Write([]byte(view.String() + "\n"))
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	if s.toasts != nil {
		r.Handle("/ws/toasts", s.toasts)
	}
	if s.uploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.uploadDir))))
	}
	r.Group(func(r chi.Router) {
		r.Use(s.withClient)
		r.Use(s.verifyCSRF)
		if s.images != nil {
			r.Post("/upload", upload.Handler(s.images, s.notify, s.logger))
		}
		r.Handle("/*", g)
	})
	return r
}

type clientKey struct{}

// withClient makes sure every browser carries a client cookie so toasts can
// reach it.
func (s *Site) withClient(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := toast.EnsureClient(w, r)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), clientKey{}, id)))
	})
}

func clientID(r *http.Request) string {
	if id, ok := r.Context().Value(clientKey{}).(string); ok {
		return id
	}
	return toast.ClientID(r)
}

// flash queues t for the next page the client renders.
func (s *Site) flash(r *http.Request, t domain.Toast) {
	if s.toasts != nil {
		s.toasts.Flash(clientID(r), t)
	}
}

// notify pushes t to the client's open pages, or queues it when none is
// connected.
func (s *Site) notify(r *http.Request, t domain.Toast) {
	if s.toasts != nil {
		s.toasts.Notify(clientID(r), t)
	}
}

// accessLog records method, path, status, bytes and duration per request.
func (s *Site) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
