// Package analytics counts page views and user events as prometheus metrics.
package analytics

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"dapp/internal/domain"
)

// Tracker records events and page views. A disabled tracker drops
// everything; a nil *Tracker is disabled.
type Tracker struct {
	enabled bool
	logger  *slog.Logger
	events  *prometheus.CounterVec
	pages   *prometheus.CounterVec
}

var _ domain.Tracker = (*Tracker)(nil)

// New returns a tracker registering its counters with reg. A nil reg
// creates unregistered counters.
func New(reg prometheus.Registerer, enabled bool, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	factory := promauto.With(reg)
	return &Tracker{
		enabled: enabled,
		logger:  logger.With("component", "analytics"),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dapp",
			Subsystem: "analytics",
			Name:      "events_total",
			Help:      "User events by category and action.",
		}, []string{"category", "action"}),
		pages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dapp",
			Subsystem: "analytics",
			Name:      "page_views_total",
			Help:      "Page views by route pattern.",
		}, []string{"route"}),
	}
}

// Enabled reports whether t records anything.
func (t *Tracker) Enabled() bool { return t != nil && t.enabled }

// TrackEvent counts one event. The label is logged, not used as a metric
// label, since it is usually an entity id.
func (t *Tracker) TrackEvent(category, action, label string) {
	if !t.Enabled() {
		return
	}
	t.events.WithLabelValues(category, action).Inc()
	t.logger.Debug("event", "category", category, "action", action, "label", label)
}

// TrackPage counts a view of the page served by pattern.
func (t *Tracker) TrackPage(pattern string) {
	if !t.Enabled() {
		return
	}
	if pattern == "" {
		pattern = "notfound"
	}
	t.pages.WithLabelValues(pattern).Inc()
}
