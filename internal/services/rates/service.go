package rates

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"dapp/internal/domain"
)

const (
	// DefaultSymbol is the currency amounts are denominated in.
	DefaultSymbol = "ETH"
	// Decimals is the number of decimals between the smallest unit amounts
	// are stored in and one whole Symbol.
	Decimals = 18

	defaultTTL   = 5 * time.Minute
	retryBackoff = 30 * time.Second
)

// Option configures a Service.
type Option func(*Service)

// WithSymbol sets the currency symbol rates are fetched for.
func WithSymbol(symbol string) Option {
	return func(s *Service) { s.symbol = strings.ToUpper(symbol) }
}

// WithTTL sets how long fetched rates are reused.
func WithTTL(d time.Duration) Option {
	return func(s *Service) { s.ttl = d }
}

// WithClock sets the clock used for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l.With("component", "rates")
		}
	}
}

// Service caches conversion rates from a domain.RateSource.
type Service struct {
	src    domain.RateSource
	symbol string
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	group     singleflight.Group
	mu        sync.Mutex
	cached    domain.ConversionRates
	fetchedAt time.Time
	failedAt  time.Time
}

// New returns a rates service over src.
func New(src domain.RateSource, opts ...Option) *Service {
	s := &Service{
		src:    src,
		symbol: DefaultSymbol,
		ttl:    defaultTTL,
		now:    time.Now,
		logger: slog.Default().With("component", "rates"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Quote returns the current rates for the currencies wl offers, in
// whitelist order. Conversions are informational, so a failure yields the
// last known rates or an empty quote rather than an error.
func (s *Service) Quote(ctx context.Context, wl domain.Whitelist) Quote {
	if s == nil || len(wl.FiatWhitelist) == 0 {
		return Quote{}
	}
	rates, ok := s.latest(ctx)
	if !ok {
		return Quote{}
	}
	q := Quote{Symbol: rates.Symbol, Timestamp: rates.Timestamp}
	for _, cur := range wl.FiatWhitelist {
		cur = strings.ToUpper(strings.TrimSpace(cur))
		if r, ok := rates.Rates[cur]; ok && r > 0 {
			q.Rates = append(q.Rates, Rate{Currency: cur, Value: r})
		}
	}
	return q
}

// latest returns cached rates while fresh and refreshes them otherwise.
// Concurrent refreshes share one request, and a failed refresh is not
// retried for retryBackoff.
func (s *Service) latest(ctx context.Context) (domain.ConversionRates, bool) {
	s.mu.Lock()
	cached, fetchedAt, failedAt := s.cached, s.fetchedAt, s.failedAt
	s.mu.Unlock()
	now := s.now()
	if !fetchedAt.IsZero() && now.Sub(fetchedAt) < s.ttl {
		return cached, true
	}
	if !failedAt.IsZero() && now.Sub(failedAt) < retryBackoff {
		return cached, !fetchedAt.IsZero()
	}

	v, err, _ := s.group.Do(s.symbol, func() (any, error) {
		rates, err := s.src.FetchConversionRates(ctx, s.symbol)
		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			s.failedAt = s.now()
			return nil, err
		}
		s.cached, s.fetchedAt, s.failedAt = rates, s.now(), time.Time{}
		return rates, nil
	})
	if err != nil {
		if fetchedAt.IsZero() {
			s.logger.Warn("conversion rates unavailable", "symbol", s.symbol, "err", err)
			return domain.ConversionRates{}, false
		}
		s.logger.Warn("refresh conversion rates, serving stale", "symbol", s.symbol, "err", err)
		return cached, true
	}
	return v.(domain.ConversionRates), true
}

// Rate is the price of one whole symbol unit in Currency.
type Rate struct {
	Currency string
	Value    float64
}

// Quote is a set of rates ready for display.
type Quote struct {
	Symbol    string
	Timestamp time.Time
	Rates     []Rate
}

var unit = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)

// Convert returns amount, given in the smallest unit, in every quoted
// currency, e.g. "1,850.50 EUR". Malformed amounts convert to nothing.
func (q Quote) Convert(amount string) []string {
	if len(q.Rates) == 0 {
		return nil
	}
	n, ok := new(big.Int).SetString(strings.TrimSpace(amount), 10)
	if !ok || n.Sign() < 0 {
		return nil
	}
	whole := new(big.Rat).SetFrac(n, unit)
	out := make([]string, 0, len(q.Rates))
	for _, r := range q.Rates {
		rate := new(big.Rat)
		if rate.SetFloat64(r.Value) == nil {
			continue
		}
		v := new(big.Rat).Mul(whole, rate)
		out = append(out, groupThousands(v.FloatString(2))+" "+r.Currency)
	}
	return out
}

// Format joins Convert's output for a single line, or "" without rates.
func (q Quote) Format(amount string) string {
	parts := q.Convert(amount)
	if len(parts) == 0 {
		return ""
	}
	return "≈ " + strings.Join(parts, " · ")
}

// groupThousands inserts commas into the integer part of a decimal string.
func groupThousands(s string) string {
	intPart, frac, _ := strings.Cut(s, ".")
	if len(intPart) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	if frac != "" {
		return fmt.Sprintf("%s.%s", b.String(), frac)
	}
	return b.String()
}
