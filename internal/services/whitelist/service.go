package whitelist

import (
	"context"
	"fmt"
	"log/slog"

	"dapp/internal/crypto"
	"dapp/internal/domain"
)

// Service loads the whitelist from a domain.WhitelistSource.
type Service struct {
	src    domain.WhitelistSource
	logger *slog.Logger
}

// New returns a whitelist service reading from src.
func New(src domain.WhitelistSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{src: src, logger: logger.With("component", "whitelist")}
}

// LoadWhitelist fetches the whitelist. Malformed addresses are dropped with
// a warning; the rest come back checksummed.
func (s *Service) LoadWhitelist(ctx context.Context) (domain.Whitelist, error) {
	wl, err := s.src.FetchWhitelist(ctx)
	if err != nil {
		return domain.Whitelist{}, fmt.Errorf("fetch whitelist: %w", err)
	}
	wl.Delegates = s.clean("delegate", wl.Delegates)
	wl.Reviewers = s.clean("reviewer", wl.Reviewers)
	wl.ProjectOwners = s.clean("project_owner", wl.ProjectOwners)

	s.logger.Info("whitelist loaded",
		"enforced", wl.Enforced,
		"delegates", len(wl.Delegates),
		"reviewers", len(wl.Reviewers),
		"project_owners", len(wl.ProjectOwners),
		"fiat", len(wl.FiatWhitelist),
	)
	return wl, nil
}

func (s *Service) clean(list string, in []domain.Address) []domain.Address {
	out := make([]domain.Address, 0, len(in))
	for _, a := range in {
		addr, err := crypto.ParseAddress(a.String())
		if err != nil {
			s.logger.Warn("dropping malformed whitelist address", "list", list, "address", a.String())
			continue
		}
		out = append(out, addr)
	}
	return out
}

var _ domain.WhitelistService = (*Service)(nil)
