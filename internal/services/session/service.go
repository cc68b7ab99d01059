package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"dapp/internal/domain"
)

// cacheKey is the preference key holding the last loaded profile.
const cacheKey = "session.currentUser"

// Service loads and saves the current user's profile.
type Service struct {
	users  domain.UserDirectory
	prefs  domain.PreferenceStore
	logger *slog.Logger
}

// New constructs a session service.
func New(users domain.UserDirectory, prefs domain.PreferenceStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{users: users, prefs: prefs, logger: logger.With("component", "session")}
}

// LoadSession returns the session for w.
//
//   - No account: an anonymous session.
//   - Account without a profile on the service: a user with only the address.
//   - Service unreachable: the cached profile for the account, flagged
//     FromCache, or the service error when nothing is cached.
func (s *Service) LoadSession(ctx context.Context, w domain.Wallet) (domain.Session, error) {
	if !w.Connected() {
		return domain.Session{}, nil
	}

	u, err := s.users.FetchUser(ctx, w.Account)
	switch {
	case err == nil:
		s.cache(u)
		return domain.Session{CurrentUser: &u}, nil

	case errors.Is(err, domain.ErrNotFound):
		s.logger.Info("no profile registered yet", "account", w.Account.String())
		return domain.Session{CurrentUser: &domain.User{Address: w.Account}}, nil
	}

	var cached domain.User
	found, cerr := s.prefs.Get(cacheKey, &cached)
	if cerr != nil {
		s.logger.Warn("read cached profile", "err", cerr)
	}
	if found && cached.Address.Equal(w.Account) {
		s.logger.Warn("DAC service unavailable, using cached profile", "err", err)
		return domain.Session{CurrentUser: &cached, FromCache: true}, nil
	}
	return domain.Session{}, fmt.Errorf("load user %s: %w", w.Account, err)
}

// SaveProfile stores u on the service and refreshes the cache.
func (s *Service) SaveProfile(ctx context.Context, u domain.User) (domain.User, error) {
	saved, err := s.users.SaveUser(ctx, u)
	if err != nil {
		return domain.User{}, fmt.Errorf("save profile: %w", err)
	}
	s.cache(saved)
	return saved, nil
}

// Forget drops the cached profile.
func (s *Service) Forget() error { return s.prefs.Delete(cacheKey) }

func (s *Service) cache(u domain.User) {
	if err := s.prefs.Set(cacheKey, u); err != nil {
		s.logger.Warn("cache profile", "err", err)
	}
}

// Compile-time assertion that Service implements domain.SessionService.
var _ domain.SessionService = (*Service)(nil)
