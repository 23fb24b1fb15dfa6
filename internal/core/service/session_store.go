package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/amy/portal-client/internal/cache"
	"github.com/amy/portal-client/internal/core/domain"
	"github.com/amy/portal-client/internal/core/ports"
)

const (
	// SessionCacheKey identifies the session cell in the registry.
	SessionCacheKey = "auth-me"

	sessionPath     = "/auth/me"
	loginPath       = "/auth/discord/start"
	profileFallback = "/profile"
)

// SessionStore owns the session cell and the views derived from it.
type SessionStore struct {
	cell     *cache.Cell[domain.Session]
	loginURL string

	authenticated *cache.View[domain.Session, bool]
	user          *cache.View[domain.Session, domain.Opt[domain.User]]
	profilePath   *cache.View[domain.Session, string]
	application   *cache.View[domain.Session, domain.Opt[domain.ApplicationSummary]]
}

var _ ports.SessionViews = (*SessionStore)(nil)

// NewSessionStore registers the session cell and starts its initial load.
func NewSessionStore(reg *cache.Registry, req ports.Requester, cfg ports.ConfigProvider, log zerolog.Logger) (*SessionStore, error) {
	cell, err := cache.Use(reg, SessionCacheKey,
		getJSON[domain.Session](req, sessionPath, ports.RequestOptions{}),
		domain.AnonymousSession(),
		cache.WithEager(),
		cache.WithCredentials(ports.CredentialsInclude),
		cache.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}

	return &SessionStore{
		cell:          cell,
		loginURL:      loginURLFor(cfg.BaseURL()),
		authenticated: cache.Derive(cell, isAuthenticated),
		user:          cache.Derive(cell, sessionUser),
		profilePath:   cache.Derive(cell, profilePathOf),
		application:   cache.Derive(cell, applicationOf),
	}, nil
}

// State projects every view from a single snapshot.
func (s *SessionStore) State() domain.SessionState {
	snap := s.cell.Snapshot()
	return domain.SessionState{
		Authenticated: s.authenticated.At(snap),
		User:          s.user.At(snap),
		LoginURL:      s.loginURL,
		ProfilePath:   s.profilePath.At(snap),
		Application:   s.application.At(snap),
		Generation:    snap.Generation,
		Loading:       snap.Loading,
		Err:           snap.Err,
	}
}

// Cell exposes the underlying cache cell.
func (s *SessionStore) Cell() *cache.Cell[domain.Session] { return s.cell }

// Authenticated is true only when the server said so.
func (s *SessionStore) Authenticated() bool { return s.authenticated.Get() }

// User returns the signed-in user, if any.
func (s *SessionStore) User() (domain.User, bool) { return s.user.Get().Get() }

// LoginURL is where the browser starts the Discord sign-in.
func (s *SessionStore) LoginURL() string { return s.loginURL }

// ProfilePath is the user's public profile route, or a generic one.
func (s *SessionStore) ProfilePath() string { return s.profilePath.Get() }

// Application returns the user's roleplay application with its status folded
// to the current vocabulary.
func (s *SessionStore) Application() (domain.ApplicationSummary, bool) {
	return s.application.Get().Get()
}

// LinkedAccount returns the linked Minecraft nickname.
func (s *SessionStore) LinkedAccount() (string, bool) {
	u, ok := s.User()
	if !ok {
		return "", false
	}
	return u.LinkedMinecraft.Get()
}

// Refresh re-reads the session from the server.
func (s *SessionStore) Refresh(ctx context.Context) error { return s.cell.Refresh(ctx) }

func (s *SessionStore) Loading() bool { return s.cell.Loading() }

func (s *SessionStore) Err() error { return s.cell.Err() }

// OnChange calls fn whenever the published session changes.
func (s *SessionStore) OnChange(fn func(domain.Session)) (unsubscribe func()) {
	return cache.Derive(s.cell, func(v domain.Session) domain.Session { return v }).Subscribe(fn)
}

func isAuthenticated(s domain.Session) bool {
	v, ok := s.Authenticated.Get()
	return ok && v
}

func sessionUser(s domain.Session) domain.Opt[domain.User] {
	return s.User
}

func profilePathOf(s domain.Session) string {
	if u, ok := s.User.Get(); ok && u.ID != "" {
		return "/u/" + u.ID
	}
	return profileFallback
}

func applicationOf(s domain.Session) domain.Opt[domain.ApplicationSummary] {
	u, ok := s.User.Get()
	if !ok {
		return domain.None[domain.ApplicationSummary]()
	}
	app, ok := u.RPApplication.Get()
	if !ok {
		return domain.None[domain.ApplicationSummary]()
	}
	app.Status = app.Status.Normalized()
	return domain.Some(app)
}

func loginURLFor(base string) string {
	return strings.TrimRight(base, "/") + loginPath
}
