package ports

import (
	"context"

	"github.com/amy/portal-client/internal/core/domain"
)

// SessionActions is the set of mutating operations on the signed-in session.
// Each one returns only after the session cache has been refreshed, so every
// derived view already reflects the server's new state.
type SessionActions interface {
	LinkExternalAccount(ctx context.Context, nickname string) error
	VerifyCode(ctx context.Context, code string) error
	Logout(ctx context.Context) error
	SubmitApplication(ctx context.Context, payload domain.ApplicationPayload) error
	DeleteApplication(ctx context.Context, id string) error
}

// SessionViews is the read side over the cached session.
type SessionViews interface {
	State() domain.SessionState
	Refresh(ctx context.Context) error
}

// NewsReader exposes the cached news list.
type NewsReader interface {
	Items() []domain.NewsItem
	Refresh(ctx context.Context) error
	Loading() bool
	Err() error
}

// ProfileReader exposes cached public profiles.
type ProfileReader interface {
	Profile(ctx context.Context, id string) (domain.PublicProfile, bool, error)
}
