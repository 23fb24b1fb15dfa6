package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/amy/portal-client/internal/core/domain"
	"github.com/amy/portal-client/internal/core/ports"
	"github.com/amy/portal-client/internal/metrics"
)

const (
	linkPath         = "/auth/link-minecraft"
	verifyPath       = "/auth/verify-minecraft"
	logoutPath       = "/auth/logout"
	presencePath     = "/auth/presence"
	applicationsPath = "/rp/applications"
)

// KeyedRunner runs fn after every job queued earlier under the same key has
// finished (the action dispatcher).
type KeyedRunner interface {
	Do(ctx context.Context, key string, fn func(context.Context) error) error
}

// SessionService performs the mutating actions on the signed-in session.
// Every action validates its input, issues one write and then refreshes the
// session cell, returning only after the refresh settled.
type SessionService struct {
	store    *SessionStore
	req      ports.Requester
	dispatch KeyedRunner
	log      zerolog.Logger
}

var _ ports.SessionActions = (*SessionService)(nil)

// NewSessionService returns a SessionService. A nil dispatch runs actions on
// the caller's goroutine.
func NewSessionService(store *SessionStore, req ports.Requester, dispatch KeyedRunner, log zerolog.Logger) *SessionService {
	return &SessionService{
		store:    store,
		req:      req,
		dispatch: dispatch,
		log:      log,
	}
}

type linkRequest struct {
	Nickname string `json:"nickname"`
}

type verifyRequest struct {
	Code string `json:"code"`
}

type presenceRequest struct {
	Active bool `json:"active"`
}

// LinkExternalAccount asks the server to link a Minecraft nickname.
func (s *SessionService) LinkExternalAccount(ctx context.Context, nickname string) error {
	const action = "link_external_account"
	nick, err := ValidateNickname(nickname)
	if err != nil {
		return s.invalid(action, err)
	}
	return s.mutate(ctx, action, http.MethodPost, linkPath, linkRequest{Nickname: nick})
}

// VerifyCode confirms a link with the code shown in game.
func (s *SessionService) VerifyCode(ctx context.Context, code string) error {
	const action = "verify_code"
	c, err := NormalizeCode(code)
	if err != nil {
		return s.invalid(action, err)
	}
	return s.mutate(ctx, action, http.MethodPost, verifyPath, verifyRequest{Code: c})
}

// Logout ends the server session.
func (s *SessionService) Logout(ctx context.Context) error {
	return s.mutate(ctx, "logout", http.MethodPost, logoutPath, nil)
}

// SubmitApplication files a roleplay application.
func (s *SessionService) SubmitApplication(ctx context.Context, payload domain.ApplicationPayload) error {
	const action = "submit_application"
	p, err := ValidateApplication(payload)
	if err != nil {
		return s.invalid(action, err)
	}
	return s.mutate(ctx, action, http.MethodPost, applicationsPath, p)
}

// DeleteApplication withdraws the application with the given id.
func (s *SessionService) DeleteApplication(ctx context.Context, id string) error {
	const action = "delete_application"
	appID, err := ValidatePathID("applicationId", id)
	if err != nil {
		return s.invalid(action, err)
	}
	return s.mutate(ctx, action, http.MethodDelete, applicationsPath+"/"+url.PathEscape(appID), nil)
}

// ReportPresence tells the server whether the user is active. It is a
// heartbeat and does not refresh the session.
func (s *SessionService) ReportPresence(ctx context.Context, active bool) error {
	_, err := s.req.Do(ctx, http.MethodPost, presencePath, ports.RequestOptions{
		Credentials: s.store.Cell().Credentials(),
		Body:        presenceRequest{Active: active},
	})
	if err != nil {
		s.log.Debug().Err(err).Bool("active", active).Msg("presence ping failed")
		return fmt.Errorf("report presence: %w", err)
	}
	return nil
}

func (s *SessionService) invalid(action string, err error) error {
	metrics.ActionsTotal.WithLabelValues(action, "invalid").Inc()
	s.log.Debug().Err(err).Str("action", action).Msg("action input rejected")
	return fmt.Errorf("%s: %w", action, err)
}

// mutate runs the write-then-refresh protocol for one action. Jobs for the same
// cell are serialized so two write+refresh pairs never interleave.
func (s *SessionService) mutate(ctx context.Context, action, method, path string, body any) error {
	cell := s.store.Cell()

	run := func(ctx context.Context) error {
		start := time.Now()
		if _, err := s.req.Do(ctx, method, path, ports.RequestOptions{
			Credentials: cell.Credentials(),
			Body:        body,
		}); err != nil {
			metrics.ActionsTotal.WithLabelValues(action, "write_failed").Inc()
			s.log.Warn().Err(err).Str("action", action).Int("status", domain.StatusCode(err)).Msg("action write failed")
			return fmt.Errorf("%s: %w", action, err)
		}

		if err := cell.Refresh(ctx); err != nil {
			metrics.ActionsTotal.WithLabelValues(action, "refresh_failed").Inc()
			s.log.Warn().Err(err).Str("action", action).Msg("refresh after write failed")
			return fmt.Errorf("%s: refresh: %w", action, err)
		}

		metrics.ActionsTotal.WithLabelValues(action, "ok").Inc()
		s.log.Info().
			Str("action", action).
			Dur("duration", time.Since(start)).
			Msg("action completed")
		return nil
	}

	if s.dispatch == nil {
		return run(ctx)
	}
	return s.dispatch.Do(ctx, cell.Key(), run)
}
