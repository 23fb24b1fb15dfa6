package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/amy/portal-client/internal/cache"
	"github.com/amy/portal-client/internal/core/service"
	"github.com/amy/portal-client/internal/infrastructure/transport/httpclient"
	"github.com/amy/portal-client/pkg/logger"
)

// app is the wired data-access layer shared by every command.
type app struct {
	client   *httpclient.Client
	registry *cache.Registry
	session  *service.SessionStore
	actions  *service.SessionService
	news     *service.NewsFeed
	profiles *service.ProfileDirectory
	log      zerolog.Logger
}

// newApp wires the layer. dispatch may be nil; actions then run inline.
func newApp(dispatch service.KeyedRunner) (*app, error) {
	log := logger.Get()

	client, err := httpclient.New(cfg.BaseURL(),
		httpclient.WithTimeout(cfg.RequestTimeout),
		httpclient.WithLogger(logger.Component("httpclient")),
		httpclient.WithSessionCookie(cfg.SessionCookie),
	)
	if err != nil {
		return nil, fmt.Errorf("build api client: %w", err)
	}

	registry := cache.NewRegistry(logger.Component("cache"))

	session, err := service.NewSessionStore(registry, client, cfg, logger.Component("session"))
	if err != nil {
		registry.Close()
		return nil, err
	}
	news, err := service.NewNewsFeed(registry, client, cfg.NewsLimit, logger.Component("news"))
	if err != nil {
		registry.Close()
		return nil, err
	}
	profiles, err := service.NewProfileDirectory(registry, client, cfg.ProfileCache, logger.Component("profiles"))
	if err != nil {
		registry.Close()
		return nil, err
	}

	return &app{
		client:   client,
		registry: registry,
		session:  session,
		actions:  service.NewSessionService(session, client, dispatch, logger.Component("actions")),
		news:     news,
		profiles: profiles,
		log:      log,
	}, nil
}

// awaitSession waits for the initial session load. A failed load is not
// fatal: the views fall back to the anonymous session.
func (a *app) awaitSession(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()
	if _, err := a.session.Cell().Await(ctx); err != nil {
		a.log.Warn().Err(err).Msg("initial session load failed")
	}
}

func (a *app) Close() {
	a.registry.Close()
}
