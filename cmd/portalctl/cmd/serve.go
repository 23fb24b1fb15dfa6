package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amy/portal-client/internal/api"
	"github.com/amy/portal-client/internal/api/handler"
	"github.com/amy/portal-client/internal/cache"
	"github.com/amy/portal-client/internal/infrastructure/db/redis"
	"github.com/amy/portal-client/internal/infrastructure/queue"
	"github.com/amy/portal-client/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

var (
	serveWorkers          int
	serveWarmNews         bool
	servePresenceInterval time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Keep the caches warm and serve the inspection API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log := logger.Component("serve")

		dispatcher := queue.NewDispatcher(serveWorkers, logger.Component("dispatcher"))
		dispatcher.Start(ctx)
		defer dispatcher.Stop()

		a, err := newApp(dispatcher)
		if err != nil {
			return err
		}
		defer a.Close()

		checks := map[string]handler.Check{
			"portal_api": func(context.Context) error { return a.session.Err() },
		}

		if cfg.Redis.Addr != "" {
			rdb, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
			if err != nil {
				return err
			}
			defer rdb.Close()

			sink := redis.NewSnapshotMirror(rdb, cfg.Redis.SnapshotTTL)
			cache.Mirror(ctx, a.session.Cell(), sink)
			cache.Mirror(ctx, a.news.Cell(), sink)
			checks["redis"] = func(ctx context.Context) error { return redis.Ping(ctx, rdb, 2*time.Second) }
			log.Info().Str("addr", cfg.Redis.Addr).Msg("snapshot mirror enabled")
		}

		if serveWarmNews {
			_ = a.news.Items()
		}
		if servePresenceInterval > 0 {
			go reportPresence(ctx, a, servePresenceInterval)
		}

		e := api.NewRouter(api.Deps{
			Session:  a.session,
			Actions:  a.actions,
			News:     a.news,
			Profiles: a.profiles,
			Checks:   checks,
			Secret:   cfg.Inspect.Secret,
			Log:      logger.Component("inspect"),
		})

		errCh := make(chan error, 1)
		go func() {
			log.Info().Str("addr", cfg.Inspect.Addr).Str("api_base", cfg.BaseURL()).Msg("inspection api listening")
			if err := e.Start(cfg.Inspect.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	},
}

// reportPresence marks the signed-in account active on every tick.
func reportPresence(ctx context.Context, a *app, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !a.session.Authenticated() {
				continue
			}
			if err := a.actions.ReportPresence(ctx, true); err != nil {
				a.log.Warn().Err(err).Msg("presence report failed")
			}
		}
	}
}

func init() {
	serveCmd.Flags().IntVar(&serveWorkers, "workers", 0, "Action dispatcher workers (0 uses the default)")
	serveCmd.Flags().BoolVar(&serveWarmNews, "warm-news", true, "Load the news feed on startup")
	serveCmd.Flags().DurationVar(&servePresenceInterval, "presence-interval", 0, "Report presence at this interval (0 disables)")
}
