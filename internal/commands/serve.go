package commands

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ums-math/ums-site/internal/app"
	"go.uber.org/zap"
)

// Serve runs the site until ctx is cancelled.
func Serve(ctx context.Context, cfg *app.Config, static fs.FS, log *zap.Logger) error {
	src, err := app.NewSourceFromConfig(cfg, log)
	if err != nil {
		return err
	}

	site := app.NewSite(cfg, src, log)
	site.ReloadCatalog(ctx)

	auth, err := app.LoadAuth(cfg.Auth.File, log)
	if err != nil {
		return err
	}

	if cfg.Data.Watch && cfg.Data.BaseURL == "" {
		watcher, err := app.NewDataWatcher(site, cfg.Data.Dir, log)
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer watcher.Stop()
	}

	mux := app.NewServer(site, auth, static, log).Routes()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting UMS site",
			zap.String("listen", cfg.Listen),
			zap.String("data_dir", cfg.Data.Dir),
			zap.String("data_url", cfg.Data.BaseURL),
			zap.Bool("redis", cfg.Cache.RedisURL != ""))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
