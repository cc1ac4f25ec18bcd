package app

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/coreman2200/lumiplay/internal/looper"
)

// Run drives the render loop and the HTTP surface until ctx is cancelled. The view is
// attached on the loop once it runs and detached on shutdown.
func (c *Core) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	c.WS.Routes(mux)
	mux.Handle("/metrics", c.Metrics.Handler())
	srv := &http.Server{Addr: c.Cfg.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := c.Loop.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	})
	g.Go(func() error {
		var attachErr error
		if err := c.Loop.Do(func() { attachErr = c.View.Attach() }); err != nil {
			if errors.Is(err, looper.ErrStopped) {
				return nil
			}
			return err
		}
		return attachErr
	})
	g.Go(func() error {
		c.log.Info().Str("addr", c.Cfg.Addr).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
