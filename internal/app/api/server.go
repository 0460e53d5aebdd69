package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 3 * time.Second

// Run serves until ctx is cancelled, then shuts the server down gracefully.
func (a *API) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, groupCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		a.log.Info("http server running", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	eg.Go(func() error {
		<-groupCtx.Done()
		a.log.Info("http server stopping")

		timeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(timeCtx); err != nil {
			a.log.Warn("http server shutdown", zap.Error(err))
		}
		return nil
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	a.log.Info("http server stopped")
	return nil
}
