package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/flowforge/flowforge/internal/api"
	"github.com/flowforge/flowforge/pkg/cache"
	"github.com/flowforge/flowforge/pkg/store"
)

// serveCommand creates the serve command running the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		mongoURI  string
		mongoDB   string
		redisAddr string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API.

By default programs are stored in memory and caching is disabled. Pass
--mongo-uri for durable program storage and --redis-addr for shared
artifact caching.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			st, closeStore, err := newStore(ctx, mongoURI, mongoDB)
			if err != nil {
				return err
			}
			defer closeStore()
			if mongoURI == "" {
				printWarning("Using the in-memory store; programs will not survive a restart")
			}

			ch, err := newServeCache(ctx, redisAddr)
			if err != nil {
				return err
			}

			srv, err := api.New(api.Config{
				Store:    st,
				Cache:    ch,
				Registry: c.Registry,
				Logger:   c.Logger,
			})
			if err != nil {
				return err
			}

			httpServer := &http.Server{
				Addr:              addr,
				Handler:           srv.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				c.Logger.Info("listening", "addr", addr)
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				c.Logger.Info("shutting down")
				return httpServer.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&mongoURI, "mongo-uri", "", "MongoDB URI for durable program storage")
	cmd.Flags().StringVar(&mongoDB, "mongo-db", appName, "MongoDB database name")
	cmd.Flags().StringVar(&redisAddr, "redis-addr", "", "Redis address for shared artifact caching")

	return cmd
}

// newStore selects the program store backend.
func newStore(ctx context.Context, mongoURI, mongoDB string) (store.Store, func(), error) {
	if mongoURI == "" {
		return store.NewMemory(), func() {}, nil
	}
	s, err := store.NewMongo(ctx, mongoURI, mongoDB)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to store: %w", err)
	}
	closeStore := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Close(closeCtx)
	}
	return s, closeStore, nil
}

// newServeCache selects the artifact cache backend for the server.
func newServeCache(ctx context.Context, redisAddr string) (cache.Cache, error) {
	if redisAddr == "" {
		return cache.NewNullCache(), nil
	}
	ch, err := cache.NewRedisCache(ctx, redisAddr)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return ch, nil
}
