package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kidandcat/portfolio/internal/db"
	"github.com/kidandcat/portfolio/internal/server"
	"github.com/kidandcat/portfolio/internal/ui"
)

const purgeEvery = time.Hour

func (c *cli) serveCmd() *cobra.Command {
	var (
		addr    string
		dataDir string
		noUI    bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server and the web dashboard",
		Long: `Serve the REST API under /api and the web dashboard at /.

On start the role table is seeded and, when PORTFOLIO_ADMIN_EMAIL and
PORTFOLIO_ADMIN_PASSWORD are set, a Super Admin account is created if
none with that email exists.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				c.cfg.Server.Addr = addr
			}
			if dataDir != "" {
				c.cfg.Server.DataDir = dataDir
			}
			return c.serve(cmd.Context(), !noUI)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides PORTFOLIO_SERVER_ADDR)")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "database directory (overrides PORTFOLIO_SERVER_DATA_DIR)")
	cmd.Flags().BoolVar(&noUI, "no-ui", false, "serve the API only")
	return cmd
}

func (c *cli) serve(ctx context.Context, withUI bool) error {
	store, err := db.Open(c.cfg.Server.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SeedRoles(ctx); err != nil {
		return err
	}
	if c.cfg.Admin.Email != "" {
		created, err := store.EnsureAdmin(ctx, c.cfg.Admin.Email, c.cfg.Admin.Password)
		if err != nil {
			return err
		}
		if created {
			c.log.Infow("created admin user", "email", c.cfg.Admin.Email)
		}
	}

	api := server.New(store, server.Options{
		TokenTTL:   c.cfg.Server.TokenTTL,
		RefreshTTL: c.cfg.Server.RefreshTTL,
		Log:        c.log,
	})
	srv := &http.Server{
		Addr:              c.cfg.Server.Addr,
		Handler:           routes(api.Handler(), withUI),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c.log.Infow("portfolio running", "addr", srv.Addr, "data_dir", c.cfg.Server.DataDir, "ui", withUI)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	})
	g.Go(func() error {
		t := time.NewTicker(purgeEvery)
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
				n, err := store.PurgeExpiredTokens(gctx)
				if err != nil {
					c.log.Warnw("purge expired tokens", "error", err)
					continue
				}
				if n > 0 {
					c.log.Debugw("purged expired tokens", "count", n)
				}
			}
		}
	})
	return g.Wait()
}

// routes mounts the API under /api and, optionally, the dashboard at /.
func routes(api http.Handler, withUI bool) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", http.StripPrefix("/api", api))
	if withUI {
		ui.Register()
		mux.Handle("/", ui.Handler())
	}
	return mux
}
