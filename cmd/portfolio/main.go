// Command portfolio runs the portfolio API server and talks to it from the
// terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kidandcat/portfolio/internal/client"
	"github.com/kidandcat/portfolio/internal/config"
	"github.com/kidandcat/portfolio/internal/db"
	"github.com/kidandcat/portfolio/internal/logger"
	"github.com/kidandcat/portfolio/internal/manage"
	"github.com/kidandcat/portfolio/internal/notify"
	"github.com/kidandcat/portfolio/internal/query"
	"github.com/kidandcat/portfolio/internal/roles"
	"github.com/kidandcat/portfolio/internal/session"
)

var errNotLoggedIn = errors.New("not logged in, run 'portfolio login' first")

// cli holds the global flags and what PersistentPreRunE derives from them.
type cli struct {
	envFile     string
	apiURL      string
	sessionPath string
	logLevel    string
	output      string

	cfg *config.Config
	log *zap.SugaredLogger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "portfolio",
		Short: "Project portfolio server and client",
		Long: `portfolio serves the project management API and the web dashboard,
and manages users, projects, backlogs and user stories from the terminal.

Configuration is read from PORTFOLIO_* environment variables and an
optional .env file; flags override both.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.log != nil {
				_ = c.log.Sync()
			}
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&c.envFile, "env-file", ".env", "dotenv file read before the environment")
	f.StringVar(&c.apiURL, "api", "", "API base URL (overrides PORTFOLIO_API_BASE_URL)")
	f.StringVar(&c.sessionPath, "session", "", "session database path (overrides PORTFOLIO_SESSION_PATH)")
	f.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error or dev")
	f.StringVarP(&c.output, "output", "o", formatTable, "output format: table, json or yaml")

	root.AddCommand(
		c.serveCmd(),
		c.loginCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.usersCmd(),
		c.projectsCmd(),
		c.backlogsCmd(),
		c.storiesCmd(),
	)
	return root
}

func (c *cli) init() error {
	if err := checkFormat(c.output); err != nil {
		return err
	}
	cfg, err := config.Load(c.envFile)
	if err != nil {
		return err
	}
	if c.apiURL != "" {
		cfg.API.BaseURL = c.apiURL
	}
	if c.sessionPath != "" {
		cfg.Session.Path = c.sessionPath
	}
	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
	}
	log, err := logger.New(cfg.Logging.Level)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.log = log
	return nil
}

// conn is a client session against the configured API, restored from the
// session database.
type conn struct {
	store *db.Store
	api   *client.Client
	sess  *session.Session

	users    *manage.Users
	projects *manage.Projects
	backlogs *manage.Backlogs
	stories  *manage.UserStories
}

func (c *cli) connect(ctx context.Context) (*conn, error) {
	store, err := db.OpenFile(c.cfg.Session.Path)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	api := client.New(c.cfg.API.BaseURL,
		client.WithTimeout(c.cfg.API.Timeout),
		client.WithLogger(c.log),
	)
	sess := session.New(store.KV(), api, c.log)
	sess.Bind(api)
	sess.OnExpired(func(route string) {
		c.log.Warnw("session expired, log in again", "route", route)
	})
	if err := sess.Load(ctx); err != nil && !errors.Is(err, session.ErrNoSession) {
		store.Close()
		return nil, err
	}

	d := manage.Deps{
		API:    api,
		Cache:  query.NewCache(c.log),
		Notify: notify.Log{L: c.log},
		Log:    c.log,
	}
	return &conn{
		store:    store,
		api:      api,
		sess:     sess,
		users:    manage.NewUsers(d),
		projects: manage.NewProjects(d),
		backlogs: manage.NewBacklogs(d),
		stories:  manage.NewUserStories(d),
	}, nil
}

// authed connects and fails unless a session is stored.
func (c *cli) authed(ctx context.Context) (*conn, error) {
	cn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	if !cn.sess.Authenticated() {
		cn.Close()
		return nil, errNotLoggedIn
	}
	return cn, nil
}

func (cn *conn) Close() error { return cn.store.Close() }

func (cn *conn) role() roles.Role { return cn.sess.Role() }
