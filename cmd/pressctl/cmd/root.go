// Package cmd implements the pressctl CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"

	"github.com/ibtissamelhani/induspress/internal/core/cache"
	"github.com/ibtissamelhani/induspress/internal/core/domain"
	"github.com/ibtissamelhani/induspress/internal/core/engine"
	"github.com/ibtissamelhani/induspress/internal/core/ports"
	"github.com/ibtissamelhani/induspress/internal/core/session"
	"github.com/ibtissamelhani/induspress/internal/infrastructure/cachemem"
	redisdb "github.com/ibtissamelhani/induspress/internal/infrastructure/db/redis"
	"github.com/ibtissamelhani/induspress/internal/infrastructure/filestore"
	"github.com/ibtissamelhani/induspress/internal/infrastructure/remote"
	"github.com/ibtissamelhani/induspress/internal/pkg/config"
	"github.com/ibtissamelhani/induspress/pkg/logger"
)

// Version is set at build time.
var Version = "0.1.0"

// app is the state shared by every command of one invocation.
type app struct {
	lookuper envconfig.Lookuper

	// flags
	outputFormat string
	noColor      bool
	apiURL       string

	cfg     *config.Config
	log     zerolog.Logger
	engine  *engine.Engine
	closers []func() error
}

// NewRootCmd builds the command tree. lookuper overrides the process
// environment as the configuration source when non-nil.
func NewRootCmd(lookuper envconfig.Lookuper) *cobra.Command {
	a := &app{lookuper: lookuper}

	root := &cobra.Command{
		Use:   "pressctl",
		Short: "Write, review and publish articles",
		Long: `pressctl talks to the press API on behalf of one signed-in user.

Authors submit and revise articles; editors publish or reject them.
The session survives between invocations until logout or token expiry.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || (cmd.HasParent() && cmd.Parent().Name() == "completion") {
				return nil
			}
			return a.init(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	root.PersistentFlags().StringVarP(&a.outputFormat, "output", "o", "table", "Output format: table, json, yaml")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable coloured output")
	root.PersistentFlags().StringVar(&a.apiURL, "api", "", "Press API base URL (default: $PRESS_API_URL)")

	root.AddCommand(
		a.loginCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.registerCmd(),
		a.canCmd(),
		a.articlesCmd(),
		a.categoriesCmd(),
		a.statsCmd(),
	)
	return root
}

// Execute runs pressctl against the process environment and returns the
// exit code.
func Execute() int {
	root := NewRootCmd(nil)
	if err := root.ExecuteContext(context.Background()); err != nil {
		printError(root.ErrOrStderr(), err)
		return exitCode(err)
	}
	return 0
}

// init loads configuration and wires the engine. It runs once per invocation.
func (a *app) init(ctx context.Context) error {
	if a.engine != nil {
		return nil
	}
	switch a.outputFormat {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q", a.outputFormat)
	}
	if a.noColor {
		color.NoColor = true
	}

	cfg, err := config.LoadFrom(ctx, a.lookuper)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if a.apiURL != "" {
		cfg.Client.APIURL = a.apiURL
	}
	a.cfg = cfg
	a.log = logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Output: os.Stderr, Service: "pressctl"})

	var rdb *goredis.Client
	if strings.EqualFold(cfg.Client.SessionBackend, "redis") || strings.EqualFold(cfg.Client.CacheBackend, "redis") {
		rdb, err = redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)
	}

	var storage ports.SessionStorage
	if strings.EqualFold(cfg.Client.SessionBackend, "redis") {
		storage = redisdb.NewSessionStorage(rdb, "")
	} else {
		fs, err := filestore.NewSessionStorage(cfg.Client.SessionPath)
		if err != nil {
			return fmt.Errorf("open session file: %w", err)
		}
		storage = fs
	}

	var backend ports.CacheBackend
	if strings.EqualFold(cfg.Client.CacheBackend, "redis") {
		backend = redisdb.NewCacheBackend(rdb, "", cfg.Client.CacheTTL)
	} else {
		backend = cachemem.New()
	}

	authority, err := remote.New(cfg.Client.APIURL, a.log, remote.WithTimeout(cfg.Client.HTTPTimeout))
	if err != nil {
		return err
	}

	sopts := []session.Option{}
	if cfg.JWTSecret != "" {
		sopts = append(sopts, session.WithVerificationKey([]byte(cfg.JWTSecret)))
	}
	sessions := session.NewStore(storage, a.log, sopts...)
	c := cache.New(backend, a.log, cache.WithMaxAge(cfg.Client.CacheTTL))

	a.engine = engine.New(sessions, authority, c, a.log)
	return a.engine.Restore(ctx)
}

func (a *app) close() {
	for _, fn := range a.closers {
		if err := fn(); err != nil {
			a.log.Warn().Err(err).Msg("close failed")
		}
	}
	a.closers = nil
}

var errStyle = color.New(color.FgRed, color.Bold).SprintFunc()

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %v\n", errStyle("Error:"), err)
	switch domain.KindOf(err) {
	case domain.KindInvalidToken, domain.KindExpired:
		fmt.Fprintln(w, "Run 'pressctl login' to sign in again.")
	}
	if errors.Is(err, domain.ErrNoSession) {
		fmt.Fprintln(w, "Run 'pressctl login' first.")
	}
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	switch domain.KindOf(err) {
	case domain.KindInvalidToken, domain.KindExpired:
		return 2
	case domain.KindPermissionDenied:
		return 3
	case domain.KindValidation:
		return 4
	case domain.KindConflict:
		return 5
	case domain.KindRemoteFailure:
		return 6
	}
	return 1
}
