package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"soundtrip/internal/app"
	"soundtrip/internal/client"
	"soundtrip/internal/config"
	"soundtrip/internal/history"
	"soundtrip/internal/logging"
	"soundtrip/internal/store"
)

var (
	// Global flags
	verbose bool
	homeDir string
	apiBase string
	timeout time.Duration

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "soundtrip",
		Short: "Soundtrip - travel stories with a soundtrack",
		Long: `soundtrip asks the Soundtrip story service for a short travel narrative
(chapters, optional song lyrics and narrated audio) for a city, date and time of day.

Stories can be saved per day and opened again later. Run without arguments
to start the interactive screen.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Sync()
		},
		RunE: runInteractive,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging on stderr")
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "Data directory (default: $SOUNDTRIP_HOME or ~/.soundtrip)")
	rootCmd.PersistentFlags().StringVar(&apiBase, "api-base", "", "Story service base URL (overrides config)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Per-request timeout (overrides config)")

	rootCmd.AddCommand(newCreateCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newThemeCmd())
	rootCmd.AddCommand(newAudioCmd())
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newConfigCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads the config and initializes logging before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	if homeDir == "" {
		homeDir = config.DefaultHome()
	}

	loaded, err := config.Load(config.Path(homeDir))
	if err != nil {
		return err
	}
	applyFlagOverrides(loaded)
	if err := loaded.Validate(); err != nil {
		return err
	}
	cfg = loaded

	// The interactive screen owns the terminal, so -v never logs to stderr there.
	if verbose && cmd.Parent() != nil {
		zc := zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		zc.OutputPaths = []string{"stderr"}
		l, err := zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logCfg := cfg.Logging
		logCfg.DebugMode = true
		logging.Set(l, logCfg)
	} else if err := logging.Initialize(homeDir, cfg.Logging); err != nil {
		return err
	}
	logger = logging.Get(logging.CategoryBoot)
	logger.Debug("config loaded",
		zap.String("home", homeDir),
		zap.String("api_base", cfg.API.BaseURL),
		zap.String("storage", cfg.Storage.Driver))
	return nil
}

// applyFlagOverrides lets command-line flags win over config and env.
func applyFlagOverrides(c *config.Config) {
	if apiBase != "" {
		c.API.BaseURL = apiBase
	}
	if timeout > 0 {
		c.API.Timeout = timeout.String()
	}
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// environment is everything a command needs, opened from the loaded config.
type environment struct {
	kv      store.KV
	client  *client.Client
	history *history.Store
	prefs   *history.Preferences
	session *app.Session
	report  *history.LoadReport
	// historyErr is set when history was written by a newer version.
	historyErr error
}

// openEnvironment opens storage and loads the session. History written by a
// newer version is reported on stderr; commands that read history refuse to
// run, the others continue with saving disabled.
func openEnvironment(ctx context.Context) (*environment, error) {
	kv, err := store.Open(cfg.Storage.Driver, cfg.DatabasePath(homeDir))
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	if db, ok := kv.(*store.SQLite); ok {
		logging.Get(logging.CategoryStore).Debug("storage opened", zap.String("path", db.Path()))
	}

	env := &environment{
		kv:      kv,
		client:  client.NewFromConfig(cfg),
		history: history.New(kv),
		prefs:   history.NewPreferences(kv),
	}
	env.session = app.NewSession(env.client, env.history, env.prefs, cfg.Builder())

	report, err := env.session.Load(ctx)
	env.report = report
	if err != nil {
		if !errors.Is(err, history.ErrNewerSchema) {
			kv.Close()
			return nil, err
		}
		env.historyErr = err
		fmt.Fprintf(os.Stderr, "Warning: %v; saving is disabled\n", err)
	}
	if report != nil && report.Migrated {
		logging.Get(logging.CategoryHistory).Info("history migrated",
			zap.Int("from_version", report.FromVersion),
			zap.Int("entries", report.Entries))
	}
	return env, nil
}

// readableHistory fails when saved stories cannot be read, so an unreadable
// history is never shown as an empty one.
func (e *environment) readableHistory() error {
	if e.historyErr != nil {
		return fmt.Errorf("saved stories are unreadable: %w", e.historyErr)
	}
	return nil
}

func (e *environment) Close() error {
	return e.kv.Close()
}
