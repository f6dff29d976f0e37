package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/angelala00/pbcdash/internal/api"
	"github.com/angelala00/pbcdash/internal/config"
	"github.com/angelala00/pbcdash/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagConfig  string
	flagAPIBase string
	flagVerbose bool
)

// Set up by PersistentPreRunE for every command except version.
var (
	cfg    *config.Config
	logger *zap.Logger
	client *api.Client
)

var rootCmd = &cobra.Command{
	Use:   "pbcdash",
	Short: "Terminal dashboard for the PBC regulations crawler",
	Long: `pbcdash shows the crawler dashboard backend in the terminal: task status,
the entries captured per task with keyword and 废止 filters, remote search
and an API explorer.

Without a subcommand it starts the interactive dashboard.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&flagAPIBase, "api-base", "", "override the backend base URL")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log at debug level")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(entriesCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(exploreCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pbcdash %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

func setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	c, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if flagAPIBase != "" {
		c.APIBase = flagAPIBase
	}

	level := c.LogLevel
	if flagVerbose {
		level = "debug"
	}
	// The dashboard owns the terminal, so it logs to a file.
	logPath := ""
	if !cmd.HasParent() {
		logPath = config.LogPath()
	}
	l, err := logging.New(level, logPath)
	if err != nil {
		return err
	}

	cfg, logger = c, l
	client = newClient(c, l)
	logger.Debug("config loaded",
		zap.String("api_base", c.APIBase),
		zap.Bool("static_snapshot", c.StaticSnapshot),
		zap.Bool("search", c.SearchEnabled()),
	)
	return nil
}

func newClient(c *config.Config, l *zap.Logger) *api.Client {
	return api.NewClient(c.APIBase,
		api.WithHTTPClient(&http.Client{Timeout: c.TimeoutDuration()}),
		api.WithLogger(l),
		api.WithStaticSnapshot(c.StaticSnapshot),
		api.WithSearch(c.SearchEnabled(), c.SearchDisabledReason(), c.MaxTopK()),
		api.WithSearchEndpoint(c.SearchEndpoint()),
	)
}

// withTimeout bounds one backend round trip by the configured timeout.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, cfg.TimeoutDuration())
}

// loadTasks returns the task list, from initial_data in snapshot mode.
func loadTasks(ctx context.Context) ([]api.TaskSummary, error) {
	if cfg.StaticSnapshot {
		data, err := cfg.LoadInitialData()
		if err != nil || data == nil {
			return nil, err
		}
		return api.ParseTasks(data)
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return client.Tasks(ctx)
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}
