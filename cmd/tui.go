package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/angelala00/pbcdash/internal/api"
	"github.com/angelala00/pbcdash/internal/cache"
	"github.com/angelala00/pbcdash/internal/tui"
)

var flagSlug string

func init() {
	rootCmd.Flags().StringVar(&flagSlug, "slug", "", "open the entries of this task directly")
}

func runTUI(cmd *cobra.Command, args []string) error {
	var initial []api.TaskSummary
	data, err := cfg.LoadInitialData()
	if err != nil {
		return err
	}
	if data != nil {
		initial, err = api.ParseTasks(data)
		if err != nil {
			return fmt.Errorf("parsing initial data: %w", err)
		}
	}

	logger.Info("starting dashboard", zap.String("slug", flagSlug), zap.Int("initial_tasks", len(initial)))
	return tui.Run(tui.RunOpts{
		Cfg:          cfg,
		Client:       client,
		Cache:        cache.New(client, logger),
		Logger:       logger,
		Slug:         flagSlug,
		InitialTasks: initial,
	})
}
