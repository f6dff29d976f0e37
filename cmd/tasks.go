package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/angelala00/pbcdash/internal/api"
	"github.com/angelala00/pbcdash/internal/dashboard"
)

var flagWatch bool

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Show crawler tasks and their status",
	Long: `Print the summary cards and one row per crawler task.

With --watch the table is redrawn every auto_refresh seconds until interrupted.`,
	RunE: runTasks,
}

func init() {
	tasksCmd.Flags().BoolVarP(&flagWatch, "watch", "w", false, "keep polling at the auto_refresh interval")
}

func runTasks(cmd *cobra.Command, args []string) error {
	interval := cfg.AutoRefreshInterval()
	if flagWatch && interval <= 0 {
		return errors.New("--watch needs auto_refresh > 0 and a live backend")
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	for {
		tasks, err := loadTasks(ctx)
		if err != nil {
			return fmt.Errorf("loading tasks: %w", err)
		}
		if flagWatch {
			// Clear the screen before each redraw
			fmt.Fprint(out, "\033[H\033[2J")
		}
		renderTasks(out, tasks, time.Now())
		if !flagWatch {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

func renderTasks(w io.Writer, tasks []api.TaskSummary, now time.Time) {
	cards := dashboard.Summarize(tasks).Cards()
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = fmt.Sprintf("%s %d", c.Label, c.Value)
	}
	fmt.Fprintln(w, strings.Join(parts, " · "))

	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks found.")
		return
	}

	header := lipgloss.NewStyle().Bold(true)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TASK", "STATUS", "ENTRIES", "DOCS", "DOWNLOADED", "PENDING", "UPDATED", "NEXT RUN").
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return header.Padding(0, 1)
			}
			return s
		})
	for _, task := range tasks {
		name := strings.TrimSpace(task.Name)
		if name == "" {
			name = task.Slug
		} else if task.Slug != "" {
			name += " (" + task.Slug + ")"
		}
		class, reason := dashboard.Status(task)
		t.Row(
			name,
			class+" · "+dashboard.Truncate(reason, 40),
			fmt.Sprint(task.EntriesTotal),
			fmt.Sprint(task.DocumentsTotal),
			fmt.Sprint(task.DownloadedTotal),
			fmt.Sprint(task.PendingTotal),
			dashboard.FormatTimestamp(task.StateLastUpdated),
			dashboard.NextWindow(task),
		)
	}
	fmt.Fprintln(w, t.Render())
	fmt.Fprintf(w, "As of %s · auto refresh %s\n", dashboard.FormatDate(now), cfg.AutoRefreshLabel())
}
