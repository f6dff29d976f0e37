package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/angelala00/pbcdash/internal/cache"
	"github.com/angelala00/pbcdash/internal/dashboard"
	"github.com/angelala00/pbcdash/internal/filter"
)

var (
	flagEntrySlugs []string
	flagAbolish    bool
	flagQuery      string
	flagLimit      int
)

var entriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "Print the filtered entries of one or more tasks",
	Long: `Load the entries of the selected tasks (all tasks when no --slug is given)
and print them after the 废止 and keyword filters.

Keywords are matched case-insensitively as substrings and every keyword must
match. --limit caps the output only while a query is active. A task that
fails to load is reported on stderr; the command fails only when every task
failed.`,
	RunE: runEntries,
}

func init() {
	entriesCmd.Flags().StringSliceVarP(&flagEntrySlugs, "slug", "s", nil, "task slug to include (repeatable)")
	entriesCmd.Flags().BoolVarP(&flagAbolish, "abolish", "a", false, "only entries mentioning "+cache.AbolishKeyword)
	entriesCmd.Flags().StringVarP(&flagQuery, "query", "q", "", "keywords that must all match")
	entriesCmd.Flags().IntVarP(&flagLimit, "limit", "n", 0, "maximum matches to print while searching (0 = default)")
}

func runEntries(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	state := filter.NewState(cfg.MaxLimit(), cfg.DefaultLimit()).
		WithSources(flagEntrySlugs...).
		WithCategoryOnly(flagAbolish).
		WithQuery(flagQuery).
		WithLimit(flagLimit)

	c := cache.New(client, logger)
	// Task names label the entries; with no selection they are also the
	// source list.
	if tasks, err := loadTasks(ctx); err != nil {
		if len(state.Selected()) == 0 {
			return fmt.Errorf("loading tasks: %w", err)
		}
		logger.Warn("task list unavailable", zap.Error(err))
	} else {
		c.SetTasks(tasks)
	}

	sources := filter.Run(c, state, "").Sources
	if len(sources) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No tasks found.")
		return nil
	}

	loadCtx, cancel := withTimeout(ctx)
	res := c.EnsureLoaded(loadCtx, sources)
	cancel()
	for _, f := range res.Failed {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %v\n", f.Source, f.Err)
	}
	if len(res.Succeeded) == 0 {
		return fmt.Errorf("no task could be loaded: %w", res.Err())
	}

	result := filter.Run(c, state, "")
	printEntries(cmd.OutOrStdout(), c, state, result)
	return nil
}

func printEntries(w io.Writer, c *cache.Cache, state filter.State, result filter.Result) {
	if len(result.Sources) == 1 {
		source := result.Sources[0]
		lookup := c.Get(source)
		task := lookup.Task
		if task == nil {
			if t, ok := c.Task(source); ok {
				task = &t
			}
		}
		title, subtitle := dashboard.EntriesHeader(task, source, "", len(lookup.Entries))
		fmt.Fprintf(w, "%s\n%s\n%s\n\n", title, subtitle, dashboard.MetaLine(task, len(lookup.Entries)))
	}

	summary := result.Summary()
	if state.Searching() {
		summary += fmt.Sprintf(" for %q", state.Query())
	}
	if state.CategoryOnly() {
		summary += " · " + cache.AbolishKeyword
	}
	fmt.Fprintln(w, summary)

	multi := len(result.Sources) > 1
	for _, e := range result.Displayed {
		line := fmt.Sprintf("#%-4d %s", e.Serial, e.DisplayTitle())
		if e.Abolish {
			line += " [" + cache.AbolishKeyword + "]"
		}
		if multi {
			source := e.SourceName
			if source == "" {
				source = e.Source
			}
			line += "  · " + source
		}
		fmt.Fprintln(w, line)
		if r := strings.TrimSpace(e.Remark); r != "" {
			fmt.Fprintf(w, "      %s\n", r)
		}
		for _, d := range e.Documents {
			status := "待下载"
			if d.Downloaded {
				status = "已下载"
			}
			doc := "      - " + d.DisplayTitle()
			if d.Type != "" {
				doc += " (" + d.Type + ")"
			}
			doc += " · " + status
			if d.URL != "" {
				doc += " · " + d.URL
			}
			fmt.Fprintln(w, doc)
		}
	}
	if result.Limited {
		fmt.Fprintf(w, "… %d more, raise --limit to see them\n", result.TotalAfterKeyword-len(result.Displayed))
	}
}
