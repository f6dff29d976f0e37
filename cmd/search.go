package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/angelala00/pbcdash/internal/api"
	"github.com/angelala00/pbcdash/internal/cache"
)

var (
	flagTopK        string
	flagNoDocuments bool
)

var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Run a ranked keyword search on the backend",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topk, err := api.ParseTopK(flagTopK, cfg.DefaultTopK(), cfg.MaxTopK())
		if err != nil {
			return fmt.Errorf("invalid --topk value: %w", err)
		}

		ctx, cancel := withTimeout(cmd.Context())
		defer cancel()
		resp, err := client.Search(ctx, api.SearchRequest{
			Query:            strings.Join(args, " "),
			TopK:             topk,
			IncludeDocuments: cfg.IncludeDocuments() && !flagNoDocuments,
		})
		if err != nil {
			return fmt.Errorf("searching: %w", err)
		}
		printSearch(cmd.OutOrStdout(), resp)
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVarP(&flagTopK, "topk", "k", "", "number of results (default from config)")
	searchCmd.Flags().BoolVar(&flagNoDocuments, "no-documents", false, "omit documents from results")
}

func printSearch(w io.Writer, resp *api.SearchResponse) {
	fmt.Fprintf(w, "%d results for %q (topk %d)\n", resp.ResultCount, resp.Query, resp.TopK)
	for i, r := range resp.Results {
		title := strings.TrimSpace(r.Title.String())
		if title == "" {
			title = cache.UntitledEntry
		}
		fmt.Fprintf(w, "%2d. [%.3f] %s\n", i+1, r.Score, title)

		var meta []string
		for _, v := range []api.Text{r.DocNo, r.Year, r.DocType, r.Agency} {
			if s := strings.TrimSpace(v.String()); s != "" {
				meta = append(meta, s)
			}
		}
		if len(meta) > 0 {
			fmt.Fprintf(w, "    %s\n", strings.Join(meta, " · "))
		}
		if p := strings.TrimSpace(r.BestPath.String()); p != "" {
			fmt.Fprintf(w, "    %s\n", p)
		}
		for _, d := range r.Documents {
			line := "    - " + strings.TrimSpace(d.Title.String())
			if d.URL != "" {
				line += " " + d.URL.String()
			}
			fmt.Fprintln(w, line)
		}
	}
}
