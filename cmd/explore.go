package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/angelala00/pbcdash/internal/explorer"
)

var (
	flagMethod      string
	flagExploreQry  string
	flagHeaderJSON  string
	flagBody        string
	flagShowHeaders bool
)

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Inspect backend endpoints",
}

var exploreListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the known endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("ID", "METHOD", "PATH", "NAME")
		for _, e := range explorer.Catalogue(cfg) {
			t.Row(e.ID, e.Method, e.Path, e.Name)
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		return nil
	},
}

var exploreSendCmd = &cobra.Command{
	Use:   "send ID|PATH",
	Short: "Send a request to an endpoint",
	Long: `Send a request and print the status and pretty-printed body.

The argument is either a catalogue id (see "explore list"), whose method,
query and body prefill the request, or a path such as /api/tasks. Flags
override the prefilled values.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := explorer.Request{Path: args[0]}
		if e, ok := explorer.Find(explorer.Catalogue(cfg), args[0]); ok {
			req = explorer.FromEndpoint(e)
		}
		flags := cmd.Flags()
		if flags.Changed("method") {
			req.Method = flagMethod
		}
		if flags.Changed("query") {
			req.Query = flagExploreQry
		}
		if flags.Changed("body") {
			req.Body = flagBody
		}
		req.Headers = flagHeaderJSON

		ctx, cancel := withTimeout(cmd.Context())
		defer cancel()
		res, err := explorer.Send(ctx, client, req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, res.Status)
		fmt.Fprintln(out, res.Meta)
		if flagShowHeaders {
			fmt.Fprintln(out)
			fmt.Fprintln(out, res.Headers)
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, strings.TrimRight(res.Body, "\n"))
		if !res.OK {
			return fmt.Errorf("request failed: %s", strings.TrimPrefix(res.Status, "Error · "))
		}
		return nil
	},
}

func init() {
	f := exploreSendCmd.Flags()
	f.StringVarP(&flagMethod, "method", "X", "GET", "HTTP method")
	f.StringVar(&flagExploreQry, "query", "", "query string, without the leading ?")
	f.StringVarP(&flagHeaderJSON, "header-json", "H", "", `extra headers as a JSON object, e.g. {"X-Debug":"1"}`)
	f.StringVarP(&flagBody, "body", "d", "", "request body")
	f.BoolVarP(&flagShowHeaders, "include", "i", false, "print response headers")

	exploreCmd.AddCommand(exploreListCmd)
	exploreCmd.AddCommand(exploreSendCmd)
}
