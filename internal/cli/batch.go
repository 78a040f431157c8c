package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/minhdang/bpagent/internal/core/errs"
	"github.com/minhdang/bpagent/internal/infra/bps"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run operations across many test runs at once",
}

var batchRunCmd = &cobra.Command{
	Use:   "run <test-id>...",
	Short: "Start several tests concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, a *app) error {
			results := a.client.StartTests(ctx, args)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "TEST\tRUN\tRESULT")
			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
					fmt.Fprintf(w, "%s\t-\t%s\n", r.Run.TestID, errs.FormatForUser(r.Err))
					continue
				}
				fmt.Fprintf(w, "%s\t%s\tstarted\n", r.Run.TestID, r.Run.RunID)
			}
			w.Flush()
			if failed > 0 {
				return errs.New(errs.KindTestExecution, errs.CodeTestExecution,
					fmt.Sprintf("%d of %d tests failed to start", failed, len(results)))
			}
			return nil
		})
	},
}

var batchStatusCmd = &cobra.Command{
	Use:   "status <test-id>:<run-id>...",
	Short: "Fetch the status of several runs concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runs, err := parseRuns(args)
		if err != nil {
			return err
		}
		return withClient(cmd.Context(), func(ctx context.Context, a *app) error {
			results := a.client.Statuses(ctx, runs)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "TEST\tRUN\tSTATUS")
			for _, r := range results {
				if r.Err != nil {
					fmt.Fprintf(w, "%s\t%s\t%s\n", r.Run.TestID, r.Run.RunID, errs.FormatForUser(r.Err))
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.Run.TestID, r.Run.RunID, anyString(r.Payload["status"]))
			}
			w.Flush()
			return nil
		})
	},
}

var batchResultsCmd = &cobra.Command{
	Use:   "results <test-id>:<run-id>...",
	Short: "Fetch and summarize several runs concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runs, err := parseRuns(args)
		if err != nil {
			return err
		}
		return withClient(cmd.Context(), func(ctx context.Context, a *app) error {
			results := a.client.FetchResults(ctx, runs, !noCache)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "TEST\tRUN\tSTATUS\tFIELDS")
			for _, r := range results {
				if r.Err != nil {
					fmt.Fprintf(w, "%s\t%s\t%s\t-\n", r.Run.TestID, r.Run.RunID, errs.FormatForUser(r.Err))
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n",
					r.Run.TestID, r.Run.RunID, anyString(r.Payload["status"]), len(r.Payload))
			}
			w.Flush()
			return nil
		})
	},
}

func parseRuns(args []string) ([]bps.Run, error) {
	runs := make([]bps.Run, 0, len(args))
	for _, arg := range args {
		testID, runID, ok := strings.Cut(arg, ":")
		if !ok || testID == "" || runID == "" {
			return nil, errs.Validation(fmt.Sprintf("invalid run reference %q", arg),
				map[string]string{"run": "expected <test-id>:<run-id>"})
		}
		runs = append(runs, bps.Run{TestID: testID, RunID: runID})
	}
	return runs, nil
}

func init() {
	batchCmd.AddCommand(batchRunCmd, batchStatusCmd, batchResultsCmd)
	rootCmd.AddCommand(batchCmd)
}
