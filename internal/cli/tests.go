package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var listTestsCmd = &cobra.Command{
	Use:   "list-tests",
	Short: "List tests defined on the appliance",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, a *app) error {
			tests, err := a.client.GetTests(ctx)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"ID", "Name", "Type"})
			for _, test := range tests {
				t.AppendRow(table.Row{
					anyString(test["id"]),
					anyString(test["name"]),
					anyString(test["type"]),
				})
			}
			t.SetStyle(table.StyleLight)
			t.Render()
			return nil
		})
	},
}

var runTestCmd = &cobra.Command{
	Use:   "run-test <test-id>",
	Short: "Start a test and print its run ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, a *app) error {
			run, err := a.client.RunTest(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Test %s started, run %s\n", args[0], anyString(run["runId"]))
			return nil
		})
	},
}

var stopTestCmd = &cobra.Command{
	Use:   "stop-test <test-id>",
	Short: "Stop a running test",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, a *app) error {
			if _, err := a.client.StopTest(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Test %s stopped\n", args[0])
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <test-id> <run-id>",
	Short: "Show the status of a test run",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, a *app) error {
			status, err := a.client.GetTestStatus(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("Test %s run %s: %s\n", args[0], args[1], status)
			return nil
		})
	},
}

var resultsCmd = &cobra.Command{
	Use:   "results <test-id> <run-id>",
	Short: "Fetch the results of a test run as JSON",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, a *app) error {
			results, err := a.client.GetTestResults(ctx, args[0], args[1], !noCache)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		})
	},
}

func init() {
	rootCmd.AddCommand(listTestsCmd, runTestCmd, stopTestCmd, statusCmd, resultsCmd)
}

// withClient builds the app, logs in, runs fn and always logs out.
func withClient(ctx context.Context, fn func(context.Context, *app) error) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if err := a.client.Login(ctx); err != nil {
		return err
	}
	defer a.client.Logout(ctx)
	return fn(ctx, a)
}

func anyString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
