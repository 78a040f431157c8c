package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/minhdang/bpagent/internal/analyzer"
)

var (
	reportType   string
	reportFormat string
	outputDir    string
	chartType    string
)

var reportCmd = &cobra.Command{
	Use:   "report <test-id> <run-id>",
	Short: "Generate a report for a test run",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, a *app) error {
			rtype := reportType
			if rtype == "" {
				rtype = a.cfg.Analyzer.DefaultReportType
			}
			format := reportFormat
			if format == "" {
				format = a.cfg.Analyzer.DefaultOutputFormat
			}
			dir := outputDir
			if dir == "" {
				dir = a.cfg.Analyzer.ReportsDir
			}

			path, err := a.service.GenerateReport(ctx, args[0], args[1], rtype, format, dir)
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		})
	},
}

var chartsCmd = &cobra.Command{
	Use:   "charts <test-id> <run-id>",
	Short: "Generate charts for a test run",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, a *app) error {
			dir := outputDir
			if dir == "" {
				dir = a.cfg.Analyzer.ChartsDir
			}

			paths, err := a.service.GenerateCharts(ctx, args[0], args[1], dir)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				fmt.Println("No applicable charts for this run")
				return nil
			}
			for _, p := range paths {
				fmt.Println(p)
			}
			return nil
		})
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare <test-id-1> <run-id-1> <test-id-2> <run-id-2>",
	Short: "Compare two test runs",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, a *app) error {
			run1 := analyzer.RunKey{TestID: args[0], RunID: args[1]}
			run2 := analyzer.RunKey{TestID: args[2], RunID: args[3]}

			cmp, err := a.service.CompareRuns(ctx, run1, run2, !noCache)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(cmp); err != nil {
				return err
			}

			if chartType == "" {
				return nil
			}
			dir := outputDir
			if dir == "" {
				dir = a.cfg.Analyzer.ChartsDir
			}
			path, err := a.service.CompareChart(ctx, run1, run2, chartType, dir)
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		})
	},
}

var listGeneratorsCmd = &cobra.Command{
	Use:   "list-generators",
	Short: "List available report and chart types",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		fmt.Println("Reports:", strings.Join(a.registry.ReportNames(), ", "))
		fmt.Println("Charts: ", strings.Join(a.registry.ChartNames(), ", "))
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportType, "type", "", "report type (standard, executive, detailed, compliance)")
	reportCmd.Flags().StringVar(&reportFormat, "format", "", "output format (html, csv)")
	reportCmd.Flags().StringVar(&outputDir, "output-dir", "", "output directory")
	chartsCmd.Flags().StringVar(&outputDir, "output-dir", "", "output directory")
	compareCmd.Flags().StringVar(&chartType, "chart", "", "also render a comparison chart of this type")
	compareCmd.Flags().StringVar(&outputDir, "output-dir", "", "output directory")

	rootCmd.AddCommand(reportCmd, chartsCmd, compareCmd, listGeneratorsCmd)
}
