package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var cleanupMaxAge time.Duration

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the result cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		stats := a.store.Stats()

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendRows([]table.Row{
			{"Directory", stats.Dir},
			{"Enabled", stats.Enabled},
			{"Compression", stats.Compression},
			{"TTL", stats.TTL},
			{"Entries", stats.EntryCount},
			{"Size", stats.HumanSize()},
		})
		if !stats.OldestEntry.IsZero() {
			t.AppendRow(table.Row{"Oldest entry", stats.OldestEntry.Format(time.RFC3339)})
			t.AppendRow(table.Row{"Newest entry", stats.NewestEntry.Format(time.RFC3339)})
		}
		t.SetStyle(table.StyleLight)
		t.Render()
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		removed := a.store.Clear()
		fmt.Printf("Removed %d cache entries\n", removed)
		return nil
	},
}

var cacheCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove cached entries older than a given age",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		maxAge := cleanupMaxAge
		if maxAge <= 0 {
			maxAge = a.cfg.Cache.TTL
		}
		removed := a.store.Cleanup(maxAge)
		fmt.Printf("Removed %d cache entries older than %s\n", removed, maxAge)
		return nil
	},
}

func init() {
	cacheCleanupCmd.Flags().DurationVar(&cleanupMaxAge, "max-age", 0, "remove entries older than this (defaults to the cache TTL)")
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd, cacheCleanupCmd)
	rootCmd.AddCommand(cacheCmd)
}
