package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Zachkp/portfolio/internal/analytics"
	"github.com/Zachkp/portfolio/internal/content"
)

var errAnalyticsDisabled = errors.New("analytics is disabled in the config")

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print visitor and section statistics as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), stats)
		},
	}
}

func newCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete analytics rows older than the retention period",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Cleanup(cmd.Context(), cfg.Analytics.Retention)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d rows older than %s\n", n, cfg.Analytics.Retention)
			return nil
		},
	}
}

func newCheckContentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-content [path]",
		Short: "Validate a portfolio content file (the built-in one when no path is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			} else {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				path = cfg.ContentPath
			}
			page, err := content.Load(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s, %d skill groups, %d projects\n", page.Name, len(page.Skills), len(page.Projects))
			return nil
		},
	}
}

func openStore() (*analytics.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Analytics.Enabled {
		return nil, errAnalyticsDisabled
	}
	return analytics.Open(cfg.Analytics.DBPath)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
