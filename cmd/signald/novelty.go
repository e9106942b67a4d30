package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/signald/internal/config"
	"github.com/fyrsmithlabs/signald/internal/novelty"
)

var pruneOlderThanDays int

var noveltyCmd = &cobra.Command{
	Use:   "novelty",
	Short: "Manage the novelty store",
}

var noveltyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all novelty records",
	Long: `Clear removes every record from the configured novelty backend, so
all items score as fully novel on the next scan.`,
	RunE: runNoveltyClear,
}

var noveltyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete novelty records not seen recently",
	Long: `Prune removes records whose last sighting is older than the cutoff.
Only the sqlite backend supports pruning.`,
	RunE: runNoveltyPrune,
}

func init() {
	noveltyPruneCmd.Flags().IntVar(&pruneOlderThanDays, "older-than", 30, "delete records last seen more than this many days ago")
	noveltyCmd.AddCommand(noveltyClearCmd)
	noveltyCmd.AddCommand(noveltyPruneCmd)
}

func runNoveltyClear(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	backend, closeBackend, err := newNoveltyBackend(cfg.Novelty)
	if err != nil {
		return err
	}
	defer closeBackend()

	clearer, ok := backend.(novelty.Clearer)
	if !ok {
		return fmt.Errorf("backend %q does not support clearing", cfg.Novelty.Backend)
	}
	if err := clearer.Clear(cmd.Context()); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "novelty store cleared")
	return nil
}

func runNoveltyPrune(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	backend, closeBackend, err := newNoveltyBackend(cfg.Novelty)
	if err != nil {
		return err
	}
	defer closeBackend()

	sqlite, ok := backend.(*novelty.SQLiteBackend)
	if !ok {
		return fmt.Errorf("backend %q does not support pruning", cfg.Novelty.Backend)
	}

	cutoff := time.Now().AddDate(0, 0, -pruneOlderThanDays)
	removed, err := sqlite.Prune(cmd.Context(), cutoff)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "pruned %d records\n", removed)
	return nil
}
