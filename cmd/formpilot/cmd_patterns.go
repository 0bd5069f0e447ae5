// This file contains pattern-store commands: list, stats, export, sync.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"formpilot/internal/exchange"
	"formpilot/internal/pattern"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Inspect and sync the learned pattern store",
}

var patternsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List learned patterns",
	RunE:  patternsList,
}

var patternsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show pattern store statistics",
	RunE:  patternsStats,
}

var patternsExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export the shareable subset of patterns to a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE:  patternsExport,
}

var patternsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push shareable patterns to the exchange and pull shared ones",
	RunE:  patternsSync,
}

func init() {
	patternsCmd.AddCommand(patternsListCmd)
	patternsCmd.AddCommand(patternsStatsCmd)
	patternsCmd.AddCommand(patternsExportCmd)
	patternsCmd.AddCommand(patternsSyncCmd)
}

func openPatternStore() (*pattern.Store, error) {
	return pattern.NewStore(resolvePath(cfg.Store.PatternDBPath))
}

func patternsList(cmd *cobra.Command, args []string) error {
	store, err := openPatternStore()
	if err != nil {
		return err
	}
	defer store.Close()

	all, err := store.All(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("%d patterns\n", len(all))
	for _, p := range all {
		fmt.Printf("  %-40s %q (confidence %.2f, used %d)\n", p.Intent, p.QuestionPattern, p.Confidence, p.UsageCount)
		for _, m := range p.AnswerMappings {
			fmt.Printf("      %s <- %s\n", m.CanonicalValue, strings.Join(m.Variants, ", "))
		}
	}
	return nil
}

func patternsStats(cmd *cobra.Command, args []string) error {
	store, err := openPatternStore()
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Stats(cmd.Context())
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}

func patternsExport(cmd *cobra.Command, args []string) error {
	store, err := openPatternStore()
	if err != nil {
		return err
	}
	defer store.Close()

	client := exchange.NewClient(cfg.Exchange, store)
	shareable, err := client.Shareable(cmd.Context())
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(shareable, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[0], data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", args[0], err)
	}
	fmt.Printf("Exported %d shareable patterns to %s\n", len(shareable), args[0])
	return nil
}

func patternsSync(cmd *cobra.Command, args []string) error {
	if !cfg.Exchange.Enabled || cfg.Exchange.BaseURL == "" {
		return fmt.Errorf("pattern exchange is not configured (set exchange.enabled and exchange.base_url)")
	}

	store, err := openPatternStore()
	if err != nil {
		return err
	}
	defer store.Close()

	client := exchange.NewClient(cfg.Exchange, store)
	pushed, err := client.Push(cmd.Context())
	if err != nil {
		return err
	}
	pulled, err := client.Pull(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("Pushed %d patterns, merged %d observations\n", pushed, pulled)
	return nil
}
