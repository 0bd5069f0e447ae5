// This file contains the fill command: the full scan -> resolve -> fill
// pipeline against one URL.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"formpilot/internal/autofill"
	"formpilot/internal/browser"
	"formpilot/internal/exchange"
	"formpilot/internal/fill"
	"formpilot/internal/oracle"
	"formpilot/internal/pattern"
	"formpilot/internal/profile"
	"formpilot/internal/resolve"
	"formpilot/internal/scan"
)

var fillJSON bool

var fillCmd = &cobra.Command{
	Use:   "fill [url]",
	Short: "Scan a job application page, resolve answers, and fill it",
	Args:  cobra.ExactArgs(1),
	RunE:  runFill,
}

func init() {
	fillCmd.Flags().BoolVar(&fillJSON, "json", false, "print the run report as JSON")
}

// buildRunner assembles the pipeline from configuration.
func buildRunner() (*autofill.Runner, func(), error) {
	profiles, err := profile.NewStore(resolvePath(cfg.Store.ProfilePath))
	if err != nil {
		return nil, nil, err
	}
	// The onboarding UI writes the same file; pick up external edits
	// instead of serving the first Load for the process lifetime.
	if err := profiles.Watch(); err != nil {
		logger.Warn("profile hot-reload disabled", zap.Error(err))
	}
	patterns, err := pattern.NewStore(resolvePath(cfg.Store.PatternDBPath))
	if err != nil {
		return nil, nil, err
	}

	var orc oracle.Oracle
	if cfg.Oracle.APIKey != "" || cfg.Oracle.Provider == "http" || cfg.Oracle.Provider == "" {
		orc, err = oracle.New(cfg.Oracle)
		if err != nil {
			logger.Warn("oracle unavailable, unresolved questions will be dropped", zap.Error(err))
			orc = nil
		}
	}
	engine := resolve.NewEngine(patterns, orc, cfg.Oracle.GetMaxOptionsInPrompt())

	browsers := browser.NewManager(cfg.Browser)
	scanner := scan.NewScanner(scan.NewExtractor())
	cache := scan.NewCache(cfg.Store.GetScanCacheTTL())

	var remote *scan.RemoteScanner
	if cfg.Remote.Enabled && cfg.Remote.ScanServiceURL != "" {
		remote = scan.NewRemoteScanner(cfg.Remote.ScanServiceURL, cfg.Remote.GetTimeout(), cache)
	}

	var sink fill.FailureSink
	if cfg.Exchange.TelemetryURL != "" {
		sink = exchange.NewTelemetrySink(cfg.Exchange.TelemetryURL)
	}

	runner := autofill.NewRunner(browsers, scanner, remote, cache, profiles, engine, sink)
	cleanup := func() {
		_ = browsers.Shutdown()
		_ = patterns.Close()
		_ = profiles.Close()
	}
	return runner, cleanup, nil
}

func runFill(cmd *cobra.Command, args []string) error {
	url := args[0]
	runner, cleanup, err := buildRunner()
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := runner.Run(cmd.Context(), url)
	if err != nil {
		return err
	}

	if fillJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Printf("Run %s\n", result.RunID)
	fmt.Printf("  questions: %d  resolved: %d  committed: %d  failed: %d\n",
		result.Questions, result.Resolved, result.Report.Successes, result.Report.Failures)
	for _, fr := range result.Report.Results {
		status := string(fr.Status)
		if fr.Reason != "" {
			status += " (" + string(fr.Reason) + ")"
		}
		fmt.Printf("  [%s] %s = %q  <- %s\n", status, fr.Question.Text, fr.Answer, fr.Source)
	}
	return nil
}
