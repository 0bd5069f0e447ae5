// This file contains scan commands: field discovery without filling.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"formpilot/internal/scan"
)

var (
	scanJSON   bool
	scanRemote bool
	scanHTML   string
)

var scanCmd = &cobra.Command{
	Use:   "scan [url]",
	Short: "Scan a page and list the detected form questions",
	Long: `Scans a job-application page and prints the normalized questions the
resolution engine would see: label text, field type, options, required
flag, and locator.

With --html, parses a saved HTML file instead of driving a browser
(custom dropdown options cannot be harvested that way). With --remote,
asks the configured scan service instead of scanning locally.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "print questions as JSON")
	scanCmd.Flags().BoolVar(&scanRemote, "remote", false, "use the configured remote scan service")
	scanCmd.Flags().StringVar(&scanHTML, "html", "", "scan a local HTML file instead of a URL")
}

func runScan(cmd *cobra.Command, args []string) error {
	var questions []scan.Question
	var err error

	switch {
	case scanHTML != "":
		var data []byte
		data, err = os.ReadFile(scanHTML)
		if err != nil {
			return fmt.Errorf("read %s: %w", scanHTML, err)
		}
		questions, err = scan.ScanHTML(string(data))

	case scanRemote:
		if len(args) == 0 {
			return fmt.Errorf("a URL is required with --remote")
		}
		if cfg.Remote.ScanServiceURL == "" {
			return fmt.Errorf("remote.scan_service_url is not configured")
		}
		remote := scan.NewRemoteScanner(cfg.Remote.ScanServiceURL, cfg.Remote.GetTimeout(), nil)
		questions, err = remote.Scan(cmd.Context(), args[0])

	default:
		if len(args) == 0 {
			return fmt.Errorf("a URL or --html file is required")
		}
		runner, cleanup, buildErr := buildRunner()
		if buildErr != nil {
			return buildErr
		}
		defer cleanup()
		questions, err = runner.Scan(cmd.Context(), args[0])
	}
	if err != nil {
		return err
	}

	if scanJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(questions)
	}

	fmt.Printf("%d questions\n", len(questions))
	for _, q := range questions {
		required := ""
		if q.Required {
			required = " (required)"
		}
		fmt.Printf("  [%s]%s %s\n", q.FieldType, required, q.Text)
		if len(q.Options) > 0 {
			fmt.Printf("      options: %s\n", strings.Join(q.Options, " | "))
		}
		fmt.Printf("      locator: %s\n", q.Locator)
	}
	return nil
}
