// This file contains profile commands: show, import, export, validate.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"formpilot/internal/profile"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage the canonical profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored profile",
	RunE:  profileShow,
}

var profileImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import a profile from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE:  profileImport,
}

var profileExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export the profile to a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE:  profileExport,
}

var profileValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the profile for missing required fields",
	RunE:  profileValidate,
}

func init() {
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileImportCmd)
	profileCmd.AddCommand(profileExportCmd)
	profileCmd.AddCommand(profileValidateCmd)
}

func openProfileStore() (*profile.Store, error) {
	return profile.NewStore(resolvePath(cfg.Store.ProfilePath))
}

func loadProfileOrFail(store *profile.Store) (*profile.CanonicalProfile, error) {
	p, err := store.Load()
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("no profile found at %s (use 'profile import')", resolvePath(cfg.Store.ProfilePath))
	}
	return p, nil
}

func profileShow(cmd *cobra.Command, args []string) error {
	store, err := openProfileStore()
	if err != nil {
		return err
	}
	p, err := loadProfileOrFail(store)
	if err != nil {
		return err
	}

	// Documents are elided: base64 blobs are noise on a terminal.
	display := *p
	if display.Documents.Resume.IsPresent() {
		display.Documents.Resume.Base64 = fmt.Sprintf("<%d bytes>", len(p.Documents.Resume.Base64))
	}
	if display.Documents.CoverLetter.IsPresent() {
		display.Documents.CoverLetter.Base64 = fmt.Sprintf("<%d bytes>", len(p.Documents.CoverLetter.Base64))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(display)
}

func profileImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	var p profile.CanonicalProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}

	store, err := openProfileStore()
	if err != nil {
		return err
	}
	if err := store.Save(&p); err != nil {
		return err
	}

	fmt.Printf("Profile imported to %s\n", resolvePath(cfg.Store.ProfilePath))
	if missing := p.Validate(); len(missing) > 0 {
		fmt.Printf("Warning: profile incomplete, missing %s\n", strings.Join(missing, ", "))
	}
	return nil
}

func profileExport(cmd *cobra.Command, args []string) error {
	store, err := openProfileStore()
	if err != nil {
		return err
	}
	p, err := loadProfileOrFail(store)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[0], data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", args[0], err)
	}
	fmt.Printf("Profile exported to %s\n", args[0])
	return nil
}

func profileValidate(cmd *cobra.Command, args []string) error {
	store, err := openProfileStore()
	if err != nil {
		return err
	}
	p, err := loadProfileOrFail(store)
	if err != nil {
		return err
	}

	if missing := p.Validate(); len(missing) > 0 {
		fmt.Println("Profile incomplete. Missing:")
		for _, m := range missing {
			fmt.Printf("  - %s\n", m)
		}
		return fmt.Errorf("%d required fields missing", len(missing))
	}
	fmt.Println("Profile complete.")
	return nil
}
