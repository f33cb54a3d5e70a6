package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/modelsync/modelsync/internal/config"
	"github.com/modelsync/modelsync/internal/discovery"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and validate the modelsync configuration.`,
}

var configTypesWrite string

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the loaded config (secrets masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnv(envFile); err != nil {
			return err
		}
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		shown := *cfg
		shown.Database.DSN = maskSecret(cfg.Database.DSN)

		data, err := yaml.Marshal(&shown)
		if err != nil {
			return fmt.Errorf("marshaling config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnv(envFile); err != nil {
			return err
		}
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("config invalid: %w", err)
		}

		problems := validateConfig(cfg)
		out := cmd.OutOrStdout()
		if len(problems) > 0 {
			fmt.Fprintln(out, "Validation errors:")
			for _, p := range problems {
				fmt.Fprintf(out, "  - %s\n", p)
			}
			return fmt.Errorf("%d validation error(s)", len(problems))
		}

		fmt.Fprintln(out, "Configuration is valid.")
		return nil
	},
}

var configTypesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the database type to column verb mapping",
	Long: `List the type map used by --from-db for the configured driver, with the
entries from database.type_map marked as overrides.

--write saves the full map to a file that database.type_map can point at.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnv(envFile); err != nil {
			return err
		}
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		tm, err := typeMap(cfg)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if configTypesWrite != "" {
			if err := tm.WriteYAML(configTypesWrite); err != nil {
				return err
			}
			fmt.Fprintln(out, successStyle.Render("Type map written to "+configTypesWrite))
			return nil
		}

		for _, t := range tm.SortedTypes() {
			line := fmt.Sprintf("  %-28s %s", t, tm.Resolve(t))
			if tm.IsOverridden(t) {
				line += dimStyle.Render(" (override)")
			}
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

// validateConfig checks the things Load cannot: directories on disk and
// the database section.
func validateConfig(cfg *config.Config) []string {
	var problems []string

	for _, dir := range []struct{ key, path string }{
		{"model_path", cfg.ModelPath},
		{"migration_path", cfg.MigrationPath},
	} {
		info, err := os.Stat(dir.path)
		if err != nil || !info.IsDir() {
			problems = append(problems, fmt.Sprintf("%s: directory %s not found", dir.key, dir.path))
		}
	}

	if cfg.ManifestPath != "" {
		if _, err := os.Stat(cfg.ManifestPath); err != nil {
			problems = append(problems, fmt.Sprintf("manifest_path: %s not found", cfg.ManifestPath))
		}
	}

	if cfg.Database.Driver != "" {
		if _, err := discovery.New(&cfg.Database, nil); err != nil {
			problems = append(problems, "database.driver: "+err.Error())
		}
		if cfg.Database.DSN == "" {
			problems = append(problems, "database.dsn is required when database.driver is set")
		}
	}
	return problems
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configTypesCmd.Flags().StringVar(&configTypesWrite, "write", "", "write the type map to this file")
	configCmd.AddCommand(configTypesCmd)
	rootCmd.AddCommand(configCmd)
}
