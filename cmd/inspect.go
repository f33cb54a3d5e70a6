package cmd

import (
	"context"
	"fmt"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/modelsync/modelsync/internal/migration"
	"github.com/modelsync/modelsync/internal/model"
	"github.com/modelsync/modelsync/internal/naming"
	"github.com/modelsync/modelsync/internal/schema"
)

var (
	inspectFrom string
	inspectYAML bool
	inspectOut  string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <model|table>",
	Short: "Print the schema extracted for a model or table",
	Long: `Print the columns and foreign keys modelsync extracts, without writing
anything. A capitalized argument is a model name, anything else a table.

--from selects the source: migration (default), model or db.
--out writes the schema as YAML to a file instead of printing it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}

		sc, err := inspectSchema(cmd.Context(), a, args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if inspectOut != "" {
			if err := sc.WriteYAML(inspectOut); err != nil {
				return err
			}
			fmt.Fprintln(out, successStyle.Render("Schema written to "+inspectOut))
			return nil
		}
		if inspectYAML {
			data, err := sc.ToYAML()
			if err != nil {
				return fmt.Errorf("marshaling schema: %w", err)
			}
			_, err = out.Write(data)
			return err
		}

		fmt.Fprintln(out, sc.Summary())
		for _, c := range sc.Columns {
			line := fmt.Sprintf("  %-24s %s", c.Name, c.Type)
			if c.Foreign != nil {
				line += fmt.Sprintf(" -> %s.%s", c.Foreign.On, c.Foreign.OwnerKey)
			}
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

func inspectSchema(ctx context.Context, a *app, arg string) (*schema.Schema, error) {
	table := arg
	if isModelName(arg) {
		table = naming.TableForModel(naming.Basename(arg))
	}

	switch inspectFrom {
	case "", "migration":
		ex := &migration.Extractor{
			Dir:      a.cfg.MigrationPath,
			Excluded: a.cfg.IsExcluded,
			Logger:   a.logger,
		}
		return ex.Extract(table)

	case "model":
		if err := a.loadModels(); err != nil {
			return nil, err
		}
		name := arg
		if !isModelName(arg) {
			name = naming.ModelForTable(arg)
		}
		m, err := a.syncer.Registry.Lookup(name)
		if err != nil {
			return nil, err
		}
		return model.Inspect(m), nil

	case "db":
		d, err := a.connect(ctx)
		if err != nil {
			return nil, err
		}
		defer d.Close()

		schemas, err := d.Discover(ctx)
		if err != nil {
			return nil, fmt.Errorf("discovering database schema: %w", err)
		}
		for _, sc := range schemas {
			if sc.Table == table {
				return sc, nil
			}
		}
		return nil, fmt.Errorf("table %s not found in database", table)

	default:
		return nil, fmt.Errorf("invalid source %q (expected migration, model or db)", inspectFrom)
	}
}

func isModelName(s string) bool {
	base := naming.Basename(s)
	return base != "" && unicode.IsUpper([]rune(base)[0])
}

func init() {
	inspectCmd.Flags().StringVar(&inspectFrom, "from", "migration", "schema source: migration, model or db")
	inspectCmd.Flags().BoolVar(&inspectYAML, "yaml", false, "print the schema as YAML")
	inspectCmd.Flags().StringVar(&inspectOut, "out", "", "write the schema as YAML to this file")
	rootCmd.AddCommand(inspectCmd)
}
