package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modelsync/modelsync/internal/picker"
	"github.com/modelsync/modelsync/internal/syncer"
)

var (
	genForce bool
	genPath  string

	bulkForce       bool
	bulkPath        string
	bulkOnly        []string
	bulkExcept      []string
	bulkSort        string
	bulkInteractive bool
)

var generateMigrationCmd = &cobra.Command{
	Use:   "generate-migration <model>",
	Short: "Generate a create migration from a model",
	Long: `Inspect the model class (fillable fields, casts, soft deletes and
belongsTo relations) and write a create_<table>_table migration.

An existing migration for the table is only replaced with --force, in
which case its file name is kept.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errMissingModel
		}

		a, err := setup(cmd)
		if err != nil {
			return err
		}
		if err := a.loadModels(); err != nil {
			return err
		}

		_, err = a.syncer.GenerateMigration(args[0], syncer.MigrationOptions{
			Force: genForce,
			Path:  genPath,
		})
		return err
	},
}

var generateMigrationsCmd = &cobra.Command{
	Use:   "generate-migrations",
	Short: "Generate create migrations for every model",
	Long: `Generate a create migration for every model, ordered so that a table
is created before the tables that reference it. Models that already have a
migration are skipped unless --force is given.

--only and --except take bare model names. --interactive opens a picker
to choose the models.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		if err := a.loadModels(); err != nil {
			return err
		}

		only := bulkOnly
		if bulkInteractive {
			only, err = pickModels(a, bulkOnly, bulkExcept)
			if err != nil {
				return err
			}
		}

		res, err := a.syncer.GenerateMigrations(syncer.BulkOptions{
			Force:  bulkForce,
			Path:   bulkPath,
			Only:   only,
			Except: bulkExcept,
			Sort:   bulkSort,
		})
		if err != nil {
			return err
		}

		a.rep.summary(res)
		return nil
	},
}

// pickModels lets the user choose among the filtered models. The --only
// models start selected.
func pickModels(a *app, only, except []string) ([]string, error) {
	entries := a.syncer.Entries(nil, except)
	items := make([]picker.Item, len(entries))
	for i, e := range entries {
		items[i] = picker.Item{Name: e.Name, Table: e.TableName, DependsOn: e.Dependencies}
	}

	selected, err := picker.Run(items, only)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no models selected")
	}
	return selected, nil
}

func init() {
	generateMigrationCmd.Flags().BoolVar(&genForce, "force", false, "overwrite an existing migration")
	generateMigrationCmd.Flags().StringVar(&genPath, "path", "", "migration directory (default: migration_path)")

	generateMigrationsCmd.Flags().BoolVar(&bulkForce, "force", false, "overwrite existing migrations")
	generateMigrationsCmd.Flags().StringVar(&bulkPath, "path", "", "migration directory (default: migration_path)")
	generateMigrationsCmd.Flags().StringSliceVar(&bulkOnly, "only", nil, "only these models (comma separated)")
	generateMigrationsCmd.Flags().StringSliceVar(&bulkExcept, "except", nil, "skip these models (comma separated)")
	generateMigrationsCmd.Flags().StringVar(&bulkSort, "sort", syncer.SortAuto, "migration order: auto (dependencies first) or none")
	generateMigrationsCmd.Flags().BoolVarP(&bulkInteractive, "interactive", "i", false, "choose models interactively")

	rootCmd.AddCommand(generateMigrationCmd)
	rootCmd.AddCommand(generateMigrationsCmd)
}
