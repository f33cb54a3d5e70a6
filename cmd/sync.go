package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/modelsync/modelsync/internal/syncer"
)

var (
	syncFromDB    bool
	syncAllFromDB bool
)

var syncCmd = &cobra.Command{
	Use:   "sync <model>",
	Short: "Generate a model from its create migration",
	Long: `Read the create_<table>_table migration for the model and rewrite the
model class: fillable fields, casts, hidden fields and belongsTo relations.
Imports, traits and the class declaration of an existing model are kept.

With --from-db the columns come from the configured database instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		if err := a.loadModels(); err != nil {
			return err
		}

		var name string
		if len(args) > 0 {
			name = args[0]
		}

		if !syncFromDB {
			_, err := a.syncer.SyncModel(name)
			return err
		}

		if name == "" {
			return errMissingModel
		}
		ctx := context.Background()
		d, err := a.connect(ctx)
		if err != nil {
			return err
		}
		defer d.Close()

		_, err = a.syncer.SyncModelFromDatabase(ctx, d, name)
		return err
	},
}

var syncAllCmd = &cobra.Command{
	Use:   "sync-all",
	Short: "Generate a model for every create migration",
	Long: `Walk the migration directory and rewrite the model of every
create_<table>_table migration. Tables without columns are skipped.

With --from-db every table of the configured database is used instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		if err := a.loadModels(); err != nil {
			return err
		}

		var res syncer.Result
		if syncAllFromDB {
			ctx := context.Background()
			d, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer d.Close()

			res, err = a.syncer.SyncAllFromDatabase(ctx, d)
			if err != nil {
				return err
			}
		} else {
			res, err = a.syncer.SyncAllModels()
			if err != nil {
				return err
			}
		}

		a.rep.summary(res)
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncFromDB, "from-db", false, "read columns from the configured database")
	syncAllCmd.Flags().BoolVar(&syncAllFromDB, "from-db", false, "read tables from the configured database")
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(syncAllCmd)
}
