package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dukerupert/larder/internal/onboarding"
	"github.com/dukerupert/larder/internal/store"
)

func newImportCmd(a *app) *cobra.Command {
	var (
		householdID int64
		file        string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Seed a household pantry from a YAML or JSON document",
		Long: `Import pantry items from a document such as:

  items:
    - name: milk
    - name: olive oil
      status: running_low
    - name: birthday candles
      type: planned
      status: planned

Items the household already tracks are skipped. Use --file - to read stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("open import file: %w", err)
				}
				defer f.Close()
				r = f
			}

			entries, err := onboarding.Parse(r)
			if err != nil {
				return err
			}

			db, err := a.openDB()
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			ctx := cmd.Context()
			household, err := store.NewHouseholdStore(db).GetByID(ctx, householdID)
			if err != nil {
				return err
			}
			if household == nil {
				return fmt.Errorf("household %d not found", householdID)
			}

			created, skipped, err := store.NewPantryStore(db).BulkCreate(ctx, householdID, onboarding.Items(householdID, nil, entries))
			if err != nil {
				return err
			}
			a.logger.Info("pantry imported", "household_id", householdID, "created", created, "skipped", skipped)
			cmd.Printf("imported into %q: %d created, %d skipped\n", household.Name, created, skipped)
			return nil
		},
	}
	cmd.Flags().Int64Var(&householdID, "household", 0, "household id to import into")
	cmd.Flags().StringVarP(&file, "file", "f", "", "import document path, or - for stdin")
	cmd.MarkFlagRequired("household")
	cmd.MarkFlagRequired("file")
	return cmd
}
