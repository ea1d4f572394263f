package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukerupert/larder/internal/database"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			version, err := database.Version(db)
			if err != nil {
				return err
			}
			cmd.Printf("database %s at schema version %d\n", a.cfg.DBPath, version)
			return nil
		},
	}
}
