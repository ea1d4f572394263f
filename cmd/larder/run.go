package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dukerupert/larder/internal/action"
	"github.com/dukerupert/larder/internal/executor"
	"github.com/dukerupert/larder/internal/interpreter"
	"github.com/dukerupert/larder/internal/store"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		householdID int64
		dryRun      bool
	)
	cmd := &cobra.Command{
		Use:   "run [command]",
		Short: "Interpret a pantry command and apply it",
		Long: `Interpret a natural-language command against a household's pantry and
apply the resulting actions, for example:

  larder run --household 1 "bought eggs and milk, out of rice"

With --dry-run the actions are printed but not applied.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := a.newModel(a.llmConfig())
			if err != nil {
				return fmt.Errorf("configure language model: %w", err)
			}

			db, err := a.openDB()
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			ctx := cmd.Context()
			households := store.NewHouseholdStore(db)
			household, err := households.GetByID(ctx, householdID)
			if err != nil {
				return err
			}
			if household == nil {
				return fmt.Errorf("household %d not found", householdID)
			}

			pantry := store.NewPantryStore(db)
			snapshot, err := pantry.List(ctx, householdID, store.PantryFilter{})
			if err != nil {
				return err
			}

			actions, err := interpreter.New(model, a.logger, nil).Interpret(ctx, strings.Join(args, " "), snapshot)
			if err != nil {
				return fmt.Errorf("%s: %w", interpreter.UserMessage(err), err)
			}

			out, err := json.MarshalIndent(action.ToWireList(actions), "", "  ")
			if err != nil {
				return err
			}
			cmd.Println(string(out))
			if dryRun {
				return nil
			}

			res := executor.New(pantry, executor.WithLogger(a.logger)).Execute(ctx, householdID, 0, actions)
			cmd.Printf("%d executed, %d failed\n", res.Executed, res.Failed)
			return nil
		},
	}
	cmd.Flags().Int64Var(&householdID, "household", 0, "household id to act on")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the actions without applying them")
	cmd.MarkFlagRequired("household")
	return cmd
}
