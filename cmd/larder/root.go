package main

import (
	"database/sql"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dukerupert/larder/internal/config"
	"github.com/dukerupert/larder/internal/database"
	"github.com/dukerupert/larder/internal/llm"
	"github.com/dukerupert/larder/internal/logging"
)

// app holds state shared by every subcommand for one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger

	newModel func(llm.Config) (llm.Model, error)
}

func newApp() *app {
	return &app{v: config.New(), newModel: llm.New}
}

func newRootCmd() *cobra.Command {
	return newApp().rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "larder",
		Short: "Household pantry tracker driven by natural-language commands",
		Long: `larder keeps a shared household pantry and shopping list.

Members describe what happened in plain language ("used the last of the eggs,
bought bread") and a language model turns it into pantry updates.

Configuration:
  Settings come from defaults, an optional config file (--config), a .env file
  and LARDER_* environment variables, for example:
    LARDER_DB_PATH          SQLite database path (default: larder.db)
    LARDER_LLM_API_KEY      API key for the language model
    LARDER_AUTH_JWKS_URL    JWKS endpoint used to verify bearer tokens`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.v, a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logging.Setup(cfg.LogLevel, cfg.LogFormat)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.String("db", "", "SQLite database path")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	a.v.BindPFlag("db_path", flags.Lookup("db"))
	a.v.BindPFlag("log_level", flags.Lookup("log-level"))

	root.AddCommand(
		newServeCmd(a),
		newMigrateCmd(a),
		newImportCmd(a),
		newRunCmd(a),
	)
	return root
}

func (a *app) openDB() (*sql.DB, error) {
	return database.Open(a.cfg.DBPath)
}

func (a *app) llmConfig() llm.Config {
	return llm.Config{
		Provider:          a.cfg.LLM.Provider,
		APIKey:            a.cfg.LLM.APIKey,
		BaseURL:           a.cfg.LLM.BaseURL,
		Model:             a.cfg.LLM.Model,
		Timeout:           a.cfg.LLM.Timeout,
		RequestsPerSecond: a.cfg.LLM.RequestsPerSecond,
	}
}
