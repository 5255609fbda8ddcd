package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/couture/internal/config"
	"github.com/example/couture/internal/database"
	"github.com/example/couture/internal/logging"
	"github.com/example/couture/internal/storage"
)

var databaseURL string

// rootCmd is the administration CLI for the storefront backend.
var rootCmd = &cobra.Command{
	Use:   "couturectl",
	Short: "Administer the Couture storefront backend",
	Long: `couturectl runs one-off administration tasks against the storefront
database: schema migration, staff accounts and catalog entries.

Configuration is read from the environment (and .env) like the server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// env is what a command needs to reach the store.
type env struct {
	cfg   *config.Config
	log   *zap.Logger
	store storage.Store
}

// connect opens the configured database. Tests replace it.
var connect = func(cfg *config.Config, log *zap.Logger) (*gorm.DB, storage.Store, error) {
	db, err := database.Connect(cfg.DatabaseURL, cfg.Debug, log)
	if err != nil {
		return nil, nil, err
	}
	return db, storage.NewDatabaseStore(db), nil
}

func setup() (*env, *gorm.DB, error) {
	cfg := config.Load()
	if databaseURL != "" {
		cfg.DatabaseURL = databaseURL
	}
	log, err := logging.New(cfg.LogLevel, cfg.Debug)
	if err != nil {
		return nil, nil, err
	}
	db, store, err := connect(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return &env{cfg: cfg, log: log, store: store}, db, nil
}

// Execute runs the root command.
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Postgres DSN (defaults to DATABASE_URL)")
}
