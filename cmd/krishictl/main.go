package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-krishi-connect/pkg/database"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/pkg/utilities"
)

var (
	timeout time.Duration
	logger  *zap.SugaredLogger
)

// rootCmd is the operator entry point for schema, catalog and token chores.
var rootCmd = &cobra.Command{
	Use:           "krishictl",
	Short:         "Operate a krishi-connect deployment",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		if logger != nil {
			return nil
		}
		lg, err := utilities.Init(utilities.ConfigFromEnv())
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger = lg.Sugar()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedSchemesCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(deactivateUserCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// openDB connects with the DATABASE_* environment.
func openDB() (*sqlx.DB, error) {
	raw, err := database.Connect(database.ConfigFromEnv())
	if err != nil {
		return nil, err
	}
	return sqlx.NewDb(raw, "postgres"), nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, timeout)
}
