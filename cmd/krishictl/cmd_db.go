package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/auth"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/migrate"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/user"
)

// migrateCmd creates every table and seeds the scheme catalog.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create tables and seed government schemes",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, cancel := commandContext(cmd)
		defer cancel()
		if err := migrate.Tables(ctx, db, logger); err != nil {
			return err
		}
		n, err := migrate.Schemes(ctx, db, logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema ready, %d schemes seeded\n", n)
		return nil
	},
}

var seedSchemesCmd = &cobra.Command{
	Use:   "seed-schemes",
	Short: "Upsert the built-in government scheme catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, cancel := commandContext(cmd)
		defer cancel()
		n, err := migrate.Schemes(ctx, db, logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d schemes seeded\n", n)
		return nil
	},
}

var deactivateUserID string

// deactivateUserCmd disables an account. Issued tokens stay valid until expiry.
var deactivateUserCmd = &cobra.Command{
	Use:   "deactivate-user",
	Short: "Deactivate a user account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if deactivateUserID == "" {
			return errors.New("--user-id is required")
		}
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, cancel := commandContext(cmd)
		defer cancel()
		svc := user.NewDBUserService(db, auth.NewTokenService(auth.ConfigFromEnv()))
		if err := svc.Deactivate(ctx, deactivateUserID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "user %s deactivated\n", deactivateUserID)
		return nil
	},
}

func init() {
	deactivateUserCmd.Flags().StringVar(&deactivateUserID, "user-id", "", "ID of the user to deactivate")
}
