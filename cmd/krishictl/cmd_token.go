package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/auth"
)

var (
	tokenUserID string
	tokenRole   string
	tokenName   string
	tokenEmail  string
)

// tokenCmd signs a bearer token with the configured JWT_SECRET, for smoke
// tests against a running deployment.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for a principal",
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenUserID == "" {
			return errors.New("--user-id is required")
		}
		role, ok := auth.ParseRole(tokenRole)
		if !ok {
			return fmt.Errorf("unknown role %q", tokenRole)
		}
		cfg := auth.ConfigFromEnv()
		if err := cfg.Validate(); err != nil {
			return err
		}
		if cfg.UsesDevSecret() {
			logger.Warn("JWT_SECRET is not set; signing with the development secret")
		}
		tok, exp, err := auth.NewTokenService(cfg).Issue(auth.Principal{
			ID:    tokenUserID,
			Role:  role,
			Name:  tokenName,
			Email: tokenEmail,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", exp.UTC().Format(time.RFC3339))
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUserID, "user-id", "", "Principal ID")
	tokenCmd.Flags().StringVar(&tokenRole, "role", string(auth.RoleFarmer), "farmer or government")
	tokenCmd.Flags().StringVar(&tokenName, "name", "", "Display name")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "Email claim")
}
