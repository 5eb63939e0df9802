package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/baleriiupanki/tienda-val/internal/repository"
	"github.com/baleriiupanki/tienda-val/internal/server"
)

// NewUserCmd creates the user subcommand.
func NewUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage administrator accounts",
	}
	cmd.AddCommand(newUserCreateCmd())
	return cmd
}

func newUserCreateCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register an administrator without going through the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if username == "" || password == "" {
				return errors.New("--username and --password are required")
			}

			cfg, logger, err := loadRuntime()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			db, err := repository.NewDB(cfg.Database, logger)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			if cfg.Database.MigrateOnStart {
				if err := repository.MigrateDB(db, logger); err != nil {
					return err
				}
			}

			authService, _, err := server.BuildAuthService(db, cfg.Auth, nil, logger)
			if err != nil {
				return err
			}
			user, err := authService.Register(cmd.Context(), username, password)
			if err != nil {
				return fmt.Errorf("failed to create user %q: %w", username, err)
			}

			cmd.Printf("User %q created (id %d)\n", user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "login name")
	cmd.Flags().StringVar(&password, "password", "", "password")
	return cmd
}
