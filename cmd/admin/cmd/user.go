package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/templui/authcore/internal/app"
	"github.com/templui/authcore/internal/config"
	"github.com/templui/authcore/internal/logger"
)

func UserCmd() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	userCmd.AddCommand(setActiveCmd("deactivate", "Block sign-in for the user with this email", false))
	userCmd.AddCommand(setActiveCmd("activate", "Re-enable sign-in for the user with this email", true))

	return userCmd
}

func setActiveCmd(use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <email>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger.Init(cfg.IsDevelopment(), cfg.AppName, cfg.SentryDSN)

			// Operator commands never need federated sign-in
			a, err := app.New(cmd.Context(), cfg, app.WithProviders())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			userID, err := a.AuthService.UserIDByEmail(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("find user %s: %w", args[0], err)
			}

			if active {
				err = a.AuthService.Activate(cmd.Context(), userID)
			} else {
				err = a.AuthService.Deactivate(cmd.Context(), userID)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "user %s %sd\n", args[0], use)
			return nil
		},
	}
}
