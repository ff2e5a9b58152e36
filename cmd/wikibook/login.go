package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/wikibook/internal/api"
	"github.com/jackzampolin/wikibook/internal/server/endpoints"
	"github.com/jackzampolin/wikibook/internal/types"
)

var (
	loginEmail    string
	loginPassword string
	loginGoogle   string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the PDF service and save the session",
	Long: `Sign in with an email and password, or with a Google ID token.

The session is saved in the wikibook home and used by "create" and by
the server on its next start.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		logger, err := newLogger(os.Stderr)
		if err != nil {
			return err
		}
		svcs, err := standalone(ctx, logger)
		if err != nil {
			return err
		}

		var user *types.User
		switch {
		case loginGoogle != "":
			user, err = svcs.Session.Google(ctx, loginGoogle)
		case loginEmail != "":
			user, err = svcs.Session.Login(ctx, loginEmail, endpoints.PasswordFromEnv(loginPassword))
		default:
			return errors.New("either --email or --google is required")
		}
		if err != nil {
			return err
		}
		return api.Output(endpoints.SessionResponse{SignedIn: true, User: user})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and remove the saved session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		logger, err := newLogger(os.Stderr)
		if err != nil {
			return err
		}
		svcs, err := standalone(ctx, logger)
		if err != nil {
			return err
		}
		svcs.Session.Logout(ctx)
		return api.Output(endpoints.SessionResponse{SignedIn: false})
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Password (default: $WIKIBOOK_PASSWORD)")
	loginCmd.Flags().StringVar(&loginGoogle, "google", "", "Google ID token")
	loginCmd.MarkFlagsMutuallyExclusive("email", "google")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}
