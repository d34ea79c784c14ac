package main

import (
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"lotion/backend"
)

func newCmdLogin(s *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in with your Google account",
		Long: heredoc.Doc(`
			Opens the Google sign-in page in your browser and waits for the redirect
			back to the local callback server. The credential is stored in the data directory.
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := s.app.Login()
			if info.Status == backend.SessionSignedOut {
				return fmt.Errorf("login failed")
			}
			printSession(s.out, info)
			return nil
		},
	}
}

func newCmdLogout(s *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.app.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(s.out, "Successfully logged out.")
			return nil
		},
	}
}

func newCmdWhoami(s *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printSession(s.out, s.app.RestoreSession())
			return nil
		},
	}
}
