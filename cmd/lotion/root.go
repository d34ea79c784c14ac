package main

import (
	"context"
	"fmt"
	"io"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"lotion/backend"
)

// cliState はサブコマンド間で共有する状態
type cliState struct {
	v         *viper.Viper
	app       *backend.App
	assumeYes bool
	out       io.Writer
}

func newRootCmd() *cobra.Command {
	s := &cliState{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "lotion",
		Short: "Lotion notes from the terminal",
		Long: heredoc.Doc(`
			Sign in with Google and manage your Lotion notes without the desktop app.

			Configuration is read from a .env file and LOTION_* environment variables.
		`),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			s.out = cmd.OutOrStdout()
			return s.open()
		},
	}

	cmd.PersistentFlags().String("data-dir", "", "directory for credentials, settings and logs (env LOTION_DATA_DIR)")
	cmd.PersistentFlags().String("env-file", ".env", "env file to load before reading LOTION_* variables")
	s.v.SetEnvPrefix("lotion")
	s.v.AutomaticEnv()
	s.v.BindPFlag("data_dir", cmd.PersistentFlags().Lookup("data-dir"))
	s.v.BindPFlag("env_file", cmd.PersistentFlags().Lookup("env-file"))

	cmd.AddCommand(
		newCmdLogin(s),
		newCmdLogout(s),
		newCmdWhoami(s),
		newCmdList(s),
		newCmdShow(s),
		newCmdNew(s),
		newCmdEdit(s),
		newCmdRemove(s),
	)
	return cmd
}

// open は設定を読み込んでAppを組み立てる
func (s *cliState) open() error {
	cfg, err := backend.LoadConfig(s.v.GetString("env_file"))
	if err != nil {
		return err
	}
	if dir := s.v.GetString("data_dir"); dir != "" {
		cfg.DataDir = dir
	}

	app, err := backend.NewAppWithOptions(context.Background(), backend.AppOptions{
		Config:  cfg,
		Dialogs: &terminalDialogs{assumeYes: &s.assumeYes, out: s.out},
	})
	if err != nil {
		return err
	}
	s.app = app
	return nil
}

// requireSession は保存済みのセッションを復元し、サインイン済みであることを確認する
func (s *cliState) requireSession() (backend.SessionInfo, error) {
	info := s.app.RestoreSession()
	switch info.Status {
	case backend.SessionSignedIn:
		return info, nil
	case backend.SessionDegraded:
		return info, fmt.Errorf("signed in but the profile could not be loaded: %s", info.ProfileError)
	default:
		return info, fmt.Errorf("not signed in; run `lotion login` first")
	}
}
