package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/octonet/internal/config"
	"github.com/rohankatakam/octonet/internal/errors"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the GitHub token from the OS keychain",
	RunE:  runLogout,
}

func runLogout(cmd *cobra.Command, args []string) error {
	w := out(cmd)
	km := config.NewKeyringManager(logger)

	token, err := km.GetGitHubToken()
	if err != nil {
		return errors.Wrap(err, errors.KindConfig, "failed to read keychain")
	}
	if token == "" {
		fmt.Fprintln(w, "No token stored")
		return nil
	}

	if err := km.DeleteGitHubToken(); err != nil {
		return errors.Wrap(err, errors.KindConfig, "failed to delete token")
	}

	fmt.Fprintf(w, "✓ Removed token %s\n", config.MaskToken(token))
	return nil
}
