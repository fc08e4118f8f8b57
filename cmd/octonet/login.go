package main

import (
	"fmt"
	"os"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/rohankatakam/octonet/internal/config"
	"github.com/rohankatakam/octonet/internal/errors"
)

// tokenURL pre-fills a classic token with the scope octonet needs
const tokenURL = "https://github.com/settings/tokens/new?scopes=read:org&description=octonet"

var loginNoBrowser bool

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a GitHub token in the OS keychain",
	Long: `Login opens GitHub's token page in your browser, reads the token you paste
(without echoing it) and stores it in the OS keychain.

The token needs the read:org scope.`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().BoolVar(&loginNoBrowser, "no-browser", false, "print the token URL instead of opening it")
}

func runLogin(cmd *cobra.Command, args []string) error {
	w := out(cmd)
	km := config.NewKeyringManager(logger)
	if !km.IsAvailable() {
		return errors.ConfigErrorf("OS keychain is not available: set GITHUB_TOKEN instead")
	}

	if existing, err := km.GetGitHubToken(); err == nil && existing != "" {
		fmt.Fprintf(w, "A token is already stored (%s); it will be replaced.\n", config.MaskToken(existing))
	}

	fmt.Fprintf(w, "Create a token with the read:org scope at:\n  %s\n\n", tokenURL)
	if !loginNoBrowser {
		if err := browser.OpenURL(tokenURL); err != nil {
			logger.WithError(err).Debug("Failed to open browser")
		}
	}

	fmt.Fprint(w, "Paste token: ")
	token, err := config.ReadToken(os.Stdin, w)
	if err != nil {
		return errors.Wrap(err, errors.KindConfig, "failed to read token")
	}
	if token == "" {
		return errors.ConfigErrorf("no token entered")
	}

	if err := km.SetGitHubToken(token); err != nil {
		return errors.Wrap(err, errors.KindConfig, "failed to store token")
	}

	fmt.Fprintf(w, "✓ Token %s saved to the OS keychain\n", config.MaskToken(token))
	fmt.Fprintln(w, "Run 'octonet verify' to check access to your organization")
	return nil
}
