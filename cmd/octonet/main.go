package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rohankatakam/octonet/internal/config"
	"github.com/rohankatakam/octonet/internal/errors"
	"github.com/rohankatakam/octonet/internal/logging"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile   string
	verbose   bool
	orgFlag   string
	tokenFlag string
	logger    *logrus.Logger
	cfg       *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if verbose {
			fmt.Fprintln(os.Stderr, detailedError(err))
		} else {
			fmt.Fprintln(os.Stderr, formatError(err))
		}
		os.Exit(1)
	}
}

// formatError renders a failure as "CATEGORY: message"
func formatError(err error) string {
	return fmt.Sprintf("%s: %v", errors.KindOf(err), err)
}

// detailedError follows formatError with the cause and context lines of an
// application error
func detailedError(err error) string {
	var appErr *errors.Error
	if !errors.As(err, &appErr) {
		return formatError(err)
	}
	_, details, _ := strings.Cut(appErr.DetailedString(), "\n")
	return strings.TrimRight(formatError(err)+"\n"+details, "\n")
}

var rootCmd = &cobra.Command{
	Use:   "octonet",
	Short: "octonet - GitHub organization membership graph",
	Long: `octonet builds a graph of an organization's teams, members and repositories
from the GitHub GraphQL API and emits it as a JSON document for force-directed
network viewers.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return errors.Wrap(err, errors.KindConfig, "failed to load config")
		}
		if orgFlag != "" {
			cfg.GitHub.Org = orgFlag
		}
		if verbose {
			cfg.Log.Level = "debug"
		}

		logger, err = logging.New(logging.Config{
			Level:      cfg.Log.Level,
			OutputFile: cfg.Log.File,
			JSONFormat: cfg.Log.JSON,
		})
		if err != nil {
			return errors.Wrap(err, errors.KindConfig, "failed to create logger")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .octonet/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&orgFlag, "org", "", "GitHub organization (overrides GITHUB_ORG)")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "GitHub token (overrides GITHUB_TOKEN and the keychain)")

	rootCmd.SetVersionTemplate(`octonet {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

// out is where commands print human-readable results
func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
