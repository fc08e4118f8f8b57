package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/octonet/internal/github"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that the token can read the organization",
	Long: `Verify looks up the account the token belongs to and its membership in the
organization, then runs a one-team GraphQL probe so unauthorized and forbidden
credentials are reported before a full build.`,
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	client, err := newClient()
	if err != nil {
		return err
	}
	token, err := resolveToken()
	if err != nil {
		return err
	}

	viewers, err := github.NewViewerClient(cfg.GitHub.RESTURL, cfg.GitHub.Org, nil)
	if err != nil {
		return err
	}
	viewer, err := viewers.Lookup(ctx, token)
	if err != nil {
		return err
	}

	rl, err := client.Verify(ctx, token)
	if err != nil {
		return err
	}

	w := out(cmd)
	fmt.Fprintf(w, "✓ Authenticated as %s", viewer.Login)
	if viewer.Name != "" {
		fmt.Fprintf(w, " (%s)", viewer.Name)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "✓ %s of %s (%s)\n", viewer.Role, cfg.GitHub.Org, viewer.State)
	if rl != nil {
		fmt.Fprintf(w, "  Rate limit: %d/%d remaining, resets %s\n",
			rl.Remaining, rl.Limit, rl.ResetAt.Local().Format("15:04:05"))
	}
	return nil
}
