package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/octonet/internal/graph"
)

var (
	buildFormat string
	buildOutput string
	buildIndent bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the organization graph and write it as JSON or YAML",
	Long: `Build paginates every team of the organization with its members and
repositories, then writes the graph document:

  {"teams": [...], "members": [...], "repos": [...], "links": [...]}

On failure the command exits non-zero and prints the error category
(UNAUTHORIZED, FORBIDDEN, TIMEOUT, REQUEST or CONFIG) with its message.`,
	Example: `  octonet build --org acme > graph.json
  octonet build --format yaml --output graph.yaml`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildFormat, "format", "f", "json", "output format: json or yaml")
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "write to file instead of stdout")
	buildCmd.Flags().BoolVar(&buildIndent, "indent", false, "indent JSON output")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	g, err := buildGraph(ctx)
	if err != nil {
		return err
	}

	w := out(cmd)
	if buildOutput != "" {
		file, err := os.Create(buildOutput)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", buildOutput, err)
		}
		defer file.Close()
		w = file
	}

	if err := graph.Write(w, g.Document(), buildFormat, buildIndent); err != nil {
		return err
	}

	if buildOutput != "" {
		logger.WithField("path", buildOutput).Infof("Wrote %d teams, %d members, %d repos, %d links",
			g.Stats.Teams, g.Stats.Members, g.Stats.Repos, g.Stats.Links)
	}
	return nil
}
