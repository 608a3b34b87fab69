package main

import (
	"fmt"

	"github.com/ludo-technologies/fixeval/app"
	"github.com/spf13/cobra"
)

func prepareCmd() *cobra.Command {
	var req app.PrepareRequest
	var configPath string

	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Write the instructions for the external judge",
		Long: `Write the judge instruction bundle for a pull request: a Markdown file listing
the active metrics, their ranges and the expected artifact shape, plus the pull
request diff when one is given. Prints the path the judge must write to.

Examples:
  fixeval prepare --repo owner/project --pr 42 --diff pr.diff
  fixeval evaluate "$(fixeval prepare --repo owner/project --pr 42 -q)"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setupRuntime(cmd, configPath, req.WorkDir)
			if err != nil {
				return err
			}
			defer env.close()

			if !cmd.Flags().Changed("output") {
				req.OutputDir = env.cfg.Output.Directory
			}

			bundle, err := app.NewPrepareUseCase(env.schema, env.logger).Execute(cmd.Context(), req)
			if err != nil {
				return err
			}

			quiet, _ := cmd.Flags().GetBool("quiet")
			out := cmd.OutOrStdout()
			if quiet {
				fmt.Fprintln(out, bundle.ArtifactPath)
				return nil
			}
			fmt.Fprintf(out, "Instructions: %s\n", bundle.InstructionsPath)
			if bundle.DiffPath != "" {
				fmt.Fprintf(out, "Diff:         %s\n", bundle.DiffPath)
			}
			fmt.Fprintf(out, "Artifact:     %s\n", bundle.ArtifactPath)
			fmt.Fprintf(out, "\nRun 'fixeval evaluate %s' to wait for the judge.\n", bundle.ArtifactPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Repository, "repo", "", "Repository (owner/name)")
	cmd.Flags().StringVar(&req.PRNumber, "pr", "", "Pull request number")
	cmd.Flags().StringVar(&req.PRURL, "pr-url", "", "Pull request URL (default derived for GitHub repositories)")
	cmd.Flags().StringVar(&req.DiffPath, "diff", "", "Unified diff of the pull request")
	cmd.Flags().StringVar(&req.WorkDir, "work-dir", ".", "Directory receiving the instructions folder")
	cmd.Flags().StringVarP(&req.OutputDir, "output", "o", "", "Directory the judge writes the artifact to (default from config)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	cmd.Flags().BoolP("quiet", "q", false, "Only print the expected artifact path")
	_ = cmd.MarkFlagRequired("repo")
	_ = cmd.MarkFlagRequired("pr")
	return cmd
}
