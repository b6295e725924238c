package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tanq16/fetcher/internal/output"
	"github.com/tanq16/fetcher/internal/utils"
)

func newGetCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:     "get [URL] [--output OUTPUT_PATH]",
		Aliases: []string{"http"},
		Short:   "Download one file over HTTP/HTTPS (or s3://)",
		Args:    cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			job := newJob(detectJobType(args[0]), args[0], outputPath)
			outcomes := runJobs(cmd.Context(), []utils.FetchJob{job}, "")
			printOutcomes(outcomes)
			output.PrintOutcome(args[0], outcomes[0])
			exitOnFailure(outcomes)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (inferred from the URL if not provided)")
	return cmd
}
