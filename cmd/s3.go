package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/tanq16/fetcher/internal/output"
	"github.com/tanq16/fetcher/internal/utils"
)

func newS3Cmd() *cobra.Command {
	var outputPath string
	var profile string

	cmd := &cobra.Command{
		Use:   "s3 [BUCKET/KEY or s3://BUCKET/KEY]",
		Short: "Download an object from AWS S3",
		Long: `Download an object from AWS S3 through a presigned URL, using the
same tiered engine as HTTP downloads.

Examples:
  fetcher s3 mybucket/path/to/file.zip
  fetcher s3 s3://mybucket/file.zip --profile myprofile`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			link := args[0]
			if !strings.HasPrefix(link, "s3://") {
				link = "s3://" + link
			}
			job := newJob("s3", link, outputPath)
			outcomes := runJobs(cmd.Context(), []utils.FetchJob{job}, profile)
			printOutcomes(outcomes)
			output.PrintOutcome(link, outcomes[0])
			exitOnFailure(outcomes)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output path")
	cmd.Flags().StringVar(&profile, "profile", "default", "AWS profile to use")
	return cmd
}
