package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tanq16/fetcher/internal/output"
	"github.com/tanq16/fetcher/internal/utils"
	"gopkg.in/yaml.v3"
)

// BatchFile maps a job type section to its entries.
type BatchFile map[string][]utils.DownloadEntry

func newBatchCmd() *cobra.Command {
	var profile string

	cmd := &cobra.Command{
		Use:   "batch [YAML_FILE] [OPTIONS]",
		Short: "Process multiple downloads from a YAML file",
		Long: `Process multiple downloads from a YAML file of the form:

  http:
    - link: https://example.com/a.iso
      op: images/a.iso
  s3:
    - link: s3://bucket/key.tar`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			batchFile, err := readBatchFile(args[0])
			if err != nil {
				output.PrintError(err.Error())
				os.Exit(1)
			}
			jobs := buildJobsFromBatch(batchFile)
			if len(jobs) == 0 {
				output.PrintError("No valid jobs found in the batch file")
				os.Exit(1)
			}
			output.PrintPending(fmt.Sprintf("Starting %d downloads with %d workers", len(jobs), appConfig.Workers))
			outcomes := runJobs(cmd.Context(), jobs, profile)
			printOutcomes(outcomes)
			output.PrintSummary(outcomes)
			exitOnFailure(outcomes)
		},
	}

	cmd.Flags().StringVar(&profile, "profile", "default", "AWS profile for s3 entries")
	return cmd
}

func readBatchFile(path string) (BatchFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading YAML file: %v", err)
	}
	var batchFile BatchFile
	if err := yaml.Unmarshal(data, &batchFile); err != nil {
		return nil, fmt.Errorf("error parsing YAML file: %v", err)
	}
	return batchFile, nil
}

func buildJobsFromBatch(batchFile BatchFile) []utils.FetchJob {
	sections := make([]string, 0, len(batchFile))
	for jobType := range batchFile {
		sections = append(sections, jobType)
	}
	sort.Strings(sections)

	var jobs []utils.FetchJob
	for _, jobType := range sections {
		normalizedType := normalizeJobType(jobType)
		if normalizedType == "" {
			output.PrintWarning(fmt.Sprintf("Unknown job type '%s', skipping...", jobType))
			continue
		}
		for _, entry := range batchFile[jobType] {
			if entry.URL == "" {
				output.PrintWarning(fmt.Sprintf("Empty link found in %s section, skipping...", jobType))
				continue
			}
			jobs = append(jobs, newJob(normalizedType, entry.URL, entry.OutputPath))
		}
	}
	return jobs
}

func normalizeJobType(jobType string) string {
	switch strings.ToLower(jobType) {
	case "http", "https":
		return "http"
	case "s3":
		return "s3"
	}
	return ""
}
