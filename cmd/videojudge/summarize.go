package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bdougie/videojudge/internal/storage"
)

func summarizeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "summarize <analysis_dir> [output_txt]",
		Short: "Summarize per-frame results into a final verdict",
		Long:  `Reads every per-frame JSON result in analysis_dir and writes the final report to output_txt (default <analysis_dir>/final.txt).`,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			analysisDir := args[0]
			outputPath := filepath.Join(analysisDir, "final.txt")
			if len(args) == 2 {
				outputPath = args[1]
			}

			a, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer a.writeMetrics()

			records, err := storage.LoadResults(analysisDir)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return fmt.Errorf("no analysis JSON files found in %s", analysisDir)
			}

			client, err := a.client(ctx)
			if err != nil {
				return err
			}
			summ, err := a.summarizer(client)
			if err != nil {
				return err
			}

			verdict, err := summ.Summarize(ctx, records)
			if err != nil {
				return fmt.Errorf("summarization failed: %w", err)
			}
			if err := storage.WriteReport(outputPath, *verdict); err != nil {
				return err
			}

			a.logger.Info("summary written", "path", outputPath, "label", verdict.Label, "confidence", verdict.Confidence)
			fmt.Printf("Done. Summary at %s\n", outputPath)
			return nil
		},
	}
}
