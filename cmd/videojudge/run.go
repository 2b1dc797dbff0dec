package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bdougie/videojudge/internal/extractor"
	"github.com/bdougie/videojudge/internal/storage"
)

func runCmd(configPath *string) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "run <video>",
		Short: "Extract, judge and summarize a video",
		Long: `Samples one frame every frame_interval seconds, judges each frame and
summarizes the judgments into a final verdict. Output goes to
<video_dir>/<name>_output/{frames,analysis,final.txt} unless --output is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			videoPath := args[0]

			if info, err := os.Stat(videoPath); err != nil || info.IsDir() {
				return fmt.Errorf("file '%s' not found", videoPath)
			}

			a, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer a.writeMetrics()

			name := videoName(videoPath)
			if outputDir == "" {
				abs, err := filepath.Abs(videoPath)
				if err != nil {
					return err
				}
				outputDir = filepath.Join(filepath.Dir(abs), name+"_output")
			}
			framesDir := filepath.Join(outputDir, "frames")
			analysisDir := filepath.Join(outputDir, "analysis")

			store, err := a.storage(ctx, analysisDir, name)
			if err != nil {
				return err
			}
			defer store.Close()

			client, err := a.client(ctx)
			if err != nil {
				return err
			}

			summ, err := a.summarizer(client)
			if err != nil {
				return err
			}

			src := extractor.New(a.cfg.FrameInterval, a.cfg.ImageOptions(), a.logger)
			records, err := a.processor(client, store).ProcessVideo(ctx, src, videoPath, framesDir)
			if err != nil {
				return fmt.Errorf("analysis stopped after %d frames: %w", len(records), err)
			}
			a.logger.Info("analysis complete", "frames", len(records), "dir", analysisDir)

			verdict, err := summ.Summarize(ctx, records)
			if err != nil {
				return fmt.Errorf("summarization failed: %w", err)
			}
			if err := store.SaveVerdict(ctx, *verdict); err != nil {
				return err
			}

			finalPath := filepath.Join(outputDir, "final.txt")
			if err := storage.WriteReport(finalPath, *verdict); err != nil {
				return err
			}

			a.logger.Info("pipeline complete", "label", verdict.Label, "confidence", verdict.Confidence, "passes", verdict.Passes)
			fmt.Printf("Done. See final result: %s\n", finalPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (default <video_dir>/<name>_output)")

	return cmd
}
