package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bdougie/videojudge/internal/extractor"
)

func analyzeCmd(configPath *string) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "analyze <frames_dir> <analysis_dir>",
		Short: "Judge already extracted frames",
		Long:  `Judges every .jpg/.jpeg/.png in frames_dir in name order and writes one <frame>.json per frame into analysis_dir.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			framesDir, analysisDir := args[0], args[1]

			a, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer a.writeMetrics()

			paths, err := extractor.ListFrames(framesDir)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no frames found in directory '%s'", framesDir)
			}

			if name == "" {
				name = defaultRunName(framesDir)
			}
			store, err := a.storage(ctx, analysisDir, name)
			if err != nil {
				return err
			}
			defer store.Close()

			client, err := a.client(ctx)
			if err != nil {
				return err
			}

			frames := extractor.FramesFromPaths(paths, a.cfg.ImageOptions())
			records, err := a.processor(client, store).Run(ctx, frames)
			if err != nil {
				return fmt.Errorf("analysis stopped after %d of %d frames: %w", len(records), len(frames), err)
			}

			fmt.Printf("Done. %d frame results in %s\n", len(records), analysisDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Video name used by database backends (default derived from frames_dir)")

	return cmd
}

// defaultRunName maps <name>_output/frames back to <name>
func defaultRunName(framesDir string) string {
	abs, err := filepath.Abs(framesDir)
	if err != nil {
		abs = framesDir
	}
	if filepath.Base(abs) == "frames" {
		abs = filepath.Dir(abs)
	}
	return strings.TrimSuffix(filepath.Base(abs), "_output")
}
