package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bdougie/videojudge/internal/models"
	"github.com/bdougie/videojudge/internal/storage"
)

func similarCmd(configPath *string) *cobra.Command {
	var (
		label      string
		confidence float64
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "similar <video_name>",
		Short: "Find frames of an analyzed video with a judgment close to the given one",
		Long:  `Searches the postgres backend for the frames whose (label, confidence) judgment vector is nearest to --label/--confidence.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := setup(*configPath)
			if err != nil {
				return err
			}
			if a.cfg.Storage.PostgresURL == "" {
				return fmt.Errorf("similar needs storage.postgres_url (or DATABASE_URL)")
			}

			want, err := parseLabel(label)
			if err != nil {
				return err
			}

			pg, err := storage.NewPostgres(ctx, a.cfg.Storage.PostgresURL, args[0])
			if err != nil {
				return err
			}
			defer pg.Close()

			results, err := pg.SearchSimilarFrames(ctx, want, confidence, limit)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Println("No frames found.")
				return nil
			}

			for i, r := range results {
				fmt.Printf("%d. %s at %ss: %s (%s%%) similarity %.3f\n",
					i+1, r.FramePath, models.FormatNumber(r.Timestamp), r.Label, models.FormatNumber(r.Confidence), r.Similarity)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&label, "label", "yes", "Label to search for (yes/no/unknown)")
	cmd.Flags().Float64Var(&confidence, "confidence", 100, "Confidence to search for")
	cmd.Flags().IntVar(&limit, "limit", 5, "Max results")

	return cmd
}

func parseLabel(s string) (models.Label, error) {
	switch strings.ToLower(s) {
	case "yes":
		return models.LabelYes, nil
	case "no":
		return models.LabelNo, nil
	case "unknown":
		return models.LabelUnknown, nil
	}
	return "", fmt.Errorf("unknown label %q, want yes, no or unknown", s)
}
