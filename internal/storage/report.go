package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bdougie/videojudge/internal/models"
)

// WriteReport writes the human readable final verdict to path.
func WriteReport(path string, v models.Verdict) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	return os.WriteFile(path, []byte(FormatReport(v)), 0644)
}

// FormatReport renders a verdict in the plain text report layout.
func FormatReport(v models.Verdict) string {
	return fmt.Sprintf("Overall Decision: %s\nConfidence: %s%%\n\nFull summary:\n%s",
		v.Label, models.FormatNumber(v.Confidence), v.Summary)
}
