package storage

import (
	"context"
	"errors"

	"github.com/bdougie/videojudge/internal/models"
)

// Multi writes every record to each storage in order and stops at the first
// failure.
type Multi []Storage

func (m Multi) AddResult(ctx context.Context, result models.Record) error {
	for _, s := range m {
		if err := s.AddResult(ctx, result); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) SaveVerdict(ctx context.Context, verdict models.Verdict) error {
	for _, s := range m {
		if err := s.SaveVerdict(ctx, verdict); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every storage and reports all failures.
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
