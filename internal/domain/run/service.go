package run

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mode1990/mtb-harmonizer/internal/pipeline"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RecordSummary persists one completed pipeline pass.
func (s *Service) RecordSummary(ctx context.Context, manifestPath string, repairOnly bool, sum *pipeline.Summary) (*Run, error) {
	if manifestPath == "" {
		return nil, fmt.Errorf("manifest path is required")
	}
	if len(sum.Files) == 0 {
		return nil, fmt.Errorf("summary has no file outcomes")
	}
	r, files := FromSummary(manifestPath, repairOnly, sum)
	if err := s.repo.Create(ctx, r, files); err != nil {
		return nil, fmt.Errorf("record run: %w", err)
	}
	return r, nil
}

func (s *Service) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListRuns(ctx context.Context, limit, offset int) ([]*Run, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListFiles(ctx context.Context, runID uuid.UUID) ([]*RunFile, error) {
	if _, err := s.repo.GetByID(ctx, runID); err != nil {
		return nil, err
	}
	return s.repo.ListFiles(ctx, runID)
}

// Gate answers whether the downstream pipeline may consume the batch
// this run produced.
func (s *Service) Gate(ctx context.Context, runID uuid.UUID) (*GateResult, error) {
	r, err := s.repo.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	return &GateResult{
		RunID:        r.ID,
		Pass:         r.Clean(),
		StillInvalid: r.StillInvalid,
		Missing:      r.Missing,
		Errors:       r.Errors,
		Incomplete:   r.Incomplete,
	}, nil
}
