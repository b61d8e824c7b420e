package run

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound indicates the requested run does not exist.
var ErrNotFound = errors.New("run not found")

type Repository interface {
	Create(ctx context.Context, r *Run, files []*RunFile) error
	GetByID(ctx context.Context, id uuid.UUID) (*Run, error)
	List(ctx context.Context, limit, offset int) ([]*Run, int, error)
	ListFiles(ctx context.Context, runID uuid.UUID) ([]*RunFile, error)
}
