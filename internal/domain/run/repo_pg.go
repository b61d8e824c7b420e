package run

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const runCols = `id, manifest, repair_only, started_at, finished_at,
	fixed, already_valid, still_invalid, missing, skipped, errors,
	passed, incomplete, created_at`

func scanRun(row pgx.Row) (*Run, error) {
	var r Run
	err := row.Scan(&r.ID, &r.Manifest, &r.RepairOnly, &r.StartedAt, &r.FinishedAt,
		&r.Fixed, &r.AlreadyValid, &r.StillInvalid, &r.Missing, &r.Skipped, &r.Errors,
		&r.Passed, &r.Incomplete, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &r, err
}

const fileCols = `id, run_id, position, file_id, path, status, strategy,
	collapsed_commas, trailing_commas, format, patient_id, validation, detail`

func scanFile(row pgx.Row) (*RunFile, error) {
	var f RunFile
	err := row.Scan(&f.ID, &f.RunID, &f.Position, &f.FileID, &f.Path, &f.Status,
		&f.Strategy, &f.CollapsedCommas, &f.TrailingCommas,
		&f.Format, &f.PatientID, &f.Validation, &f.Detail)
	return &f, err
}

// Create inserts a run and its file rows in one transaction, so a
// partially recorded run never becomes visible to the gate.
func (r *repoPG) Create(ctx context.Context, run *Run, files []*RunFile) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	run.ID = uuid.New()
	if _, err := tx.Exec(ctx, `
		INSERT INTO runs (id, manifest, repair_only, started_at, finished_at,
			fixed, already_valid, still_invalid, missing, skipped, errors,
			passed, incomplete)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		run.ID, run.Manifest, run.RepairOnly, run.StartedAt, run.FinishedAt,
		run.Fixed, run.AlreadyValid, run.StillInvalid, run.Missing, run.Skipped,
		run.Errors, run.Passed, run.Incomplete); err != nil {
		return err
	}

	for _, f := range files {
		f.ID = uuid.New()
		f.RunID = run.ID
		if _, err := tx.Exec(ctx, `
			INSERT INTO run_files (id, run_id, position, file_id, path, status,
				strategy, collapsed_commas, trailing_commas, format, patient_id,
				validation, detail)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
			f.ID, f.RunID, f.Position, f.FileID, f.Path, f.Status,
			f.Strategy, f.CollapsedCommas, f.TrailingCommas, f.Format, f.PatientID,
			f.Validation, f.Detail); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Run, error) {
	return scanRun(r.pool.QueryRow(ctx, `SELECT `+runCols+` FROM runs WHERE id = $1`, id))
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Run, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM runs`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+runCols+` FROM runs ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, run)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListFiles(ctx context.Context, runID uuid.UUID) ([]*RunFile, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+fileCols+` FROM run_files WHERE run_id = $1 ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*RunFile
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}
