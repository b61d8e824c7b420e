// Package run is the registry of harmonization runs. Each manifest
// pass is persisted as one run with its per-file outcomes, so the
// downstream analysis pipeline can gate on whether a batch came
// through clean.
package run

import (
	"time"

	"github.com/google/uuid"

	"github.com/mode1990/mtb-harmonizer/internal/pipeline"
)

// Run maps to the runs table.
type Run struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Manifest     string    `db:"manifest" json:"manifest"`
	RepairOnly   bool      `db:"repair_only" json:"repair_only"`
	StartedAt    time.Time `db:"started_at" json:"started_at"`
	FinishedAt   time.Time `db:"finished_at" json:"finished_at"`
	Fixed        int       `db:"fixed" json:"fixed"`
	AlreadyValid int       `db:"already_valid" json:"already_valid"`
	StillInvalid int       `db:"still_invalid" json:"still_invalid"`
	Missing      int       `db:"missing" json:"missing"`
	Skipped      int       `db:"skipped" json:"skipped"`
	Errors       int       `db:"errors" json:"errors"`
	Passed       int       `db:"passed" json:"passed"`
	Incomplete   int       `db:"incomplete" json:"incomplete"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Clean mirrors pipeline.Summary.Clean for a persisted run.
func (r *Run) Clean() bool {
	return r.StillInvalid == 0 && r.Missing == 0 && r.Errors == 0 && r.Incomplete == 0
}

// RunFile maps to the run_files table: one row per manifest entry, in
// manifest order.
type RunFile struct {
	ID              uuid.UUID `db:"id" json:"id"`
	RunID           uuid.UUID `db:"run_id" json:"run_id"`
	Position        int       `db:"position" json:"position"`
	FileID          string    `db:"file_id" json:"file_id"`
	Path            string    `db:"path" json:"path"`
	Status          string    `db:"status" json:"status"`
	Strategy        string    `db:"strategy" json:"strategy"`
	CollapsedCommas int       `db:"collapsed_commas" json:"collapsed_commas"`
	TrailingCommas  int       `db:"trailing_commas" json:"trailing_commas"`
	Format          *string   `db:"format" json:"format,omitempty"`
	PatientID       *string   `db:"patient_id" json:"patient_id,omitempty"`
	Validation      *string   `db:"validation" json:"validation,omitempty"`
	Detail          *string   `db:"detail" json:"detail,omitempty"`
}

// GateResult is the pass/fail answer the downstream ETL polls for.
type GateResult struct {
	RunID        uuid.UUID `json:"run_id"`
	Pass         bool      `json:"pass"`
	StillInvalid int       `json:"still_invalid"`
	Missing      int       `json:"missing"`
	Errors       int       `json:"errors"`
	Incomplete   int       `json:"incomplete"`
}

// FromSummary builds the persistable run and file rows from a
// completed pipeline pass.
func FromSummary(manifestPath string, repairOnly bool, sum *pipeline.Summary) (*Run, []*RunFile) {
	r := &Run{
		Manifest:     manifestPath,
		RepairOnly:   repairOnly,
		StartedAt:    sum.Started,
		FinishedAt:   sum.Finished,
		Fixed:        sum.Fixed,
		AlreadyValid: sum.AlreadyValid,
		StillInvalid: sum.StillInvalid,
		Missing:      sum.Missing,
		Skipped:      sum.Skipped,
		Errors:       sum.Errors,
		Passed:       sum.Passed,
		Incomplete:   sum.Incomplete,
	}

	files := make([]*RunFile, 0, len(sum.Files))
	for i, fr := range sum.Files {
		rf := &RunFile{
			Position:        i,
			FileID:          fr.ID,
			Path:            fr.Path,
			Status:          string(fr.Status),
			Strategy:        string(fr.Strategy),
			CollapsedCommas: fr.Diagnostics.CollapsedCommas,
			TrailingCommas:  fr.Diagnostics.TrailingCommas,
		}
		if fr.Format != "" {
			format := string(fr.Format)
			rf.Format = &format
		}
		if fr.PatientID != "" {
			pid := fr.PatientID
			rf.PatientID = &pid
		}
		if fr.Validation != "" {
			v := fr.Validation
			rf.Validation = &v
		}
		if fr.Detail != "" {
			d := fr.Detail
			rf.Detail = &d
		}
		files = append(files, rf)
	}
	return r, files
}
