// Package pipeline chains the harmonization stages over a manifest:
// repair the raw hospital export, convert it to the normalized report,
// validate completeness and extract the TSV tables. Files are
// processed strictly sequentially, in manifest order, and a failed
// file never aborts the batch.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/mode1990/mtb-harmonizer/internal/genomic"
	"github.com/mode1990/mtb-harmonizer/internal/jsonfix"
	"github.com/mode1990/mtb-harmonizer/internal/manifest"
	"github.com/mode1990/mtb-harmonizer/internal/mtb"
)

// DefaultFileSuffix is the naming convention of the hospital exports:
// json/<identifier>_ngs.json.
const DefaultFileSuffix = "_ngs.json"

// Status classifies the pipeline outcome for one manifest entry.
type Status string

const (
	StatusFixed        Status = "fixed"
	StatusAlreadyValid Status = "already-valid"
	StatusStillInvalid Status = "still-invalid"
	StatusMissing      Status = "missing"
	StatusSkipped      Status = "skipped"
	StatusError        Status = "error"
)

// Succeeded reports whether the entry made it through the repair gate.
func (s Status) Succeeded() bool {
	return s == StatusFixed || s == StatusAlreadyValid
}

// FileReport is the aggregated outcome for one manifest entry.
type FileReport struct {
	ID          string              `json:"id"`
	Path        string              `json:"path"`
	Status      Status              `json:"status"`
	Strategy    jsonfix.Strategy    `json:"strategy,omitempty"`
	Diagnostics jsonfix.Diagnostics `json:"diagnostics"`
	Format      mtb.Format          `json:"format,omitempty"`
	PatientID   string              `json:"patient_id,omitempty"`
	Validation  string              `json:"validation,omitempty"` // PASS or INCOMPLETE
	Outputs     []string            `json:"outputs,omitempty"`
	Detail      string              `json:"detail,omitempty"`
}

// Summary is the aggregated outcome of one full manifest pass.
type Summary struct {
	Started  time.Time    `json:"started"`
	Finished time.Time    `json:"finished"`
	Files    []FileReport `json:"files"`

	Fixed        int `json:"fixed"`
	AlreadyValid int `json:"already_valid"`
	StillInvalid int `json:"still_invalid"`
	Missing      int `json:"missing"`
	Skipped      int `json:"skipped"`
	Errors       int `json:"errors"`
	Passed       int `json:"passed"`
	Incomplete   int `json:"incomplete"`
}

// Clean reports whether every processed entry repaired and, when the
// run went past repair, validated as complete. Skipped entries do not
// count against a clean run.
func (s *Summary) Clean() bool {
	return s.StillInvalid == 0 && s.Missing == 0 && s.Errors == 0 && s.Incomplete == 0
}

// Config carries the runner settings.
type Config struct {
	JSONDir    string // directory holding the raw exports
	FileSuffix string // file name suffix, DefaultFileSuffix when empty
	OutputDir  string // normalized reports, validation reports, TSVs
	RepairOnly bool   // stop after the repair stage
}

// Runner executes manifest passes.
type Runner struct {
	cfg Config
	log zerolog.Logger
}

// NewRunner returns a runner for the given configuration.
func NewRunner(cfg Config, log zerolog.Logger) *Runner {
	if cfg.FileSuffix == "" {
		cfg.FileSuffix = DefaultFileSuffix
	}
	return &Runner{cfg: cfg, log: log}
}

// Run processes every manifest entry in order and returns the
// aggregated summary. The returned error covers operator-level
// failures only (context cancellation, unwritable output directory);
// per-file failures are recorded in the summary instead.
func (r *Runner) Run(ctx context.Context, m *manifest.Manifest) (*Summary, error) {
	sum := &Summary{Started: time.Now()}
	tables := genomic.NewTables()

	for _, entry := range m.Entries {
		if err := ctx.Err(); err != nil {
			return sum, fmt.Errorf("pipeline: run aborted: %w", err)
		}
		report := r.processEntry(entry, tables)
		sum.Files = append(sum.Files, report)
		sum.count(report)

		r.log.Info().
			Str("id", entry.ID).
			Str("status", string(report.Status)).
			Str("validation", report.Validation).
			Msg("file processed")
	}

	if !r.cfg.RepairOnly && tables.PatientInfo.Len() > 0 {
		written, err := tables.WriteCombined(r.cfg.OutputDir)
		if err != nil {
			return sum, fmt.Errorf("pipeline: write combined tables: %w", err)
		}
		r.log.Info().Int("tables", len(written)).Str("dir", r.cfg.OutputDir).Msg("combined tables written")
	}

	sum.Finished = time.Now()
	return sum, nil
}

func (r *Runner) processEntry(entry manifest.Entry, tables *genomic.Tables) FileReport {
	path := filepath.Join(r.cfg.JSONDir, entry.ID+r.cfg.FileSuffix)
	report := FileReport{ID: entry.ID, Path: path}

	if entry.Action == manifest.ActionSkip {
		report.Status = StatusSkipped
		return report
	}

	strategy, err := jsonfix.ParseStrategy(entry.Action)
	if err != nil {
		report.Status = StatusError
		report.Detail = err.Error()
		return report
	}
	report.Strategy = strategy

	res, err := jsonfix.RepairFile(path, strategy)
	report.Diagnostics = res.Diagnostics
	report.Detail = res.Detail
	if err != nil {
		report.Status = StatusError
		report.Detail = err.Error()
		return report
	}
	report.Status = Status(res.Outcome)
	if !report.Status.Succeeded() || r.cfg.RepairOnly {
		return report
	}

	if err := r.harmonize(path, &report, tables); err != nil {
		report.Status = StatusError
		report.Detail = err.Error()
	}
	return report
}

// harmonize runs the post-repair stages for one file: convert to the
// normalized report, validate completeness, collect TSV rows and write
// the per-patient artifacts.
func (r *Runner) harmonize(path string, report *FileReport, tables *genomic.Tables) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	normalized, format, err := mtb.ConvertBytes(data)
	if err != nil {
		return fmt.Errorf("convert %s: %w", path, err)
	}
	report.Format = format
	report.PatientID = mtb.PatientID(normalized)

	if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory %s: %w", r.cfg.OutputDir, err)
	}
	outPath := filepath.Join(r.cfg.OutputDir, report.ID+"_normalized.json")
	encoded, err := json.MarshalIndent(normalized, "", "  ")
	if err != nil {
		return fmt.Errorf("encode normalized report: %w", err)
	}
	if err := os.WriteFile(outPath, append(encoded, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	report.Outputs = append(report.Outputs, outPath)

	res := genomic.Validate(normalized)
	report.Validation = res.Status()

	reportPath, err := genomic.WriteReport(res, path, r.cfg.OutputDir, time.Now())
	if err != nil {
		return err
	}
	report.Outputs = append(report.Outputs, reportPath)

	tables.AddReport(normalized)
	tables.AddSummary(path, res)
	return nil
}

func (s *Summary) count(report FileReport) {
	switch report.Status {
	case StatusFixed:
		s.Fixed++
	case StatusAlreadyValid:
		s.AlreadyValid++
	case StatusStillInvalid:
		s.StillInvalid++
	case StatusMissing:
		s.Missing++
	case StatusSkipped:
		s.Skipped++
	case StatusError:
		s.Errors++
	}
	switch report.Validation {
	case "PASS":
		s.Passed++
	case "INCOMPLETE":
		s.Incomplete++
	}
}
