// Package jsonfix repairs malformed clinical JSON exports in which
// upstream systems emitted surplus commas (doubled separators, commas
// before a closing brace or bracket). Repair is scoped to JSON syntax
// by a position-aware scanner rather than raw text substitution, and a
// file is only replaced after the repaired text passes strict JSON
// validation; the replacement itself is write-then-rename so the
// original is never left partially written.
package jsonfix

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ---------------------------------------------------------------------------
// Strategies
// ---------------------------------------------------------------------------

// Strategy selects which comma repairs are applied to a document.
type Strategy string

const (
	// StrategyDoubleComma collapses runs of consecutive commas.
	StrategyDoubleComma Strategy = "double-comma"

	// StrategyTrailingComma removes commas before a closing '}' or ']'.
	StrategyTrailingComma Strategy = "trailing-comma"

	// StrategyAuto applies both repairs.
	StrategyAuto Strategy = "auto"
)

// ErrUnknownStrategy indicates an unrecognized strategy name.
var ErrUnknownStrategy = errors.New("unknown repair strategy")

// ParseStrategy converts a manifest action name into a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(name) {
	case StrategyDoubleComma, StrategyTrailingComma, StrategyAuto:
		return Strategy(name), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

func (s Strategy) options() Options {
	switch s {
	case StrategyDoubleComma:
		return Options{CollapseRuns: true}
	case StrategyTrailingComma:
		return Options{DropTrailing: true}
	default:
		return Options{CollapseRuns: true, DropTrailing: true}
	}
}

// ---------------------------------------------------------------------------
// Outcomes
// ---------------------------------------------------------------------------

// Outcome classifies the result of a repair attempt on one file.
type Outcome string

const (
	OutcomeFixed        Outcome = "fixed"         // repaired and replaced on disk
	OutcomeAlreadyValid Outcome = "already-valid" // parsed without any repair
	OutcomeStillInvalid Outcome = "still-invalid" // repair attempted, gate failed, file untouched
	OutcomeMissing      Outcome = "missing"       // document not found on disk
)

// FileResult is the structured outcome for a single document.
type FileResult struct {
	Path        string      `json:"path"`
	Outcome     Outcome     `json:"outcome"`
	Strategy    Strategy    `json:"strategy"`
	Diagnostics Diagnostics `json:"diagnostics"`
	// Detail carries the parser diagnostic when the gate fails.
	Detail string `json:"detail,omitempty"`
}

// ---------------------------------------------------------------------------
// Validation gate
// ---------------------------------------------------------------------------

// ValidateStrict checks the document against the standard JSON grammar
// and, on failure, returns an error locating the first offending byte.
func ValidateStrict(data []byte) error {
	if json.Valid(data) {
		return nil
	}
	var v interface{}
	err := json.Unmarshal(data, &v)
	if err == nil {
		// json.Valid and json.Unmarshal disagree only on exotic inputs;
		// surface a generic failure rather than claiming success.
		return fmt.Errorf("jsonfix: document is not valid JSON")
	}
	var syn *json.SyntaxError
	if errors.As(err, &syn) {
		return fmt.Errorf("jsonfix: line %d: %s", lineAt(data, syn.Offset), syn.Error())
	}
	return fmt.Errorf("jsonfix: %w", err)
}

func lineAt(data []byte, offset int64) int {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	return 1 + bytes.Count(data[:offset], []byte{'\n'})
}

// ---------------------------------------------------------------------------
// File repair
// ---------------------------------------------------------------------------

// RepairBytes applies the strategy to a document held in memory and
// runs the validation gate on the result.
func RepairBytes(data []byte, strategy Strategy) ([]byte, FileResult) {
	repaired, diag := Repair(data, strategy.options())
	res := FileResult{Strategy: strategy, Diagnostics: diag}

	if err := ValidateStrict(repaired); err != nil {
		res.Outcome = OutcomeStillInvalid
		res.Detail = err.Error()
		return repaired, res
	}
	if !diag.Changed() {
		res.Outcome = OutcomeAlreadyValid
		return repaired, res
	}
	res.Outcome = OutcomeFixed
	return repaired, res
}

// RepairFile repairs the document at path in place. The original file
// is replaced only when the repaired text passes the validation gate;
// a still-invalid document leaves the original byte-identical on disk.
func RepairFile(path string, strategy Strategy) (FileResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileResult{Path: path, Outcome: OutcomeMissing, Strategy: strategy}, nil
		}
		return FileResult{}, fmt.Errorf("read %s: %w", path, err)
	}

	repaired, res := RepairBytes(data, strategy)
	res.Path = path
	if res.Outcome != OutcomeFixed {
		return res, nil
	}

	if err := writeFileAtomic(path, repaired); err != nil {
		return FileResult{}, fmt.Errorf("replace %s: %w", path, err)
	}
	return res, nil
}

// writeFileAtomic writes data to a temp file in the target directory
// and renames it over path, preserving the original file mode.
func writeFileAtomic(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
