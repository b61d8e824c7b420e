package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mode1990/mtb-harmonizer/internal/manifest"
)

// An Ulm-format export with a double comma after the episode block.
const brokenUlmExport = `{
  "episode": {"patient": "PAT-0001"},,
  "ngsReports": []
}`

const validUlmExport = `{
  "episode": {"patient": "PAT-0002"},
  "ngsReports": []
}`

// A leading comma before a value is outside both repair patterns; the
// file stays broken.
const unrepairableExport = `{"episode": {"patient": "PAT-0003"}, "ngsReports": [,1]}`

func writeExport(t *testing.T, dir, id, content string) {
	t.Helper()
	path := filepath.Join(dir, id+DefaultFileSuffix)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", path, err)
	}
}

func newTestRunner(t *testing.T, repairOnly bool) (*Runner, string, string) {
	t.Helper()
	jsonDir := t.TempDir()
	outDir := t.TempDir()
	r := NewRunner(Config{
		JSONDir:    jsonDir,
		OutputDir:  outDir,
		RepairOnly: repairOnly,
	}, zerolog.Nop())
	return r, jsonDir, outDir
}

func TestRunner_Run(t *testing.T) {
	r, jsonDir, outDir := newTestRunner(t, false)
	writeExport(t, jsonDir, "PAT-0001", brokenUlmExport)
	writeExport(t, jsonDir, "PAT-0002", validUlmExport)
	writeExport(t, jsonDir, "PAT-0003", unrepairableExport)

	m := &manifest.Manifest{Entries: []manifest.Entry{
		{ID: "PAT-0001", Action: "auto"},
		{ID: "PAT-0002", Action: "auto"},
		{ID: "PAT-0003", Action: "auto"},
		{ID: "PAT-0004", Action: "auto"},
		{ID: "PAT-0005", Action: manifest.ActionSkip},
	}}

	sum, err := r.Run(context.Background(), m)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// One outcome per manifest entry, in manifest order.
	if len(sum.Files) != len(m.Entries) {
		t.Fatalf("expected %d file reports, got %d", len(m.Entries), len(sum.Files))
	}
	for i, entry := range m.Entries {
		if sum.Files[i].ID != entry.ID {
			t.Errorf("report %d is %s, want %s", i, sum.Files[i].ID, entry.ID)
		}
	}

	wantStatus := []Status{
		StatusFixed, StatusAlreadyValid, StatusStillInvalid,
		StatusMissing, StatusSkipped,
	}
	for i, want := range wantStatus {
		if sum.Files[i].Status != want {
			t.Errorf("%s: status = %s, want %s", sum.Files[i].ID, sum.Files[i].Status, want)
		}
	}

	if sum.Fixed != 1 || sum.AlreadyValid != 1 || sum.StillInvalid != 1 ||
		sum.Missing != 1 || sum.Skipped != 1 || sum.Errors != 0 {
		t.Errorf("counts = %+v", sum)
	}
	if sum.Passed != 2 {
		t.Errorf("passed = %d, want 2", sum.Passed)
	}
	if sum.Clean() {
		t.Error("a batch with failures must not be clean")
	}

	// Repaired files continue through convert and validate.
	for _, id := range []string{"PAT-0001", "PAT-0002"} {
		for _, name := range []string{
			id + "_normalized.json",
			id + "_validation_report.txt",
		} {
			if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
				t.Errorf("missing output %s: %v", name, err)
			}
		}
	}
	for _, name := range []string{"combined_patient_info.tsv", "validation_summary.tsv"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("missing combined table %s: %v", name, err)
		}
	}

	// The unrepairable file is left byte-identical.
	data, err := os.ReadFile(filepath.Join(jsonDir, "PAT-0003"+DefaultFileSuffix))
	if err != nil {
		t.Fatalf("read unrepairable file: %v", err)
	}
	if string(data) != unrepairableExport {
		t.Errorf("unrepairable file was modified:\n%s", data)
	}
}

func TestRunner_RepairOnly(t *testing.T) {
	r, jsonDir, outDir := newTestRunner(t, true)
	writeExport(t, jsonDir, "PAT-0001", brokenUlmExport)

	m := &manifest.Manifest{Entries: []manifest.Entry{{ID: "PAT-0001", Action: "double-comma"}}}
	sum, err := r.Run(context.Background(), m)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Files[0].Status != StatusFixed {
		t.Errorf("status = %s", sum.Files[0].Status)
	}
	if sum.Files[0].Validation != "" {
		t.Errorf("repair-only run must not validate, got %q", sum.Files[0].Validation)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("repair-only run wrote outputs: %v", entries)
	}
}

func TestRunner_Clean(t *testing.T) {
	r, jsonDir, _ := newTestRunner(t, false)
	writeExport(t, jsonDir, "PAT-0002", validUlmExport)

	m := &manifest.Manifest{Entries: []manifest.Entry{
		{ID: "PAT-0002", Action: "auto"},
		{ID: "PAT-0009", Action: manifest.ActionSkip},
	}}
	sum, err := r.Run(context.Background(), m)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !sum.Clean() {
		t.Errorf("expected clean run, got %+v", sum)
	}
}

func TestRunner_CancelledContext(t *testing.T) {
	r, jsonDir, _ := newTestRunner(t, false)
	writeExport(t, jsonDir, "PAT-0001", validUlmExport)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := &manifest.Manifest{Entries: []manifest.Entry{{ID: "PAT-0001", Action: "auto"}}}
	if _, err := r.Run(ctx, m); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
