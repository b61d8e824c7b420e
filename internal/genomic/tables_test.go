package genomic

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFormatCell(t *testing.T) {
	cases := []struct {
		name string
		in   interface{}
		want string
	}{
		{"nil", nil, ""},
		{"string", "EGFR", "EGFR"},
		{"float whole", float64(27), "27"},
		{"float fraction", 0.375, "0.375"},
		{"bool", true, "true"},
		{"list", []interface{}{"snv_1", "snv_2"}, "snv_1;snv_2"},
		{"map", map[string]interface{}{"a": float64(1)}, `{"a":1}`},
	}
	for _, tc := range cases {
		if got := formatCell(tc.in); got != tc.want {
			t.Errorf("%s: formatCell(%v) = %q, want %q", tc.name, tc.in, got, tc.want)
		}
	}
}

func TestTables_AddReport(t *testing.T) {
	report := parseReport(t, completeReport)

	ts := NewTables()
	ts.AddReport(report)

	if ts.PatientInfo.Len() != 1 {
		t.Fatalf("patient info rows = %d", ts.PatientInfo.Len())
	}
	row := ts.PatientInfo.Rows[0]
	if row["patient_id"] != "UKU-2019-0042" {
		t.Errorf("patient_id = %v", row["patient_id"])
	}
	if row["platform"] != "NextSeq 550" {
		t.Errorf("platform = %v", row["platform"])
	}
	if row["pipeline"] != "LoFreq Somatic" {
		t.Errorf("pipeline = %v", row["pipeline"])
	}

	if ts.Variants.Len() != 1 {
		t.Errorf("variant rows = %d", ts.Variants.Len())
	}
	if got := ts.Variants.Rows[0]["patient_id"]; got != "UKU-2019-0042" {
		t.Errorf("variant patient_id = %v", got)
	}
	if ts.CNV.Len() != 0 {
		t.Errorf("cnv rows = %d", ts.CNV.Len())
	}
	if ts.Fusions.Len() != 1 {
		t.Errorf("fusion rows = %d", ts.Fusions.Len())
	}
	if ts.Actionable.Len() != 0 {
		t.Errorf("actionable rows = %d", ts.Actionable.Len())
	}
}

func TestTables_AddReportDoesNotMutateSource(t *testing.T) {
	report := parseReport(t, completeReport)
	variant := report["snv_indel"].([]interface{})[0].(map[string]interface{})

	NewTables().AddReport(report)

	if _, ok := variant["patient_id"]; ok {
		t.Error("source variant row gained a patient_id key")
	}
}

func TestTable_WriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.tsv")

	table := NewTable([]string{"patient_id", "gene", "vaf"})
	table.AddRow(map[string]interface{}{
		"patient_id": "P1", "gene": "EGFR", "vaf": 0.375,
		"ignored": "x",
	})
	table.AddRow(map[string]interface{}{"patient_id": "P2"})

	if err := table.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "patient_id\tgene\tvaf" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "P1\tEGFR\t0.375" {
		t.Errorf("row 1 = %q", lines[1])
	}
	// Absent cells render empty, keeping columns aligned.
	if lines[2] != "P2\t\t" {
		t.Errorf("row 2 = %q", lines[2])
	}
}

func TestTables_WriteCombined(t *testing.T) {
	dir := t.TempDir()

	report := parseReport(t, completeReport)
	ts := NewTables()
	ts.AddReport(report)
	ts.AddSummary("json/UKU-2019-0042_ngs.json", Validate(report))

	written, err := ts.WriteCombined(dir)
	if err != nil {
		t.Fatalf("WriteCombined: %v", err)
	}

	names := make(map[string]bool, len(written))
	for _, p := range written {
		names[filepath.Base(p)] = true
	}
	for _, want := range []string{
		"combined_patient_info.tsv", "combined_variants.tsv",
		"combined_fusions.tsv", "validation_summary.tsv",
	} {
		if !names[want] {
			t.Errorf("missing output %s (got %v)", want, written)
		}
	}
	// Empty optional tables are not written.
	if names["combined_cnv.tsv"] || names["combined_actionable.tsv"] {
		t.Errorf("empty optional table written: %v", written)
	}

	data, err := os.ReadFile(filepath.Join(dir, "validation_summary.tsv"))
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	if !strings.Contains(string(data), "UKU-2019-0042_ngs.json\tUKU-2019-0042\tPASS") {
		t.Errorf("summary content:\n%s", data)
	}
}

func TestTables_WritePerPatient(t *testing.T) {
	dir := t.TempDir()

	ts := NewTables()
	ts.AddReport(parseReport(t, completeReport))

	written, err := ts.WritePerPatient(dir, "UKU-2019-0042")
	if err != nil {
		t.Fatalf("WritePerPatient: %v", err)
	}
	for _, p := range written {
		base := filepath.Base(p)
		if !strings.HasPrefix(base, "UKU-2019-0042_") {
			t.Errorf("output %s not prefixed with patient id", base)
		}
		if _, err := os.Stat(p); err != nil {
			t.Errorf("stat %s: %v", p, err)
		}
	}
	if len(written) != 3 {
		t.Errorf("expected patient_info, variants and fusions, got %v", written)
	}
}
