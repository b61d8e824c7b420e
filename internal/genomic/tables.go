package genomic

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Canonical column orders for the extracted tables. Ulm and Freiburg
// reports populate different subsets; the union keeps combined tables
// aligned across hospitals, with absent cells left empty.
var (
	patientInfoColumns = []string{
		"patient_id", "sample_id", "sample_type", "tumor_type",
		"collection_date", "clinical_stage", "platform", "kit_type",
		"kit_manufacturer", "gene_panel", "coverage_depth", "pipeline",
		"version", "reference_genome", "mean_coverage", "tumor_purity",
		"qc_status",
	}
	variantColumns = []string{
		"patient_id", "gene", "gene_symbol", "gene_name", "chr", "pos",
		"ref", "alt", "consequence", "aa_change", "dna_change", "vaf",
		"depth", "transcript_id", "clinical_sig", "dbsnp_id", "variant_id",
	}
	cnvColumns = []string{
		"patient_id", "gene", "genes", "chr", "start", "end",
		"copy_number", "status", "confidence", "method", "variant_id",
	}
	fusionColumns = []string{
		"patient_id", "gene_5prime", "gene_3prime", "supporting_reads",
		"frame_status", "fusion_type", "variant_id",
	}
	actionableColumns = []string{
		"patient_id", "variant_ids", "therapy", "evidence_level",
		"priority", "issued_date", "ngs_report",
	}
	summaryColumns = []string{"file", "patient_id", "status"}
)

// Table is an ordered set of rows sharing a fixed column layout.
type Table struct {
	Columns []string
	Rows    []map[string]interface{}
}

// NewTable returns an empty table with the given column order.
func NewTable(columns []string) *Table {
	return &Table{Columns: columns}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// AddRow appends a row; cells without a matching column are ignored.
func (t *Table) AddRow(row map[string]interface{}) {
	t.Rows = append(t.Rows, row)
}

// WriteFile writes the table as a TSV file (header plus rows).
func (t *Table) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = '\t'

	if err := w.Write(t.Columns); err != nil {
		return fmt.Errorf("write header %s: %w", path, err)
	}
	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, col := range t.Columns {
			record[i] = formatCell(row[col])
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write row %s: %w", path, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}

// formatCell renders a report value for TSV output. Numbers keep their
// shortest representation, lists are joined with ';', and anything
// structured falls back to its JSON encoding.
func formatCell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case []interface{}:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = formatCell(e)
		}
		return strings.Join(parts, ";")
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

// ---------------------------------------------------------------------------
// Report extraction
// ---------------------------------------------------------------------------

// Tables accumulates extracted rows across one or more normalized
// reports, for combined batch output or single-patient output.
type Tables struct {
	PatientInfo *Table
	Variants    *Table
	CNV         *Table
	Fusions     *Table
	Actionable  *Table
	Summary     *Table
}

// NewTables returns an empty table set.
func NewTables() *Tables {
	return &Tables{
		PatientInfo: NewTable(patientInfoColumns),
		Variants:    NewTable(variantColumns),
		CNV:         NewTable(cnvColumns),
		Fusions:     NewTable(fusionColumns),
		Actionable:  NewTable(actionableColumns),
		Summary:     NewTable(summaryColumns),
	}
}

// AddReport extracts one normalized report into the table set.
func (ts *Tables) AddReport(report map[string]interface{}) {
	pid := patientID(report)

	ts.PatientInfo.AddRow(patientInfoRow(report, pid))
	addKeyedRows(ts.Variants, report, "snv_indel", pid)
	addKeyedRows(ts.CNV, report, "cnv", pid)
	addKeyedRows(ts.Fusions, report, "fusion_sv", pid)

	interp, _ := report["clinical_interpretation"].(map[string]interface{})
	if actionable, ok := interp["actionable_mutations"].([]interface{}); ok {
		for _, v := range actionable {
			row, ok := v.(map[string]interface{})
			if !ok {
				continue
			}
			ts.Actionable.AddRow(withPatientID(row, pid))
		}
	}
}

// AddSummary records one validation outcome row for the batch summary.
func (ts *Tables) AddSummary(file string, res *Result) {
	ts.Summary.AddRow(map[string]interface{}{
		"file":       filepath.Base(file),
		"patient_id": res.PatientID,
		"status":     res.Status(),
	})
}

func addKeyedRows(t *Table, report map[string]interface{}, key, pid string) {
	rows, _ := report[key].([]interface{})
	for _, v := range rows {
		row, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		t.AddRow(withPatientID(row, pid))
	}
}

func withPatientID(row map[string]interface{}, pid string) map[string]interface{} {
	out := make(map[string]interface{}, len(row)+1)
	for k, v := range row {
		out[k] = v
	}
	out["patient_id"] = pid
	return out
}

func patientInfoRow(report map[string]interface{}, pid string) map[string]interface{} {
	info, _ := report["patient_info"].(map[string]interface{})
	seq, _ := report["sequencing"].(map[string]interface{})
	pipe, _ := report["pipeline"].(map[string]interface{})
	qc, _ := report["qc_metrics"].(map[string]interface{})

	return map[string]interface{}{
		"patient_id":       pid,
		"sample_id":        info["sample_id"],
		"sample_type":      info["sample_type"],
		"tumor_type":       info["tumor_type"],
		"collection_date":  info["collection_date"],
		"clinical_stage":   info["clinical_stage"],
		"platform":         seq["platform"],
		"kit_type":         seq["kit_type"],
		"kit_manufacturer": seq["kit_manufacturer"],
		"gene_panel":       seq["gene_panel"],
		"coverage_depth":   seq["coverage_depth"],
		"pipeline":         pipe["software"],
		"version":          pipe["version"],
		"reference_genome": pipe["reference_genome"],
		"mean_coverage":    qc["mean_coverage"],
		"tumor_purity":     qc["tumor_purity"],
		"qc_status":        qc["qc_status"],
	}
}

// ---------------------------------------------------------------------------
// Output
// ---------------------------------------------------------------------------

// WriteCombined writes the combined batch tables into dir and returns
// the written paths. Patient info and the validation summary are
// always written; alteration tables only when they have rows.
func (ts *Tables) WriteCombined(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", dir, err)
	}

	outputs := []struct {
		table    *Table
		name     string
		optional bool
	}{
		{ts.PatientInfo, "combined_patient_info.tsv", false},
		{ts.Variants, "combined_variants.tsv", true},
		{ts.CNV, "combined_cnv.tsv", true},
		{ts.Fusions, "combined_fusions.tsv", true},
		{ts.Actionable, "combined_actionable.tsv", true},
		{ts.Summary, "validation_summary.tsv", false},
	}

	var written []string
	for _, out := range outputs {
		if out.optional && out.table.Len() == 0 {
			continue
		}
		path := filepath.Join(dir, out.name)
		if err := out.table.WriteFile(path); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

// WritePerPatient writes the single-patient tables into dir, prefixed
// with the patient identifier, and returns the written paths.
func (ts *Tables) WritePerPatient(dir, pid string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", dir, err)
	}

	outputs := []struct {
		table    *Table
		suffix   string
		optional bool
	}{
		{ts.PatientInfo, "_patient_info.tsv", false},
		{ts.Variants, "_variants.tsv", true},
		{ts.CNV, "_cnv.tsv", true},
		{ts.Fusions, "_fusions.tsv", true},
		{ts.Actionable, "_actionable.tsv", true},
	}

	var written []string
	for _, out := range outputs {
		if out.optional && out.table.Len() == 0 {
			continue
		}
		path := filepath.Join(dir, pid+out.suffix)
		if err := out.table.WriteFile(path); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}
