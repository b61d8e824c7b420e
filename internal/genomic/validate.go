// Package genomic validates normalized MTB reports for completeness
// and extracts them into tab-separated tables for the downstream
// analysis pipeline.
package genomic

// Section names a report section and the fields it must carry.
type Section struct {
	Name   string
	Fields []string
}

// RequiredSections lists the sections and fields a normalized report
// must populate to pass completeness validation, in report order.
var RequiredSections = []Section{
	{Name: "patient_info", Fields: []string{
		"patient_id", "sample_id", "sample_type",
		"tumor_type", "collection_date", "clinical_stage",
	}},
	{Name: "sequencing", Fields: []string{
		"platform", "kit_manufacturer", "kit_type",
		"gene_panel", "coverage_depth",
	}},
	{Name: "pipeline", Fields: []string{
		"software", "version", "reference_genome",
		"variant_caller", "filter_criteria",
	}},
	{Name: "qc_metrics", Fields: []string{
		"total_reads", "mapped_reads_pct", "mean_coverage",
		"targets_min_depth_pct", "tumor_purity", "qc_status",
	}},
}

// AlterationTables lists the genomic alteration tables counted during
// validation, in report order.
var AlterationTables = []string{"snv_indel", "cnv", "fusion_sv"}

// SectionResult is the completeness result for one section.
type SectionResult struct {
	Name    string   `json:"name"`
	Missing []string `json:"missing,omitempty"`
}

// Complete reports whether the section had all required fields.
func (r SectionResult) Complete() bool { return len(r.Missing) == 0 }

// Result is the completeness result for one normalized report.
type Result struct {
	PatientID   string          `json:"patient_id"`
	Sections    []SectionResult `json:"sections"`
	Alterations map[string]int  `json:"alterations"`
	Valid       bool            `json:"valid"`
}

// Status renders the overall status the way operators read it.
func (r *Result) Status() string {
	if r.Valid {
		return "PASS"
	}
	return "INCOMPLETE"
}

// Validate checks a normalized report for required-field completeness.
// A field counts as present when its key exists and its value is not
// null; placeholder text like "Not specified" is deliberately treated
// as present, matching how the hospitals flag unavailable data.
func Validate(report map[string]interface{}) *Result {
	res := &Result{
		PatientID:   patientID(report),
		Alterations: make(map[string]int, len(AlterationTables)),
		Valid:       true,
	}

	for _, section := range RequiredSections {
		data, _ := report[section.Name].(map[string]interface{})
		sr := SectionResult{Name: section.Name}
		for _, field := range section.Fields {
			v, ok := data[field]
			if !ok || v == nil {
				sr.Missing = append(sr.Missing, field)
				res.Valid = false
			}
		}
		res.Sections = append(res.Sections, sr)
	}

	for _, table := range AlterationTables {
		rows, _ := report[table].([]interface{})
		res.Alterations[table] = len(rows)
	}

	return res
}

func patientID(report map[string]interface{}) string {
	info, _ := report["patient_info"].(map[string]interface{})
	id, _ := info["patient_id"].(string)
	if id == "" {
		return "unknown"
	}
	return id
}
