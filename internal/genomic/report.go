package genomic

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const reportRule = "============================================================"

// WriteReport writes the per-patient validation report into dir and
// returns its path. The file is named <patient_id>_validation_report.txt.
func WriteReport(res *Result, sourceFile, dir string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory %s: %w", dir, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Genomic Data Validation Report\n%s\n", reportRule)
	fmt.Fprintf(&b, "File: %s\n", filepath.Base(sourceFile))
	fmt.Fprintf(&b, "Patient ID: %s\n", res.PatientID)
	fmt.Fprintf(&b, "Date: %s\n%s\n\n", now.Format("2006-01-02 15:04:05"), reportRule)

	for _, section := range res.Sections {
		status := "COMPLETE"
		if !section.Complete() {
			status = "INCOMPLETE"
		}
		fmt.Fprintf(&b, "%s: %s\n", strings.ToUpper(section.Name), status)
		if len(section.Missing) > 0 {
			fmt.Fprintf(&b, "  Missing fields: %s\n", strings.Join(section.Missing, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("GENOMIC ALTERATIONS SUMMARY:\n")
	fmt.Fprintf(&b, "  SNV/Indel: %d variants\n", res.Alterations["snv_indel"])
	fmt.Fprintf(&b, "  CNV: %d alterations\n", res.Alterations["cnv"])
	fmt.Fprintf(&b, "  Fusions/SV: %d events\n", res.Alterations["fusion_sv"])

	path := filepath.Join(dir, res.PatientID+"_validation_report.txt")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write report %s: %w", path, err)
	}
	return path, nil
}
