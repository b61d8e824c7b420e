package mtb

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

const sampleUlm = `{
  "episode": {"patient": "UKU-2019-0042"},
  "specimens": [{"id": "S-0042", "type": "tumor", "collection": {"date": "2023-06-01"}}],
  "diagnoses": [{
    "icd10": {"code": "C34.1", "display": "Lung adenocarcinoma"},
    "statusHistory": [{"status": "stage-iv"}]
  }],
  "ngsReports": [{
    "sequencingType": "panel",
    "tmb": 4.2,
    "metadata": [{
      "sequencer": "NextSeq 550",
      "kitManufacturer": "Illumina",
      "kitType": "TruSight Oncology 500",
      "pipeline": "LoFreq%20Somatic",
      "referenceGenome": "GRCh38"
    }],
    "simpleVariants": [{
      "id": "var-1",
      "gene": {"hgncId": "HGNC:3236"},
      "chromosome": "7",
      "startEnd": {"start": 55259515},
      "refAllele": "T",
      "altAllele": "G",
      "aminoAcidChange": {"code": "p.L858R"},
      "dnaChange": {"code": "c.2573T>G"},
      "allelicFrequency": 37.5,
      "readDepth": 812,
      "interpretation": {"code": "pathogenic"},
      "dbSNPId": "rs121434568"
    }],
    "copyNumberVariants": [{
      "gene": {"hgncId": "HGNC:11389"},
      "chromosome": "17",
      "startRange": {"start": 37844000, "end": 37886000},
      "copyNumber": 8,
      "type": "amplification"
    }],
    "rnaFusions": [{
      "fusionPartner5prime": {"gene": {"hgncId": "HGNC:3508"}},
      "fusionPartner3prime": {"gene": {"hgncId": "HGNC:427"}}
    }]
  }],
  "recommendations": [{
    "supportingVariants": ["var-1"],
    "medication": [{"display": "Osimertinib"}],
    "levelOfEvidence": {"grading": {"code": "m1A"}},
    "priority": 1,
    "issuedOn": "2023-06-20"
  }]
}`

const sampleFreiburg = `{
  "data": {
    "patient": {"id": "UKF-2021-0007"},
    "specimens": [{"id": "FR-S-7", "type": "biopsy", "collection": {"date": "2023-02-14"}}],
    "diagnoses": [{
      "icd10": {"code": "C25.9", "display": "Pancreatic cancer"},
      "statusHistory": [{"status": "metastasized"}]
    }],
    "ngsReports": [{
      "sequencingType": "exome",
      "tmb": 11.0,
      "msi": "MSI-high",
      "brcaness": 0.62,
      "tumorCellContent": {"value": 0.4},
      "metadata": [{
        "sequencer": "NovaSeq 6000",
        "kitManufacturer": "Agilent",
        "kitType": "SureSelect XT HS",
        "pipeline": "nf-core/sarek",
        "referenceGenome": "GRCh38"
      }],
      "simpleVariants": [{
        "id": "fr-var-1",
        "gene": {"hgncId": "HGNC:6407", "symbol": "KRAS", "name": "KRAS proto-oncogene"},
        "chromosome": "12",
        "startEnd": {"start": 25245350},
        "refAllele": "C",
        "altAllele": "T",
        "dnaChange": {"code": "c.35G>A"},
        "allelicFrequency": 0.31,
        "readDepth": 540,
        "interpretation": {"code": "pathogenic"}
      }],
      "copyNumberVariants": [{
        "id": "fr-cnv-1",
        "chromosome": "9",
        "startRange": {"start": 21967751},
        "endRange": {"start": 21995300},
        "totalCopyNumber": 0,
        "type": "loss",
        "reportedAffectedGenes": [{"symbol": "CDKN2A"}, {"symbol": "CDKN2B"}]
      }],
      "rnaFusions": [{
        "id": "fr-fus-1",
        "fusionPartner5prime": {"gene": {"symbol": "EML4"}},
        "fusionPartner3prime": {"gene": {"symbol": "ALK"}},
        "numSplitReads": 27
      }]
    }],
    "recommendations": [{
      "medication": [{"display": "Olaparib"}],
      "priority": 2,
      "issuedOn": "2023-03-01",
      "ngsReport": "fr-ngs-1"
    }]
  }
}`

func parseDoc(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return doc
}

func section(t *testing.T, report map[string]interface{}, name string) map[string]interface{} {
	t.Helper()
	s, ok := report[name].(map[string]interface{})
	if !ok {
		t.Fatalf("missing section %q", name)
	}
	return s
}

func rows(t *testing.T, report map[string]interface{}, name string) []interface{} {
	t.Helper()
	s, ok := report[name].([]interface{})
	if !ok {
		t.Fatalf("missing table %q", name)
	}
	return s
}

// =========== Detection ===========

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Format
	}{
		{"ulm", sampleUlm, FormatUlm},
		{"freiburg", sampleFreiburg, FormatFreiburg},
		{"unknown", `{"patients": []}`, FormatUnknown},
		{"data without ngsReports", `{"data": {"patient": {"id": "x"}}}`, FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(parseDoc(t, tt.raw)); got != tt.want {
				t.Errorf("Detect() = %q, want %q", got, tt.want)
			}
		})
	}
}

// =========== Ulm conversion ===========

func TestConvert_Ulm(t *testing.T) {
	report, format, err := Convert(parseDoc(t, sampleUlm))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if format != FormatUlm {
		t.Fatalf("format = %q, want ulm", format)
	}

	info := section(t, report, "patient_info")
	if info["patient_id"] != "UKU-2019-0042" {
		t.Errorf("patient_id = %v", info["patient_id"])
	}
	if info["tumor_type"] != "Lung adenocarcinoma" {
		t.Errorf("tumor_type = %v", info["tumor_type"])
	}
	if info["clinical_stage"] != "stage-iv" {
		t.Errorf("clinical_stage = %v", info["clinical_stage"])
	}

	pipe := section(t, report, "pipeline")
	if pipe["software"] != "LoFreq Somatic" {
		t.Errorf("URL-encoded pipeline name not cleaned: %v", pipe["software"])
	}

	variants := rows(t, report, "snv_indel")
	if len(variants) != 1 {
		t.Fatalf("expected 1 variant, got %d", len(variants))
	}
	v := variants[0].(map[string]interface{})
	if v["gene"] != "3236" {
		t.Errorf("HGNC prefix not stripped: %v", v["gene"])
	}
	if v["chr"] != "chr7" {
		t.Errorf("chr = %v, want chr7", v["chr"])
	}
	if vaf := v["vaf"].(float64); vaf != 0.375 {
		t.Errorf("vaf = %v, want 0.375 (percent scaled to fraction)", vaf)
	}
	if v["aa_change"] != "p.L858R" {
		t.Errorf("aa_change = %v", v["aa_change"])
	}

	cnvs := rows(t, report, "cnv")
	if len(cnvs) != 1 {
		t.Fatalf("expected 1 cnv, got %d", len(cnvs))
	}
	c := cnvs[0].(map[string]interface{})
	if c["gene"] != "11389" || c["chr"] != "chr17" {
		t.Errorf("cnv mapping wrong: %+v", c)
	}

	fusions := rows(t, report, "fusion_sv")
	f := fusions[0].(map[string]interface{})
	if f["gene_5prime"] != "3508" || f["gene_3prime"] != "427" {
		t.Errorf("fusion partners wrong: %+v", f)
	}

	interp := section(t, report, "clinical_interpretation")
	actionable := interp["actionable_mutations"].([]interface{})
	if len(actionable) != 1 {
		t.Fatalf("expected 1 actionable mutation, got %d", len(actionable))
	}
	a := actionable[0].(map[string]interface{})
	if a["therapy"] != "Osimertinib" || a["evidence_level"] != "m1A" {
		t.Errorf("actionable mapping wrong: %+v", a)
	}
}

// =========== Freiburg conversion ===========

func TestConvert_Freiburg(t *testing.T) {
	report, format, err := Convert(parseDoc(t, sampleFreiburg))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if format != FormatFreiburg {
		t.Fatalf("format = %q, want freiburg", format)
	}

	info := section(t, report, "patient_info")
	if info["patient_id"] != "UKF-2021-0007" {
		t.Errorf("patient_id = %v", info["patient_id"])
	}

	qc := section(t, report, "qc_metrics")
	if qc["tumor_purity"] != 0.4 {
		t.Errorf("tumor_purity = %v, want 0.4", qc["tumor_purity"])
	}

	bio := section(t, report, "additional_biomarkers")
	if bio["msi_status"] != "MSI-high" {
		t.Errorf("msi_status = %v", bio["msi_status"])
	}
	if bio["brcaness"] != 0.62 {
		t.Errorf("brcaness = %v", bio["brcaness"])
	}

	variants := rows(t, report, "snv_indel")
	v := variants[0].(map[string]interface{})
	if v["gene_symbol"] != "KRAS" {
		t.Errorf("gene_symbol = %v", v["gene_symbol"])
	}
	// Freiburg reports VAF as a fraction already; no rescaling.
	if vaf := v["vaf"].(float64); vaf != 0.31 {
		t.Errorf("vaf = %v, want 0.31", vaf)
	}
	// Freiburg chromosomes carry no chr prefix.
	if v["chr"] != "12" {
		t.Errorf("chr = %v, want 12", v["chr"])
	}

	cnvs := rows(t, report, "cnv")
	c := cnvs[0].(map[string]interface{})
	if c["genes"] != "CDKN2A, CDKN2B" {
		t.Errorf("affected genes = %v", c["genes"])
	}

	fusions := rows(t, report, "fusion_sv")
	f := fusions[0].(map[string]interface{})
	if f["gene_5prime"] != "EML4" || f["gene_3prime"] != "ALK" {
		t.Errorf("fusion partners wrong: %+v", f)
	}
	if f["supporting_reads"] != float64(27) {
		t.Errorf("supporting_reads = %v", f["supporting_reads"])
	}
}

func TestConvert_FreiburgWithoutNGS(t *testing.T) {
	raw := `{"data": {
		"patient": {"id": "UKF-2022-0001"},
		"diagnoses": [{"icd10": {"display": "CUP syndrome"}}],
		"ngsReports": []
	}}`

	report, format, err := Convert(parseDoc(t, raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if format != FormatFreiburg {
		t.Fatalf("format = %q", format)
	}

	seq := section(t, report, "sequencing")
	if seq["platform"] != NoNGSData {
		t.Errorf("platform = %v, want placeholder", seq["platform"])
	}
	info := section(t, report, "patient_info")
	if info["tumor_type"] != "CUP syndrome" {
		t.Errorf("tumor_type = %v", info["tumor_type"])
	}
	if len(rows(t, report, "snv_indel")) != 0 {
		t.Error("expected empty variant table")
	}
}

func TestConvert_Unknown(t *testing.T) {
	_, _, err := Convert(parseDoc(t, `{"foo": 1}`))
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
}

// =========== File conversion ===========

func TestConvertFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "UKU-2019-0042_ngs.json")
	out := filepath.Join(dir, "UKU-2019-0042_normalized.json")
	if err := os.WriteFile(in, []byte(sampleUlm), 0o644); err != nil {
		t.Fatal(err)
	}

	format, err := ConvertFile(in, out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if format != FormatUlm {
		t.Errorf("format = %q", format)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read normalized report: %v", err)
	}
	var report map[string]interface{}
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("normalized report is not valid JSON: %v", err)
	}
	if PatientID(report) != "UKU-2019-0042" {
		t.Errorf("PatientID = %q", PatientID(report))
	}
}

func TestPatientID_Unknown(t *testing.T) {
	if got := PatientID(map[string]interface{}{}); got != "unknown" {
		t.Errorf("PatientID = %q, want unknown", got)
	}
}
