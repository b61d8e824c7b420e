package mtb

import "strings"

// convertFreiburg maps a Freiburg MTB export onto the normalized
// report layout. Freiburg nests everything under "data", identifies
// the patient at patient.id, reports allelic frequency as a fraction
// already, and can legitimately ship without any NGS report — in that
// case a placeholder document is produced so the patient still appears
// in the combined tables.
func convertFreiburg(doc map[string]interface{}) map[string]interface{} {
	inner := getMap(doc, "data")

	specimen := firstMap(inner, "specimens")
	diagnosis := firstMap(inner, "diagnoses")

	patientID := getString(getMap(inner, "patient"), "id")
	if patientID == "" {
		patientID = "unknown"
	}

	ngsReports := getSlice(inner, "ngsReports")
	if len(ngsReports) == 0 {
		return freiburgNoNGS(patientID, diagnosis)
	}

	ngsReport := asMap(ngsReports[0])
	metadata := firstMap(ngsReportOrEmpty(ngsReport), "metadata")
	report := ngsReportOrEmpty(ngsReport)

	out := map[string]interface{}{
		"patient_info": map[string]interface{}{
			"patient_id":      patientID,
			"sample_id":       getString(specimen, "id"),
			"sample_type":     getString(specimen, "type"),
			"tumor_type":      getString(getMap(diagnosis, "icd10"), "display"),
			"collection_date": getString(getMap(specimen, "collection"), "date"),
			"clinical_stage":  clinicalStage(diagnosis),
		},
		"sequencing": map[string]interface{}{
			"platform":         getString(metadata, "sequencer"),
			"kit_manufacturer": getString(metadata, "kitManufacturer"),
			"kit_type":         getString(metadata, "kitType"),
			"gene_panel":       getString(report, "sequencingType"),
			"coverage_depth":   NotSpecified,
		},
		"pipeline": map[string]interface{}{
			"software":         getString(metadata, "pipeline"),
			"version":          "",
			"reference_genome": getString(metadata, "referenceGenome"),
			"variant_caller":   NotSpecified,
			"filter_criteria":  NotSpecified,
		},
		"qc_metrics": map[string]interface{}{
			"total_reads":           NotSpecified,
			"mapped_reads_pct":      NotSpecified,
			"mean_coverage":         NotSpecified,
			"targets_min_depth_pct": NotSpecified,
			"tumor_purity":          getValueOr(getMap(report, "tumorCellContent"), "value", NotSpecified),
			"qc_status":             NotSpecified,
		},
		"snv_indel": []interface{}{},
		"cnv":       []interface{}{},
		"fusion_sv": []interface{}{},
		"additional_biomarkers": map[string]interface{}{
			"tmb":        getValue(report, "tmb"),
			"tmb_unit":   "mutations/Mb",
			"msi_status": getValueOr(report, "msi", NotSpecified),
			"brcaness":   getValue(report, "brcaness"),
		},
		"clinical_interpretation": map[string]interface{}{
			"actionable_mutations": []interface{}{},
			"resistance_mutations": []interface{}{},
			"vus":                  []interface{}{},
		},
	}

	var variants []interface{}
	for _, v := range getSlice(report, "simpleVariants") {
		variant := asMap(v)
		if variant == nil {
			continue
		}
		gene := getMap(variant, "gene")
		variants = append(variants, map[string]interface{}{
			"gene":          stripHGNC(getString(gene, "hgncId")),
			"gene_symbol":   getString(gene, "symbol"),
			"gene_name":     getString(gene, "name"),
			"chr":           chromString(variant),
			"pos":           getValue(getMap(variant, "startEnd"), "start"),
			"ref":           getString(variant, "refAllele"),
			"alt":           getString(variant, "altAllele"),
			"consequence":   NotSpecified,
			"aa_change":     NotSpecified,
			"dna_change":    getString(getMap(variant, "dnaChange"), "code"),
			"vaf":           getFloat(variant, "allelicFrequency"),
			"depth":         getValue(variant, "readDepth"),
			"transcript_id": NotSpecified,
			"clinical_sig":  getString(getMap(variant, "interpretation"), "code"),
			"dbsnp_id":      getString(variant, "dbSNPId"),
			"variant_id":    getString(variant, "id"),
		})
	}
	if variants != nil {
		out["snv_indel"] = variants
	}

	var cnvs []interface{}
	for _, v := range getSlice(report, "copyNumberVariants") {
		cnv := asMap(v)
		if cnv == nil {
			continue
		}
		var symbols []string
		for _, g := range getSlice(cnv, "reportedAffectedGenes") {
			symbols = append(symbols, getString(asMap(g), "symbol"))
		}
		cnvs = append(cnvs, map[string]interface{}{
			"genes":       strings.Join(symbols, ", "),
			"chr":         chromString(cnv),
			"start":       getValue(getMap(cnv, "startRange"), "start"),
			"end":         getValue(getMap(cnv, "endRange"), "start"),
			"copy_number": getValue(cnv, "totalCopyNumber"),
			"status":      getString(cnv, "type"),
			"confidence":  NotSpecified,
			"method":      NotSpecified,
			"variant_id":  getString(cnv, "id"),
		})
	}
	if cnvs != nil {
		out["cnv"] = cnvs
	}

	var fusions []interface{}
	for _, v := range getSlice(report, "rnaFusions") {
		fusion := asMap(v)
		if fusion == nil {
			continue
		}
		fusions = append(fusions, map[string]interface{}{
			"gene_5prime":      fusionPartnerSymbol(fusion, "fusionPartner5prime"),
			"gene_3prime":      fusionPartnerSymbol(fusion, "fusionPartner3prime"),
			"supporting_reads": getValueOr(fusion, "numSplitReads", NotSpecified),
			"frame_status":     NotSpecified,
			"fusion_type":      NotSpecified,
			"variant_id":       getString(fusion, "id"),
		})
	}
	if fusions != nil {
		out["fusion_sv"] = fusions
	}

	var actionable []interface{}
	for _, v := range getSlice(inner, "recommendations") {
		rec := asMap(v)
		if rec == nil {
			continue
		}
		for _, mv := range getSlice(rec, "medication") {
			med := asMap(mv)
			if med == nil {
				continue
			}
			actionable = append(actionable, map[string]interface{}{
				"therapy":     getString(med, "display"),
				"priority":    getValue(rec, "priority"),
				"issued_date": getString(rec, "issuedOn"),
				"ngs_report":  getString(rec, "ngsReport"),
			})
		}
	}
	if actionable != nil {
		getMap(out, "clinical_interpretation")["actionable_mutations"] = actionable
	}

	return out
}

// freiburgNoNGS builds the placeholder report for a Freiburg patient
// without sequencing data.
func freiburgNoNGS(patientID string, diagnosis map[string]interface{}) map[string]interface{} {
	noData := func(fields ...string) map[string]interface{} {
		section := make(map[string]interface{}, len(fields))
		for _, f := range fields {
			section[f] = NoNGSData
		}
		return section
	}

	return map[string]interface{}{
		"patient_info": map[string]interface{}{
			"patient_id":      patientID,
			"sample_id":       "",
			"sample_type":     "",
			"tumor_type":      getString(getMap(diagnosis, "icd10"), "display"),
			"collection_date": "",
			"clinical_stage":  clinicalStage(diagnosis),
		},
		"sequencing": noData("platform", "kit_manufacturer", "kit_type", "gene_panel", "coverage_depth"),
		"pipeline":   noData("software", "version", "reference_genome", "variant_caller", "filter_criteria"),
		"qc_metrics": noData("total_reads", "mapped_reads_pct", "mean_coverage",
			"targets_min_depth_pct", "tumor_purity", "qc_status"),
		"snv_indel": []interface{}{},
		"cnv":       []interface{}{},
		"fusion_sv": []interface{}{},
		"additional_biomarkers": map[string]interface{}{
			"tmb":        nil,
			"msi_status": NoNGSData,
		},
		"clinical_interpretation": map[string]interface{}{
			"actionable_mutations": []interface{}{},
			"resistance_mutations": []interface{}{},
			"vus":                  []interface{}{},
		},
	}
}
