package mtb

import "strings"

// convertUlm maps an Ulm MTB export onto the normalized report layout.
// Ulm carries the patient reference under episode.patient, prefixes
// nothing, and reports allelic frequency in percent (converted here to
// a 0..1 fraction).
func convertUlm(doc map[string]interface{}) map[string]interface{} {
	specimen := firstMap(doc, "specimens")
	diagnosis := firstMap(doc, "diagnoses")
	ngsReport := firstMap(doc, "ngsReports")
	metadata := firstMap(ngsReportOrEmpty(ngsReport), "metadata")

	patientID := getString(getMap(doc, "episode"), "patient")
	if patientID == "" {
		patientID = "unknown"
	}

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
			"gene_panel":       getString(ngsReportOrEmpty(ngsReport), "sequencingType"),
			"coverage_depth":   NotSpecified,
		},
		"pipeline": map[string]interface{}{
			// Some Ulm exports URL-encode spaces in the pipeline name.
			"software":         strings.ReplaceAll(getString(metadata, "pipeline"), "%20", " "),
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
			"tumor_purity":          NotSpecified,
			"qc_status":             NotSpecified,
		},
		"snv_indel": []interface{}{},
		"cnv":       []interface{}{},
		"fusion_sv": []interface{}{},
		"additional_biomarkers": map[string]interface{}{
			"tmb":        getValue(ngsReportOrEmpty(ngsReport), "tmb"),
			"tmb_unit":   "mutations/Mb",
			"msi_status": NotSpecified,
		},
		"clinical_interpretation": map[string]interface{}{
			"actionable_mutations": []interface{}{},
			"resistance_mutations": []interface{}{},
			"vus":                  []interface{}{},
		},
	}

	report := ngsReportOrEmpty(ngsReport)

	var variants []interface{}
	for _, v := range getSlice(report, "simpleVariants") {
		variant := asMap(v)
		if variant == nil {
			continue
		}
		variants = append(variants, map[string]interface{}{
			"gene":          stripHGNC(getString(getMap(variant, "gene"), "hgncId")),
			"chr":           "chr" + chromString(variant),
			"pos":           getValue(getMap(variant, "startEnd"), "start"),
			"ref":           getString(variant, "refAllele"),
			"alt":           getString(variant, "altAllele"),
			"consequence":   NotSpecified,
			"aa_change":     getString(getMap(variant, "aminoAcidChange"), "code"),
			"dna_change":    getString(getMap(variant, "dnaChange"), "code"),
			"vaf":           getFloat(variant, "allelicFrequency") / 100.0,
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
		cnvs = append(cnvs, map[string]interface{}{
			"gene":        stripHGNC(getString(getMap(cnv, "gene"), "hgncId")),
			"chr":         "chr" + chromString(cnv),
			"start":       getValue(getMap(cnv, "startRange"), "start"),
			"end":         getValue(getMap(cnv, "startRange"), "end"),
			"copy_number": getValue(cnv, "copyNumber"),
			"status":      getString(cnv, "type"),
			"confidence":  NotSpecified,
			"method":      NotSpecified,
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
			"gene_5prime":      fusionPartnerHGNC(fusion, "fusionPartner5prime"),
			"gene_3prime":      fusionPartnerHGNC(fusion, "fusionPartner3prime"),
			"supporting_reads": NotSpecified,
			"frame_status":     NotSpecified,
			"fusion_type":      NotSpecified,
		})
	}
	if fusions != nil {
		out["fusion_sv"] = fusions
	}

	var actionable []interface{}
	for _, v := range getSlice(doc, "recommendations") {
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
				"variant_ids":    getSlice(rec, "supportingVariants"),
				"therapy":        getString(med, "display"),
				"evidence_level": getString(getMap(getMap(rec, "levelOfEvidence"), "grading"), "code"),
				"priority":       getValue(rec, "priority"),
				"issued_date":    getString(rec, "issuedOn"),
			})
		}
	}
	if actionable != nil {
		getMap(out, "clinical_interpretation")["actionable_mutations"] = actionable
	}

	return out
}
