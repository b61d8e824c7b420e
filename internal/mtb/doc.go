// Package mtb harmonizes heterogeneous molecular tumor board (MTB)
// NGS exports into a single normalized report document. Each hospital
// ships its own JSON shape; Detect recognizes the source format and
// Convert maps it onto the normalized section layout (patient_info,
// sequencing, pipeline, qc_metrics, variant tables, biomarkers and
// clinical interpretation) that the downstream validation and TSV
// extraction stages consume.
//
// Documents are handled as map[string]interface{} throughout: the
// hospital exports are untyped and partially populated, and the
// normalized report deliberately preserves raw values (numbers stay
// numbers, absent data stays explicit placeholder text) for faithful
// TSV emission.
package mtb
