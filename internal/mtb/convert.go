package mtb

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrUnknownFormat indicates a source document matching neither known
// hospital schema.
var ErrUnknownFormat = errors.New("mtb: unknown source format")

// Convert auto-detects the source format and maps the document onto
// the normalized report layout.
func Convert(doc map[string]interface{}) (map[string]interface{}, Format, error) {
	format := Detect(doc)
	switch format {
	case FormatUlm:
		return convertUlm(doc), format, nil
	case FormatFreiburg:
		return convertFreiburg(doc), format, nil
	default:
		return nil, FormatUnknown, ErrUnknownFormat
	}
}

// ConvertBytes parses a raw source document and converts it.
func ConvertBytes(data []byte) (map[string]interface{}, Format, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, FormatUnknown, fmt.Errorf("mtb: parse source document: %w", err)
	}
	return Convert(doc)
}

// ConvertFile reads a source document, converts it, and writes the
// normalized report to outPath as indented JSON.
func ConvertFile(inPath, outPath string) (Format, error) {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return FormatUnknown, fmt.Errorf("read %s: %w", inPath, err)
	}

	normalized, format, err := ConvertBytes(data)
	if err != nil {
		return format, fmt.Errorf("convert %s: %w", inPath, err)
	}

	out, err := json.MarshalIndent(normalized, "", "  ")
	if err != nil {
		return format, fmt.Errorf("encode normalized report: %w", err)
	}
	if err := os.WriteFile(outPath, append(out, '\n'), 0o644); err != nil {
		return format, fmt.Errorf("write %s: %w", outPath, err)
	}
	return format, nil
}

// PatientID returns patient_info.patient_id of a normalized report,
// or "unknown" when absent.
func PatientID(report map[string]interface{}) string {
	id := getString(getMap(report, "patient_info"), "patient_id")
	if id == "" {
		return "unknown"
	}
	return id
}

// ---------------------------------------------------------------------------
// Shared conversion helpers
// ---------------------------------------------------------------------------

func ngsReportOrEmpty(report map[string]interface{}) map[string]interface{} {
	if report == nil {
		return map[string]interface{}{}
	}
	return report
}

// clinicalStage returns the first statusHistory status of a diagnosis,
// or "" when no history is recorded.
func clinicalStage(diagnosis map[string]interface{}) string {
	return getString(firstMap(diagnosis, "statusHistory"), "status")
}

func stripHGNC(id string) string {
	return strings.TrimPrefix(id, "HGNC:")
}

// chromString stringifies the chromosome value, which some exports
// carry as a number and others as a string.
func chromString(m map[string]interface{}) string {
	v := getValue(m, "chromosome")
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	if f, ok := v.(float64); ok && f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprint(v)
}

func fusionPartnerHGNC(fusion map[string]interface{}, key string) string {
	return stripHGNC(getString(getMap(getMap(fusion, key), "gene"), "hgncId"))
}

func fusionPartnerSymbol(fusion map[string]interface{}, key string) string {
	return getString(getMap(getMap(fusion, key), "gene"), "symbol")
}
