package mtb

// Format identifies the hospital export schema of a source document.
type Format string

const (
	// FormatUlm is the Ulm MTB export: ngsReports at the top level.
	FormatUlm Format = "ulm"

	// FormatFreiburg is the Freiburg MTB export: the payload nested
	// under a "data" envelope with ngsReports inside it.
	FormatFreiburg Format = "freiburg"

	// FormatUnknown is any document matching neither known schema.
	FormatUnknown Format = "unknown"
)

// Detect inspects a parsed source document and reports its format.
// Freiburg is checked first: its envelope can in principle carry a
// top-level ngsReports key as well, and the nested form wins.
func Detect(doc map[string]interface{}) Format {
	if data, ok := doc["data"].(map[string]interface{}); ok {
		if _, ok := data["ngsReports"]; ok {
			return FormatFreiburg
		}
	}
	if _, ok := doc["ngsReports"]; ok {
		return FormatUlm
	}
	return FormatUnknown
}
