package mtb

// Placeholder values written into normalized reports when a source
// document does not carry the corresponding data.
const (
	NotSpecified = "Not specified"
	NoNGSData    = "No NGS data"
)

// Navigation helpers for the untyped hospital documents. All of them
// tolerate missing keys and wrong types, returning zero values, so
// conversion never panics on a sparse export.

func getMap(m map[string]interface{}, key string) map[string]interface{} {
	v, _ := m[key].(map[string]interface{})
	return v
}

func getSlice(m map[string]interface{}, key string) []interface{} {
	v, _ := m[key].([]interface{})
	return v
}

// firstMap returns the first element of m[key] as a map, or nil when
// the slice is absent or empty.
func firstMap(m map[string]interface{}, key string) map[string]interface{} {
	s := getSlice(m, key)
	if len(s) == 0 {
		return nil
	}
	v, _ := s[0].(map[string]interface{})
	return v
}

func getString(m map[string]interface{}, key string) string {
	v, _ := m[key].(string)
	return v
}

// getValue returns the raw value for key, or nil when absent.
func getValue(m map[string]interface{}, key string) interface{} {
	return m[key]
}

// getValueOr returns the raw value for key, or fallback when the key
// is absent entirely (a present null is returned as nil).
func getValueOr(m map[string]interface{}, key string, fallback interface{}) interface{} {
	if v, ok := m[key]; ok {
		return v
	}
	return fallback
}

func getFloat(m map[string]interface{}, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

// asMap converts an arbitrary slice element to a map, or nil.
func asMap(v interface{}) map[string]interface{} {
	m, _ := v.(map[string]interface{})
	return m
}
