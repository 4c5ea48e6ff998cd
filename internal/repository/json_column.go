package repository

import "encoding/json"

// jsonColumn marshals an opaque extracted-data map for storage in a jsonb
// column. ScanResult.ExtractedData is intentionally untyped.
func jsonColumn(v map[string]interface{}) []byte {
	if v == nil {
		return []byte("{}")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return b
}

func decodeJSONColumn(data []byte) map[string]interface{} {
	if len(data) == 0 {
		return map[string]interface{}{}
	}
	var v map[string]interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return map[string]interface{}{}
	}
	return v
}
