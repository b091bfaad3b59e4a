package ddapi

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ErrorBody is the error document the appliance returns with 4xx/5xx codes.
type ErrorBody struct {
	Code    int    `json:"code"`
	Details string `json:"details"`
}

// ExtractDetails returns the human readable message from an error response.
// Bodies that are not an ErrorBody are returned trimmed, or empty when blank.
func ExtractDetails(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}
	var eb ErrorBody
	if err := json.Unmarshal(trimmed, &eb); err == nil && strings.TrimSpace(eb.Details) != "" {
		return strings.TrimSpace(eb.Details)
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return ""
	}
	return string(trimmed)
}

// WriteError encodes an ErrorBody, for servers speaking the same dialect.
func WriteError(code int, details string) []byte {
	data, _ := json.Marshal(ErrorBody{Code: code, Details: details})
	return data
}
