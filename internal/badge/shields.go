package badge

import "encoding/json"

// DefaultLabel is the badge label used when the caller does not supply one.
const DefaultLabel = "vibecheck"

// shieldsEndpoint is the shields.io endpoint schema (schemaVersion 1).
type shieldsEndpoint struct {
	SchemaVersion int    `json:"schemaVersion"`
	Label         string `json:"label"`
	Message       string `json:"message"`
	Color         string `json:"color"`
}

// ShieldsJSON returns a shields.io endpoint payload carrying the grade.
func ShieldsJSON(label, grade, color string) string {
	if label == "" {
		label = DefaultLabel
	}
	payload := shieldsEndpoint{
		SchemaVersion: 1,
		Label:         label,
		Message:       grade,
		Color:         color,
	}
	encoded, _ := json.MarshalIndent(payload, "", "  ")
	return string(encoded)
}
