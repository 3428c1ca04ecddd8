package model

import "encoding/json"

// CloneMetadata returns a shallow copy so callers can mutate freely.
func CloneMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	cp := make(map[string]any, len(meta))
	for k, v := range meta {
		cp[k] = v
	}
	return cp
}

// EncodeMetadata renders metadata as a JSON object string, "{}" when empty.
func EncodeMetadata(meta map[string]any) string {
	if len(meta) == 0 {
		return "{}"
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// DecodeMetadata parses a JSON object string, tolerating empty and malformed
// input.
func DecodeMetadata(metadata string) map[string]any {
	if metadata == "" {
		return map[string]any{}
	}
	var meta map[string]any
	if err := json.Unmarshal([]byte(metadata), &meta); err != nil {
		return map[string]any{}
	}
	return meta
}
