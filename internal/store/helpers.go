package store

import (
	"encoding/json"
	"strings"
)

// placeholderList returns "?,?,?" for n placeholders.
func placeholderList(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

// int64sToArgs converts []int64 to []any for use with database/sql.
func int64sToArgs(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// marshalAttrs converts []string to JSON text for storage.
func marshalAttrs(attrs []string) string {
	if len(attrs) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(attrs)
	return string(b)
}

// unmarshalAttrs converts JSON text back to []string.
func unmarshalAttrs(s string) []string {
	if s == "" || s == "null" {
		return nil
	}
	var attrs []string
	_ = json.Unmarshal([]byte(s), &attrs)
	return attrs
}
