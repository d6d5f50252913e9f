package appwrite

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// query is the JSON query format understood by list endpoints.
type query struct {
	Method    string `json:"method"`
	Attribute string `json:"attribute,omitempty"`
	Values    []any  `json:"values,omitempty"`
}

func (q query) String() string {
	b, err := json.Marshal(q)
	if err != nil {
		// Values are built from strings and ints only.
		panic(err)
	}
	return string(b)
}

// Equal filters documents whose attribute equals any of the values.
func Equal(attribute string, values ...any) string {
	return query{Method: "equal", Attribute: attribute, Values: values}.String()
}

// Search runs a full-text search on an indexed attribute.
func Search(attribute, value string) string {
	return query{Method: "search", Attribute: attribute, Values: []any{value}}.String()
}

// Limit caps the number of returned documents.
func Limit(n int) string {
	return query{Method: "limit", Values: []any{n}}.String()
}

// Offset skips the first n documents.
func Offset(n int) string {
	return query{Method: "offset", Values: []any{n}}.String()
}

// CursorAfter returns documents after the given document ID.
func CursorAfter(id string) string {
	return query{Method: "cursorAfter", Values: []any{id}}.String()
}

// OrderAsc sorts by attribute ascending.
func OrderAsc(attribute string) string {
	return query{Method: "orderAsc", Attribute: attribute}.String()
}

// OrderDesc sorts by attribute descending.
func OrderDesc(attribute string) string {
	return query{Method: "orderDesc", Attribute: attribute}.String()
}

// UniqueID generates a new document, file or account ID. IDs are 32
// lowercase hex characters, within the platform's 36-character limit.
func UniqueID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
