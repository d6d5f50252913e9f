package appwrite

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Document is a database document. Metadata fields are decoded eagerly;
// the attributes stay raw until Decode is called.
type Document struct {
	ID           string   `json:"$id"`
	CollectionID string   `json:"$collectionId"`
	DatabaseID   string   `json:"$databaseId"`
	CreatedAt    string   `json:"$createdAt"`
	UpdatedAt    string   `json:"$updatedAt"`
	Permissions  []string `json:"$permissions"`

	raw json.RawMessage
}

// UnmarshalJSON keeps the raw document for later decoding.
func (d *Document) UnmarshalJSON(data []byte) error {
	type metadata Document
	var m metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*d = Document(m)
	d.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON returns the document as received.
func (d Document) MarshalJSON() ([]byte, error) {
	if d.raw != nil {
		return d.raw, nil
	}
	type metadata Document
	return json.Marshal(metadata(d))
}

// Decode unmarshals the document attributes into v.
func (d *Document) Decode(v any) error {
	if d.raw == nil {
		return fmt.Errorf("document %s has no body", d.ID)
	}
	return json.Unmarshal(d.raw, v)
}

// DocumentList is a page of documents.
type DocumentList struct {
	Total     int        `json:"total"`
	Documents []Document `json:"documents"`
}

// DecodeDocuments decodes every document of a list into T.
func DecodeDocuments[T any](list *DocumentList) ([]T, error) {
	out := make([]T, 0, len(list.Documents))
	for i := range list.Documents {
		var v T
		if err := list.Documents[i].Decode(&v); err != nil {
			return nil, fmt.Errorf("failed to decode document %s: %w", list.Documents[i].ID, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Databases wraps the document database endpoints.
type Databases struct {
	client *Client
}

// NewDatabases creates a databases service on top of c.
func NewDatabases(c *Client) *Databases {
	return &Databases{client: c}
}

func documentsPath(databaseID, collectionID string) string {
	return "/databases/" + url.PathEscape(databaseID) + "/collections/" + url.PathEscape(collectionID) + "/documents"
}

func queryValues(queries []string) url.Values {
	if len(queries) == 0 {
		return nil
	}
	return url.Values{"queries[]": queries}
}

// CreateDocument creates a document with the given ID and attributes.
func (d *Databases) CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data any, permissions ...string) (*Document, error) {
	payload := map[string]any{
		"documentId": documentID,
		"data":       data,
	}
	if len(permissions) > 0 {
		payload["permissions"] = permissions
	}

	var doc Document
	if _, err := d.client.call(ctx, http.MethodPost, documentsPath(databaseID, collectionID), nil, payload, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetDocument fetches a single document.
func (d *Databases) GetDocument(ctx context.Context, databaseID, collectionID, documentID string, queries ...string) (*Document, error) {
	var doc Document
	path := documentsPath(databaseID, collectionID) + "/" + url.PathEscape(documentID)
	if _, err := d.client.call(ctx, http.MethodGet, path, queryValues(queries), nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListDocuments lists documents matching the queries.
func (d *Databases) ListDocuments(ctx context.Context, databaseID, collectionID string, queries ...string) (*DocumentList, error) {
	var list DocumentList
	if _, err := d.client.call(ctx, http.MethodGet, documentsPath(databaseID, collectionID), queryValues(queries), nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// DeleteDocument deletes a document.
func (d *Databases) DeleteDocument(ctx context.Context, databaseID, collectionID, documentID string) error {
	path := documentsPath(databaseID, collectionID) + "/" + url.PathEscape(documentID)
	_, err := d.client.call(ctx, http.MethodDelete, path, nil, nil, nil)
	return err
}
