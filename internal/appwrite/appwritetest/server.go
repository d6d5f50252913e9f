// Package appwritetest provides an in-memory fake of the backend platform's
// REST API for tests.
package appwritetest

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// DefaultLimit mirrors the platform's default page size.
const DefaultLimit = 25

// Server is a fake platform backed by memory.
type Server struct {
	*httptest.Server

	ProjectID string

	mu          sync.Mutex
	accounts    map[string]*account // by email
	sessions    map[string]string   // secret -> account ID
	collections map[string]*collection
	buckets     map[string]*bucket
	intercept   func(r *http.Request) (int, bool)
	requests    []string
}

type account struct {
	ID       string
	Email    string
	Password string
	Name     string
}

type collection struct {
	order []string
	docs  map[string]map[string]any
}

type bucket struct {
	order []string
	files map[string]*storedFile
}

type storedFile struct {
	meta map[string]any
	data []byte
}

// NewServer starts a fake platform for projectID. It is closed when the
// test ends.
func NewServer(t testing.TB, projectID string) *Server {
	t.Helper()

	s := &Server{
		ProjectID:   projectID,
		accounts:    map[string]*account{},
		sessions:    map[string]string{},
		collections: map[string]*collection{},
		buckets:     map[string]*bucket{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/account", s.createAccount)
	mux.HandleFunc("GET /v1/account", s.getAccount)
	mux.HandleFunc("POST /v1/account/sessions/email", s.createSession)
	mux.HandleFunc("DELETE /v1/account/sessions/{id}", s.deleteSession)
	mux.HandleFunc("POST /v1/databases/{db}/collections/{col}/documents", s.createDocument)
	mux.HandleFunc("GET /v1/databases/{db}/collections/{col}/documents", s.listDocuments)
	mux.HandleFunc("GET /v1/databases/{db}/collections/{col}/documents/{id}", s.getDocument)
	mux.HandleFunc("DELETE /v1/databases/{db}/collections/{col}/documents/{id}", s.deleteDocument)
	mux.HandleFunc("POST /v1/storage/buckets/{bucket}/files", s.createFile)
	mux.HandleFunc("GET /v1/storage/buckets/{bucket}/files", s.listFiles)
	mux.HandleFunc("DELETE /v1/storage/buckets/{bucket}/files/{id}", s.deleteFile)
	mux.HandleFunc("GET /v1/storage/buckets/{bucket}/files/{id}/view", s.viewFile)

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		intercept := s.intercept
		s.mu.Unlock()

		if intercept != nil {
			if status, handled := intercept(r); handled {
				writeError(w, status, "intercepted", "intercepted request")
				return
			}
		}

		// The view endpoint authenticates through the query string.
		project := r.Header.Get("X-Appwrite-Project")
		if project == "" {
			project = r.URL.Query().Get("project")
		}
		if project != s.ProjectID {
			writeError(w, http.StatusNotFound, "project_not_found", "Project with the requested ID could not be found.")
			return
		}

		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(s.Close)

	return s
}

// Endpoint returns the API base URL.
func (s *Server) Endpoint() string {
	return s.URL + "/v1"
}

// Intercept installs fn ahead of every request. When fn reports handled,
// the request fails with the returned status.
func (s *Server) Intercept(fn func(r *http.Request) (status int, handled bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intercept = fn
}

// Requests returns "METHOD path" for every request received.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// Documents returns the documents of a collection in insertion order.
func (s *Server) Documents(databaseID, collectionID string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	col := s.collections[databaseID+"/"+collectionID]
	if col == nil {
		return nil
	}
	out := make([]map[string]any, 0, len(col.order))
	for _, id := range col.order {
		out = append(out, cloneMap(col.docs[id]))
	}
	return out
}

// PutDocument stores a document directly.
func (s *Server) PutDocument(databaseID, collectionID, documentID string, data map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putDocument(databaseID, collectionID, documentID, data)
}

// Files returns the metadata of every file in a bucket.
func (s *Server) Files(bucketID string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.buckets[bucketID]
	if b == nil {
		return nil
	}
	out := make([]map[string]any, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, cloneMap(b.files[id].meta))
	}
	return out
}

// FileData returns the content of a stored file.
func (s *Server) FileData(bucketID, fileID string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b := s.buckets[bucketID]; b != nil {
		if f := b.files[fileID]; f != nil {
			return slices.Clone(f.data)
		}
	}
	return nil
}

// PutFile stores a file directly.
func (s *Server) PutFile(bucketID, fileID, name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putFile(bucketID, fileID, name, "application/octet-stream", data)
}

// AddAccount registers an account directly.
func (s *Server) AddAccount(id, email, password, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[email] = &account{ID: id, Email: email, Password: password, Name: name}
}

func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID   string `json:"userId"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "general_argument_invalid", err.Error())
		return
	}
	if len(body.Password) < 8 {
		writeError(w, http.StatusBadRequest, "general_argument_invalid", "Invalid `password` param: Password must be at least 8 characters")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[body.Email]; exists {
		writeError(w, http.StatusConflict, "user_already_exists", "A user with the same id, email, or phone already exists in this project.")
		return
	}
	id := resolveID(body.UserID)
	acc := &account{ID: id, Email: body.Email, Password: body.Password, Name: body.Name}
	s.accounts[body.Email] = acc

	writeJSON(w, http.StatusCreated, accountJSON(acc))
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "general_argument_invalid", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[body.Email]
	if !ok || acc.Password != body.Password {
		writeError(w, http.StatusUnauthorized, "user_invalid_credentials", "Invalid credentials. Please check the email and password.")
		return
	}

	secret := randomHex(32)
	s.sessions[secret] = acc.ID

	session := map[string]any{
		"$id":      randomHex(10),
		"userId":   acc.ID,
		"expire":   time.Now().Add(365 * 24 * time.Hour).UTC().Format(time.RFC3339),
		"provider": "email",
		"current":  true,
		"secret":   "",
	}
	if r.Header.Get("X-Appwrite-Key") != "" {
		session["secret"] = secret
	} else {
		http.SetCookie(w, &http.Cookie{
			Name:     "a_session_" + strings.ToLower(s.ProjectID),
			Value:    secret,
			Path:     "/",
			HttpOnly: true,
		})
	}

	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.accountForRequest(r)
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "general_unauthorized_scope", "User (role: guests) missing scope (account)")
		return
	}
	writeJSON(w, http.StatusOK, accountJSON(acc))
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	secret := r.Header.Get("X-Appwrite-Session")
	if _, ok := s.sessions[secret]; !ok {
		writeError(w, http.StatusUnauthorized, "general_unauthorized_scope", "User (role: guests) missing scope (account)")
		return
	}
	delete(s.sessions, secret)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) accountForRequest(r *http.Request) *account {
	id, ok := s.sessions[r.Header.Get("X-Appwrite-Session")]
	if !ok {
		return nil
	}
	for _, acc := range s.accounts {
		if acc.ID == id {
			return acc
		}
	}
	return nil
}

func (s *Server) createDocument(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DocumentID  string         `json:"documentId"`
		Data        map[string]any `json:"data"`
		Permissions []string       `json:"permissions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "document_invalid_structure", err.Error())
		return
	}

	db, colID := r.PathValue("db"), r.PathValue("col")
	id := resolveID(body.DocumentID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if col := s.collections[db+"/"+colID]; col != nil {
		if _, exists := col.docs[id]; exists {
			writeError(w, http.StatusConflict, "document_already_exists", "Document with the requested ID already exists.")
			return
		}
	}

	doc := s.putDocument(db, colID, id, body.Data)
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) putDocument(db, colID, id string, data map[string]any) map[string]any {
	key := db + "/" + colID
	col := s.collections[key]
	if col == nil {
		col = &collection{docs: map[string]map[string]any{}}
		s.collections[key] = col
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	doc := cloneMap(data)
	doc["$id"] = id
	doc["$collectionId"] = colID
	doc["$databaseId"] = db
	doc["$createdAt"] = now
	doc["$updatedAt"] = now
	doc["$permissions"] = []string{}

	if _, exists := col.docs[id]; !exists {
		col.order = append(col.order, id)
	}
	col.docs[id] = doc
	return cloneMap(doc)
}

func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	queries, err := parseQueries(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "general_query_invalid", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var docs []map[string]any
	if col := s.collections[r.PathValue("db")+"/"+r.PathValue("col")]; col != nil {
		for _, id := range col.order {
			docs = append(docs, col.docs[id])
		}
	}

	page, total, err := applyQueries(docs, queries)
	if err != nil {
		writeError(w, http.StatusBadRequest, "general_query_invalid", err.Error())
		return
	}

	out := make([]map[string]any, 0, len(page))
	for _, d := range page {
		out = append(out, cloneMap(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": total, "documents": out})
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if col := s.collections[r.PathValue("db")+"/"+r.PathValue("col")]; col != nil {
		if doc, ok := col.docs[r.PathValue("id")]; ok {
			writeJSON(w, http.StatusOK, cloneMap(doc))
			return
		}
	}
	writeError(w, http.StatusNotFound, "document_not_found", "Document with the requested ID could not be found.")
}

func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := r.PathValue("id")
	col := s.collections[r.PathValue("db")+"/"+r.PathValue("col")]
	if col == nil || col.docs[id] == nil {
		writeError(w, http.StatusNotFound, "document_not_found", "Document with the requested ID could not be found.")
		return
	}
	delete(col.docs, id)
	col.order = slices.DeleteFunc(col.order, func(v string) bool { return v == id })
	w.WriteHeader(http.StatusNoContent)
}

var contentRangePattern = regexp.MustCompile(`^bytes (\d+)-(\d+)/(\d+)$`)

func (s *Server) createFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "storage_invalid_file", err.Error())
		return
	}
	part, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "storage_invalid_file", err.Error())
		return
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		writeError(w, http.StatusBadRequest, "storage_invalid_file", err.Error())
		return
	}

	bucketID := r.PathValue("bucket")
	contentType := header.Header.Get("Content-Type")

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing := r.Header.Get("X-Appwrite-ID"); existing != "" {
		b := s.buckets[bucketID]
		if b == nil || b.files[existing] == nil {
			writeError(w, http.StatusNotFound, "storage_file_not_found", "The requested file could not be found.")
			return
		}
		f := b.files[existing]
		f.data = append(f.data, data...)
		f.meta["sizeOriginal"] = len(f.data)
		f.meta["chunksUploaded"] = f.meta["chunksUploaded"].(int) + 1
		writeJSON(w, http.StatusCreated, cloneMap(f.meta))
		return
	}

	id := resolveID(r.FormValue("fileId"))
	if b := s.buckets[bucketID]; b != nil && b.files[id] != nil {
		writeError(w, http.StatusConflict, "storage_file_already_exists", "A storage file with the requested ID already exists.")
		return
	}

	f := s.putFile(bucketID, id, header.Filename, contentType, data)
	if m := contentRangePattern.FindStringSubmatch(r.Header.Get("Content-Range")); m != nil {
		total, _ := strconv.Atoi(m[3])
		f.meta["chunksTotal"] = (total + len(data) - 1) / len(data)
	}
	writeJSON(w, http.StatusCreated, cloneMap(f.meta))
}

func (s *Server) putFile(bucketID, id, name, contentType string, data []byte) *storedFile {
	b := s.buckets[bucketID]
	if b == nil {
		b = &bucket{files: map[string]*storedFile{}}
		s.buckets[bucketID] = b
	}
	f := &storedFile{
		meta: map[string]any{
			"$id":            id,
			"bucketId":       bucketID,
			"$createdAt":     time.Now().UTC().Format(time.RFC3339Nano),
			"$permissions":   []string{},
			"name":           name,
			"mimeType":       contentType,
			"sizeOriginal":   len(data),
			"chunksTotal":    1,
			"chunksUploaded": 1,
		},
		data: slices.Clone(data),
	}
	if _, exists := b.files[id]; !exists {
		b.order = append(b.order, id)
	}
	b.files[id] = f
	return f
}

func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	queries, err := parseQueries(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "general_query_invalid", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var files []map[string]any
	if b := s.buckets[r.PathValue("bucket")]; b != nil {
		for _, id := range b.order {
			files = append(files, b.files[id].meta)
		}
	}

	page, total, err := applyQueries(files, queries)
	if err != nil {
		writeError(w, http.StatusBadRequest, "general_query_invalid", err.Error())
		return
	}

	out := make([]map[string]any, 0, len(page))
	for _, f := range page {
		out = append(out, cloneMap(f))
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": total, "files": out})
}

func (s *Server) deleteFile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := r.PathValue("id")
	b := s.buckets[r.PathValue("bucket")]
	if b == nil || b.files[id] == nil {
		writeError(w, http.StatusNotFound, "storage_file_not_found", "The requested file could not be found.")
		return
	}
	delete(b.files, id)
	b.order = slices.DeleteFunc(b.order, func(v string) bool { return v == id })
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) viewFile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.buckets[r.PathValue("bucket")]
	if b == nil || b.files[r.PathValue("id")] == nil {
		writeError(w, http.StatusNotFound, "storage_file_not_found", "The requested file could not be found.")
		return
	}
	f := b.files[r.PathValue("id")]
	w.Header().Set("Content-Type", fmt.Sprint(f.meta["mimeType"]))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(f.data)
}

type parsedQuery struct {
	Method    string `json:"method"`
	Attribute string `json:"attribute"`
	Values    []any  `json:"values"`
}

func parseQueries(r *http.Request) ([]parsedQuery, error) {
	var out []parsedQuery
	for _, raw := range r.URL.Query()["queries[]"] {
		var q parsedQuery
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			return nil, fmt.Errorf("invalid query %q: %w", raw, err)
		}
		out = append(out, q)
	}
	return out, nil
}

// applyQueries filters and pages items. Total counts matches before paging.
func applyQueries(items []map[string]any, queries []parsedQuery) ([]map[string]any, int, error) {
	limit := DefaultLimit
	offset := 0
	cursor := ""

	filtered := items
	for _, q := range queries {
		switch q.Method {
		case "equal":
			filtered = slices.DeleteFunc(slices.Clone(filtered), func(item map[string]any) bool {
				return !matchesEqual(item[q.Attribute], q.Values)
			})
		case "search":
			if len(q.Values) != 1 {
				return nil, 0, fmt.Errorf("search expects one value")
			}
			needle := strings.ToLower(fmt.Sprint(q.Values[0]))
			filtered = slices.DeleteFunc(slices.Clone(filtered), func(item map[string]any) bool {
				return !strings.Contains(strings.ToLower(fmt.Sprint(item[q.Attribute])), needle)
			})
		case "limit":
			n, err := intValue(q.Values)
			if err != nil {
				return nil, 0, err
			}
			limit = n
		case "offset":
			n, err := intValue(q.Values)
			if err != nil {
				return nil, 0, err
			}
			offset = n
		case "cursorAfter":
			if len(q.Values) != 1 {
				return nil, 0, fmt.Errorf("cursorAfter expects one value")
			}
			cursor = fmt.Sprint(q.Values[0])
		case "orderAsc", "orderDesc":
			attr := q.Attribute
			desc := q.Method == "orderDesc"
			filtered = slices.Clone(filtered)
			slices.SortStableFunc(filtered, func(a, b map[string]any) int {
				c := strings.Compare(fmt.Sprint(a[attr]), fmt.Sprint(b[attr]))
				if desc {
					return -c
				}
				return c
			})
		default:
			return nil, 0, fmt.Errorf("unsupported query method %q", q.Method)
		}
	}

	total := len(filtered)

	if cursor != "" {
		idx := slices.IndexFunc(filtered, func(item map[string]any) bool { return item["$id"] == cursor })
		if idx < 0 {
			return nil, 0, fmt.Errorf("cursor %q not found", cursor)
		}
		filtered = filtered[idx+1:]
	}
	if offset > len(filtered) {
		offset = len(filtered)
	}
	filtered = filtered[offset:]
	if limit < len(filtered) {
		filtered = filtered[:limit]
	}
	return filtered, total, nil
}

func matchesEqual(value any, candidates []any) bool {
	// Relationship attributes may hold an expanded document.
	if doc, ok := value.(map[string]any); ok {
		value = doc["$id"]
	}
	for _, c := range candidates {
		if fmt.Sprint(value) == fmt.Sprint(c) {
			return true
		}
	}
	return false
}

func intValue(values []any) (int, error) {
	if len(values) != 1 {
		return 0, fmt.Errorf("expected one numeric value")
	}
	f, ok := values[0].(float64)
	if !ok {
		return 0, fmt.Errorf("expected numeric value, got %T", values[0])
	}
	return int(f), nil
}

func resolveID(id string) string {
	if id == "" || id == "unique()" {
		return randomHex(10)
	}
	return id
}

func accountJSON(acc *account) map[string]any {
	return map[string]any{
		"$id":               acc.ID,
		"name":              acc.Name,
		"email":             acc.Email,
		"status":            true,
		"emailVerification": false,
		"registration":      time.Now().UTC().Format(time.RFC3339),
	}
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, typ, message string) {
	writeJSON(w, status, map[string]any{
		"message": message,
		"code":    status,
		"type":    typ,
		"version": "1.5.0",
	})
}
