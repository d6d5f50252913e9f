package appwrite

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
)

// ChunkSize is the largest payload sent in a single upload request; larger
// files are uploaded in Content-Range chunks.
const ChunkSize = 5 * 1024 * 1024

// File is a stored file.
type File struct {
	ID             string   `json:"$id"`
	BucketID       string   `json:"bucketId"`
	CreatedAt      string   `json:"$createdAt"`
	Permissions    []string `json:"$permissions"`
	Name           string   `json:"name"`
	MimeType       string   `json:"mimeType"`
	SizeOriginal   int64    `json:"sizeOriginal"`
	ChunksTotal    int      `json:"chunksTotal"`
	ChunksUploaded int      `json:"chunksUploaded"`
}

// FileList is a page of files.
type FileList struct {
	Total int    `json:"total"`
	Files []File `json:"files"`
}

// InputFile is an in-memory file to upload.
type InputFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// Storage wraps the file storage endpoints.
type Storage struct {
	client    *Client
	chunkSize int
}

// NewStorage creates a storage service on top of c.
func NewStorage(c *Client) *Storage {
	return &Storage{client: c, chunkSize: ChunkSize}
}

func filesPath(bucketID string) string {
	return "/storage/buckets/" + url.PathEscape(bucketID) + "/files"
}

// CreateFile uploads a file into a bucket.
func (s *Storage) CreateFile(ctx context.Context, bucketID, fileID string, file InputFile, permissions ...string) (*File, error) {
	if file.Name == "" {
		return nil, fmt.Errorf("file name is required")
	}
	if len(file.Data) == 0 {
		return nil, fmt.Errorf("file %s is empty", file.Name)
	}
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	total := len(file.Data)
	if total <= s.chunkSize {
		return s.uploadChunk(ctx, bucketID, fileID, file.Name, contentType, file.Data, nil, permissions)
	}

	var (
		uploaded *File
		err      error
	)
	for start := 0; start < total; start += s.chunkSize {
		end := min(start+s.chunkSize, total)

		header := http.Header{}
		header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end-1, total))
		if uploaded != nil {
			header.Set("X-Appwrite-ID", uploaded.ID)
		}

		uploaded, err = s.uploadChunk(ctx, bucketID, fileID, file.Name, contentType, file.Data[start:end], header, permissions)
		if err != nil {
			return nil, fmt.Errorf("failed to upload chunk at offset %d: %w", start, err)
		}
	}
	return uploaded, nil
}

func (s *Storage) uploadChunk(
	ctx context.Context,
	bucketID, fileID, name, contentType string,
	chunk []byte,
	header http.Header,
	permissions []string,
) (*File, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("fileId", fileID); err != nil {
		return nil, err
	}
	for _, p := range permissions {
		if err := w.WriteField("permissions[]", p); err != nil {
			return nil, err
		}
	}

	partHeader := textproto.MIMEHeader{}
	partHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	partHeader.Set("Content-Type", contentType)
	part, err := w.CreatePart(partHeader)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(chunk); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	var out File
	_, err = s.client.do(ctx, request{
		method:      http.MethodPost,
		path:        filesPath(bucketID),
		body:        &buf,
		contentType: w.FormDataContentType(),
		header:      header,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListFiles lists files in a bucket.
func (s *Storage) ListFiles(ctx context.Context, bucketID string, queries ...string) (*FileList, error) {
	var list FileList
	if _, err := s.client.call(ctx, http.MethodGet, filesPath(bucketID), queryValues(queries), nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// DeleteFile deletes a file from a bucket.
func (s *Storage) DeleteFile(ctx context.Context, bucketID, fileID string) error {
	_, err := s.client.call(ctx, http.MethodDelete, filesPath(bucketID)+"/"+url.PathEscape(fileID), nil, nil, nil)
	return err
}

// FileViewURL returns the public view URL of a file. No request is made.
func (s *Storage) FileViewURL(bucketID, fileID string) string {
	return s.client.endpoint + filesPath(bucketID) + "/" + url.PathEscape(fileID) +
		"/view?project=" + url.QueryEscape(s.client.projectID)
}
