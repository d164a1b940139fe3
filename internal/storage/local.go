package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	metaDirName      = ".meta"
	uploadTempPrefix = ".upload-"
)

// localMeta is the sidecar record kept next to every local blob
type localMeta struct {
	ContentType        string    `json:"contentType"`
	ContentDisposition string    `json:"contentDisposition"`
	CacheControl       string    `json:"cacheControl,omitempty"`
	UploadedAt         time.Time `json:"uploadedAt"`
}

// LocalStorage implements BlobStore on the local filesystem.
// Blobs are served by this API under /blobs and signed uploads are
// redeemed at /api/blob-proxy/upload.
type LocalStorage struct {
	basePath  string
	publicURL string
	signer    UploadSigner
	maxUpload int64
	mu        sync.Mutex
}

// NewLocalStorage creates a new local storage instance
func NewLocalStorage(basePath, publicURL string, signer UploadSigner, maxUpload int64) (*LocalStorage, error) {
	if err := os.MkdirAll(filepath.Join(basePath, metaDirName), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{
		basePath:  basePath,
		publicURL: strings.TrimSuffix(publicURL, "/"),
		signer:    signer,
		maxUpload: maxUpload,
	}, nil
}

func (s *LocalStorage) Backend() string { return "local" }

// BaseURL is the URL prefix local blobs are served from
func (s *LocalStorage) BaseURL() string {
	return s.publicURL + "/blobs"
}

// List returns blobs under the prefix in pathname order
func (s *LocalStorage) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	limit := normalizeLimit(opts.Limit)

	var names []string
	err := filepath.WalkDir(s.basePath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == metaDirName && filepath.Dir(p) == filepath.Clean(s.basePath) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), uploadTempPrefix) {
			return nil
		}
		rel, err := filepath.Rel(s.basePath, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if strings.HasPrefix(name, opts.Prefix) && (opts.Cursor == "" || name > opts.Cursor) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}

	sort.Strings(names)

	result := &ListResult{Blobs: []Blob{}}
	if len(names) > limit {
		names = names[:limit]
		result.HasMore = true
		result.Cursor = names[len(names)-1]
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		blob, err := s.stat(name)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue // removed while listing
			}
			return nil, err
		}
		result.Blobs = append(result.Blobs, *blob)
	}

	return result, nil
}

// Put writes the body to a temporary file and renames it into place
func (s *LocalStorage) Put(ctx context.Context, pathname string, body io.Reader, opts PutOptions) (*Blob, error) {
	name, err := s.validName(pathname, opts)
	if err != nil {
		return nil, err
	}

	fullPath := s.fullPath(name)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fullPath), uploadTempPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after rename

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = guessContentType(name)
	}
	meta := localMeta{
		ContentType:        contentType,
		ContentDisposition: contentDisposition(name),
		CacheControl:       cacheControl(opts.CacheControlMaxAge),
		UploadedAt:         time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !opts.AllowOverwrite {
		if _, err := os.Stat(fullPath); err == nil {
			return nil, ErrAlreadyExists
		}
	}

	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}
	if err := s.writeMeta(name, meta); err != nil {
		return nil, err
	}

	return s.stat(name)
}

// Head returns blob metadata
func (s *LocalStorage) Head(ctx context.Context, pathname string) (*Blob, error) {
	name, err := s.validName(pathname, PutOptions{})
	if err != nil {
		return nil, err
	}
	return s.stat(name)
}

// Open returns the blob contents together with its metadata
func (s *LocalStorage) Open(ctx context.Context, pathname string) (io.ReadCloser, *Blob, error) {
	blob, err := s.Head(ctx, pathname)
	if err != nil {
		return nil, nil, err
	}

	file, err := os.Open(s.fullPath(blob.Pathname))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, blob, nil
}

// Delete removes a blob by URL or pathname; missing blobs are not an error
func (s *LocalStorage) Delete(ctx context.Context, urlOrPathname string) error {
	name, err := ResolvePathname(s.BaseURL(), urlOrPathname)
	if err != nil {
		return err
	}
	if _, err := s.validName(name, PutOptions{}); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.fullPath(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	if err := os.Remove(s.metaPath(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete metadata: %w", err)
	}
	return nil
}

// SignUpload issues an upload token redeemable at this API's upload endpoint
func (s *LocalStorage) SignUpload(ctx context.Context, pathname string, opts SignOptions) (*SignedUpload, error) {
	if s.signer == nil {
		return nil, ErrSigningUnsupported
	}

	name, err := s.validName(pathname, PutOptions{})
	if err != nil {
		return nil, err
	}

	maxSize := opts.ContentLength
	if opts.MaxSize > 0 && (maxSize <= 0 || opts.MaxSize < maxSize) {
		maxSize = opts.MaxSize
	}
	if maxSize <= 0 {
		maxSize = s.maxUpload
	}

	token, expiresAt, err := s.signer.SignUpload(name, opts.ContentType, maxSize, opts.Expires)
	if err != nil {
		return nil, fmt.Errorf("failed to sign upload: %w", err)
	}

	headers := map[string]string{}
	if opts.ContentType != "" {
		headers["Content-Type"] = opts.ContentType
	}

	return &SignedUpload{
		UploadURL: s.publicURL + "/api/blob-proxy/upload?token=" + url.QueryEscape(token),
		URL:       BlobURL(s.BaseURL(), name),
		Pathname:  name,
		Method:    http.MethodPut,
		Headers:   headers,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *LocalStorage) validName(pathname string, opts PutOptions) (string, error) {
	name, err := prepareName(pathname, opts)
	if err != nil {
		return "", err
	}
	if name == metaDirName || strings.HasPrefix(name, metaDirName+"/") || strings.HasPrefix(path.Base(name), uploadTempPrefix) {
		return "", ErrInvalidPathname
	}
	return name, nil
}

func (s *LocalStorage) fullPath(name string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(name))
}

func (s *LocalStorage) metaPath(name string) string {
	return filepath.Join(s.basePath, metaDirName, filepath.FromSlash(name)+".json")
}

func (s *LocalStorage) writeMeta(name string, meta localMeta) error {
	metaPath := s.metaPath(name)
	if err := os.MkdirAll(filepath.Dir(metaPath), 0755); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := os.WriteFile(metaPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// stat builds a Blob from the file and its sidecar. Blobs written without a
// sidecar fall back to the extension's content type and the file mtime.
func (s *LocalStorage) stat(name string) (*Blob, error) {
	info, err := os.Stat(s.fullPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, ErrNotFound
	}

	meta := localMeta{
		ContentType:        guessContentType(name),
		ContentDisposition: contentDisposition(name),
		UploadedAt:         info.ModTime().UTC(),
	}
	if data, err := os.ReadFile(s.metaPath(name)); err == nil {
		_ = json.Unmarshal(data, &meta)
	}

	blobURL := BlobURL(s.BaseURL(), name)
	return &Blob{
		URL:                blobURL,
		DownloadURL:        blobURL + "?download=1",
		Pathname:           name,
		ContentType:        meta.ContentType,
		ContentDisposition: meta.ContentDisposition,
		CacheControl:       meta.CacheControl,
		Size:               info.Size(),
		UploadedAt:         meta.UploadedAt,
	}, nil
}

func guessContentType(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
