package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sanisidro/fiscal-api/internal/config"
	"go.uber.org/zap"
)

const (
	// DefaultListLimit is used when a list request does not ask for a limit
	DefaultListLimit = 1000
	// MaxListLimit caps a single list page
	MaxListLimit = 1000
)

var (
	// ErrNotFound is returned when a blob does not exist
	ErrNotFound = errors.New("blob not found")
	// ErrAlreadyExists is returned by Put when overwriting is not allowed
	ErrAlreadyExists = errors.New("blob already exists")
	// ErrInvalidPathname is returned for empty, absolute or escaping pathnames
	ErrInvalidPathname = errors.New("invalid pathname")
	// ErrSigningUnsupported is returned when a backend cannot issue signed uploads
	ErrSigningUnsupported = errors.New("signed uploads not supported by storage backend")
)

// Blob describes a stored object
type Blob struct {
	URL                string    `json:"url"`
	DownloadURL        string    `json:"downloadUrl"`
	Pathname           string    `json:"pathname"`
	ContentType        string    `json:"contentType,omitempty"`
	ContentDisposition string    `json:"contentDisposition,omitempty"`
	CacheControl       string    `json:"cacheControl,omitempty"`
	Size               int64     `json:"size"`
	UploadedAt         time.Time `json:"uploadedAt"`
}

// ListOptions filters and pages a List call
type ListOptions struct {
	Prefix string
	Limit  int
	Cursor string
}

// ListResult is one page of blobs
type ListResult struct {
	Blobs   []Blob `json:"blobs"`
	Cursor  string `json:"cursor,omitempty"`
	HasMore bool   `json:"hasMore"`
}

// PutOptions controls how a blob is written
type PutOptions struct {
	Access             string
	ContentType        string
	AddRandomSuffix    bool
	AllowOverwrite     bool
	CacheControlMaxAge int
}

// SignOptions controls a signed upload
type SignOptions struct {
	ContentType   string
	ContentLength int64
	// MaxSize caps uploads on backends that enforce a limit at redeem time.
	// Presigned cloud URLs ignore it.
	MaxSize int64
	Expires time.Duration
}

// SignedUpload is a pre-authorised upload target handed to a client
type SignedUpload struct {
	UploadURL string            `json:"uploadUrl"`
	URL       string            `json:"url"`
	Pathname  string            `json:"pathname"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers,omitempty"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

// BlobStore defines the operations the blob proxy forwards to a storage backend
type BlobStore interface {
	Backend() string
	List(ctx context.Context, opts ListOptions) (*ListResult, error)
	Put(ctx context.Context, pathname string, body io.Reader, opts PutOptions) (*Blob, error)
	Head(ctx context.Context, pathname string) (*Blob, error)
	Delete(ctx context.Context, urlOrPathname string) error
	SignUpload(ctx context.Context, pathname string, opts SignOptions) (*SignedUpload, error)
}

// Opener is implemented by stores that can stream blob content
type Opener interface {
	Open(ctx context.Context, pathname string) (io.ReadCloser, *Blob, error)
}

// UploadSigner issues tokens the local backend accepts in place of a signed URL
type UploadSigner interface {
	SignUpload(pathname, contentType string, maxSize int64, ttl time.Duration) (string, time.Time, error)
}

// NewStorage creates a blob store based on configuration.
// The local backend serves blobs and redeems upload tokens through this API
// at publicURL; the cloud backends talk to their service directly.
func NewStorage(ctx context.Context, cfg *config.StorageConfig, publicURL string, signer UploadSigner, logger *zap.Logger) (BlobStore, error) {
	switch cfg.Mode {
	case "local":
		return NewLocalStorage(cfg.LocalBasePath, publicURL, signer, cfg.MaxUploadSizeMB*1024*1024)
	case "cloud", "azure":
		if cfg.CloudConnectionString == "" {
			return nil, fmt.Errorf("cloud connection string required for azure storage")
		}
		return NewAzureBlobStorage(ctx, cfg.CloudConnectionString, cfg.CloudContainer, logger)
	case "s3":
		return NewS3Storage(ctx, &cfg.S3, logger)
	case "gcs", "firebase":
		return NewGCSStorage(ctx, &cfg.GCS, logger)
	default:
		return nil, fmt.Errorf("unsupported storage mode: %s", cfg.Mode)
	}
}

// CleanPathname normalises a blob pathname. Leading slashes are dropped;
// empty names and ".." segments are rejected.
func CleanPathname(p string) (string, error) {
	p = strings.TrimLeft(strings.TrimSpace(p), "/")
	if p == "" {
		return "", ErrInvalidPathname
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", ErrInvalidPathname
		}
	}
	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == "" {
		return "", ErrInvalidPathname
	}
	return cleaned, nil
}

// ResolvePathname accepts either a blob URL under baseURL or a bare pathname
func ResolvePathname(baseURL, urlOrPathname string) (string, error) {
	s := strings.TrimSpace(urlOrPathname)
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return CleanPathname(s)
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPathname, err)
	}
	u.RawQuery = ""
	u.Fragment = ""

	base := strings.TrimSuffix(baseURL, "/") + "/"
	full := u.String()
	if !strings.HasPrefix(full, base) {
		return "", fmt.Errorf("%w: url does not belong to this store", ErrInvalidPathname)
	}

	rest, err := url.PathUnescape(strings.TrimPrefix(full, base))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPathname, err)
	}
	return CleanPathname(rest)
}

// BlobURL joins a base URL and a pathname, escaping each segment
func BlobURL(baseURL, pathname string) string {
	segments := strings.Split(pathname, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.TrimSuffix(baseURL, "/") + "/" + strings.Join(segments, "/")
}

// withRandomSuffix inserts a random token before the file extension
func withRandomSuffix(pathname string) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:21]
	ext := path.Ext(pathname)
	return strings.TrimSuffix(pathname, ext) + "-" + suffix + ext
}

// contentDisposition returns an inline disposition naming the blob's file
func contentDisposition(pathname string) string {
	return fmt.Sprintf("inline; filename=%q", path.Base(pathname))
}

// cacheControl renders a max-age directive; zero keeps the backend default
func cacheControl(maxAge int) string {
	if maxAge <= 0 {
		return ""
	}
	return fmt.Sprintf("public, max-age=%d", maxAge)
}

// normalizeLimit applies the default and maximum page sizes
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// prepareName validates the pathname and applies the random suffix option
func prepareName(pathname string, opts PutOptions) (string, error) {
	name, err := CleanPathname(pathname)
	if err != nil {
		return "", err
	}
	if opts.AddRandomSuffix {
		name = withRandomSuffix(name)
	}
	return name, nil
}

// countingReader wraps an io.Reader and counts the number of bytes read
type countingReader struct {
	r     io.Reader
	count int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.count += int64(n)
	return n, err
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
