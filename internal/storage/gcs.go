package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/sanisidro/fiscal-api/internal/config"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStorage implements BlobStore for Google Cloud Storage, which also backs
// Firebase Storage buckets
type GCSStorage struct {
	client     *gcs.Client
	bucketName string
	publicURL  string
	logger     *zap.Logger
}

// NewGCSStorage creates a Cloud Storage backed blob store from configuration
func NewGCSStorage(ctx context.Context, cfg *config.GCSConfig, logger *zap.Logger) (*GCSStorage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage.gcs.bucket is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	publicURL := strings.TrimSuffix(cfg.PublicURL, "/")
	if publicURL == "" {
		publicURL = "https://storage.googleapis.com/" + cfg.Bucket
	}

	logger.Info("Google Cloud Storage initialized",
		zap.String("bucket", cfg.Bucket),
	)

	return &GCSStorage{
		client:     client,
		bucketName: cfg.Bucket,
		publicURL:  publicURL,
		logger:     logger,
	}, nil
}

func (s *GCSStorage) Backend() string { return "gcs" }

func (s *GCSStorage) bucket() *gcs.BucketHandle {
	return s.client.Bucket(s.bucketName)
}

// List returns one page of objects under the prefix
func (s *GCSStorage) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	it := s.bucket().Objects(ctx, &gcs.Query{Prefix: opts.Prefix})

	var attrs []*gcs.ObjectAttrs
	next, err := iterator.NewPager(it, normalizeLimit(opts.Limit), opts.Cursor).NextPage(&attrs)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	result := &ListResult{Blobs: []Blob{}, Cursor: next, HasMore: next != ""}
	for _, a := range attrs {
		result.Blobs = append(result.Blobs, s.blob(a))
	}
	return result, nil
}

// Put streams an object into the bucket. Without AllowOverwrite the write is
// conditional on the object not existing.
func (s *GCSStorage) Put(ctx context.Context, pathname string, body io.Reader, opts PutOptions) (*Blob, error) {
	name, err := prepareName(pathname, opts)
	if err != nil {
		return nil, err
	}

	obj := s.bucket().Object(name)
	if !opts.AllowOverwrite {
		obj = obj.If(gcs.Conditions{DoesNotExist: true})
	}

	w := obj.NewWriter(ctx)
	w.ContentType = opts.ContentType
	if w.ContentType == "" {
		w.ContentType = guessContentType(name)
	}
	w.ContentDisposition = contentDisposition(name)
	w.CacheControl = cacheControl(opts.CacheControlMaxAge)

	if _, err := io.Copy(w, body); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to write object: %w", err)
	}
	if err := w.Close(); err != nil {
		var gErr *googleapi.Error
		if errors.As(err, &gErr) && gErr.Code == http.StatusPreconditionFailed {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to write object: %w", err)
	}

	attrs := w.Attrs()
	s.logger.Info("Object uploaded to Cloud Storage",
		zap.String("object", name),
		zap.String("bucket", s.bucketName),
		zap.String("contentType", attrs.ContentType),
		zap.Int64("size", attrs.Size),
	)

	b := s.blob(attrs)
	return &b, nil
}

// Head returns object attributes
func (s *GCSStorage) Head(ctx context.Context, pathname string) (*Blob, error) {
	name, err := CleanPathname(pathname)
	if err != nil {
		return nil, err
	}

	attrs, err := s.bucket().Object(name).Attrs(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get object attributes: %w", err)
	}

	b := s.blob(attrs)
	return &b, nil
}

// Open streams object content together with its metadata
func (s *GCSStorage) Open(ctx context.Context, pathname string) (io.ReadCloser, *Blob, error) {
	name, err := CleanPathname(pathname)
	if err != nil {
		return nil, nil, err
	}

	r, err := s.bucket().Object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to read object: %w", err)
	}

	blobURL := BlobURL(s.publicURL, name)
	return r, &Blob{
		URL:                blobURL,
		DownloadURL:        blobURL,
		Pathname:           name,
		ContentType:        r.Attrs.ContentType,
		CacheControl:       r.Attrs.CacheControl,
		ContentDisposition: contentDisposition(name),
		Size:               r.Attrs.Size,
		UploadedAt:         r.Attrs.LastModified,
	}, nil
}

// Delete deletes an object by URL or name; missing objects are not an error
func (s *GCSStorage) Delete(ctx context.Context, urlOrPathname string) error {
	name, err := ResolvePathname(s.publicURL, urlOrPathname)
	if err != nil {
		return err
	}

	if err := s.bucket().Object(name).Delete(ctx); err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil
		}
		return fmt.Errorf("failed to delete object: %w", err)
	}

	s.logger.Info("Object deleted from Cloud Storage",
		zap.String("object", name),
		zap.String("bucket", s.bucketName),
	)
	return nil
}

// SignUpload creates a V4 signed PUT URL. Signing needs service account
// credentials.
func (s *GCSStorage) SignUpload(ctx context.Context, pathname string, opts SignOptions) (*SignedUpload, error) {
	name, err := CleanPathname(pathname)
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().UTC().Add(opts.Expires)
	signed, err := s.bucket().SignedURL(name, &gcs.SignedURLOptions{
		Scheme:      gcs.SigningSchemeV4,
		Method:      http.MethodPut,
		Expires:     expiresAt,
		ContentType: opts.ContentType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate signed URL: %w", err)
	}

	headers := map[string]string{}
	if opts.ContentType != "" {
		headers["Content-Type"] = opts.ContentType
	}

	return &SignedUpload{
		UploadURL: signed,
		URL:       BlobURL(s.publicURL, name),
		Pathname:  name,
		Method:    http.MethodPut,
		Headers:   headers,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *GCSStorage) blob(attrs *gcs.ObjectAttrs) Blob {
	blobURL := BlobURL(s.publicURL, attrs.Name)
	return Blob{
		URL:                blobURL,
		DownloadURL:        blobURL,
		Pathname:           attrs.Name,
		ContentType:        attrs.ContentType,
		ContentDisposition: attrs.ContentDisposition,
		CacheControl:       attrs.CacheControl,
		Size:               attrs.Size,
		UploadedAt:         attrs.Updated,
	}
}
