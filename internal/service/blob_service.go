package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/sanisidro/fiscal-api/internal/auth"
	"github.com/sanisidro/fiscal-api/internal/domain"
	"github.com/sanisidro/fiscal-api/internal/logger"
	"github.com/sanisidro/fiscal-api/internal/storage"
	"go.uber.org/zap"
)

// Limits applied by the standalone handlers
const (
	StandaloneListLimit = 10
)

// BlobServiceConfig holds the upload settings used by BlobService
type BlobServiceConfig struct {
	SignedURLTTL      time.Duration
	TokenTTL          time.Duration
	AllowedImageTypes []string
	MaxImageSize      int64
}

// ClientToken is the answer to a client upload token request
type ClientToken struct {
	Token     string
	UploadURL string
	ExpiresAt time.Time
}

// BlobService forwards blob proxy requests to the configured store
type BlobService struct {
	store    storage.BlobStore
	storeErr error
	tokens   *auth.UploadTokens
	cfg      BlobServiceConfig
	logger   *zap.Logger
}

// NewBlobService creates a new BlobService. A nil store makes every call
// fail with ErrStorageNotConfigured.
func NewBlobService(store storage.BlobStore, tokens *auth.UploadTokens, cfg BlobServiceConfig, logger *zap.Logger) *BlobService {
	return &BlobService{
		store:  store,
		tokens: tokens,
		cfg:    cfg,
		logger: logger,
	}
}

// SetStoreError records why storage initialization failed so callers see
// which credential is missing.
func (s *BlobService) SetStoreError(err error) {
	s.storeErr = err
}

func (s *BlobService) storeOrErr() (storage.BlobStore, error) {
	if s.store == nil {
		if s.storeErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorageNotConfigured, s.storeErr)
		}
		return nil, ErrStorageNotConfigured
	}
	return s.store, nil
}

// List returns one page of blobs under prefix
func (s *BlobService) List(ctx context.Context, opts storage.ListOptions) (*storage.ListResult, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return nil, err
	}
	return store.List(ctx, opts)
}

// Head returns blob metadata
func (s *BlobService) Head(ctx context.Context, pathname string) (*storage.Blob, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return nil, err
	}
	return store.Head(ctx, pathname)
}

// Put stores body at pathname. Options come from the proxy request; the
// random suffix is always off.
func (s *BlobService) Put(ctx context.Context, pathname string, body io.Reader, opts domain.BlobPutOptions) (*storage.Blob, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return nil, err
	}

	blob, err := store.Put(ctx, pathname, body, storage.PutOptions{
		Access:             opts.Access,
		ContentType:        opts.ContentType,
		AddRandomSuffix:    false,
		AllowOverwrite:     opts.AllowOverwrite,
		CacheControlMaxAge: opts.CacheControlMaxAge,
	})
	if err != nil {
		return nil, err
	}

	logger.WithBlob(s.logger, store.Backend(), blob.Pathname).Info("Blob stored",
		zap.Int64("size", blob.Size),
		zap.String("content_type", blob.ContentType),
	)
	return blob, nil
}

// PutJSON stores a JSON document as a public blob without a random suffix
func (s *BlobService) PutJSON(ctx context.Context, filename string, body []byte) (*storage.Blob, error) {
	return s.Put(ctx, filename, bytes.NewReader(body), domain.BlobPutOptions{
		Access:         "public",
		ContentType:    "application/json",
		AllowOverwrite: true,
	})
}

// Delete removes a blob by URL or pathname
func (s *BlobService) Delete(ctx context.Context, urlOrPathname string) error {
	store, err := s.storeOrErr()
	if err != nil {
		return err
	}
	if err := store.Delete(ctx, urlOrPathname); err != nil {
		return err
	}

	logger.WithBlob(s.logger, store.Backend(), urlOrPathname).Info("Blob deleted")
	return nil
}

// SignUpload returns a pre-authorised upload target. contentLength must be
// positive.
func (s *BlobService) SignUpload(ctx context.Context, pathname string, opts domain.BlobPutOptions) (*storage.SignedUpload, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return nil, err
	}
	if opts.ContentLength <= 0 {
		return nil, invalidArgument("options.contentLength is required for signed uploads")
	}

	return store.SignUpload(ctx, pathname, storage.SignOptions{
		ContentType:   opts.ContentType,
		ContentLength: opts.ContentLength,
		Expires:       s.cfg.SignedURLTTL,
	})
}

// GenerateClientToken authorises a direct image upload from a browser
func (s *BlobService) GenerateClientToken(ctx context.Context, in domain.GenerateClientTokenPayload) (*ClientToken, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return nil, err
	}
	if s.tokens == nil {
		return nil, storage.ErrSigningUnsupported
	}

	contentType := in.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(path.Ext(in.Pathname))
	}
	if !s.imageTypeAllowed(contentType) {
		return nil, fmt.Errorf("%w: %q", ErrContentTypeNotAllowed, contentType)
	}

	signed, err := store.SignUpload(ctx, in.Pathname, storage.SignOptions{
		ContentType: contentType,
		MaxSize:     s.cfg.MaxImageSize,
		Expires:     s.cfg.TokenTTL,
	})
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.tokens.Issue(auth.UploadClaims{
		Pathname:      signed.Pathname,
		ContentType:   contentType,
		MaxSize:       s.cfg.MaxImageSize,
		ClientPayload: in.ClientPayload,
	}, s.cfg.TokenTTL)
	if err != nil {
		return nil, err
	}

	logger.WithBlob(s.logger, store.Backend(), signed.Pathname).Info("Client upload token generated",
		zap.String("content_type", contentType),
		zap.Time("expires_at", expiresAt),
	)

	return &ClientToken{
		Token:     token,
		UploadURL: signed.UploadURL,
		ExpiresAt: expiresAt,
	}, nil
}

// UploadCompleted records a finished client upload
func (s *BlobService) UploadCompleted(ctx context.Context, blob storage.Blob, tokenPayload string) {
	backend := "unconfigured"
	if s.store != nil {
		backend = s.store.Backend()
	}
	logger.WithBlob(s.logger, backend, blob.Pathname).Info("Blob upload completed",
		zap.String("url", blob.URL),
		zap.String("token_payload", tokenPayload),
	)
}

// RedeemUpload stores the body of a PUT authorised by an upload token
func (s *BlobService) RedeemUpload(ctx context.Context, token, contentType string, body io.Reader) (*storage.Blob, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return nil, err
	}
	if s.tokens == nil {
		return nil, storage.ErrSigningUnsupported
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	if claims.ContentType != "" && !sameMediaType(claims.ContentType, contentType) {
		return nil, fmt.Errorf("%w: expected %s", ErrContentTypeMismatch, claims.ContentType)
	}
	if contentType == "" {
		contentType = claims.ContentType
	}

	if claims.MaxSize > 0 {
		body = &limitedReader{r: body, remaining: claims.MaxSize}
	}

	blob, err := store.Put(ctx, claims.Pathname, body, storage.PutOptions{
		ContentType:    contentType,
		AllowOverwrite: true,
	})
	if err != nil {
		return nil, err
	}

	logger.WithBlob(s.logger, store.Backend(), blob.Pathname).Info("Signed upload stored",
		zap.Int64("size", blob.Size),
	)
	return blob, nil
}

// Open streams blob content. Stores that cannot stream report ErrNotFound.
func (s *BlobService) Open(ctx context.Context, pathname string) (io.ReadCloser, *storage.Blob, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return nil, nil, err
	}
	opener, ok := store.(storage.Opener)
	if !ok {
		return nil, nil, storage.ErrNotFound
	}
	return opener.Open(ctx, pathname)
}

func (s *BlobService) imageTypeAllowed(contentType string) bool {
	for _, allowed := range s.cfg.AllowedImageTypes {
		if sameMediaType(allowed, contentType) {
			return true
		}
	}
	return false
}

func sameMediaType(a, b string) bool {
	ma, _, errA := mime.ParseMediaType(a)
	mb, _, errB := mime.ParseMediaType(b)
	if errA != nil || errB != nil {
		return false
	}
	return strings.EqualFold(ma, mb)
}

// limitedReader fails once more than remaining bytes are read
type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, ErrUploadTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, ErrUploadTooLarge
	}
	return n, err
}
