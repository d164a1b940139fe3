package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/sanisidro/fiscal-api/internal/config"
	"go.uber.org/zap"
)

// S3Storage implements BlobStore for S3 compatible object storage (AWS, R2, MinIO)
type S3Storage struct {
	client    *s3.Client
	presign   *s3.PresignClient
	bucket    string
	publicURL string
	logger    *zap.Logger
}

// NewS3Storage creates an S3 backed blob store from configuration
func NewS3Storage(ctx context.Context, cfg *config.S3Config, logger *zap.Logger) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage.s3.bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	// Static credentials when configured, otherwise the default chain
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	publicURL := strings.TrimSuffix(cfg.PublicURL, "/")
	if publicURL == "" {
		switch {
		case cfg.Endpoint != "":
			publicURL = strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
		default:
			publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}

	logger.Info("S3 storage initialized",
		zap.String("bucket", cfg.Bucket),
		zap.String("region", cfg.Region),
		zap.String("endpoint", cfg.Endpoint),
	)

	return &S3Storage{
		client:    client,
		presign:   s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		publicURL: publicURL,
		logger:    logger,
	}, nil
}

func (s *S3Storage) Backend() string { return "s3" }

// List returns one page of objects under the prefix
func (s *S3Storage) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		MaxKeys: aws.Int32(int32(normalizeLimit(opts.Limit))),
	}
	if opts.Prefix != "" {
		input.Prefix = aws.String(opts.Prefix)
	}
	if opts.Cursor != "" {
		input.ContinuationToken = aws.String(opts.Cursor)
	}

	out, err := s.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	result := &ListResult{Blobs: []Blob{}}
	for _, obj := range out.Contents {
		name := aws.ToString(obj.Key)
		b := s.blob(name, "", "", "", aws.ToInt64(obj.Size), aws.ToTime(obj.LastModified))
		result.Blobs = append(result.Blobs, b)
	}
	if aws.ToBool(out.IsTruncated) {
		result.HasMore = true
		result.Cursor = aws.ToString(out.NextContinuationToken)
	}

	return result, nil
}

// Put uploads an object. The body is buffered so the SDK can sign the payload.
func (s *S3Storage) Put(ctx context.Context, pathname string, body io.Reader, opts PutOptions) (*Blob, error) {
	name, err := prepareName(pathname, opts)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload body: %w", err)
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = guessContentType(name)
	}
	disposition := contentDisposition(name)
	cacheCtl := cacheControl(opts.CacheControlMaxAge)

	input := &s3.PutObjectInput{
		Bucket:             aws.String(s.bucket),
		Key:                aws.String(name),
		Body:               bytes.NewReader(data),
		ContentLength:      aws.Int64(int64(len(data))),
		ContentType:        aws.String(contentType),
		ContentDisposition: aws.String(disposition),
	}
	if cacheCtl != "" {
		input.CacheControl = aws.String(cacheCtl)
	}
	if !opts.AllowOverwrite {
		input.IfNoneMatch = aws.String("*")
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed" {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to upload object: %w", err)
	}

	s.logger.Info("Object uploaded to S3",
		zap.String("key", name),
		zap.String("bucket", s.bucket),
		zap.String("contentType", contentType),
		zap.Int("size", len(data)),
	)

	b := s.blob(name, contentType, disposition, cacheCtl, int64(len(data)), time.Now().UTC())
	return &b, nil
}

// Head returns object metadata
func (s *S3Storage) Head(ctx context.Context, pathname string) (*Blob, error) {
	name, err := CleanPathname(pathname)
	if err != nil {
		return nil, err
	}

	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get object metadata: %w", err)
	}

	b := s.blob(name,
		aws.ToString(out.ContentType), aws.ToString(out.ContentDisposition), aws.ToString(out.CacheControl),
		aws.ToInt64(out.ContentLength), aws.ToTime(out.LastModified),
	)
	return &b, nil
}

// Open streams object content together with its metadata
func (s *S3Storage) Open(ctx context.Context, pathname string) (io.ReadCloser, *Blob, error) {
	name, err := CleanPathname(pathname)
	if err != nil {
		return nil, nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to get object: %w", err)
	}

	b := s.blob(name,
		aws.ToString(out.ContentType), aws.ToString(out.ContentDisposition), aws.ToString(out.CacheControl),
		aws.ToInt64(out.ContentLength), aws.ToTime(out.LastModified),
	)
	return out.Body, &b, nil
}

// Delete deletes an object by URL or key. S3 reports success for missing keys.
func (s *S3Storage) Delete(ctx context.Context, urlOrPathname string) error {
	name, err := ResolvePathname(s.publicURL, urlOrPathname)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil && !isS3NotFound(err) {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	s.logger.Info("Object deleted from S3",
		zap.String("key", name),
		zap.String("bucket", s.bucket),
	)
	return nil
}

// SignUpload generates a presigned PUT URL. When a content length is given
// it is part of the signature and the upload must match it exactly.
func (s *S3Storage) SignUpload(ctx context.Context, pathname string, opts SignOptions) (*SignedUpload, error) {
	name, err := CleanPathname(pathname)
	if err != nil {
		return nil, err
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	}
	headers := map[string]string{}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
		headers["Content-Type"] = opts.ContentType
	}
	if opts.ContentLength > 0 {
		input.ContentLength = aws.Int64(opts.ContentLength)
	}

	req, err := s.presign.PresignPutObject(ctx, input, func(o *s3.PresignOptions) {
		o.Expires = opts.Expires
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned upload URL: %w", err)
	}

	return &SignedUpload{
		UploadURL: req.URL,
		URL:       BlobURL(s.publicURL, name),
		Pathname:  name,
		Method:    http.MethodPut,
		Headers:   headers,
		ExpiresAt: time.Now().UTC().Add(opts.Expires),
	}, nil
}

func (s *S3Storage) blob(name, contentType, disposition, cacheCtl string, size int64, modified time.Time) Blob {
	blobURL := BlobURL(s.publicURL, name)
	return Blob{
		URL:                blobURL,
		DownloadURL:        blobURL,
		Pathname:           name,
		ContentType:        contentType,
		ContentDisposition: disposition,
		CacheControl:       cacheCtl,
		Size:               size,
		UploadedAt:         modified,
	}
}

func isS3NotFound(err error) bool {
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound"
}
