package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"
	"go.uber.org/zap"
)

// AzureBlobStorage implements BlobStore for Azure Blob Storage
type AzureBlobStorage struct {
	client        *azblob.Client
	containerName string
	baseURL       string
	logger        *zap.Logger
}

// NewAzureBlobStorage creates a new Azure Blob Storage instance
func NewAzureBlobStorage(ctx context.Context, connectionString, containerName string, logger *zap.Logger) (*AzureBlobStorage, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	// Ensure container exists
	_, err = client.CreateContainer(ctx, containerName, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}

	s := &AzureBlobStorage{
		client:        client,
		containerName: containerName,
		logger:        logger,
	}
	s.baseURL = s.container().URL()

	logger.Info("Azure Blob Storage initialized",
		zap.String("container", containerName),
	)

	return s, nil
}

func (s *AzureBlobStorage) Backend() string { return "azure" }

func (s *AzureBlobStorage) container() *container.Client {
	return s.client.ServiceClient().NewContainerClient(s.containerName)
}

// List returns one page of blobs under the prefix
func (s *AzureBlobStorage) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	listOpts := &azblob.ListBlobsFlatOptions{
		MaxResults: to.Ptr(int32(normalizeLimit(opts.Limit))),
	}
	if opts.Prefix != "" {
		listOpts.Prefix = to.Ptr(opts.Prefix)
	}
	if opts.Cursor != "" {
		listOpts.Marker = to.Ptr(opts.Cursor)
	}

	pager := s.client.NewListBlobsFlatPager(s.containerName, listOpts)
	resp, err := pager.NextPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}

	result := &ListResult{Blobs: []Blob{}}
	if resp.Segment != nil {
		for _, item := range resp.Segment.BlobItems {
			if item.Name == nil || item.Properties == nil {
				continue
			}
			props := item.Properties
			result.Blobs = append(result.Blobs, s.blob(*item.Name,
				deref(props.ContentType), deref(props.ContentDisposition), deref(props.CacheControl),
				deref(props.ContentLength), deref(props.LastModified),
			))
		}
	}
	if marker := deref(resp.NextMarker); marker != "" {
		result.Cursor = marker
		result.HasMore = true
	}

	return result, nil
}

// Put uploads a blob. Without AllowOverwrite the upload is conditional on
// the blob not existing yet.
func (s *AzureBlobStorage) Put(ctx context.Context, pathname string, body io.Reader, opts PutOptions) (*Blob, error) {
	name, err := prepareName(pathname, opts)
	if err != nil {
		return nil, err
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = guessContentType(name)
	}
	disposition := contentDisposition(name)

	uploadOptions := &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType:        &contentType,
			BlobContentDisposition: &disposition,
		},
	}
	if cc := cacheControl(opts.CacheControlMaxAge); cc != "" {
		uploadOptions.HTTPHeaders.BlobCacheControl = &cc
	}
	if !opts.AllowOverwrite {
		uploadOptions.AccessConditions = &blob.AccessConditions{
			ModifiedAccessConditions: &blob.ModifiedAccessConditions{
				IfNoneMatch: to.Ptr(azcore.ETagAny),
			},
		}
	}

	// Wrap data in counting reader to track size
	reader := &countingReader{r: body}

	resp, err := s.client.UploadStream(ctx, s.containerName, name, reader, uploadOptions)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobAlreadyExists, bloberror.ConditionNotMet) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to upload blob: %w", err)
	}

	s.logger.Info("Blob uploaded to Azure Blob Storage",
		zap.String("blobName", name),
		zap.String("container", s.containerName),
		zap.String("contentType", contentType),
		zap.Int64("size", reader.count),
	)

	uploadedAt := time.Now().UTC()
	if resp.LastModified != nil {
		uploadedAt = *resp.LastModified
	}
	out := s.blob(name, contentType, disposition, cacheControl(opts.CacheControlMaxAge), reader.count, uploadedAt)
	return &out, nil
}

// Head returns blob properties
func (s *AzureBlobStorage) Head(ctx context.Context, pathname string) (*Blob, error) {
	name, err := CleanPathname(pathname)
	if err != nil {
		return nil, err
	}

	props, err := s.container().NewBlobClient(name).GetProperties(ctx, nil)
	if err != nil {
		if isAzureNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get blob properties: %w", err)
	}

	out := s.blob(name,
		deref(props.ContentType), deref(props.ContentDisposition), deref(props.CacheControl),
		deref(props.ContentLength), deref(props.LastModified),
	)
	return &out, nil
}

// Open streams blob content together with its metadata
func (s *AzureBlobStorage) Open(ctx context.Context, pathname string) (io.ReadCloser, *Blob, error) {
	name, err := CleanPathname(pathname)
	if err != nil {
		return nil, nil, err
	}

	resp, err := s.client.DownloadStream(ctx, s.containerName, name, nil)
	if err != nil {
		if isAzureNotFound(err) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to download blob: %w", err)
	}

	out := s.blob(name,
		deref(resp.ContentType), deref(resp.ContentDisposition), deref(resp.CacheControl),
		deref(resp.ContentLength), deref(resp.LastModified),
	)
	return resp.Body, &out, nil
}

// Delete deletes a blob by URL or pathname
func (s *AzureBlobStorage) Delete(ctx context.Context, urlOrPathname string) error {
	name, err := ResolvePathname(s.baseURL, urlOrPathname)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteBlob(ctx, s.containerName, name, nil)
	if err != nil {
		// Check if blob doesn't exist (already deleted)
		if isAzureNotFound(err) {
			s.logger.Debug("Blob already deleted or not found",
				zap.String("blobName", name),
				zap.String("container", s.containerName),
			)
			return nil
		}
		return fmt.Errorf("failed to delete blob: %w", err)
	}

	s.logger.Info("Blob deleted from Azure Blob Storage",
		zap.String("blobName", name),
		zap.String("container", s.containerName),
	)

	return nil
}

// SignUpload returns a SAS URL allowing a single block blob PUT. Requires a
// connection string carrying an account key.
func (s *AzureBlobStorage) SignUpload(ctx context.Context, pathname string, opts SignOptions) (*SignedUpload, error) {
	name, err := CleanPathname(pathname)
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().UTC().Add(opts.Expires)
	blobClient := s.container().NewBlobClient(name)

	sasURL, err := blobClient.GetSASURL(sas.BlobPermissions{Create: true, Write: true}, expiresAt, nil)
	if err != nil {
		if errors.Is(err, bloberror.MissingSharedKeyCredential) {
			return nil, ErrSigningUnsupported
		}
		return nil, fmt.Errorf("failed to generate SAS URL: %w", err)
	}

	headers := map[string]string{"x-ms-blob-type": "BlockBlob"}
	if opts.ContentType != "" {
		headers["Content-Type"] = opts.ContentType
	}

	return &SignedUpload{
		UploadURL: sasURL,
		URL:       blobClient.URL(),
		Pathname:  name,
		Method:    http.MethodPut,
		Headers:   headers,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *AzureBlobStorage) blob(name, contentType, disposition, cacheCtl string, size int64, modified time.Time) Blob {
	blobURL := BlobURL(s.baseURL, name)
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

func isAzureNotFound(err error) bool {
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return true
	}
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}
