package storage_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sanisidro/fiscal-api/internal/config"
	"github.com/sanisidro/fiscal-api/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testPublicURL = "http://localhost:8080"

// TestBlobStoreInterfaceCompliance verifies that all backends implement BlobStore
func TestBlobStoreInterfaceCompliance(t *testing.T) {
	var _ storage.BlobStore = (*storage.LocalStorage)(nil)
	var _ storage.BlobStore = (*storage.AzureBlobStorage)(nil)
	var _ storage.BlobStore = (*storage.S3Storage)(nil)
	var _ storage.BlobStore = (*storage.GCSStorage)(nil)

	var _ storage.Opener = (*storage.LocalStorage)(nil)
	var _ storage.Opener = (*storage.AzureBlobStorage)(nil)
	var _ storage.Opener = (*storage.S3Storage)(nil)
	var _ storage.Opener = (*storage.GCSStorage)(nil)
}

type fakeSigner struct {
	pathname    string
	contentType string
	maxSize     int64
}

func (f *fakeSigner) SignUpload(pathname, contentType string, maxSize int64, ttl time.Duration) (string, time.Time, error) {
	f.pathname = pathname
	f.contentType = contentType
	f.maxSize = maxSize
	return "tok+en", time.Now().Add(ttl), nil
}

func newLocal(t *testing.T) (*storage.LocalStorage, string) {
	t.Helper()
	dir := t.TempDir()
	ls, err := storage.NewLocalStorage(dir, testPublicURL, &fakeSigner{}, 1024)
	require.NoError(t, err)
	return ls, dir
}

func put(t *testing.T, ls *storage.LocalStorage, pathname, body string) *storage.Blob {
	t.Helper()
	b, err := ls.Put(context.Background(), pathname, strings.NewReader(body), storage.PutOptions{ContentType: "text/plain"})
	require.NoError(t, err)
	return b
}

// ============================================================================
// Pathname helpers
// ============================================================================

func TestCleanPathname(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "a/b.txt", want: "a/b.txt"},
		{in: "/leading/slash.json", want: "leading/slash.json"},
		{in: "a//b/./c.txt", want: "a/b/c.txt"},
		{in: "  padded.txt ", want: "padded.txt"},
		{in: "", wantErr: true},
		{in: "/", wantErr: true},
		{in: "../escape.txt", wantErr: true},
		{in: "a/../../b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := storage.CleanPathname(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, storage.ErrInvalidPathname)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolvePathname(t *testing.T) {
	base := "https://acct.blob.core.windows.net/blobs"

	got, err := storage.ResolvePathname(base, base+"/reports/a%20b.json?sv=1")
	require.NoError(t, err)
	assert.Equal(t, "reports/a b.json", got)

	got, err = storage.ResolvePathname(base, "reports/x.json")
	require.NoError(t, err)
	assert.Equal(t, "reports/x.json", got)

	_, err = storage.ResolvePathname(base, "https://other.example.com/blobs/x.json")
	assert.ErrorIs(t, err, storage.ErrInvalidPathname)
}

func TestBlobURL_EscapesSegments(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/a%20b/c.json", storage.BlobURL("https://cdn.example.com/", "a b/c.json"))
}

// ============================================================================
// LocalStorage
// ============================================================================

func TestNewLocalStorage_CreatesDirectory(t *testing.T) {
	basePath := filepath.Join(t.TempDir(), "blobs")

	ls, err := storage.NewLocalStorage(basePath, testPublicURL, nil, 0)
	require.NoError(t, err)
	assert.NotNil(t, ls)

	info, err := os.Stat(basePath)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLocalStorage_PutAndHead(t *testing.T) {
	ls, _ := newLocal(t)
	ctx := context.Background()

	b, err := ls.Put(ctx, "results/mesa-1.json", strings.NewReader(`{"votos":10}`), storage.PutOptions{
		ContentType:        "application/json",
		CacheControlMaxAge: 60,
	})
	require.NoError(t, err)

	assert.Equal(t, "results/mesa-1.json", b.Pathname)
	assert.Equal(t, testPublicURL+"/blobs/results/mesa-1.json", b.URL)
	assert.Equal(t, b.URL+"?download=1", b.DownloadURL)
	assert.Equal(t, int64(12), b.Size)
	assert.Equal(t, "application/json", b.ContentType)
	assert.Equal(t, `inline; filename="mesa-1.json"`, b.ContentDisposition)
	assert.Equal(t, "public, max-age=60", b.CacheControl)

	head, err := ls.Head(ctx, "results/mesa-1.json")
	require.NoError(t, err)
	assert.Equal(t, b.Size, head.Size)
	assert.Equal(t, "application/json", head.ContentType)
	assert.WithinDuration(t, b.UploadedAt, head.UploadedAt, time.Second)
}

func TestLocalStorage_Head_NotFound(t *testing.T) {
	ls, _ := newLocal(t)

	_, err := ls.Head(context.Background(), "missing.txt")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLocalStorage_Put_Overwrite(t *testing.T) {
	ls, _ := newLocal(t)
	ctx := context.Background()

	put(t, ls, "doc.txt", "first")

	_, err := ls.Put(ctx, "doc.txt", strings.NewReader("second"), storage.PutOptions{})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	b, err := ls.Put(ctx, "doc.txt", strings.NewReader("second!"), storage.PutOptions{AllowOverwrite: true})
	require.NoError(t, err)
	assert.Equal(t, int64(7), b.Size)

	rc, _, err := ls.Open(ctx, "doc.txt")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "second!", string(data))
}

func TestLocalStorage_Put_RandomSuffix(t *testing.T) {
	ls, _ := newLocal(t)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		b, err := ls.Put(ctx, "photo.png", bytes.NewReader([]byte{0x89, 'P', 'N', 'G'}), storage.PutOptions{AddRandomSuffix: true})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(b.Pathname, "photo-"), b.Pathname)
		assert.Equal(t, ".png", filepath.Ext(b.Pathname))
		assert.False(t, seen[b.Pathname])
		seen[b.Pathname] = true
	}
}

func TestLocalStorage_Put_RejectsReservedNames(t *testing.T) {
	ls, _ := newLocal(t)

	for _, name := range []string{".meta/x.json", "../outside.txt", "dir/.upload-123"} {
		_, err := ls.Put(context.Background(), name, strings.NewReader("x"), storage.PutOptions{})
		assert.ErrorIs(t, err, storage.ErrInvalidPathname, name)
	}
}

func TestLocalStorage_List(t *testing.T) {
	ls, _ := newLocal(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		put(t, ls, fmt.Sprintf("imports/file-%d.csv", i), "escuela_id,dni\n1,2")
	}
	put(t, ls, "other/skip.txt", "x")

	all, err := ls.List(ctx, storage.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, all.Blobs, 6)
	assert.False(t, all.HasMore)
	for _, b := range all.Blobs {
		assert.False(t, strings.HasPrefix(b.Pathname, ".meta"), "sidecar metadata must not be listed")
	}

	page, err := ls.List(ctx, storage.ListOptions{Prefix: "imports/", Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Blobs, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, "imports/file-0.csv", page.Blobs[0].Pathname)
	assert.Equal(t, "imports/file-1.csv", page.Cursor)

	var names []string
	cursor := ""
	for {
		res, err := ls.List(ctx, storage.ListOptions{Prefix: "imports/", Limit: 2, Cursor: cursor})
		require.NoError(t, err)
		for _, b := range res.Blobs {
			names = append(names, b.Pathname)
		}
		if !res.HasMore {
			break
		}
		cursor = res.Cursor
	}
	assert.Len(t, names, 5)
}

func TestLocalStorage_Delete(t *testing.T) {
	ls, dir := newLocal(t)
	ctx := context.Background()

	b := put(t, ls, "delete/me.txt", "bye")

	// by URL
	require.NoError(t, ls.Delete(ctx, b.URL))
	_, err := os.Stat(filepath.Join(dir, "delete", "me.txt"))
	assert.True(t, os.IsNotExist(err))

	// idempotent
	assert.NoError(t, ls.Delete(ctx, "delete/me.txt"))

	// URL from a different store
	err = ls.Delete(ctx, "https://elsewhere.example.com/blobs/delete/me.txt")
	assert.ErrorIs(t, err, storage.ErrInvalidPathname)
}

func TestLocalStorage_Head_WithoutSidecar(t *testing.T) {
	ls, dir := newLocal(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "manual.json"), []byte("{}"), 0644))

	b, err := ls.Head(context.Background(), "manual.json")
	require.NoError(t, err)
	assert.Equal(t, "application/json", b.ContentType)
	assert.Equal(t, int64(2), b.Size)
}

func TestLocalStorage_SignUpload(t *testing.T) {
	dir := t.TempDir()
	signer := &fakeSigner{}
	ls, err := storage.NewLocalStorage(dir, testPublicURL+"/", signer, 2048)
	require.NoError(t, err)

	signed, err := ls.SignUpload(context.Background(), "/images/a.png", storage.SignOptions{
		ContentType: "image/png",
		Expires:     time.Minute,
	})
	require.NoError(t, err)

	assert.Equal(t, testPublicURL+"/api/blob-proxy/upload?token=tok%2Ben", signed.UploadURL)
	assert.Equal(t, testPublicURL+"/blobs/images/a.png", signed.URL)
	assert.Equal(t, "PUT", signed.Method)
	assert.Equal(t, "image/png", signed.Headers["Content-Type"])
	assert.Equal(t, "images/a.png", signer.pathname)
	assert.Equal(t, int64(2048), signer.maxSize, "falls back to the backend max upload size")

	_, err = ls.SignUpload(context.Background(), "x.png", storage.SignOptions{ContentLength: 10, Expires: time.Minute})
	require.NoError(t, err)
	assert.Equal(t, int64(10), signer.maxSize)
}

func TestLocalStorage_SignUpload_NoSigner(t *testing.T) {
	ls, err := storage.NewLocalStorage(t.TempDir(), testPublicURL, nil, 0)
	require.NoError(t, err)

	_, err = ls.SignUpload(context.Background(), "x.png", storage.SignOptions{})
	assert.True(t, errors.Is(err, storage.ErrSigningUnsupported))
}

// ============================================================================
// NewStorage factory
// ============================================================================

func TestNewStorage_LocalMode(t *testing.T) {
	cfg := &config.StorageConfig{Mode: "local", LocalBasePath: t.TempDir(), MaxUploadSizeMB: 1}

	store, err := storage.NewStorage(context.Background(), cfg, testPublicURL, nil, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "local", store.Backend())
}

func TestNewStorage_InvalidMode(t *testing.T) {
	cfg := &config.StorageConfig{Mode: "ftp"}

	_, err := storage.NewStorage(context.Background(), cfg, testPublicURL, nil, zap.NewNop())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported storage mode")
}

func TestNewStorage_AzureRequiresConnectionString(t *testing.T) {
	cfg := &config.StorageConfig{Mode: "azure"}

	_, err := storage.NewStorage(context.Background(), cfg, testPublicURL, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestNewStorage_S3RequiresBucket(t *testing.T) {
	cfg := &config.StorageConfig{Mode: "s3"}

	_, err := storage.NewStorage(context.Background(), cfg, testPublicURL, nil, zap.NewNop())
	assert.ErrorContains(t, err, "bucket is required")
}
