package domain

import "encoding/json"

// Blob proxy request bodies

// BlobPutRequest is the POST body of the blob proxy. Without Body it asks
// for a signed upload URL instead of storing content.
type BlobPutRequest struct {
	Pathname string          `json:"pathname" validate:"required"`
	Body     json.RawMessage `json:"body,omitempty"`
	Options  BlobPutOptions  `json:"options"`
}

type BlobPutOptions struct {
	Access             string `json:"access,omitempty" validate:"omitempty,oneof=public"`
	ContentType        string `json:"contentType,omitempty" validate:"omitempty,max=255"`
	AllowOverwrite     bool   `json:"allowOverwrite,omitempty"`
	CacheControlMaxAge int    `json:"cacheControlMaxAge,omitempty" validate:"gte=0"`
	ContentLength      int64  `json:"contentLength,omitempty" validate:"gte=0"`
}

type BlobDeleteRequest struct {
	URL string `json:"url" validate:"required"`
}

// Client upload token exchange

const (
	ClientUploadGenerateToken   = "blob.generate-client-token"
	ClientUploadCompleted       = "blob.upload-completed"
	ClientUploadCompletedResult = "ok"
)

type ClientUploadRequest struct {
	Type    string          `json:"type" validate:"required,oneof=blob.generate-client-token blob.upload-completed"`
	Payload json.RawMessage `json:"payload" validate:"required"`
}

type GenerateClientTokenPayload struct {
	Pathname      string `json:"pathname" validate:"required,max=1024"`
	ContentType   string `json:"contentType,omitempty"`
	ClientPayload string `json:"clientPayload,omitempty"`
}

type GenerateClientTokenResponse struct {
	Type        string `json:"type"`
	ClientToken string `json:"clientToken"`
	UploadURL   string `json:"uploadUrl"`
	ExpiresAt   string `json:"expiresAt"` // ISO 8601
}

type UploadCompletedPayload struct {
	Blob         json.RawMessage `json:"blob" validate:"required"`
	TokenPayload string          `json:"tokenPayload,omitempty"`
}

type UploadCompletedResponse struct {
	Type     string `json:"type"`
	Response string `json:"response"`
}

// Fiscal import

type ImportFiscalesRequest struct {
	CSV string `json:"csv"`
}

type FiscalDTO struct {
	UID       string `json:"uid"`
	EscuelaID string `json:"escuela_id"`
	DNI       string `json:"dni"`
	CreatedAt string `json:"createdAt,omitempty"` // ISO 8601
	UpdatedAt string `json:"updatedAt,omitempty"` // ISO 8601
}

type FiscalListResponse struct {
	Data  []FiscalDTO `json:"data"`
	Count int         `json:"count"`
}
