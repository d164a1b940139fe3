package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

const uploadTokenIssuer = "fiscal-api/upload"

// UploadClaims authorises a single blob upload
type UploadClaims struct {
	Pathname      string `json:"pathname"`
	ContentType   string `json:"contentType,omitempty"`
	MaxSize       int64  `json:"maxSize,omitempty"`
	ClientPayload string `json:"clientPayload,omitempty"`
	jwt.RegisteredClaims
}

// UploadTokens issues and verifies HS256 upload tokens
type UploadTokens struct {
	secret []byte
	now    func() time.Time
}

// NewUploadTokens creates a token issuer. An empty secret is rejected.
func NewUploadTokens(secret string) (*UploadTokens, error) {
	if secret == "" {
		return nil, fmt.Errorf("upload token secret is required")
	}
	return &UploadTokens{secret: []byte(secret), now: time.Now}, nil
}

// Issue signs claims valid for ttl and returns the token and its expiry
func (u *UploadTokens) Issue(claims UploadClaims, ttl time.Duration) (string, time.Time, error) {
	now := u.now().UTC()
	expiresAt := now.Add(ttl)

	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    uploadTokenIssuer,
		Subject:   claims.Pathname,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(u.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign upload token: %w", err)
	}
	return token, expiresAt, nil
}

// SignUpload issues a token for pathname limited to contentType and maxSize
func (u *UploadTokens) SignUpload(pathname, contentType string, maxSize int64, ttl time.Duration) (string, time.Time, error) {
	return u.Issue(UploadClaims{
		Pathname:    pathname,
		ContentType: contentType,
		MaxSize:     maxSize,
	}, ttl)
}

// Verify validates the signature, issuer and expiry of an upload token
func (u *UploadTokens) Verify(tokenString string) (*UploadClaims, error) {
	claims := &UploadClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return u.secret, nil
	},
		jwt.WithIssuer(uploadTokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(u.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid || claims.Pathname == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
