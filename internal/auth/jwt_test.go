package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sanisidro/fiscal-api/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUploadTokens_RequiresSecret(t *testing.T) {
	_, err := auth.NewUploadTokens("")
	assert.Error(t, err)
}

func TestUploadTokens_IssueAndVerify(t *testing.T) {
	tokens, err := auth.NewUploadTokens("test-secret")
	require.NoError(t, err)

	token, expiresAt, err := tokens.Issue(auth.UploadClaims{
		Pathname:      "images/a.png",
		ContentType:   "image/png",
		MaxSize:       1024,
		ClientPayload: `{"mesa":12}`,
	}, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "images/a.png", claims.Pathname)
	assert.Equal(t, "image/png", claims.ContentType)
	assert.Equal(t, int64(1024), claims.MaxSize)
	assert.Equal(t, `{"mesa":12}`, claims.ClientPayload)
	assert.NotEmpty(t, claims.ID)
}

func TestUploadTokens_SignUpload(t *testing.T) {
	tokens, err := auth.NewUploadTokens("test-secret")
	require.NoError(t, err)

	token, _, err := tokens.SignUpload("docs/x.pdf", "application/pdf", 99, time.Minute)
	require.NoError(t, err)

	claims, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "docs/x.pdf", claims.Pathname)
	assert.Equal(t, int64(99), claims.MaxSize)
}

func TestUploadTokens_Verify_Expired(t *testing.T) {
	tokens, err := auth.NewUploadTokens("test-secret")
	require.NoError(t, err)

	token, _, err := tokens.SignUpload("a.png", "", 0, -time.Minute)
	require.NoError(t, err)

	_, err = tokens.Verify(token)
	assert.ErrorIs(t, err, auth.ErrExpiredToken)
}

func TestUploadTokens_Verify_Rejects(t *testing.T) {
	tokens, err := auth.NewUploadTokens("test-secret")
	require.NoError(t, err)
	other, err := auth.NewUploadTokens("other-secret")
	require.NoError(t, err)

	foreign, _, err := other.SignUpload("a.png", "", 0, time.Minute)
	require.NoError(t, err)

	wrongIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"pathname": "a.png",
		"iss":      "someone-else",
		"exp":      time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"pathname": "a.png",
		"iss":      "fiscal-api/upload",
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":        "not-a-token",
		"wrong secret":   foreign,
		"wrong issuer":   wrongIssuer,
		"missing expiry": noExpiry,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := tokens.Verify(token)
			assert.ErrorIs(t, err, auth.ErrInvalidToken)
		})
	}
}
