package utils

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenVerifierHS256(t *testing.T) {
	v, err := NewTokenVerifier("secret", "", "")
	require.NoError(t, err)

	token, err := GenerateToken("secret", "user_1", "Sam", "sam@example.com", time.Hour)
	require.NoError(t, err)

	claims, err := v.ParseToken("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "user_1", claims.Subject)
	assert.Equal(t, "Sam", claims.Name)
	assert.Equal(t, "sam@example.com", claims.Email)

	_, err = v.ParseToken(token)
	assert.NoError(t, err)
}

func TestTokenVerifierRejects(t *testing.T) {
	v, err := NewTokenVerifier("secret", "", "")
	require.NoError(t, err)

	wrongKey, err := GenerateToken("other", "user_1", "", "", time.Hour)
	require.NoError(t, err)
	_, err = v.ParseToken(wrongKey)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := GenerateToken("secret", "user_1", "", "", -time.Minute)
	require.NoError(t, err)
	_, err = v.ParseToken(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSubject, err := GenerateToken("secret", "", "", "", time.Hour)
	require.NoError(t, err)
	_, err = v.ParseToken(noSubject)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.ParseToken("Bearer ")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenVerifierIssuer(t *testing.T) {
	v, err := NewTokenVerifier("secret", "", "https://id.example.com")
	require.NoError(t, err)

	token, err := GenerateToken("secret", "user_1", "", "", time.Hour)
	require.NoError(t, err)
	_, err = v.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenVerifierRS256(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	v, err := NewTokenVerifier("", string(pubPEM), "")
	require.NoError(t, err)

	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user_rsa",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)

	got, err := v.ParseToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "user_rsa", got.Subject)

	// 公钥模式下拒绝 HS256 令牌
	hs, err := GenerateToken(string(pubPEM), "user_rsa", "", "", time.Hour)
	require.NoError(t, err)
	_, err = v.ParseToken(hs)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenVerifierRequiresKey(t *testing.T) {
	_, err := NewTokenVerifier("", "", "")
	assert.Error(t, err)

	_, err = NewTokenVerifier("", "not a pem", "")
	assert.Error(t, err)
}
