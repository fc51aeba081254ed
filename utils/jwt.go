package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidToken = errors.New("无效的令牌")

// Claims 身份提供方签发的令牌声明，Subject 即用户ID
type Claims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier 校验外部签发的JWT，支持 HS256 共享密钥或 RS256 公钥
type TokenVerifier struct {
	key     any
	methods []string
	issuer  string
}

// NewTokenVerifier 公钥优先于共享密钥
func NewTokenVerifier(secret, publicKeyPEM, issuer string) (*TokenVerifier, error) {
	switch {
	case publicKeyPEM != "":
		pub, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("parse JWT public key: %w", err)
		}
		return &TokenVerifier{key: pub, methods: []string{jwt.SigningMethodRS256.Alg()}, issuer: issuer}, nil
	case secret != "":
		return &TokenVerifier{key: []byte(secret), methods: []string{jwt.SigningMethodHS256.Alg()}, issuer: issuer}, nil
	default:
		return nil, fmt.Errorf("JWT_SECRET or JWT_PUBLIC_KEY must be set")
	}
}

// ParseToken 解析 Authorization 头或裸令牌
func (v *TokenVerifier) ParseToken(tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if len(tokenString) > 7 && strings.EqualFold(tokenString[:7], "Bearer ") {
		tokenString = strings.TrimSpace(tokenString[7:])
	}
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.key, nil
	}, jwt.WithValidMethods(v.methods))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, claims.Issuer)
	}
	return claims, nil
}

// GenerateToken 用共享密钥签发令牌，供本地开发和测试使用
func GenerateToken(secret, subject, name, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Name:  name,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
