// Package auth はベアラートークンの発行・検証とパスワードハッシュを提供する。
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/litter/internal/model"
)

// ErrInvalidToken はトークンの署名・有効期限・発行者のいずれかが不正であることを表す。
// 具体的な失敗理由はラップされたエラーに含まれるが、クライアントには返さない。
var ErrInvalidToken = errors.New("invalid token")

// Claims はトークンに埋め込むクレーム。
// Subjectにユーザー名、Rolesにロールタグを格納する。
type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

// HasRole はクレームが指定ロールを含むかを返す。
func (c *Claims) HasRole(role string) bool {
	if c == nil {
		return false
	}
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// TokenService はHS512署名付きの有効期限付きトークンを発行・検証する。
// サーバー側に状態を持たず、失効リストも持たない。
type TokenService struct {
	secret     []byte
	issuer     string
	expiration time.Duration
	now        func() time.Time
}

// NewTokenService はTokenServiceを生成する。
func NewTokenService(secret, issuer string, expiration time.Duration) *TokenService {
	return &TokenService{
		secret:     []byte(secret),
		issuer:     issuer,
		expiration: expiration,
		now:        time.Now,
	}
}

// Issue はユーザーのトークンを発行する。
func (s *TokenService) Issue(user *model.User) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
		},
		Roles: append([]string(nil), user.Roles...),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse はトークンを検証してクレームを返す。
// 署名アルゴリズムはHS512のみ受け付け、発行者と有効期限の存在を必須とする。
func (s *TokenService) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
