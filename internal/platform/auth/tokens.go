package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenPair is the access/refresh pair issued on login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Claims is the JWT payload for both token kinds. TokenUse distinguishes an
// access token from a refresh token so one can never stand in for the other.
type Claims struct {
	jwt.RegisteredClaims
	Role     string `json:"role"`
	TokenUse string `json:"token_use"`
}

const (
	tokenUseAccess  = "access"
	tokenUseRefresh = "refresh"
)

// TokenIssuer signs and verifies the service's own HMAC tokens.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Issue creates an access/refresh pair for the given subject and role.
func (i *TokenIssuer) Issue(subject, role string) (*TokenPair, error) {
	access, err := i.sign(subject, role, tokenUseAccess, i.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := i.sign(subject, role, tokenUseRefresh, i.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (i *TokenIssuer) sign(subject, role, use string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role:     role,
		TokenUse: use,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// VerifyAccess parses and validates an access token.
func (i *TokenIssuer) VerifyAccess(tokenStr string) (*Claims, error) {
	return i.verify(tokenStr, tokenUseAccess)
}

// VerifyRefresh parses and validates a refresh token.
func (i *TokenIssuer) VerifyRefresh(tokenStr string) (*Claims, error) {
	return i.verify(tokenStr, tokenUseRefresh)
}

func (i *TokenIssuer) verify(tokenStr, use string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.TokenUse != use {
		return nil, fmt.Errorf("wrong token use: expected %s, got %s", use, claims.TokenUse)
	}
	return claims, nil
}
