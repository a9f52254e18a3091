// Package auth issues and checks the session credential and talks to GitHub.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. Visitor follows "Sign in with GitHub" → /login/github → GitHub
//  2. GitHub calls back /callback/github with a code
//  3. Server exchanges the code for the GitHub profile and upserts the user
//  4. Server issues a JWT and stores it in the HttpOnly "token" cookie
//  5. /api/user reads the cookie, validates the JWT, checks it was not
//     revoked by /logout, and returns the user
//
// JWT STRUCTURE:
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"<userID>","jti":"<tokenID>","iss":"pr-manager","exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secret)
//
// The jti gives logout something to revoke: a JWT is otherwise valid until it
// expires.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

const issuer = "pr-manager"

// DefaultTokenTTL is used when NewTokenService is given a non-positive ttl.
const DefaultTokenTTL = 24 * time.Hour

// ErrTokenExpired is returned by Validate for a well-formed token past its expiry.
var ErrTokenExpired = errors.New("auth: token expired")

// TokenService handles JWT creation and validation.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. The secret should be at least 32
// bytes of random data in production: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// Claims is the JWT payload: the user ID lives in Subject, the token ID in ID.
type Claims struct {
	jwt.RegisteredClaims
}

// Token is a signed JWT plus the claims a caller needs without re-parsing it.
type Token struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

// Generate signs a new token for userID that expires after the service TTL.
func (s *TokenService) Generate(userID string) (Token, error) {
	return s.GenerateWithDuration(userID, s.ttl)
}

// GenerateWithDuration signs a token with a custom lifetime. Tests use a
// negative d to produce an already-expired token.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (Token, error) {
	now := time.Now()
	// NumericDate has second precision; truncate so ExpiresAt matches the claim.
	expires := now.Add(d).Truncate(time.Second)

	c := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        xid.New().String(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("auth: signing token: %w", err)
	}

	return Token{Value: signed, ID: c.ID, ExpiresAt: expires}, nil
}

// Validate parses and verifies a JWT string.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - signature is valid
//   - token is not expired, and carries an expiry at all
//   - issuer is "pr-manager"
//   - algorithm is HS256 (blocks "alg: none" and algorithm confusion)
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}
	if c.ID == "" {
		return nil, fmt.Errorf("auth: token has no id")
	}

	return c, nil
}
