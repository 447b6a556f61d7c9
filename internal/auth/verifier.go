package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/alexindevs/roomey-api/internal/domain"
)

// Identity is the authenticated caller.
type Identity struct {
	UserID    string
	ExpiresAt time.Time
}

// Verifier validates bearer tokens presented at connect time or per request.
type Verifier interface {
	Verify(token string) (Identity, error)
}

// JWTVerifier validates HS256 access tokens.
type JWTVerifier struct {
	secret   []byte
	issuer   string
	audience string
}

func NewJWTVerifier(secret, issuer, audience string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer, audience: audience}
}

// Verify returns the caller identity, or an error wrapping
// domain.ErrAuthentication for any missing, malformed or expired token.
func (v *JWTVerifier) Verify(token string) (Identity, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return Identity{}, fmt.Errorf("%w: missing token", domain.ErrAuthentication)
	}

	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		// only HMAC; rejects alg=none and RSA/HMAC confusion
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, fmt.Errorf("%w: token expired", domain.ErrAuthentication)
		}
		return Identity{}, fmt.Errorf("%w: %v", domain.ErrAuthentication, err)
	}
	if !parsed.Valid {
		return Identity{}, fmt.Errorf("%w: invalid token", domain.ErrAuthentication)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, fmt.Errorf("%w: invalid token claims", domain.ErrAuthentication)
	}

	uid, _ := claims["sub"].(string)
	if uid == "" {
		uid, _ = claims["userId"].(string)
	}
	if uid == "" {
		return Identity{}, fmt.Errorf("%w: token has no subject", domain.ErrAuthentication)
	}

	id := Identity{UserID: uid}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	return id, nil
}

// GenerateAccess signs an HS256 access token. Used by tests and local tooling.
func GenerateAccess(secret, userID, issuer, audience string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	}
	if issuer != "" {
		claims["iss"] = issuer
	}
	if audience != "" {
		claims["aud"] = audience
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}
