// Package auth implements the credential layer: the signed bearer token
// codec and the legacy session-cookie format. Both decoders fail silently:
// callers treat any invalid credential as "no credential" and fall through to
// the next resolution step.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is the default lifetime of an issued bearer token.
const TokenTTL = 7 * 24 * time.Hour

// IssueToken builds and signs an HS256 JWT for a user. Claims are the user id,
// issued-at and expiry; role is resolved per-request from the database rather
// than baked into the token, so a role change takes effect immediately.
func IssueToken(secret string, userID uint64, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"user_id": userID,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// DecodeToken validates a bearer token and extracts the user id. It returns
// ok=false on any failure: malformed segments, wrong signing method, bad
// signature, missing user_id or exp claims, or an expiry in the past. No
// error detail is surfaced; an invalid token is simply no credential.
func DecodeToken(secret, raw string) (uint64, bool) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return 0, false
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return 0, false
	}
	// jwt.Parse already rejects an expired exp, but a token without exp
	// passes validation; the contract here is that exp is mandatory.
	if _, has := claims["exp"]; !has {
		return 0, false
	}
	switch v := claims["user_id"].(type) {
	case float64:
		if v <= 0 {
			return 0, false
		}
		return uint64(v), true
	}
	return 0, false
}
