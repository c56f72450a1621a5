package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Claims are the JWT fields the client looks at. The signature is not
// checked; the server does that.
type Claims struct {
	Subject      string         `json:"sub"`
	Email        string         `json:"email"`
	Role         string         `json:"role"`
	ExpiresAt    int64          `json:"exp"`
	IssuedAt     int64          `json:"iat"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (c Claims) Expiry() time.Time {
	if c.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(c.ExpiresAt, 0).UTC()
}

// ErrOpaqueToken means the token is not a JWT and cannot be introspected.
var ErrOpaqueToken = errors.New("opaque token (cannot introspect locally)")

// DecodeClaims reads the payload segment of a JWT.
func DecodeClaims(token string) (Claims, json.RawMessage, error) {
	parts := strings.Split(stripBearer(token), ".")
	if len(parts) != 3 {
		return Claims{}, nil, ErrOpaqueToken
	}
	payload, err := decodeB64URL(parts[1])
	if err != nil {
		return Claims{}, nil, fmt.Errorf("jwt payload: %w", err)
	}
	var c Claims
	if err := json.Unmarshal(payload, &c); err != nil {
		return Claims{}, nil, fmt.Errorf("jwt claims: %w", err)
	}
	return c, payload, nil
}

func decodeB64URL(s string) ([]byte, error) {
	dec, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, err
	}
	return dec, nil
}

func stripBearer(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(strings.ToLower(s), "bearer ") {
		return strings.TrimSpace(s[7:])
	}
	return s
}

// sessionFromToken builds a session around a bare access token.
func sessionFromToken(token, source string) (*Session, error) {
	token = stripBearer(token)
	if token == "" {
		return nil, fmt.Errorf("empty token")
	}
	c, _, err := DecodeClaims(token)
	if err != nil {
		return nil, err
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("token has no sub claim")
	}
	s := &Session{
		AccessToken: token,
		ExpiresAt:   c.Expiry(),
		User:        User{ID: c.Subject, Email: c.Email},
		Source:      source,
	}
	if name, ok := c.UserMetadata["full_name"].(string); ok {
		s.User.DisplayName = name
	}
	return s, nil
}
