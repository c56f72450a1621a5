// Package auth signs users in against the hosted auth API and keeps the
// resulting session on disk.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Service is what the rest of the program needs from authentication.
type Service interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	// SignUp returns a nil session when the account still needs email confirmation.
	SignUp(ctx context.Context, email, password, displayName string) (*Session, error)
	SignOut(ctx context.Context) error
	CurrentSession() *Session
	// Subscribe registers fn for every session change; nil means signed out.
	Subscribe(fn func(*Session)) (unsubscribe func())
}

type User struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Name is what greetings use: display name, else email, else id.
func (u User) Name() string {
	switch {
	case u.DisplayName != "":
		return u.DisplayName
	case u.Email != "":
		return u.Email
	}
	return u.ID
}

// Session sources.
const (
	SourceEnv  = "env"
	SourceFile = "file"
)

type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	User         User      `json:"user"`
	Source       string    `json:"source"` // "env" | "file"
}

// Expired reports whether the access token is past its expiry, with a
// small margin. Sessions without an expiry never expire.
func (s *Session) Expired(now time.Time) bool {
	if s == nil || s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(30 * time.Second).Before(s.ExpiresAt)
}

// ErrEnvSession is returned by SignOut when the token comes from DONEZO_TOKEN.
var ErrEnvSession = errors.New("session is provided by the DONEZO_TOKEN env var")

// Error is a failure reported by the auth API or the network underneath it.
type Error struct {
	Status  int
	Code    string
	Message string
}

// CodeNetwork marks transport failures (no HTTP status).
const CodeNetwork = "network"

func (e *Error) Error() string {
	switch {
	case e.Code == CodeNetwork:
		return "auth: network: " + e.Message
	case e.Status != 0:
		return fmt.Sprintf("auth: %s (%d)", e.Message, e.Status)
	}
	return "auth: " + e.Message
}
