package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Options configure a Client. URL and AnonKey are required.
type Options struct {
	URL        string
	AnonKey    string
	Store      FileStore
	HTTPClient *http.Client
	Logger     *log.Logger
	Now        func() time.Time
}

// Client talks to a GoTrue-compatible auth API.
type Client struct {
	base   string
	key    string
	files  FileStore
	client *http.Client
	log    *log.Logger
	now    func() time.Time

	mu      sync.Mutex
	session *Session
	notify  notifier
}

var _ Service = (*Client)(nil)

// New builds a client and restores the persisted session, if any.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, fmt.Errorf("auth: missing url")
	}
	if _, err := url.Parse(opts.URL); err != nil {
		return nil, fmt.Errorf("auth: url: %w", err)
	}
	c := &Client{
		base:   strings.TrimRight(opts.URL, "/"),
		key:    opts.AnonKey,
		files:  opts.Store,
		client: opts.HTTPClient,
		log:    opts.Logger,
		now:    opts.Now,
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: 15 * time.Second}
	}
	if c.log == nil {
		c.log = log.New(io.Discard)
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.files.Dir != "" {
		s, err := c.files.Load()
		if err != nil {
			return nil, err
		}
		c.session = s
	}
	return c, nil
}

func (c *Client) CurrentSession() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

// AccessToken is the bearer for data requests, "" when signed out.
func (c *Client) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.AccessToken
}

func (c *Client) Subscribe(fn func(*Session)) func() { return c.notify.subscribe(fn) }

func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var tr tokenResponse
	err := c.post(ctx, "/auth/v1/token?grant_type=password", map[string]string{
		"email":    strings.TrimSpace(email),
		"password": password,
	}, &tr)
	if err != nil {
		return nil, err
	}
	return c.adopt(tr.session(c.now()))
}

func (c *Client) SignUp(ctx context.Context, email, password, displayName string) (*Session, error) {
	body := map[string]any{
		"email":    strings.TrimSpace(email),
		"password": password,
	}
	if name := strings.TrimSpace(displayName); name != "" {
		body["data"] = map[string]string{"full_name": name}
	}
	var tr tokenResponse
	if err := c.post(ctx, "/auth/v1/signup", body, &tr); err != nil {
		return nil, err
	}
	if tr.AccessToken == "" {
		c.log.Info("sign-up pending email confirmation", "email", email)
		return nil, nil
	}
	return c.adopt(tr.session(c.now()))
}

// Refresh trades the refresh token for a new session.
func (c *Client) Refresh(ctx context.Context) (*Session, error) {
	cur := c.CurrentSession()
	if cur == nil || cur.RefreshToken == "" {
		return nil, &Error{Message: "no refresh token"}
	}
	var tr tokenResponse
	err := c.post(ctx, "/auth/v1/token?grant_type=refresh_token", map[string]string{
		"refresh_token": cur.RefreshToken,
	}, &tr)
	if err != nil {
		return nil, err
	}
	return c.adopt(tr.session(c.now()))
}

// EnsureFresh refreshes an expired session when it can. An expired
// session that cannot be refreshed is dropped.
func (c *Client) EnsureFresh(ctx context.Context) (*Session, error) {
	cur := c.CurrentSession()
	if cur == nil || !cur.Expired(c.now()) {
		return cur, nil
	}
	if cur.RefreshToken != "" {
		return c.Refresh(ctx)
	}
	if cur.Source == SourceEnv {
		return nil, &Error{Message: TokenEnv + " has expired"}
	}
	c.log.Info("session expired", "user", cur.User.ID)
	return nil, c.clear()
}

// SignOut revokes the session server-side when possible and always forgets
// it locally. Env sessions cannot be signed out.
func (c *Client) SignOut(ctx context.Context) error {
	cur := c.CurrentSession()
	if cur == nil {
		return nil
	}
	if cur.Source == SourceEnv {
		return ErrEnvSession
	}
	if err := c.logout(ctx, cur.AccessToken); err != nil {
		c.log.Warn("server sign-out failed", "err", err)
	}
	return c.clear()
}

func (c *Client) logout(ctx context.Context, token string) error {
	req, err := c.request(ctx, "/auth/v1/logout", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	_, err = c.send(req)
	return err
}

func (c *Client) clear() error {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
	var err error
	if c.files.Dir != "" {
		err = c.files.Delete()
	}
	c.notify.publish(nil)
	return err
}

func (c *Client) adopt(s *Session) (*Session, error) {
	if s.AccessToken == "" || s.User.ID == "" {
		return nil, &Error{Message: "malformed session in response"}
	}
	if c.files.Dir != "" {
		if err := c.files.Save(s); err != nil {
			return nil, fmt.Errorf("save session: %w", err)
		}
	}
	s.Source = SourceFile
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	c.log.Info("signed in", "user", s.User.ID)
	out := *s
	c.notify.publish(&out)
	return &out, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         struct {
		ID           string         `json:"id"`
		Email        string         `json:"email"`
		UserMetadata map[string]any `json:"user_metadata"`
	} `json:"user"`
}

func (tr tokenResponse) session(now time.Time) *Session {
	s := &Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		CreatedAt:    now.UTC(),
		User:         User{ID: tr.User.ID, Email: tr.User.Email},
	}
	switch {
	case tr.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(tr.ExpiresAt, 0).UTC()
	case tr.ExpiresIn > 0:
		s.ExpiresAt = now.Add(time.Duration(tr.ExpiresIn) * time.Second).UTC()
	}
	if name, ok := tr.User.UserMetadata["full_name"].(string); ok {
		s.User.DisplayName = name
	}
	return s
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	req, err := c.request(ctx, path, body)
	if err != nil {
		return err
	}
	b, err := c.send(req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return &Error{Message: "decode response: " + err.Error()}
	}
	return nil
}

func (c *Client) request(ctx context.Context, path string, body any) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.key)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) send(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &Error{Code: CodeNetwork, Message: err.Error()}
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &Error{Code: CodeNetwork, Message: err.Error()}
	}
	if resp.StatusCode/100 != 2 {
		return nil, apiError(resp.StatusCode, b)
	}
	return b, nil
}

// apiError understands the shapes GoTrue has used over time.
func apiError(status int, body []byte) *Error {
	e := &Error{Status: status}
	var p struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		ErrorCode        string `json:"error_code"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
	}
	if json.Unmarshal(body, &p) == nil {
		e.Code = p.ErrorCode
		if e.Code == "" {
			e.Code = p.Error
		}
		for _, m := range []string{p.ErrorDescription, p.Msg, p.Message, p.Error} {
			if m != "" {
				e.Message = m
				break
			}
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}
