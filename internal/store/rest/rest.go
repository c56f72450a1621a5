// Package rest talks to the hosted tasks table through its PostgREST API.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Makepad-fr/donezo/internal/model"
	"github.com/Makepad-fr/donezo/internal/schema"
	"github.com/Makepad-fr/donezo/internal/store"
)

const tablePath = "/rest/v1/tasks"

// Options configure a Store. URL and AnonKey are required.
type Options struct {
	URL     string
	AnonKey string
	// Token returns the current access token; "" falls back to the anon key.
	Token      func() string
	HTTPClient *http.Client
	Logger     *log.Logger
}

type Store struct {
	base   string
	key    string
	token  func() string
	client *http.Client
	log    *log.Logger
}

var _ store.Store = (*Store)(nil)

func New(opts Options) (*Store, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, fmt.Errorf("rest: missing url")
	}
	if _, err := url.Parse(opts.URL); err != nil {
		return nil, fmt.Errorf("rest: url: %w", err)
	}
	if opts.AnonKey == "" {
		return nil, fmt.Errorf("rest: missing anon key")
	}
	s := &Store{
		base:   strings.TrimRight(opts.URL, "/"),
		key:    opts.AnonKey,
		token:  opts.Token,
		client: opts.HTTPClient,
		log:    opts.Logger,
	}
	if s.token == nil {
		s.token = func() string { return "" }
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: 15 * time.Second}
	}
	if s.log == nil {
		s.log = log.New(io.Discard)
	}
	return s, nil
}

// Error is a non-2xx answer from the API.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("rest: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("rest: %d: %s", e.Status, e.Message)
}

// row is the wire shape of a tasks record.
type row struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id,omitempty"`
	Title       string  `json:"title"`
	Notes       *string `json:"notes"`
	Priority    *string `json:"priority"`
	IsCompleted bool    `json:"is_completed"`
	CreatedAt   string  `json:"created_at"`
}

func toRow(userID string, t model.Task) row {
	r := row{
		ID:          t.ID,
		UserID:      userID,
		Title:       t.Title,
		IsCompleted: t.IsCompleted,
		CreatedAt:   model.Timestamp(t.CreatedAt).Format(time.RFC3339Nano),
	}
	if t.Notes != "" {
		r.Notes = &t.Notes
	}
	if t.Priority != model.PriorityNone {
		p := string(t.Priority)
		r.Priority = &p
	}
	return r
}

// toTask maps a validated row. Null notes and priority become the zero values.
func (r row) toTask() (model.Task, error) {
	t := model.Task{ID: r.ID, Title: strings.TrimSpace(r.Title), IsCompleted: r.IsCompleted}
	if r.Notes != nil {
		t.Notes = model.NormalizeNotes(*r.Notes)
	}
	if r.Priority != nil {
		p, err := model.ParsePriority(*r.Priority)
		if err != nil {
			return model.Task{}, err
		}
		t.Priority = p
	}
	at, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
	if err != nil {
		return model.Task{}, fmt.Errorf("created_at: %w", err)
	}
	t.CreatedAt = model.Timestamp(at)
	return t, nil
}

// decodeRows validates every element against the row schema. Rows that do
// not fit are skipped so one bad record does not hide the rest.
func (s *Store) decodeRows(body []byte) ([]model.Task, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	out := make([]model.Task, 0, len(raw))
	for i, msg := range raw {
		if err := schema.ValidateJSON(schema.Row, msg); err != nil {
			s.log.Warn("skip invalid row", "index", i, "err", err)
			continue
		}
		var r row
		if err := json.Unmarshal(msg, &r); err != nil {
			s.log.Warn("skip invalid row", "index", i, "err", err)
			continue
		}
		t, err := r.toTask()
		if err != nil {
			s.log.Warn("skip invalid row", "id", r.ID, "err", err)
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Store) List(ctx context.Context, userID string) ([]model.Task, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("user_id", "eq."+userID)
	q.Set("order", "created_at.desc")
	body, err := s.do(ctx, http.MethodGet, q, nil)
	if err != nil {
		return nil, err
	}
	return s.decodeRows(body)
}

func (s *Store) Insert(ctx context.Context, userID string, t model.Task) (model.Task, error) {
	body, err := s.do(ctx, http.MethodPost, nil, toRow(userID, t))
	if err != nil {
		return model.Task{}, err
	}
	tasks, err := s.decodeRows(body)
	if err != nil {
		return model.Task{}, err
	}
	if len(tasks) == 0 {
		// nothing usable echoed back; keep what was sent
		return t, nil
	}
	return tasks[0], nil
}

func (s *Store) Update(ctx context.Context, id string, p model.Patch) error {
	if p.IsEmpty() {
		return nil
	}
	fields := map[string]any{}
	if p.Title != nil {
		fields["title"] = *p.Title
	}
	if p.Notes != nil {
		fields["notes"] = nullable(*p.Notes)
	}
	if p.Priority != nil {
		fields["priority"] = nullable(string(*p.Priority))
	}
	if p.IsCompleted != nil {
		fields["is_completed"] = *p.IsCompleted
	}
	return s.mutate(ctx, http.MethodPatch, id, fields)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, http.MethodDelete, id, nil)
}

// mutate asks for the affected rows back so a missing id can be reported.
func (s *Store) mutate(ctx context.Context, method, id string, payload any) error {
	q := url.Values{}
	q.Set("id", "eq."+id)
	body, err := s.do(ctx, method, q, payload)
	if err != nil {
		return err
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return fmt.Errorf("decode rows: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("task %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *Store) do(ctx context.Context, method string, q url.Values, payload any) ([]byte, error) {
	u := s.base + tablePath
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	var rd io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", s.key)
	bearer := s.token()
	if bearer == "" {
		bearer = s.key
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s tasks: %w", strings.ToLower(method), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	s.log.Debug("rest", "method", method, "status", resp.StatusCode, "took", time.Since(start))
	if resp.StatusCode/100 != 2 {
		return nil, apiError(resp.StatusCode, body)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("[]")
	}
	return body, nil
}

func apiError(status int, body []byte) *Error {
	e := &Error{Status: status}
	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Message != "" {
		e.Code, e.Message = payload.Code, payload.Message
		return e
	}
	e.Message = strings.TrimSpace(string(body))
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
