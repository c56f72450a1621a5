package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Makepad-fr/donezo/internal/auth"
	"github.com/Makepad-fr/donezo/internal/config"
	"github.com/Makepad-fr/donezo/internal/model"
	"github.com/Makepad-fr/donezo/internal/viewmodel"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Backend = backend
	return cfg
}

func TestLocalSeedsAndLoads(t *testing.T) {
	cfg := testConfig(t, config.BackendLocal)
	a, err := Open(context.Background(), cfg, nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	if err := a.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if a.VM.Len() != 3 || a.VM.Remote() {
		t.Fatalf("len=%d remote=%v", a.VM.Len(), a.VM.Remote())
	}

	// a second open must not reseed over the user's list
	op := a.VM.Remove(a.VM.Tasks()[0].ID)
	if err := a.VM.Commit(context.Background(), op); err != nil {
		t.Fatal(err)
	}
	b, err := Open(context.Background(), cfg, nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	if err := b.Load(context.Background()); err != nil || b.VM.Len() != 2 {
		t.Errorf("reopen len=%d err=%v", b.VM.Len(), err)
	}
}

func TestLocalWithoutSamples(t *testing.T) {
	cfg := testConfig(t, config.BackendLocal)
	cfg.SeedSamples = false
	a, err := Open(context.Background(), cfg, nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	if err := a.Load(context.Background()); err != nil || a.VM.Len() != 0 {
		t.Errorf("len=%d err=%v", a.VM.Len(), err)
	}
}

func TestSQLiteBackend(t *testing.T) {
	cfg := testConfig(t, config.BackendSQLite)
	cfg.SQL.DSN = filepath.Join(cfg.DataDir, "tasks.db")
	cfg.SQL.User = "ada"
	a, err := Open(context.Background(), cfg, nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	if !a.VM.Remote() || a.VM.UserID() != "ada" {
		t.Fatalf("remote=%v user=%q", a.VM.Remote(), a.VM.UserID())
	}
	if err := a.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	op, _ := a.VM.Add("Buy milk", "", model.PriorityLow)
	if err := a.VM.Commit(context.Background(), op); err != nil {
		t.Fatal(err)
	}
	if a.slot.Exists() {
		t.Error("sql backend wrote the fallback slot")
	}

	a.VM.Reset()
	if err := a.Load(context.Background()); err != nil || a.VM.Len() != 1 {
		t.Errorf("reload len=%d err=%v", a.VM.Len(), err)
	}
}

// hosted fakes the auth and rest endpoints for one user.
func hosted(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"access_token":"jwt","expires_in":3600,"user":{"id":"u1","email":"ada@example.com","user_metadata":{"full_name":"Ada"}}}`)
	})
	mux.HandleFunc("/rest/v1/tasks", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer jwt" {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"message":"no session"}`)
			return
		}
		if !strings.Contains(r.URL.RawQuery, "user_id=eq.u1") {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		io.WriteString(w, `[{"id":"r1","title":"from server","notes":null,"priority":null,"is_completed":false,"created_at":"2025-09-01T09:00:00Z"}]`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSupabaseSessionRebinds(t *testing.T) {
	t.Setenv(auth.TokenEnv, "")
	srv := hosted(t)
	cfg := testConfig(t, config.BackendSupabase)
	cfg.Supabase.URL, cfg.Supabase.AnonKey = srv.URL, "anon"
	cfg.SeedSamples = false

	a, err := Open(context.Background(), cfg, nil, Options{HTTPClient: srv.Client(), Now: func() time.Time {
		return time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	}})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	if a.VM.Remote() {
		t.Fatal("remote attached without a session")
	}
	if err := a.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, err := a.Auth.SignIn(context.Background(), "ada@example.com", "pw"); err != nil {
		t.Fatal(err)
	}
	if !a.VM.Remote() || a.VM.UserID() != "u1" {
		t.Fatalf("not rebound: remote=%v user=%q", a.VM.Remote(), a.VM.UserID())
	}
	if a.VM.State() != viewmodel.Ready || a.VM.Len() != 1 {
		t.Errorf("state=%v len=%d", a.VM.State(), a.VM.Len())
	}
	if a.UserName() != "Ada" {
		t.Errorf("UserName = %q", a.UserName())
	}

	if err := a.Auth.SignOut(context.Background()); err != nil {
		t.Fatal(err)
	}
	if a.VM.Remote() || a.VM.State() != viewmodel.Ready {
		t.Errorf("after sign-out remote=%v state=%v", a.VM.Remote(), a.VM.State())
	}
}

func TestCustomSessionHandler(t *testing.T) {
	t.Setenv(auth.TokenEnv, "")
	srv := hosted(t)
	cfg := testConfig(t, config.BackendSupabase)
	cfg.Supabase.URL, cfg.Supabase.AnonKey = srv.URL, "anon"

	a, err := Open(context.Background(), cfg, nil, Options{HTTPClient: srv.Client()})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	var got []*auth.Session
	a.SetSessionHandler(func(s *auth.Session) { got = append(got, s) })
	if _, err := a.Auth.SignIn(context.Background(), "ada@example.com", "pw"); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || a.VM.Remote() {
		t.Errorf("handler calls=%d remote=%v", len(got), a.VM.Remote())
	}
}
