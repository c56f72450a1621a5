// Package app wires configuration, the session and the backends into one
// view model for the CLI and the interactive list.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Makepad-fr/donezo/internal/auth"
	"github.com/Makepad-fr/donezo/internal/config"
	"github.com/Makepad-fr/donezo/internal/export"
	"github.com/Makepad-fr/donezo/internal/store"
	"github.com/Makepad-fr/donezo/internal/store/jsonstore"
	"github.com/Makepad-fr/donezo/internal/store/rest"
	"github.com/Makepad-fr/donezo/internal/store/sqlstore"
	"github.com/Makepad-fr/donezo/internal/ui"
	"github.com/Makepad-fr/donezo/internal/viewmodel"
)

type App struct {
	Config   *config.Config
	Log      *log.Logger
	VM       *viewmodel.ViewModel
	Prefs    *ui.Preferences
	Exporter *export.Exporter
	// Auth is nil unless the supabase backend is configured.
	Auth *auth.Client

	slot   *jsonstore.Slot
	remote store.Store // the data store a session maps to (rest or sql)
	sqlUID string
	now    func() time.Time

	onSession func(*auth.Session)
	unwatch   func()
	closers   []io.Closer
}

// Options override collaborators in tests.
type Options struct {
	HTTPClient *http.Client
	Now        func() time.Time
	NewID      func() string
}

// Open builds the app for cfg. Nothing is fetched yet; call Load.
func Open(ctx context.Context, cfg *config.Config, logger *log.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	a := &App{
		Config: cfg,
		Log:    logger,
		Prefs:  ui.NewPreferences(jsonstore.NewPrefs(cfg.DataDir), ui.Mode(cfg.Theme)),
		slot:   jsonstore.Tasks(cfg.DataDir),
		now:    opts.Now,
	}
	if a.now == nil {
		a.now = time.Now
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout.Duration}
	}

	var (
		remote store.Store
		userID string
	)
	switch cfg.Backend {
	case config.BackendSupabase:
		ac, err := auth.New(auth.Options{
			URL:        cfg.Supabase.URL,
			AnonKey:    cfg.Supabase.AnonKey,
			Store:      auth.FileStore{Dir: cfg.DataDir},
			HTTPClient: client,
			Logger:     logger.WithPrefix("auth"),
			Now:        a.now,
		})
		if err != nil {
			return nil, err
		}
		rs, err := rest.New(rest.Options{
			URL:        cfg.Supabase.URL,
			AnonKey:    cfg.Supabase.AnonKey,
			Token:      ac.AccessToken,
			HTTPClient: client,
			Logger:     logger.WithPrefix("rest"),
		})
		if err != nil {
			return nil, err
		}
		a.Auth, a.remote = ac, rs
		s, err := ac.EnsureFresh(ctx)
		if err != nil {
			// keep going signed out; the user can sign in again
			logger.Warn("session refresh failed", "err", err)
		}
		remote, userID = a.StoreFor(s)
		a.onSession = a.rebindSync
		a.unwatch = ac.Subscribe(func(s *auth.Session) {
			if a.onSession != nil {
				a.onSession(s)
			}
		})
	case config.BackendMySQL, config.BackendSQLite:
		ss, err := sqlstore.Open(ctx, sqlstore.Dialect(cfg.Backend), cfg.SQL.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, ss)
		a.remote, a.sqlUID = ss, cfg.SQL.User
		remote, userID = ss, cfg.SQL.User
	case config.BackendLocal:
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	if remote == nil && cfg.SeedSamples {
		seeded, err := a.slot.SeedIfMissing(a.now())
		if err != nil {
			logger.Warn("seed samples", "err", err)
		} else if seeded {
			logger.Info("seeded sample tasks", "path", a.slot.Path())
		}
	}

	a.VM = viewmodel.New(viewmodel.Options{
		Remote: remote,
		UserID: userID,
		Slot:   a.slot,
		Logger: logger.WithPrefix("tasks"),
		Now:    a.now,
		NewID:  opts.NewID,
	})
	a.Exporter = export.NewExporter(a.VM, a.now)
	return a, nil
}

// StoreFor maps a session to the store and identity the view model should
// use. Without a session the local slot is used.
func (a *App) StoreFor(s *auth.Session) (store.Store, string) {
	if a.sqlUID != "" {
		return a.remote, a.sqlUID
	}
	if s == nil || a.remote == nil {
		return nil, ""
	}
	return a.remote, s.User.ID
}

// Rebind attaches the store for s and starts a load. The caller runs the
// returned op and feeds the result to VM.FinishLoad.
func (a *App) Rebind(s *auth.Session) *viewmodel.LoadOp {
	st, uid := a.StoreFor(s)
	a.VM.Attach(st, uid)
	a.Log.Debug("rebound", "remote", st != nil, "user", uid)
	return a.VM.BeginLoad()
}

func (a *App) rebindSync(s *auth.Session) {
	op := a.Rebind(s)
	_ = a.VM.FinishLoad(op.Do(context.Background()))
}

// SetSessionHandler replaces the default handler, which rebinds and loads
// on the calling goroutine. The interactive list routes events through its
// own loop instead.
func (a *App) SetSessionHandler(fn func(*auth.Session)) { a.onSession = fn }

// Load fetches the list on the calling goroutine.
func (a *App) Load(ctx context.Context) error { return a.VM.Load(ctx) }

// UserName is the signed-in user's display name, "" otherwise.
func (a *App) UserName() string {
	if a.Auth == nil {
		return ""
	}
	if s := a.Auth.CurrentSession(); s != nil {
		return s.User.Name()
	}
	return ""
}

// Mode is the theme to render with.
func (a *App) Mode() ui.Mode { return a.Prefs.Mode() }

func (a *App) Close() error {
	a.VM.Close()
	if a.unwatch != nil {
		a.unwatch()
	}
	var first error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
