package ui

import (
	"github.com/Makepad-fr/donezo/internal/store/jsonstore"
)

// Preferences reads and flips the theme kept in the prefs slot.
type Preferences struct {
	store    *jsonstore.PrefsStore
	fallback Mode
}

// NewPreferences uses fallback until a theme has been saved.
func NewPreferences(store *jsonstore.PrefsStore, fallback Mode) *Preferences {
	if fallback == "" {
		fallback = Light
	}
	return &Preferences{store: store, fallback: fallback}
}

// Mode is the saved theme, or the fallback when none is saved or readable.
func (p *Preferences) Mode() Mode {
	v, err := p.store.Load()
	if err != nil {
		return p.fallback
	}
	m, err := ParseMode(v.Theme)
	if err != nil {
		return p.fallback
	}
	return m
}

func (p *Preferences) SetMode(m Mode) error {
	v, err := p.store.Load()
	if err != nil {
		v = jsonstore.Preferences{}
	}
	v.Theme = string(m)
	return p.store.Save(v)
}

// ToggleTheme saves and returns the opposite of the current mode.
func (p *Preferences) ToggleTheme() (Mode, error) {
	next := p.Mode().Toggle()
	return next, p.SetMode(next)
}
