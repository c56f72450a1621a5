package jsonstore

import (
	"encoding/json"
	"fmt"
)

const PrefsKey = "prefs"

// Preferences persisted next to the task slot.
type Preferences struct {
	Theme string `json:"theme"`
}

// PrefsStore reads and writes the preferences slot.
type PrefsStore struct {
	slot Slot
}

func NewPrefs(dir string) *PrefsStore {
	return &PrefsStore{slot: Slot{Dir: dir, Key: PrefsKey}}
}

// Load returns zero Preferences when nothing was saved yet.
func (p *PrefsStore) Load() (Preferences, error) {
	var out Preferences
	b, err := p.slot.read()
	if err != nil || b == nil {
		return out, err
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return Preferences{}, fmt.Errorf("json unmarshal: %w", err)
	}
	return out, nil
}

func (p *PrefsStore) Save(v Preferences) error { return p.slot.write(v) }
