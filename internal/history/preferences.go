package history

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"soundtrip/internal/logging"
	"soundtrip/internal/store"
)

// ThemeKey holds the dark-mode flag as "true" or "false".
const ThemeKey = "soundtrip.theme.dark"

// Preferences manages the persisted theme flag.
type Preferences struct {
	mu   sync.RWMutex
	kv   store.KV
	dark bool
}

// NewPreferences creates a preferences manager backed by kv.
func NewPreferences(kv store.KV) *Preferences {
	return &Preferences{kv: kv}
}

// Load reads the flag. A missing or unparseable value means light mode.
func (p *Preferences) Load(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	raw, ok, err := p.kv.Get(ctx, ThemeKey)
	if err != nil {
		return false, fmt.Errorf("failed to read theme: %w", err)
	}
	p.dark = false
	if !ok {
		return false, nil
	}
	dark, err := strconv.ParseBool(raw)
	if err != nil {
		logging.Get(logging.CategoryHistory).Warn("ignoring invalid theme value", zap.String("value", raw))
		return false, nil
	}
	p.dark = dark
	return dark, nil
}

// Dark returns the last loaded or written flag.
func (p *Preferences) Dark() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dark
}

// SetDark persists the flag.
func (p *Preferences) SetDark(ctx context.Context, dark bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.setLocked(ctx, dark)
}

// Toggle flips and persists the flag, returning the new value.
func (p *Preferences) Toggle(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := !p.dark
	if err := p.setLocked(ctx, next); err != nil {
		return p.dark, err
	}
	return next, nil
}

func (p *Preferences) setLocked(ctx context.Context, dark bool) error {
	if err := p.kv.Set(ctx, ThemeKey, strconv.FormatBool(dark)); err != nil {
		return fmt.Errorf("failed to write theme: %w", err)
	}
	p.dark = dark
	logging.Get(logging.CategoryHistory).Debug("theme updated", zap.Bool("dark", dark))
	return nil
}
