// Package history persists saved stories keyed by date and the theme
// preference into a key-value store.
//
// The history value is a schema-tagged envelope:
//
//	{"version": 2, "entries": {"2024-03-01": {"form": {...}, "story": {...}, "savedAt": "..."}}}
//
// Older unversioned maps are migrated on load. Entries that no longer decode
// are skipped, kept verbatim, and written back untouched on the next save.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"soundtrip/internal/logging"
	"soundtrip/internal/store"
	"soundtrip/internal/story"
)

const (
	// HistoryKey holds the saved-story envelope.
	HistoryKey = "soundtrip.history"

	// SchemaVersion is the current envelope version.
	SchemaVersion = 2
)

var (
	// ErrNewerSchema means the stored history was written by a newer
	// version. The store refuses to write so nothing is clobbered.
	ErrNewerSchema = errors.New("history: stored schema is newer than supported")

	// ErrNotFound is returned for an unknown date key.
	ErrNotFound = errors.New("history: no story saved for date")
)

// SavedStory is a generation response together with the inputs that produced it.
type SavedStory struct {
	Form    story.Form     `json:"form"`
	Story   story.Response `json:"story"`
	SavedAt time.Time      `json:"savedAt"`
}

// Date returns the key the story is saved under.
func (s SavedStory) Date() string {
	return s.Form.Date
}

// LoadReport describes what Load found.
type LoadReport struct {
	FromVersion int
	Migrated    bool
	Entries     int
	Skipped     []string // date keys that failed to decode
	BackupKey   string   // set when an undecodable value was moved aside
}

type envelope struct {
	Version int                        `json:"version"`
	Entries map[string]json.RawMessage `json:"entries"`
}

// Store is the date→SavedStory map. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	kv       store.KV
	entries  map[string]SavedStory
	unparsed map[string]json.RawMessage
	loaded   bool
	loadErr  error
	now      func() time.Time
}

// New creates a history store backed by kv. Call Load before reading.
func New(kv store.KV) *Store {
	return &Store{
		kv:       kv,
		entries:  make(map[string]SavedStory),
		unparsed: make(map[string]json.RawMessage),
		now:      time.Now,
	}
}

// Load reads the history from storage, migrating older layouts. A missing
// key is an empty history.
func (s *Store) Load(ctx context.Context) (*LoadReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.loadLocked(ctx)
	s.loaded = err == nil
	s.loadErr = err
	return report, err
}

func (s *Store) loadLocked(ctx context.Context) (*LoadReport, error) {
	log := logging.Get(logging.CategoryHistory)
	s.entries = make(map[string]SavedStory)
	s.unparsed = make(map[string]json.RawMessage)

	raw, ok, err := s.kv.Get(ctx, HistoryKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	report := &LoadReport{FromVersion: SchemaVersion}
	if !ok || raw == "" {
		return report, nil
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &top); err != nil {
		// Whole value is unreadable: move it aside and start empty.
		backup := fmt.Sprintf("%s.corrupt-%d", HistoryKey, s.now().Unix())
		if err := s.kv.Set(ctx, backup, raw); err != nil {
			return nil, fmt.Errorf("failed to back up corrupt history: %w", err)
		}
		if err := s.kv.Delete(ctx, HistoryKey); err != nil {
			return nil, fmt.Errorf("failed to reset corrupt history: %w", err)
		}
		log.Warn("history value unreadable, moved aside", zap.String("backup", backup), zap.Error(err))
		report.BackupKey = backup
		return report, nil
	}

	if _, versioned := top["version"]; versioned {
		var env envelope
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			return nil, fmt.Errorf("failed to parse history envelope: %w", err)
		}
		report.FromVersion = env.Version
		if env.Version > SchemaVersion {
			return report, fmt.Errorf("%w (v%d > v%d)", ErrNewerSchema, env.Version, SchemaVersion)
		}
		for date, entry := range env.Entries {
			saved, err := decodeEntry(date, entry)
			if err != nil {
				log.Warn("skipping history entry", zap.String("date", date), zap.Error(err))
				s.unparsed[date] = entry
				report.Skipped = append(report.Skipped, date)
				continue
			}
			s.entries[date] = saved
		}
	} else {
		report.FromVersion = 1
		for date, entry := range top {
			saved, err := decodeLegacyEntry(date, entry)
			if err != nil {
				log.Warn("skipping legacy history entry", zap.String("date", date), zap.Error(err))
				s.unparsed[date] = entry
				report.Skipped = append(report.Skipped, date)
				continue
			}
			s.entries[date] = saved
		}
		if err := s.persistLocked(ctx); err != nil {
			return nil, fmt.Errorf("failed to write migrated history: %w", err)
		}
		report.Migrated = true
		log.Info("history migrated",
			zap.Int("from", 1),
			zap.Int("to", SchemaVersion),
			zap.Int("entries", len(s.entries)))
	}

	sort.Strings(report.Skipped)
	report.Entries = len(s.entries)
	return report, nil
}

func decodeEntry(date string, raw json.RawMessage) (SavedStory, error) {
	var saved SavedStory
	if err := json.Unmarshal(raw, &saved); err != nil {
		return SavedStory{}, err
	}
	if saved.Form.Date == "" {
		saved.Form.Date = date
	}
	if saved.Story.Chapters == nil {
		saved.Story.Chapters = []story.Chapter{}
	}
	return saved, nil
}

// ensureLoadedLocked loads on first use and surfaces a sticky load error.
func (s *Store) ensureLoadedLocked(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	if s.loadErr != nil {
		return s.loadErr
	}
	_, err := s.loadLocked(ctx)
	s.loaded = err == nil
	s.loadErr = err
	return err
}

// Save stores entry under its form date, replacing any previous entry for
// that date, and writes the whole map back.
func (s *Store) Save(ctx context.Context, entry SavedStory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoadedLocked(ctx); err != nil {
		return err
	}
	if entry.SavedAt.IsZero() {
		entry.SavedAt = s.now()
	}
	entry.Story = entry.Story.Clone()

	date := entry.Date()
	prev, hadPrev := s.entries[date]
	prevRaw, hadRaw := s.unparsed[date]

	s.entries[date] = entry
	delete(s.unparsed, date)
	if err := s.persistLocked(ctx); err != nil {
		if hadPrev {
			s.entries[date] = prev
		} else {
			delete(s.entries, date)
		}
		if hadRaw {
			s.unparsed[date] = prevRaw
		}
		return err
	}

	logging.Get(logging.CategoryHistory).Info("story saved",
		zap.String("date", date),
		zap.Bool("replaced", hadPrev || hadRaw))
	return nil
}

// Update applies fn to the entry for date and persists the result.
func (s *Store) Update(ctx context.Context, date string, fn func(*SavedStory)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoadedLocked(ctx); err != nil {
		return err
	}
	entry, ok := s.entries[date]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, date)
	}
	prev := entry
	entry.Story = entry.Story.Clone()
	fn(&entry)
	entry.Form.Date = date
	s.entries[date] = entry
	if err := s.persistLocked(ctx); err != nil {
		s.entries[date] = prev
		return err
	}
	return nil
}

// Delete removes the entry for date.
func (s *Store) Delete(ctx context.Context, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoadedLocked(ctx); err != nil {
		return err
	}
	prev, ok := s.entries[date]
	prevRaw, okRaw := s.unparsed[date]
	if !ok && !okRaw {
		return fmt.Errorf("%w: %s", ErrNotFound, date)
	}
	delete(s.entries, date)
	delete(s.unparsed, date)
	if err := s.persistLocked(ctx); err != nil {
		if ok {
			s.entries[date] = prev
		}
		if okRaw {
			s.unparsed[date] = prevRaw
		}
		return err
	}
	return nil
}

// Get returns the entry for date.
func (s *Store) Get(date string) (SavedStory, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[date]
	if ok {
		entry.Story = entry.Story.Clone()
	}
	return entry, ok
}

// All returns a copy of every decodable entry.
func (s *Store) All() map[string]SavedStory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]SavedStory, len(s.entries))
	for date, entry := range s.entries {
		entry.Story = entry.Story.Clone()
		out[date] = entry
	}
	return out
}

// Dates returns the saved date keys, newest first.
func (s *Store) Dates() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dates := make([]string, 0, len(s.entries))
	for date := range s.entries {
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates
}

// persistLocked serializes every entry, including ones that failed to decode.
func (s *Store) persistLocked(ctx context.Context) error {
	env := envelope{
		Version: SchemaVersion,
		Entries: make(map[string]json.RawMessage, len(s.entries)+len(s.unparsed)),
	}
	for date, raw := range s.unparsed {
		env.Entries[date] = raw
	}
	for date, entry := range s.entries {
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal entry %s: %w", date, err)
		}
		env.Entries[date] = data
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	if err := s.kv.Set(ctx, HistoryKey, string(data)); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}
