package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"soundtrip/internal/client"
	"soundtrip/internal/history"
	"soundtrip/internal/logging"
	"soundtrip/internal/story"
)

var (
	// ErrBusy is returned when a submission is already in flight.
	ErrBusy = errors.New("a story is already being generated")

	// ErrNoStory is returned by Save and RegenerateAudio without a current story.
	ErrNoStory = errors.New("no story to save")

	// ErrUnknownDate is returned when no entry exists for a date.
	ErrUnknownDate = errors.New("no saved story for date")
)

// StoryService is the subset of the story client the session needs.
type StoryService interface {
	CreateStory(ctx context.Context, req story.Request) (*story.Response, error)
	RegenerateAudio(ctx context.Context, id string, s story.Response) (string, error)
}

var _ StoryService = (*client.Client)(nil)

// Session owns the state and runs the side effects that produce messages.
// All methods are safe for concurrent use.
type Session struct {
	mu       sync.Mutex
	state    State
	service  StoryService
	history  *history.Store
	prefs    *history.Preferences
	builder  story.Builder
	now      func() time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithClock sets the time source used for save timestamps and the default form date.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// NewSession wires a session. Call Load before use.
func NewSession(svc StoryService, hist *history.Store, prefs *history.Preferences, builder story.Builder, opts ...Option) *Session {
	s := &Session{
		service: svc,
		history: hist,
		prefs:   prefs,
		builder: builder,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = NewState(s.now())
	return s
}

// SetService swaps the story service, e.g. after the API base changed.
// A submission already in flight keeps the old one.
func (s *Session) SetService(svc StoryService) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.service = svc
}

// State returns a snapshot of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies msg and returns the resulting state.
func (s *Session) Dispatch(msg Msg) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dispatchLocked(msg)
}

func (s *Session) dispatchLocked(msg Msg) State {
	s.state = Update(s.state, msg)
	return s.state
}

// Load reads history and the theme flag into state. A history written by a
// newer version is reported after the theme has still been applied.
func (s *Session) Load(ctx context.Context) (*history.LoadReport, error) {
	log := logging.Get(logging.CategorySession)

	report, histErr := s.history.Load(ctx)
	if histErr == nil {
		s.Dispatch(HistoryLoaded{Entries: s.history.All()})
		if len(report.Skipped) > 0 {
			log.Warn("history entries skipped", zap.Strings("dates", report.Skipped))
		}
	}

	dark, err := s.prefs.Load(ctx)
	if err != nil {
		return report, err
	}
	s.Dispatch(ThemeChanged{Dark: dark})

	if histErr != nil {
		return report, fmt.Errorf("failed to load history: %w", histErr)
	}
	log.Debug("session loaded", zap.Int("entries", report.Entries), zap.Bool("dark", dark))
	return report, nil
}

// SetField updates one form value.
func (s *Session) SetField(field Field, value string) State {
	return s.Dispatch(FieldChanged{Field: field, Value: value})
}

// Submit sends the current form. The session never stays in the loading
// state after Submit returns.
func (s *Session) Submit(ctx context.Context) (*story.Response, error) {
	log := logging.Get(logging.CategorySession)

	s.mu.Lock()
	if s.state.Loading() {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	form := s.state.Form
	req := s.builder.Build(form)
	svc := s.service
	s.dispatchLocked(SubmitStarted{})
	s.mu.Unlock()

	log.Info("submitting story request",
		zap.String("city", req.Destination.City),
		zap.String("date", req.Destination.Date))

	resp, err := svc.CreateStory(ctx, req)
	if err != nil {
		log.Warn("story request failed", zap.Error(err))
		s.Dispatch(StoryFailed{Err: FailureMessage(err)})
		return nil, err
	}
	s.Dispatch(StoryReceived{Story: *resp, Form: form})
	return resp, nil
}

// Save writes the current story together with the form that produced it,
// under that form's date, replacing any earlier entry for the date.
func (s *Session) Save(ctx context.Context) (history.SavedStory, error) {
	st := s.State()
	if st.Story == nil {
		return history.SavedStory{}, ErrNoStory
	}
	entry := history.SavedStory{
		Form:    st.StoryForm,
		Story:   st.Story.Clone(),
		SavedAt: s.now(),
	}
	if err := s.history.Save(ctx, entry); err != nil {
		return history.SavedStory{}, err
	}
	s.Dispatch(StorySaved{Entry: entry})
	return entry, nil
}

// Select restores a saved entry into the form and result.
func (s *Session) Select(date string) error {
	s.mu.Lock()
	if _, ok := s.state.History[date]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownDate, date)
	}
	s.dispatchLocked(EntrySelected{Date: date})
	s.mu.Unlock()
	return nil
}

// Delete removes a saved entry from storage and state.
func (s *Session) Delete(ctx context.Context, date string) error {
	if err := s.history.Delete(ctx, date); err != nil {
		if errors.Is(err, history.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrUnknownDate, date)
		}
		return err
	}
	s.Dispatch(EntryDeleted{Date: date})
	return nil
}

// ToggleTheme flips and persists the dark-mode flag.
func (s *Session) ToggleTheme(ctx context.Context) (bool, error) {
	dark, err := s.prefs.Toggle(ctx)
	if err != nil {
		return s.State().DarkMode, err
	}
	s.Dispatch(ThemeChanged{Dark: dark})
	return dark, nil
}

// RegenerateAudio asks the service for new audio for the current story. The
// saved entry is updated only when the current story is the one saved there.
func (s *Session) RegenerateAudio(ctx context.Context) (string, error) {
	st := s.State()
	if st.Story == nil {
		return "", ErrNoStory
	}
	s.mu.Lock()
	svc := s.service
	s.mu.Unlock()
	audioURL, err := svc.RegenerateAudio(ctx, st.Story.ID, *st.Story)
	if err != nil {
		return "", err
	}

	date := st.SelectedDate
	if entry, saved := st.History[date]; saved && entry.Story.ID == st.Story.ID {
		err := s.history.Update(ctx, date, func(e *history.SavedStory) {
			e.Story.AudioURL = audioURL
		})
		if err != nil {
			return "", err
		}
	} else {
		date = ""
	}
	s.Dispatch(AudioUpdated{Date: date, URL: audioURL})
	return audioURL, nil
}

// FailureMessage turns a service error into the text shown to the user.
func FailureMessage(err error) string {
	var se *client.StatusError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "The story service did not answer in time. Try again."
	case errors.Is(err, context.Canceled):
		return "Request canceled."
	case client.IsStatus(err, http.StatusTooManyRequests):
		return "The story service is busy. Try again shortly."
	case errors.As(err, &se):
		return fmt.Sprintf("The story service returned an error (HTTP %d).", se.StatusCode)
	case errors.Is(err, client.ErrResponseTooLarge):
		return "The story service returned a response that is too large."
	case errors.Is(err, client.ErrMalformedResponse):
		return "The story service returned a response that could not be read."
	case errors.Is(err, client.ErrTransport):
		return "Could not reach the story service. Check the connection and API base URL."
	default:
		return err.Error()
	}
}
