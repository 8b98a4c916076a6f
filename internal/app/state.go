// Package app holds the application state of the story screen and the single
// function allowed to change it.
//
// State is a plain serializable value. Update(State, Msg) returns the next
// state without touching its input, so every transition can be tested in
// isolation. Side effects (network, storage) live in Session.
package app

import (
	"time"

	"soundtrip/internal/history"
	"soundtrip/internal/story"
)

// Status is the lifecycle of the current submission.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// Field names one editable form input.
type Field string

const (
	FieldCity      Field = "city"
	FieldDate      Field = "date"
	FieldTimeOfDay Field = "timeOfDay"
	FieldComment   Field = "comment"
)

// Fields lists the form inputs in display order.
var Fields = []Field{FieldCity, FieldDate, FieldTimeOfDay, FieldComment}

// State is the whole screen. StoryForm is the form that produced Story; Form
// may have been edited since.
type State struct {
	Form         story.Form                    `json:"form"`
	Status       Status                        `json:"status"`
	Story        *story.Response               `json:"story,omitempty"`
	StoryForm    story.Form                    `json:"storyForm"`
	Error        string                        `json:"error,omitempty"`
	History      map[string]history.SavedStory `json:"history"`
	SelectedDate string                        `json:"selectedDate,omitempty"`
	DarkMode     bool                          `json:"darkMode"`
}

// DefaultForm is the form shown on a fresh start.
func DefaultForm(now time.Time) story.Form {
	return story.Form{
		City:      "Kyoto",
		Date:      now.Format("2006-01-02"),
		TimeOfDay: "Evening",
	}
}

// NewState returns an idle state with the default form.
func NewState(now time.Time) State {
	return State{
		Form:    DefaultForm(now),
		Status:  StatusIdle,
		History: map[string]history.SavedStory{},
	}
}

// Loading reports whether a submission is in flight.
func (s State) Loading() bool {
	return s.Status == StatusLoading
}

// Value returns the current text of a form field.
func (s State) Value(f Field) string {
	switch f {
	case FieldCity:
		return s.Form.City
	case FieldDate:
		return s.Form.Date
	case FieldTimeOfDay:
		return s.Form.TimeOfDay
	case FieldComment:
		return s.Form.Comment
	}
	return ""
}

// Msg is an event applied by Update.
type Msg interface {
	isMsg()
}

// FieldChanged replaces one form value.
type FieldChanged struct {
	Field Field
	Value string
}

// SubmitStarted marks the beginning of a request.
type SubmitStarted struct{}

// StoryReceived carries a successful response and the form it was built from.
type StoryReceived struct {
	Story story.Response
	Form  story.Form
}

// StoryFailed carries a user-visible failure message.
type StoryFailed struct {
	Err string
}

// HistoryLoaded replaces the in-memory history.
type HistoryLoaded struct {
	Entries map[string]history.SavedStory
}

// StorySaved records an entry that was written to storage.
type StorySaved struct {
	Entry history.SavedStory
}

// EntrySelected copies a saved entry back into the form and result.
type EntrySelected struct {
	Date string
}

// EntryDeleted drops a saved entry.
type EntryDeleted struct {
	Date string
}

// ThemeChanged sets the dark-mode flag.
type ThemeChanged struct {
	Dark bool
}

// AudioUpdated points the current story at a new audio file. The saved entry
// for Date is updated too, but only when it holds the same story.
type AudioUpdated struct {
	Date string
	URL  string
}

func (FieldChanged) isMsg()  {}
func (SubmitStarted) isMsg() {}
func (StoryReceived) isMsg() {}
func (StoryFailed) isMsg()   {}
func (HistoryLoaded) isMsg() {}
func (StorySaved) isMsg()    {}
func (EntrySelected) isMsg() {}
func (EntryDeleted) isMsg()  {}
func (ThemeChanged) isMsg()  {}
func (AudioUpdated) isMsg()  {}

// Update returns the state after msg. The input state is never modified.
func Update(s State, msg Msg) State {
	next := s
	switch m := msg.(type) {
	case FieldChanged:
		switch m.Field {
		case FieldCity:
			next.Form.City = m.Value
		case FieldDate:
			next.Form.Date = m.Value
		case FieldTimeOfDay:
			next.Form.TimeOfDay = m.Value
		case FieldComment:
			next.Form.Comment = m.Value
		}

	case SubmitStarted:
		next.Status = StatusLoading
		next.Error = ""

	case StoryReceived:
		resp := m.Story.Clone()
		next.Story = &resp
		next.StoryForm = m.Form
		next.Status = StatusReady
		next.Error = ""
		next.SelectedDate = ""

	case StoryFailed:
		next.Status = StatusFailed
		next.Error = m.Err

	case HistoryLoaded:
		next.History = copyHistory(m.Entries)
		if _, ok := next.History[next.SelectedDate]; !ok {
			next.SelectedDate = ""
		}

	case StorySaved:
		next.History = copyHistory(s.History)
		entry := m.Entry
		entry.Story = entry.Story.Clone()
		next.History[entry.Date()] = entry
		next.SelectedDate = entry.Date()

	case EntrySelected:
		entry, ok := s.History[m.Date]
		if !ok {
			return s
		}
		resp := entry.Story.Clone()
		next.Form = entry.Form
		next.Story = &resp
		next.StoryForm = entry.Form
		next.Status = StatusReady
		next.Error = ""
		next.SelectedDate = m.Date

	case EntryDeleted:
		if _, ok := s.History[m.Date]; !ok {
			return s
		}
		next.History = copyHistory(s.History)
		delete(next.History, m.Date)
		if next.SelectedDate == m.Date {
			next.SelectedDate = ""
		}

	case ThemeChanged:
		next.DarkMode = m.Dark

	case AudioUpdated:
		if s.Story != nil {
			resp := s.Story.Clone()
			resp.AudioURL = m.URL
			next.Story = &resp
		}
		if entry, ok := s.History[m.Date]; ok && s.Story != nil && entry.Story.ID == s.Story.ID {
			next.History = copyHistory(s.History)
			entry.Story = entry.Story.Clone()
			entry.Story.AudioURL = m.URL
			next.History[m.Date] = entry
		}
	}
	return next
}

func copyHistory(in map[string]history.SavedStory) map[string]history.SavedStory {
	out := make(map[string]history.SavedStory, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
