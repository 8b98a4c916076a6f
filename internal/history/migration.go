package history

import (
	"encoding/json"
	"fmt"
	"time"

	"soundtrip/internal/story"
)

// legacyEntry is the flat layout the mobile app stored per date, with the
// response fields and the form fields side by side.
type legacyEntry struct {
	ID               string                  `json:"id"`
	Title            string                  `json:"title"`
	Chapters         []story.Chapter         `json:"chapters"`
	SunoLyrics       string                  `json:"sunoLyrics"`
	AudioURL         *string                 `json:"audioUrl"`
	AffiliateContext *story.AffiliateContext `json:"affiliateContext"`

	City      string `json:"city"`
	Date      string `json:"date"`
	TimeOfDay string `json:"timeOfDay"`
	Comment   string `json:"comment"`
	SavedAt   string `json:"savedAt"`
}

// decodeLegacyEntry converts a version 1 entry into a SavedStory. An entry
// that is not an object, or has neither a title nor chapters, is rejected.
func decodeLegacyEntry(date string, raw json.RawMessage) (SavedStory, error) {
	var old legacyEntry
	if err := json.Unmarshal(raw, &old); err != nil {
		return SavedStory{}, err
	}
	if old.Title == "" && old.Chapters == nil {
		return SavedStory{}, fmt.Errorf("entry %s has no story content", date)
	}

	saved := SavedStory{
		Form: story.Form{
			City:      old.City,
			Date:      old.Date,
			TimeOfDay: old.TimeOfDay,
			Comment:   old.Comment,
		},
		Story: story.Response{
			ID:               old.ID,
			Title:            old.Title,
			Chapters:         old.Chapters,
			SunoLyrics:       old.SunoLyrics,
			AffiliateContext: old.AffiliateContext,
		},
	}
	if old.AudioURL != nil {
		saved.Story.AudioURL = *old.AudioURL
	}
	if saved.Story.Chapters == nil {
		saved.Story.Chapters = []story.Chapter{}
	}
	// The map key is authoritative.
	saved.Form.Date = date
	if old.SavedAt != "" {
		if ts, err := time.Parse(time.RFC3339, old.SavedAt); err == nil {
			saved.SavedAt = ts
		}
	}
	return saved, nil
}
