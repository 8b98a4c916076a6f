// Package story defines the wire types exchanged with the Soundtrip story service
// and the builder that turns form input into a generation request.
package story

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Destination is the trip context sent to the generation service.
type Destination struct {
	City      string `json:"city"`
	Date      string `json:"date"`
	TimeOfDay string `json:"timeOfDay"`
}

// UserProfile describes the traveller. It is fixed per process.
type UserProfile struct {
	AgeRange   string   `json:"ageRange"`
	Companions string   `json:"companions"`
	Mood       []string `json:"mood"`
	Budget     string   `json:"budget"`
}

// AudioStyle selects the narration voice, background music and sound effects.
type AudioStyle struct {
	Voice string   `json:"voice"`
	BGM   string   `json:"bgm"`
	SFX   []string `json:"sfx"`
}

// Request is the body of POST /v1/stories.
type Request struct {
	Destination Destination `json:"destination"`
	UserProfile UserProfile `json:"userProfile"`
	AudioStyle  AudioStyle  `json:"audioStyle"`
	Comment     string      `json:"comment"`
}

// Key returns a stable digest of the encoded payload. Two requests with the
// same content share a key.
func (r Request) Key() string {
	data, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Chapter is one named section of the generated narrative.
type Chapter struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// AffiliateContext carries the recommendation themes the service attaches to a story.
type AffiliateContext struct {
	Themes []string `json:"themes,omitempty"`
}

// Response is the body returned by POST /v1/stories. Only Title and Chapters
// are always rendered; the remaining fields are optional.
type Response struct {
	ID               string            `json:"id,omitempty"`
	Title            string            `json:"title"`
	Chapters         []Chapter         `json:"chapters"`
	SunoLyrics       string            `json:"sunoLyrics,omitempty"`
	AffiliateContext *AffiliateContext `json:"affiliateContext,omitempty"`
	AudioURL         string            `json:"audioUrl,omitempty"`
}

// HasLyrics reports whether the lyrics section should be shown.
func (r Response) HasLyrics() bool {
	return r.SunoLyrics != ""
}

// HasAudio reports whether the response references generated audio.
func (r Response) HasAudio() bool {
	return r.AudioURL != ""
}

// Themes returns the affiliate themes, or nil.
func (r Response) Themes() []string {
	if r.AffiliateContext == nil {
		return nil
	}
	return r.AffiliateContext.Themes
}

// Clone returns a deep copy so snapshots do not alias the caller's slices.
func (r Response) Clone() Response {
	out := r
	if r.Chapters != nil {
		out.Chapters = append([]Chapter(nil), r.Chapters...)
	}
	if r.AffiliateContext != nil {
		ac := AffiliateContext{Themes: append([]string(nil), r.AffiliateContext.Themes...)}
		out.AffiliateContext = &ac
	}
	return out
}
