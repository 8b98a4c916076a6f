package story

// Form holds the user-entered fields of the story screen.
type Form struct {
	City      string `json:"city"`
	Date      string `json:"date"`
	TimeOfDay string `json:"timeOfDay"`
	Comment   string `json:"comment"`
}

// DefaultProfile is the traveller profile sent when none is configured.
func DefaultProfile() UserProfile {
	return UserProfile{
		AgeRange:   "30s",
		Companions: "solo",
		Mood:       []string{"quiet", "nostalgic"},
		Budget:     "mid",
	}
}

// DefaultAudioStyle is the narration style sent when none is configured.
func DefaultAudioStyle() AudioStyle {
	return AudioStyle{
		Voice: "ja-JP-NanamiNeural",
		BGM:   "jazz_ambient",
		SFX:   []string{"temple_bell", "river", "alley"},
	}
}

// Builder assembles requests with a fixed profile and audio style.
type Builder struct {
	Profile    UserProfile
	AudioStyle AudioStyle
}

// NewBuilder returns a Builder using the default profile and audio style.
func NewBuilder() Builder {
	return Builder{
		Profile:    DefaultProfile(),
		AudioStyle: DefaultAudioStyle(),
	}
}

// Build turns the form into a request. Fields are copied verbatim; nothing is
// validated or trimmed.
func (b Builder) Build(f Form) Request {
	profile := b.Profile
	profile.Mood = append([]string{}, b.Profile.Mood...)
	audio := b.AudioStyle
	audio.SFX = append([]string{}, b.AudioStyle.SFX...)

	return Request{
		Destination: Destination{
			City:      f.City,
			Date:      f.Date,
			TimeOfDay: f.TimeOfDay,
		},
		UserProfile: profile,
		AudioStyle:  audio,
		Comment:     f.Comment,
	}
}
