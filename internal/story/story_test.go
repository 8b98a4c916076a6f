package story

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBuilder_DestinationAndComment(t *testing.T) {
	req := NewBuilder().Build(Form{
		City:      "京都",
		Date:      "2024-03-01",
		TimeOfDay: "夕方",
		Comment:   "",
	})

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	wantDest := map[string]interface{}{
		"city":      "京都",
		"date":      "2024-03-01",
		"timeOfDay": "夕方",
	}
	if diff := cmp.Diff(wantDest, body["destination"]); diff != "" {
		t.Errorf("destination mismatch (-want +got):\n%s", diff)
	}

	comment, ok := body["comment"]
	if !ok {
		t.Fatalf("comment field missing from body: %s", data)
	}
	if comment != "" {
		t.Errorf("expected empty comment, got %q", comment)
	}
}

func TestBuilder_FixedProfileAndAudio(t *testing.T) {
	req := NewBuilder().Build(Form{City: "Kyoto"})

	if diff := cmp.Diff(DefaultProfile(), req.UserProfile); diff != "" {
		t.Errorf("profile mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(DefaultAudioStyle(), req.AudioStyle); diff != "" {
		t.Errorf("audio style mismatch (-want +got):\n%s", diff)
	}
}

func TestBuilder_DoesNotAliasConfiguredSlices(t *testing.T) {
	b := NewBuilder()
	req := b.Build(Form{})
	req.UserProfile.Mood[0] = "loud"
	req.AudioStyle.SFX[0] = "horn"

	if b.Profile.Mood[0] != "quiet" {
		t.Errorf("builder profile mutated through request: %v", b.Profile.Mood)
	}
	if b.AudioStyle.SFX[0] != "temple_bell" {
		t.Errorf("builder audio style mutated through request: %v", b.AudioStyle.SFX)
	}
}

func TestBuilder_AcceptsEmptyFields(t *testing.T) {
	req := NewBuilder().Build(Form{})
	if req.Destination != (Destination{}) {
		t.Errorf("expected empty destination, got %+v", req.Destination)
	}
}

func TestRequestKey(t *testing.T) {
	b := NewBuilder()
	a := b.Build(Form{City: "Kyoto", Date: "2024-03-01"})
	same := b.Build(Form{City: "Kyoto", Date: "2024-03-01"})
	other := b.Build(Form{City: "Osaka", Date: "2024-03-01"})

	if a.Key() == "" {
		t.Fatal("expected non-empty key")
	}
	if a.Key() != same.Key() {
		t.Error("identical payloads should share a key")
	}
	if a.Key() == other.Key() {
		t.Error("different payloads should not share a key")
	}
}

func TestResponse_DecodesNullAudioAndUnknownFields(t *testing.T) {
	raw := `{"id":"story_1","title":"T","chapters":[{"name":"導入","text":"x"}],"audioUrl":null,"extra":1}`
	var r Response
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if r.HasAudio() {
		t.Errorf("null audioUrl should mean no audio, got %q", r.AudioURL)
	}
	if r.ID != "story_1" || len(r.Chapters) != 1 {
		t.Errorf("unexpected decode result: %+v", r)
	}
}

func TestResponse_Clone(t *testing.T) {
	r := Response{
		Title:            "T",
		Chapters:         []Chapter{{Name: "a", Text: "b"}},
		AffiliateContext: &AffiliateContext{Themes: []string{"x"}},
	}
	c := r.Clone()
	c.Chapters[0].Name = "changed"
	c.AffiliateContext.Themes[0] = "y"

	if r.Chapters[0].Name != "a" || r.AffiliateContext.Themes[0] != "x" {
		t.Errorf("clone aliases original: %+v", r)
	}
}

func TestMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		resp     Response
		audio    string
		contains []string
		absent   []string
	}{
		{
			name:     "zero chapters",
			resp:     Response{Title: "Empty"},
			contains: []string{"# Empty"},
			absent:   []string{"■", "## Lyrics", "## Audio"},
		},
		{
			name: "full story",
			resp: Response{
				Title:            "京都、2024-03-01の夕方に",
				Chapters:         []Chapter{{Name: "導入", Text: "京都の空気。"}, {Name: "余韻", Text: "帰り道"}},
				SunoLyrics:       "[Verse 1]\n京都の街角",
				AudioURL:         "/audio/story_1.mp3",
				AffiliateContext: &AffiliateContext{Themes: []string{"町家宿"}},
			},
			audio: "http://localhost:8000/audio/story_1.mp3",
			contains: []string{
				"## ■ 導入\n\n京都の空気。",
				"## ■ 余韻",
				"## Lyrics",
				"[Verse 1]  \n京都の街角  \n",
				"## Audio\n\nhttp://localhost:8000/audio/story_1.mp3",
				"- 町家宿",
			},
		},
		{
			name:     "no lyrics or audio",
			resp:     Response{Title: "T", Chapters: []Chapter{{Name: "a", Text: "b"}}},
			contains: []string{"## ■ a"},
			absent:   []string{"## Lyrics", "## Audio", "## Related"},
		},
		{
			name:     "untitled",
			resp:     Response{},
			contains: []string{"# Untitled"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Markdown(tt.resp, tt.audio)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("expected output to contain %q, got:\n%s", want, got)
				}
			}
			for _, unwanted := range tt.absent {
				if strings.Contains(got, unwanted) {
					t.Errorf("expected output to omit %q, got:\n%s", unwanted, got)
				}
			}
		})
	}
}
