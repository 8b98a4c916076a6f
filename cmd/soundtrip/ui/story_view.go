package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"soundtrip/internal/story"
)

const defaultWrap = 80

// RenderStory renders a response as styled terminal text. Sections for
// lyrics, audio and themes appear only when the response carries them.
// audioURL is the resolved link; pass "" when the story has no audio.
func RenderStory(resp story.Response, s Styles, audioURL string, width int) string {
	if width <= 0 {
		width = defaultWrap
	}
	textWidth := width - 2

	title := resp.Title
	if title == "" {
		title = "Untitled"
	}

	var b strings.Builder
	b.WriteString(s.Title.Render(title))
	b.WriteString("\n")

	for _, ch := range resp.Chapters {
		b.WriteString(s.ChapterHeading.Render("■ " + ch.Name))
		b.WriteString("\n")
		b.WriteString(s.ChapterText.Width(textWidth).Render(ch.Text))
		b.WriteString("\n\n")
	}

	if resp.HasLyrics() {
		b.WriteString(s.Subtitle.Render("♪ Lyrics"))
		b.WriteString("\n")
		b.WriteString(s.Lyrics.Render(strings.TrimRight(resp.SunoLyrics, "\n")))
		b.WriteString("\n\n")
	}

	if audioURL != "" {
		b.WriteString(s.Subtitle.Render("♫ Audio"))
		b.WriteString("\n  ")
		b.WriteString(s.AudioLink.Render(audioURL))
		b.WriteString("\n\n")
	}

	if themes := resp.Themes(); len(themes) > 0 {
		badges := make([]string, 0, len(themes))
		for _, t := range themes {
			badges = append(badges, s.Badge.Render(t))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, badges...))
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// RenderMarkdown renders the markdown form of a story with glamour, using
// the dark or light standard style.
func RenderMarkdown(resp story.Response, audioURL string, dark bool, width int) (string, error) {
	if width <= 0 {
		width = defaultWrap
	}
	style := "light"
	if dark {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := r.Render(story.Markdown(resp, audioURL))
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}
