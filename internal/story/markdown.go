package story

import (
	"strings"
)

// Markdown renders a response as a markdown document. Lyrics, audio and
// affiliate sections appear only when the response carries them. audioURL is
// the resolved link for r.AudioURL, empty when there is none.
func Markdown(r Response, audioURL string) string {
	var sb strings.Builder

	title := r.Title
	if title == "" {
		title = "Untitled"
	}
	sb.WriteString("# ")
	sb.WriteString(title)
	sb.WriteString("\n")

	for _, c := range r.Chapters {
		sb.WriteString("\n## ■ ")
		sb.WriteString(c.Name)
		sb.WriteString("\n\n")
		sb.WriteString(c.Text)
		sb.WriteString("\n")
	}

	if r.HasLyrics() {
		sb.WriteString("\n## Lyrics\n\n")
		// Hard line breaks keep verse layout intact.
		for _, line := range strings.Split(strings.TrimRight(r.SunoLyrics, "\n"), "\n") {
			sb.WriteString(line)
			sb.WriteString("  \n")
		}
	}

	if audioURL != "" {
		sb.WriteString("\n## Audio\n\n")
		sb.WriteString(audioURL)
		sb.WriteString("\n")
	}

	if themes := r.Themes(); len(themes) > 0 {
		sb.WriteString("\n## Related\n\n")
		for _, t := range themes {
			sb.WriteString("- ")
			sb.WriteString(t)
			sb.WriteString("\n")
		}
	}

	return sb.String()
}
