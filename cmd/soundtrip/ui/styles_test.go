package ui

import (
	"strings"
	"testing"
)

func TestThemeFor(t *testing.T) {
	if !ThemeFor(true).IsDark {
		t.Fatalf("expected dark theme for dark=true")
	}
	if ThemeFor(false).IsDark {
		t.Fatalf("expected light theme for dark=false")
	}
	if ThemeFor(true).Background == ThemeFor(false).Background {
		t.Fatalf("light and dark palettes should differ")
	}
}

func TestStylesFor(t *testing.T) {
	dark := StylesFor(true)
	if !dark.Theme.IsDark {
		t.Fatalf("expected dark styles")
	}
	if got := dark.ChapterHeading.GetForeground(); got != DarkPrimary {
		t.Fatalf("chapter heading color: got %v, want %v", got, DarkPrimary)
	}

	light := StylesFor(false)
	if got := light.ChapterHeading.GetForeground(); got != LightPrimary {
		t.Fatalf("chapter heading color: got %v, want %v", got, LightPrimary)
	}
}

func TestRenderDivider(t *testing.T) {
	s := StylesFor(false)
	if got := s.RenderDivider(5); !strings.Contains(got, "─────") {
		t.Fatalf("divider missing: %q", got)
	}
	if got := s.RenderDivider(0); !strings.Contains(got, strings.Repeat("─", 40)) {
		t.Fatalf("zero width should use default: %q", got)
	}
}
