package ui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"soundtrip/internal/app"
	"soundtrip/internal/config"
	"soundtrip/internal/logging"
)

const (
	headerHeight    = 2
	formHeight      = 6
	footerHeight    = 2
	maxHistoryShown = 5
)

// Options wires the screen to the rest of the program.
type Options struct {
	Context  context.Context
	Session  *app.Session
	AudioURL func(rel string) string
	// Reload is called with a freshly loaded config and returns the new
	// audio URL resolver. Optional.
	Reload func(cfg *config.Config) func(rel string) string
}

// Messages produced by background commands.
type (
	storyDoneMsg struct{ err error }
	savedMsg     struct {
		date string
		err  error
	}
	deletedMsg struct {
		date string
		err  error
	}
	themeMsg struct {
		dark bool
		err  error
	}
	audioMsg struct {
		url string
		err error
	}
)

// ConfigReloadedMsg is sent by the config watcher.
type ConfigReloadedMsg struct {
	Config *config.Config
	Err    error
}

// Model is the interactive story screen.
type Model struct {
	ctx      context.Context
	session  *app.Session
	audioURL func(string) string
	reload   func(*config.Config) func(string) string

	styles   Styles
	inputs   []textinput.Model
	spinner  spinner.Model
	viewport viewport.Model

	// focus indexes inputs; len(inputs) means the history list.
	focus      int
	historyIdx int
	pending    bool
	flash      string
	flashErr   bool

	state  app.State
	width  int
	height int
	ready  bool
}

// NewModel builds the screen from the session's current state.
func NewModel(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	audioURL := opts.AudioURL
	if audioURL == nil {
		audioURL = func(rel string) string { return rel }
	}

	st := opts.Session.State()
	styles := StylesFor(st.DarkMode)

	placeholders := map[app.Field]string{
		app.FieldCity:      "京都",
		app.FieldDate:      "2024-03-01",
		app.FieldTimeOfDay: "夕方",
		app.FieldComment:   "anything the story should know",
	}
	inputs := make([]textinput.Model, len(app.Fields))
	for i, f := range app.Fields {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = placeholders[f]
		ti.CharLimit = 512
		ti.Width = 60
		ti.SetValue(st.Value(f))
		inputs[i] = ti
	}
	inputs[0].Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	vp := viewport.New(80, 20)

	m := Model{
		ctx:      ctx,
		session:  opts.Session,
		audioURL: audioURL,
		reload:   opts.Reload,
		inputs:   inputs,
		spinner:  sp,
		viewport: vp,
		state:    st,
	}
	m.applyStyles(styles)
	m.refreshContent()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) applyStyles(s Styles) {
	m.styles = s
	m.spinner.Style = s.Spinner
	for i := range m.inputs {
		m.inputs[i].TextStyle = s.Input
		m.inputs[i].PlaceholderStyle = s.Muted
	}
}

func (m Model) loading() bool {
	return m.pending || m.state.Loading()
}

func (m Model) onHistory() bool {
	return m.focus == len(m.inputs)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.refreshContent()
		return m, nil

	case spinner.TickMsg:
		if m.loading() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case storyDoneMsg:
		m.pending = false
		m.sync()
		if msg.err != nil {
			m.setFlash(m.state.Error, true)
		} else {
			m.setFlash("Story ready. Ctrl+S to save.", false)
			m.viewport.GotoTop()
		}
		return m, nil

	case savedMsg:
		m.sync()
		if msg.err != nil {
			m.setFlash("Save failed: "+msg.err.Error(), true)
		} else {
			m.setFlash("Saved under "+msg.date+".", false)
		}
		return m, nil

	case deletedMsg:
		m.sync()
		if msg.err != nil {
			m.setFlash("Delete failed: "+msg.err.Error(), true)
		} else {
			m.setFlash("Deleted "+msg.date+".", false)
		}
		return m, nil

	case themeMsg:
		m.sync()
		if msg.err != nil {
			m.setFlash("Theme not saved: "+msg.err.Error(), true)
		}
		return m, nil

	case audioMsg:
		m.sync()
		if msg.err != nil {
			m.setFlash("Audio unavailable: "+msg.err.Error(), true)
		} else {
			m.setFlash("Audio ready: "+m.audioURL(msg.url), false)
		}
		return m, nil

	case ConfigReloadedMsg:
		if msg.Err != nil {
			m.setFlash("Config reload failed: "+msg.Err.Error(), true)
			return m, nil
		}
		if m.reload != nil && msg.Config != nil {
			m.audioURL = m.reload(msg.Config)
			m.refreshContent()
			m.setFlash("Config reloaded: "+msg.Config.API.BaseURL, false)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit

	case "tab", "shift+tab":
		step := 1
		if msg.String() == "shift+tab" {
			step = -1
		}
		m.setFocus((m.focus + step + len(m.inputs) + 1) % (len(m.inputs) + 1))
		return m, nil

	case "enter":
		if m.onHistory() {
			return m.selectHistory()
		}
		return m.submit()

	case "ctrl+s":
		return m, m.saveCmd()

	case "ctrl+t":
		return m, m.toggleThemeCmd()

	case "ctrl+r":
		if m.state.Story == nil {
			m.setFlash("Generate or open a story first.", true)
			return m, nil
		}
		m.setFlash("Regenerating audio...", false)
		return m, m.regenerateAudioCmd()

	case "pgup", "pgdown", "ctrl+u", "ctrl+d":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.onHistory() {
		dates := m.dates()
		switch msg.String() {
		case "up", "k":
			if m.historyIdx > 0 {
				m.historyIdx--
			}
		case "down", "j":
			if m.historyIdx < len(dates)-1 {
				m.historyIdx++
			}
		case "delete", "x":
			if len(dates) > 0 {
				return m, m.deleteCmd(dates[m.historyIdx])
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	field := app.Fields[m.focus]
	if value := m.inputs[m.focus].Value(); value != m.state.Value(field) {
		m.state = m.session.SetField(field, value)
	}
	return m, cmd
}

func (m *Model) setFocus(i int) {
	m.focus = i
	for j := range m.inputs {
		if j == i {
			m.inputs[j].Focus()
		} else {
			m.inputs[j].Blur()
		}
	}
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.loading() {
		m.setFlash(app.ErrBusy.Error(), true)
		return m, nil
	}
	m.pending = true
	m.flash = ""
	return m, tea.Batch(m.spinner.Tick, m.submitCmd())
}

func (m Model) submitCmd() tea.Cmd {
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		_, err := session.Submit(ctx)
		if err != nil && !errors.Is(err, app.ErrBusy) {
			logging.Get(logging.CategoryUI).Debug("submit failed", zap.Error(err))
		}
		return storyDoneMsg{err: err}
	}
}

func (m Model) saveCmd() tea.Cmd {
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		entry, err := session.Save(ctx)
		return savedMsg{date: entry.Date(), err: err}
	}
}

func (m Model) deleteCmd(date string) tea.Cmd {
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		return deletedMsg{date: date, err: session.Delete(ctx, date)}
	}
}

func (m Model) toggleThemeCmd() tea.Cmd {
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		dark, err := session.ToggleTheme(ctx)
		return themeMsg{dark: dark, err: err}
	}
}

func (m Model) regenerateAudioCmd() tea.Cmd {
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		url, err := session.RegenerateAudio(ctx)
		return audioMsg{url: url, err: err}
	}
}

func (m Model) selectHistory() (tea.Model, tea.Cmd) {
	dates := m.dates()
	if len(dates) == 0 {
		return m, nil
	}
	if err := m.session.Select(dates[m.historyIdx]); err != nil {
		m.setFlash(err.Error(), true)
		return m, nil
	}
	m.sync()
	m.viewport.GotoTop()
	return m, nil
}

// sync pulls the session state into the widgets.
func (m *Model) sync() {
	st := m.session.State()
	if m.styles.Theme.IsDark != st.DarkMode {
		m.applyStyles(StylesFor(st.DarkMode))
	}
	m.state = st
	for i, f := range app.Fields {
		if m.inputs[i].Value() != st.Value(f) {
			m.inputs[i].SetValue(st.Value(f))
		}
	}
	if n := len(m.dates()); m.historyIdx >= n {
		m.historyIdx = max(n-1, 0)
	}
	m.resize()
	m.refreshContent()
}

func (m *Model) setFlash(text string, isErr bool) {
	m.flash = text
	m.flashErr = isErr
}

func (m Model) dates() []string {
	dates := make([]string, 0, len(m.state.History))
	for d := range m.state.History {
		dates = append(dates, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates
}

func (m *Model) resize() {
	if m.width == 0 || m.height == 0 {
		return
	}
	historyLines := min(len(m.state.History), maxHistoryShown) + 1
	h := m.height - headerHeight - formHeight - historyLines - footerHeight - 1
	if h < 3 {
		h = 3
	}
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	if !m.ready {
		m.viewport = viewport.New(w, h)
		m.ready = true
	} else {
		m.viewport.Width = w
		m.viewport.Height = h
	}
	for i := range m.inputs {
		m.inputs[i].Width = max(w-14, 10)
	}
}

func (m *Model) refreshContent() {
	if m.state.Story == nil {
		m.viewport.SetContent(m.styles.Muted.Render("Fill in the form and press Enter to generate a story."))
		return
	}
	resp := *m.state.Story
	m.viewport.SetContent(RenderStory(resp, m.styles, m.audioURL(resp.AudioURL), m.viewport.Width))
}

// View implements tea.Model.
func (m Model) View() string {
	s := m.styles
	var b strings.Builder

	mode := "light"
	if m.state.DarkMode {
		mode = "dark"
	}
	b.WriteString(s.Header.Render("Soundtrip"))
	b.WriteString(" ")
	b.WriteString(s.Muted.Render(mode))
	b.WriteString("\n\n")

	labels := map[app.Field]string{
		app.FieldCity:      "City",
		app.FieldDate:      "Date",
		app.FieldTimeOfDay: "Time of day",
		app.FieldComment:   "Comment",
	}
	for i, f := range app.Fields {
		label := s.Label
		if i == m.focus {
			label = s.FocusedLabel
		}
		b.WriteString(label.Render(labels[f]))
		b.WriteString(m.inputs[i].View())
		b.WriteString("\n")
	}
	if m.loading() {
		b.WriteString(m.spinner.View())
		b.WriteString(s.Muted.Render(" generating..."))
	} else {
		b.WriteString(s.Button.Render("Enter: generate"))
	}
	b.WriteString("\n\n")

	b.WriteString(m.historyView())
	b.WriteString(s.RenderDivider(m.viewport.Width))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.flash != "" {
		style := s.Success
		if m.flashErr {
			style = s.Error
		}
		b.WriteString(style.Render(m.flash))
		b.WriteString("\n")
	}
	b.WriteString(s.Footer.Render("tab focus • enter generate/open • ctrl+s save • ctrl+r audio • ctrl+t theme • x delete • esc quit"))
	return b.String()
}

func (m Model) historyView() string {
	s := m.styles
	dates := m.dates()
	header := s.Bold.Render(fmt.Sprintf("History (%d)", len(dates)))
	if m.onHistory() {
		header = s.FocusedLabel.UnsetWidth().Render(fmt.Sprintf("History (%d)", len(dates)))
	}
	lines := []string{header}

	start := 0
	if m.historyIdx >= maxHistoryShown {
		start = m.historyIdx - maxHistoryShown + 1
	}
	for i := start; i < len(dates) && i < start+maxHistoryShown; i++ {
		entry := m.state.History[dates[i]]
		text := dates[i] + "  " + entry.Story.Title
		if i == m.historyIdx && m.onHistory() {
			lines = append(lines, s.HistorySelected.Render(text))
		} else {
			lines = append(lines, s.HistoryItem.Render(text))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...) + "\n"
}
