// Package tui is a terminal viewer for a loaded backup with a live search box.
package tui

import (
	"context"
	"fmt"
	"os"
	"strings"

	"smsview/internal/models"
	"smsview/internal/session"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	defaultWidth  = 100
	defaultHeight = 30
	// chrome is the title line, the search line and the help line
	chrome = 3
)

type loadedMsg struct {
	result *models.LoadResult
	err    error
}

type Model struct {
	loader  *session.Loader
	session *session.Session
	path    string

	view   session.View
	lines  []string
	offset int

	width       int
	height      int
	searchInput textinput.Model
	loading     bool
	err         error
	quitting    bool
}

// NewModel builds the viewer. When path is set the file is loaded on start
// and can be reloaded with ctrl+r.
func NewModel(loader *session.Loader, sess *session.Session, path string) Model {
	si := textinput.New()
	si.Placeholder = "Search messages..."
	si.CharLimit = 200
	si.Focus()

	m := Model{
		loader:      loader,
		session:     sess,
		path:        path,
		width:       defaultWidth,
		height:      defaultHeight,
		searchInput: si,
		loading:     path != "" && loader != nil,
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	if m.loading {
		return tea.Batch(textinput.Blink, m.loadCmd())
	}
	return textinput.Blink
}

func (m Model) loadCmd() tea.Cmd {
	loader, path := m.loader, m.path
	return func() tea.Msg {
		f, err := os.Open(path) // #nosec G304 - path chosen by the user on the command line
		if err != nil {
			return loadedMsg{err: err}
		}
		defer f.Close()

		result, err := loader.Load(context.Background(), path, f)
		return loadedMsg{result: result, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.render()
		return m, nil

	case loadedMsg:
		m.loading = false
		m.err = msg.err
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit

		case "up":
			m.scroll(-1)
			return m, nil

		case "down":
			m.scroll(1)
			return m, nil

		case "pgup":
			m.scroll(-m.visibleRows())
			return m, nil

		case "pgdown":
			m.scroll(m.visibleRows())
			return m, nil

		case "ctrl+r":
			if m.path != "" && m.loader != nil {
				m.loading = true
				return m, m.loadCmd()
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	before := m.searchInput.Value()
	m.searchInput, cmd = m.searchInput.Update(msg)
	if m.searchInput.Value() != before {
		m.refresh()
	}
	return m, cmd
}

// refresh recomputes the filtered list from the session and re-renders it.
func (m *Model) refresh() {
	m.view = m.session.Filter(m.searchInput.Value())
	m.offset = 0
	m.render()
}

func (m *Model) render() {
	m.lines = nil
	for _, msg := range m.view.Messages {
		m.lines = append(m.lines, strings.Split(m.renderBubble(msg), "\n")...)
		m.lines = append(m.lines, "")
	}
	m.clampOffset()
}

func (m Model) renderBubble(msg models.Message) string {
	maxWidth := m.width * 7 / 10
	if maxWidth < 20 {
		maxWidth = 20
	}

	var parts []string
	style := receivedBubbleStyle
	align := lipgloss.Left
	if msg.IsSent() {
		style = sentBubbleStyle
		align = lipgloss.Right
	} else {
		parts = append(parts, contactStyle.Render(msg.ContactName))
	}
	parts = append(parts, msg.Body)
	if msg.Date != "" {
		parts = append(parts, dateStyle.Render(msg.Date))
	}

	content := lipgloss.JoinVertical(align, parts...)
	if lipgloss.Width(content) > maxWidth {
		style = style.Width(maxWidth)
	}
	return lipgloss.PlaceHorizontal(m.width, align, style.Render(content))
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	title := titleStyle.Render("SMS Backup Viewer")
	info := fmt.Sprintf("  %d of %d messages", m.view.Count, m.view.Total)
	if m.path != "" {
		info = "  " + m.path + info
	}
	b.WriteString(title + dimStyle.Render(info) + "\n")

	visible := m.visibleRows()
	switch {
	case m.loading:
		b.WriteString(dimStyle.Render("  Loading...") + "\n")
		visible--
	case m.err != nil:
		b.WriteString(errorStyle.Render("  "+m.err.Error()) + "\n")
		visible--
	}

	end := min(m.offset+visible, len(m.lines))
	for i := m.offset; i < end; i++ {
		b.WriteString(m.lines[i] + "\n")
	}
	for i := end - m.offset; i < visible; i++ {
		b.WriteString("\n")
	}

	b.WriteString(statusBarStyle.Render("Search:") + " " + m.searchInput.View() + "\n")
	b.WriteString(helpStyle.Render("  ↑/↓ PgUp/PgDn: scroll  ctrl+r: reload  Esc: quit"))

	return b.String()
}

func (m *Model) scroll(delta int) {
	m.offset += delta
	m.clampOffset()
}

func (m Model) visibleRows() int {
	return max(1, m.height-chrome)
}

func (m *Model) clampOffset() {
	maxOffset := max(0, len(m.lines)-m.visibleRows())
	m.offset = min(max(m.offset, 0), maxOffset)
}

// Filtered returns the messages currently shown.
func (m Model) Filtered() []models.Message {
	return m.view.Messages
}
