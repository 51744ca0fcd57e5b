// Package tui is the interactive session picker used by the local command.
package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Zuo-Peng/codex-transcripts/internal/index"
	"github.com/Zuo-Peng/codex-transcripts/internal/search"
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const debounceDelay = 200 * time.Millisecond

// ErrCancelled is returned by Pick when the picker is closed without a choice.
var ErrCancelled = errors.New("no session selected")

// Options configures the picker.
type Options struct {
	Limit int    // recent sessions listed when the filter is empty
	Query string // initial filter text
}

// Selection is the session chosen in the picker.
type Selection struct {
	SessionKey string
	FilePath   string
	HitIndex   int
}

// message types

type itemsMsg struct {
	query string
	items []item
	err   error
}

type debounceTickMsg struct {
	query string
}

type noticeMsg string

// model

type model struct {
	db          *index.DB
	limit       int
	query       string
	items       []item
	cursor      int
	listOffset  int
	filterInput textinput.Model
	preview     viewport.Model
	previewKey  string // "sessionKey:hitIndex" to avoid duplicate renders
	notice      string
	width       int
	height      int
	ready       bool
	quitting    bool
	chosen      *item
}

func initialModel(db *index.DB, opts Options) model {
	ti := textinput.New()
	ti.Placeholder = "Filter sessions..."
	ti.Focus()
	ti.SetValue(opts.Query)
	ti.Prompt = "> "
	ti.PromptStyle = styleInputPrompt
	ti.TextStyle = styleInput
	ti.CharLimit = 256

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	return model{
		db:          db,
		limit:       limit,
		query:       opts.Query,
		filterInput: ti,
		preview:     viewport.New(0, 0),
	}
}

// Pick runs the picker and blocks until the user selects a session or quits.
func Pick(db *index.DB, opts Options) (*Selection, error) {
	m := initialModel(db, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("tui: %w", err)
	}

	fm := finalModel.(model)
	if fm.chosen == nil {
		return nil, ErrCancelled
	}
	s, err := db.GetSessionByKey(fm.chosen.SessionKey)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &Selection{
		SessionKey: s.SessionKey,
		FilePath:   s.FilePath,
		HitIndex:   fm.chosen.HitIndex,
	}, nil
}

// Init triggers the initial list load.
func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.loadItems(m.query))
}

// Update handles messages.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.preview = newViewport(m.previewWidth(), m.panelHeight())
		m.previewKey = ""
		if it, ok := m.current(); ok {
			cmds = append(cmds, loadPreviewCmd(m.db, it, m.query, m.previewWidth()))
		}
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.Enter):
			if it, ok := m.current(); ok {
				m.chosen = &it
				m.quitting = true
				return m, tea.Quit
			}
			return m, nil

		case key.Matches(msg, keys.Copy):
			if it, ok := m.current(); ok {
				return m, copyPathCmd(m.db, it.SessionKey)
			}
			return m, nil

		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
				m.adjustListScroll(m.panelHeight())
				cmds = append(cmds, m.loadCurrentPreview())
			}
			return m, tea.Batch(cmds...)

		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.items)-1 {
				m.cursor++
				m.adjustListScroll(m.panelHeight())
				cmds = append(cmds, m.loadCurrentPreview())
			}
			return m, tea.Batch(cmds...)

		case key.Matches(msg, keys.PreviewUp):
			m.preview.LineUp(m.panelHeight() / 2)
			return m, nil

		case key.Matches(msg, keys.PreviewDn):
			m.preview.LineDown(m.panelHeight() / 2)
			return m, nil

		case key.Matches(msg, keys.PageUp):
			m.preview.LineUp(m.panelHeight())
			return m, nil

		case key.Matches(msg, keys.PageDown):
			m.preview.LineDown(m.panelHeight())
			return m, nil
		}

		var tiCmd tea.Cmd
		m.filterInput, tiCmd = m.filterInput.Update(msg)
		cmds = append(cmds, tiCmd)

		if q := m.filterInput.Value(); q != m.query {
			m.query = q
			cmds = append(cmds, scheduleDebounced(q))
		}
		return m, tea.Batch(cmds...)

	case tea.MouseMsg:
		if !m.ready || len(m.items) == 0 {
			return m, nil
		}

		region, idx := m.hitTest(msg.X, msg.Y)

		switch {
		case region == regionList && msg.Button == tea.MouseButtonWheelUp:
			if m.listOffset > 0 {
				m.listOffset--
			}
			return m, nil

		case region == regionList && msg.Button == tea.MouseButtonWheelDown:
			maxOffset := max(len(m.items)-m.panelHeight()/linesPerItem, 0)
			if m.listOffset < maxOffset {
				m.listOffset++
			}
			return m, nil

		case region == regionList && msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress:
			if idx >= 0 && idx < len(m.items) && m.cursor != idx {
				m.cursor = idx
				m.adjustListScroll(m.panelHeight())
				cmds = append(cmds, m.loadCurrentPreview())
			}
			return m, tea.Batch(cmds...)

		case region == regionPreview && (msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown):
			var vpCmd tea.Cmd
			m.preview, vpCmd = m.preview.Update(msg)
			return m, vpCmd
		}
		return m, nil

	case debounceTickMsg:
		if msg.query == m.query {
			return m, m.loadItems(msg.query)
		}
		return m, nil

	case itemsMsg:
		if msg.query != m.query {
			return m, nil
		}
		m.cursor = 0
		m.listOffset = 0
		m.previewKey = ""
		if msg.err != nil {
			m.items = nil
			m.preview.SetContent("Error: " + msg.err.Error())
			return m, nil
		}
		m.items = msg.items
		if len(m.items) == 0 {
			m.preview.SetContent("")
			return m, nil
		}
		return m, m.loadCurrentPreview()

	case previewRenderedMsg:
		it, ok := m.current()
		if !ok || msg.key == m.previewKey || msg.key != previewCacheKey(it) {
			return m, nil
		}
		if msg.err != nil {
			m.preview.SetContent("Preview error: " + msg.err.Error())
		} else {
			m.preview.SetContent(msg.content)
			if msg.hitLine > 0 {
				m.preview.SetYOffset(msg.hitLine)
			} else {
				m.preview.GotoTop()
			}
		}
		m.previewKey = msg.key
		return m, nil

	case noticeMsg:
		m.notice = string(msg)
		return m, nil
	}

	return m, tea.Batch(cmds...)
}

// View renders the full picker.
func (m model) View() string {
	if m.quitting || !m.ready {
		return ""
	}

	listW := m.listWidth()
	previewW := m.previewWidth()
	panelH := m.panelHeight()

	listPanel := stylePanelBorder.
		Width(listW).
		Height(panelH).
		Render(m.renderList(listW, panelH))

	m.preview.Width = previewW
	m.preview.Height = panelH
	previewPanel := styleActiveBorder.
		Width(previewW).
		Height(panelH).
		Render(m.preview.View())

	panels := lipgloss.JoinHorizontal(lipgloss.Top, listPanel, previewPanel)
	return lipgloss.JoinVertical(lipgloss.Left, m.filterInput.View(), panels, m.statusBar())
}

func (m model) current() (item, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return item{}, false
	}
	return m.items[m.cursor], true
}

func (m model) listWidth() int {
	if m.width <= 0 {
		return 40
	}
	return max(m.width*40/100-4, 20)
}

func (m model) previewWidth() int {
	if m.width <= 0 {
		return 60
	}
	return max(m.width*60/100-4, 20)
}

func (m model) panelHeight() int {
	if m.height <= 0 {
		return 20
	}
	// input row, status bar and two bordered panels
	return max(m.height-6, 5)
}

type mouseRegion int

const (
	regionNone mouseRegion = iota
	regionList
	regionPreview
)

// hitTest maps terminal coordinates to a panel region and list item index.
func (m model) hitTest(x, y int) (mouseRegion, int) {
	contentYStart := 2 // input row + top border
	contentYEnd := contentYStart + m.panelHeight() - 1
	if y < contentYStart || y > contentYEnd {
		return regionNone, -1
	}
	relY := y - contentYStart

	lw := m.listWidth()
	if x >= 1 && x <= lw {
		return regionList, m.listOffset + relY/linesPerItem
	}
	if x > lw+2 {
		return regionPreview, -1
	}
	return regionNone, -1
}

func (m model) statusBar() string {
	label := "recent"
	if m.query != "" {
		label = "results"
	}
	parts := []string{
		fmt.Sprintf("%d %s", len(m.items), label),
		"up/dn navigate",
		"C-u/C-d preview",
		"Enter convert",
		"C-y copy path",
		"Esc quit",
	}
	bar := styleStatusBar.Render(strings.Join(parts, " | "))
	if m.notice != "" {
		bar += " " + styleNotice.Render(m.notice)
	}
	return bar
}

// loadItems lists recent sessions for an empty filter and searches the
// catalog otherwise.
func (m model) loadItems(query string) tea.Cmd {
	db, limit := m.db, m.limit
	return func() tea.Msg {
		if strings.TrimSpace(query) == "" {
			rows, err := db.RecentSessions(limit)
			if err != nil {
				return itemsMsg{query: query, err: err}
			}
			items := make([]item, 0, len(rows))
			for _, s := range rows {
				items = append(items, itemFromSession(s))
			}
			return itemsMsg{query: query, items: items}
		}
		results, err := search.Search(db, search.Options{Query: query, Limit: 50})
		if err != nil {
			return itemsMsg{query: query, err: err}
		}
		items := make([]item, 0, len(results))
		for _, r := range results {
			items = append(items, itemFromResult(r))
		}
		return itemsMsg{query: query, items: items}
	}
}

func scheduleDebounced(query string) tea.Cmd {
	return tea.Tick(debounceDelay, func(time.Time) tea.Msg {
		return debounceTickMsg{query: query}
	})
}

func (m model) loadCurrentPreview() tea.Cmd {
	it, ok := m.current()
	if !ok || previewCacheKey(it) == m.previewKey {
		return nil
	}
	return loadPreviewCmd(m.db, it, m.query, m.previewWidth())
}

// copyPathCmd copies the transcript path of a session to the clipboard.
func copyPathCmd(db *index.DB, sessionKey string) tea.Cmd {
	return func() tea.Msg {
		s, err := db.GetSessionByKey(sessionKey)
		if err != nil {
			return noticeMsg("copy failed: " + err.Error())
		}
		if err := clipboard.WriteAll(s.FilePath); err != nil {
			return noticeMsg("clipboard unavailable")
		}
		return noticeMsg("copied " + s.FilePath)
	}
}
