package tui

import (
	"fmt"

	"github.com/Zuo-Peng/codex-transcripts/internal/index"
	"github.com/Zuo-Peng/codex-transcripts/internal/preview"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// previewRenderedMsg is sent when an async preview render completes.
type previewRenderedMsg struct {
	key     string
	content string
	hitLine int
	err     error
}

// loadPreviewCmd returns a tea.Cmd that renders the session preview async.
func loadPreviewCmd(db *index.DB, it item, query string, width int) tea.Cmd {
	return func() tea.Msg {
		content, hitLine, err := preview.RenderSession(db, it.SessionKey, preview.Options{
			HitIndex: it.HitIndex,
			Context:  -1,
			Width:    width,
			Query:    query,
		})
		return previewRenderedMsg{
			key:     previewCacheKey(it),
			content: content,
			hitLine: hitLine,
			err:     err,
		}
	}
}

func previewCacheKey(it item) string {
	return fmt.Sprintf("%s:%d", it.SessionKey, it.HitIndex)
}

// newViewport creates a new viewport model with the given dimensions.
func newViewport(width, height int) viewport.Model {
	vp := viewport.New(width, height)
	vp.Style = stylePanelBorder
	return vp
}
