package ui

import (
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
)

type toastKind int

const (
	toastInfo toastKind = iota
	toastSuccess
	toastError
)

// toast is a transient notification shown on the bottom line.
type toast struct {
	kind    toastKind
	text    string
	expires time.Time
}

// notify queues a notification. Empty text is ignored and only the newest
// MaxToasts are kept.
func (m *Model) notify(kind toastKind, text string) {
	if text == "" {
		return
	}
	m.toasts = append(m.toasts, toast{kind: kind, text: text, expires: m.now().Add(ToastDuration)})
	if len(m.toasts) > MaxToasts {
		m.toasts = m.toasts[len(m.toasts)-MaxToasts:]
	}
}

// pruneToasts drops notifications that expired at or before now.
func pruneToasts(toasts []toast, now time.Time) []toast {
	kept := toasts[:0]
	for _, t := range toasts {
		if now.Before(t.expires) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

// renderToasts renders the newest live notification, or an empty line.
func (m Model) renderToasts() string {
	bg := NewBgStyle(m.theme.Background)
	live := pruneToasts(append([]toast(nil), m.toasts...), m.now())
	if len(live) == 0 {
		return bg.FillLine("", m.width)
	}
	styles := m.theme.Styles()
	t := live[len(live)-1]

	var style lipgloss.Style
	icon := "•"
	switch t.kind {
	case toastSuccess:
		style, icon = styles.SuccessText, "✓"
	case toastError:
		style, icon = styles.DangerText, "✗"
	default:
		style = styles.InfoText
	}
	line := bg.Space() + bg.Render(icon+" "+truncate(t.text, max(m.width-4, 10)), style)
	if more := len(live) - 1; more > 0 {
		line += bg.Spaces(2) + bg.Render("+"+strconv.Itoa(more), styles.MutedText)
	}
	return bg.FillLine(line, m.width)
}
