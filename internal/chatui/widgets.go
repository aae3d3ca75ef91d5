// Package chatui provides the Fyne widgets specific to the chat
// collaborator: a scrollable transcript and a roster list. Built the
// same way internal/ui/components.go builds StatusBar/InfoPanel
// (custom widget.BaseWidget + CreateRenderer via a SimpleRenderer),
// since the teacher has no chat-shaped widgets of its own.
package chatui

import (
	"fmt"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"rdtchat/internal/chatproto"
)

// Transcript renders a scrolling list of chat messages, newest at the
// bottom, the same shape as internal/logging.LogView but for chat
// history instead of log lines.
type Transcript struct {
	widget.BaseWidget
	box    *fyne.Container
	scroll *container.Scroll
}

// NewTranscript returns an empty Transcript sized for a message pane.
func NewTranscript() *Transcript {
	box := container.NewVBox()
	scroll := container.NewVScroll(box)
	scroll.SetMinSize(fyne.NewSize(420, 320))
	t := &Transcript{box: box, scroll: scroll}
	t.ExtendBaseWidget(t)
	return t
}

// CreateRenderer implements widget.CustomWidget.
func (t *Transcript) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(t.scroll)
}

// SetMessages replaces the transcript's contents with msgs in order.
func (t *Transcript) SetMessages(msgs []chatproto.Message) {
	t.box.Objects = nil
	for _, m := range msgs {
		t.box.Add(widget.NewLabel(fmt.Sprintf("[%s] %s: %s", m.Timestamp, m.Sender, m.Content)))
	}
	t.box.Refresh()
	t.scroll.ScrollToBottom()
}

// AppendMessage appends one message without replacing prior contents.
func (t *Transcript) AppendMessage(m chatproto.Message) {
	t.box.Add(widget.NewLabel(fmt.Sprintf("[%s] %s: %s", m.Timestamp, m.Sender, m.Content)))
	t.box.Refresh()
	t.scroll.ScrollToBottom()
}

// Clear empties the transcript.
func (t *Transcript) Clear() {
	t.box.Objects = nil
	t.box.Refresh()
}

// Roster lists known users or groups, one per line.
type Roster struct {
	widget.BaseWidget
	title   *widget.Label
	content *widget.Label
}

// NewRoster returns an empty Roster labeled with title.
func NewRoster(title string) *Roster {
	r := &Roster{
		title:   widget.NewLabel(title),
		content: widget.NewLabel(""),
	}
	r.title.TextStyle.Bold = true
	r.ExtendBaseWidget(r)
	return r
}

// CreateRenderer implements widget.CustomWidget.
func (r *Roster) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(container.NewVBox(
		r.title,
		widget.NewSeparator(),
		r.content,
	))
}

// SetEntries replaces the roster's listed entries.
func (r *Roster) SetEntries(entries []string) {
	if len(entries) == 0 {
		r.content.SetText("(none)")
		return
	}
	r.content.SetText(strings.Join(entries, "\n"))
}
