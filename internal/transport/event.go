// Package transport is the only layer that speaks Telegram. Inbound updates
// are normalized into Events at the edge; outbound traffic goes through the
// Outbound interface so the rest of the system never sees a telebot type.
package transport

import "github.com/m3rciful/premiumbot/internal/action"

// EventKind classifies a normalized inbound update.
type EventKind int

const (
	EventCommand EventKind = iota + 1
	EventAction
	EventText
	EventMedia
)

func (k EventKind) String() string {
	switch k {
	case EventCommand:
		return "command"
	case EventAction:
		return "action"
	case EventText:
		return "text"
	case EventMedia:
		return "media"
	}
	return "unknown"
}

// MediaKind classifies attached media on an EventMedia event.
type MediaKind int

const (
	MediaNone MediaKind = iota
	MediaPhoto
	MediaImageDocument
	MediaOther
)

// Event is one normalized inbound update.
type Event struct {
	Kind     EventKind
	UpdateID int
	ChatID   int64
	UserID   int64
	Username string
	// MessageID is the id of the inbound message, or of the message the
	// callback button was attached to.
	MessageID int
	// CallbackID is set for EventAction and is needed to acknowledge the
	// callback query.
	CallbackID string

	Command  string // EventCommand, without the leading slash
	Action   action.Action
	Text     string    // EventText and media captions
	Media    MediaKind // EventMedia
	MediaRef string    // Telegram file id of the attached media
}

// MessageRef identifies a sent message for later edits or deletion.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// IsZero reports whether the ref points at nothing.
func (r MessageRef) IsZero() bool { return r.ChatID == 0 && r.MessageID == 0 }

// Button is one inline keyboard button. URL buttons leave Do at its zero
// value; action buttons leave URL empty.
type Button struct {
	Label string
	Do    action.Action
	URL   string
}

// Keyboard is an inline keyboard layout.
type Keyboard struct {
	Rows [][]Button
}

// Row appends one row of buttons and returns the keyboard for chaining.
func (k *Keyboard) Row(buttons ...Button) *Keyboard {
	k.Rows = append(k.Rows, buttons)
	return k
}

// Do builds an action button.
func Do(label string, kind action.Kind) Button {
	return Button{Label: label, Do: action.Action{Kind: kind}}
}

// DoArg builds a parameterized action button.
func DoArg(label string, kind action.Kind, arg int64) Button {
	return Button{Label: label, Do: action.Action{Kind: kind, Arg: arg}}
}

// Link builds a URL button.
func Link(label, url string) Button {
	return Button{Label: label, URL: url}
}
