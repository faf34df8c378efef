// Package chat holds the transport-neutral types the bot speaks: incoming
// events and outgoing messages with their keyboards.
package chat

import (
	"context"
	"errors"
)

// ErrTransport marks a failure to deliver something to the chat service.
var ErrTransport = errors.New("chat transport failure")

type EventKind int

const (
	EventText EventKind = iota
	EventCommand
	EventCallback
)

func (k EventKind) String() string {
	switch k {
	case EventCommand:
		return "command"
	case EventCallback:
		return "callback"
	default:
		return "text"
	}
}

// Event is one incoming chat update.
type Event struct {
	Kind   EventKind
	ChatID int64
	UserID int64
	// Text is the trimmed message text. For commands it includes the
	// leading slash and any arguments.
	Text    string
	Command string
	// CallbackID and Data are set for button presses.
	CallbackID string
	Data       string
}

// Button is an inline keyboard button carrying either callback data or a URL.
type Button struct {
	Text string
	Data string
	URL  string
}

// Markup is either a reply keyboard (menu under the input field) or an
// inline keyboard attached to the message.
type Markup struct {
	Reply  [][]string
	Inline [][]Button
	// Remove hides the current reply keyboard.
	Remove bool
}

type Message struct {
	Text     string
	Markdown bool
	Markup   *Markup
}

type Photo struct {
	Path    string
	Caption string
	Markup  *Markup
}

type Location struct {
	Latitude  float64
	Longitude float64
}

type Document struct {
	Name    string
	Data    []byte
	Caption string
	Markup  *Markup
}

// Sender delivers outgoing content to a conversation.
type Sender interface {
	SendText(ctx context.Context, chatID int64, msg Message) error
	SendPhoto(ctx context.Context, chatID int64, photo Photo) error
	SendLocation(ctx context.Context, chatID int64, loc Location) error
	SendDocument(ctx context.Context, chatID int64, doc Document) error
	AnswerCallback(ctx context.Context, callbackID string) error
}

// Dispatcher consumes incoming events.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event)
}
