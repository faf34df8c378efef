// Package telegram adapts the Telegram Bot API to the chat package: it sends
// messages and turns incoming updates into chat events, by long polling or
// through a webhook.
package telegram

import (
	"context"
	"fmt"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/okservice/repairdesk/internal/chat"
)

// maxMessageRunes stays under Telegram's 4096 character limit.
const maxMessageRunes = 4000

// botAPI is the subset of *tgbotapi.BotAPI in use.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

// Client implements chat.Sender on top of the Bot API.
type Client struct {
	api botAPI
}

var _ chat.Sender = (*Client)(nil)

// NewClient authenticates with token and returns a ready client.
func NewClient(token string) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("%w: authorize bot: %w", chat.ErrTransport, err)
	}
	return &Client{api: api}, nil
}

func newClientWithAPI(api botAPI) *Client {
	return &Client{api: api}
}

// SendText sends msg, splitting texts that exceed the message limit. The
// keyboard goes with the last part.
func (c *Client) SendText(ctx context.Context, chatID int64, msg chat.Message) error {
	chunks := splitMessage(msg.Text, maxMessageRunes)
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		cfg := tgbotapi.NewMessage(chatID, chunk)
		if msg.Markdown {
			cfg.ParseMode = tgbotapi.ModeMarkdown
		}
		if i == len(chunks)-1 {
			if markup := replyMarkup(msg.Markup); markup != nil {
				cfg.ReplyMarkup = markup
			}
		}
		if _, err := c.api.Send(cfg); err != nil {
			return fmt.Errorf("%w: send message to %d: %w", chat.ErrTransport, chatID, err)
		}
	}
	return nil
}

func (c *Client) SendPhoto(ctx context.Context, chatID int64, photo chat.Photo) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(photo.Path))
	cfg.Caption = photo.Caption
	if markup := replyMarkup(photo.Markup); markup != nil {
		cfg.ReplyMarkup = markup
	}
	if _, err := c.api.Send(cfg); err != nil {
		return fmt.Errorf("%w: send photo to %d: %w", chat.ErrTransport, chatID, err)
	}
	return nil
}

func (c *Client) SendLocation(ctx context.Context, chatID int64, loc chat.Location) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.api.Send(tgbotapi.NewLocation(chatID, loc.Latitude, loc.Longitude)); err != nil {
		return fmt.Errorf("%w: send location to %d: %w", chat.ErrTransport, chatID, err)
	}
	return nil
}

func (c *Client) SendDocument(ctx context.Context, chatID int64, doc chat.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: doc.Name, Bytes: doc.Data})
	cfg.Caption = doc.Caption
	if markup := replyMarkup(doc.Markup); markup != nil {
		cfg.ReplyMarkup = markup
	}
	if _, err := c.api.Send(cfg); err != nil {
		return fmt.Errorf("%w: send document to %d: %w", chat.ErrTransport, chatID, err)
	}
	return nil
}

// AnswerCallback acknowledges a button press so the client stops its spinner.
func (c *Client) AnswerCallback(ctx context.Context, callbackID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.api.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		return fmt.Errorf("%w: answer callback: %w", chat.ErrTransport, err)
	}
	return nil
}

// replyMarkup converts a chat keyboard to its Bot API form. Inline keyboards
// win over reply keyboards; nil means no markup.
func replyMarkup(m *chat.Markup) interface{} {
	switch {
	case m == nil:
		return nil
	case len(m.Inline) > 0:
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(m.Inline))
		for _, row := range m.Inline {
			buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
			for _, b := range row {
				if b.URL != "" {
					buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
				} else {
					buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
				}
			}
			rows = append(rows, buttons)
		}
		return tgbotapi.NewInlineKeyboardMarkup(rows...)
	case len(m.Reply) > 0:
		rows := make([][]tgbotapi.KeyboardButton, 0, len(m.Reply))
		for _, row := range m.Reply {
			buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
			for _, label := range row {
				buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
			}
			rows = append(rows, tgbotapi.NewKeyboardButtonRow(buttons...))
		}
		kb := tgbotapi.NewReplyKeyboard(rows...)
		kb.ResizeKeyboard = true
		return kb
	case m.Remove:
		return tgbotapi.NewRemoveKeyboard(false)
	}
	return nil
}

// splitMessage cuts text into parts of at most limit runes, preferring line
// breaks.
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var parts []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
