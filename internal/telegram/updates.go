package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/okservice/repairdesk/internal/chat"
)

// EventFromUpdate converts an update to a chat event. Updates the bot does
// not handle (edits, stickers, channel posts) report false.
func EventFromUpdate(u tgbotapi.Update) (chat.Event, bool) {
	if cq := u.CallbackQuery; cq != nil {
		ev := chat.Event{
			Kind:       chat.EventCallback,
			CallbackID: cq.ID,
			Data:       cq.Data,
		}
		if cq.From != nil {
			ev.UserID = cq.From.ID
		}
		if cq.Message != nil && cq.Message.Chat != nil {
			ev.ChatID = cq.Message.Chat.ID
		} else {
			ev.ChatID = ev.UserID
		}
		return ev, ev.ChatID != 0
	}

	msg := u.Message
	if msg == nil || msg.Chat == nil {
		return chat.Event{}, false
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return chat.Event{}, false
	}

	ev := chat.Event{
		Kind:   chat.EventText,
		ChatID: msg.Chat.ID,
		Text:   text,
	}
	if msg.From != nil {
		ev.UserID = msg.From.ID
	}
	if msg.IsCommand() {
		ev.Kind = chat.EventCommand
		ev.Command = strings.ToLower(msg.Command())
	}
	return ev, true
}
