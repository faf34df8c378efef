package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/okservice/repairdesk/internal/chat"
)

// SetWebhook points Telegram at url.
func (c *Client) SetWebhook(url string) error {
	cfg, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	if _, err := c.api.Request(cfg); err != nil {
		return fmt.Errorf("%w: set webhook: %w", chat.ErrTransport, err)
	}
	return nil
}

// WebhookHandler decodes one update per request and dispatches it. It always
// answers 200 so Telegram does not redeliver updates the bot cannot handle.
func WebhookHandler(d chat.Dispatcher, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var u tgbotapi.Update
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&u); err != nil {
			logger.Warn("failed to decode webhook update", zap.Error(err))
			w.WriteHeader(http.StatusOK)
			return
		}

		if ev, ok := EventFromUpdate(u); ok {
			// Detached so a client disconnect cannot abort a store write midway.
			d.Dispatch(context.WithoutCancel(r.Context()), ev)
		}
		w.WriteHeader(http.StatusOK)
	})
}
