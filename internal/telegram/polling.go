package telegram

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/okservice/repairdesk/internal/chat"
)

const (
	minBackoff = 2 * time.Second
	maxBackoff = 15 * time.Second
)

// PollOptions tune RunPolling.
type PollOptions struct {
	TimeoutSec int
	Logger     *zap.Logger
}

// RunPolling removes any registered webhook and long-polls for updates until
// ctx is cancelled. Updates are dispatched one at a time in arrival order.
// Fetch errors are retried with a capped exponential backoff.
func (c *Client) RunPolling(ctx context.Context, d chat.Dispatcher, opts PollOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.TimeoutSec
	if timeout <= 0 {
		timeout = 30
	}

	if _, err := c.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		logger.Warn("failed to remove webhook before polling", zap.Error(err))
	}

	logger.Info("polling for updates", zap.Int("timeout_sec", timeout))
	offset := 0
	backoff := minBackoff

	for {
		if ctx.Err() != nil {
			logger.Info("polling stopped")
			return nil
		}

		cfg := tgbotapi.NewUpdate(offset)
		cfg.Timeout = timeout
		updates, err := c.fetch(ctx, cfg)
		if ctx.Err() != nil {
			logger.Info("polling stopped")
			return nil
		}
		if err != nil {
			logger.Warn("getUpdates failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if sleepOrCancel(ctx, backoff) != nil {
				logger.Info("polling stopped")
				return nil
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = minBackoff

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			ev, ok := EventFromUpdate(u)
			if !ok {
				continue
			}
			d.Dispatch(ctx, ev)
		}
	}
}

// fetch runs one getUpdates call and gives up waiting when ctx is done. The
// Bot API client has no context support, so an abandoned call finishes in
// the background within the poll timeout and its result is dropped.
func (c *Client) fetch(ctx context.Context, cfg tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
	type result struct {
		updates []tgbotapi.Update
		err     error
	}
	done := make(chan result, 1)
	go func() {
		updates, err := c.api.GetUpdates(cfg)
		done <- result{updates, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.updates, r.err
	}
}

func sleepOrCancel(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
