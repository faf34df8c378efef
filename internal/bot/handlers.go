package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/okservice/repairdesk/internal/chat"
	"github.com/okservice/repairdesk/internal/conversation"
	"github.com/okservice/repairdesk/internal/export"
)

func (r *Router) handleStart(ctx context.Context, ev chat.Event) error {
	r.Machine.Cancel(ev.ChatID)
	r.setPending(ev.ChatID, pendingNone)
	r.send(ctx, ev.ChatID, chat.Message{Text: r.Content.Greeting, Markup: MainMenu()})
	return nil
}

func (r *Router) handleAdmin(ctx context.Context, ev chat.Event) error {
	if !r.isOperator(ev.UserID) {
		r.Logger.Info("admin panel denied", zap.Int64("user_id", ev.UserID))
		r.send(ctx, ev.ChatID, chat.Message{Text: textAccessDenied, Markup: MainMenu()})
		return nil
	}
	r.setPending(ev.ChatID, pendingNone)
	r.send(ctx, ev.ChatID, chat.Message{Text: textAdminWelcome, Markup: AdminMenu()})
	return nil
}

func (r *Router) handleCancel(ctx context.Context, ev chat.Event) error {
	r.Machine.Cancel(ev.ChatID)
	r.setPending(ev.ChatID, pendingNone)
	r.send(ctx, ev.ChatID, chat.Message{Text: textCancelled, Markup: r.menuFor(ev.UserID)})
	return nil
}

// Operator panel.

func (r *Router) handleListAll(ctx context.Context, ev chat.Event) error {
	rows, err := r.Store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list requests: %w", err)
	}
	r.sendRequests(ctx, ev.ChatID, rows, textNoRequests)
	return nil
}

func (r *Router) handleFindPrompt(ctx context.Context, ev chat.Event) error {
	r.setPending(ev.ChatID, pendingSearch)
	r.send(ctx, ev.ChatID, chat.Message{Text: textSearchPrompt, Markup: &chat.Markup{Remove: true}})
	return nil
}

func (r *Router) handleSearch(ctx context.Context, ev chat.Event) error {
	rows, err := r.Store.SearchByName(ctx, strings.TrimSpace(ev.Text))
	if err != nil {
		return fmt.Errorf("search requests: %w", err)
	}
	r.sendRequests(ctx, ev.ChatID, rows, textNothingFound)
	return nil
}

func (r *Router) handleExport(ctx context.Context, ev chat.Event) error {
	rows, err := r.Store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list requests for export: %w", err)
	}
	if len(rows) == 0 {
		r.send(ctx, ev.ChatID, chat.Message{Text: textNoExportData, Markup: AdminMenu()})
		return nil
	}

	data, err := export.Workbook(rows, r.Location)
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}
	doc := chat.Document{
		Name:    export.FileName,
		Data:    data,
		Caption: textExportCaption,
		Markup:  AdminMenu(),
	}
	if err := r.Sender.SendDocument(ctx, ev.ChatID, doc); err != nil {
		r.Logger.Warn("failed to send export", zap.Int64("chat_id", ev.ChatID), zap.Error(err))
	}
	return nil
}

func (r *Router) handleClearPrompt(ctx context.Context, ev chat.Event) error {
	r.send(ctx, ev.ChatID, chat.Message{Text: textClearConfirm, Markup: clearConfirmation()})
	return nil
}

func (r *Router) handleHome(ctx context.Context, ev chat.Event) error {
	r.send(ctx, ev.ChatID, chat.Message{Text: textBackToMenu, Markup: MainMenu()})
	return nil
}

func (r *Router) answer(ctx context.Context, ev chat.Event) {
	if ev.CallbackID == "" {
		return
	}
	if err := r.Sender.AnswerCallback(ctx, ev.CallbackID); err != nil {
		r.Logger.Warn("failed to answer callback", zap.String("callback_id", ev.CallbackID), zap.Error(err))
	}
}

func (r *Router) handleConfirmClear(ctx context.Context, ev chat.Event) error {
	r.answer(ctx, ev)
	if !r.isOperator(ev.UserID) {
		r.Logger.Info("clear denied", zap.Int64("user_id", ev.UserID))
		r.send(ctx, ev.ChatID, chat.Message{Text: textAccessDenied, Markup: MainMenu()})
		return nil
	}

	removed, err := r.Store.ClearAll(ctx)
	if err != nil {
		return fmt.Errorf("clear requests: %w", err)
	}
	r.Logger.Info("request store cleared", zap.Int64("removed", removed))
	r.send(ctx, ev.ChatID, chat.Message{Text: fmt.Sprintf(textCleared, removed), Markup: AdminMenu()})
	return nil
}

func (r *Router) handleCancelClear(ctx context.Context, ev chat.Event) error {
	r.answer(ctx, ev)
	r.send(ctx, ev.ChatID, chat.Message{Text: textClearCancelled, Markup: r.menuFor(ev.UserID)})
	return nil
}

func (r *Router) handleUnknownCallback(ctx context.Context, ev chat.Event) error {
	r.answer(ctx, ev)
	return nil
}

// Request dialogue.

func (r *Router) handleNewRequest(ctx context.Context, ev chat.Event) error {
	prompt := r.Machine.Start(ev.ChatID)
	r.send(ctx, ev.ChatID, chat.Message{Text: prompt, Markup: &chat.Markup{Remove: true}})
	return nil
}

func (r *Router) handleDialogue(ctx context.Context, ev chat.Event) error {
	reply, err := r.Machine.Advance(ctx, ev.ChatID, ev.Text)
	switch {
	case errors.Is(err, conversation.ErrNoSession):
		// Expired between resolve and here.
		return r.handleFallback(ctx, ev)
	case err != nil:
		r.send(ctx, ev.ChatID, chat.Message{Text: textSaveFailed, Markup: MainMenu()})
		return nil
	case reply.Done && r.Notifier != nil:
		r.Notifier.NotifyCustomer(ctx, ev.ChatID, reply.Text)
		return nil
	case reply.Done:
		r.send(ctx, ev.ChatID, chat.Message{Text: reply.Text, Markup: MainMenu()})
		return nil
	}
	r.send(ctx, ev.ChatID, chat.Message{Text: reply.Text})
	return nil
}

// Customer menu.

func (r *Router) handleAbout(ctx context.Context, ev chat.Event) error {
	r.sendMarkdown(ctx, ev.ChatID, r.Content.About, MainMenu())
	return nil
}

func (r *Router) handlePrices(ctx context.Context, ev chat.Event) error {
	r.sendMarkdown(ctx, ev.ChatID, r.Content.Prices, MainMenu())
	return nil
}

func (r *Router) handleHours(ctx context.Context, ev chat.Event) error {
	r.sendMarkdown(ctx, ev.ChatID, r.Content.Hours, MainMenu())
	return nil
}

func (r *Router) handleAddress(ctx context.Context, ev chat.Event) error {
	r.sendMarkdown(ctx, ev.ChatID, r.Content.Address, MainMenu())
	return nil
}

func (r *Router) handleContacts(ctx context.Context, ev chat.Event) error {
	links := make([]chat.Button, 0, len(r.Content.Contacts.Buttons))
	for _, b := range r.Content.Contacts.Buttons {
		links = append(links, chat.Button{Text: b.Text, URL: b.URL})
	}
	markup := MainMenu()
	if len(links) > 0 {
		markup = linkButtons(links, 2)
	}
	r.sendMarkdown(ctx, ev.ChatID, r.Content.Contacts.Text, markup)
	return nil
}

func (r *Router) handleMap(ctx context.Context, ev chat.Event) error {
	pin := chat.Location{Latitude: r.Content.Map.Latitude, Longitude: r.Content.Map.Longitude}
	if err := r.Sender.SendLocation(ctx, ev.ChatID, pin); err != nil {
		r.Logger.Warn("failed to send location", zap.Int64("chat_id", ev.ChatID), zap.Error(err))
	}
	r.send(ctx, ev.ChatID, chat.Message{Text: r.Content.Map.Caption, Markup: MainMenu()})
	return nil
}

func (r *Router) handlePhoto(ctx context.Context, ev chat.Event) error {
	path := r.Content.Photo.Path
	if path == "" {
		r.send(ctx, ev.ChatID, chat.Message{Text: textPhotoMissing, Markup: MainMenu()})
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		r.Logger.Warn("service photo unavailable", zap.String("path", path), zap.Error(err))
		r.send(ctx, ev.ChatID, chat.Message{Text: textPhotoMissing, Markup: MainMenu()})
		return nil
	}

	photo := chat.Photo{Path: path, Caption: r.Content.Photo.Caption, Markup: MainMenu()}
	if err := r.Sender.SendPhoto(ctx, ev.ChatID, photo); err != nil {
		r.Logger.Warn("failed to send photo", zap.Int64("chat_id", ev.ChatID), zap.Error(err))
		r.send(ctx, ev.ChatID, chat.Message{Text: textPhotoMissing, Markup: MainMenu()})
	}
	return nil
}

func (r *Router) handleFallback(ctx context.Context, ev chat.Event) error {
	r.send(ctx, ev.ChatID, chat.Message{Text: textNotUnderstood, Markup: MainMenu()})
	return nil
}
