// Package bot routes chat events to the customer menu, the request dialogue
// and the operator panel.
package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/okservice/repairdesk/internal/chat"
	"github.com/okservice/repairdesk/internal/content"
	"github.com/okservice/repairdesk/internal/conversation"
	"github.com/okservice/repairdesk/internal/db"
	"github.com/okservice/repairdesk/internal/metrics"
)

// Store is the part of the request store the operator panel needs.
type Store interface {
	ListAll(ctx context.Context, order ...db.Order) ([]db.Request, error)
	SearchByName(ctx context.Context, fragment string) ([]db.Request, error)
	ClearAll(ctx context.Context) (int64, error)
}

// CustomerNotifier acknowledges a finished dialogue.
type CustomerNotifier interface {
	NotifyCustomer(ctx context.Context, chatID int64, text string)
}

// Deps are the collaborators of a Router.
type Deps struct {
	Sender     chat.Sender
	Store      Store
	Machine    *conversation.Machine
	Notifier   CustomerNotifier
	Content    *content.Content
	OperatorID int64
	Location   *time.Location
	Logger     *zap.Logger
}

type handlerFunc func(ctx context.Context, ev chat.Event) error

// route pairs a keyword predicate with its handler. Tables of routes are
// scanned in order; the first match wins.
type route struct {
	name   string
	match  func(text string) bool
	handle handlerFunc
}

// pendingAction is an operator continuation waiting for the next message.
type pendingAction int

const (
	pendingNone pendingAction = iota
	pendingSearch
)

// Router implements chat.Dispatcher.
type Router struct {
	Deps

	mu      sync.Mutex
	pending map[int64]pendingAction

	adminRoutes    []route
	customerRoutes []route
}

var _ chat.Dispatcher = (*Router)(nil)

func NewRouter(d Deps) *Router {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Content == nil {
		d.Content = content.Default()
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	r := &Router{
		Deps:    d,
		pending: make(map[int64]pendingAction),
	}
	r.adminRoutes = []route{
		{"admin_list", containsAny("все заявки", "all requests"), r.handleListAll},
		{"admin_find", containsAny("найти", "find"), r.handleFindPrompt},
		{"admin_export", containsAny("экспорт", "export"), r.handleExport},
		{"admin_clear", containsAny("очист", "clear"), r.handleClearPrompt},
		{"admin_home", containsAny("главное меню", "main menu"), r.handleHome},
	}
	r.customerRoutes = []route{
		{"about", containsAny("о сервисе", "about"), r.handleAbout},
		{"prices", containsAny("услуги", "цены", "services", "prices"), r.handlePrices},
		{"photo", containsAny("фото", "photo"), r.handlePhoto},
		{"address", containsAny("как добраться", "адрес", "address", "directions"), r.handleAddress},
		{"hours", containsAny("время работы", "hours"), r.handleHours},
		{"contact", containsAny("связаться", "контакт", "contact"), r.handleContacts},
		{"map", containsAny("карта", "показать", "map"), r.handleMap},
		{"request", containsAny("заявк", "ремонт", "request", "repair"), r.handleNewRequest},
	}
	return r
}

func containsAny(keywords ...string) func(string) bool {
	return func(text string) bool {
		for _, k := range keywords {
			if strings.Contains(text, k) {
				return true
			}
		}
		return false
	}
}

// Dispatch handles one event. It never panics; failures are logged and, where
// the user is waiting for an answer, reported in the chat.
func (r *Router) Dispatch(ctx context.Context, ev chat.Event) {
	defer func() {
		if rec := recover(); rec != nil {
			r.Logger.Error("panic while handling update",
				zap.Any("panic", rec),
				zap.Int64("chat_id", ev.ChatID),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()

	name, h := r.resolve(ev)
	metrics.Updates.WithLabelValues(ev.Kind.String(), name).Inc()
	r.Logger.Debug("routing update",
		zap.String("kind", ev.Kind.String()),
		zap.String("route", name),
		zap.Int64("chat_id", ev.ChatID),
	)

	if err := h(ctx, ev); err != nil {
		r.Logger.Error("handler failed",
			zap.String("route", name),
			zap.Int64("chat_id", ev.ChatID),
			zap.Error(err),
		)
		r.send(ctx, ev.ChatID, chat.Message{Text: textInternalError, Markup: r.menuFor(ev.UserID)})
	}
}

// resolve picks exactly one handler for ev. A pending operator
// continuation is consumed by the first plain message and dropped by any
// command.
func (r *Router) resolve(ev chat.Event) (string, handlerFunc) {
	if ev.Kind == chat.EventCallback {
		switch ev.Data {
		case CallbackConfirmClear:
			return "confirm_clear", r.handleConfirmClear
		case CallbackCancelClear:
			return "cancel_clear", r.handleCancelClear
		default:
			return "callback_unknown", r.handleUnknownCallback
		}
	}

	if ev.Kind == chat.EventCommand {
		switch ev.Command {
		case "start":
			return "start", r.handleStart
		case "admin":
			return "admin", r.handleAdmin
		case "cancel":
			return "cancel", r.handleCancel
		}
		// Unknown commands are never taken as search input.
		r.setPending(ev.ChatID, pendingNone)
	}

	text := strings.ToLower(ev.Text)
	operator := r.isOperator(ev.UserID)

	if operator && r.takePending(ev.ChatID) == pendingSearch {
		return "admin_search", r.handleSearch
	}
	if operator {
		for _, rt := range r.adminRoutes {
			if rt.match(text) {
				return rt.name, rt.handle
			}
		}
	}
	if r.Machine.Active(ev.ChatID) {
		return "dialogue", r.handleDialogue
	}
	for _, rt := range r.customerRoutes {
		if rt.match(text) {
			return rt.name, rt.handle
		}
	}
	return "fallback", r.handleFallback
}

func (r *Router) isOperator(userID int64) bool {
	return r.OperatorID != 0 && userID == r.OperatorID
}

func (r *Router) menuFor(userID int64) *chat.Markup {
	if r.isOperator(userID) {
		return AdminMenu()
	}
	return MainMenu()
}

func (r *Router) setPending(chatID int64, a pendingAction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a == pendingNone {
		delete(r.pending, chatID)
		return
	}
	r.pending[chatID] = a
}

// takePending pops the continuation registered for chatID.
func (r *Router) takePending(chatID int64) pendingAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.pending[chatID]
	delete(r.pending, chatID)
	return a
}

// send delivers msg and logs delivery failures. Transport errors never
// reach the handler.
func (r *Router) send(ctx context.Context, chatID int64, msg chat.Message) {
	if err := r.Sender.SendText(ctx, chatID, msg); err != nil {
		r.Logger.Warn("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) sendMarkdown(ctx context.Context, chatID int64, text string, markup *chat.Markup) {
	r.send(ctx, chatID, chat.Message{Text: text, Markdown: true, Markup: markup})
}

func (r *Router) formatRequest(req db.Request) string {
	problem := req.Problem
	if problem == "" {
		problem = "—"
	}
	return fmt.Sprintf("🆔 Заявка №%d\n👤 Имя: %s\n📞 Телефон: %s\n💬 Проблема: %s\n🕒 Дата: %s",
		req.ID, req.Name, req.Phone, problem, req.CreatedAt.In(r.Location).Format("2006-01-02 15:04"))
}

// sendRequests posts one message per request, the last one carrying the
// admin keyboard.
func (r *Router) sendRequests(ctx context.Context, chatID int64, rows []db.Request, empty string) {
	if len(rows) == 0 {
		r.send(ctx, chatID, chat.Message{Text: empty, Markup: AdminMenu()})
		return
	}
	for i, req := range rows {
		msg := chat.Message{Text: r.formatRequest(req)}
		if i == len(rows)-1 {
			msg.Markup = AdminMenu()
		}
		r.send(ctx, chatID, msg)
	}
}
