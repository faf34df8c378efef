package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/okservice/repairdesk/internal/chat"
	"github.com/okservice/repairdesk/internal/db"
	"github.com/okservice/repairdesk/internal/metrics"
)

const timeLayout = "2006-01-02 15:04"

// Timestamp renders t in loc (UTC when nil) the way every chat message shows it.
func Timestamp(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(timeLayout)
}

// Notifier tells the operator about new requests and acknowledges customers.
// Delivery failures are logged and swallowed: a persisted request is never
// affected by a notification problem.
type Notifier struct {
	sender     chat.Sender
	operatorID int64
	logger     *zap.Logger
	menu       *chat.Markup
	loc        *time.Location
}

type Option func(*Notifier)

// WithCustomerMenu attaches the given keyboard to customer acknowledgements.
func WithCustomerMenu(menu *chat.Markup) Option {
	return func(n *Notifier) { n.menu = menu }
}

// WithLocation renders timestamps in loc instead of UTC.
func WithLocation(loc *time.Location) Option {
	return func(n *Notifier) { n.loc = loc }
}

func New(sender chat.Sender, operatorID int64, logger *zap.Logger, opts ...Option) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &Notifier{
		sender:     sender,
		operatorID: operatorID,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NotifyOperator sends the request summary to the operator.
func (n *Notifier) NotifyOperator(ctx context.Context, req db.Request) {
	msg := chat.Message{
		Text:     OperatorSummary(req, n.loc),
		Markdown: true,
	}
	if err := n.sender.SendText(ctx, n.operatorID, msg); err != nil {
		metrics.NotificationsFailed.WithLabelValues("operator").Inc()
		n.logger.Warn("operator notification failed",
			zap.Uint("request_id", req.ID),
			zap.Int64("chat_id", n.operatorID),
			zap.Error(err),
		)
	}
}

// NotifyCustomer sends an acknowledgement back to the originating chat.
func (n *Notifier) NotifyCustomer(ctx context.Context, chatID int64, text string) {
	msg := chat.Message{Text: text, Markup: n.menu}
	if err := n.sender.SendText(ctx, chatID, msg); err != nil {
		metrics.NotificationsFailed.WithLabelValues("customer").Inc()
		n.logger.Warn("customer acknowledgement failed",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}

// OperatorSummary renders the Markdown alert for a new request.
func OperatorSummary(req db.Request, loc *time.Location) string {
	header := "📬 *Новая заявка!*"
	if req.Source == db.SourceSite {
		header = "📬 *Новая заявка с сайта!*"
	}

	problem := req.Problem
	if problem == "" {
		problem = "—"
	}

	var b strings.Builder
	b.WriteString(header + "\n")
	fmt.Fprintf(&b, "🆔 Заявка №%d\n", req.ID)
	fmt.Fprintf(&b, "👤 Имя: %s\n", EscapeMarkdown(req.Name))
	fmt.Fprintf(&b, "📞 Телефон: %s\n", EscapeMarkdown(req.Phone))
	fmt.Fprintf(&b, "💬 Проблема: %s\n", EscapeMarkdown(problem))
	fmt.Fprintf(&b, "🕒 Время: %s", Timestamp(req.CreatedAt, loc))
	return b.String()
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// EscapeMarkdown escapes the characters legacy Telegram Markdown treats as
// markup so customer input cannot break the message.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
