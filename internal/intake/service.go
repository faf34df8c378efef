// Package intake is where both channels converge: a chat dialogue and a
// website form both end up in Service.Create.
package intake

import (
	"context"

	"go.uber.org/zap"

	"github.com/okservice/repairdesk/internal/conversation"
	"github.com/okservice/repairdesk/internal/db"
	"github.com/okservice/repairdesk/internal/metrics"
)

// Appender persists requests.
type Appender interface {
	Append(ctx context.Context, name, phone, problem string, source db.Source) (db.Request, error)
}

// OperatorNotifier alerts the operator. Implementations must not fail the caller.
type OperatorNotifier interface {
	NotifyOperator(ctx context.Context, req db.Request)
}

// Publisher receives every stored request, e.g. the dashboard broker.
type Publisher interface {
	Publish(req db.Request)
}

type Service struct {
	store     Appender
	notifier  OperatorNotifier
	publisher Publisher
	logger    *zap.Logger
}

// NewService wires the intake path. notifier and publisher may be nil.
func NewService(store Appender, notifier OperatorNotifier, publisher Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		notifier:  notifier,
		publisher: publisher,
		logger:    logger,
	}
}

// Create stores a request, then tells the operator and the dashboard about
// it. Only the store can fail the call.
func (s *Service) Create(ctx context.Context, name, phone, problem string, source db.Source) (db.Request, error) {
	req, err := s.store.Append(ctx, name, phone, problem, source)
	if err != nil {
		return db.Request{}, err
	}

	metrics.RequestsCreated.WithLabelValues(string(req.Source)).Inc()
	s.logger.Info("request saved",
		zap.Uint("request_id", req.ID),
		zap.String("source", string(req.Source)),
	)

	if s.notifier != nil {
		s.notifier.NotifyOperator(ctx, req)
	}
	if s.publisher != nil {
		s.publisher.Publish(req)
	}
	return req, nil
}

// ChatFinalizer adapts Create to the conversation machine.
func (s *Service) ChatFinalizer() conversation.Finalizer {
	return func(ctx context.Context, chatID int64, d conversation.Draft) error {
		_, err := s.Create(ctx, d.Name, d.Phone, d.Problem, db.SourceChat)
		if err != nil {
			s.logger.Error("saving chat request failed", zap.Int64("chat_id", chatID), zap.Error(err))
		}
		return err
	}
}
