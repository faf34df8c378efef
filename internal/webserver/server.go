package webserver

import (
	"context"
	"crypto/subtle"
	"errors"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/okservice/repairdesk/internal/db"
	"github.com/okservice/repairdesk/internal/intake"
	"github.com/okservice/repairdesk/internal/manager"
)

// RequestReader is the read side of the request store used by the operator API.
type RequestReader interface {
	ListAll(ctx context.Context, order ...db.Order) ([]db.Request, error)
	SearchByName(ctx context.Context, fragment string) ([]db.Request, error)
}

// Deps wires the HTTP surface. Optional parts are left nil:
// without Webhook no Telegram route is mounted, without OperatorToken the
// operator API stays off, without Site nothing is served at "/".
type Deps struct {
	Gateway       *intake.Gateway
	Store         RequestReader
	Broker        *manager.SSEBroker
	Webhook       http.Handler
	WebhookToken  string
	Site          fs.FS
	OperatorToken string
	AllowedOrigin string
	Location      *time.Location
	Logger        *zap.Logger
}

type server struct {
	Deps
}

// NewRouter builds the HTTP handler.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.AllowedOrigin == "" {
		d.AllowedOrigin = "*"
	}
	s := &server{Deps: d}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{d.AllowedOrigin},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Get("/api/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/send_request", s.handleSubmit)
	r.Post("/api/requests", s.handleSubmit)

	if d.Webhook != nil && d.WebhookToken != "" {
		r.Post("/telegram/{token}", s.handleWebhook)
	}

	if d.OperatorToken != "" {
		r.Group(func(op chi.Router) {
			op.Use(s.requireOperator)
			op.Get("/api/requests", s.handleListRequests)
			op.Get("/api/requests/export", s.handleExport)
			op.Get("/api/events", s.handleSSE)
		})
	}

	if d.Site != nil {
		r.Handle("/*", http.FileServer(http.FS(d.Site)))
	}
	return r
}

// requireOperator accepts the operator token as a bearer header, or as a
// "token" query parameter for EventSource clients that cannot set headers.
func (s *server) requireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" || token == r.Header.Get("Authorization") {
			token = r.URL.Query().Get("token")
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.OperatorToken)) != 1 {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if subtle.ConstantTimeCompare([]byte(chi.URLParam(r, "token")), []byte(s.WebhookToken)) != 1 {
		http.NotFound(w, r)
		return
	}
	s.Webhook.ServeHTTP(w, r)
}

// Run serves h on addr until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, addr string, h http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
