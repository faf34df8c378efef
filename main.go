package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/okservice/repairdesk/internal/bot"
	"github.com/okservice/repairdesk/internal/config"
	"github.com/okservice/repairdesk/internal/content"
	"github.com/okservice/repairdesk/internal/conversation"
	"github.com/okservice/repairdesk/internal/db"
	"github.com/okservice/repairdesk/internal/handler"
	"github.com/okservice/repairdesk/internal/intake"
	"github.com/okservice/repairdesk/internal/manager"
	"github.com/okservice/repairdesk/internal/notify"
	"github.com/okservice/repairdesk/internal/telegram"
	"github.com/okservice/repairdesk/internal/webserver"
)

var version = "dev"

//go:embed web
var siteFS embed.FS

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file to load before reading the environment")
	mode := pflag.String("mode", "", "chat transport: polling or webhook (overrides BOT_MODE)")
	mcpMode := pflag.Bool("mcp", false, "serve read-only operator tools over MCP stdio instead of running the bot")
	pflag.Parse()

	envErr := godotenv.Load(*envFile)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *mode != "" {
		cfg.Bot.Mode = strings.ToLower(*mode)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		logger.Warn("failed to load env file", zap.String("path", *envFile), zap.Error(envErr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *mcpMode {
		err = runMCP(ctx, cfg, logger)
	} else {
		err = runBot(ctx, cfg, logger)
	}
	if err != nil {
		logger.Fatal("exiting", zap.Error(err))
	}
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL value %q: %w", cfg.Level, err)
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = level
	return zcfg.Build()
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*db.Store, error) {
	store, err := db.Open(ctx, db.Options{DatabaseURL: cfg.Store.DatabaseURL, Path: cfg.Store.Path})
	if err != nil {
		return nil, err
	}
	backend := "sqlite"
	if cfg.Store.DatabaseURL != "" {
		backend = "postgres"
	}
	logger.Info("request store ready", zap.String("backend", backend))
	return store, nil
}

func runMCP(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	s := handler.NewServer(handler.NewTools(store, cfg.Location), version)
	return server.ServeStdio(s)
}

func runBot(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if err := cfg.ValidateBot(); err != nil {
		return err
	}

	menu, err := content.Load(cfg.ContentFile)
	if err != nil {
		return err
	}

	site, err := siteFiles(cfg.Server.SiteDir)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	client, err := telegram.NewClient(cfg.Bot.Token)
	if err != nil {
		return err
	}

	broker := manager.NewSSEBroker()
	notifier := notify.New(client, cfg.Bot.OperatorID, logger.Named("notify"),
		notify.WithCustomerMenu(bot.MainMenu()),
		notify.WithLocation(cfg.Location),
	)
	service := intake.NewService(store, notifier, broker, logger.Named("intake"))
	machine := conversation.New(service.ChatFinalizer(),
		conversation.WithTTL(cfg.Bot.SessionTTL),
		conversation.WithPrompts(conversation.Prompts{
			Name:    menu.Dialogue.Name,
			Phone:   menu.Dialogue.Phone,
			Problem: menu.Dialogue.Problem,
			Done:    menu.Dialogue.Done,
		}),
	)

	router := bot.NewRouter(bot.Deps{
		Sender:     client,
		Store:      store,
		Machine:    machine,
		Notifier:   notifier,
		Content:    menu,
		OperatorID: cfg.Bot.OperatorID,
		Location:   cfg.Location,
		Logger:     logger.Named("bot"),
	})

	deps := webserver.Deps{
		Gateway:       intake.NewGateway(service),
		Store:         store,
		Broker:        broker,
		Site:          site,
		OperatorToken: cfg.Server.OperatorToken,
		AllowedOrigin: cfg.Server.AllowedOrigin,
		Location:      cfg.Location,
		Logger:        logger.Named("http"),
	}
	if cfg.Bot.Mode == config.ModeWebhook {
		deps.Webhook = telegram.WebhookHandler(router, logger.Named("webhook"))
		deps.WebhookToken = cfg.Bot.Token
		if err := client.SetWebhook(cfg.WebhookURL()); err != nil {
			return err
		}
		logger.Info("webhook registered", zap.String("host", cfg.Bot.WebhookHost))
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return webserver.Run(ctx, cfg.Server.Addr, webserver.NewRouter(deps), logger.Named("http"))
	})
	if cfg.Bot.Mode == config.ModePolling {
		g.Go(func() error {
			return client.RunPolling(ctx, router, telegram.PollOptions{
				TimeoutSec: cfg.Bot.PollTimeoutSec,
				Logger:     logger.Named("polling"),
			})
		})
	}

	logger.Info("bot started",
		zap.String("version", version),
		zap.String("mode", cfg.Bot.Mode),
		zap.Int64("operator_id", cfg.Bot.OperatorID),
	)
	return g.Wait()
}

func siteFiles(dir string) (fs.FS, error) {
	if dir != "" {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("SITE_DIR: %w", err)
		}
		return os.DirFS(dir), nil
	}
	return fs.Sub(siteFS, "web")
}
