package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/inboxpilot/backend/internal/ai"
	"github.com/inboxpilot/backend/internal/config"
	"github.com/inboxpilot/backend/internal/db"
	httpapi "github.com/inboxpilot/backend/internal/http"
	"github.com/inboxpilot/backend/internal/mail"
	"github.com/inboxpilot/backend/internal/notify"
	"github.com/inboxpilot/backend/internal/scheduler"
	"github.com/inboxpilot/backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "inbox-monitor").Logger()

	ctx := context.Background()
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()

	var source mail.Source
	if cfg.GmailAccessToken == "" {
		source = mail.NewMockSource()
		logger.Info().Msg("using mock mail source")
	} else {
		source = mail.NewGmailSource(cfg.GmailBaseURL, cfg.GmailAccessToken, cfg.MailPageSize)
	}

	var analyzer ai.Analyzer
	if cfg.OpenAIAPIKey == "" {
		analyzer = ai.MockAnalyzer{ModelVersion: "mock-v1"}
		logger.Info().Msg("using mock analyzer")
	} else {
		analyzer = &ai.ModelAnalyzer{
			Chat: &ai.OpenAIClient{
				BaseURL: cfg.OpenAIBaseURL,
				APIKey:  cfg.OpenAIAPIKey,
				Model:   cfg.OpenAIModel,
			},
			Model:  cfg.OpenAIModel,
			Logger: logger,
		}
	}

	var mailer notify.Mailer
	if cfg.SendGridAPIKey == "" {
		mailer = &notify.MockMailer{}
		logger.Info().Msg("using mock mailer")
	} else {
		mailer = notify.NewSendGridMailer(cfg.SendGridBaseURL, cfg.SendGridAPIKey, cfg.FromAddress, cfg.FromName)
	}

	monitor := &service.Monitor{
		Mail:  source,
		AI:    analyzer,
		Store: store,
		Dispatcher: &service.Dispatcher{
			Store:        store,
			Mailer:       mailer,
			EscalationTo: cfg.EscalationList(),
			RetentionTo:  cfg.RetentionRecipient,
			Logger:       logger,
		},
		Logger: logger,
	}

	sched := scheduler.New(logger)
	if cfg.MonitorEnabled {
		if err := sched.Register(scheduler.JobSpec{
			Name:     "inbox-monitor",
			Interval: cfg.MonitorInterval,
			Timeout:  cfg.MonitorTimeout,
			Run: func(runCtx context.Context) error {
				_, err := monitor.Run(runCtx)
				return err
			},
		}); err != nil {
			logger.Fatal().Err(err).Msg("failed to register monitor job")
		}
		if err := sched.Start(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to start scheduler")
		}
		logger.Info().Dur("interval", cfg.MonitorInterval).Msg("monitor scheduled")
	}

	router := httpapi.Router(cfg, store, monitor, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	if err := sched.Stop(10 * time.Second); err != nil {
		logger.Warn().Err(err).Msg("scheduler stop timed out")
	}
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
