package main

import (
	"context"
	"log"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/taskhub/api/handler"
	"github.com/fastygo/taskhub/internal/app"
	"github.com/fastygo/taskhub/internal/config"
	"github.com/fastygo/taskhub/internal/middleware"
	"github.com/fastygo/taskhub/internal/router"
	"github.com/fastygo/taskhub/pkg/httpcontext"
	"github.com/fastygo/taskhub/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	application, err := app.New(cfg, zapLogger, app.Options{History: true, Redis: true})
	if err != nil {
		zapLogger.Fatal("startup failed", zap.Error(err))
	}
	manager := application.Lifecycle

	appCtx, cancel := manager.NotifyContext(context.Background())
	defer cancel()

	application.Start(appCtx)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	var runs apiHandler.RunHistory
	if application.History != nil {
		runs = application.History
	}
	handlers := router.Handlers{
		Task:    apiHandler.NewTaskHandler(application.Tasks, ctxAdapter, zapLogger),
		Mention: apiHandler.NewMentionHandler(application.Mentions, ctxAdapter, zapLogger),
		Job:     apiHandler.NewJobHandler(application.Scheduler, runs, ctxAdapter, zapLogger),
		Health:  apiHandler.NewHealthHandler(application.Monitor, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.JWTAuth(application.Auth, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started",
			zap.String("address", cfg.Address()),
			zap.Int("jobs", len(application.Jobs)),
			zap.Bool("scheduler", cfg.Scheduler.Enabled))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Error("server crashed", zap.Error(err))
			cancel()
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	<-appCtx.Done()

	if err := application.Close(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
