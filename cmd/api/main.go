package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/mechanic-matching/internal/auth"
	"github.com/iyhunko/mechanic-matching/internal/config"
	httpAPI "github.com/iyhunko/mechanic-matching/internal/http"
	"github.com/iyhunko/mechanic-matching/internal/http/controller"
	"github.com/iyhunko/mechanic-matching/internal/http/middleware"
	"github.com/iyhunko/mechanic-matching/internal/logger"
	"github.com/iyhunko/mechanic-matching/internal/metrics"
	"github.com/iyhunko/mechanic-matching/internal/repository/sql"
	"github.com/iyhunko/mechanic-matching/internal/service"
	sqspkg "github.com/iyhunko/mechanic-matching/internal/sqs"
)

const shutdownTimeout = 10 * time.Second

func main() {
	conf, err := config.LoadFromEnv()
	handleErr("loading config", err)
	logger.InitJSONLogger(conf.DebugMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := sql.StartDB(ctx, conf.Database)
	handleErr("starting database", err)
	defer db.Close()

	repos := sql.NewTransactionalRepository(db)

	sqsClient, err := sqspkg.NewClient(ctx, conf.AWS.Region, conf.AWS.Endpoint)
	handleErr("creating SQS client", err)
	sqsPublisher := sqspkg.NewPublisher(sqsClient, conf.AWS.SQSQueueURL)

	// Service-request events are written to the outbox in the same transaction
	// as the state change and published from here.
	outboxWorker := service.NewOutboxWorker(repos.Events(), sqsPublisher, conf.Outbox.Interval)
	go outboxWorker.Start(ctx)

	tokens := auth.NewTokenService(conf.Auth.JWTSecret, conf.Auth.JWTExpiry)
	userService := service.NewUserService(repos, tokens)

	handleErr("registering validators", controller.RegisterValidators())
	if !conf.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpAPI.InitRouter(middleware.New(conf, userService), gin.New(), httpAPI.Controllers{
		Health:          controller.New(),
		Users:           controller.NewUserController(userService, tokens.Expiry()),
		Vehicles:        controller.NewVehicleController(service.NewVehicleService(repos)),
		Mechanics:       controller.NewMechanicController(service.NewMechanicService(repos)),
		ServiceRequests: controller.NewServiceRequestController(service.NewServiceRequestService(repos)),
		Admin:           controller.NewAdminController(service.NewAdminService(repos)),
	})

	httpServer := &http.Server{
		Addr:              ":" + conf.HTTPServer.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("HTTP server starting", slog.String("port", conf.HTTPServer.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			handleErr("listening to HTTP requests", err)
		}
	}()

	metricsServer := metrics.StartMetricsServer(conf)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	slog.Info("Shutting down gracefully...")

	outboxWorker.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown failed", slog.Any("err", err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics server shutdown failed", slog.Any("err", err))
	}
}

func handleErr(msg string, err error) {
	if err != nil {
		log.Fatalf("error while %s: %v", msg, err)
	}
}
