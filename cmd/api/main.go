package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/questline-learn/questline-api/internal/config"
	"github.com/questline-learn/questline-api/internal/database"
	"github.com/questline-learn/questline-api/internal/handler"
	"github.com/questline-learn/questline-api/internal/middleware"
	"github.com/questline-learn/questline-api/internal/models"
	"github.com/questline-learn/questline-api/internal/repository"
	"github.com/questline-learn/questline-api/internal/router"
	"github.com/questline-learn/questline-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.ReviewerAssignment{},
		&models.Mission{},
		&models.Submission{},
		&models.Artifact{},
		&models.SubmissionEvent{},
		&models.XPAward{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	validate := validator.New(validator.WithRequiredStructEnabled())

	submissionRepo := repository.NewSubmissionRepository(db)
	missionRepo := repository.NewMissionRepository(db)
	userRepo := repository.NewUserRepository(db)
	xpRepo := repository.NewXPRepository(db)

	dispatcher := service.NewLogOutcomeDispatcher(logger)
	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		conn, err := database.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer conn.Close()
		natsConn = conn
		dispatcher = service.NewNATSOutcomeDispatcher(conn, cfg.OutcomeSubject, logger)
	}

	workflowService := service.NewWorkflowService(submissionRepo, missionRepo, dispatcher, validate, logger)
	missionService, err := service.NewMissionService(missionRepo, validate, logger)
	if err != nil {
		log.Fatalf("failed to create mission service: %v", err)
	}
	xpService := service.NewXPService(xpRepo, missionRepo, redisClient, natsConn, cfg.OutcomeSubject+".approved", cfg.XPCacheTTL, logger)
	actorResolver := service.NewActorResolver(userRepo, logger)

	runCtx, stopConsumers := context.WithCancel(context.Background())
	defer stopConsumers()
	xpService.Start(runCtx)

	submissionHandler := handler.NewSubmissionHandler(workflowService, logger)
	missionHandler := handler.NewMissionHandler(missionService, logger)
	xpHandler := handler.NewXPHandler(xpService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		SubmissionHandler: submissionHandler,
		MissionHandler:    missionHandler,
		XPHandler:         xpHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
		ActorMiddleware:   middleware.ResolveActor(actorResolver),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
