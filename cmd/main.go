// @title WorkFit Event Service API
// @version 1.0
// @description Cross-service event consistency layer for the WorkFit job platform.
// @host localhost:8080
// @BasePath /api/events

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "workfit-event-service-golang/docs"
	v1 "workfit-event-service-golang/internal/api/v1"
	"workfit-event-service-golang/internal/config"
	"workfit-event-service-golang/internal/consumer"
	"workfit-event-service-golang/internal/db"
	"workfit-event-service-golang/internal/handlers"
	kafkautil "workfit-event-service-golang/internal/kafka"
	mongodb "workfit-event-service-golang/internal/mongo"
	"workfit-event-service-golang/internal/notification"
	"workfit-event-service-golang/internal/producer"
	"workfit-event-service-golang/internal/ratelimit"
	"workfit-event-service-golang/internal/redis"
	"workfit-event-service-golang/internal/saga"
	"workfit-event-service-golang/internal/scheduler"
	"workfit-event-service-golang/internal/store"
	"workfit-event-service-golang/utils"

	fiber "github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberSwagger "github.com/gofiber/swagger"
)

func main() {
	//load configs
	cfg := config.LoadConfig()

	//connect to postgres, redis and mongo
	db.InitPostgres(cfg.DatabaseURL)
	redis.InitRedis()
	mongodb.InitMongo()
	defer db.CloseDB()
	defer redis.CloseRedis()
	defer mongodb.CloseMongo()

	if err := consumer.InitMetrics(); err != nil {
		log.Fatalf("failed to init metrics: %v", err)
	}

	//stores
	users := store.NewUserStore(db.Conn)
	applications := store.NewApplicationStore(mongodb.Database)
	notifications := store.NewNotificationStore(mongodb.Database)
	userIndex := store.NewUserIndex(mongodb.Database)
	cvFiles := store.NewCvFileStore(mongodb.Database)
	sessions := store.NewSessionStore(redis.Client)
	jobs := store.NewJobCatalog(mongodb.Database)

	var limiter *ratelimit.Limiter
	if cfg.RateLimitBackend == "memory" {
		// Single-instance deployments can skip redis round-trips.
		memStore := ratelimit.NewMemoryStore()
		limiter = ratelimit.New(memStore)
		go scheduler.StartLimiterSweepScheduler(memStore)
	} else {
		limiter = ratelimit.New(ratelimit.NewRedisStore(redis.Client))
	}

	//notification delivery chain
	hub := notification.NewHub()
	email := notification.NewSMTPSender(cfg)
	prefs := notification.NewPreferenceCache(users)
	orchestrator := notification.NewOrchestrator(
		&notification.CriticalStrategy{Email: email, Store: notifications, Realtime: hub},
		&notification.TransactionalEmailStrategy{Email: email, Store: notifications},
		&notification.AccountApprovalStrategy{Email: email, Store: notifications, Realtime: hub},
		&notification.ApplicationStrategy{Email: email, Store: notifications, Limiter: limiter, Realtime: hub},
		&notification.DefaultStrategy{Email: email, Store: notifications, Preferences: prefs, Realtime: hub},
	)

	//event producer and submission saga
	bus := producer.NewKafkaProducer()
	defer bus.Close()
	defer kafkautil.CloseWriters()
	submission := saga.NewOrchestrator(applications, jobs, cvFiles, bus, saga.Topics{
		ApplicationEvents: cfg.TopicApplicationEvents,
		JobEvents:         cfg.TopicJobEvents,
	})

	//setup graceful shutdown before consumers start
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//init kafka consumers
	var wg sync.WaitGroup
	consumer.Start(ctx, &wg, cfg.TopicUserRegistration, handlers.UserRegistration(users, utils.PublishAccountApproved))
	consumer.Start(ctx, &wg, cfg.TopicPasswordChange, handlers.PasswordChange(users, func(userID, email string) {
		if email != "" {
			utils.PublishPasswordChangedAlert(email)
		}
		utils.PublishSessionInvalidation(userID, "", "PASSWORD_CHANGED")
	}))
	consumer.Start(ctx, &wg, cfg.TopicCompanySync, handlers.CompanySync(users))
	consumer.Start(ctx, &wg, cfg.TopicUserChangeEvents, handlers.UserIndexSync(userIndex))
	consumer.Start(ctx, &wg, cfg.TopicSessionInvalidation, handlers.SessionInvalidation(sessions))
	consumer.Start(ctx, &wg, cfg.TopicJobEvents, handlers.JobStatsUpdate(jobs))
	consumer.Start(ctx, &wg, cfg.TopicNotificationEvents, handlers.NotificationEvents(orchestrator))
	consumer.Start(ctx, &wg, cfg.TopicApplicationEvents, handlers.ApplicationEvents(orchestrator))

	//init schedulers
	replayTopics := cfg.ConsumedTopics()
	go scheduler.StartDLTReplayScheduler(replayTopics)

	//start API
	app := fiber.New()
	// ✅ Enable CORS
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "https://localhost:8000, https://127.0.0.1:8000, https://localhost:3000",
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Content-Length",
		AllowCredentials: true,
	}))

	api := app.Group("/api/events")
	v1.RegisterHealthRoutes(api)

	appAPI := &v1.ApplicationAPI{Saga: submission}
	appAPI.RegisterApplicationRoutes(api.Group("/applications"))

	notifAPI := &v1.NotificationAPI{Store: notifications, Orchestrator: orchestrator}
	notifAPI.RegisterNotificationRoutes(api.Group("/notifications"))

	adminAPI := &v1.AdminAPI{
		Limiter: limiter,
		Users:   users,
		Replay: func() {
			count := scheduler.RunReplayPass(context.Background(), replayTopics)
			log.Printf("[STARTUP] manual DLT replay finished, replayed=%d", count)
		},
	}
	adminAPI.RegisterAdminRoutes(api.Group("/admin"))

	// Swagger UI
	app.Get("/swagger/*", fiberSwagger.HandlerDefault)

	// Start server
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// Websocket hub on its own listener; fiber rides fasthttp and gorilla
	// needs net/http.
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/ws/notifications", hub.ServeWS)
		if err := http.ListenAndServe(":"+cfg.WSPort, mux); err != nil {
			log.Fatalf("failed to start websocket listener: %v", err)
		}
	}()

	log.Println("[STARTUP] Event Service running...")

	//wait until shutdown
	<-ctx.Done()
	wg.Wait()

	log.Println("[EXIT] Event Service stopped gracefully")
}
