package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pktikkani/mindful-poster/internal/generator"
	"github.com/pktikkani/mindful-poster/internal/handlers"
	"github.com/pktikkani/mindful-poster/internal/instagram"
	"github.com/pktikkani/mindful-poster/internal/notify"
	"github.com/pktikkani/mindful-poster/internal/posts"
	"github.com/pktikkani/mindful-poster/internal/scheduler"
	"github.com/pktikkani/mindful-poster/internal/workflow"
	"github.com/pktikkani/mindful-poster/pkg/config"
	"github.com/pktikkani/mindful-poster/pkg/database"
	"github.com/pktikkani/mindful-poster/pkg/email"
	"github.com/pktikkani/mindful-poster/pkg/logging"
	"github.com/pktikkani/mindful-poster/pkg/middleware"
	"github.com/pktikkani/mindful-poster/pkg/monitoring"
	"github.com/pktikkani/mindful-poster/pkg/server"
	"github.com/pktikkani/mindful-poster/pkg/version"
)

const defaultThemes = "exam stress,sleep,social media pressure,self-compassion,focus,gratitude"

const defaultImageURL = "https://images.unsplash.com/photo-1506126613408-eca07ce68773?w=1080&q=80"

func main() {
	// Setup logger
	logger := logging.NewLoggerWithService("poster")

	// Load environment variables
	config.LoadEnv(logger)

	logger.Info("Starting Mindful Poster")

	dbURL := config.RequireEnv("DATABASE_URL")
	anthropicKey := config.RequireEnv("ANTHROPIC_API_KEY")
	appSecret := config.RequireEnv("APP_SECRET")

	port := config.GetEnv("PORT", "18090")
	baseURL := config.GetEnv("BASE_URL", "http://localhost:"+port)
	themes := splitThemes(config.GetEnv("POST_THEMES", defaultThemes))

	// Connect to database
	dbConfig := database.DefaultConfig()
	dbConfig.URL = dbURL
	db := database.MustConnect(dbConfig, logger)
	defer db.Close()

	if err := database.EnsureSchema(db, logger); err != nil {
		logger.WithError(err).Fatal("Failed to ensure database schema")
	}

	store := posts.NewStore(db)

	producer := generator.NewClient(generator.Config{
		APIKey:    anthropicKey,
		APIURL:    config.GetEnv("ANTHROPIC_API_URL", ""),
		Model:     config.GetEnv("ANTHROPIC_MODEL", ""),
		MaxTokens: config.GetEnvInt("ANTHROPIC_MAX_TOKENS", 0),
	})

	publisher := instagram.NewClient(instagram.Config{
		AccessToken: config.GetEnv("INSTAGRAM_ACCESS_TOKEN", ""),
		AccountID:   config.GetEnv("INSTAGRAM_ACCOUNT_ID", ""),
		ImageURL:    config.GetEnv("POST_IMAGE_URL", defaultImageURL),
	})
	if !publisher.Configured() {
		logger.Warn("Instagram credentials not configured, approved posts will fail to publish")
	}

	notifier := notify.NewEmailNotifier(notify.Config{
		SMTP: email.Config{
			Host:     config.GetEnv("SMTP_HOST", ""),
			Port:     config.GetEnv("SMTP_PORT", "587"),
			User:     config.GetEnv("SMTP_USER", ""),
			Password: config.GetEnv("SMTP_PASSWORD", ""),
			From:     config.GetEnv("FROM_EMAIL", ""),
			FromName: config.GetEnv("FROM_NAME", "The Mindful Initiative"),
		},
		ApproverEmail: config.GetEnv("APPROVER_EMAIL", ""),
	}, logger)
	if !notifier.IsConfigured() {
		logger.Warn("SMTP not configured, review emails will be skipped")
	}

	// Setup monitoring
	healthChecker := monitoring.NewHealthChecker("poster", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("poster", version.Version, version.GitCommit)

	healthChecker.AddCheck("database", monitoring.DatabaseHealthCheck(db))
	healthChecker.AddCheck("config", monitoring.ConfigurationHealthCheck(map[string]string{
		"DATABASE_URL":      dbURL,
		"ANTHROPIC_API_KEY": anthropicKey,
		"APP_SECRET":        appSecret,
	}))
	if publisher.Configured() {
		healthChecker.AddCheck("instagram", monitoring.PingHealthCheck("instagram", publisher))
	}

	pipeline := workflow.NewController(workflow.Config{
		Store:     store,
		Producer:  producer,
		Publisher: publisher,
		Notifier:  notifier,
		Signer:    workflow.NewTokenSigner(appSecret),
		Themes:    themes,
		BaseURL:   baseURL,
		Logger:    logger,
		Metrics:   workflow.NewMetrics(metricsCollector),
	})

	// Daily trigger
	hour, minute, err := scheduler.ParseClock(config.GetEnv("SCHEDULE_TIME", "07:00"))
	if err != nil {
		logger.WithError(err).Fatal("Invalid SCHEDULE_TIME")
	}
	tzName := config.GetEnv("SCHEDULE_TZ", "Asia/Kolkata")
	location, err := time.LoadLocation(tzName)
	if err != nil {
		logger.WithError(err).WithField("timezone", tzName).Fatal("Invalid SCHEDULE_TZ")
	}

	daily := scheduler.New(scheduler.Config{
		Pipeline: pipeline,
		Guard:    store,
		Hour:     hour,
		Minute:   minute,
		Location: location,
		Logger:   logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if config.GetEnvBool("SCHEDULE_ENABLED", true) {
		daily.Start(ctx)
		defer daily.Stop()
	} else {
		logger.Warn("Daily schedule disabled; posts must be triggered via POST /generate")
	}

	// Setup router with unified monitoring
	router := server.SetupServiceRouter(logger, "poster", healthChecker, metricsCollector)

	generateHandler := handlers.NewGenerateHandler(pipeline, logger)
	callbackHandler := handlers.NewCallbackHandler(pipeline, store, logger)
	dashboardHandler := handlers.NewDashboardHandler(store, pipeline, logger)

	router.POST("/generate", middleware.ServiceAuthMiddleware(appSecret), generateHandler.Handle)
	router.GET("/approve/:id", callbackHandler.Approve)
	router.GET("/reject/:id", callbackHandler.Reject)
	router.GET("/preview/:id", callbackHandler.Preview)
	router.GET("/dashboard", dashboardHandler.Handle)
	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/dashboard")
	})

	// Start server with graceful shutdown. Approving a post publishes
	// synchronously and Instagram media processing can take up to 30s of
	// polling inside the request.
	serverConfig := server.DefaultConfig("poster", port)
	serverConfig.WriteTimeout = 90 * time.Second
	if err := server.Start(serverConfig, router, logger); err != nil {
		logger.WithError(err).Fatal("Server startup failed")
	}
}

func splitThemes(v string) []string {
	parts := strings.Split(v, ",")
	themes := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			themes = append(themes, t)
		}
	}
	return themes
}
