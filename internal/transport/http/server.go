package http

import (
	"time"

	"github.com/gin-gonic/gin"

	appsvc "learnhub/internal/app"
	"learnhub/internal/bootstrap"
	"learnhub/internal/cache"
	"learnhub/internal/model"
	rabbitmqClient "learnhub/internal/platform/rabbitmq"
	"learnhub/internal/repository"
	"learnhub/internal/transport/http/handler"
	"learnhub/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(middleware.RequestLogger(app.Logger), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	userRepo := repository.NewUserRepository(app.MySQL)
	sessionRepo := repository.NewChatSessionRepository(app.MySQL)
	messageRepo := repository.NewChatMessageRepository(app.MySQL)
	quizRepo := repository.NewQuizRepository(app.MySQL)
	statsRepo := repository.NewStatsRepository(app.MySQL)
	eventRepo := repository.NewUsageEventRepository(app.MySQL)

	historyCache := cache.NewHistoryCache(
		app.Redis,
		time.Duration(app.Config.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(app.Config.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)
	statsCache := cache.NewStatsCache(
		app.Redis,
		time.Duration(app.Config.Stats.SnapshotTTLSeconds)*time.Second,
	)
	eventPublisher := rabbitmqClient.NewEventPublisher(app.MQConn, app.Config.RabbitMQ.UsageEventQueue)

	authService := appsvc.NewAuthService(
		userRepo,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireMinute)*time.Minute,
	)
	chatService := appsvc.NewChatService(
		userRepo,
		sessionRepo,
		messageRepo,
		app.Gateway,
		eventPublisher,
		historyCache,
		app.Config.AI.MaxContextMessage,
		app.Logger,
	)
	quizService := appsvc.NewQuizService(
		userRepo,
		quizRepo,
		app.Gateway,
		eventPublisher,
		appsvc.QuizDefaults{
			QuestionCount: app.Config.Quiz.DefaultQuestionCount,
			Difficulty:    app.Config.Quiz.DefaultDifficulty,
		},
		app.Logger,
	)
	statsService := appsvc.NewStatsService(
		statsRepo,
		eventRepo,
		quizRepo,
		statsCache,
		app.Config.Stats.TrendDays,
		app.Logger,
	)

	authHandler := handler.NewAuthHandler(authService)
	chatHandler := handler.NewChatHandler(chatService)
	quizHandler := handler.NewQuizHandler(quizService, statsService)
	analyticsHandler := handler.NewAnalyticsHandler(statsService)

	authJWT := middleware.AuthJWT(app.Config.Auth.JWTSecret)

	v1 := router.Group("/api/v1")

	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", authJWT, authHandler.Me)

	chatGroup := v1.Group("/chat")
	chatGroup.Use(authJWT)
	chatGroup.POST("/sessions", chatHandler.CreateSession)
	chatGroup.GET("/sessions", chatHandler.ListSessions)
	chatGroup.POST("/sessions/:id/messages", chatHandler.PostMessage)
	chatGroup.GET("/sessions/:id/messages", chatHandler.GetHistory)
	chatGroup.POST("/sessions/:id/material", chatHandler.AttachMaterial)

	quizGroup := v1.Group("/quiz")
	quizGroup.GET("/shared/:token", quizHandler.Shared)
	quizGroup.Use(authJWT)
	quizGroup.POST("/sessions", quizHandler.Start)
	quizGroup.GET("/sessions", quizHandler.ListHistory)
	quizGroup.GET("/sessions/:id", quizHandler.Get)
	quizGroup.POST("/sessions/:id/answers", quizHandler.Answer)
	quizGroup.POST("/sessions/:id/complete", quizHandler.Complete)
	quizGroup.POST("/sessions/:id/abandon", quizHandler.Abandon)
	quizGroup.POST("/sessions/:id/share", quizHandler.Share)

	analyticsGroup := v1.Group("/analytics")
	analyticsGroup.Use(authJWT)
	analyticsGroup.GET("/users/:id", analyticsHandler.UserStats)
	analyticsGroup.GET("/system", middleware.RequireRole(model.RoleAdmin), analyticsHandler.SystemStats)

	return router
}
