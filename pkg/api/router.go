package api

import (
	"housing-data-go/pkg/api/handlers"
	"housing-data-go/pkg/api/middleware"
	"housing-data-go/pkg/chat"
	"housing-data-go/pkg/db"
	"housing-data-go/pkg/pipeline"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps collects the services the router wires into handlers.
type Deps struct {
	DB           *db.DB
	Orchestrator *pipeline.Orchestrator
	ChatRouter   *chat.Router
	Dataset      chat.DatasetStore
	Logger       *zap.Logger
}

func NewRouter(deps Deps) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.ErrorHandler())

	router.GET("/health", handlers.HealthCheck(deps.DB, deps.Dataset))
	router.POST("/users", handlers.CreateUser(deps.DB))

	auth := router.Group("/", middleware.RequireAuth(deps.DB))
	{
		auth.GET("/users/me", handlers.GetCurrentUser())
		auth.POST("/chat", handlers.Chat(deps.ChatRouter))
		auth.GET("/chat_sessions", handlers.ListChatSessions(deps.DB))
		auth.GET("/chat_sessions/:session_id/messages", handlers.ChatHistory(deps.DB))
		auth.DELETE("/chat_sessions/:session_id", handlers.DeleteChatSession(deps.DB))
		auth.GET("/database/info", handlers.DatabaseInfo(deps.Dataset))
		auth.GET("/dashboard/user_stats", handlers.UserDashboardStats(deps.DB, deps.Dataset))

		admin := auth.Group("/", middleware.RequireAdmin())
		{
			admin.POST("/start_scraping", handlers.StartScraping(deps.Orchestrator))
			admin.POST("/stop_scraping", handlers.StopScraping(deps.Orchestrator))
			admin.GET("/scraping_status", handlers.ScrapingStatus(deps.Orchestrator))
			admin.GET("/scraping_logs", handlers.ScrapingLogs(deps.Orchestrator))
			admin.GET("/users", handlers.ListUsers(deps.DB))
			admin.PUT("/users/:id", handlers.UpdateUser(deps.DB))
			admin.DELETE("/users/:id", handlers.DeleteUser(deps.DB))
			admin.PUT("/approve_user/:id", handlers.ApproveUser(deps.DB))
			admin.PUT("/promote_to_admin/:id", handlers.PromoteToAdmin(deps.DB))
			admin.GET("/dashboard/stats", handlers.DashboardStats(deps.DB, deps.Dataset))
		}
	}

	return router
}
