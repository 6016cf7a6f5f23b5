package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/mouaalim/mouaalim-backend/internal/handlers"
	"github.com/mouaalim/mouaalim-backend/internal/middleware"
)

type RouterConfig struct {
	TutorHandler  *handlers.TutorHandler
	RequestLogger *middleware.RequestLogger
	LessonsDir    string
	ReportsDir    string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cfg.RequestLogger.Handler())
	router.Use(otelgin.Middleware("mouaalim-backend"))

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Request-ID"},
		AllowCredentials: true,
	}))

	router.GET("/health", handlers.HealthCheck)

	// Generated artifacts served to the frontend.
	router.Static("/lessons", cfg.LessonsDir)
	router.Static("/reports", cfg.ReportsDir)

	api := router.Group("/api")
	{
		api.GET("/topics", cfg.TutorHandler.ListTopics)
		api.POST("/summary", cfg.TutorHandler.Summarize)
		api.POST("/qa", cfg.TutorHandler.Ask)
		api.POST("/quiz", cfg.TutorHandler.StartQuiz)
		api.POST("/quiz/answer", cfg.TutorHandler.SubmitQuizAnswer)
		api.POST("/finish", cfg.TutorHandler.Finish)
	}

	return router
}
