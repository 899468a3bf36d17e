package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ewjiang/mindbridge/internal/common"
	"github.com/ewjiang/mindbridge/internal/config"
	"github.com/ewjiang/mindbridge/internal/httpapi/handlers"
	"github.com/ewjiang/mindbridge/internal/httpapi/middleware"
	"github.com/ewjiang/mindbridge/internal/store/rabbitmq"
	"github.com/ewjiang/mindbridge/internal/store/redisstore"
)

func NewRouter(db *gorm.DB, cfg config.Config, rds *redisstore.Store, pub *rabbitmq.Publisher) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.Use(middleware.RequestID())

	h := handlers.NewHandler(db, cfg, rds, pub)

	r.GET("/ping", h.Ping)

	// users register
	r.POST("/users", h.CreateUser)
	r.GET("/users/:id", h.GetUserByID)

	// auth
	r.POST("/login", h.Login)
	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(cfg.JWTSecret))
	authGroup.GET("/me", h.Me)

	// companion chat (JWT required)
	authGroup.POST("/chat", h.SendChatMessage)
	authGroup.GET("/chat/history", h.GetChatHistory)

	// mood logging
	authGroup.POST("/mood", h.LogMood)
	authGroup.POST("/mood/questionnaire", h.SubmitQuestionnaire)
	authGroup.GET("/mood/history/:user_id", h.GetMoodHistory)
	authGroup.GET("/mood/trends/:user_id", h.GetMoodTrends)

	// risk history and analysis
	authGroup.GET("/risk/high-risk-users", h.GetHighRiskUsers)
	authGroup.GET("/risk/:user_id", h.GetRiskHistory)
	authGroup.GET("/risk/:user_id/analysis", h.GetRiskAnalysis)
	authGroup.GET("/risk/:user_id/current", h.GetCurrentRiskLevel)

	// alerts
	authGroup.GET("/alerts", h.ListAlerts)
	authGroup.GET("/alerts/stats", h.GetAlertStats)
	authGroup.GET("/alerts/:alert_id", h.GetAlert)
	authGroup.PUT("/alerts/:alert_id/resolve", h.ResolveAlert)
	authGroup.PUT("/alerts/:alert_id/reopen", h.ReopenAlert)

	// clinician dashboard
	authGroup.GET("/dashboard", h.GetDashboard)
	authGroup.GET("/dashboard/users", h.GetDashboardUsers)
	authGroup.GET("/dashboard/user/:id", h.GetDashboardUser)

	return r
}
