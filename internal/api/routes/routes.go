// Package routes wires the HTTP surface: migrations, services, handlers and
// the middleware chain.
package routes

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/ogtalent/dispatch/internal/api/handlers"
	"github.com/ogtalent/dispatch/internal/api/middleware"
	"github.com/ogtalent/dispatch/internal/config"
	"github.com/ogtalent/dispatch/internal/metrics"
	"github.com/ogtalent/dispatch/internal/models"
	"github.com/ogtalent/dispatch/internal/routing"
	"github.com/ogtalent/dispatch/internal/services"
)

// Services groups the wired service layer so the caller (cmd/api, tests) can
// reach the pieces that also run outside a request, like the cron sweep.
type Services struct {
	Audit       *services.AuditService
	Alerts      *services.AlertService
	Agents      *services.AgentService
	DNS         *services.DNSService
	Submissions *services.SubmissionService
	Screening   *services.ScreeningService
	Routing     *services.RoutingService
	Auth        *services.AuthService
}

// Register migrates the schema, wires services and mounts every route.
func Register(router *gin.Engine, db *gorm.DB, cfg config.Config, rules *routing.Rules) (*Services, error) {
	if err := db.AutoMigrate(
		&models.Submission{},
		&models.DNSEntry{},
		&models.AgentStatus{},
		&models.AuditEvent{},
		&models.Notification{},
		&models.User{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	audit := services.NewAuditService(db, cfg.AuditLogPath)
	alerts := services.NewAlertService(db, cfg.EscalationURLs)
	agents := services.NewAgentService(db, alerts)
	dns := services.NewDNSService(db)
	submissions := services.NewSubmissionService(db, audit, dns)
	screening := services.NewScreeningService(submissions, audit, dns, 0)
	routingSvc := services.NewRoutingService(rules, agents, audit, alerts)
	auth := services.NewAuthService(db, cfg)

	svcs := &Services{
		Audit:       audit,
		Alerts:      alerts,
		Agents:      agents,
		DNS:         dns,
		Submissions: submissions,
		Screening:   screening,
		Routing:     routingSvc,
		Auth:        auth,
	}

	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Recovery(cfg.Environment != "production"))

	registry := prometheus.NewRegistry()
	metrics.Register(registry)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	authHandler := handlers.NewAuthHandler(auth)
	routingHandler := handlers.NewRoutingHandler(routingSvc)
	submissionHandler := handlers.NewSubmissionHandler(submissions)
	screeningHandler := handlers.NewScreeningHandler(screening)
	dnsHandler := handlers.NewDNSHandler(dns)
	agentHandler := handlers.NewAgentHandler(agents)
	auditHandler := handlers.NewAuditHandler(audit)
	notificationHandler := handlers.NewNotificationHandler(alerts)

	api := router.Group("/api/v1")
	api.GET("/health", handlers.Health)
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(auth))
	{
		protected.GET("/auth/me", authHandler.Me)
		protected.POST("/auth/change-password", authHandler.ChangePassword)

		protected.POST("/routing/decide", routingHandler.Decide)
		protected.GET("/routing/rules", routingHandler.Rules)

		protected.POST("/submissions/check", submissionHandler.Check)
		protected.POST("/submissions", submissionHandler.CheckAndRecord)
		protected.GET("/submissions/:consultant_id", submissionHandler.History)

		protected.POST("/screening/filters", screeningHandler.Screen)
		protected.POST("/screening/cannibalization", screeningHandler.Cannibalization)

		protected.GET("/dns", dnsHandler.List)
		protected.POST("/dns", dnsHandler.Create)
		protected.DELETE("/dns/:uuid", dnsHandler.Delete)

		protected.GET("/agents", agentHandler.List)
		protected.GET("/agents/:name", agentHandler.Get)
		protected.POST("/agents/:name/heartbeat", agentHandler.Heartbeat)

		protected.GET("/audit", auditHandler.Recent)
		protected.GET("/audit/subject/:id", auditHandler.ForSubject)
		protected.GET("/audit/event/:uuid", auditHandler.Get)

		protected.GET("/notifications", notificationHandler.List)
		protected.POST("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.POST("/notifications/read-all", notificationHandler.MarkAllAsRead)
	}

	return svcs, nil
}
