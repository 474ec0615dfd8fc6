package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	_ "github.com/gleeclub/portal-api/api/swagger"
	"github.com/gleeclub/portal-api/internal/handler"
	"github.com/gleeclub/portal-api/internal/middleware"
	"github.com/gleeclub/portal-api/internal/models"
	"github.com/gleeclub/portal-api/internal/service"
	"github.com/gleeclub/portal-api/pkg/config"
	"github.com/gleeclub/portal-api/pkg/logger"
	corsmiddleware "github.com/gleeclub/portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/gleeclub/portal-api/pkg/middleware/requestid"
)

type routerDeps struct {
	auth    middleware.TokenValidator
	grades  *service.GradeService
	reports *service.ReportService
	metrics *service.MetricsService
	checks  map[string]handler.Pinger
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics))

	system := handler.NewMetricsHandler(deps.metrics, deps.checks)
	r.GET("/health", system.Health)
	r.GET("/ready", system.Ready)
	r.GET("/metrics", system.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleInstructor)
	secured := api.Group("")
	secured.Use(middleware.JWT(deps.auth))

	grades := handler.NewGradeHandler(deps.grades, logr.Named("grades.http"))
	terms := secured.Group("/grades/terms/:term")
	terms.GET("", staff, grades.Calculate)
	terms.GET("/students/:studentId", middleware.RBAC(string(models.RoleAdmin), string(models.RoleInstructor), middleware.AllowSelf), grades.StudentDetail)
	terms.GET("/summaries", staff, grades.CachedSummaries)
	terms.POST("/summaries", staff, grades.Commit)

	secured.GET("/system/metrics", middleware.RequireRoles(models.RoleAdmin), system.Snapshot)

	if deps.reports != nil {
		reports := handler.NewReportHandler(deps.reports)
		api.GET("/reports/download/:token", reports.Download)
		secured.POST("/reports/grades", staff, reports.Create)
		secured.GET("/reports/:id", staff, reports.Status)
	}

	return r
}
