package routers

import (
	"time"

	"github.com/haierkeys/contract-version-service/internal/app"
	"github.com/haierkeys/contract-version-service/internal/middleware"
	"github.com/haierkeys/contract-version-service/internal/routers/api_router"
	"github.com/haierkeys/contract-version-service/pkg/limiter"

	"github.com/gin-gonic/gin"
	ut "github.com/go-playground/universal-translator"
)

const ingestPath = "/api/contract/ingest"

// newMethodLimiters 入库接口限流，速率为 0 时不限流
func newMethodLimiters(cfg *app.AppConfig) limiter.Face {
	l := limiter.NewMethodLimiter()
	if rule, ok := limiter.RuleFromRate(ingestPath, cfg.Server.IngestRateLimit, cfg.Server.IngestRateBurst); ok {
		l.AddBuckets(rule)
	}
	return l
}

// NewRouter 创建公开 API 路由
func NewRouter(appContainer *app.App, uni *ut.UniversalTranslator) *gin.Engine {
	cfg := appContainer.Config()

	r := gin.New()
	r.Use(middleware.Cors())

	api := r.Group("/api")
	{
		api.Use(middleware.AppInfoWithConfig(app.Name, appContainer.Version().Version))
		api.Use(middleware.TraceMiddlewareWithConfig(cfg.Tracer.Enabled, cfg.Tracer.Header)) // Trace ID 中间件
		api.Use(middleware.RateLimiter(newMethodLimiters(cfg)))
		api.Use(middleware.ContextTimeout(time.Duration(cfg.App.DefaultContextTimeout) * time.Second))
		api.Use(middleware.LangWithTranslator(uni))
		api.Use(middleware.AccessLogWithLogger(appContainer.Logger()))
		api.Use(middleware.RecoveryWithLogger(appContainer.Logger()))

		healthHandler := api_router.NewHealthHandler(appContainer)
		versionHandler := api_router.NewVersionHandler(appContainer)
		contractHandler := api_router.NewContractHandler(appContainer)

		api.GET("/health", healthHandler.Check)
		api.GET("/version", versionHandler.ServerVersion)

		api.POST("/contract/ingest", contractHandler.Ingest)
		api.GET("/contract", contractHandler.Get)
		api.GET("/contracts", contractHandler.List)
		api.GET("/contract/matches", contractHandler.Matches)
		api.GET("/contract/history", contractHandler.History)
		api.GET("/contract/clauses", contractHandler.Clauses)
		api.GET("/contract/diff", contractHandler.Diff)
		api.GET("/contract/archive", contractHandler.Archive)
	}

	r.NoRoute(middleware.NoFound())

	return r
}
