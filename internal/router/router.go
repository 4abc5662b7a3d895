package router

import (
	"net/http"

	"model-abtest/internal/config"
	"model-abtest/internal/handler"
	"model-abtest/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"
)

func SetupRouter(svcCtx *service.ServiceContext, cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	r.Use(handler.CORS())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))

	var limiter *rate.Limiter
	if cfg.RateLimit.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)
	}

	experimentHandler := handler.NewExperimentHandler(svcCtx.Experiments, svcCtx.Evaluator)

	// API路由
	api := r.Group("/api", handler.RateLimit(limiter), handler.RequireOrg())
	{
		// 实验相关
		experiments := api.Group("/experiments")
		{
			experiments.GET("", experimentHandler.ListExperiments)
			experiments.GET("/:id", experimentHandler.GetExperiment)
			experiments.GET("/:id/results", experimentHandler.GetResults)

			experiments.POST("", handler.RequireAdmin(), experimentHandler.CreateExperiment)
			experiments.PATCH("/:id", handler.RequireAdmin(), experimentHandler.UpdateExperiment)
			experiments.DELETE("/:id", handler.RequireAdmin(), experimentHandler.DeleteExperiment)
		}
	}

	return r
}
