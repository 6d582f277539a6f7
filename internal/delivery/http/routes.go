package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/labelpadega/backend/config"
	"github.com/labelpadega/backend/internal/logger"
)

// SetupRouter creates and configures the Gin router. A nil limiter disables
// per-IP rate limiting.
func SetupRouter(cfg *config.Config, handler *Handler, limiter *IPRateLimiter, log *zap.Logger) *gin.Engine {
	log = logger.OrNop(log)
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = cfg.Server.MaxUploadBytes

	router.Use(Recovery(log))
	router.Use(RequestLogger(log))
	router.Use(Metrics())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	if limiter != nil {
		v1.Use(limiter.Middleware())
	}
	{
		products := v1.Group("/products")
		{
			products.GET("/barcode/:barcode", handler.LookupBarcode)
			products.GET("/search", handler.SearchProducts)
			products.POST("/report", handler.ProductReport)
		}

		nutrition := v1.Group("/nutrition")
		{
			nutrition.GET("/search", handler.SearchNutrition)
			nutrition.POST("/search", handler.SearchNutrition)
		}

		v1.POST("/analysis/:kind", handler.Analyze)

		regulations := v1.Group("/regulations")
		{
			regulations.POST("/check", handler.CheckRegulations)
			regulations.POST("/compliance", handler.CheckCompliance)
		}

		v1.POST("/labels/analyze", handler.AnalyzeLabel)
		v1.POST("/foods/analyze", handler.AnalyzeFood)

		medicines := v1.Group("/medicines")
		{
			medicines.POST("/extract", handler.ExtractMedicineText)
			medicines.POST("/analyze", handler.AnalyzeMedicine)
		}

		sessions := v1.Group("/sessions")
		{
			sessions.POST("", handler.CreateSession)
			sessions.GET("/:id", handler.GetSession)
			sessions.DELETE("/:id", handler.DeleteSession)
			sessions.PUT("/:id/profile", handler.UpdateProfile)
			sessions.POST("/:id/chat", handler.Chat)
			sessions.DELETE("/:id/history", handler.ClearHistory)
			sessions.GET("/:id/export", handler.ExportSession)
		}

		v1.DELETE("/cache", handler.ClearCache)
	}

	return router
}
