package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Services groups what InitRoutes wires into handlers. Checks are run by GET /health.
type Services struct {
	Sellers      SellerService
	Transactions TransactionService
	Analytics    AnalyticsService
	Checks       map[string]HealthCheck
}

// InitRoutes registers the seller, transaction and analytics endpoints on the
// given Gin engine, plus /ping and /health.
func InitRoutes(e *gin.Engine, svc Services, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}

	e.Use(RequestID(), RequestLogger(logger))

	sellers := newSellerHandler(svc.Sellers, logger)
	s := e.Group("/api/sellers")
	s.GET("", sellers.handleGetAll)
	s.GET("/search", sellers.handleSearch)
	s.GET("/:id", sellers.handleGet)
	s.POST("", sellers.handleCreate)
	s.PUT("/:id", sellers.handleUpdate)
	s.DELETE("/:id", sellers.handleDelete)

	transactions := newTransactionHandler(svc.Transactions, logger)
	t := e.Group("/api/transactions")
	t.GET("", transactions.handleGetAll)
	t.GET("/range", transactions.handleRange)
	t.GET("/seller/:sellerId", transactions.handleBySeller)
	t.GET("/:id", transactions.handleGet)
	t.POST("", transactions.handleCreate)
	t.PUT("/:id", transactions.handleUpdate)
	t.DELETE("/:id", transactions.handleDelete)

	analytics := newAnalyticsHandler(svc.Analytics, logger)
	a := e.Group("/api/analytics")
	a.GET("/top-seller", analytics.handleTopSeller)
	a.GET("/low-performers", analytics.handleLowPerformers)
	a.GET("/best-period/:sellerId", analytics.handleBestPeriod)

	e.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	e.GET("/health", health(svc.Checks, logger))
}

func health(checks map[string]HealthCheck, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		report := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
				report[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			report[name] = "ok"
		}

		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		c.JSON(status, gin.H{"status": state, "checks": report})
	}
}
