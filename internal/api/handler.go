package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"stock-alert-service/internal/service"
	"stock-alert-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// Pinger is a dependency checked by the readiness probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	engine               *service.AlertEngine
	reconcileConcurrency int
	deps                 map[string]Pinger
	logger               *zap.Logger
}

// NewHandler creates a new HTTP handler. deps are pinged by /ready.
func NewHandler(engine *service.AlertEngine, reconcileConcurrency int, deps map[string]Pinger) *Handler {
	return &Handler{
		engine:               engine,
		reconcileConcurrency: reconcileConcurrency,
		deps:                 deps,
		logger:               util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(util.ServiceName))
	router.Use(prometheusMiddleware())
	router.Use(requestLogger(h.logger))

	router.GET("/", h.index)
	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		products := v1.Group("/products")
		products.GET("", h.listProducts)
		products.GET("/low-stock", h.lowStockProducts)
		products.GET("/:id", h.getProduct)
		products.POST("", h.createProduct)
		products.PUT("/:id", h.updateProduct)
		products.PATCH("/:id/stock", h.updateStock)
		products.PATCH("/:id/threshold", h.updateThreshold)
		products.DELETE("/:id", h.deleteProduct)

		alerts := v1.Group("/alerts")
		alerts.GET("", h.listAlerts)
		alerts.GET("/unresolved", h.unresolvedAlerts)
		alerts.GET("/product/:productId", h.alertsForProduct)
		alerts.PATCH("/:id/resolve", h.resolveAlert)
		alerts.DELETE("/:id", h.deleteAlert)

		v1.POST("/admin/reconcile", h.reconcile)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "Route not found",
		})
	})
}

// index describes the API
func (h *Handler) index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Inventory & Stock Alert API",
		"endpoints": gin.H{
			"products": "/api/v1/products",
			"alerts":   "/api/v1/alerts",
		},
	})
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{}
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			status = http.StatusServiceUnavailable
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not ready"
	}
	c.JSON(status, gin.H{
		"status": state,
		"checks": checks,
		"time":   time.Now().Unix(),
	})
}

// reconcile repairs alert drift for one product (?product_id=) or all of them
func (h *Handler) reconcile(c *gin.Context) {
	if productID := c.Query("product_id"); productID != "" {
		res, err := h.engine.ReconcileProduct(c.Request.Context(), productID)
		if err != nil {
			h.fail(c, err, "Product not found")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":      true,
			"data":         res.Product,
			"alert":        res.Alert,
			"alert_action": res.AlertAction,
		})
		return
	}

	report, err := h.engine.ReconcileAll(c.Request.Context(), h.reconcileConcurrency)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    report,
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			path,
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			path,
			status,
		).Inc()
	}
}

// requestLogger logs one line per request
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
