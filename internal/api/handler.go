package api

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"inventory-ledger/internal/auth"
	"inventory-ledger/internal/forecast"
	"inventory-ledger/internal/ledger"
	"inventory-ledger/internal/models"
	"inventory-ledger/internal/service"
	"inventory-ledger/internal/store"
	"inventory-ledger/internal/util"
	"inventory-ledger/internal/voice"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	sessionKey   = "session"
	maxAudioSize = 10 << 20
)

// Defaults are applied when a request leaves a parameter out
type Defaults struct {
	LowStockThreshold int
	ForecastPeriods   int
}

// Handler contains HTTP handlers
type Handler struct {
	guard       *auth.Guard
	inventory   *service.InventoryService
	forecasts   *service.ForecastService
	reports     *service.ReportService
	voiceSearch *service.VoiceSearchService
	defaults    Defaults
	logger      *zap.Logger
}

// NewHandler creates a new HTTP handler. voiceSearch may be nil when no
// transcription endpoint is configured.
func NewHandler(
	guard *auth.Guard,
	inventory *service.InventoryService,
	forecasts *service.ForecastService,
	reports *service.ReportService,
	voiceSearch *service.VoiceSearchService,
	defaults Defaults,
) *Handler {
	return &Handler{
		guard:       guard,
		inventory:   inventory,
		forecasts:   forecasts,
		reports:     reports,
		voiceSearch: voiceSearch,
		defaults:    defaults,
		logger:      util.Named("api"),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(h.sessionMiddleware())
	{
		v1.POST("/login", h.login)
		v1.POST("/logout", h.logout)

		v1.GET("/products", h.listProducts)
		v1.GET("/products/search", h.searchProducts)
		v1.GET("/products/low-stock", h.lowStock)
		v1.GET("/products/sorted", h.sortedProducts)
		v1.POST("/products", h.addProduct)
		v1.PUT("/products/:name", h.updateProduct)
		v1.DELETE("/products/:name", h.deleteProduct)

		v1.POST("/sales", h.sell)
		v1.GET("/sales", h.listSales)
		v1.GET("/transactions", h.listTransactions)

		v1.GET("/forecast/:name", h.forecast)
		v1.GET("/forecast/:name/chart", h.forecastChart)

		v1.GET("/export/inventory.csv", h.exportCSV)
		v1.GET("/export/inventory.pdf", h.exportPDF)

		v1.POST("/voice-search", h.voiceSearchHandler)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// sessionMiddleware resolves the bearer token into the request's session
func (h *Handler) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := h.guard.Resolve(c.Request.Context(), bearerToken(c))
		if err != nil {
			h.logger.Error("Failed to resolve session", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":   "Failed to resolve session",
				"details": err.Error(),
			})
			return
		}
		c.Set(sessionKey, sess)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func session(c *gin.Context) *auth.Session {
	if v, ok := c.Get(sessionKey); ok {
		if sess, ok := v.(*auth.Session); ok {
			return sess
		}
	}
	return auth.Anonymous()
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password"`
}

// login handles credential checks and issues a session token
func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	sess, err := h.guard.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			util.LoginsTotal.WithLabelValues("invalid").Inc()
		} else {
			util.LoginsTotal.WithLabelValues("error").Inc()
		}
		h.writeError(c, err)
		return
	}

	util.LoginsTotal.WithLabelValues("ok").Inc()
	h.logger.Info("Login", zap.String("principal", sess.Principal), zap.String("role", string(sess.Role)))
	c.JSON(http.StatusOK, gin.H{
		"token":     sess.Token,
		"principal": sess.Principal,
		"role":      sess.Role,
		"message":   "Logged in as " + sess.Principal,
	})
}

// logout drops the caller's session
func (h *Handler) logout(c *gin.Context) {
	if err := h.guard.Logout(c.Request.Context(), bearerToken(c)); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.inventory.ViewProducts(c.Request.Context(), session(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) searchProducts(c *gin.Context) {
	products, err := h.inventory.SearchByCategory(c.Request.Context(), session(c), c.Query("category"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) lowStock(c *gin.Context) {
	threshold := h.defaults.LowStockThreshold
	if raw := c.Query("threshold"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "Invalid threshold", err)
			return
		}
		threshold = n
	}

	products, err := h.inventory.LowStock(c.Request.Context(), session(c), threshold)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"threshold": threshold, "products": products})
}

func (h *Handler) sortedProducts(c *gin.Context) {
	products, err := h.inventory.SortProducts(c.Request.Context(), session(c),
		c.DefaultQuery("by", ledger.SortByName), c.DefaultQuery("order", ledger.OrderAsc))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

type productRequest struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	Stock    int             `json:"stock"`
}

func (r productRequest) product() models.Product {
	return models.Product{
		Name:     strings.TrimSpace(r.Name),
		Price:    r.Price,
		Category: strings.TrimSpace(r.Category),
		Stock:    r.Stock,
	}
}

func (h *Handler) addProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	p, err := h.inventory.AddProduct(c.Request.Context(), session(c), req.product())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"product": p,
		"message": "Product '" + p.Name + "' added",
	})
}

func (h *Handler) updateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	req.Name = c.Param("name")

	p, err := h.inventory.UpdateProduct(c.Request.Context(), session(c), req.product())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"product": p,
		"message": "Product '" + p.Name + "' updated",
	})
}

func (h *Handler) deleteProduct(c *gin.Context) {
	name := c.Param("name")
	if err := h.inventory.DeleteProduct(c.Request.Context(), session(c), name); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product '" + name + "' deleted"})
}

type sellRequest struct {
	ProductName string `json:"product_name" binding:"required"`
	Quantity    int    `json:"quantity"`
}

func (h *Handler) sell(c *gin.Context) {
	var req sellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	receipt, err := h.inventory.Sell(c.Request.Context(), session(c), req.ProductName, req.Quantity)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"sale":    receipt,
		"message": receipt.Message(),
	})
}

func (h *Handler) listSales(c *gin.Context) {
	sales, err := h.inventory.ViewSales(c.Request.Context(), session(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sales": sales})
}

func (h *Handler) listTransactions(c *gin.Context) {
	txs, err := h.inventory.ViewTransactions(c.Request.Context(), session(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

func (h *Handler) periods(c *gin.Context) (int, bool) {
	raw := c.Query("periods")
	if raw == "" {
		return h.defaults.ForecastPeriods, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, "Invalid periods", err)
		return 0, false
	}
	return n, true
}

func (h *Handler) forecast(c *gin.Context) {
	periods, ok := h.periods(c)
	if !ok {
		return
	}

	f, err := h.forecasts.Predict(c.Request.Context(), session(c), c.Param("name"), periods)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (h *Handler) forecastChart(c *gin.Context) {
	periods, ok := h.periods(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if _, err := h.forecasts.RenderChart(c.Request.Context(), session(c), &buf, c.Param("name"), periods); err != nil {
		h.writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="sales_prediction.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (h *Handler) exportCSV(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.reports.ExportInventoryCSV(c.Request.Context(), session(c), &buf); err != nil {
		h.writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="inventory.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *Handler) exportPDF(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.reports.ExportInventoryPDF(c.Request.Context(), session(c), &buf); err != nil {
		h.writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="inventory_report.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (h *Handler) voiceSearchHandler(c *gin.Context) {
	if h.voiceSearch == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Voice search is not configured"})
		return
	}

	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxAudioSize)
	result, err := h.voiceSearch.Search(c.Request.Context(), session(c), body)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func badRequest(c *gin.Context, msg string, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   msg,
		"details": err.Error(),
	})
}

// writeError maps domain errors to HTTP statuses
func (h *Handler) writeError(c *gin.Context, err error) {
	status, msg := http.StatusInternalServerError, "Internal error"

	switch {
	case errors.Is(err, auth.ErrAuthRequired):
		status, msg = http.StatusUnauthorized, "Please login first"
	case errors.Is(err, auth.ErrAdminRequired):
		status, msg = http.StatusForbidden, "Admin access required"
	case errors.Is(err, auth.ErrInvalidCredentials):
		status, msg = http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, ledger.ErrDuplicateProduct):
		status, msg = http.StatusConflict, "Product already exists"
	case errors.Is(err, ledger.ErrProductNotFound):
		status, msg = http.StatusNotFound, "Product not found"
	case errors.Is(err, ledger.ErrInsufficientStock):
		status, msg = http.StatusConflict, "Insufficient stock"
	case errors.Is(err, forecast.ErrNoSalesHistory):
		status, msg = http.StatusNotFound, "No sales data for this product"
	case errors.Is(err, voice.ErrTranscription):
		status, msg = http.StatusBadGateway, "Could not understand audio"
	case errors.Is(err, ledger.ErrInvalidProduct),
		errors.Is(err, ledger.ErrInvalidQuantity),
		errors.Is(err, ledger.ErrInvalidSort),
		errors.Is(err, forecast.ErrInvalidHorizon):
		status, msg = http.StatusBadRequest, "Invalid request"
	case errors.Is(err, store.ErrPersistence):
		msg = "Failed to save changes"
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}

	c.JSON(status, gin.H{
		"error":   msg,
		"details": err.Error(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
