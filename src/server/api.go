package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"product-filter/src/interfaces"
	"product-filter/src/logger"
	"product-filter/src/metrics"
	"product-filter/src/models"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// Ports
// -----------------------------------------------------------------------------

// Searcher runs one search request through the pipeline.
type Searcher interface {
	Search(ctx context.Context, req models.MSearchRequest) (*models.MSearchResponse, error)
}

// TrendReader analyzes the stored price history of a query.
type TrendReader interface {
	AnalyzeTrend(ctx context.Context, query string, windowDays int) models.MTrendResult
}

// PriceUpdater runs the recommended-price job on demand.
type PriceUpdater interface {
	RunOnce(ctx context.Context) []models.MPriceUpdateResult
	UpdateCategory(ctx context.Context, category string) []models.MPriceUpdateResult
}

// Pinger reports the health of a backing service.
type Pinger interface {
	Ping(ctx context.Context) string
}

// Services are the handlers' collaborators. Everything but Searcher is
// optional; a missing service answers 503 on its routes.
type Services struct {
	Searcher   Searcher
	Trends     TrendReader
	Prices     PriceUpdater
	Store      interfaces.IProductStore
	Cache      interfaces.IPriceCache
	Categories func() []string
	Metrics    *metrics.Registry
}

// -----------------------------------------------------------------------------
// APIServer
// -----------------------------------------------------------------------------

type APIServer struct {
	Config   *models.MConfig
	Logger   *logger.Logger
	services Services
	engine   *gin.Engine
	http     *http.Server

	// WebSocket clients
	clients     map[*Client]struct{}
	broadcast   chan *models.MPipelineEvent
	register    chan *Client
	unregister  chan *Client
	replay      chan replayRequest
	quit        chan struct{}
	hubOnce     sync.Once
	stopOnce    sync.Once
	connections atomic.Int32

	// Latest event per category, replayed to new subscribers
	latest     map[string]*models.MPipelineEvent
	stateMutex sync.RWMutex
	started    time.Time
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewAPIServer(cfg *models.MConfig, services Services, log *logger.Logger) *APIServer {
	if !strings.EqualFold(cfg.LogLevel, "DEBUG") {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &APIServer{
		Config:   cfg,
		Logger:   log,
		services: services,
		engine:   gin.New(),
		clients:  make(map[*Client]struct{}),
		// Buffered so a slow hub never stalls a search run
		broadcast:  make(chan *models.MPipelineEvent, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		replay:     make(chan replayRequest),
		quit:       make(chan struct{}),
		latest:     make(map[string]*models.MPipelineEvent),
		started:    time.Now(),
	}

	s.engine.Use(gin.Recovery(), s.requestLogger(), cors())
	s.setupRoutes()

	s.http = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// -----------------------------------------------------------------------------

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *APIServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Logger.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Millisecond))
	}
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *APIServer) setupRoutes() {
	s.engine.GET("/health", s.getHealth)

	products := s.engine.Group("/products")
	products.POST("/search", s.postSearch)
	products.GET("/health", s.getHealth)
	products.GET("/stats/:category", s.getQueryStats)
	products.GET("/trend", s.getTrend)
	products.POST("/price-update", s.postPriceUpdate)
	products.DELETE("/cache/:category", s.deleteCache)

	if s.services.Metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.services.Metrics.Handler()))
	}

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// Handler exposes the router, mainly for tests.
func (s *APIServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *APIServer) Start() error {
	s.Logger.Info("Starting HTTP server on %s", s.http.Addr)
	s.startHub()

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *APIServer) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = s.http.Shutdown(ctx)
		close(s.quit)
	})
	return err
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *APIServer) postSearch(c *gin.Context) {
	var req models.MSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	resp, err := s.services.Searcher.Search(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, "search", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getQueryStats(c *gin.Context) {
	if s.services.Store == nil {
		unavailable(c, "storage")
		return
	}
	category := c.Param("category")
	if !s.knownCategory(category) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown category %q", category)})
		return
	}

	stats, err := s.services.Store.GetQueryStats(c.Request.Context(), category)
	if err != nil {
		s.writeError(c, "query stats", err)
		return
	}
	if stats == nil {
		stats = []models.MQueryStats{}
	}
	c.JSON(http.StatusOK, gin.H{"category": category, "queries": stats})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getTrend(c *gin.Context) {
	if s.services.Trends == nil {
		unavailable(c, "trend analysis")
		return
	}
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter is required"})
		return
	}
	windowDays := queryInt(c, "window_days", 0)
	if windowDays < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "window_days must not be negative"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query": query,
		"trend": s.services.Trends.AnalyzeTrend(c.Request.Context(), query, windowDays),
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) postPriceUpdate(c *gin.Context) {
	if s.services.Prices == nil {
		unavailable(c, "price update")
		return
	}

	var results []models.MPriceUpdateResult
	if category := c.Query("category"); category != "" {
		if !s.knownCategory(category) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown category %q", category)})
			return
		}
		results = s.services.Prices.UpdateCategory(c.Request.Context(), category)
	} else {
		results = s.services.Prices.RunOnce(c.Request.Context())
	}
	if results == nil {
		results = []models.MPriceUpdateResult{}
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// -----------------------------------------------------------------------------

func (s *APIServer) deleteCache(c *gin.Context) {
	if s.services.Cache == nil {
		unavailable(c, "price cache")
		return
	}
	category := c.Param("category")
	if !s.knownCategory(category) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown category %q", category)})
		return
	}

	n, err := s.services.Cache.ClearCategory(c.Request.Context(), category)
	if err != nil {
		s.writeError(c, "cache clear", err)
		return
	}
	s.Logger.Info("Cleared %d cached prices for %s", n, category)
	c.JSON(http.StatusOK, gin.H{"category": category, "deleted": n})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	var latest int64
	for _, ev := range s.latest {
		if ev.Timestamp > latest {
			latest = ev.Timestamp
		}
	}
	s.stateMutex.RUnlock()

	services := gin.H{}
	if p, ok := s.services.Cache.(Pinger); ok {
		services["redis"] = p.Ping(c.Request.Context())
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"service":        s.Config.Name,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"connections":    s.connectionCount(),
		"latest_update":  latest,
		"services":       services,
	})
}
