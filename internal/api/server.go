// Package api serves the diagnosis engine and scan history over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/dmitriimaksimovdevelop/cocoscan/internal/orchestrator"
)

// Options tunes the HTTP surface.
type Options struct {
	// DiagnoseRate and DiagnoseBurst bound diagnosis throughput across clients.
	DiagnoseRate  rate.Limit
	DiagnoseBurst int
	// MaxUploadBytes caps the multipart image size.
	MaxUploadBytes int64
	// UploadDir keeps uploaded images on disk when set; otherwise uploads are
	// diagnosed from memory.
	UploadDir string
}

// DefaultOptions returns production defaults: 2 diagnoses per second, burst 4,
// 10 MiB uploads.
func DefaultOptions() Options {
	return Options{
		DiagnoseRate:   2,
		DiagnoseBurst:  4,
		MaxUploadBytes: 10 << 20,
	}
}

// Server owns the gin router.
type Server struct {
	engine  *orchestrator.Engine
	logger  *slog.Logger
	opts    Options
	limiter *rate.Limiter
	router  *gin.Engine
}

// New builds the router. A nil logger selects slog.Default().
func New(engine *orchestrator.Engine, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultOptions().MaxUploadBytes
	}
	if opts.DiagnoseRate == 0 {
		opts.DiagnoseRate = rate.Inf
	}
	s := &Server{
		engine:  engine,
		logger:  logger,
		opts:    opts,
		limiter: rate.NewLimiter(opts.DiagnoseRate, max(opts.DiagnoseBurst, 1)),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(s.logger), cors())
	router.MaxMultipartMemory = s.opts.MaxUploadBytes

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "cocoscan",
			"history": s.engine.Repository() != nil,
		})
	})

	api := router.Group("/api")
	{
		api.POST("/diagnose", rateLimit(s.limiter), s.handleDiagnose)

		api.GET("/scans", s.handleListScans)
		api.DELETE("/scans/:id", s.handleDeleteScan)
		api.GET("/statistics", s.handleStatistics)

		api.GET("/diseases", s.handleListDiseases)
		api.GET("/diseases/:id", s.handleGetDisease)
		api.GET("/treatment", s.handleTreatment)
		api.GET("/progression/:stage", s.handleProgression)
	}
	return router
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// rateLimit rejects requests once the shared token bucket is empty.
func rateLimit(l *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many diagnosis requests, retry shortly"})
			return
		}
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}
