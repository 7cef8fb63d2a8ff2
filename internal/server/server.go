// Package server exposes the match over HTTP and streams its events to
// websocket clients.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/lox/riichiscore/internal/match"
	"github.com/lox/riichiscore/internal/scoring"
)

// Server serves the match API.
type Server struct {
	machine *match.Machine
	calc    scoring.Calculator
	hub     *Hub
	engine  *gin.Engine
	logger  *log.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithCalculator sets the score table used for han/fu requests.
func WithCalculator(calc scoring.Calculator) Option {
	return func(s *Server) { s.calc = calc }
}

// New creates a server for m and subscribes its websocket hub to m.
func New(m *match.Machine, logger *log.Logger, opts ...Option) *Server {
	s := &Server{
		machine: m,
		logger:  logger.WithPrefix("server"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.hub = NewHub(m.Snapshot, logger)
	m.Subscribe(s.hub)

	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), s.requestLogger())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/ws", gin.WrapH(s.hub))
	s.engine.POST("/apply-score", s.handleApplyScore)

	api := s.engine.Group("/api/v1")
	api.GET("/lookup", s.handleLookup)
	api.GET("/match", s.handleGetMatch)

	m := api.Group("/match")
	m.POST("/start", s.handleStart)
	m.POST("/ron", s.handleRon)
	m.POST("/tsumo", s.handleTsumo)
	m.POST("/draw", s.handleDraw)
	m.POST("/riichi", s.handleRiichi)
	m.POST("/advance", s.handleAdvance)
	m.POST("/undo", s.handleUndo)
	m.POST("/reset", s.handleReset)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down HTTP server")
		s.hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("Request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
