// Package api serves read-only engine status over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"
	"tradeengine/internal/engine"
	"tradeengine/types"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultTradeLimit = 50
	maxTradeLimit     = 1000
	shutdownGrace     = 5 * time.Second
)

// StatusProvider is satisfied by *engine.Engine.
type StatusProvider interface {
	Status() types.StatusSnapshot
	Trades() []types.TradeRecord
}

type Server struct {
	Router *gin.Engine
	status StatusProvider
	logger *zap.SugaredLogger
}

// NewServer registers the routes. metrics may be nil, in which case
// /metrics is not served.
func NewServer(status StatusProvider, metrics http.Handler, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestID())
	r.Use(requestLogger(logger))

	s := &Server{Router: r, status: status, logger: logger}
	s.routes(metrics)
	return s
}

func (s *Server) routes(metrics http.Handler) {
	s.Router.GET("/health", s.health)
	if metrics != nil {
		s.Router.GET("/metrics", gin.WrapH(metrics))
	}

	api := s.Router.Group("/api")
	{
		api.GET("/status", s.getStatus)
		api.GET("/positions", s.getPositions)
		api.GET("/trades", s.getTrades)
	}
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	st := s.status.Status()
	c.JSON(http.StatusOK, gin.H{"status": "ok", "phase": st.Phase})
}

func (s *Server) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.status.Status())
}

func (s *Server) getPositions(c *gin.Context) {
	positions := s.status.Status().Positions
	if positions == nil {
		positions = []types.PositionSnapshot{}
	}
	c.JSON(http.StatusOK, positions)
}

func (s *Server) getTrades(c *gin.Context) {
	limit := defaultTradeLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxTradeLimit {
			respondError(c, http.StatusBadRequest, "INVALID_LIMIT", "limit must be between 1 and 1000")
			return
		}
		limit = n
	}
	trades := engine.RecentTrades(s.status.Trades(), limit)
	if trades == nil {
		trades = []types.TradeRecord{}
	}
	c.JSON(http.StatusOK, trades)
}

func respondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{
		"code":  code,
		"error": msg,
	})
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("RequestID", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func requestLogger(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugw("http request",
			"request_id", c.GetString("RequestID"),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}
