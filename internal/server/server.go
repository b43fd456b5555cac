// Package server exposes the Telegram webhook and a health check over HTTP.
package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SecretHeader carries the webhook secret on every Telegram delivery.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookPath is where Telegram posts updates.
const WebhookPath = "/telegram/webhook"

// Pinger reports whether storage is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dispatcher accepts updates for asynchronous handling.
type Dispatcher interface {
	Dispatch(ctx context.Context, u tgbotapi.Update)
}

// Config configures the HTTP server.
type Config struct {
	Addr   string
	Secret string // empty disables the secret check
}

// Server routes webhook deliveries to a Dispatcher.
type Server struct {
	cfg        Config
	db         Pinger
	dispatcher Dispatcher
	logger     *zap.Logger
	engine     *gin.Engine

	// ctx outlives individual requests so handling continues after the
	// webhook has been acknowledged.
	ctx context.Context
}

func New(ctx context.Context, cfg Config, db Pinger, d Dispatcher, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{cfg: cfg, db: db, dispatcher: d, logger: logger, ctx: ctx}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())
	r.GET("/healthz", s.health)
	r.POST(WebhookPath, s.requireSecret(), s.webhook)
	s.engine = r
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	resp := gin.H{"status": "ok", "db": "ok", "timestamp": time.Now().Unix()}
	if err := s.db.Ping(c.Request.Context()); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		resp["status"] = "degraded"
		resp["db"] = "unreachable"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) webhook(c *gin.Context) {
	var u tgbotapi.Update
	if err := c.ShouldBindJSON(&u); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid update"})
		return
	}
	s.dispatcher.Dispatch(s.ctx, u)
	c.Status(http.StatusOK)
}

func (s *Server) requireSecret() gin.HandlerFunc {
	want := []byte(s.cfg.Secret)
	return func(c *gin.Context) {
		if len(want) == 0 {
			c.Next()
			return
		}
		got := []byte(c.GetHeader(SecretHeader))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "bad secret"})
			return
		}
		c.Next()
	}
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)

		start := time.Now()
		c.Next()

		s.logger.Debug("http request",
			zap.String("request_id", id),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
