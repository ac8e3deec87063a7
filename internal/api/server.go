package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danmuck/wadispatch/internal/auth"
	"github.com/danmuck/wadispatch/internal/delivery"
	"github.com/danmuck/wadispatch/internal/observability"
	"github.com/danmuck/wadispatch/internal/session"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const Version = "0.1.0"

// Deliverer runs one message delivery.
type Deliverer interface {
	Deliver(ctx context.Context, req delivery.Request) (delivery.Receipt, error)
}

// StatusSource reports the session manager state for /ready.
type StatusSource interface {
	Status() session.Status
}

type Config struct {
	// ID labels request metrics and health output.
	ID          string
	CORSOrigins []string
	// APIToken enables bearer auth on the message routes when non-empty.
	APIToken string
}

type Server struct {
	cfg       Config
	deliverer Deliverer
	status    StatusSource
	router    *gin.Engine
	started   time.Time
}

func New(cfg Config, deliverer Deliverer, status StatusSource) *Server {
	if cfg.ID == "" {
		cfg.ID = "wadispatch"
	}
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestID())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(cfg.ID))
	r.Use(cors.New(cors.Config{
		AllowOrigins:  normalizeOrigins(cfg.CORSOrigins),
		AllowMethods:  []string{"GET", "POST"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", observability.HeaderRequestID},
		ExposeHeaders: []string{observability.HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		cfg:       cfg,
		deliverer: deliverer,
		status:    status,
		router:    r,
		started:   time.Now(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.started).String(),
			"id":      s.cfg.ID,
			"version": Version,
		})
	})
	s.router.GET("/ready", s.handleReady)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api")
	if s.cfg.APIToken != "" {
		api.Use(auth.RequireBearer(auth.StaticToken{Token: s.cfg.APIToken}))
	}
	api.POST("/messages", s.handleSendMessage)
	// Path used by existing callers of the earlier function app.
	api.POST("/mensajes-whatsapp", s.handleSendMessage)
}

func (s *Server) handleReady(c *gin.Context) {
	body := gin.H{
		"ready":   true,
		"uptime":  time.Since(s.started).String(),
		"id":      s.cfg.ID,
		"version": Version,
	}
	if s.status != nil {
		st := s.status.Status()
		body["session"] = string(st.State)
		if st.LastError != "" {
			body["last_error"] = st.LastError
		}
		if !st.OpenedAt.IsZero() {
			body["opened_at"] = st.OpenedAt.UTC().Format(time.RFC3339)
		}
	}
	c.JSON(http.StatusOK, body)
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
