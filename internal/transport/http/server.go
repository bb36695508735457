package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/auth"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
)

// Deps — зависимости HTTP-сервера витрины.
type Deps struct {
	Checkout    *checkout.Manager
	Auth        *auth.Service
	Tokens      *auth.TokenManager
	Products    domain.ProductRepository
	Idempotency domain.IdempotencyRepository
	Health      *health.Handler
	Logger      *log.Entry
}

// Server — HTTP-сервер витрины поверх gin.
type Server struct {
	router *gin.Engine
	http   *http.Server
	deps   Deps
	logger *log.Entry
}

// NewServer собирает маршруты и возвращает сервер.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "http-server")
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		router: router,
		deps:   deps,
		logger: logger,
		http: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
	s.registerRoutes()
	return s
}

// Router возвращает gin engine (используется в тестах).
func (s *Server) Router() http.Handler {
	return s.router
}

// Run запускает сервер и блокируется до ошибки listener.
func (s *Server) Run() error {
	s.logger.WithField("addr", s.http.Addr).Info("http server listening")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown мягко останавливает сервер.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	if s.deps.Health != nil {
		s.router.GET("/healthz", gin.WrapH(s.deps.Health))
		s.router.GET("/readyz", gin.WrapF(s.deps.Health.ReadinessHandler))
	} else {
		s.router.GET("/healthz", gin.WrapF(health.LivenessHandler))
	}
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api")

	// Публичные маршруты витрины.
	api.POST("/auth/register", s.handleRegister)
	api.POST("/auth/login", s.handleLogin)
	api.GET("/products", s.handleListProducts)
	api.GET("/products/:slug", s.handleGetProduct)

	// Маршруты под токеном.
	authorized := api.Group("", auth.Middleware(s.deps.Tokens))
	authorized.POST("/orders", s.withIdempotency(s.handleCreateOrder))
	authorized.GET("/orders", s.handleListOrders)
	authorized.GET("/orders/:id", s.handleGetOrder)
	authorized.GET("/orders/:id/timeline", s.handleOrderTimeline)
	authorized.POST("/orders/:id/cancel", s.handleCancelOrder)

	// Возврат отдельной позиции — операция персонала.
	staff := authorized.Group("", auth.RequireRole(domain.RoleStaff, domain.RoleAdmin))
	staff.POST("/orders/:id/lines/:productID/return", s.handleReturnLine)

	// Админка: каталог, персонал, обзор продаж.
	admin := authorized.Group("/admin", auth.RequireRole(domain.RoleAdmin))
	admin.POST("/products", s.handleCreateProduct)
	admin.PUT("/products/:id", s.handleUpdateProduct)
	admin.GET("/staff", s.handleListStaff)
	admin.POST("/staff", s.handleCreateStaff)
	admin.DELETE("/staff/:id", s.handleDeleteStaff)
	admin.PATCH("/users/:id/disabled", s.handleSetUserDisabled)
	admin.GET("/orders", s.handleListAllOrders)
}

func requestLogger(logger *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Error("request failed")
			return
		}
		entry.Debug("request handled")
	}
}
