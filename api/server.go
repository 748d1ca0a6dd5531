package api

import (
	"context"
	"net/http"
	"time"

	"github.com/Aidin1998/todos/common/apiutil"
	"github.com/Aidin1998/todos/docs"
	"github.com/Aidin1998/todos/internal/todos"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const healthTimeout = 2 * time.Second

// Server represents the API server
type Server struct {
	router    *gin.Engine
	logger    *zap.Logger
	todos     *todos.Service
	validator *apiutil.Validator
	origins   []string
}

type Option func(*Server)

// WithAllowedOrigins sets the CORS origins. "*" allows every origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// NewServer creates a new API server around the todo service
func NewServer(logger *zap.Logger, svc *todos.Service, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	server := &Server{
		logger:    logger,
		todos:     svc,
		validator: apiutil.NewValidator(),
		origins:   []string{"*"},
	}
	for _, opt := range opts {
		opt(server)
	}

	router := gin.New()

	router.Use(apiutil.RequestID())
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))
	router.Use(otelgin.Middleware("todos-api"))
	router.Use(cors.New(server.corsConfig()))
	router.Use(apiutil.MetricsMiddleware())

	server.router = router
	server.registerRoutes()
	return server
}

// Start starts the API server
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting API server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Router returns the internal Gin engine
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", apiutil.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", apiutil.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range s.origins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = s.origins
	if len(cfg.AllowOrigins) == 0 {
		cfg.AllowAllOrigins = true
	}
	return cfg
}

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/docs/openapi.yaml", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/yaml; charset=utf-8", docs.OpenAPI)
	})
	s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler,
		ginSwagger.URL("/docs/openapi.yaml")))

	todo := s.router.Group("/todos")
	{
		todo.POST("", s.createTodo)
		todo.GET("", s.listTodos)
		todo.GET("/:id", s.getTodo)
		todo.DELETE("/:id", s.deleteTodo)
		todo.PATCH("/:id", s.updateTodo)
	}
}

// healthCheck reports whether the store is reachable
func (s *Server) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	if err := s.todos.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"error":  err.Error(),
			"time":   time.Now(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now(),
	})
}
