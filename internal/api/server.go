package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jalaleddinemaoukil/interventions-m1/internal/api/auth"
	"github.com/jalaleddinemaoukil/interventions-m1/internal/api/middleware"
	"github.com/jalaleddinemaoukil/interventions-m1/internal/config"
	"github.com/jalaleddinemaoukil/interventions-m1/internal/model"
	"github.com/jalaleddinemaoukil/interventions-m1/internal/pkg/metrics"
	"github.com/jalaleddinemaoukil/interventions-m1/internal/pkg/notify"
	"github.com/jalaleddinemaoukil/interventions-m1/internal/pkg/ratelimit"
	"github.com/jalaleddinemaoukil/interventions-m1/internal/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Server wires the stores, token service and HTTP routes together.
type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *gorm.DB
	rdb     *redis.Client
	router  *gin.Engine
	tokens  *token.Service
	auth    *auth.Handler
	tasks   TaskStore
	limiter *ratelimit.RateLimiter
}

// NewServer connects MySQL (with automigration) and, when configured,
// Redis, then builds the gin engine and routes.
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := gorm.Open(mysql.Open(cfg.MySQL.DSN), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError: true, // duplicate email surfaces as gorm.ErrDuplicatedKey
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.User{}, &model.Intervention{}); err != nil {
		return nil, err
	}

	// Redis only backs the auth rate limiter; without an address the
	// limiter stays off and everything else works.
	var rdb *redis.Client
	var limiter *ratelimit.RateLimiter
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       0,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, err
		}
		limiter = ratelimit.NewRedisRateLimiter(rdb, logger, "helpdesk:ratelimit:auth", cfg.App.RateLimit, cfg.App.RateBurst)
	}

	metrics.InitMetrics()

	tokens := token.NewService(cfg.Security.JWTSecret)
	mailer := notify.NewEmailNotifier(&cfg.Email, logger)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		rdb:     rdb,
		router:  r,
		tokens:  tokens,
		auth:    auth.NewHandler(dbUserStore{db: db}, tokens, mailer, logger, cfg.App.AccessTokenTTL, cfg.App.SessionTokenTTL),
		tasks:   dbTaskStore{db: db},
		limiter: limiter,
	}
	s.registerRoutes()
	return s, nil
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	return s.router
}

// Close releases the database and cache connections.
func (s *Server) Close() error {
	var firstErr error
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			firstErr = err
		}
	}
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
		} else {
			if closeErr := sqlDB.Close(); closeErr != nil {
				if firstErr == nil {
					firstErr = closeErr
				}
			}
		}
	}
	return firstErr
}

// registerRoutes registers all API routes.
func (s *Server) registerRoutes() {
	s.router.GET("/", s.handleWelcome)
	s.router.GET("/healthz", s.handleHealthz)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := s.router.Group("/")
	public.Use(middleware.RateLimit(s.limiter))
	public.POST("/create-account", s.auth.Register)
	public.POST("/login", s.auth.Login)

	authed := s.router.Group("/")
	authed.Use(middleware.Auth(s.tokens))
	authed.GET("/employee", s.auth.Me)
	authed.POST("/add-task", s.handleAddTask)
	authed.PUT("/edit-task/:taskId", s.handleEditTask)
	authed.GET("/get-all-tasks", s.handleListTasks)
	authed.DELETE("/delete-task/:taskId", s.handleDeleteTask)
	authed.PUT("/update-task-pinned/:taskId", s.handleUpdatePinned)
	authed.GET("/search-tasks", s.handleSearchTasks)
}

func (s *Server) handleWelcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to the API"})
}

func (s *Server) handleHealthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	var one int
	if err := s.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}
	if s.rdb != nil {
		if err := s.rdb.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
