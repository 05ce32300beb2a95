package mteam

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"kyri56xcaesar/teamup/internal/account"
	auth "kyri56xcaesar/teamup/internal/authmw"
	"kyri56xcaesar/teamup/internal/ledger"
	"kyri56xcaesar/teamup/internal/metrics"
	"kyri56xcaesar/teamup/internal/mpay"
	"kyri56xcaesar/teamup/internal/store"
)

const (
	apiVersion = "/api/v1"

	rateLimitWindow = time.Minute
	shutdownTimeout = 5 * time.Second
)

// Server carries the HTTP handlers and their collaborators.
type Server struct {
	cfg      Config
	ledger   *ledger.Ledger
	accounts *account.Service
	payments *mpay.Dummy
	authn    auth.Authenticator
	limiter  *RateLimiter
	logger   *zap.SugaredLogger
}

func NewServer(cfg Config, l *ledger.Ledger, accounts *account.Service, payments *mpay.Dummy,
	authn auth.Authenticator, limiter *RateLimiter, logger *zap.SugaredLogger,
) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Server{
		cfg:      cfg,
		ledger:   l,
		accounts: accounts,
		payments: payments,
		authn:    authn,
		limiter:  limiter,
		logger:   logger,
	}
}

// Engine builds the gin router. Gin mode must be set before calling it.
func (s *Server) Engine() *gin.Engine {
	engine := gin.New()
	engine.Use(
		ginzap.Ginzap(s.logger.Desugar(), time.RFC3339, true),
		ginzap.RecoveryWithZap(s.logger.Desugar(), true),
		metrics.GinMiddleware,
		requestTimeout(s.cfg.RequestTimeout),
	)

	s.setCors(engine)
	s.setRoutes(engine)
	return engine
}

func (s *Server) setCors(engine *gin.Engine) {
	corsconfig := cors.DefaultConfig()
	corsconfig.AllowOrigins = s.cfg.AllowedOrigins
	corsconfig.AllowMethods = s.cfg.AllowedMethods
	corsconfig.AllowHeaders = s.cfg.AllowedHeaders
	engine.Use(cors.New(corsconfig))
}

func (s *Server) setRoutes(engine *gin.Engine) {
	root := engine.Group("/")
	{
		root.GET("/healthz", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "alive"})
		})
		if s.cfg.MetricsPort == "" {
			root.GET("/metrics", metrics.Handler())
		}
	}

	requireUser := s.authn.RequireUser()
	limit := func(route string) gin.HandlerFunc {
		return rateLimit(s.limiter, route, s.cfg.RateLimitPerMinute, rateLimitWindow)
	}

	v1 := engine.Group(apiVersion)

	accounts := v1.Group("/auth")
	{
		accounts.POST("/signup", s.signupHandler)
		accounts.POST("/login", limit("login"), s.loginHandler)
		accounts.GET("/profile", requireUser, s.profileHandler)
	}

	teams := v1.Group("/teams")
	{
		teams.GET("", s.listTeamsHandler)
		teams.GET("/:id", s.getTeamHandler)
		teams.POST("", requireUser, s.createTeamHandler)
		teams.POST("/:id/join", requireUser, limit("join"), s.joinTeamHandler)
		teams.POST("/:id/leave", requireUser, limit("leave"), s.leaveTeamHandler)
		teams.POST("/:id/cancel", requireUser, s.cancelTeamHandler)
	}

	payments := v1.Group("/payments")
	payments.Use(requireUser)
	{
		payments.POST("/create-order", limit("create-order"), s.createOrderHandler)
		payments.POST("/verify", limit("verify"), s.verifyPaymentHandler)
		payments.GET("/history", s.paymentHistoryHandler)
	}
}

func requestTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Serve wires the production stack from cfg and blocks until ctx is done or
// a listener fails.
func Serve(ctx context.Context, cfg Config, logger *zap.SugaredLogger) error {
	setGinMode(cfg.ApiGinMode)
	logger.Infof("starting with configuration:\n%s", cfg.String())

	if cfg.MigrateOnStart {
		m, err := store.NewMigrator(cfg.DSN(), logger)
		if err != nil {
			return fmt.Errorf("migrator: %w", err)
		}
		if err := m.Up(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	pool, err := store.NewPool(ctx, cfg.DSN())
	if err != nil {
		return fmt.Errorf("could not connect to the database: %w", err)
	}
	defer pool.Close()

	db := store.New(pool, logger.Named("store"))
	payments := mpay.NewDummy(db, cfg.PaymentCurrency, logger.Named("payments"))
	l := ledger.New(db, db, db, payments, logger.Named("ledger"))

	idp, authn, closeAuth, err := initAuth(cfg, logger.Named("auth"))
	if err != nil {
		return err
	}
	defer closeAuth()

	accounts := account.NewService(db, db, idp, cfg.DefaultBalance, logger.Named("accounts"))

	limiter := initRateLimiter(cfg, logger)
	defer limiter.Close()

	srv := NewServer(cfg, l, accounts, payments, authn, limiter, logger.Named("http"))
	servers := []*http.Server{{
		Addr:              cfg.Addr(),
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 5 * time.Second,
	}}
	if cfg.MetricsPort != "" {
		metricsEngine := gin.New()
		metricsEngine.GET("/metrics", metrics.Handler())
		servers = append(servers, &http.Server{
			Addr:              ":" + cfg.MetricsPort,
			Handler:           metricsEngine,
			ReadHeaderTimeout: 5 * time.Second,
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, server := range servers {
		g.Go(func() error {
			logger.Infow("listening", "addr", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listen %s: %w", server.Addr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down gracefully, press Ctrl+C again to force")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		for _, server := range servers {
			if err := server.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown %s: %w", server.Addr, err))
			}
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server exiting")
	return nil
}

// initAuth returns the identity provider used for signup/login, the
// middleware that authenticates requests, and a cleanup func.
func initAuth(cfg Config, logger *zap.SugaredLogger) (account.IdentityProvider, auth.Authenticator, func(), error) {
	switch cfg.AuthMode {
	case "keycloak":
		kc, err := auth.NewService(
			cfg.AuthAddress,
			cfg.Realm,
			cfg.ClientID,
			cfg.Audience,
			cfg.ClientSecret,
			logger,
		)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("keycloak: %w", err)
		}
		return kc, kc, kc.Close, nil
	case "local", "":
		local, err := auth.NewLocalAuth(cfg.JWTSecret, cfg.TokenTTL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("local auth: %w", err)
		}
		return local, local, func() {}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown AUTH_MODE %q", cfg.AuthMode)
	}
}

func initRateLimiter(cfg Config, logger *zap.SugaredLogger) *RateLimiter {
	if cfg.RedisAddr == "" {
		return NewMemoryRateLimiter()
	}
	rl, err := NewRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger.Named("ratelimit"))
	if err != nil {
		logger.Warnw("redis rate limiter unavailable, falling back to memory", "addr", cfg.RedisAddr, "error", err)
		return NewMemoryRateLimiter()
	}
	return rl
}

func setGinMode(mode string) {
	switch strings.ToLower(mode) {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "envgin":
		gin.SetMode(gin.EnvGinMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}
}
