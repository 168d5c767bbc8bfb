package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/audit"
	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handlers"
	"storefront/internal/logger"
	"storefront/internal/metrics"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/ratelimit"
	"storefront/internal/repository"
	"storefront/internal/service"
)

type app struct {
	cfg      config.Config
	log      logger.Logger
	db       *mongo.Database
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	limiter  ratelimit.Limiter

	users    repository.UserRepository
	logs     repository.AdminLogRepository
	uploads  *handlers.UploadStore
	tokens   *auth.TokenManager
	verifier *auth.AssertionVerifier

	sessions *service.SessionService
	tokenSvc *service.TokenService
	admins   *service.AdminService
	accounts *service.AccountService
	coupons  *service.CouponService
	checkout *handlers.Checkout
}

func main() {
	cfg := config.Load()

	appLogger, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer appLogger.Sync()

	if cfg.JWTSecret == "" {
		appLogger.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	client, err := database.Connect(cfg.MongoURI)
	if err != nil {
		appLogger.Error("mongo connect failed", logger.Error(err))
		os.Exit(1)
	}
	db := client.Database(cfg.DBName)
	appLogger.Info("mongo connected", logger.String("db", db.Name()))

	if err := database.EnsureIndexes(db, appLogger); err != nil {
		appLogger.Warn("index setup incomplete", logger.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New("storefront", registry)

	var limiter ratelimit.Limiter = ratelimit.NewMemoryLimiter()
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			appLogger.Warn("redis unreachable, rate limits are per instance", logger.Error(err))
		} else {
			limiter = ratelimit.NewRedisLimiter(redisClient)
			appLogger.Info("redis rate limiter enabled", logger.String("addr", cfg.RedisAddr))
		}
		cancel()
	}

	users := repository.NewMongoUsers(db)
	adminLogs := repository.NewMongoAdminLogs(db)
	hasher := auth.NewBcryptHasher(0)
	recorder := audit.NewAsyncRecorder(adminLogs, appLogger, appMetrics, cfg.AuditQueueSize)
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)
	coupons := service.NewCouponService(repository.NewMongoCoupons(db))

	a := &app{
		cfg:      cfg,
		log:      appLogger,
		db:       db,
		registry: registry,
		metrics:  appMetrics,
		limiter:  limiter,
		users:    users,
		logs:     adminLogs,
		uploads:  handlers.NewUploadStore(cfg.UploadDir, appLogger),
		tokens:   tokenManager,
		verifier: auth.NewAssertionVerifier(cfg.OAuthAssertionSecret),
		sessions: service.NewSessionService(users, hasher, appLogger),
		tokenSvc: service.NewTokenService(tokenManager, repository.NewMongoRefreshTokens(db), users, cfg.RefreshTokenTTL),
		admins: service.NewAdminService(users, hasher, recorder, service.AdminLimits{
			MaxMasterAdmins: cfg.MaxMasterAdmins,
			MaxAdmins:       cfg.MaxAdmins,
		}, appLogger),
		accounts: service.NewAccountService(users, hasher, recorder),
		coupons:  coupons,
		checkout: &handlers.Checkout{DB: db, Users: users, Coupons: coupons, Metrics: appMetrics, Log: appLogger},
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		middleware.Recovery(appLogger),
		middleware.RequestContext(),
		middleware.RequestLogger(appLogger),
		middleware.Metrics(appMetrics),
		middleware.SessionAuth(tokenManager, a.sessions, appLogger),
	)
	a.routes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("http server listening", logger.String("addr", srv.Addr), logger.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("http server failed", logger.Error(err))
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	appLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("http server forced to shutdown", logger.Error(err))
	}
	if err := recorder.Close(shutdownCtx); err != nil {
		appLogger.Warn("audit queue not fully drained", logger.Error(err))
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if err := database.Disconnect(shutdownCtx, client); err != nil {
		appLogger.Warn("mongo disconnect failed", logger.Error(err))
	}
	appLogger.Info("stopped")
}

func (a *app) routes(r *gin.Engine) {
	cfg, log, db := a.cfg, a.log, a.db

	r.LoadHTMLGlob(filepath.Join(cfg.AdminUIDir, "*.html"))
	r.Static("/public", cfg.UploadDir)
	r.Static("/admin/assets", filepath.Join(cfg.AdminUIDir, "assets"))

	r.GET("/", handlers.Home(cfg.PublicUIDir))
	r.GET("/health", handlers.Health(db, log))
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	loginLimit := middleware.RateLimit(a.limiter, "login", cfg.LoginRateLimit, time.Minute, log, a.metrics)
	contactLimit := middleware.RateLimit(a.limiter, "contact", 5, time.Hour, log, a.metrics)
	signedIn := middleware.RequireRole(models.RoleUser)

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", loginLimit, handlers.Register(a.sessions, a.tokenSvc, log))
		authGroup.POST("/login", loginLimit, handlers.Login(a.sessions, a.tokenSvc, log))
		authGroup.POST("/oauth", loginLimit, handlers.FederatedLogin(a.verifier, a.sessions, a.tokenSvc, log))
		authGroup.POST("/refresh", handlers.Refresh(a.tokenSvc, log))
		authGroup.POST("/logout", handlers.Logout(a.tokenSvc, log))
		authGroup.GET("/me", signedIn, handlers.Me(a.users, log))
		authGroup.POST("/change-password", signedIn, handlers.ChangePassword(a.accounts, log))
	}

	r.GET("/products", handlers.ListProducts(db, log))
	r.GET("/products/:id", handlers.GetProduct(db, log))
	r.GET("/categories", handlers.ListCategories(db, log))
	r.GET("/site-config", handlers.GetSiteConfig(db, true, log))
	r.POST("/coupons/validate", handlers.ValidateCoupon(a.coupons, log))
	r.POST("/orders", a.checkout.CreateOrder())
	r.GET("/orders/mine", signedIn, handlers.MyOrders(db, log))
	r.POST("/contact", contactLimit, handlers.SubmitContact(db, log))

	me := r.Group("/me", signedIn)
	{
		for path, field := range map[string]string{"/wishlist": repository.FieldWishlist, "/liked": repository.FieldLiked} {
			me.GET(path, handlers.ListProductSet(db, a.users, field, log))
			me.POST(path, handlers.AddToProductSet(db, a.users, field, log))
			me.DELETE(path+"/:productId", handlers.RemoveFromProductSet(a.users, field, log))
		}
	}

	r.GET("/admin/login", handlers.AdminLoginPage())
	r.POST("/admin/login", loginLimit, handlers.AdminLogin(a.sessions, a.tokenSvc, handlers.CookieOptions{
		Secure: cfg.IsProduction(),
		MaxAge: int(cfg.AccessTokenTTL.Seconds()),
	}, log))
	r.GET("/admin/logout", handlers.AdminLogout())

	pages := r.Group("/admin", middleware.RequirePageRole(models.RoleAdmin))
	{
		pages.GET("", handlers.AdminPage("dashboard.html"))
		for _, name := range []string{"products", "categories", "orders", "coupons", "users", "contact", "site"} {
			pages.GET("/"+name, handlers.AdminPage(name+".html"))
		}
		masterPages := pages.Group("", middleware.RequirePageRole(models.RoleMasterAdmin))
		masterPages.GET("/admins", handlers.AdminPage("admins.html"))
		masterPages.GET("/logs", handlers.AdminPage("logs.html"))
	}

	api := r.Group("/admin/api", middleware.RequireAdmin())
	{
		api.GET("/dashboard", handlers.Dashboard(db, log))

		api.GET("/products", handlers.AdminListProducts(db, log))
		api.POST("/products", handlers.CreateProduct(db, a.uploads, log))
		api.PUT("/products/:id", handlers.UpdateProduct(db, a.uploads, log))
		api.DELETE("/products/:id", handlers.DeleteProduct(db, a.uploads, log))

		api.GET("/categories", handlers.AdminListCategories(db, log))
		api.POST("/categories", handlers.CreateCategory(db, log))
		api.PUT("/categories/:id", handlers.UpdateCategory(db, log))
		api.DELETE("/categories/:id", handlers.DeleteCategory(db, log))

		api.GET("/orders", handlers.AdminListOrders(db, log))
		api.GET("/orders/:id", handlers.AdminGetOrder(db, log))
		api.PATCH("/orders/:id", handlers.UpdateOrderStatus(db, log))

		api.GET("/coupons", handlers.ListCoupons(a.coupons, log))
		api.POST("/coupons", handlers.CreateCoupon(a.coupons, log))
		api.PATCH("/coupons/:id", handlers.UpdateCoupon(a.coupons, log))
		api.DELETE("/coupons/:id", handlers.DeleteCoupon(a.coupons, log))

		api.GET("/users", handlers.ListUsers(a.admins, log))
		api.PATCH("/users/:id", handlers.UpdateUser(a.admins, log))

		api.GET("/contact-messages", handlers.ListContactMessages(db, log))
		api.PATCH("/contact-messages/:id", handlers.UpdateContactStatus(db, log))

		api.GET("/site-config", handlers.GetSiteConfig(db, false, log))
		api.PUT("/site-config", handlers.UpdateSiteConfig(db, log))
	}

	master := api.Group("/master", middleware.RequireMasterAdmin())
	{
		master.GET("/admins", handlers.ListAdmins(a.admins, log))
		master.POST("/admins", handlers.CreateAdmin(a.admins, log))
		master.PATCH("/admins/:id/password", handlers.ResetAdminPassword(a.admins, log))
		master.PATCH("/admins/:id/role", handlers.ChangeAdminRole(a.admins, log))
		master.POST("/admins/:id/promote", handlers.PromoteAdmin(a.admins, log))
		master.DELETE("/admins/:id", handlers.DeleteAdmin(a.admins, log))
		master.GET("/logs", handlers.ListAdminLogs(a.logs, log))
	}
}
