package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/plantsafe/ppeflow/internal/config"
	"github.com/plantsafe/ppeflow/internal/middleware"
	"github.com/plantsafe/ppeflow/internal/ppe/entity"
	"github.com/plantsafe/ppeflow/internal/ppe/handler"
	"github.com/plantsafe/ppeflow/internal/ppe/repository"
	"github.com/plantsafe/ppeflow/internal/ppe/service"
	"github.com/plantsafe/ppeflow/internal/shared/notify"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting ppeflow service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&entity.Department{},
		&entity.AppUser{},
		&entity.PpeMaster{},
		&entity.PpeRequest{},
		&entity.PpeIssueLog{},
		&entity.PpePurchase{},
		&entity.YearlyBudget{},
		&entity.DepartmentBudget{},
	); err != nil {
		zapLogger.Warn("AutoMigrate warning", zap.Error(err))
	}

	// 初始化Redis
	rdb := initRedis(cfg.Redis)

	// 通知通道：Teams webhook + 邮件，均为尽力而为
	dispatcher := initDispatcher(cfg, zapLogger)

	// 初始化依赖
	repos := repository.NewRepositories(db)
	services := service.NewServices(db, repos, rdb, dispatcher, cfg, zapLogger)
	handlers := handler.NewHandlers(services)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	registerRoutes(router, handlers, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func registerRoutes(router *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": Version})
	})

	api := router.Group("/api/v1")

	// 公开接口：提交、查询、领取确认
	api.POST("/requests", h.Request.Submit)
	api.GET("/requests/track", h.Request.Track)
	api.GET("/requests/:id", h.Request.Get)
	api.POST("/requests/:id/pickup", h.Request.ConfirmPickup)
	api.GET("/departments", h.Request.Departments)
	api.POST("/uploads", h.Upload.Upload)

	// 认证
	auth := api.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
		auth.POST("/logout", h.Auth.Logout)
		auth.GET("/me", middleware.JWTAuth(cfg.JWT.Secret), h.Auth.Me)
	}

	// 员工端接口
	staff := api.Group("", middleware.JWTAuth(cfg.JWT.Secret))
	{
		staff.GET("/requests", h.Request.List)
		staff.DELETE("/requests/:id", middleware.RequireRole("HSE"), h.Approval.Delete)

		approvals := staff.Group("/approvals")
		{
			dept := approvals.Group("/dept", middleware.RequireRole("DEPT_HEAD"))
			dept.POST("/:id/approve", h.Approval.Approve(entity.StatusPendingDept))
			dept.POST("/:id/reject", h.Approval.Reject(entity.StatusPendingDept))

			hse := approvals.Group("/hse", middleware.RequireRole("HSE"))
			hse.POST("/:id/approve", h.Approval.Approve(entity.StatusPendingHSE))
			hse.POST("/:id/reject", h.Approval.Reject(entity.StatusPendingHSE))

			pm := approvals.Group("/plant-manager", middleware.RequireRole("PLANT_MANAGER"))
			pm.POST("/:id/approve", h.Approval.Approve(entity.StatusPendingPlantManager))
			pm.POST("/:id/reject", h.Approval.Reject(entity.StatusPendingPlantManager))

			hr := approvals.Group("/hr", middleware.RequireRole("HR"))
			hr.POST("/:id/approve", h.Approval.Approve(entity.StatusPendingHR))
			hr.POST("/:id/reject", h.Approval.Reject(entity.StatusPendingHR))
		}

		ppe := staff.Group("/ppe", middleware.RequireRole("HSE"))
		{
			ppe.GET("", h.Inventory.List)
			ppe.POST("", h.Inventory.Create)
			ppe.GET("/alerts", h.Inventory.Alerts)
			ppe.GET("/purchases", h.Inventory.Purchases)
			ppe.POST("/stock/add", h.Inventory.AddStock)
			ppe.GET("/:id", h.Inventory.Get)
			ppe.PUT("/:id", h.Inventory.Update)
			ppe.PUT("/:id/stock", h.Inventory.CorrectStock)
		}

		analytics := staff.Group("/analytics", middleware.RequireRole("HSE", "PLANT_MANAGER", "HR"))
		{
			analytics.GET("/balances", h.Analytics.Balances)
			analytics.GET("/series", h.Analytics.Series)
		}

		budgets := staff.Group("/budgets")
		{
			budgets.GET("/yearly", middleware.RequireRole("HSE", "PLANT_MANAGER", "HR"), h.Budget.YearlyStatus)
			budgets.PUT("/yearly", middleware.RequireRole("ADMIN"), h.Budget.SetYearly)
			budgets.GET("/departments", middleware.RequireRole("HSE", "PLANT_MANAGER", "HR", "DEPT_HEAD"), h.Budget.ListDepartment)
			budgets.PUT("/departments", middleware.RequireRole("ADMIN"), h.Budget.SetDepartment)
		}

		staff.POST("/maintenance/reconcile", middleware.RequireRole("HSE"), h.Approval.Reconcile)
	}
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func initDispatcher(cfg *config.Config, zapLogger *zap.Logger) notify.Dispatcher {
	var channels []notify.Channel

	if cfg.Teams.WebhookURL != "" {
		channels = append(channels, notify.NewTeamsClient(cfg.Teams.WebhookURL, cfg.Teams.LostBrokenWebhookURL))
		zapLogger.Info("Teams notification channel enabled")
	}
	if cfg.SMTP.Host != "" {
		channels = append(channels, notify.NewMailChannel(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From))
		zapLogger.Info("Mail notification channel enabled")
	}

	if len(channels) == 0 {
		zapLogger.Warn("No notification channels configured")
		return notify.NopDispatcher{}
	}
	return notify.NewMultiDispatcher(zapLogger, 20*time.Second, channels...)
}
