package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Brij5/mocktestbuddy-sub001/internal/config"
	"github.com/Brij5/mocktestbuddy-sub001/internal/controller"
	"github.com/Brij5/mocktestbuddy-sub001/internal/repository"
	"github.com/Brij5/mocktestbuddy-sub001/internal/service"
	"github.com/Brij5/mocktestbuddy-sub001/pkg/database"
	"github.com/Brij5/mocktestbuddy-sub001/pkg/logger"
	"github.com/Brij5/mocktestbuddy-sub001/pkg/monitoring"
	"github.com/Brij5/mocktestbuddy-sub001/pkg/security"
	"github.com/Brij5/mocktestbuddy-sub001/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user    *repository.UserRepository
	exam    *repository.ExamRepository
	attempt *repository.AttemptRepository
}

type services struct {
	auth    *service.AuthService
	exam    *service.ExamService
	attempt *service.AttemptService
}

type controllers struct {
	auth    *controller.AuthController
	exam    *controller.ExamController
	attempt *controller.AttemptController
	health  *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ApplyConfig 热更新可以安全动态调整的配置项，其余项需重启生效
func (a *App) ApplyConfig(newCfg *config.Config) {
	a.Config.Engine = newCfg.Engine
	a.Config.RateLimit = newCfg.RateLimit

	for _, callback := range a.configCallbacks {
		callback(newCfg)
	}
	logger.Log.Info("Config reloaded",
		zap.Int("catalogCacheSeconds", newCfg.Engine.CatalogCacheSeconds),
		zap.Int("expirySweepSeconds", newCfg.Engine.ExpirySweepSeconds))
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:    repository.NewUserRepository(db),
		exam:    repository.NewExamRepository(db),
		attempt: repository.NewAttemptRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.auth = service.NewAuthService(repos.user, cfg)
	s.exam = service.NewExamService(repos.exam, cfg, rdb)
	s.attempt = service.NewAttemptService(repos.attempt, s.exam)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:    controller.NewAuthController(s.auth),
		exam:    controller.NewExamController(s.exam),
		attempt: controller.NewAttemptController(s.attempt),
		health:  controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(func(c *gin.Context) {
		c.Set("config", a.Config)
		c.Next()
	})

	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 100000
	}
	windowMinutes := cfg.RateLimit.WindowMinutes
	if windowMinutes <= 0 {
		windowMinutes = 1
	}
	router.Use(security.RateLimiter(maxRequests, time.Duration(windowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 定期把已过截止时间的作答按超时交卷。
// 写请求路径上的惰性过期已保证正确性，清扫只是让闲置的作答尽早出分。
func (a *App) startBackgroundTasks(s *services) {
	sweepSeconds := a.Config.Engine.ExpirySweepSeconds
	if sweepSeconds <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(time.Duration(sweepSeconds) * time.Second)
		for range ticker.C {
			if err := s.attempt.ExpireOverdue(); err != nil {
				logger.Log.Error("expiry sweep error", zap.Error(err))
			}
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	gin.SetMode(ginMode(cfg.Server.Mode))
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("mocktestbuddy", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, repos, cfg)

	app.startBackgroundTasks(services)

	return app
}

func ginMode(mode string) string {
	switch mode {
	case "release":
		return gin.ReleaseMode
	case "test":
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
