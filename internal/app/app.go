package app

import (
	"career_coach_backend/internal/config"
	"career_coach_backend/internal/controller"
	"career_coach_backend/internal/repository"
	"career_coach_backend/internal/service"
	"career_coach_backend/pkg/database"
	"career_coach_backend/pkg/logger"
	"career_coach_backend/pkg/monitoring"
	"career_coach_backend/pkg/security"
	"career_coach_backend/pkg/tracing"
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

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
	user        *repository.UserRepository
	resume      *repository.ResumeRepository
	portfolio   *repository.PortfolioRepository
	coverLetter *repository.CoverLetterRepository
	interview   *repository.InterviewRepository
}

type services struct {
	storage       *service.StorageService
	ai            *service.AIService
	transcription *service.TranscriptionService
	question      *service.QuestionService
	scoring       *service.ScoringService
	interview     *service.InterviewService
	auth          *service.AuthService
	user          *service.UserService
	resume        *service.ResumeService
	portfolio     *service.PortfolioService
	coverLetter   *service.CoverLetterService
}

type controllers struct {
	auth        *controller.AuthController
	user        *controller.UserController
	resume      *controller.ResumeController
	portfolio   *controller.PortfolioController
	coverLetter *controller.CoverLetterController
	interview   *controller.InterviewController
	health      *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// OnConfigReload 配置热加载入口，由 configwatcher 回调
func (a *App) OnConfigReload(cfg interface{}) {
	newCfg, ok := cfg.(*config.Config)
	if !ok {
		return
	}
	*a.Config = *newCfg
	for _, callback := range a.configCallbacks {
		callback(newCfg)
	}
	logger.Log.Info("配置已热加载")
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:        repository.NewUserRepository(db),
		resume:      repository.NewResumeRepository(db),
		portfolio:   repository.NewPortfolioRepository(db),
		coverLetter: repository.NewCoverLetterRepository(db),
		interview:   repository.NewInterviewRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.ai = service.NewAIService(cfg.AI)
	s.transcription = service.NewTranscriptionService(cfg.Transcription)
	s.question = service.NewQuestionService(s.ai, cfg.Interview.QuestionCount)
	s.scoring = service.NewScoringService(s.ai)
	s.interview = service.NewInterviewService(repos.interview, s.question, s.scoring, s.transcription, rdb)

	s.auth = service.NewAuthService(repos.user, cfg)
	s.user = service.NewUserService(repos.user, s.storage)
	s.resume = service.NewResumeService(repos.resume, s.storage, s.ai)
	s.portfolio = service.NewPortfolioService(repos.portfolio, repos.resume, s.ai)
	s.coverLetter = service.NewCoverLetterService(repos.coverLetter, repos.resume, s.ai)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:        controller.NewAuthController(s.auth),
		user:        controller.NewUserController(s.user),
		resume:      controller.NewResumeController(s.resume),
		portfolio:   controller.NewPortfolioController(s.portfolio),
		coverLetter: controller.NewCoverLetterController(s.coverLetter),
		interview:   controller.NewInterviewController(s.interview),
		health:      controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 600
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
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
		// Redis 只承担缓存，连不上时降级运行
		logger.Log.Warn("Redis unavailable, summary cache disabled", zap.Error(err))
		rdb = nil
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

	// 题目数量支持热加载
	app.RegisterConfigCallback(func(newCfg *config.Config) {
		services.question.SetCount(newCfg.Interview.QuestionCount)
	})

	// 监控初始化
	monitoring.Init()

	gin.SetMode(cfg.Server.Mode)
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("career-platform", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
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
