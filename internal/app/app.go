package app

import (
	"careiq_backend/internal/config"
	"careiq_backend/internal/controller"
	"careiq_backend/internal/repository"
	"careiq_backend/internal/service"
	"careiq_backend/pkg/configwatcher"
	"careiq_backend/pkg/database"
	"careiq_backend/pkg/logger"
	"careiq_backend/pkg/monitoring"
	"careiq_backend/pkg/security"
	"careiq_backend/pkg/tracing"
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	tracer          *trace.TracerProvider
	speech          *service.GoogleSpeechTranscriber
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user        *repository.UserRepository
	participant *repository.ParticipantRepository
	note        *repository.NoteRepository
	queryLog    *repository.QueryLogRepository
	activity    *repository.ActivityRepository
	completion  *repository.TrainingCompletionRepository
	novaSession *repository.NovaSessionRepository
}

type services struct {
	training       *service.TrainingService
	trainingReport *service.TrainingReportService
	ai             *service.AIService
	classifier     *service.ClassifierService
	transcription  *service.TranscriptionService
	storage        *service.StorageService
	identity       *service.IdentityService
	user           *service.UserService
	participant    *service.ParticipantService
	note           *service.NoteService
	nova           *service.NovaService
	stats          *service.StatsService
	export         *service.ExportService
}

type controllers struct {
	auth        *controller.AuthController
	participant *controller.ParticipantController
	note        *controller.NoteController
	nova        *controller.NovaController
	training    *controller.TrainingController
	stats       *controller.StatsController
	export      *controller.ExportController
	health      *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client) *repositories {
	return &repositories{
		user:        repository.NewUserRepository(db),
		participant: repository.NewParticipantRepository(db),
		note:        repository.NewNoteRepository(db),
		queryLog:    repository.NewQueryLogRepository(db),
		activity:    repository.NewActivityRepository(db),
		completion:  repository.NewTrainingCompletionRepository(db),
		novaSession: repository.NewNovaSessionRepository(rdb),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config) (*services, error) {
	catalog, err := service.LoadTrainingCatalog(cfg.Training.CatalogPath)
	if err != nil {
		return nil, err
	}

	s := &services{}
	s.training = service.NewTrainingService(repos.activity, repos.completion, catalog)
	s.trainingReport = service.NewTrainingReportService(repos.activity, repos.user, s.training)
	s.ai = service.NewAIService(cfg.AI)
	s.classifier = service.NewClassifierService(s.ai)

	// 未启用语音识别时只能使用演示转写
	var engine service.Transcriber
	if cfg.Speech.Enabled {
		speech, err := service.NewGoogleSpeechTranscriber(context.Background(), cfg.Speech)
		if err != nil {
			logger.Log.Error("Failed to init speech client, transcription disabled", zap.Error(err))
		} else {
			a.speech = speech
			engine = speech
		}
	}
	s.transcription = service.NewTranscriptionService(engine, cfg.Speech.DemoFallback)

	s.storage = service.NewStorageService(cfg)
	s.identity, err = service.NewIdentityService(cfg.Auth)
	if err != nil {
		return nil, err
	}
	s.user = service.NewUserService(repos.user)
	s.participant = service.NewParticipantService(repos.participant)
	s.note = service.NewNoteService(repos.note, repos.participant, s.classifier, s.transcription, s.storage, s.training)
	s.nova = service.NewNovaService(s.ai, repos.queryLog, repos.participant, repos.novaSession, s.training)
	s.stats = service.NewStatsService(repos.note, repos.participant)
	s.export = service.NewExportService(repos.note)

	// AI 配置支持热更新
	a.RegisterConfigCallback(func(newCfg *config.Config) {
		s.ai.UpdateConfig(newCfg.AI)
	})
	return s, nil
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		auth:        controller.NewAuthController(),
		participant: controller.NewParticipantController(s.participant),
		note:        controller.NewNoteController(s.note),
		nova:        controller.NewNovaController(s.nova),
		training:    controller.NewTrainingController(s.training, s.trainingReport),
		stats:       controller.NewStatsController(s.stats),
		export:      controller.NewExportController(s.export),
		health:      controller.NewHealthController(db, s.ai, s.transcription),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit, "/api/health", "/metrics"))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) watchConfig(ctx context.Context) {
	if a.Config.Path == "" {
		return
	}
	go func() {
		err := configwatcher.WatchConfig(ctx, a.Config.Path, func(newCfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(newCfg)
			}
		})
		if err != nil {
			logger.Log.Error("Config watcher stopped", zap.Error(err))
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}
	if cfg.MigrateOnly {
		return app
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}
	app.Redis = rdb

	repos := app.initRepositories(db, rdb)
	services, err := app.initServices(repos, cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize services", zap.Error(err))
	}
	app.services = services
	controllers := app.initControllers(services, db)

	// 监控初始化
	monitoring.Init()

	gin.SetMode(cfg.Server.Mode)
	router := gin.Default()
	app.Router = router
	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.registerRoutes(router, controllers, services, cfg)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	a.watchConfig(watchCtx)

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

	a.Close(ctx)
	log.Println("Server exiting")
}

// Close 释放外部客户端
func (a *App) Close(ctx context.Context) {
	if a.speech != nil {
		if err := a.speech.Close(); err != nil {
			logger.Log.Error("Failed to close speech client", zap.Error(err))
		}
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
