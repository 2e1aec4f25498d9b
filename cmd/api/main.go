package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkline/inkline-backend/internal/config"
	"github.com/inkline/inkline-backend/internal/handler"
	"github.com/inkline/inkline-backend/internal/middleware"
	"github.com/inkline/inkline-backend/internal/repository"
	"github.com/inkline/inkline-backend/internal/routes"
	"github.com/inkline/inkline-backend/internal/service"
	"github.com/inkline/inkline-backend/pkg/jwt"
	pkglogger "github.com/inkline/inkline-backend/pkg/logger"
	pkgredis "github.com/inkline/inkline-backend/pkg/redis"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	config.LoadDotEnv()
	env := config.Env()
	pkglogger.InitStructured(env)
	zlog := pkglogger.GetLogger()

	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	zlog.Info().Str("env", env).Str("config", config.Path()).Msg("configuration loaded")

	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	zlog.Info().Str("host", cfg.Database.Host).Str("db", cfg.Database.Name).Msg("connected to MySQL")

	// Rebase session store: memory for single instances, Redis when scaled out
	var sessions service.SessionStore
	if cfg.Rebase.Store == "redis" {
		redisClient, err := pkgredis.NewClient(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.PoolSize,
		)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		ttl := time.Duration(cfg.Rebase.SessionTTL) * time.Minute
		sessions = service.NewRedisSessionStore(redisClient, ttl)
		zlog.Info().Str("host", cfg.Redis.Host).Msg("rebase sessions in Redis")
	} else {
		sessions = service.NewMemorySessionStore()
		zlog.Info().Msg("rebase sessions in memory")
	}

	jwtManager := jwt.NewManager(cfg.Auth.JWTSecret, 24*time.Hour)
	audit := service.NewLogAuditSink()

	// Repositories
	branchRepo := repository.NewBranchRepository(db)
	contentRepo := repository.NewContentRepository(db)
	versionRepo := repository.NewVersionRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	transitionRepo := repository.NewTransitionRepository(db)
	historyRepo := repository.NewMergeHistoryRepository(db)
	convergenceRepo := repository.NewConvergenceRepository(db)

	// Services
	versionService := service.NewVersionService(versionRepo, contentRepo, audit)
	conflictService := service.NewConflictService(contentRepo, versionRepo, versionService, sessions, audit)
	mergeService := service.NewMergeService(branchRepo, contentRepo, versionRepo, convergenceRepo, historyRepo, conflictService, audit)
	rebaseService := service.NewRebaseService(branchRepo, contentRepo, versionRepo, convergenceRepo, conflictService, sessions, audit)
	lifecycleService := service.NewLifecycleService(branchRepo, contentRepo, reviewRepo, transitionRepo, conflictService, mergeService, audit)
	branchService := service.NewBranchService(branchRepo)
	contentService := service.NewContentService(branchRepo, contentRepo, versionRepo, versionService)

	// Handlers
	branchHandler := handler.NewBranchHandler(branchService, lifecycleService)
	contentHandler := handler.NewContentHandler(contentService, versionService)
	mergeHandler := handler.NewMergeHandler(branchService, conflictService, historyRepo)
	rebaseHandler := handler.NewRebaseHandler(rebaseService)

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Metrics())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	routes.Setup(router, branchHandler, contentHandler, mergeHandler, rebaseHandler, jwtManager)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	zlog.Info().Str("addr", addr).Msg("starting server")
	if err := router.Run(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// initDB opens the MySQL connection with the pool limits from config.
// TranslateError is required so unique-key violations surface as
// gorm.ErrDuplicatedKey for the version timestamp retry.
func initDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.Database.GetDSN()), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Database.MaxOpen > 0 {
		sqlDB.SetMaxOpenConns(cfg.Database.MaxOpen)
	}
	if cfg.Database.MaxIdle > 0 {
		sqlDB.SetMaxIdleConns(cfg.Database.MaxIdle)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}
