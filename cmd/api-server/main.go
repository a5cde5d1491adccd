package main

import (
	"fmt"
	"log"

	_ "github.com/Aayushstha1/school-mgmt-api/api/swagger"
	"github.com/Aayushstha1/school-mgmt-api/internal/handler"
	"github.com/Aayushstha1/school-mgmt-api/internal/repository"
	"github.com/Aayushstha1/school-mgmt-api/internal/service"
	"github.com/Aayushstha1/school-mgmt-api/pkg/cache"
	"github.com/Aayushstha1/school-mgmt-api/pkg/config"
	"github.com/Aayushstha1/school-mgmt-api/pkg/database"
	"github.com/Aayushstha1/school-mgmt-api/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// @title School Management API
// @version 1.0.0
// @description Exam results with an approval workflow, grading and academic calendar management
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, result cache disabled", zap.Error(err))
			cfg.Cache.Enabled = false
		} else {
			defer redisClient.Close()
		}
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	examRepo := repository.NewExamRepository(db)
	resultRepo := repository.NewResultRepository(db)
	yearRepo := repository.NewAcademicYearRepository(db)

	var cacheRepo *repository.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient)
	}

	metricsService := service.NewMetricsService()

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:             cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})

	var resultCache service.ResultCacheConfig
	resultCache.Enabled = cfg.Cache.Enabled
	resultCache.TTL = cfg.Cache.TTL

	var resultService *service.ResultService
	if cacheRepo != nil {
		resultService = service.NewResultService(resultRepo, examRepo, studentRepo, cacheRepo, userRepo, validate, logr, resultCache)
	} else {
		resultService = service.NewResultService(resultRepo, examRepo, studentRepo, nil, userRepo, validate, logr, resultCache)
	}
	resultService = resultService.WithMetrics(metricsService)

	examService := service.NewExamService(examRepo, subjectRepo, validate, logr)
	yearService := service.NewAcademicYearService(yearRepo, validate, logr)

	router := handler.NewRouter(cfg, logr, handler.RouterDeps{
		Auth:    authService,
		Results: resultService,
		Exams:   examService,
		Years:   yearService,
		Metrics: metricsService,
		DB:      db,
		Redis:   redisClient,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := router.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
