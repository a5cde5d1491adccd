package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/Aayushstha1/school-mgmt-api/internal/middleware"
	"github.com/Aayushstha1/school-mgmt-api/internal/models"
	"github.com/Aayushstha1/school-mgmt-api/internal/service"
	"github.com/Aayushstha1/school-mgmt-api/pkg/config"
	"github.com/Aayushstha1/school-mgmt-api/pkg/logger"
	corsmiddleware "github.com/Aayushstha1/school-mgmt-api/pkg/middleware/cors"
	reqidmiddleware "github.com/Aayushstha1/school-mgmt-api/pkg/middleware/requestid"
)

// RouterDeps collects the wired services the router mounts.
type RouterDeps struct {
	Auth    *service.AuthService
	Results *service.ResultService
	Exams   *service.ExamService
	Years   *service.AcademicYearService
	Metrics *service.MetricsService
	DB      *sqlx.DB
	Redis   *redis.Client
}

// NewRouter builds the gin engine with all middleware and routes mounted.
func NewRouter(cfg *config.Config, logr *zap.Logger, deps RouterDeps) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		status := http.StatusOK
		checks := gin.H{"database": "ok", "cache": "ok"}
		if deps.DB != nil {
			if err := deps.DB.PingContext(c.Request.Context()); err != nil {
				checks["database"] = "down"
				status = http.StatusServiceUnavailable
			}
		}
		if deps.Redis != nil {
			if err := deps.Redis.Ping(c.Request.Context()).Err(); err != nil {
				checks["cache"] = "down"
				status = http.StatusServiceUnavailable
			}
		}
		c.JSON(status, checks)
	})

	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := NewAuthHandler(deps.Auth)
	resultHandler := NewResultHandler(deps.Results, cfg.Exports.Enabled)
	examHandler := NewExamHandler(deps.Exams)
	yearHandler := NewAcademicYearHandler(deps.Years)

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	authed := api.Group("")
	authed.Use(middleware.JWT(deps.Auth))

	authed.POST("/auth/logout", authHandler.Logout)
	authed.POST("/auth/change-password", authHandler.ChangePassword)
	authed.GET("/auth/me", authHandler.Me)

	results := authed.Group("/results")
	results.GET("", resultHandler.List)
	results.GET("/:id", resultHandler.Get)
	results.POST("", middleware.RequireRoles(models.RoleTeacher), resultHandler.Create)
	results.PUT("/:id", middleware.RequireRoles(models.RoleTeacher), resultHandler.Update)
	results.POST("/publish", middleware.RequireRoles(models.RoleTeacher), resultHandler.Publish)
	results.POST("/approve", middleware.RequireRoles(models.RoleAdmin), resultHandler.Review)
	results.GET("/export", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), resultHandler.Export)

	exams := authed.Group("/exams")
	exams.GET("", examHandler.List)
	exams.GET("/:id", examHandler.Get)
	exams.POST("", middleware.RequireRoles(models.RoleAdmin), examHandler.Create)
	exams.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), examHandler.Update)
	exams.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), examHandler.Delete)

	authed.GET("/subjects", examHandler.ListSubjects)

	years := authed.Group("/academic-years")
	years.GET("", yearHandler.ListYears)
	years.GET("/:id", yearHandler.GetYear)
	years.POST("", middleware.RequireRoles(models.RoleAdmin), yearHandler.CreateYear)
	years.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), yearHandler.UpdateYear)
	years.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), yearHandler.DeleteYear)

	semesters := authed.Group("/semesters")
	semesters.GET("", yearHandler.ListSemesters)
	semesters.GET("/:id", yearHandler.GetSemester)
	semesters.POST("", middleware.RequireRoles(models.RoleAdmin), yearHandler.CreateSemester)
	semesters.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), yearHandler.UpdateSemester)
	semesters.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), yearHandler.DeleteSemester)

	return r
}
