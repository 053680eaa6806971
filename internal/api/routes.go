package api

import (
	"github.com/SlenderjuniorxD/UPDS-TIM/internal/config"
	"github.com/SlenderjuniorxD/UPDS-TIM/internal/extract"
	redisInfra "github.com/SlenderjuniorxD/UPDS-TIM/internal/infra/redis"
	"github.com/SlenderjuniorxD/UPDS-TIM/internal/models"
	"github.com/SlenderjuniorxD/UPDS-TIM/internal/notify"
	"github.com/SlenderjuniorxD/UPDS-TIM/internal/repository"
	"github.com/SlenderjuniorxD/UPDS-TIM/internal/storage"
	"github.com/SlenderjuniorxD/UPDS-TIM/internal/vetting"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	cfg *config.Config,
	submissionsRepo *repository.SubmissionsRepository,
	notificationsRepo *repository.NotificationsRepository,
	vettingSvc *vetting.Service,
	vettingStatus *vetting.RedisStatus,
	notifier *notify.Service,
	fileStore *storage.Client,
	extractor *extract.Client,
	redisClient *redisInfra.Client,
) *gin.Engine {
	router := gin.Default()

	// Create handler
	handler := NewHandler(cfg, submissionsRepo, notificationsRepo, vettingSvc,
		vettingStatus, notifier, fileStore, extractor, redisClient)

	// Create rate limiter
	rateLimiter := NewRateLimiter(cfg.RateLimitRPS, int(cfg.RateLimitRPS*2))

	// Middleware
	router.Use(ErrorHandlerMiddleware())

	// Health endpoint (no auth)
	router.GET("/health", handler.Health)

	// API routes (with auth and rate limiting)
	api := router.Group("/api/v1")
	api.Use(JWTAuthMiddleware(cfg.JWTSecret))
	api.Use(RateLimitMiddleware(rateLimiter))
	{
		api.POST("/submissions", handler.CreateSubmission)
		api.GET("/submissions", handler.ListSubmissions)
		api.GET("/submissions/:id", handler.GetSubmission)
		api.POST("/submissions/:id/file", handler.UploadFile)
		api.POST("/submissions/:id/vet", handler.Vet)
		api.GET("/submissions/:id/vetting-status", handler.VettingStatus)

		api.POST("/submissions/:id/assign",
			RequireRole(models.RoleAdmin), handler.AssignEvaluator)
		api.POST("/submissions/:id/grade",
			RequireRole(models.RoleEvaluator, models.RoleAdmin), handler.GradeSubmission)

		api.GET("/notifications", handler.ListNotifications)
	}

	return router
}
