package service

import (
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/plantsafe/ppeflow/internal/config"
	"github.com/plantsafe/ppeflow/internal/ppe/repository"
	"github.com/plantsafe/ppeflow/internal/shared/notify"
)

// Services 服务集合
type Services struct {
	Auth       *AuthService
	Workflow   *WorkflowService
	Inventory  *InventoryService
	Budget     *BudgetService
	Analytics  *AnalyticsService
	Attachment *AttachmentService
}

// NewServices 创建服务集合
func NewServices(db *gorm.DB, repos *repository.Repositories, rdb *redis.Client, dispatcher notify.Dispatcher, cfg *config.Config, logger *zap.Logger) *Services {
	var minioClient *minio.Client
	if cfg.MinIO.Endpoint != "" {
		var err error
		minioClient, err = minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			logger.Warn("minio client init failed, attachments disabled", zap.Error(err))
			minioClient = nil
		}
	}

	budget := NewBudgetService(repos, logger)

	return &Services{
		Auth:       NewAuthService(repos.User, rdb, cfg),
		Workflow:   NewWorkflowService(db, repos, budget, dispatcher, logger),
		Inventory:  NewInventoryService(repos, logger),
		Budget:     budget,
		Analytics:  NewAnalyticsService(repos),
		Attachment: NewAttachmentService(minioClient, cfg.MinIO.Bucket),
	}
}
