package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// AttachmentService stores incident photos and similar evidence files in
// object storage. Requests only carry the resulting URL; nothing in the
// workflow reads the file back.
type AttachmentService struct {
	minioClient *minio.Client
	bucketName  string
}

func NewAttachmentService(minioClient *minio.Client, bucketName string) *AttachmentService {
	return &AttachmentService{minioClient: minioClient, bucketName: bucketName}
}

// Upload 上传附件
func (s *AttachmentService) Upload(ctx context.Context, reader io.Reader, fileName string, fileSize int64, contentType string) (string, error) {
	if s.minioClient == nil {
		return "", fmt.Errorf("object storage not configured")
	}

	objectName := fmt.Sprintf("attachments/%s/%s%s",
		time.Now().Format("2006/01/02"), uuid.New().String()[:8], filepath.Ext(fileName))

	_, err := s.minioClient.PutObject(ctx, s.bucketName, objectName, reader, fileSize, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload file: %w", err)
	}

	url, err := s.minioClient.PresignedGetObject(ctx, s.bucketName, objectName, 7*24*time.Hour, nil)
	if err != nil {
		return "", fmt.Errorf("presign url: %w", err)
	}
	return url.String(), nil
}
