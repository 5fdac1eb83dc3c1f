package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"online_edu_backend/internal/config"
	"online_edu_backend/internal/util"
	"online_edu_backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// StorageService 课时视频的存储后端，支持本地磁盘和 MinIO 两种模式。
// 上传时顺带用 ffmpeg 探测时长，写进课时记录。
type StorageService struct {
	cfg   *config.StorageConfig
	minio *minio.Client
}

func NewStorageService(cfg *config.StorageConfig) (*StorageService, error) {
	s := &StorageService{cfg: cfg}
	if cfg.Type == util.StorageMinio {
		client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
			Creds: credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		})
		if err != nil {
			return nil, fmt.Errorf("初始化 MinIO 客户端失败: %w", err)
		}
		s.minio = client

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		exists, err := client.BucketExists(ctx, cfg.MinioBucket)
		if err != nil {
			return nil, fmt.Errorf("检查 MinIO 存储桶失败: %w", err)
		}
		if !exists {
			if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
				return nil, fmt.Errorf("创建 MinIO 存储桶失败: %w", err)
			}
		}
	}
	return s, nil
}

func validateVideoExtension(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range util.AllowedVideoExtensions {
		if ext == allowed {
			return nil
		}
	}
	return errors.New("不支持的视频格式: " + ext)
}

// SaveLessonVideo 落盘课时视频并探测元数据。
// 文件先写到临时路径探测，再按存储模式归档。
func (s *StorageService) SaveLessonVideo(ctx context.Context, file *multipart.FileHeader) (string, *util.VideoInfo, error) {
	if err := validateVideoExtension(file.Filename); err != nil {
		return "", nil, err
	}

	src, err := file.Open()
	if err != nil {
		return "", nil, err
	}
	defer src.Close()

	if _, err := util.ValidateMimeType(src, []string{util.MimeVideo}); err != nil {
		return "", nil, err
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", nil, err
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	objectKey := fmt.Sprintf("lessons/%s%s", uuid.NewString(), ext)

	tmp, err := os.CreateTemp("", "lesson-video-*"+ext)
	if err != nil {
		return "", nil, err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return "", nil, err
	}
	tmp.Close()

	info, err := util.GetVideoInfo(tmpPath)
	if err != nil {
		logger.Log.Warn("视频元数据探测失败，时长按 0 处理", zap.Error(err))
		info = &util.VideoInfo{Size: file.Size}
	}

	switch s.cfg.Type {
	case util.StorageMinio:
		_, err = s.minio.FPutObject(ctx, s.cfg.MinioBucket, objectKey, tmpPath, minio.PutObjectOptions{
			ContentType: file.Header.Get("Content-Type"),
		})
		if err != nil {
			return "", nil, fmt.Errorf("上传视频到 MinIO 失败: %w", err)
		}
	default:
		dst := filepath.Join(s.cfg.LocalPath, objectKey)
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return "", nil, err
		}
		if err := copyFile(tmpPath, dst); err != nil {
			return "", nil, err
		}
	}

	return objectKey, info, nil
}

// VideoURL 返回可供播放端访问的地址。MinIO 走限时预签名链接。
func (s *StorageService) VideoURL(ctx context.Context, objectKey string) (string, error) {
	if objectKey == "" {
		return "", errors.New("empty object key")
	}
	if s.cfg.Type == util.StorageMinio {
		u, err := s.minio.PresignedGetObject(ctx, s.cfg.MinioBucket, objectKey, 2*time.Hour, nil)
		if err != nil {
			return "", err
		}
		return u.String(), nil
	}
	return "/static/" + objectKey, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}
