package service

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ==================== 接口定义 ====================

// StorageProvider 存储提供者接口
type StorageProvider interface {
	// Upload 上传文件，返回访问 URL
	Upload(ctx context.Context, data []byte, key string, contentType string) (url string, err error)

	// Delete 删除文件
	Delete(ctx context.Context, url string) error

	// GetSignedURL 获取签名 URL（私有桶时使用）
	GetSignedURL(ctx context.Context, url string, expires time.Duration) (signedURL string, err error)
}

// ==================== 配置 ====================

type StorageConfig struct {
	Provider  string // "s3" | "local"
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string // S3 兼容存储的自定义端点；local 时为访问前缀
	PublicURL string // 公开访问域名（CDN 或存储自带域名），可选
	BasePath  string // s3 为 key 前缀；local 为落盘目录
}

// ==================== 工厂方法 ====================

func NewStorageProvider(cfg StorageConfig) (StorageProvider, error) {
	switch cfg.Provider {
	case "s3":
		return NewS3Storage(cfg)
	case "local":
		return NewLocalStorage(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage provider: %q", cfg.Provider)
	}
}

// ==================== StorageService ====================

// StorageService 上传文件的统一入口，负责生成 key 与校验
type StorageService struct {
	provider StorageProvider
}

// NewStorageService 创建存储服务
func NewStorageService(cfg StorageConfig) (*StorageService, error) {
	provider, err := NewStorageProvider(cfg)
	if err != nil {
		return nil, err
	}
	return &StorageService{provider: provider}, nil
}

// NewStorageServiceWithProvider 使用已构造的 Provider
func NewStorageServiceWithProvider(provider StorageProvider) *StorageService {
	return &StorageService{provider: provider}
}

// UploadFile 校验并上传文件，folder 为逻辑目录（如 "kyc"、"products"）
func (s *StorageService) UploadFile(ctx context.Context, f UploadableFile, rule UploadRule, folder string) (string, error) {
	if s == nil || s.provider == nil {
		return "", ErrStorageDisabled
	}
	if err := ValidateUpload(f, rule); err != nil {
		return "", err
	}

	data, err := f.ReadBytes()
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}

	url, err := s.provider.Upload(ctx, data, generateKey(folder, f.Name()), baseMime(f.MimeType()))
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", folder, err)
	}
	return url, nil
}

// Delete 删除文件
func (s *StorageService) Delete(ctx context.Context, url string) error {
	if s == nil || s.provider == nil {
		return ErrStorageDisabled
	}
	return s.provider.Delete(ctx, url)
}

// GetSignedURL 获取签名 URL
func (s *StorageService) GetSignedURL(ctx context.Context, url string, expires time.Duration) (string, error) {
	if s == nil || s.provider == nil {
		return "", ErrStorageDisabled
	}
	return s.provider.GetSignedURL(ctx, url, expires)
}

// GetProvider 获取底层 Provider
func (s *StorageService) GetProvider() StorageProvider {
	return s.provider
}

// generateKey folder/yyyy/mm/dd/uuid.ext
func generateKey(folder, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	newFilename := uuid.New().String() + ext

	datePath := time.Now().Format("2006/01/02")
	if folder != "" {
		return fmt.Sprintf("%s/%s/%s", folder, datePath, newFilename)
	}
	return fmt.Sprintf("%s/%s", datePath, newFilename)
}

// ==================== S3 实现 ====================

// S3Storage AWS S3 及 S3 兼容存储（MinIO、R2、Supabase Storage 等）
type S3Storage struct {
	client    *s3.Client
	bucket    string
	publicURL string
	basePath  string
}

func NewS3Storage(cfg StorageConfig) (*S3Storage, error) {
	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" {
		if cfg.Endpoint != "" {
			publicURL = fmt.Sprintf("%s/%s", strings.TrimRight(cfg.Endpoint, "/"), cfg.Bucket)
		} else {
			publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}

	return &S3Storage{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: publicURL,
		basePath:  strings.Trim(cfg.BasePath, "/"),
	}, nil
}

func (s *S3Storage) Upload(ctx context.Context, data []byte, key string, contentType string) (string, error) {
	if s.basePath != "" {
		key = s.basePath + "/" + key
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put object: %w", err)
	}

	return s.publicURL + "/" + key, nil
}

func (s *S3Storage) Delete(ctx context.Context, url string) error {
	key := s.extractKey(url)
	if key == "" {
		return fmt.Errorf("cannot resolve object key from %q", url)
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

func (s *S3Storage) GetSignedURL(ctx context.Context, url string, expires time.Duration) (string, error) {
	key := s.extractKey(url)
	if key == "" {
		return "", fmt.Errorf("cannot resolve object key from %q", url)
	}

	presignClient := s3.NewPresignClient(s.client)
	presigned, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", err
	}

	return presigned.URL, nil
}

// extractKey 从公开 URL 还原 key，非本桶 URL 返回空串
func (s *S3Storage) extractKey(url string) string {
	prefix := s.publicURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return ""
	}
	return strings.TrimPrefix(url, prefix)
}

// ==================== 本地存储 (开发测试用) ====================

type LocalStorage struct {
	basePath string
	baseURL  string
}

func NewLocalStorage(cfg StorageConfig) (*LocalStorage, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "./uploads"
	}
	baseURL := strings.TrimRight(cfg.Endpoint, "/")
	if baseURL == "" {
		baseURL = "http://localhost:8080/uploads"
	}

	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
		baseURL:  baseURL,
	}, nil
}

// BasePath 落盘目录，供路由挂载静态文件
func (s *LocalStorage) BasePath() string {
	return s.basePath
}

func (s *LocalStorage) Upload(ctx context.Context, data []byte, key string, contentType string) (string, error) {
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(path.Clean("/"+key)))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("create dir: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return s.baseURL + path.Clean("/"+key), nil
}

func (s *LocalStorage) Delete(ctx context.Context, rawURL string) error {
	key := strings.TrimPrefix(rawURL, s.baseURL)
	if key == rawURL {
		return fmt.Errorf("cannot resolve file path from %q", rawURL)
	}
	err := os.Remove(filepath.Join(s.basePath, filepath.FromSlash(path.Clean("/"+key))))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// GetSignedURL 本地存储无需签名，附带过期时间参数便于前端一致处理
func (s *LocalStorage) GetSignedURL(ctx context.Context, rawURL string, expires time.Duration) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("expires", fmt.Sprintf("%d", time.Now().Add(expires).Unix()))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
