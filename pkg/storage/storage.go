// Package storage 原始上传文件的归档存储
package storage

import (
	"context"

	"github.com/haierkeys/contract-version-service/pkg/code"
	"github.com/haierkeys/contract-version-service/pkg/storage/aws_s3"
	"github.com/haierkeys/contract-version-service/pkg/storage/local_fs"
	"go.uber.org/zap"
)

type Type = string
type CloudType = Type

const LOCAL Type = "localfs"
const S3 CloudType = "s3"
const R2 CloudType = "r2"
const MinIO CloudType = "minio"

var StorageTypeMap = map[Type]bool{
	LOCAL: true,
	S3:    true,
	R2:    true,
	MinIO: true,
}

// Config Unified storage configuration
// Config 统一存储配置
type Config struct {
	Type       Type   `yaml:"type" default:"localfs"`
	IsEnabled  bool   `yaml:"is-enable" default:"true"`
	CustomPath string `yaml:"custom-path"`

	// Cloud Storage (S3/MinIO/R2)
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	BucketName      string `yaml:"bucket-name"`
	AccessKeyID     string `yaml:"access-key-id"`
	AccessKeySecret string `yaml:"access-key-secret"`
	AccountID       string `yaml:"account-id"` // Cloudflare R2 specific

	// Local FS
	SavePath string `yaml:"save-path" default:"storage/archive"`
}

// Storager stores archived upload bytes by key
// Storager 按 key 存取归档内容
type Storager interface {
	SendContent(ctx context.Context, pathKey string, content []byte) (string, error)
	GetContent(ctx context.Context, pathKey string) ([]byte, error)
	Exists(ctx context.Context, pathKey string) (bool, error)
	Delete(ctx context.Context, pathKey string) error
}

// NewClient creates the storage backend selected by config.Type
// NewClient 根据 config.Type 创建存储后端
func NewClient(config *Config, logger *zap.Logger) (Storager, error) {
	if config == nil || !StorageTypeMap[config.Type] {
		return nil, code.ErrorInvalidStorageType
	}
	if !config.IsEnabled {
		return nil, code.ErrorStorageNotEnabled
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	switch config.Type {
	case LOCAL:
		return local_fs.NewClient(&local_fs.Config{
			SavePath:   config.SavePath,
			CustomPath: config.CustomPath,
		})
	default:
		cfg := &aws_s3.Config{
			Endpoint:        config.Endpoint,
			Region:          config.Region,
			BucketName:      config.BucketName,
			AccessKeyID:     config.AccessKeyID,
			AccessKeySecret: config.AccessKeySecret,
			CustomPath:      config.CustomPath,
		}
		switch config.Type {
		case R2:
			cfg.Endpoint = "https://" + config.AccountID + ".r2.cloudflarestorage.com"
			cfg.Region = "auto"
		case MinIO:
			cfg.UsePathStyle = true
		}
		return aws_s3.NewClient(context.Background(), cfg, aws_s3.WithLogger(logger))
	}
}
