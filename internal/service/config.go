// Package service implements the business logic layer
// Package service 实现业务逻辑层
package service

import "github.com/haierkeys/contract-version-service/pkg/clausediff"

// DefaultFilenameThreshold minimum filename similarity for an identity candidate
// DefaultFilenameThreshold 文件名相似度候选阈值
const DefaultFilenameThreshold = 0.8

// ServiceConfig service layer configuration
// ServiceConfig 服务层配置
type ServiceConfig struct {
	Identity IdentityServiceConfig // Identity detection config // 身份识别配置
	Compare  CompareServiceConfig  // Comparator thresholds // 比对阈值
	App      AppServiceConfig      // App related config // 应用相关配置
}

// IdentityServiceConfig identity service configuration
// IdentityServiceConfig 身份识别服务配置
type IdentityServiceConfig struct {
	FilenameThreshold float64 // Minimum filename similarity (0,1] // 文件名相似度阈值
}

// CompareServiceConfig comparator configuration
// CompareServiceConfig 条款比对配置
type CompareServiceConfig struct {
	UnchangedThreshold float64 // Similarity treated as unchanged // 视为未变更的相似度
	MatchThreshold     float64 // Minimum similarity for text pairing // 文本配对最低相似度
}

// AppServiceConfig app service configuration
// AppServiceConfig 应用服务配置
type AppServiceConfig struct {
	ArchivePrefix string // Archive key prefix, default "contracts" // 归档键前缀
}

// DefaultServiceConfig 默认服务配置
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		Identity: IdentityServiceConfig{FilenameThreshold: DefaultFilenameThreshold},
		Compare: CompareServiceConfig{
			UnchangedThreshold: clausediff.DefaultUnchangedThreshold,
			MatchThreshold:     clausediff.DefaultMatchThreshold,
		},
		App: AppServiceConfig{ArchivePrefix: "contracts"},
	}
}

// options comparator options derived from the config
func (c CompareServiceConfig) options() clausediff.Options {
	return clausediff.Options{
		UnchangedThreshold: c.UnchangedThreshold,
		MatchThreshold:     c.MatchThreshold,
	}
}

func (c IdentityServiceConfig) threshold() float64 {
	if c.FilenameThreshold <= 0 || c.FilenameThreshold > 1 {
		return DefaultFilenameThreshold
	}
	return c.FilenameThreshold
}
