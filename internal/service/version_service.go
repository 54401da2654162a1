package service

import (
	"context"
	"strconv"
	"time"

	"github.com/haierkeys/contract-version-service/internal/domain"
	"github.com/haierkeys/contract-version-service/pkg/clausediff"
	"github.com/haierkeys/contract-version-service/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// VersionService defines the version manager interface
// VersionService 定义版本管理接口
type VersionService interface {
	// NextVersion returns current_version+1 after checking the recorded version chain
	// NextVersion 校验版本链后返回下一个版本号
	NextVersion(ctx context.Context, contract *domain.Contract) (int64, error)

	// AssignVersions turns a diff into the rows and metadata of one version transition
	// AssignVersions 将比对结果转换为一次版本迁移的写入内容
	AssignVersions(contract *domain.Contract, diff *clausediff.Diff, newVersion int64, hash, filename string) *domain.VersionCommit

	// Reconstruct rebuilds the clause set of a version, 0 means current
	// Reconstruct 重建指定版本的条款快照，0 表示当前版本
	Reconstruct(ctx context.Context, contractID, version int64) ([]*domain.Clause, error)

	// CompareVersions diffs two historical versions
	// CompareVersions 对比两个历史版本
	CompareVersions(ctx context.Context, contractID, from, to int64) (*clausediff.Diff, error)

	// History lists the version metadata in ascending order
	// History 获取版本元数据列表
	History(ctx context.Context, contractID int64) ([]*domain.VersionMetadata, error)
}

type versionService struct {
	store   domain.ContractStore // Contract store // 合同存储
	sf      *singleflight.Group  // Singleflight group // 并发请求合并组
	logger  *zap.Logger          // Logger // 日志对象
	metrics *Metrics             // Metrics // 指标
	config  CompareServiceConfig // Comparator thresholds // 比对阈值
	now     func() time.Time
}

// NewVersionService creates VersionService instance
// NewVersionService 创建 VersionService 实例
func NewVersionService(store domain.ContractStore, lg *zap.Logger, metrics *Metrics, config *CompareServiceConfig) VersionService {
	if lg == nil {
		lg = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	cfg := DefaultServiceConfig().Compare
	if config != nil {
		cfg = *config
	}
	return &versionService{
		store:   store,
		sf:      &singleflight.Group{},
		logger:  lg,
		metrics: metrics,
		config:  cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *versionService) NextVersion(ctx context.Context, contract *domain.Contract) (int64, error) {
	last, err := s.store.LastVersion(ctx, contract.ID)
	if err != nil {
		return 0, err
	}
	if last != contract.CurrentVersion {
		s.logger.Error("version chain out of step",
			zap.Int64(logger.FieldContractID, contract.ID),
			zap.Int64(logger.FieldVersion, contract.CurrentVersion),
			zap.Int64("lastRecorded", last))
		return 0, &domain.SequentialVersionViolation{
			ContractID: contract.ID,
			Expected:   contract.CurrentVersion,
			Actual:     last,
		}
	}
	return contract.CurrentVersion + 1, nil
}

// AssignVersions unchanged clauses produce no row; modified and added ones get a
// content row at newVersion; deleted ones get a marker carrying the prior content.
// AssignVersions 纯函数：unchanged 不写行，modified/added 写新内容行，deleted 写删除标记
func (s *versionService) AssignVersions(contract *domain.Contract, diff *clausediff.Diff, newVersion int64, hash, filename string) *domain.VersionCommit {
	now := s.now()
	rows := make([]*domain.Clause, 0, len(diff.Modified)+len(diff.Added)+len(diff.Deleted))

	for _, list := range [][]clausediff.Change{diff.Modified, diff.Added} {
		for _, c := range list {
			rows = append(rows, &domain.Clause{
				ContractID:    contract.ID,
				Identifier:    c.Identifier,
				Label:         c.Label,
				Content:       c.NewText,
				ClauseVersion: newVersion,
				Position:      c.Position,
				Metadata:      c.Metadata,
				CreatedAt:     now,
			})
		}
	}
	for _, c := range diff.Deleted {
		deletedAt := now
		rows = append(rows, &domain.Clause{
			ContractID:    contract.ID,
			Identifier:    c.Identifier,
			Content:       c.OldText,
			ClauseVersion: newVersion,
			Position:      c.OldPosition,
			IsDeleted:     true,
			DeletedAt:     &deletedAt,
			Metadata:      c.Metadata,
			CreatedAt:     now,
		})
	}

	return &domain.VersionCommit{
		ContractID:      contract.ID,
		ExpectedVersion: contract.CurrentVersion,
		NewVersion:      newVersion,
		ContentHash:     hash,
		Filename:        filename,
		Rows:            rows,
		Metadata: &domain.VersionMetadata{
			ContractID:     contract.ID,
			Version:        newVersion,
			ContentHash:    hash,
			Filename:       filename,
			ChangedClauses: diff.ChangedIdentifiers(),
			ModifiedCount:  len(diff.Modified),
			AddedCount:     len(diff.Added),
			DeletedCount:   len(diff.Deleted),
			UnchangedCount: len(diff.Unchanged),
			Degraded:       diff.Degraded,
			CreatedAt:      now,
		},
	}
}

// Reconstruct 同一 (合同, 版本) 的并发重建合并为一次读取，返回结果只读
func (s *versionService) Reconstruct(ctx context.Context, contractID, version int64) ([]*domain.Clause, error) {
	c, err := s.store.GetContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if version == 0 {
		version = c.CurrentVersion
	}
	if version < 1 || version > c.CurrentVersion {
		return nil, domain.ErrVersionNotFound
	}

	key := strconv.FormatInt(contractID, 10) + ":" + strconv.FormatInt(version, 10)
	// 合并后的读取不随首个调用方取消
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.sf.Do(key, func() (any, error) {
		start := time.Now()
		snapshot, err := s.store.GetClauses(shared, contractID, version)
		if err != nil {
			return nil, err
		}
		s.metrics.ReconstructDuration.Observe(time.Since(start).Seconds())
		return snapshot, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*domain.Clause), nil
}

func (s *versionService) CompareVersions(ctx context.Context, contractID, from, to int64) (*clausediff.Diff, error) {
	oldSet, err := s.Reconstruct(ctx, contractID, from)
	if err != nil {
		return nil, err
	}
	newSet, err := s.Reconstruct(ctx, contractID, to)
	if err != nil {
		return nil, err
	}
	return clausediff.Compare(storedClauses(oldSet), storedClauses(newSet), s.config.options()), nil
}

func (s *versionService) History(ctx context.Context, contractID int64) ([]*domain.VersionMetadata, error) {
	if _, err := s.store.GetContract(ctx, contractID); err != nil {
		return nil, err
	}
	return s.store.GetVersionHistory(ctx, contractID)
}

// storedClauses 存储行转换为比对视图
func storedClauses(cs []*domain.Clause) []clausediff.Clause {
	out := make([]clausediff.Clause, 0, len(cs))
	for _, c := range cs {
		out = append(out, clausediff.Clause{
			Identifier: c.Identifier,
			Text:       c.Content,
			Version:    c.ClauseVersion,
			Position:   c.Position,
			Metadata:   c.Metadata,
		})
	}
	return out
}

// extractedClauses 抽取结果转换为比对视图
func extractedClauses(cs []domain.ExtractedClause) []clausediff.Clause {
	out := make([]clausediff.Clause, 0, len(cs))
	for i, c := range cs {
		out = append(out, clausediff.Clause{
			Identifier: c.Identifier,
			Text:       c.Text,
			Position:   i,
			Metadata:   c.Metadata,
		})
	}
	return out
}
