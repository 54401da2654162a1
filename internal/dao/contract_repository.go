package dao

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/haierkeys/contract-version-service/internal/domain"
	"github.com/haierkeys/contract-version-service/internal/model"
	"github.com/haierkeys/contract-version-service/pkg/logger"
	"github.com/jinzhu/copier"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NewContractKey 新合同创建统一在该 key 上串行化
const NewContractKey int64 = 0

const clauseBatchSize = 100

// contractRepository 实现 domain.ContractStore 接口
type contractRepository struct {
	dao    *Dao
	logger *zap.Logger
}

var _ domain.ContractStore = (*contractRepository)(nil)

// NewContractRepository 创建 ContractStore 实例
func NewContractRepository(dao *Dao) domain.ContractStore {
	return &contractRepository{dao: dao, logger: dao.Logger()}
}

// db 读连接，配置副本时由 dbresolver 路由
func (r *contractRepository) db(ctx context.Context) *gorm.DB {
	return r.dao.Db.WithContext(ctx)
}

// StoreNewContract 写入合同行、全部 v1 条款行和 v1 版本元数据
func (r *contractRepository) StoreNewContract(ctx context.Context, nc *domain.NewContract) (*domain.Contract, error) {
	if err := validateExtracted(nc.Clauses); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var created model.Contract

	err := r.dao.ExecuteWrite(ctx, NewContractKey, func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.Contract{}).Where("content_hash = ?", nc.ContentHash).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrDuplicateContract
		}

		created = model.Contract{
			Filename:       nc.Filename,
			ContentHash:    nc.ContentHash,
			CurrentVersion: 1,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}

		ids := make([]string, 0, len(nc.Clauses))
		rows := make([]*model.Clause, 0, len(nc.Clauses))
		for i, c := range nc.Clauses {
			meta, err := encodeMetadata(c.Metadata)
			if err != nil {
				return err
			}
			rows = append(rows, &model.Clause{
				ContractID:    created.ID,
				Identifier:    c.Identifier,
				Label:         c.Identifier,
				Content:       c.Text,
				ClauseVersion: 1,
				Position:      i,
				Metadata:      meta,
				CreatedAt:     now,
			})
			ids = append(ids, c.Identifier)
		}
		if len(rows) > 0 {
			if err := tx.CreateInBatches(rows, clauseBatchSize).Error; err != nil {
				return err
			}
		}

		changed, err := sonic.MarshalString(sortedCopy(ids))
		if err != nil {
			return err
		}
		return tx.Create(&model.VersionMetadata{
			ContractID:     created.ID,
			Version:        1,
			ContentHash:    nc.ContentHash,
			Filename:       nc.Filename,
			ChangedClauses: changed,
			AddedCount:     len(rows),
			CreatedAt:      now,
		}).Error
	})
	if err != nil {
		return nil, r.translate("store_new_contract", 0, err)
	}

	r.logger.Info("contract created",
		zap.Int64(logger.FieldContractID, created.ID),
		zap.String(logger.FieldHash, created.ContentHash),
		zap.Int("clauses", len(nc.Clauses)))

	return r.contractToDomain(&created), nil
}

// StoreContractVersion 原子写入修改/新增/删除行、版本元数据并推进 current_version
// 所有校验在写入前完成，失败时不落任何数据
func (r *contractRepository) StoreContractVersion(ctx context.Context, commit *domain.VersionCommit) (*domain.Contract, error) {
	if err := validateCommit(commit); err != nil {
		return nil, err
	}

	var updated model.Contract

	err := r.dao.ExecuteWrite(ctx, commit.ContractID, func(tx *gorm.DB) error {
		q := tx.Model(&model.Contract{})
		if tx.Dialector.Name() != "sqlite" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var current model.Contract
		if err := q.Where("id = ?", commit.ContractID).First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrContractNotFound
			}
			return err
		}

		if current.CurrentVersion != commit.ExpectedVersion {
			return &domain.SequentialVersionViolation{
				ContractID: commit.ContractID,
				Expected:   current.CurrentVersion + 1,
				Actual:     commit.NewVersion,
			}
		}

		var last int64
		if err := tx.Model(&model.VersionMetadata{}).
			Where("contract_id = ?", commit.ContractID).
			Select("COALESCE(MAX(version), 0)").Scan(&last).Error; err != nil {
			return err
		}
		if last != current.CurrentVersion {
			return &domain.SequentialVersionViolation{
				ContractID: commit.ContractID,
				Expected:   current.CurrentVersion,
				Actual:     last,
			}
		}

		if err := r.checkDeletions(tx, commit, current.CurrentVersion); err != nil {
			return err
		}

		now := time.Now().UTC()
		rows := make([]*model.Clause, 0, len(commit.Rows))
		for _, c := range commit.Rows {
			m, err := r.clauseToModel(c, now)
			if err != nil {
				return err
			}
			rows = append(rows, m)
		}
		if len(rows) > 0 {
			if err := tx.CreateInBatches(rows, clauseBatchSize).Error; err != nil {
				return err
			}
		}

		meta := commit.Metadata
		changed, err := sonic.MarshalString(sortedCopy(meta.ChangedClauses))
		if err != nil {
			return err
		}
		createdAt := meta.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		if err := tx.Create(&model.VersionMetadata{
			ContractID:     commit.ContractID,
			Version:        commit.NewVersion,
			ContentHash:    commit.ContentHash,
			Filename:       commit.Filename,
			ChangedClauses: changed,
			ModifiedCount:  meta.ModifiedCount,
			AddedCount:     meta.AddedCount,
			DeletedCount:   meta.DeletedCount,
			UnchangedCount: meta.UnchangedCount,
			Degraded:       meta.Degraded,
			CreatedAt:      createdAt.UTC(),
		}).Error; err != nil {
			return err
		}

		updates := map[string]any{
			"current_version": commit.NewVersion,
			"updated_at":      now,
		}
		if commit.ContentHash != "" {
			updates["content_hash"] = commit.ContentHash
		}
		if commit.Filename != "" {
			updates["filename"] = commit.Filename
		}
		res := tx.Model(&model.Contract{}).
			Where("id = ? AND current_version = ?", commit.ContractID, current.CurrentVersion).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return &domain.SequentialVersionViolation{
				ContractID: commit.ContractID,
				Expected:   current.CurrentVersion + 1,
				Actual:     commit.NewVersion,
			}
		}

		return tx.Where("id = ?", commit.ContractID).First(&updated).Error
	})
	if err != nil {
		return nil, r.translate("store_contract_version", commit.ContractID, err)
	}

	r.logger.Info("contract version committed",
		zap.Int64(logger.FieldContractID, commit.ContractID),
		zap.Int64(logger.FieldVersion, commit.NewVersion),
		zap.Int("rows", len(commit.Rows)))

	return r.contractToDomain(&updated), nil
}

// checkDeletions 删除标记只能指向当前版本仍然存在的条款，新内容行不能与已有行冲突
func (r *contractRepository) checkDeletions(tx *gorm.DB, commit *domain.VersionCommit, current int64) error {
	var deleted []string
	for _, c := range commit.Rows {
		if c.IsDeleted {
			deleted = append(deleted, c.Identifier)
		}
	}
	if len(deleted) == 0 {
		return nil
	}

	var live []model.Clause
	if err := latestRevisions(tx, commit.ContractID, current).
		Where("c.clause_identifier IN ?", deleted).
		Find(&live).Error; err != nil {
		return err
	}
	liveSet := make(map[string]bool, len(live))
	for _, m := range live {
		liveSet[m.Identifier] = true
	}
	for _, id := range deleted {
		if !liveSet[id] {
			return &domain.ReferentialIntegrityViolation{
				ContractID: commit.ContractID,
				Identifier: id,
				Reason:     "deletion marker for a clause that is not live",
			}
		}
	}
	return nil
}

// latestRevisions 每个标识符 clause_version <= bound 的最新行（不含删除标记）
// bound 可以是版本号或子查询
func latestRevisions(db *gorm.DB, contractID int64, bound any) *gorm.DB {
	sub := db.Session(&gorm.Session{NewDB: true}).
		Table(model.TableNameClause+" AS c2").
		Select("MAX(c2.clause_version)").
		Where("c2.contract_id = c.contract_id AND c2.clause_identifier = c.clause_identifier AND c2.clause_version <= (?)", bound)

	return db.Session(&gorm.Session{NewDB: true}).
		Table(model.TableNameClause+" AS c").
		Where("c.contract_id = ? AND c.clause_version = (?) AND c.is_deleted = ?", contractID, sub, false)
}

// GetContract 根据ID获取合同
func (r *contractRepository) GetContract(ctx context.Context, id int64) (*domain.Contract, error) {
	var m model.Contract
	if err := r.db(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrContractNotFound
		}
		return nil, err
	}
	return r.contractToDomain(&m), nil
}

// GetContractByHash 根据内容哈希获取合同，不存在时返回 nil, nil
func (r *contractRepository) GetContractByHash(ctx context.Context, hash string) (*domain.Contract, error) {
	var ms []model.Contract
	if err := r.db(ctx).Where("content_hash = ?", hash).Limit(1).Find(&ms).Error; err != nil {
		return nil, err
	}
	if len(ms) == 0 {
		return nil, nil
	}
	return r.contractToDomain(&ms[0]), nil
}

// GetContractByVersionHash 按版本元数据中记录的内容哈希查找合同，覆盖已被新版本取代的上传
// 不存在时返回 nil, nil
func (r *contractRepository) GetContractByVersionHash(ctx context.Context, hash string) (*domain.Contract, error) {
	var ms []model.VersionMetadata
	err := r.db(ctx).Select("contract_id").
		Where("content_hash = ?", hash).
		Order("contract_id ASC, version DESC").
		Limit(1).
		Find(&ms).Error
	if err != nil {
		return nil, err
	}
	if len(ms) == 0 {
		return nil, nil
	}
	return r.GetContract(ctx, ms[0].ContractID)
}

// ListContracts 按创建时间升序获取全部合同
func (r *contractRepository) ListContracts(ctx context.Context) ([]*domain.Contract, error) {
	var ms []*model.Contract
	if err := r.db(ctx).Order("created_at ASC, id ASC").Find(&ms).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Contract, 0, len(ms))
	for _, m := range ms {
		out = append(out, r.contractToDomain(m))
	}
	return out, nil
}

// ListContractsPage 分页获取合同，最近更新的在前
func (r *contractRepository) ListContractsPage(ctx context.Context, page, pageSize int) ([]*domain.Contract, int64, error) {
	var total int64
	if err := r.db(ctx).Model(&model.Contract{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ms []*model.Contract
	if err := r.db(ctx).Order("updated_at DESC, id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&ms).Error; err != nil {
		return nil, 0, err
	}
	out := make([]*domain.Contract, 0, len(ms))
	for _, m := range ms {
		out = append(out, r.contractToDomain(m))
	}
	return out, total, nil
}

// GetClauses 获取某版本的条款快照，version 为 0 表示当前版本
// 当前版本在同一条语句中读取，读者只会看到迁移前或迁移后的状态
func (r *contractRepository) GetClauses(ctx context.Context, id, version int64) ([]*domain.Clause, error) {
	c, err := r.GetContract(ctx, id)
	if err != nil {
		return nil, err
	}

	var bound any = version
	if version == 0 {
		bound = r.db(ctx).Model(&model.Contract{}).Select("current_version").Where("id = ?", id)
	} else if version < 1 || version > c.CurrentVersion {
		return nil, domain.ErrVersionNotFound
	}

	var ms []*model.Clause
	if err := latestRevisions(r.db(ctx), id, bound).Find(&ms).Error; err != nil {
		return nil, err
	}
	out, err := r.clausesToDomain(ms)
	if err != nil {
		return nil, err
	}
	return domain.SelectSnapshot(out, maxVersion(out)), nil
}

// GetVersionHistory 按版本升序获取版本元数据
func (r *contractRepository) GetVersionHistory(ctx context.Context, id int64) ([]*domain.VersionMetadata, error) {
	if _, err := r.GetContract(ctx, id); err != nil {
		return nil, err
	}

	var ms []*model.VersionMetadata
	if err := r.db(ctx).Where("contract_id = ?", id).Order("version ASC").Find(&ms).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.VersionMetadata, 0, len(ms))
	for _, m := range ms {
		v, err := r.versionToDomain(m)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// LastVersion 获取最后记录的版本号，没有则为 0
func (r *contractRepository) LastVersion(ctx context.Context, id int64) (int64, error) {
	var last int64
	err := r.db(ctx).Model(&model.VersionMetadata{}).
		Where("contract_id = ?", id).
		Select("COALESCE(MAX(version), 0)").Scan(&last).Error
	return last, err
}

// translate 领域错误原样返回，驱动错误包装为可重试的事务错误
func (r *contractRepository) translate(op string, contractID int64, err error) error {
	var (
		seq *domain.SequentialVersionViolation
		ref *domain.ReferentialIntegrityViolation
	)
	switch {
	case errors.As(err, &seq), errors.As(err, &ref),
		errors.Is(err, domain.ErrContractNotFound),
		errors.Is(err, domain.ErrDuplicateContract),
		errors.Is(err, domain.ErrInvalidClauseSet),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		r.logger.Warn("contract write rejected",
			zap.String(logger.FieldAction, op),
			zap.Int64(logger.FieldContractID, contractID),
			zap.Error(err))
		return err
	case errors.Is(err, gorm.ErrDuplicatedKey):
		// 唯一索引冲突只可能来自内容哈希
		return domain.ErrDuplicateContract
	}

	r.logger.Error("contract write rolled back",
		zap.String(logger.FieldAction, op),
		zap.Int64(logger.FieldContractID, contractID),
		zap.Error(err))
	return &domain.StorageTransactionError{Op: op, ContractID: contractID, Err: err}
}

func (r *contractRepository) contractToDomain(m *model.Contract) *domain.Contract {
	c := &domain.Contract{}
	_ = copier.Copy(c, m)
	return c
}

func (r *contractRepository) clauseToDomain(m *model.Clause) (*domain.Clause, error) {
	c := &domain.Clause{}
	if err := copier.Copy(c, m); err != nil {
		return nil, err
	}
	meta, err := decodeMetadata(m.Metadata)
	if err != nil {
		return nil, err
	}
	c.Metadata = meta
	return c, nil
}

func (r *contractRepository) clausesToDomain(ms []*model.Clause) ([]*domain.Clause, error) {
	out := make([]*domain.Clause, 0, len(ms))
	for _, m := range ms {
		c, err := r.clauseToDomain(m)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *contractRepository) clauseToModel(c *domain.Clause, now time.Time) (*model.Clause, error) {
	meta, err := encodeMetadata(c.Metadata)
	if err != nil {
		return nil, err
	}
	m := &model.Clause{
		ContractID:    c.ContractID,
		Identifier:    c.Identifier,
		Label:         c.Label,
		Content:       c.Content,
		ClauseVersion: c.ClauseVersion,
		Position:      c.Position,
		IsDeleted:     c.IsDeleted,
		Metadata:      meta,
		CreatedAt:     now,
	}
	if c.IsDeleted {
		at := now
		if c.DeletedAt != nil {
			at = c.DeletedAt.UTC()
		}
		m.DeletedAt = &at
	}
	return m, nil
}

func (r *contractRepository) versionToDomain(m *model.VersionMetadata) (*domain.VersionMetadata, error) {
	v := &domain.VersionMetadata{}
	if err := copier.Copy(v, m); err != nil {
		return nil, err
	}
	v.ChangedClauses = []string{}
	if m.ChangedClauses != "" {
		if err := sonic.UnmarshalString(m.ChangedClauses, &v.ChangedClauses); err != nil {
			return nil, err
		}
	}
	return v, nil
}
