package service

import (
	"context"
	"errors"
	"path"
	"time"

	"github.com/haierkeys/contract-version-service/internal/domain"
	"github.com/haierkeys/contract-version-service/pkg/clausediff"
	"github.com/haierkeys/contract-version-service/pkg/logger"
	"github.com/haierkeys/contract-version-service/pkg/storage"
	"github.com/haierkeys/contract-version-service/pkg/util"
	"github.com/haierkeys/contract-version-service/pkg/workerpool"
	"go.uber.org/zap"
)

// newContractKey write queue key that serializes first-time ingests
const newContractKey int64 = 0

// IngestOutcome what an ingest did
// IngestOutcome 入库结果类型
type IngestOutcome int

const (
	OutcomeCreated   IngestOutcome = iota // new contract at v1 // 新合同
	OutcomeVersioned                      // new version committed // 新版本
	OutcomeDuplicate                      // identical bytes already stored // 完全重复
	OutcomeUnchanged                      // no clause changed, no version // 条款无变化
)

func (o IngestOutcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeVersioned:
		return "versioned"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeUnchanged:
		return "unchanged"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler
func (o IngestOutcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// IngestResult 单次入库结果
type IngestResult struct {
	Outcome  IngestOutcome    `json:"outcome"`
	Hash     string           `json:"hash"`
	Contract *domain.Contract `json:"contract"`
	Version  int64            `json:"version"`
	Diff     *clausediff.Diff `json:"diff,omitempty"`
	Degraded bool             `json:"degraded"`
}

// BatchResult 批量入库中单个上传的结果
type BatchResult struct {
	Index  int           `json:"index"`
	Result *IngestResult `json:"result,omitempty"`
	Err    error         `json:"-"`
}

// Serializer runs fn as the single writer for key.
// Serializer 按键串行执行写操作
type Serializer interface {
	Execute(ctx context.Context, key int64, fn func(ctx context.Context) error) error
}

// ContractService defines the ingest orchestration interface
// ContractService 定义合同入库编排接口
type ContractService interface {
	// Ingest runs identity detection, comparison, version assignment and commit for one upload
	// Ingest 对单个上传执行身份识别、比对、版本分配与提交
	Ingest(ctx context.Context, upload *domain.Upload) (*IngestResult, error)

	// IngestBatch ingests uploads concurrently, results keep the input order
	// IngestBatch 并发入库，结果与输入顺序一致
	IngestBatch(ctx context.Context, uploads []*domain.Upload) []BatchResult

	// Get 获取合同
	Get(ctx context.Context, id int64) (*domain.Contract, error)

	// List 分页获取合同
	List(ctx context.Context, page, pageSize int) ([]*domain.Contract, int64, error)

	// Archived returns the raw bytes archived under a content hash
	// Archived 按内容哈希读取归档的原始文件，内容与哈希不符时删除该对象
	Archived(ctx context.Context, hash string) ([]byte, error)
}

type contractService struct {
	store    domain.ContractStore // Contract store // 合同存储
	identity IdentityService      // Identity detector // 身份识别
	versions VersionService       // Version manager // 版本管理
	queue    Serializer           // Per-contract writer // 按合同串行写
	pool     *workerpool.Pool     // Worker pool for batches and archive // 工作池
	archive  storage.Storager     // Raw upload archive // 原始文件归档
	metrics  *Metrics             // Metrics // 指标
	logger   *zap.Logger          // Logger // 日志对象
	config   *ServiceConfig       // Service configuration // 服务配置
}

// ContractServiceOption 可选依赖
type ContractServiceOption func(*contractService)

// WithSerializer 设置写队列
func WithSerializer(q Serializer) ContractServiceOption {
	return func(s *contractService) { s.queue = q }
}

// WithWorkerPool 设置工作池
func WithWorkerPool(p *workerpool.Pool) ContractServiceOption {
	return func(s *contractService) { s.pool = p }
}

// WithArchive 设置归档存储
func WithArchive(st storage.Storager) ContractServiceOption {
	return func(s *contractService) { s.archive = st }
}

// WithMetrics 设置指标
func WithMetrics(m *Metrics) ContractServiceOption {
	return func(s *contractService) { s.metrics = m }
}

// NewContractService creates ContractService instance
// NewContractService 创建 ContractService 实例
func NewContractService(store domain.ContractStore, identity IdentityService, versions VersionService, lg *zap.Logger, config *ServiceConfig, opts ...ContractServiceOption) ContractService {
	if lg == nil {
		lg = zap.NewNop()
	}
	if config == nil {
		config = DefaultServiceConfig()
	}
	s := &contractService{
		store:    store,
		identity: identity,
		versions: versions,
		logger:   lg,
		config:   config,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	return s
}

// serialize 没有写队列时直接执行，存储层的事务校验仍然生效
func (s *contractService) serialize(ctx context.Context, key int64, fn func(ctx context.Context) error) error {
	if s.queue == nil {
		return fn(ctx)
	}
	return s.queue.Execute(ctx, key, fn)
}

func validateUpload(upload *domain.Upload) error {
	if upload == nil {
		return domain.ErrInvalidClauseSet
	}
	seen := make(map[string]struct{}, len(upload.Clauses))
	for _, c := range upload.Clauses {
		if c.Identifier == "" {
			return domain.ErrInvalidClauseSet
		}
		if _, ok := seen[c.Identifier]; ok {
			return domain.ErrInvalidClauseSet
		}
		seen[c.Identifier] = struct{}{}
	}
	return nil
}

func (s *contractService) Ingest(ctx context.Context, upload *domain.Upload) (*IngestResult, error) {
	if err := validateUpload(upload); err != nil {
		return nil, err
	}

	res, err := s.ingest(ctx, upload)
	if err != nil {
		outcome := "error"
		var amb *domain.AmbiguousMatchError
		if errors.As(err, &amb) {
			outcome = "ambiguous"
		}
		s.metrics.IngestTotal.WithLabelValues(outcome).Inc()
		s.logger.Warn("ingest failed",
			zap.String(logger.FieldFilename, upload.Filename),
			zap.Int64(logger.FieldContractID, upload.ContractID),
			zap.Error(err))
		return nil, err
	}

	s.metrics.IngestTotal.WithLabelValues(res.Outcome.String()).Inc()
	if res.Outcome == OutcomeCreated || res.Outcome == OutcomeVersioned {
		s.metrics.VersionsCommitted.Inc()
		s.archiveUpload(ctx, res.Hash, upload)
	}
	return res, nil
}

func (s *contractService) ingest(ctx context.Context, upload *domain.Upload) (*IngestResult, error) {
	if upload.ContractID != 0 {
		hash, err := s.identity.HashContent(upload.Filename, upload.Content)
		if err != nil {
			return nil, err
		}
		owners, err := s.identity.FindPotentialMatches(ctx, hash, "")
		if err != nil {
			return nil, err
		}
		if len(owners) > 0 && owners[0].ContractID != upload.ContractID {
			return nil, domain.ErrDuplicateContract
		}
		return s.ingestUpdate(ctx, upload.ContractID, hash, upload)
	}

	det, err := s.identity.Detect(ctx, upload.Content, upload.Filename)
	if err != nil {
		return nil, err
	}

	switch det.Status {
	case IdentityDuplicate:
		c, err := s.store.GetContract(ctx, det.Target())
		if err != nil {
			return nil, err
		}
		return &IngestResult{Outcome: OutcomeDuplicate, Hash: det.Hash, Contract: c, Version: c.CurrentVersion}, nil
	case IdentityAmbiguous:
		return nil, &domain.AmbiguousMatchError{Filename: upload.Filename, Candidates: det.Candidates}
	case IdentityUpdate:
		return s.ingestUpdate(ctx, det.Target(), det.Hash, upload)
	default:
		return s.ingestNew(ctx, det.Hash, upload)
	}
}

// ingestNew 首次入库；并发的相同内容上传只有一个成功，其余视为重复
func (s *contractService) ingestNew(ctx context.Context, hash string, upload *domain.Upload) (*IngestResult, error) {
	var created *domain.Contract
	err := s.serialize(ctx, newContractKey, func(ctx context.Context) error {
		c, err := s.store.StoreNewContract(ctx, &domain.NewContract{
			Filename:    upload.Filename,
			ContentHash: hash,
			Clauses:     upload.Clauses,
		})
		created = c
		return err
	})
	if errors.Is(err, domain.ErrDuplicateContract) {
		c, lookupErr := s.store.GetContractByHash(ctx, hash)
		if lookupErr == nil && c != nil {
			return &IngestResult{Outcome: OutcomeDuplicate, Hash: hash, Contract: c, Version: c.CurrentVersion}, nil
		}
	}
	if err != nil {
		return nil, err
	}

	return &IngestResult{
		Outcome:  OutcomeCreated,
		Hash:     hash,
		Contract: created,
		Version:  created.CurrentVersion,
	}, nil
}

// ingestUpdate 读取、比对、分配、提交在目标合同的写队列内完成
func (s *contractService) ingestUpdate(ctx context.Context, contractID int64, hash string, upload *domain.Upload) (*IngestResult, error) {
	var res *IngestResult
	err := s.serialize(ctx, contractID, func(ctx context.Context) error {
		c, err := s.store.GetContract(ctx, contractID)
		if err != nil {
			return err
		}
		if c.ContentHash == hash {
			res = &IngestResult{Outcome: OutcomeDuplicate, Hash: hash, Contract: c, Version: c.CurrentVersion}
			return nil
		}

		next, err := s.versions.NextVersion(ctx, c)
		if err != nil {
			return err
		}
		current, err := s.store.GetClauses(ctx, c.ID, c.CurrentVersion)
		if err != nil {
			return err
		}

		start := time.Now()
		diff := clausediff.Compare(storedClauses(current), extractedClauses(upload.Clauses), s.config.Compare.options())
		s.metrics.CompareDuration.Observe(time.Since(start).Seconds())

		if diff.Degraded {
			s.logger.Warn("comparison degraded",
				zap.Int64(logger.FieldContractID, c.ID),
				zap.Int("oldClauses", len(current)),
				zap.Int("newClauses", len(upload.Clauses)))
		}
		if !diff.HasChanges() {
			res = &IngestResult{Outcome: OutcomeUnchanged, Hash: hash, Contract: c, Version: c.CurrentVersion, Diff: diff}
			return nil
		}

		filename := upload.Filename
		if filename == "" {
			filename = c.Filename
		}
		commit := s.versions.AssignVersions(c, diff, next, hash, filename)
		updated, err := s.store.StoreContractVersion(ctx, commit)
		if err != nil {
			return err
		}
		res = &IngestResult{
			Outcome:  OutcomeVersioned,
			Hash:     hash,
			Contract: updated,
			Version:  updated.CurrentVersion,
			Diff:     diff,
			Degraded: diff.Degraded,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// archiveKey contracts/<hash[:2]>/<hash>
func (s *contractService) archiveKey(hash string) string {
	prefix := s.config.App.ArchivePrefix
	if prefix == "" {
		prefix = "contracts"
	}
	return path.Join(prefix, hash[:2], hash)
}

// archiveUpload 归档原始字节，失败只记录日志
func (s *contractService) archiveUpload(ctx context.Context, hash string, upload *domain.Upload) {
	if s.archive == nil || len(hash) < 2 {
		return
	}
	key := s.archiveKey(hash)
	content := upload.Content

	task := func(ctx context.Context) error {
		exists, err := s.archive.Exists(ctx, key)
		if err == nil && exists {
			return nil
		}
		if _, err := s.archive.SendContent(ctx, key, content); err != nil {
			s.metrics.ArchiveFailures.Inc()
			s.logger.Warn("archive upload failed",
				zap.String(logger.FieldFileKey, key),
				zap.String(logger.FieldFilename, upload.Filename),
				zap.Error(err))
			return err
		}
		return nil
	}

	ctx = context.WithoutCancel(ctx)
	if s.pool != nil {
		if err := s.pool.SubmitAsync(ctx, task); err == nil {
			return
		}
	}
	_ = task(ctx)
}

func (s *contractService) Archived(ctx context.Context, hash string) ([]byte, error) {
	if s.archive == nil {
		return nil, domain.ErrArchiveDisabled
	}
	if len(hash) < 2 {
		return nil, domain.ErrArchiveNotFound
	}
	key := s.archiveKey(hash)

	exists, err := s.archive.Exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrArchiveNotFound
	}
	content, err := s.archive.GetContent(ctx, key)
	if err != nil {
		return nil, err
	}

	// 损坏的对象被删除，下次相同内容入库时重新归档
	if got, _ := util.EncodeSHA256(content); got != hash {
		s.logger.Warn("archived upload corrupt, removing",
			zap.String(logger.FieldFileKey, key),
			zap.String(logger.FieldHash, hash),
			zap.String("actual", got))
		if err := s.archive.Delete(ctx, key); err != nil {
			return nil, err
		}
		return nil, domain.ErrArchiveNotFound
	}
	return content, nil
}

func (s *contractService) IngestBatch(ctx context.Context, uploads []*domain.Upload) []BatchResult {
	results := make([]BatchResult, len(uploads))
	run := func(ctx context.Context, i int) error {
		res, err := s.Ingest(ctx, uploads[i])
		results[i] = BatchResult{Index: i, Result: res, Err: err}
		return err
	}

	if s.pool == nil {
		for i := range uploads {
			_ = run(ctx, i)
		}
		return results
	}

	errs := s.pool.RunAll(ctx, len(uploads), run)
	for i, err := range errs {
		// 未被执行的任务（池关闭、ctx 取消）只有错误
		if err != nil && results[i].Err == nil && results[i].Result == nil {
			results[i] = BatchResult{Index: i, Err: err}
		}
	}
	return results
}

func (s *contractService) Get(ctx context.Context, id int64) (*domain.Contract, error) {
	return s.store.GetContract(ctx, id)
}

func (s *contractService) List(ctx context.Context, page, pageSize int) ([]*domain.Contract, int64, error) {
	return s.store.ListContractsPage(ctx, page, pageSize)
}
