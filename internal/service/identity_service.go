package service

import (
	"context"
	"io"
	"sort"

	"github.com/haierkeys/contract-version-service/internal/domain"
	"github.com/haierkeys/contract-version-service/pkg/logger"
	"github.com/haierkeys/contract-version-service/pkg/textsim"
	"github.com/haierkeys/contract-version-service/pkg/util"
	"go.uber.org/zap"
)

// IdentityStatus outcome of identity detection
// IdentityStatus 身份识别结果
type IdentityStatus int

const (
	IdentityNew       IdentityStatus = iota // no candidate // 新合同
	IdentityDuplicate                       // exact hash match // 完全重复
	IdentityUpdate                          // one filename candidate // 更新已有合同
	IdentityAmbiguous                       // several filename candidates // 多个候选
)

func (s IdentityStatus) String() string {
	switch s {
	case IdentityNew:
		return "new"
	case IdentityDuplicate:
		return "duplicate"
	case IdentityUpdate:
		return "update"
	case IdentityAmbiguous:
		return "ambiguous"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler
func (s IdentityStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Detection result of Detect
// Detection 身份识别结果
type Detection struct {
	Hash       string                  `json:"hash"`
	Status     IdentityStatus          `json:"status"`
	Candidates []domain.MatchCandidate `json:"candidates"`
}

// Target 唯一确定的目标合同，New 时为 0
func (d *Detection) Target() int64 {
	if d.Status == IdentityNew || d.Status == IdentityAmbiguous || len(d.Candidates) == 0 {
		return 0
	}
	return d.Candidates[0].ContractID
}

// IdentityService defines the identity detection interface
// IdentityService 定义合同身份识别接口
type IdentityService interface {
	// HashContent computes the SHA-256 hex digest of an upload
	// HashContent 计算上传内容的 SHA-256
	HashContent(filename string, content []byte) (string, error)

	// HashReader streams r into SHA-256
	// HashReader 流式计算哈希
	HashReader(filename string, r io.Reader) (string, int64, error)

	// FindPotentialMatches returns the known contracts this upload may belong to
	// FindPotentialMatches 查找可能对应的已有合同，空切片表示新合同
	FindPotentialMatches(ctx context.Context, hash, filename string) ([]domain.MatchCandidate, error)

	// Detect hashes the content and classifies it
	// Detect 计算哈希并给出识别结论
	Detect(ctx context.Context, content []byte, filename string) (*Detection, error)
}

type identityService struct {
	store  domain.ContractStore  // Contract store // 合同存储
	logger *zap.Logger           // Logger // 日志对象
	config IdentityServiceConfig // Service configuration // 服务配置
}

// NewIdentityService creates IdentityService instance
// NewIdentityService 创建 IdentityService 实例
func NewIdentityService(store domain.ContractStore, lg *zap.Logger, config *IdentityServiceConfig) IdentityService {
	if lg == nil {
		lg = zap.NewNop()
	}
	cfg := IdentityServiceConfig{FilenameThreshold: DefaultFilenameThreshold}
	if config != nil {
		cfg = *config
	}
	return &identityService{store: store, logger: lg, config: cfg}
}

func (s *identityService) HashContent(filename string, content []byte) (string, error) {
	hash, err := util.EncodeSHA256(content)
	if err != nil {
		return "", &domain.HashComputationError{Filename: filename, Err: err}
	}
	return hash, nil
}

func (s *identityService) HashReader(filename string, r io.Reader) (string, int64, error) {
	hash, n, err := util.EncodeSHA256Reader(r)
	if err != nil {
		return "", n, &domain.HashComputationError{Filename: filename, Err: err}
	}
	return hash, n, nil
}

// FindPotentialMatches 哈希精确匹配优先；其后按文件名相似度降序、创建时间、ID 排序
func (s *identityService) FindPotentialMatches(ctx context.Context, hash, filename string) ([]domain.MatchCandidate, error) {
	out := []domain.MatchCandidate{}

	if hash != "" {
		c, err := s.hashOwner(ctx, hash)
		if err != nil {
			return nil, err
		}
		if c != nil {
			return append(out, domain.MatchCandidate{
				ContractID: c.ID,
				Filename:   c.Filename,
				Score:      1,
				HashMatch:  true,
				CreatedAt:  c.CreatedAt,
			}), nil
		}
	}

	if filename == "" {
		return out, nil
	}

	contracts, err := s.store.ListContracts(ctx)
	if err != nil {
		return nil, err
	}
	threshold := s.config.threshold()
	for _, c := range contracts {
		score := textsim.FilenameSimilarity(filename, c.Filename)
		if score < threshold {
			continue
		}
		out = append(out, domain.MatchCandidate{
			ContractID: c.ID,
			Filename:   c.Filename,
			Score:      score,
			CreatedAt:  c.CreatedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ContractID < out[j].ContractID
	})
	return out, nil
}

// hashOwner 先查当前内容哈希，再查历史版本哈希
func (s *identityService) hashOwner(ctx context.Context, hash string) (*domain.Contract, error) {
	c, err := s.store.GetContractByHash(ctx, hash)
	if err != nil || c != nil {
		return c, err
	}
	return s.store.GetContractByVersionHash(ctx, hash)
}

func (s *identityService) Detect(ctx context.Context, content []byte, filename string) (*Detection, error) {
	hash, err := s.HashContent(filename, content)
	if err != nil {
		return nil, err
	}
	candidates, err := s.FindPotentialMatches(ctx, hash, filename)
	if err != nil {
		return nil, err
	}

	d := &Detection{Hash: hash, Candidates: candidates}
	switch {
	case len(candidates) == 0:
		d.Status = IdentityNew
	case candidates[0].HashMatch:
		d.Status = IdentityDuplicate
	case len(candidates) == 1:
		d.Status = IdentityUpdate
	default:
		d.Status = IdentityAmbiguous
	}

	s.logger.Debug("identity detected",
		zap.String(logger.FieldFilename, filename),
		zap.String(logger.FieldHash, hash),
		zap.Stringer("status", d.Status),
		zap.Int("candidates", len(candidates)))
	return d, nil
}
