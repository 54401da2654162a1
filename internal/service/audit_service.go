package service

import (
	"context"
	"fmt"

	"github.com/haierkeys/contract-version-service/internal/domain"
	"github.com/haierkeys/contract-version-service/pkg/logger"
	"go.uber.org/zap"
)

// ChainViolation a contract whose recorded versions are not exactly 1..current_version
// ChainViolation 版本链不完整的合同
type ChainViolation struct {
	ContractID     int64  `json:"contractId"`
	CurrentVersion int64  `json:"currentVersion"`
	Reason         string `json:"reason"`
}

// AuditService checks stored version chains
// AuditService 版本链审计
type AuditService interface {
	// AuditVersionChains walks every contract and reports broken chains
	// AuditVersionChains 检查全部合同的版本链
	AuditVersionChains(ctx context.Context) ([]ChainViolation, error)
}

type auditService struct {
	store   domain.ContractStore
	metrics *Metrics
	logger  *zap.Logger
}

// NewAuditService creates AuditService instance
// NewAuditService 创建 AuditService 实例
func NewAuditService(store domain.ContractStore, lg *zap.Logger, metrics *Metrics) AuditService {
	if lg == nil {
		lg = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &auditService{store: store, metrics: metrics, logger: lg}
}

func (s *auditService) AuditVersionChains(ctx context.Context) ([]ChainViolation, error) {
	contracts, err := s.store.ListContracts(ctx)
	if err != nil {
		return nil, err
	}

	var out []ChainViolation
	for _, c := range contracts {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		history, err := s.store.GetVersionHistory(ctx, c.ID)
		if err != nil {
			return out, err
		}
		if reason := checkChain(history, c.CurrentVersion); reason != "" {
			v := ChainViolation{ContractID: c.ID, CurrentVersion: c.CurrentVersion, Reason: reason}
			out = append(out, v)
			s.logger.Error("version chain violation",
				zap.Int64(logger.FieldContractID, c.ID),
				zap.Int64(logger.FieldVersion, c.CurrentVersion),
				zap.String("reason", reason))
		}
	}

	s.metrics.AuditViolations.Set(float64(len(out)))
	s.logger.Info("version chain audit finished",
		zap.Int("contracts", len(contracts)),
		zap.Int("violations", len(out)))
	return out, nil
}

// checkChain history 按版本升序，必须恰好为 1..current
func checkChain(history []*domain.VersionMetadata, current int64) string {
	if int64(len(history)) != current {
		return fmt.Sprintf("%d metadata rows for current version %d", len(history), current)
	}
	for i, h := range history {
		if h.Version != int64(i+1) {
			return fmt.Sprintf("expected version %d, found %d", i+1, h.Version)
		}
	}
	return ""
}
