package task

import (
	"context"

	"github.com/haierkeys/contract-version-service/internal/app"
	"github.com/haierkeys/contract-version-service/internal/service"

	"go.uber.org/zap"
)

// AuditTask 版本链审计任务
type AuditTask struct {
	audit  service.AuditService
	spec   string
	logger *zap.Logger
}

func (t *AuditTask) Name() string {
	return "VersionChainAudit"
}

func (t *AuditTask) Spec() string {
	return t.spec
}

func (t *AuditTask) IsStartupRun() bool {
	return true
}

// Run 执行审计，违规只记录日志，不视为任务失败
func (t *AuditTask) Run(ctx context.Context) error {
	violations, err := t.audit.AuditVersionChains(ctx)
	if err != nil {
		return err
	}
	t.logger.Info("task log",
		zap.String("task", t.Name()),
		zap.Int("violations", len(violations)),
		zap.String("msg", "success"))
	return nil
}

// NewAuditTask 创建审计任务，未启用时返回 nil
func NewAuditTask(a *app.App) (Task, error) {
	cfg := a.Config().Audit
	if !cfg.Enabled {
		return nil, nil
	}
	return &AuditTask{audit: a.AuditService, spec: cfg.Cron, logger: a.Logger()}, nil
}

func init() {
	Register(NewAuditTask)
}
