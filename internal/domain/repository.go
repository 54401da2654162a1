package domain

import "context"

// ContractStore 差量存储接口，独占所有持久化行
type ContractStore interface {
	// StoreNewContract 写入合同行、全部 v1 条款行和 v1 版本元数据
	StoreNewContract(ctx context.Context, nc *NewContract) (*Contract, error)

	// StoreContractVersion 原子写入一次版本迁移
	StoreContractVersion(ctx context.Context, commit *VersionCommit) (*Contract, error)

	// GetContract 根据ID获取合同
	GetContract(ctx context.Context, id int64) (*Contract, error)

	// GetContractByHash 根据内容哈希获取合同
	GetContractByHash(ctx context.Context, hash string) (*Contract, error)

	// GetContractByVersionHash 根据任一历史版本的内容哈希获取合同
	GetContractByVersionHash(ctx context.Context, hash string) (*Contract, error)

	// ListContracts 获取全部合同（身份识别候选）
	ListContracts(ctx context.Context) ([]*Contract, error)

	// ListContractsPage 分页获取合同
	ListContractsPage(ctx context.Context, page, pageSize int) ([]*Contract, int64, error)

	// GetClauses 获取某版本的条款快照，version 为 0 表示当前版本
	GetClauses(ctx context.Context, id, version int64) ([]*Clause, error)

	// GetVersionHistory 按版本升序获取版本元数据
	GetVersionHistory(ctx context.Context, id int64) ([]*VersionMetadata, error)

	// LastVersion 获取最后记录的版本号，没有则为 0
	LastVersion(ctx context.Context, id int64) (int64, error)
}
