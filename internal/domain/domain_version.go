package domain

import "time"

// VersionMetadata 每个 (合同, 版本) 一行，创建后不可变
type VersionMetadata struct {
	ID             int64     `json:"id"`
	ContractID     int64     `json:"contractId"`
	Version        int64     `json:"version"`
	ContentHash    string    `json:"contentHash"`
	Filename       string    `json:"filename"`
	ChangedClauses []string  `json:"changedClauses" copier:"-"`
	ModifiedCount  int       `json:"modifiedCount"`
	AddedCount     int       `json:"addedCount"`
	DeletedCount   int       `json:"deletedCount"`
	UnchangedCount int       `json:"unchangedCount"`
	Degraded       bool      `json:"degraded"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NewContract 首次入库的合同，版本固定为 1
type NewContract struct {
	Filename    string
	ContentHash string
	Clauses     []ExtractedClause
}

// VersionCommit 一次版本迁移需要原子写入的全部内容
type VersionCommit struct {
	ContractID      int64
	ExpectedVersion int64 // 调用方读取到的 current_version
	NewVersion      int64
	ContentHash     string
	Filename        string
	Rows            []*Clause // 修改/新增的内容行与删除标记行
	Metadata        *VersionMetadata
}
