// Package domain 定义领域模型和接口
package domain

import "time"

// Contract 合同领域模型，每个合同只有一行，与版本数量无关
type Contract struct {
	ID             int64     `json:"id"`
	Filename       string    `json:"filename"`
	ContentHash    string    `json:"contentHash"`
	CurrentVersion int64     `json:"currentVersion"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Upload 原始上传
type Upload struct {
	Filename string
	Content  []byte
	// ContractID 显式指定目标合同，跳过身份识别
	ContractID int64
	// Clauses 外部抽取组件按文档顺序提供的条款
	Clauses []ExtractedClause
}

// MatchCandidate 身份识别候选
type MatchCandidate struct {
	ContractID int64     `json:"contractId"`
	Filename   string    `json:"filename"`
	Score      float64   `json:"score"`
	HashMatch  bool      `json:"hashMatch"`
	CreatedAt  time.Time `json:"createdAt"`
}
