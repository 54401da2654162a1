// Package dto Defines data transfer objects (request parameters and response structs)
// Package dto 定义数据传输对象（请求参数和响应结构体）
package dto

import (
	"time"

	"github.com/haierkeys/contract-version-service/internal/domain"
	"github.com/haierkeys/contract-version-service/pkg/clausediff"
)

// ContractIngestRequest Request parameters for ingesting an upload
// 合同上传入库请求参数
type ContractIngestRequest struct {
	Filename   string                   `json:"filename" form:"filename" binding:"required,max=512"`
	Content    string                   `json:"content" form:"content" binding:"required,base64"` // base64 encoded raw bytes // base64 编码的原始文件
	ContractID int64                    `json:"contractId" form:"contractId" binding:"omitempty,gte=1"`
	Clauses    []domain.ExtractedClause `json:"clauses" form:"clauses" binding:"required,min=1,dive"`
}

// ContractGetRequest 合同详情请求参数
type ContractGetRequest struct {
	ID int64 `json:"id" form:"id" binding:"required,gte=1"`
}

// ContractListRequest 合同列表请求参数，分页由 page/pageSize 查询参数控制
type ContractListRequest struct {
	Page     int `form:"page" binding:"omitempty,gte=1"`
	PageSize int `form:"pageSize" binding:"omitempty,gte=1"`
}

// ContractMatchesRequest identity candidates for a filename, optionally a known hash
// 身份识别候选请求参数
type ContractMatchesRequest struct {
	Filename string `json:"filename" form:"filename" binding:"required_without=Hash,max=512"`
	Hash     string `json:"hash" form:"hash" binding:"omitempty,sha256"`
}

// ContractArchiveRequest 按内容哈希读取归档原始文件
type ContractArchiveRequest struct {
	Hash string `json:"hash" form:"hash" binding:"required,sha256"`
}

// ContractClausesRequest 版本快照请求参数，version 为 0 表示当前版本
type ContractClausesRequest struct {
	ID      int64 `json:"id" form:"id" binding:"required,gte=1"`
	Version int64 `json:"version" form:"version" binding:"omitempty,gte=0"`
}

// ContractDiffRequest 版本比对请求参数
type ContractDiffRequest struct {
	ID   int64 `json:"id" form:"id" binding:"required,gte=1"`
	From int64 `json:"from" form:"from" binding:"required,gte=1"`
	To   int64 `json:"to" form:"to" binding:"required,gte=1"`
}

// ContractDTO 合同响应对象
type ContractDTO struct {
	ID             int64     `json:"id"`
	Filename       string    `json:"filename"`
	ContentHash    string    `json:"contentHash"`
	CurrentVersion int64     `json:"currentVersion"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// IngestResponse 入库响应
type IngestResponse struct {
	Outcome  string           `json:"outcome"`
	Hash     string           `json:"hash"`
	Version  int64            `json:"version"`
	Degraded bool             `json:"degraded"`
	Contract *ContractDTO     `json:"contract"`
	Diff     *clausediff.Diff `json:"diff,omitempty"`
}

// ClauseDTO 快照中的条款
type ClauseDTO struct {
	Identifier    string         `json:"identifier"`
	Label         string         `json:"label,omitempty"`
	Content       string         `json:"content"`
	ClauseVersion int64          `json:"clauseVersion"`
	Position      int            `json:"position"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// SnapshotResponse 版本快照响应
type SnapshotResponse struct {
	ContractID int64        `json:"contractId"`
	Version    int64        `json:"version"`
	Clauses    []*ClauseDTO `json:"clauses"`
}

// ClauseChangeDTO 单条条款变更，Modified 附带文本补丁
type ClauseChangeDTO struct {
	clausediff.Change
	Patch string `json:"patch,omitempty"`
}

// DiffResponse 版本比对响应
type DiffResponse struct {
	ContractID int64              `json:"contractId"`
	From       int64              `json:"from"`
	To         int64              `json:"to"`
	Degraded   bool               `json:"degraded"`
	Unchanged  []*ClauseChangeDTO `json:"unchanged"`
	Modified   []*ClauseChangeDTO `json:"modified"`
	Added      []*ClauseChangeDTO `json:"added"`
	Deleted    []*ClauseChangeDTO `json:"deleted"`
}
