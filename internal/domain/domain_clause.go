package domain

import (
	"sort"
	"time"
)

// ExtractedClause 外部抽取组件产出的条款
type ExtractedClause struct {
	Identifier string         `json:"identifier" binding:"required,max=255"`
	Text       string         `json:"text"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Clause 条款修订行，写入后内容不可变
// 编辑条款等于在新版本插入新行；删除写入 IsDeleted 标记行
type Clause struct {
	ID            int64          `json:"id"`
	ContractID    int64          `json:"contractId"`
	Identifier    string         `json:"identifier"`
	Label         string         `json:"label,omitempty"`
	Content       string         `json:"content"`
	ClauseVersion int64          `json:"clauseVersion"`
	Position      int            `json:"position"`
	IsDeleted     bool           `json:"isDeleted"`
	DeletedAt     *time.Time     `json:"deletedAt,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty" copier:"-"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// SelectSnapshot picks, for every identifier, the revision with the greatest
// ClauseVersion not above version, and drops identifiers whose pick is a deletion marker.
// The result is ordered by Position; on equal positions the newer revision comes
// first, then the smaller Identifier.
// SelectSnapshot 对每个标识符选取 ClauseVersion <= version 的最新修订，删除标记则排除
func SelectSnapshot(revisions []*Clause, version int64) []*Clause {
	latest := make(map[string]*Clause, len(revisions))
	for _, r := range revisions {
		if r.ClauseVersion > version {
			continue
		}
		if cur, ok := latest[r.Identifier]; !ok || r.ClauseVersion > cur.ClauseVersion {
			latest[r.Identifier] = r
		}
	}

	out := make([]*Clause, 0, len(latest))
	for _, r := range latest {
		if !r.IsDeleted {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		if out[i].ClauseVersion != out[j].ClauseVersion {
			return out[i].ClauseVersion > out[j].ClauseVersion
		}
		return out[i].Identifier < out[j].Identifier
	})
	return out
}
