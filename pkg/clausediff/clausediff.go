// Package clausediff classifies the clauses of a freshly extracted contract
// against the clauses of its current version.
// Package clausediff 将新提取的条款集合与当前版本条款进行比对分类
package clausediff

import (
	"sort"

	"github.com/haierkeys/contract-version-service/pkg/textsim"
)

const (
	// DefaultUnchangedThreshold pairs at or above this similarity are unchanged.
	DefaultUnchangedThreshold = 0.95
	// DefaultMatchThreshold is the minimum similarity for a text-only pairing.
	DefaultMatchThreshold = 0.6
)

// Clause is the comparator's view of a clause.
// Clause 比对器使用的条款视图
type Clause struct {
	Identifier string         // stable identifier, e.g. section label
	Text       string         // raw clause text
	Version    int64          // clause_version of the stored row (old side only)
	Position   int            // stored position (old side only)
	Metadata   map[string]any // classification metadata
}

// Change describes one classified clause.
// Change 描述一条分类后的条款
type Change struct {
	Kind        ChangeKind     `json:"kind"`
	Identifier  string         `json:"identifier"`           // stable identifier the clause is stored under
	Label       string         `json:"label,omitempty"`      // identifier carried by the new clause
	Similarity  float64        `json:"similarity"`           // normalized text similarity
	MatchedBy   MatchMethod    `json:"matchedBy"`            // how the pair was formed
	OldText     string         `json:"oldText,omitempty"`    // text of the old clause
	NewText     string         `json:"newText,omitempty"`    // text of the new clause
	OldVersion  int64          `json:"oldVersion,omitempty"` // clause_version of the old row
	Position    int            `json:"position"`             // index in the new set, -1 for deleted
	OldPosition int            `json:"oldPosition"`          // stored position of the old clause
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Diff is the outcome of Compare, four lists in a deterministic order.
// Diff 比对结果，四个列表顺序确定
type Diff struct {
	Unchanged []Change `json:"unchanged"`
	Modified  []Change `json:"modified"`
	Added     []Change `json:"added"`
	Deleted   []Change `json:"deleted"`
	// Degraded is set when one side is empty and no pairing was attempted.
	// Degraded 一侧为空时置位，此时不做配对
	Degraded bool `json:"degraded"`
}

// Options tunes the comparator thresholds.
// Options 比对阈值配置
type Options struct {
	UnchangedThreshold float64
	MatchThreshold     float64
}

// DefaultOptions 默认阈值
func DefaultOptions() Options {
	return Options{
		UnchangedThreshold: DefaultUnchangedThreshold,
		MatchThreshold:     DefaultMatchThreshold,
	}
}

func (o Options) withDefaults() Options {
	if o.UnchangedThreshold <= 0 || o.UnchangedThreshold > 1 {
		o.UnchangedThreshold = DefaultUnchangedThreshold
	}
	if o.MatchThreshold <= 0 || o.MatchThreshold > 1 {
		o.MatchThreshold = DefaultMatchThreshold
	}
	return o
}

// candidate 文本配对候选
type candidate struct {
	oldIdx, newIdx int
	sim            float64
}

// Compare classifies newSet against oldSet.
// Compare 对比新旧条款集合
//
// Clauses sharing an identifier are always paired. Remaining clauses are paired
// greedily by descending similarity among pairs reaching MatchThreshold; ties go to
// the smaller old identifier, then the earlier new position. Pairing is one-to-one.
// A text-matched clause keeps the old identifier.
func Compare(oldSet, newSet []Clause, opt Options) *Diff {
	opt = opt.withDefaults()
	d := &Diff{
		Unchanged: []Change{},
		Modified:  []Change{},
		Added:     []Change{},
		Deleted:   []Change{},
	}

	if len(oldSet) == 0 || len(newSet) == 0 {
		d.Degraded = len(oldSet) != len(newSet)
		for i, c := range newSet {
			d.Added = append(d.Added, added(i, c))
		}
		for _, c := range oldSet {
			d.Deleted = append(d.Deleted, deleted(c))
		}
		sortDeleted(d.Deleted)
		return d
	}

	oldNorm := make([]string, len(oldSet))
	for i, c := range oldSet {
		oldNorm[i] = textsim.Normalize(c.Text)
	}
	newNorm := make([]string, len(newSet))
	for i, c := range newSet {
		newNorm[i] = textsim.Normalize(c.Text)
	}

	oldPaired := make([]bool, len(oldSet))
	newPaired := make([]bool, len(newSet))
	changes := make([]Change, 0, len(newSet))

	// 第一阶段: 按标识符配对
	oldByID := make(map[string]int, len(oldSet))
	for i, c := range oldSet {
		if _, ok := oldByID[c.Identifier]; !ok {
			oldByID[c.Identifier] = i
		}
	}
	for j, c := range newSet {
		i, ok := oldByID[c.Identifier]
		if !ok || oldPaired[i] {
			continue
		}
		oldPaired[i], newPaired[j] = true, true
		sim := textsim.Ratio(oldNorm[i], newNorm[j])
		changes = append(changes, paired(oldSet[i], c, j, sim, MatchIdentifier, opt))
	}

	// 第二阶段: 剩余条款按文本相似度贪心配对
	var cands []candidate
	for i := range oldSet {
		if oldPaired[i] {
			continue
		}
		for j := range newSet {
			if newPaired[j] {
				continue
			}
			if sim := textsim.Ratio(oldNorm[i], newNorm[j]); sim >= opt.MatchThreshold {
				cands = append(cands, candidate{oldIdx: i, newIdx: j, sim: sim})
			}
		}
	}
	sort.SliceStable(cands, func(a, b int) bool {
		ca, cb := cands[a], cands[b]
		if ca.sim != cb.sim {
			return ca.sim > cb.sim
		}
		if oa, ob := oldSet[ca.oldIdx].Identifier, oldSet[cb.oldIdx].Identifier; oa != ob {
			return oa < ob
		}
		return ca.newIdx < cb.newIdx
	})
	for _, c := range cands {
		if oldPaired[c.oldIdx] || newPaired[c.newIdx] {
			continue
		}
		oldPaired[c.oldIdx], newPaired[c.newIdx] = true, true
		changes = append(changes, paired(oldSet[c.oldIdx], newSet[c.newIdx], c.newIdx, c.sim, MatchText, opt))
	}

	for j, c := range newSet {
		if !newPaired[j] {
			changes = append(changes, added(j, c))
		}
	}
	for i, c := range oldSet {
		if !oldPaired[i] {
			d.Deleted = append(d.Deleted, deleted(c))
		}
	}

	sort.SliceStable(changes, func(a, b int) bool { return changes[a].Position < changes[b].Position })
	for _, c := range changes {
		switch c.Kind {
		case Unchanged:
			d.Unchanged = append(d.Unchanged, c)
		case Modified:
			d.Modified = append(d.Modified, c)
		case Added:
			d.Added = append(d.Added, c)
		}
	}
	sortDeleted(d.Deleted)
	return d
}

func paired(oldC, newC Clause, pos int, sim float64, by MatchMethod, opt Options) Change {
	kind := Modified
	if sim >= opt.UnchangedThreshold {
		kind = Unchanged
	}
	return Change{
		Kind:        kind,
		Identifier:  oldC.Identifier,
		Label:       newC.Identifier,
		Similarity:  sim,
		MatchedBy:   by,
		OldText:     oldC.Text,
		NewText:     newC.Text,
		OldVersion:  oldC.Version,
		Position:    pos,
		OldPosition: oldC.Position,
		Metadata:    newC.Metadata,
	}
}

func added(pos int, c Clause) Change {
	return Change{
		Kind:       Added,
		Identifier: c.Identifier,
		Label:      c.Identifier,
		MatchedBy:  MatchNone,
		NewText:    c.Text,
		Position:   pos,
		Metadata:   c.Metadata,
	}
}

func deleted(c Clause) Change {
	return Change{
		Kind:        Deleted,
		Identifier:  c.Identifier,
		MatchedBy:   MatchNone,
		OldText:     c.Text,
		OldVersion:  c.Version,
		Position:    -1,
		OldPosition: c.Position,
		Metadata:    c.Metadata,
	}
}

func sortDeleted(cs []Change) {
	sort.SliceStable(cs, func(a, b int) bool { return cs[a].Identifier < cs[b].Identifier })
}

// HasChanges reports whether anything other than unchanged clauses exists.
// HasChanges 是否存在非 unchanged 的变更
func (d *Diff) HasChanges() bool {
	return len(d.Modified)+len(d.Added)+len(d.Deleted) > 0
}

// ChangedIdentifiers returns the sorted stable identifiers touched by the diff.
// ChangedIdentifiers 返回发生变更的条款标识符（已排序）
func (d *Diff) ChangedIdentifiers() []string {
	ids := make([]string, 0, len(d.Modified)+len(d.Added)+len(d.Deleted))
	for _, list := range [][]Change{d.Modified, d.Added, d.Deleted} {
		for _, c := range list {
			ids = append(ids, c.Identifier)
		}
	}
	sort.Strings(ids)
	return ids
}

// Patch 返回修改条款的文本补丁，非 Modified 返回空串
func (d *Diff) Patch(c Change) string {
	if c.Kind != Modified {
		return ""
	}
	return textsim.Patch(c.OldText, c.NewText)
}
