package dao

import (
	"sort"

	"github.com/bytedance/sonic"
	"github.com/haierkeys/contract-version-service/internal/domain"
)

// validateExtracted 标识符必须非空且唯一
func validateExtracted(clauses []domain.ExtractedClause) error {
	seen := make(map[string]struct{}, len(clauses))
	for _, c := range clauses {
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

// validateCommit 写入前的纯校验
func validateCommit(commit *domain.VersionCommit) error {
	if commit.NewVersion != commit.ExpectedVersion+1 {
		return &domain.SequentialVersionViolation{
			ContractID: commit.ContractID,
			Expected:   commit.ExpectedVersion + 1,
			Actual:     commit.NewVersion,
		}
	}
	if commit.Metadata == nil ||
		commit.Metadata.ContractID != commit.ContractID ||
		commit.Metadata.Version != commit.NewVersion {
		return &domain.ReferentialIntegrityViolation{
			ContractID: commit.ContractID,
			Reason:     "version metadata does not match the commit",
		}
	}

	seen := make(map[string]struct{}, len(commit.Rows))
	for _, c := range commit.Rows {
		switch {
		case c.ContractID != commit.ContractID:
			return &domain.ReferentialIntegrityViolation{
				ContractID: commit.ContractID,
				Identifier: c.Identifier,
				Reason:     "clause belongs to another contract",
			}
		case c.ClauseVersion != commit.NewVersion:
			return &domain.SequentialVersionViolation{
				ContractID: commit.ContractID,
				Expected:   commit.NewVersion,
				Actual:     c.ClauseVersion,
			}
		case c.Identifier == "":
			return domain.ErrInvalidClauseSet
		}
		if _, ok := seen[c.Identifier]; ok {
			return domain.ErrInvalidClauseSet
		}
		seen[c.Identifier] = struct{}{}
	}
	return nil
}

func encodeMetadata(meta map[string]any) (string, error) {
	if len(meta) == 0 {
		return "", nil
	}
	return sonic.MarshalString(meta)
}

func decodeMetadata(s string) (map[string]any, error) {
	if s == "" {
		return nil, nil
	}
	var meta map[string]any
	if err := sonic.UnmarshalString(s, &meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func sortedCopy(ids []string) []string {
	out := append([]string{}, ids...)
	sort.Strings(out)
	return out
}

func maxVersion(cs []*domain.Clause) int64 {
	var v int64
	for _, c := range cs {
		if c.ClauseVersion > v {
			v = c.ClauseVersion
		}
	}
	return v
}
