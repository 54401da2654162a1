package clausediff

import "fmt"

// ChangeKind classifies a clause between two versions.
// ChangeKind 条款在两个版本之间的变更类型
type ChangeKind int

const (
	// Unchanged clause similarity reached the unchanged threshold.
	Unchanged ChangeKind = iota

	// Modified clause was paired but its text changed.
	Modified

	// Added clause has no acceptable pairing in the old set.
	Added

	// Deleted clause from the old set was left unpaired.
	Deleted
)

// String returns the string representation of the ChangeKind.
func (k ChangeKind) String() string {
	switch k {
	case Unchanged:
		return "unchanged"
	case Modified:
		return "modified"
	case Added:
		return "added"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// MarshalText 序列化为字符串形式
func (k ChangeKind) MarshalText() ([]byte, error) {
	if k < Unchanged || k > Deleted {
		return nil, fmt.Errorf("clausediff: invalid change kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText 从字符串解析
func (k *ChangeKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "unchanged":
		*k = Unchanged
	case "modified":
		*k = Modified
	case "added":
		*k = Added
	case "deleted":
		*k = Deleted
	default:
		return fmt.Errorf("clausediff: unknown change kind %q", string(b))
	}
	return nil
}

// MatchMethod records how a pair of clauses was formed.
// MatchMethod 记录条款配对方式
type MatchMethod int

const (
	// MatchNone means the clause was not paired.
	MatchNone MatchMethod = iota
	// MatchIdentifier pairs clauses sharing a stable identifier.
	MatchIdentifier
	// MatchText pairs clauses by text similarity.
	MatchText
)

func (m MatchMethod) String() string {
	switch m {
	case MatchIdentifier:
		return "identifier"
	case MatchText:
		return "text"
	default:
		return "none"
	}
}

// MarshalText 序列化为字符串形式
func (m MatchMethod) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText 从字符串解析
func (m *MatchMethod) UnmarshalText(b []byte) error {
	switch string(b) {
	case "identifier":
		*m = MatchIdentifier
	case "text":
		*m = MatchText
	case "none", "":
		*m = MatchNone
	default:
		return fmt.Errorf("clausediff: unknown match method %q", string(b))
	}
	return nil
}
