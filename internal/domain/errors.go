package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrContractNotFound 合同不存在
	ErrContractNotFound = errors.New("contract not found")
	// ErrVersionNotFound 请求的版本不存在
	ErrVersionNotFound = errors.New("contract version not found")
	// ErrDuplicateContract 相同内容哈希的合同已存在
	ErrDuplicateContract = errors.New("contract with identical content hash already exists")
	// ErrInvalidClauseSet 条款标识符为空或重复
	ErrInvalidClauseSet = errors.New("invalid clause set")
	// ErrArchiveDisabled 未配置归档存储
	ErrArchiveDisabled = errors.New("upload archive is not enabled")
	// ErrArchiveNotFound 归档中没有该哈希的原始文件
	ErrArchiveNotFound = errors.New("archived upload not found")
)

// HashComputationError input could not be read or hashed. Not retryable without a new file.
// HashComputationError 输入无法读取或计算哈希
type HashComputationError struct {
	Filename string
	Err      error
}

func (e *HashComputationError) Error() string {
	return fmt.Sprintf("hash computation failed for %q: %v", e.Filename, e.Err)
}

func (e *HashComputationError) Unwrap() error { return e.Err }

// AmbiguousMatchError several known contracts match an upload; a human has to choose.
// AmbiguousMatchError 上传匹配到多个合同，需要人工选择
type AmbiguousMatchError struct {
	Filename   string
	Candidates []MatchCandidate
}

func (e *AmbiguousMatchError) Error() string {
	ids := make([]string, 0, len(e.Candidates))
	for _, c := range e.Candidates {
		ids = append(ids, fmt.Sprintf("%d(%.2f)", c.ContractID, c.Score))
	}
	return fmt.Sprintf("upload %q matches %d contracts: %s", e.Filename, len(e.Candidates), strings.Join(ids, ", "))
}

// SequentialVersionViolation a version transition is not exactly current+1.
// SequentialVersionViolation 版本号不连续
type SequentialVersionViolation struct {
	ContractID int64
	Expected   int64
	Actual     int64
}

func (e *SequentialVersionViolation) Error() string {
	return fmt.Sprintf("sequential version violation for contract %d: expected %d, got %d", e.ContractID, e.Expected, e.Actual)
}

// ReferentialIntegrityViolation a clause row does not belong to the contract being written.
// ReferentialIntegrityViolation 条款行与合同不匹配
type ReferentialIntegrityViolation struct {
	ContractID int64
	Identifier string
	Reason     string
}

func (e *ReferentialIntegrityViolation) Error() string {
	return fmt.Sprintf("referential integrity violation for contract %d clause %q: %s", e.ContractID, e.Identifier, e.Reason)
}

// StorageTransactionError the store failed mid-write and rolled back. Retryable.
// StorageTransactionError 存储事务失败并已回滚，可重试
type StorageTransactionError struct {
	Op         string
	ContractID int64
	Err        error
}

func (e *StorageTransactionError) Error() string {
	return fmt.Sprintf("storage transaction %s failed for contract %d: %v", e.Op, e.ContractID, e.Err)
}

func (e *StorageTransactionError) Unwrap() error { return e.Err }

// Retryable 存储事务错误可重试
func (e *StorageTransactionError) Retryable() bool { return true }

// IsRetryable reports whether the caller may retry the failed operation unchanged.
// IsRetryable 判断失败操作是否可以原样重试
func IsRetryable(err error) bool {
	var r interface{ Retryable() bool }
	return errors.As(err, &r) && r.Retryable()
}
