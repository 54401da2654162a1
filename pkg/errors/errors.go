package errors

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/haierkeys/contract-version-service/internal/domain"
	"github.com/haierkeys/contract-version-service/internal/middleware"
	"github.com/haierkeys/contract-version-service/pkg/code"
	"github.com/haierkeys/contract-version-service/pkg/writequeue"
)

// AppError 统一应用错误结构体
// 包含错误码、消息、详情、追踪ID和时间戳
type AppError struct {
	// Code 错误码
	Code int `json:"code"`
	// Status 恒为 false，与成功响应结构保持一致
	Status bool `json:"status"`
	// Message 错误消息
	Message string `json:"message"`
	// Details 错误详情（可选）
	Details []string `json:"details,omitempty"`
	// Data 附加数据，例如歧义匹配的候选合同
	Data any `json:"data,omitempty"`
	// Retryable 调用方是否可以原样重试
	Retryable bool `json:"retryable,omitempty"`
	// TraceID 请求追踪ID
	TraceID string `json:"traceId,omitempty"`
	// Cause 原始错误（不序列化到JSON）
	Cause error `json:"-"`
	// Timestamp 错误发生时间
	Timestamp time.Time `json:"timestamp"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	return e.Message
}

// Unwrap 实现 errors.Unwrap 接口，支持错误链路追踪
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError 从 Code 对象创建 AppError
func NewAppError(c *code.Code, cause error) *AppError {
	return &AppError{
		Code:      c.Code(),
		Message:   c.Msg(),
		Details:   c.Details(),
		Data:      c.Data(),
		Retryable: domain.IsRetryable(cause),
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// WithTraceID 设置 TraceID 并返回自身（链式调用）
func (e *AppError) WithTraceID(traceID string) *AppError {
	e.TraceID = traceID
	return e
}

// WithDetails 设置详情并返回自身（链式调用）
func (e *AppError) WithDetails(details ...string) *AppError {
	e.Details = details
	return e
}

// ToCode maps a domain, queue or context error onto its response code.
// Unknown errors map to ErrorServerInternal.
// ToCode 将领域错误映射为响应码
func ToCode(err error) *code.Code {
	var codeErr *code.Code
	if errors.As(err, &codeErr) {
		return codeErr
	}

	var (
		ambiguous *domain.AmbiguousMatchError
		hashErr   *domain.HashComputationError
		seqErr    *domain.SequentialVersionViolation
		refErr    *domain.ReferentialIntegrityViolation
		txErr     *domain.StorageTransactionError
	)
	switch {
	case errors.As(err, &ambiguous):
		return code.ErrorAmbiguousMatch.WithData(ambiguous.Candidates)
	case errors.As(err, &hashErr):
		return code.ErrorHashComputation.WithDetails(hashErr.Error())
	case errors.As(err, &seqErr):
		return code.ErrorSequentialVersion.WithDetails(seqErr.Error())
	case errors.As(err, &refErr):
		return code.ErrorReferentialIntegrity.WithDetails(refErr.Error())
	case errors.As(err, &txErr):
		return code.ErrorStorageTransaction
	case errors.Is(err, domain.ErrContractNotFound):
		return code.ErrorContractNotFound
	case errors.Is(err, domain.ErrVersionNotFound):
		return code.ErrorVersionNotFound
	case errors.Is(err, domain.ErrDuplicateContract):
		return code.ErrorDuplicateContract
	case errors.Is(err, domain.ErrArchiveDisabled):
		return code.ErrorStorageNotEnabled
	case errors.Is(err, domain.ErrArchiveNotFound):
		return code.ErrorArchiveNotFound
	case errors.Is(err, domain.ErrInvalidClauseSet):
		return code.ErrorInvalidClauseSet.WithDetails(err.Error())
	case errors.Is(err, writequeue.ErrWriteQueueFull),
		errors.Is(err, writequeue.ErrWriteQueueClosed),
		errors.Is(err, writequeue.ErrWriteTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return code.ErrorWriteQueueBusy
	}
	return code.ErrorServerInternal
}

// ErrorResponse 统一错误响应处理
// 从 gin.Context 获取 TraceID，将错误转换为 AppError 并返回 JSON 响应
func ErrorResponse(c *gin.Context, err error) {
	traceID := middleware.GetTraceIDFromGin(c)

	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = NewAppError(ToCode(err), err)
	}
	appErr.TraceID = traceID

	if appErr.Code == code.ErrorServerInternal.Code() {
		_ = c.Error(err)
	}
	c.JSON(http.StatusOK, appErr)
}

// IsAppError 检查错误是否为 AppError 类型
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}
