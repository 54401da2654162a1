package errors

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/haierkeys/contract-version-service/internal/domain"
	"github.com/haierkeys/contract-version-service/internal/middleware"
	"github.com/haierkeys/contract-version-service/pkg/code"
	"github.com/haierkeys/contract-version-service/pkg/writequeue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("get: %w", domain.ErrContractNotFound), code.ErrorContractNotFound.Code()},
		{"version", domain.ErrVersionNotFound, code.ErrorVersionNotFound.Code()},
		{"duplicate", domain.ErrDuplicateContract, code.ErrorDuplicateContract.Code()},
		{"clause set", domain.ErrInvalidClauseSet, code.ErrorInvalidClauseSet.Code()},
		{"ambiguous", &domain.AmbiguousMatchError{Filename: "a.pdf"}, code.ErrorAmbiguousMatch.Code()},
		{"hash", &domain.HashComputationError{Filename: "a.pdf", Err: fmt.Errorf("eof")}, code.ErrorHashComputation.Code()},
		{"sequence", &domain.SequentialVersionViolation{ContractID: 1, Expected: 2, Actual: 3}, code.ErrorSequentialVersion.Code()},
		{"referential", &domain.ReferentialIntegrityViolation{ContractID: 1}, code.ErrorReferentialIntegrity.Code()},
		{"transaction", &domain.StorageTransactionError{Op: "store", Err: fmt.Errorf("disk")}, code.ErrorStorageTransaction.Code()},
		{"queue", writequeue.ErrWriteQueueFull, code.ErrorWriteQueueBusy.Code()},
		{"code", code.ErrorInvalidParams, code.ErrorInvalidParams.Code()},
		{"unknown", fmt.Errorf("boom"), code.ErrorServerInternal.Code()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToCode(tt.err).Code())
		})
	}
}

func TestErrorResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.TraceMiddlewareWithConfig(true, ""))
	r.GET("/", func(c *gin.Context) {
		ErrorResponse(c, &domain.AmbiguousMatchError{
			Filename:   "nda.pdf",
			Candidates: []domain.MatchCandidate{{ContractID: 1}, {ContractID: 2}},
		})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(middleware.DefaultTraceIDHeader, "trace-1")
	r.ServeHTTP(w, req)

	var body struct {
		Code    int                     `json:"code"`
		Status  bool                    `json:"status"`
		TraceID string                  `json:"traceId"`
		Data    []domain.MatchCandidate `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, code.ErrorAmbiguousMatch.Code(), body.Code)
	assert.False(t, body.Status)
	assert.Equal(t, "trace-1", body.TraceID)
	assert.Len(t, body.Data, 2)
}

func TestRetryable(t *testing.T) {
	appErr := NewAppError(code.ErrorStorageTransaction, &domain.StorageTransactionError{Op: "store", Err: fmt.Errorf("x")})
	assert.True(t, appErr.Retryable)
	assert.False(t, NewAppError(code.ErrorContractNotFound, domain.ErrContractNotFound).Retryable)
}
