package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name        string
		err         *StandardError
		wantCode    string
		wantRetries int
	}{
		{
			name:        "transport failure keeps retries",
			err:         NewTransportFailureError("catalog-api", stderrors.New("dial tcp: connection refused")),
			wantCode:    "TRANSPORT_FAILURE",
			wantRetries: 3,
		},
		{
			name:        "embedding failure maps to transport failure",
			err:         NewEmbeddingUnavailableError(stderrors.New("503")),
			wantCode:    "TRANSPORT_FAILURE",
			wantRetries: 1,
		},
		{
			name:        "cache failure is not retried",
			err:         NewCacheUnavailableError("get", stderrors.New("i/o timeout")),
			wantCode:    "TRANSPORT_FAILURE",
			wantRetries: 0,
		},
		{
			name:        "invalid input",
			err:         NewInvalidTurnInputError("query is empty"),
			wantCode:    "INVALID_TURN_INPUT",
			wantRetries: 0,
		},
		{
			name:        "internal fault",
			err:         NewInternalFaultError("retrieving", "nil map"),
			wantCode:    "INTERNAL_FAULT",
			wantRetries: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err)
			assert.Equal(t, tt.wantCode, bpmn.Code)
			assert.Equal(t, tt.wantRetries, bpmn.Retries)
			assert.Equal(t, string(tt.err.Code), bpmn.ErrorVariables["originalErrorCode"])

			vars := bpmn.ToErrorVariables()
			assert.Equal(t, tt.wantCode, vars["errorCode"])
			assert.Equal(t, tt.err.Details, vars["errorDetails"])
		})
	}
}

func TestGetErrorCategory(t *testing.T) {
	tests := map[ErrorCode]string{
		ErrCodeCatalogUnavailable:      "CATALOG",
		ErrCodeEmbeddingUnavailable:    "AI",
		ErrCodeClassificationAmbiguous: "AI",
		ErrCodeCacheUnavailable:        "CACHE",
		ErrCodeTransportFailure:        "TRANSPORT",
		ErrCodeInvalidTurnInput:        "VALIDATION",
		ErrCodeEmptyResult:             "OTHER",
	}
	for code, want := range tests {
		assert.Equal(t, want, GetErrorCategory(code), string(code))
	}
}

func TestIsRetryableErrorCode(t *testing.T) {
	assert.True(t, IsRetryableErrorCode(ErrCodeTransportFailure))
	assert.True(t, IsRetryableErrorCode(ErrCodeCatalogUnavailable))
	assert.False(t, IsRetryableErrorCode(ErrCodeInternalFault))
	assert.False(t, IsRetryableErrorCode(ErrCodeInvalidTurnInput))
}

func TestErrorHandler_NormalizeError(t *testing.T) {
	h := NewErrorHandler(nopLogger{})

	t.Run("standard error passes through wrapping", func(t *testing.T) {
		orig := NewInvalidTurnInputError("userId is required")
		got := h.normalizeError(fmt.Errorf("decode job: %w", orig))
		require.Same(t, orig, got)
	})

	t.Run("plain error becomes internal fault", func(t *testing.T) {
		got := h.normalizeError(stderrors.New("boom"))
		assert.Equal(t, ErrCodeInternalFault, got.Code)
		assert.Equal(t, "boom", got.Details)
		assert.False(t, got.Retryable)
	})
}

type nopLogger struct{}

func (nopLogger) Error(string, map[string]interface{}) {}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrCodeInvalidTurnInput, CodeOf(fmt.Errorf("parse: %w", NewInvalidTurnInputError("x"))))
	assert.Equal(t, ErrCodeInternalFault, CodeOf(stderrors.New("plain")))
}
