package errors

import (
	"errors"
	"testing"

	"github.com/agentmem/agentmemdb/pkg/memdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemError_Unwrap_PreservesOriginalError(t *testing.T) {
	originalErr := errors.New("original error")
	memErr := New(ErrCodeStoreNotFound, "store not found: /tmp/x", originalErr)

	require.NotNil(t, memErr)
	assert.Equal(t, originalErr, errors.Unwrap(memErr))
	assert.True(t, errors.Is(memErr, originalErr))
}

func TestMemError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "config error",
			code:     ErrCodeConfigNotFound,
			message:  "config file not found",
			expected: "[ERR_101_CONFIG_NOT_FOUND] config file not found",
		},
		{
			name:     "store error",
			code:     ErrCodeStoreNotFound,
			message:  "store dir missing",
			expected: "[ERR_201_STORE_NOT_FOUND] store dir missing",
		},
		{
			name:     "dimension mismatch",
			code:     ErrCodeDimensionMismatch,
			message:  "expected 128, got 64",
			expected: "[ERR_401_DIMENSION_MISMATCH] expected 128, got 64",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestMemError_Is_MatchesByCode(t *testing.T) {
	err1 := New(ErrCodeStoreNotFound, "store A missing", nil)
	err2 := New(ErrCodeStoreNotFound, "store B missing", nil)
	assert.True(t, errors.Is(err1, err2))
}

func TestMemError_Is_DoesNotMatchDifferentCodes(t *testing.T) {
	err1 := New(ErrCodeStoreNotFound, "store missing", nil)
	err2 := New(ErrCodeConfigNotFound, "config missing", nil)
	assert.False(t, errors.Is(err1, err2))
}

func TestMemError_WithDetails_AddsContext(t *testing.T) {
	err := New(ErrCodeDimensionMismatch, "dim mismatch", nil)
	err = err.WithDetail("expected", "128")
	err = err.WithDetail("got", "64")

	assert.Equal(t, "128", err.Details["expected"])
	assert.Equal(t, "64", err.Details["got"])
}

func TestMemError_WithSuggestion_AddsSuggestion(t *testing.T) {
	err := New(ErrCodeStoreLocked, "store already open", nil)
	err = err.WithSuggestion("close the other process holding the store")
	assert.Equal(t, "close the other process holding the store", err.Suggestion)
}

func TestMemError_CategoryFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantCategory Category
	}{
		{ErrCodeConfigNotFound, CategoryConfig},
		{ErrCodeConfigInvalid, CategoryConfig},
		{ErrCodeStoreNotFound, CategoryStore},
		{ErrCodeStoreLocked, CategoryStore},
		{ErrCodeDimensionMismatch, CategoryValidation},
		{ErrCodeCapacityExceeded, CategoryValidation},
		{ErrCodeInternal, CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantCategory, err.Category)
		})
	}
}

func TestMemError_SeverityFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantSeverity Severity
	}{
		{ErrCodeStoreCorrupt, SeverityFatal},
		{ErrCodeStoreLocked, SeverityFatal},
		{ErrCodeStoreNotFound, SeverityError},
		{ErrCodeDimensionMismatch, SeverityError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantSeverity, err.Severity)
		})
	}
}

func TestMemError_RetryableFromCode(t *testing.T) {
	tests := []struct {
		code          string
		wantRetryable bool
	}{
		{ErrCodeStoreLocked, true},
		{ErrCodeStoreNotFound, false},
		{ErrCodeConfigInvalid, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantRetryable, err.Retryable)
		})
	}
}

func TestWrap_CreatesMemErrorFromError(t *testing.T) {
	originalErr := errors.New("something went wrong")
	memErr := Wrap(ErrCodeInternal, originalErr)

	require.NotNil(t, memErr)
	assert.Equal(t, ErrCodeInternal, memErr.Code)
	assert.Equal(t, "something went wrong", memErr.Message)
	assert.Equal(t, originalErr, memErr.Cause)
}

func TestConfigError_CreatesConfigCategoryError(t *testing.T) {
	err := ConfigError("invalid yaml syntax", nil)
	assert.Equal(t, CategoryConfig, err.Category)
	assert.Contains(t, err.Code, "CONFIG")
}

func TestStoreError_CreatesStoreCategoryError(t *testing.T) {
	err := StoreError("cannot open store directory", nil)
	assert.Equal(t, CategoryStore, err.Category)
}

func TestValidationError_CreatesValidationCategoryError(t *testing.T) {
	err := ValidationError("query top_k must be positive", nil)
	assert.Equal(t, CategoryValidation, err.Category)
}

func TestIsRetryable_ChecksRetryableFlag(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"retryable MemError", New(ErrCodeStoreLocked, "locked", nil), true},
		{"non-retryable MemError", New(ErrCodeStoreNotFound, "not found", nil), false},
		{"wrapped retryable error", Wrap(ErrCodeStoreLocked, errors.New("wrapped")), true},
		{"standard error", errors.New("standard error"), false},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}

func TestIsFatal_ChecksFatalSeverity(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"fatal error", New(ErrCodeStoreCorrupt, "store corrupt", nil), true},
		{"locked error", New(ErrCodeStoreLocked, "store locked", nil), true},
		{"non-fatal error", New(ErrCodeStoreNotFound, "not found", nil), false},
		{"standard error", errors.New("standard error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsFatal(tt.err))
		})
	}
}

func TestFromMemDBErr_TranslatesDimensionMismatch(t *testing.T) {
	src := &memdb.DimensionMismatchError{Expected: 128, Got: 64}
	err := FromMemDBErr(src)

	require.NotNil(t, err)
	assert.Equal(t, ErrCodeDimensionMismatch, err.Code)
	assert.Equal(t, "128", err.Details["expected"])
	assert.Equal(t, "64", err.Details["got"])
}

func TestFromMemDBErr_TranslatesCapacityExceeded(t *testing.T) {
	src := &memdb.CapacityExceededError{MaxElements: 20000}
	err := FromMemDBErr(src)

	require.NotNil(t, err)
	assert.Equal(t, ErrCodeCapacityExceeded, err.Code)
	assert.Equal(t, "20000", err.Details["max_elements"])
}

func TestFromMemDBErr_TranslatesNotFound(t *testing.T) {
	src := &memdb.NotFoundError{ID: "abc-123"}
	err := FromMemDBErr(src)

	require.NotNil(t, err)
	assert.Equal(t, ErrCodeEpisodeNotFound, err.Code)
	assert.Equal(t, "abc-123", err.Details["id"])
}

func TestFromMemDBErr_FallsBackToInternal(t *testing.T) {
	err := FromMemDBErr(errors.New("unexpected"))
	require.NotNil(t, err)
	assert.Equal(t, ErrCodeInternal, err.Code)
}

func TestFromMemDBErr_NilReturnsNil(t *testing.T) {
	assert.Nil(t, FromMemDBErr(nil))
}
