package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kberrors "github.com/Aman-CERP/kbsearch/internal/errors"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{
			name:     "not found includes suggestion",
			err:      kberrors.NotFoundError("docs"),
			wantCode: ErrCodeKnowledgeBase,
			wantMsg:  `knowledge base "docs" not found. run 'kbsearch list'`,
		},
		{
			name:     "disabled base",
			err:      kberrors.DisabledBaseError("docs"),
			wantCode: ErrCodeKnowledgeBase,
		},
		{
			name:     "invalid query",
			err:      kberrors.InvalidQueryError("query must not be empty"),
			wantCode: ErrCodeInvalidParams,
			wantMsg:  "query must not be empty",
		},
		{
			name:     "corrupt index",
			err:      kberrors.CorruptIndexError("/tmp/index.db", errors.New("bad checksum")),
			wantCode: ErrCodeIndexUnavailable,
		},
		{
			name:     "locked index is retryable",
			err:      kberrors.New(kberrors.ErrCodeIndexLocked, "index is locked", nil),
			wantCode: ErrCodeInternalError,
			wantMsg:  "Retry shortly.",
		},
		{
			name:     "deadline",
			err:      fmt.Errorf("search: %w", context.DeadlineExceeded),
			wantCode: ErrCodeTimeout,
			wantMsg:  "timed out",
		},
		{
			name:     "canceled",
			err:      context.Canceled,
			wantCode: ErrCodeTimeout,
		},
		{
			name:     "unknown error hides details",
			err:      errors.New("disk exploded"),
			wantCode: ErrCodeInternalError,
			wantMsg:  "Internal server error.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// When
			got := MapError(tt.err)

			// Then
			require.NotNil(t, got)
			assert.Equal(t, tt.wantCode, got.Code)
			if tt.wantMsg != "" {
				assert.Contains(t, got.Message, tt.wantMsg)
			}
		})
	}
}

func TestMapError_NilAndPassthrough(t *testing.T) {
	assert.Nil(t, MapError(nil))

	orig := NewInvalidParamsError("bad")
	assert.Same(t, orig, MapError(fmt.Errorf("wrapped: %w", orig)))
}

func TestMCPError_Error(t *testing.T) {
	err := NewMethodNotFoundError("nope")
	assert.Equal(t, "MCP error -32601: Tool 'nope' not found.", err.Error())
}
