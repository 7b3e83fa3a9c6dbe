// Package mcp implements the Model Context Protocol (MCP) server for kbsearch.
package mcp

import (
	"context"
	"errors"
	"fmt"

	kberrors "github.com/Aman-CERP/kbsearch/internal/errors"
)

// Custom MCP error codes for kbsearch.
const (
	// ErrCodeIndexUnavailable indicates a corrupt index that must be rebuilt.
	ErrCodeIndexUnavailable = -32001

	// ErrCodeKnowledgeBase indicates an unknown or disabled knowledge base.
	ErrCodeKnowledgeBase = -32002

	// ErrCodeTimeout indicates the request timed out or was canceled.
	ErrCodeTimeout = -32003

	// Standard JSON-RPC error codes.
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	}

	if ke, ok := kberrors.As(err); ok {
		return mapKBError(ke)
	}
	return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
}

// NewInvalidParamsError creates an error for invalid parameters.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{Code: ErrCodeMethodNotFound, Message: fmt.Sprintf("Tool '%s' not found.", name)}
}

// mapKBError converts a coded error, appending its suggestion.
func mapKBError(ke *kberrors.KBError) *MCPError {
	message := ke.Message
	if ke.Suggestion != "" {
		message = fmt.Sprintf("%s. %s", ke.Message, ke.Suggestion)
	}

	switch {
	case kberrors.IsRetryable(ke):
		return &MCPError{Code: ErrCodeInternalError, Message: ke.Message + ". Retry shortly."}
	case ke.Code == kberrors.ErrCodeCorruptIndex:
		return &MCPError{Code: ErrCodeIndexUnavailable, Message: message}
	case ke.Category == kberrors.CategoryRegistry:
		return &MCPError{Code: ErrCodeKnowledgeBase, Message: message}
	case ke.Category == kberrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
