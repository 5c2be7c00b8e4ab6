package mcpserver

import (
	"errors"
	"fmt"

	memerrors "github.com/agentmem/agentmemdb/internal/errors"
)

// Standard JSON-RPC error codes, plus a handful of agentmemdb-specific
// codes in the reserved server-error range.
const (
	ErrCodeInvalidParams = -32602
	ErrCodeInternalError = -32603

	ErrCodeStoreLocked     = -32001
	ErrCodeStoreNotFound   = -32002
	ErrCodeDimensionBad    = -32003
	ErrCodeCapacityBad     = -32004
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

// MapError converts an internal error into an MCPError. A nil input
// yields a nil output, so handlers can call this unconditionally.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	var memErr *memerrors.MemError
	if errors.As(err, &memErr) {
		return mapMemError(memErr)
	}

	return &MCPError{Code: ErrCodeInternalError, Message: err.Error()}
}

// NewInvalidParamsError creates an error for invalid tool parameters.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

func mapMemError(me *memerrors.MemError) *MCPError {
	message := me.Message
	if me.Suggestion != "" {
		message = fmt.Sprintf("%s %s", message, me.Suggestion)
	}

	switch me.Code {
	case memerrors.ErrCodeStoreLocked:
		return &MCPError{Code: ErrCodeStoreLocked, Message: message}
	case memerrors.ErrCodeStoreNotFound:
		return &MCPError{Code: ErrCodeStoreNotFound, Message: message}
	case memerrors.ErrCodeDimensionMismatch:
		return &MCPError{Code: ErrCodeDimensionBad, Message: message}
	case memerrors.ErrCodeCapacityExceeded:
		return &MCPError{Code: ErrCodeCapacityBad, Message: message}
	}

	switch me.Category {
	case memerrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
