package domain

import (
	"errors"
	"fmt"
	"strings"
)

// 错误分类（handler 层按 errors.Is 映射成业务码）
var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidType       = errors.New("invalid complaint type")
	ErrNotFound          = errors.New("not found")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrInvalidState      = errors.New("invalid state")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrConflict          = errors.New("conflict")
	ErrUnauthorized      = errors.New("unauthorized")
)

// Error 带可读消息的分类错误，Unwrap 回到分类哨兵
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Kind }

func Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// ValidationError 携带逐条违规信息
type ValidationError struct {
	Items []string
}

func NewValidationError(items ...string) *ValidationError {
	return &ValidationError{Items: items}
}

func (e *ValidationError) Error() string {
	if len(e.Items) == 0 {
		return ErrValidation.Error()
	}
	return ErrValidation.Error() + ": " + strings.Join(e.Items, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
