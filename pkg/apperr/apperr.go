package apperr

import (
	"errors"
	"fmt"
)

// Code 业务错误码
type Code string

const (
	CodeValidation       Code = "VALIDATION"
	CodeAuthorization    Code = "AUTHORIZATION"
	CodeNotFound         Code = "NOT_FOUND"
	CodeConflict         Code = "CONFLICT"
	CodeBlocked          Code = "BLOCKED"
	CodeInvalidRecipient Code = "INVALID_RECIPIENT"
	CodeInternal         Code = "INTERNAL"
)

// AppError 业务错误，所有服务层错误都以该类型返回
type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is 按错误码比较，使 errors.Is(err, apperr.ErrXxx) 可用于同类错误
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func New(code Code, message string) error {
	return &AppError{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &AppError{Code: code, Message: message, Cause: cause}
}

func Validation(msg string) error { return New(CodeValidation, msg) }

func Authorization(msg string) error { return New(CodeAuthorization, msg) }

func NotFound(msg string) error { return New(CodeNotFound, msg) }

func Conflict(msg string) error { return New(CodeConflict, msg) }

func Blocked(msg string) error { return New(CodeBlocked, msg) }

func InvalidRecipient(msg string) error { return New(CodeInvalidRecipient, msg) }

// Internal 包装存储层等非预期错误
func Internal(cause error) error {
	return Wrap(CodeInternal, "internal error", cause)
}

// CodeOf 提取错误码，非 AppError 视为 INTERNAL
func CodeOf(err error) Code {
	var e *AppError
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// 哨兵错误，仅用于 errors.Is 判断错误类别
var (
	ErrValidation       = Validation("validation failed")
	ErrAuthorization    = Authorization("not authorized")
	ErrNotFound         = NotFound("not found")
	ErrConflict         = Conflict("conflict")
	ErrBlocked          = Blocked("blocked")
	ErrInvalidRecipient = InvalidRecipient("invalid recipient")
)
