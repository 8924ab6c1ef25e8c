// Package apperr 定义业务错误分类，api 层据此映射 HTTP 状态码
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 错误类别
type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuth
	KindAuthorization
	KindNotFound
	KindConflict
	KindStore
)

// Error 带类别的业务错误
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status 对应的 HTTP 状态码
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Validation 参数格式或取值范围错误
func Validation(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Auth 未登录或会话无效
func Auth(msg string) error {
	return &Error{Kind: KindAuth, Message: msg}
}

// Forbidden 角色无权执行该操作
func Forbidden(msg string) error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

// NotFound 资源不存在或不属于当前家庭
func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Conflict 唯一约束冲突
func Conflict(msg string, err error) error {
	return &Error{Kind: KindConflict, Message: msg, Err: err}
}

// Store 非预期的持久化失败
func Store(msg string, err error) error {
	return &Error{Kind: KindStore, Message: msg, Err: err}
}

// KindOf 返回 err 链上第一个业务错误的类别，非业务错误视为 KindStore
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStore
}

// Is 判断 err 是否为指定类别
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// As 取出业务错误
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
