package service

import (
	"errors"
	"fmt"

	"model-abtest/internal/store"
)

var (
	ErrValidation = errors.New("参数校验失败")
	ErrNotFound   = errors.New("实验不存在")
)

// ValidationError 创建/更新参数不合法，落库之前返回
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
	}
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// StoreError 读写存储失败；不在这里重试，整个调用直接失败
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("存储操作 %s 失败: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// storeErr 把 store.ErrNotFound 转成 ErrNotFound，其余包装为 StoreError
func storeErr(op, id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &StoreError{Op: op, Err: err}
}
