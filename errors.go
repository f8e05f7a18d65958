package lotto

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode 错误代码类型
type ErrorCode string

// 错误代码常量
const (
	// 系统级错误 (1000-1999)
	ErrCodeSystem          ErrorCode = "LOTTO_1000"
	ErrCodeRedisConnection ErrorCode = "LOTTO_1001"
	ErrCodeRedisTimeout    ErrorCode = "LOTTO_1002"
	ErrCodeConfigInvalid   ErrorCode = "LOTTO_1003"
	ErrCodeInvalidParams   ErrorCode = "LOTTO_1004"
	ErrCodeScraperClosed   ErrorCode = "LOTTO_1005"

	// 号码校验错误 (2000-2999)
	ErrCodeWrongCount       ErrorCode = "LOTTO_2001"
	ErrCodeOutOfRange       ErrorCode = "LOTTO_2002"
	ErrCodeDuplicateNumbers ErrorCode = "LOTTO_2003"
	ErrCodeEmptyBatch       ErrorCode = "LOTTO_2004"
	ErrCodeInvalidToken     ErrorCode = "LOTTO_2005"
	ErrCodeInvalidIndex     ErrorCode = "LOTTO_2006"

	// 开奖页抓取错误 (3000-3999)
	ErrCodeFetchNetwork       ErrorCode = "LOTTO_3001"
	ErrCodeFetchNoResponse    ErrorCode = "LOTTO_3002"
	ErrCodeFetchNoData        ErrorCode = "LOTTO_3003"
	ErrCodeCircuitBreakerOpen ErrorCode = "LOTTO_3004"

	// 页面解析错误 (4000-4999)
	ErrCodeParseMarkup       ErrorCode = "LOTTO_4001"
	ErrCodeContainerNotFound ErrorCode = "LOTTO_4002"
	ErrCodeNumberCount       ErrorCode = "LOTTO_4003"
	ErrCodeInvalidSelectors  ErrorCode = "LOTTO_4004"

	// 存储错误 (6000-6999)
	ErrCodeRecordNotFound        ErrorCode = "LOTTO_6000"
	ErrCodeRecordExists          ErrorCode = "LOTTO_6001"
	ErrCodeStoreSaveFailure      ErrorCode = "LOTTO_6002"
	ErrCodeStoreLoadFailure      ErrorCode = "LOTTO_6003"
	ErrCodeRecordCorrupted       ErrorCode = "LOTTO_6004"
	ErrCodeSerializationFailed   ErrorCode = "LOTTO_6005"
	ErrCodeDeserializationFailed ErrorCode = "LOTTO_6006"
)

// ErrorSeverity 错误严重程度
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "critical"
	SeverityHigh     ErrorSeverity = "high"
	SeverityMedium   ErrorSeverity = "medium"
	SeverityLow      ErrorSeverity = "low"
	SeverityInfo     ErrorSeverity = "info"
)

// LottoError 带错误码的错误类型
type LottoError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	Details    string         `json:"details,omitempty"`
	Severity   ErrorSeverity  `json:"severity"`
	Timestamp  time.Time      `json:"timestamp"`
	Operation  string         `json:"operation,omitempty"`
	StackTrace string         `json:"stack_trace,omitempty"`
	Cause      error          `json:"-"`
	Retryable  bool           `json:"retryable"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Error 实现 error 接口
func (e *LottoError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 实现 errors.Unwrap 接口
func (e *LottoError) Unwrap() error {
	return e.Cause
}

// Is 实现 errors.Is 接口, 同一错误码视为同一错误
func (e *LottoError) Is(target error) bool {
	if t, ok := target.(*LottoError); ok {
		return e.Code == t.Code
	}
	return false
}

// UserMessage 返回可直接展示给用户的文本
func (e *LottoError) UserMessage() string {
	if e.Details != "" {
		return e.Message + " (" + e.Details + ")"
	}
	return e.Message
}

// clone 复制错误, With* 方法都在副本上修改, 预定义错误不会被污染
func (e *LottoError) clone() *LottoError {
	c := *e
	c.Timestamp = time.Now()
	if e.Metadata != nil {
		c.Metadata = make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// WithCause 添加原因错误
func (e *LottoError) WithCause(cause error) *LottoError {
	c := e.clone()
	c.Cause = cause
	return c
}

// WithDetails 添加详细信息
func (e *LottoError) WithDetails(details string) *LottoError {
	c := e.clone()
	c.Details = details
	return c
}

// WithOperation 添加操作信息
func (e *LottoError) WithOperation(operation string) *LottoError {
	c := e.clone()
	c.Operation = operation
	return c
}

// WithMetadata 添加元数据
func (e *LottoError) WithMetadata(key string, value any) *LottoError {
	c := e.clone()
	if c.Metadata == nil {
		c.Metadata = make(map[string]any)
	}
	c.Metadata[key] = value
	return c
}

// WithStackTrace 添加堆栈跟踪
func (e *LottoError) WithStackTrace() *LottoError {
	c := e.clone()
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	c.StackTrace = string(buf[:n])
	return c
}

// NewError 创建新的错误
func NewError(code ErrorCode, message string) *LottoError {
	return &LottoError{
		Code:      code,
		Message:   message,
		Severity:  SeverityMedium,
		Timestamp: time.Now(),
	}
}

// NewRetryableError 创建可重试的错误
func NewRetryableError(code ErrorCode, message string) *LottoError {
	err := NewError(code, message)
	err.Retryable = true
	return err
}

// NewUserError 创建用户可修正的错误
func NewUserError(code ErrorCode, message string) *LottoError {
	err := NewError(code, message)
	err.Severity = SeverityLow
	return err
}

// NewCriticalError 创建严重错误
func NewCriticalError(code ErrorCode, message string) *LottoError {
	err := NewError(code, message)
	err.Severity = SeverityCritical
	return err
}

// 预定义的错误实例
var (
	// 系统级错误
	ErrSystemError           = NewCriticalError(ErrCodeSystem, "system error occurred")
	ErrRedisConnectionFailed = NewRetryableError(ErrCodeRedisConnection, "Redis connection failed")
	ErrRedisTimeout          = NewRetryableError(ErrCodeRedisTimeout, "Redis operation timeout")
	ErrConfigInvalid         = NewCriticalError(ErrCodeConfigInvalid, "configuration is invalid")
	ErrInvalidParameters     = NewError(ErrCodeInvalidParams, "invalid parameters provided")
	ErrScraperClosed         = NewError(ErrCodeScraperClosed, "scraper is closed")

	// 号码校验错误
	ErrWrongCount       = NewUserError(ErrCodeWrongCount, "enter exactly 6 numbers")
	ErrOutOfRange       = NewUserError(ErrCodeOutOfRange, "numbers must be between 1 and 49")
	ErrDuplicateNumbers = NewUserError(ErrCodeDuplicateNumbers, "numbers must not repeat")
	ErrEmptyBatch       = NewUserError(ErrCodeEmptyBatch, "no numbers entered")
	ErrInvalidToken     = NewUserError(ErrCodeInvalidToken, "only numbers separated by spaces are allowed")
	ErrInvalidIndex     = NewError(ErrCodeInvalidIndex, "number index must be between 0 and 5")

	// 抓取错误
	ErrFetchNetwork       = NewRetryableError(ErrCodeFetchNetwork, "network error")
	ErrFetchNoResponse    = NewRetryableError(ErrCodeFetchNoResponse, "no response from results page")
	ErrFetchNoData        = NewError(ErrCodeFetchNoData, "no data")
	ErrCircuitBreakerOpen = NewRetryableError(ErrCodeCircuitBreakerOpen, "circuit breaker is open")

	// 解析错误
	ErrParseMarkup       = NewError(ErrCodeParseMarkup, "parse error")
	ErrContainerNotFound = NewError(ErrCodeContainerNotFound, "results container not found")
	ErrNumberCount       = NewError(ErrCodeNumberCount, "unexpected number of winning numbers")
	ErrInvalidSelectors  = NewError(ErrCodeInvalidSelectors, "invalid selector set")

	// 存储错误
	ErrRecordNotFound        = NewError(ErrCodeRecordNotFound, "record not found")
	ErrRecordExists          = NewError(ErrCodeRecordExists, "record already exists")
	ErrStoreSaveFailure      = NewRetryableError(ErrCodeStoreSaveFailure, "failed to save record")
	ErrStoreLoadFailure      = NewRetryableError(ErrCodeStoreLoadFailure, "failed to load records")
	ErrRecordCorrupted       = NewError(ErrCodeRecordCorrupted, "record data is corrupted")
	ErrSerializationFailed   = NewError(ErrCodeSerializationFailed, "serialization failed")
	ErrDeserializationFailed = NewError(ErrCodeDeserializationFailed, "deserialization failed")
)

// IsValidationError reports whether err is a user-correctable entry validation error
func IsValidationError(err error) bool {
	code, ok := CodeOf(err)
	if !ok {
		return false
	}
	return strings.HasPrefix(string(code), "LOTTO_2") && code != ErrCodeInvalidIndex
}

// CodeOf returns the error code carried by err, if any
func CodeOf(err error) (ErrorCode, bool) {
	var le *LottoError
	if errors.As(err, &le) {
		return le.Code, true
	}
	return "", false
}

// IsRetryableError 检查是否为可重试错误
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var le *LottoError
	if errors.As(err, &le) {
		return le.Retryable
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"network is unreachable",
		"temporary failure",
		"server closed",
		"broken pipe",
		"i/o timeout",
		"dial tcp",
		"read tcp",
		"write tcp",
		"connection timed out",
		"no route to host",
		"host is down",
		"connection aborted",
		"socket is not connected",
		"operation timed out",
		"redis: connection pool timeout",
		"redis: client is closed",
		"context deadline exceeded",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
