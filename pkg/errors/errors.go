package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidIP         = errors.New("invalid IP address")
	ErrInvalidCIDR       = errors.New("invalid CIDR notation")
	ErrInvalidURL        = errors.New("invalid URL")
	ErrInvalidListenAddr = errors.New("invalid listen address")
	ErrInvalidExpression = errors.New("invalid expression")
	ErrInvalidSink       = errors.New("invalid sink")
	ErrInvalidFilePath   = errors.New("invalid file path")
	ErrFileNotFound      = errors.New("file not found")
	ErrConfigNotFound    = errors.New("config not found")
	ErrConfigInvalid     = errors.New("invalid configuration")
	ErrSinkWrite         = errors.New("log sink write failed")
	ErrNoEntryFile       = errors.New("no entry file")
	ErrTimeout           = errors.New("operation timeout")
	ErrCanceled          = errors.New("operation canceled")
)

func NewIPError(ip string) error {
	return fmt.Errorf("%w: %s", ErrInvalidIP, ip)
}

func NewCIDRError(cidr string) error {
	return fmt.Errorf("%w: %s", ErrInvalidCIDR, cidr)
}

func NewURLError(raw string, reason error) error {
	return fmt.Errorf("%w: %s: %v", ErrInvalidURL, raw, reason)
}

func NewExpressionError(expr string, reason error) error {
	return fmt.Errorf("%w: %q: %v", ErrInvalidExpression, expr, reason)
}

// NewSinkError wraps both ErrSinkWrite and the underlying cause so callers can match either.
// NewSinkError 同时包装 ErrSinkWrite 和底层原因，调用方可以匹配任意一个。
func NewSinkError(sink string, reason error) error {
	return fmt.Errorf("%w: sink=%s: %w", ErrSinkWrite, sink, reason)
}

func NewFileError(path string, reason error) error {
	return fmt.Errorf("%w: %s: %v", ErrFileNotFound, path, reason)
}

func NewConfigError(field string, value interface{}) error {
	return fmt.Errorf("%w: field=%s value=%v", ErrConfigInvalid, field, value)
}
