package types

import (
	"errors"
	"net/http"
)

// 领域错误分类，业务层用 %w 包装，handler 层统一映射为 HTTP 状态码.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("not found")
	ErrStateConflict       = errors.New("state conflict")
	ErrExpired             = errors.New("expired")
	ErrAlreadyConsumed     = errors.New("already consumed")
	ErrGone                = errors.New("gone")
	ErrRateLimited         = errors.New("rate limited")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrAllocationExhausted = errors.New("token allocation exhausted")
	ErrStorageUnavailable  = errors.New("storage unavailable")
)

// HTTPStatus 返回错误对应的 HTTP 状态码，未分类的错误视为 500.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrStateConflict):
		return http.StatusConflict
	case errors.Is(err, ErrExpired), errors.Is(err, ErrAlreadyConsumed), errors.Is(err, ErrGone):
		return http.StatusGone
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage 返回可以暴露给客户端的错误信息，内部错误不透出细节.
func PublicMessage(err error) string {
	switch HTTPStatus(err) {
	case http.StatusBadRequest, http.StatusUnauthorized:
		return err.Error()
	case http.StatusNotFound:
		return "Not found"
	case http.StatusConflict:
		return "Unavailable"
	case http.StatusGone:
		if errors.Is(err, ErrExpired) {
			return "Expired"
		}

		return "Unavailable"
	case http.StatusTooManyRequests:
		return "Too many QuickDrops created. Please wait a minute and try again."
	default:
		return "Internal error"
	}
}
