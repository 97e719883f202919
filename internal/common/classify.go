package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/damoang/blok-client/pkg/apiclient"
)

// Category is the user-facing class of a failure
type Category string

const (
	CategoryError   Category = "error"
	CategoryWarning Category = "warning"
	CategoryNetwork Category = "network"
)

// User-facing messages
const (
	MsgConnection    = "Connection error. Please check your internet connection."
	MsgTimeout       = "The request timed out. Please try again."
	MsgBadRequest    = "Invalid request. Please check your input."
	MsgUnauthorized  = "Your session has expired. Please sign in again."
	MsgForbidden     = "You are not allowed to perform this action."
	MsgNotFound      = "The requested resource was not found."
	MsgRateLimited   = "Too many requests. Please wait a moment."
	MsgServerError   = "Server error. Please try again later."
	MsgUnavailable   = "The server is temporarily unavailable. Please try again later."
	MsgUnknown       = "An unknown error occurred."
	MsgGenericAPI    = "The request failed."
	MsgNotPermitted  = "Please sign in to continue."
	networkErrorText = "network error"
)

// AppError is a classified failure carrying a single user-facing message
type AppError struct {
	Category Category
	Message  string
	Status   int
	Err      error
}

func (e *AppError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Category, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotPermitted is returned when an operation needs a session and there is none
func NotPermitted() *AppError {
	return &AppError{Category: CategoryError, Message: MsgNotPermitted, Err: ErrNotPermitted}
}

// ClassifyResponse maps an HTTP outcome to an AppError.
// status 0 means the request never reached the server.
func ClassifyResponse(status int, serverMsg string) *AppError {
	serverMsg = strings.TrimSpace(serverMsg)

	switch {
	case status == 0:
		return classifyMessage(serverMsg)
	case status == http.StatusTooManyRequests:
		return &AppError{Category: CategoryWarning, Message: MsgRateLimited, Status: status, Err: ErrRateLimited}
	case status == http.StatusInternalServerError:
		return &AppError{Category: CategoryNetwork, Message: MsgServerError, Status: status, Err: ErrServer}
	case status == http.StatusBadGateway, status == http.StatusServiceUnavailable, status == http.StatusGatewayTimeout:
		return &AppError{Category: CategoryNetwork, Message: MsgUnavailable, Status: status, Err: ErrServer}
	case status > 500:
		return &AppError{Category: CategoryNetwork, Message: MsgServerError, Status: status, Err: ErrServer}
	case status >= 400:
		msg := serverMsg
		if msg == "" || isGenericHTTPText(msg) {
			msg = defaultClientMessage(status)
		}
		return &AppError{Category: CategoryError, Message: msg, Status: status, Err: sentinelFor(status)}
	}

	msg := serverMsg
	if msg == "" {
		msg = MsgGenericAPI
	}
	return &AppError{Category: CategoryError, Message: msg, Status: status}
}

// ClassifyError maps a Go error (transport failure, cancellation, ...) to an AppError
func ClassifyError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &AppError{Category: CategoryNetwork, Message: MsgTimeout, Err: errors.Join(ErrNetwork, err)}
	}
	classified := classifyMessage(err.Error())
	if classified.Category == CategoryError {
		classified.Err = err
	} else {
		classified.Err = errors.Join(ErrNetwork, err)
	}
	return classified
}

func classifyMessage(msg string) *AppError {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "timeout"), strings.Contains(lower, "timed out"), strings.Contains(lower, "deadline exceeded"):
		return &AppError{Category: CategoryNetwork, Message: MsgTimeout, Err: ErrNetwork}
	case lower == "",
		strings.Contains(lower, networkErrorText),
		strings.Contains(lower, "fetch"),
		strings.Contains(lower, "connection refused"),
		strings.Contains(lower, "no such host"),
		strings.Contains(lower, "connection reset"):
		return &AppError{Category: CategoryNetwork, Message: MsgConnection, Err: ErrNetwork}
	}
	return &AppError{Category: CategoryError, Message: msg}
}

func isGenericHTTPText(msg string) bool {
	return strings.HasPrefix(msg, "HTTP Error:")
}

func defaultClientMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return MsgBadRequest
	case http.StatusUnauthorized:
		return MsgUnauthorized
	case http.StatusForbidden:
		return MsgForbidden
	case http.StatusNotFound:
		return MsgNotFound
	default:
		return MsgGenericAPI
	}
}

func sentinelFor(status int) error {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrInvalidInput
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return nil
	}
}

// FromResponse classifies a failed adapter response; nil when resp is OK
func FromResponse(resp *apiclient.Response) *AppError {
	if resp == nil {
		return ClassifyResponse(0, "")
	}
	if resp.OK() {
		return nil
	}
	return ClassifyResponse(resp.Status, resp.Error)
}
