package api

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
)

// Error types for cloud session and protocol operations

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeAuth indicates an authentication failure (invalid credentials, kicked-out token)
	ErrTypeAuth ErrorType = iota
	// ErrTypeRegion indicates an unsupported or unknown region code
	ErrTypeRegion
	// ErrTypeRequest indicates an endpoint-level failure (non-zero cloud code or HTTP error)
	ErrTypeRequest
	// ErrTypeInvalidParameter indicates a command parameter outside its declared domain
	ErrTypeInvalidParameter
	// ErrTypePartialPoll indicates one entity failed within a bulk poll operation
	ErrTypePartialPoll
	// ErrTypeNetwork indicates a network-level error (connection refused, timeout, etc.)
	ErrTypeNetwork
	// ErrTypeParse indicates a parsing error (malformed JSON, invalid response)
	ErrTypeParse
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeUnknown indicates an unknown or unexpected error
	ErrTypeUnknown
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeAuth:
		return "Authentication Error"
	case ErrTypeRegion:
		return "Region Error"
	case ErrTypeRequest:
		return "Request Error"
	case ErrTypeInvalidParameter:
		return "Invalid Parameter"
	case ErrTypePartialPoll:
		return "Partial Poll Error"
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeUnknown:
		return "Unknown Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// ApiError represents an error that occurred while talking to the cloud
// service or composing device commands
type ApiError struct {
	Type       ErrorType // Category of error
	Message    string    // Human-readable error message
	StatusCode int       // HTTP status code (if applicable)
	CloudCode  int       // Cloud service result code from the response envelope
	Endpoint   string    // Endpoint path (for context)
	Field      string    // Offending parameter name (invalid parameter errors)
	Value      string    // Offending parameter value (invalid parameter errors)
	Entity     string    // Entity id (partial poll errors)
	Err        error     // Underlying error (if any)
	Retryable  bool      // Whether the error is retryable
}

// Error implements the error interface
func (e *ApiError) Error() string {
	switch e.Type {
	case ErrTypeInvalidParameter:
		return fmt.Sprintf("%s: %s (field %q, value %q)", e.Type, e.Message, e.Field, e.Value)
	case ErrTypePartialPoll:
		if e.Err != nil {
			return fmt.Sprintf("%s: entity %s on %s: %v", e.Type, e.Entity, e.Endpoint, e.Err)
		}
		return fmt.Sprintf("%s: entity %s on %s: %s", e.Type, e.Entity, e.Endpoint, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ApiError) Unwrap() error {
	return e.Err
}

// Cloud service result codes from the response envelope. Code 0 is success,
// everything else maps to an error category below.
const (
	CodeSuccess            = 0
	CodeUnauthorized       = 401
	CodeConnectError       = 997
	CodeNetworkError       = 998
	CodeServerError        = 999
	CodeRequestError       = 10000
	CodeRequestParamError  = 10003
	CodeRequestLimitError  = 10007
	CodeVerifyCode         = 26050
	CodeVerifyCodeExpired  = 26051
	CodeNeedVerifyCode     = 26052
	CodeVerifyCodeMax      = 26053
	CodeVerifyCodeNoMatch  = 26054
	CodeVerifyCodePassword = 26055
	CodeClientPublicKey    = 26070
	CodeTokenKickedOut     = 26084
	CodeInvalidCredentials = 26108
	CodeRetryExceeded      = 100053
)

// cloudErrorMessages maps known cloud result codes to descriptive messages.
var cloudErrorMessages = map[int]string{
	CodeUnauthorized:       "authorization failed",
	CodeConnectError:       "connection error reported by service",
	CodeNetworkError:       "network error reported by service",
	CodeServerError:        "internal server error",
	CodeRequestError:       "request error",
	CodeRequestParamError:  "request parameter error",
	CodeRequestLimitError:  "request limit exceeded",
	CodeVerifyCode:         "verification code error",
	CodeVerifyCodeExpired:  "verification code expired",
	CodeNeedVerifyCode:     "verification code required",
	CodeVerifyCodeMax:      "maximum verification attempts exceeded",
	CodeVerifyCodeNoMatch:  "verification code does not match",
	CodeVerifyCodePassword: "verification code password error",
	CodeClientPublicKey:    "client public key rejected",
	CodeTokenKickedOut:     "token kicked out by another login",
	CodeInvalidCredentials: "invalid credentials",
	CodeRetryExceeded:      "retry attempts exceeded, try again in 24 hours",
}

// NewCloudError builds an ApiError from a non-zero cloud result code and the
// service-provided message. The service message is surfaced verbatim since
// error payloads may enumerate the offending field names.
func NewCloudError(code int, msg string, endpoint string) *ApiError {
	message := cloudErrorMessages[code]
	if message == "" {
		message = "cloud service error"
	}
	if msg != "" {
		message = fmt.Sprintf("%s: %s", message, msg)
	}
	errType := ErrTypeRequest
	retryable := false
	switch code {
	case CodeUnauthorized, CodeTokenKickedOut, CodeInvalidCredentials,
		CodeVerifyCode, CodeVerifyCodeExpired, CodeNeedVerifyCode,
		CodeVerifyCodeMax, CodeVerifyCodeNoMatch, CodeVerifyCodePassword,
		CodeClientPublicKey:
		errType = ErrTypeAuth
	case CodeConnectError, CodeNetworkError, CodeServerError:
		retryable = true
	}
	return &ApiError{
		Type:      errType,
		Message:   message,
		CloudCode: code,
		Endpoint:  endpoint,
		Retryable: retryable,
	}
}

// NewAuthError creates an authentication error
func NewAuthError(message string) *ApiError {
	return &ApiError{
		Type:       ErrTypeAuth,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
		Retryable:  false,
	}
}

// NewRegionError creates an error for an unsupported region code
func NewRegionError(region string) *ApiError {
	return &ApiError{
		Type:      ErrTypeRegion,
		Message:   fmt.Sprintf("unsupported region %q", region),
		Retryable: false,
	}
}

// NewRequestError creates an endpoint-level error carrying the HTTP status
func NewRequestError(statusCode int, message string, endpoint string) *ApiError {
	retryable := statusCode >= 500 || statusCode == http.StatusTooManyRequests
	return &ApiError{
		Type:       ErrTypeRequest,
		Message:    message,
		StatusCode: statusCode,
		Endpoint:   endpoint,
		Retryable:  retryable,
	}
}

// NewInvalidParameterError creates an error for a command parameter outside
// its declared value domain
func NewInvalidParameterError(field string, value any) *ApiError {
	return &ApiError{
		Type:      ErrTypeInvalidParameter,
		Message:   "parameter outside declared domain",
		Field:     field,
		Value:     fmt.Sprintf("%v", value),
		Retryable: false,
	}
}

// NewPartialPollError wraps a single entity failure within a bulk poll
// operation
func NewPartialPollError(entity string, endpoint string, err error) *ApiError {
	return &ApiError{
		Type:      ErrTypePartialPoll,
		Message:   "entity update failed",
		Entity:    entity,
		Endpoint:  endpoint,
		Err:       err,
		Retryable: true,
	}
}

// NewNetworkError creates a network-level error with timeout classification
func NewNetworkError(message string, err error) *ApiError {
	if err != nil {
		var netErr net.Error
		if os.IsTimeout(err) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return &ApiError{
				Type:      ErrTypeTimeout,
				Message:   message,
				Err:       err,
				Retryable: true,
			}
		}
	}
	return &ApiError{
		Type:      ErrTypeNetwork,
		Message:   message,
		Err:       err,
		Retryable: true,
	}
}

// NewParseError creates a parsing error
func NewParseError(message string, err error) *ApiError {
	return &ApiError{
		Type:      ErrTypeParse,
		Message:   message,
		Err:       err,
		Retryable: false,
	}
}

// IsAuthError checks if an error is an authentication error
func IsAuthError(err error) bool {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return apiErr.Type == ErrTypeAuth
	}
	return false
}

// IsRegionError checks if an error is a region error
func IsRegionError(err error) bool {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return apiErr.Type == ErrTypeRegion
	}
	return false
}

// IsRequestError checks if an error is an endpoint-level request error
func IsRequestError(err error) bool {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return apiErr.Type == ErrTypeRequest
	}
	return false
}

// IsInvalidParameterError checks if an error is a rejected command parameter
func IsInvalidParameterError(err error) bool {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return apiErr.Type == ErrTypeInvalidParameter
	}
	return false
}

// IsPartialPollError checks if an error is a collected per-entity poll failure
func IsPartialPollError(err error) bool {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return apiErr.Type == ErrTypePartialPoll
	}
	return false
}

// IsNetworkError checks if an error is a network error (including timeouts)
func IsNetworkError(err error) bool {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return apiErr.Type == ErrTypeNetwork || apiErr.Type == ErrTypeTimeout
	}
	return false
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable
	}
	// Unknown errors are not retryable by default
	return false
}
