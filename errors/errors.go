package errors

import (
	"fmt"
	"net/http"
	"time"
)

// ErrorCode identifies an error category across the service
type ErrorCode int

const (
	ErrorCode_INTERNAL ErrorCode = iota + 1
	ErrorCode_INVALID_ARGUMENT
	ErrorCode_NOT_FOUND
	ErrorCode_UNAUTHORIZED_TENANT
	ErrorCode_INVALID_CLIENT_STATE
	ErrorCode_INVALID_PAYLOAD
	ErrorCode_PUBLISH_FAILED
	ErrorCode_TRANSCRIPT_FETCH_FAILED
	ErrorCode_MEETING_FETCH_FAILED
	ErrorCode_SUMMARY_FAILED
	ErrorCode_CALENDAR_UPDATE_FAILED
	ErrorCode_MAIL_SEND_FAILED
	ErrorCode_DRIVE_UPLOAD_FAILED
	ErrorCode_SUBSCRIPTION_FAILED
	ErrorCode_INTEGRATION_STORAGE_FAILED
	ErrorCode_INTEGRATION_CACHE_FAILED
	ErrorCode_DB_QUERY_FAILED
	ErrorCode_HTTP_OK
)

var errorCodeNames = map[ErrorCode]string{
	ErrorCode_INTERNAL:                   "INTERNAL",
	ErrorCode_INVALID_ARGUMENT:           "INVALID_ARGUMENT",
	ErrorCode_NOT_FOUND:                  "NOT_FOUND",
	ErrorCode_UNAUTHORIZED_TENANT:        "UNAUTHORIZED_TENANT",
	ErrorCode_INVALID_CLIENT_STATE:       "INVALID_CLIENT_STATE",
	ErrorCode_INVALID_PAYLOAD:            "INVALID_PAYLOAD",
	ErrorCode_PUBLISH_FAILED:             "PUBLISH_FAILED",
	ErrorCode_TRANSCRIPT_FETCH_FAILED:    "TRANSCRIPT_FETCH_FAILED",
	ErrorCode_MEETING_FETCH_FAILED:       "MEETING_FETCH_FAILED",
	ErrorCode_SUMMARY_FAILED:             "SUMMARY_FAILED",
	ErrorCode_CALENDAR_UPDATE_FAILED:     "CALENDAR_UPDATE_FAILED",
	ErrorCode_MAIL_SEND_FAILED:           "MAIL_SEND_FAILED",
	ErrorCode_DRIVE_UPLOAD_FAILED:        "DRIVE_UPLOAD_FAILED",
	ErrorCode_SUBSCRIPTION_FAILED:        "SUBSCRIPTION_FAILED",
	ErrorCode_INTEGRATION_STORAGE_FAILED: "INTEGRATION_STORAGE_FAILED",
	ErrorCode_INTEGRATION_CACHE_FAILED:   "INTEGRATION_CACHE_FAILED",
	ErrorCode_DB_QUERY_FAILED:            "DB_QUERY_FAILED",
	ErrorCode_HTTP_OK:                    "OK",
}

// String returns the symbolic name for the code
func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ERROR_CODE_%d", int(c))
}

// AppError is the custom error type for the application
type AppError struct {
	Raw       error
	HTTPCode  int
	Code      ErrorCode
	Message   string
	Details   map[string]string
	Timestamp time.Time
}

// Error implements error interface
func (e AppError) Error() string {
	if e.Raw != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code.String(), e.Message, e.Raw)
	}
	return fmt.Sprintf("[%s] %s", e.Code.String(), e.Message)
}

// Unwrap exposes the wrapped cause
func (e AppError) Unwrap() error {
	return e.Raw
}

// WithDetail adds a detail to the error
func (e AppError) WithDetail(key, value string) AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// General Errors

func ErrInternal(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_INTERNAL,
		Message:  "Internal server error",
	}
}

func ErrInvalidArgument(message string) AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_INVALID_ARGUMENT,
		Message:  message,
	}
}

func ErrNotFound(resource string) AppError {
	return AppError{
		HTTPCode: http.StatusNotFound,
		Code:     ErrorCode_NOT_FOUND,
		Message:  fmt.Sprintf("%s not found", resource),
	}
}

// Ingress Errors

func ErrInvalidPayload() AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_INVALID_PAYLOAD,
		Message:  "Invalid payload",
	}
}

func ErrUnauthorizedTenant(tenantID string) AppError {
	return AppError{
		HTTPCode: http.StatusUnauthorized,
		Code:     ErrorCode_UNAUTHORIZED_TENANT,
		Message:  "unauthorized tenant",
	}.WithDetail("tenant_id", tenantID)
}

func ErrInvalidClientState() AppError {
	return AppError{
		HTTPCode: http.StatusUnauthorized,
		Code:     ErrorCode_INVALID_CLIENT_STATE,
		Message:  "client state mismatch",
	}
}

func ErrPublishFailed(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_PUBLISH_FAILED,
		Message:  "Failed to publish notification",
	}
}

// Pipeline Errors

func ErrTranscriptFetchFailed(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_TRANSCRIPT_FETCH_FAILED,
		Message:  "Failed to fetch transcript content",
	}
}

func ErrMeetingFetchFailed(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_MEETING_FETCH_FAILED,
		Message:  "Failed to fetch meeting metadata",
	}
}

func ErrSummaryFailed(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_SUMMARY_FAILED,
		Message:  "Failed to generate summary",
	}
}

func ErrCalendarUpdateFailed(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_CALENDAR_UPDATE_FAILED,
		Message:  "Failed to update calendar event",
	}
}

func ErrMailSendFailed(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_MAIL_SEND_FAILED,
		Message:  "Failed to send summary email",
	}
}

func ErrDriveUploadFailed(recipientID string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_DRIVE_UPLOAD_FAILED,
		Message:  "Failed to upload artifact to drive",
	}.WithDetail("recipient_id", recipientID)
}

// Subscription Errors

func ErrSubscriptionFailed(resource string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_SUBSCRIPTION_FAILED,
		Message:  "Subscription reconciliation failed",
	}.WithDetail("resource", resource)
}

// Integration Errors

func ErrStorageFailed(operation string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_INTEGRATION_STORAGE_FAILED,
		Message:  fmt.Sprintf("Storage operation failed: %s", operation),
	}
}

func ErrCacheFailed(operation string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_INTEGRATION_CACHE_FAILED,
		Message:  fmt.Sprintf("Cache operation failed: %s", operation),
	}
}

func ErrDBQueryFailed(query string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_DB_QUERY_FAILED,
		Message:  "Database query failed",
	}.WithDetail("query", query)
}
