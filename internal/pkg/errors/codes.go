package errors

import (
	"fmt"
	"net/http"
)

// Code represents an error code with HTTP status and message
type Code struct {
	Code    int    // Business error code
	Status  int    // HTTP status code
	Message string // Error message
}

// Error codes for different modules
const (
	// Success
	Success = 0

	// Common errors (1000-1999)
	ErrInternalServer  = 1000
	ErrInvalidParams   = 1001
	ErrNotFound        = 1002
	ErrConflict        = 1003
	ErrTooManyRequests = 1004
	ErrBadRequest      = 1005
	ErrServiceUnavail  = 1006

	// Index errors (4000-4999)
	ErrFileNotFound     = 4000
	ErrDuplicateFile    = 4001
	ErrStoreUnavailable = 4002
	ErrIdentityDecode   = 4003
	ErrUnknownPartition = 4004

	// Ingestion errors (5000-5999)
	ErrRunActive     = 5000
	ErrInvalidWindow = 5001
	ErrNoActiveRun   = 5002
	ErrRateLimited   = 5003
	ErrSourceFailure = 5004
)

// codeMap maps error codes to their details
var codeMap = map[int]Code{
	Success: {Success, http.StatusOK, "Success"},

	// Common errors
	ErrInternalServer:  {ErrInternalServer, http.StatusInternalServerError, "Internal server error"},
	ErrInvalidParams:   {ErrInvalidParams, http.StatusBadRequest, "Invalid parameters"},
	ErrNotFound:        {ErrNotFound, http.StatusNotFound, "Resource not found"},
	ErrConflict:        {ErrConflict, http.StatusConflict, "Resource conflict"},
	ErrTooManyRequests: {ErrTooManyRequests, http.StatusTooManyRequests, "Too many requests"},
	ErrBadRequest:      {ErrBadRequest, http.StatusBadRequest, "Bad request"},
	ErrServiceUnavail:  {ErrServiceUnavail, http.StatusServiceUnavailable, "Service unavailable"},

	// Index errors
	ErrFileNotFound:     {ErrFileNotFound, http.StatusNotFound, "File not found"},
	ErrDuplicateFile:    {ErrDuplicateFile, http.StatusConflict, "File already indexed"},
	ErrStoreUnavailable: {ErrStoreUnavailable, http.StatusServiceUnavailable, "Storage partition unavailable"},
	ErrIdentityDecode:   {ErrIdentityDecode, http.StatusBadRequest, "Malformed file reference"},
	ErrUnknownPartition: {ErrUnknownPartition, http.StatusBadRequest, "Unknown storage partition"},

	// Ingestion errors
	ErrRunActive:     {ErrRunActive, http.StatusConflict, "Indexing run already active"},
	ErrInvalidWindow: {ErrInvalidWindow, http.StatusBadRequest, "Invalid scan window"},
	ErrNoActiveRun:   {ErrNoActiveRun, http.StatusNotFound, "No active indexing run"},
	ErrRateLimited:   {ErrRateLimited, http.StatusTooManyRequests, "Message source rate limited"},
	ErrSourceFailure: {ErrSourceFailure, http.StatusBadGateway, "Message source failure"},
}

// GetCode returns the Code for a given error code
func GetCode(code int) Code {
	if c, ok := codeMap[code]; ok {
		return c
	}
	return codeMap[ErrInternalServer]
}

// GetHTTPStatus returns HTTP status for a given error code
func GetHTTPStatus(code int) int {
	return GetCode(code).Status
}

// GetMessage returns the message for a given error code
func GetMessage(code int) string {
	return GetCode(code).Message
}

// IsSuccess checks if the code represents success
func IsSuccess(code int) bool {
	return code == Success
}

// FormatError formats an error message with code
func FormatError(code int, details ...string) string {
	msg := GetMessage(code)
	if len(details) > 0 && details[0] != "" {
		return fmt.Sprintf("%s: %s", msg, details[0])
	}
	return msg
}
