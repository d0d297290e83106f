package recordstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Error type codes the store attaches to structured error responses.
const (
	errorTypeUnknownField  = "UNKNOWN_FIELD_NAME"
	errorTypeModelNotFound = "MODEL_ID_NOT_FOUND"
	errorTypeNotFound      = "NOT_FOUND"
)

// APIError is a failed record-store request. StatusCode 0 means the request
// never reached the store (network failure or timeout).
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("record store: %s (%s)", e.Message, e.Type)
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("record store: %s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("record store: %s", e.Message)
}

// IsUnknownFieldError reports whether the store rejected a write because the
// field set named a column the collection schema does not have. The structured
// type code is checked first; the message substring remains as a fallback for
// older response shapes.
func IsUnknownFieldError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}

	if apiErr.Type == errorTypeUnknownField {
		return true
	}

	return strings.Contains(apiErr.Message, "Unknown field name")
}

// IsNotFound reports whether the store could not locate the addressed record.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}

	return apiErr.StatusCode == http.StatusNotFound ||
		apiErr.Type == errorTypeModelNotFound ||
		apiErr.Type == errorTypeNotFound
}

// The store returns either {"error": {"type": ..., "message": ...}} or
// {"error": "..."}; decode both without trusting the shape.
func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: resp.Status}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil || len(body) == 0 {
		return apiErr
	}

	var structured struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &structured); err == nil && (structured.Error.Type != "" || structured.Error.Message != "") {
		apiErr.Type = structured.Error.Type
		if structured.Error.Message != "" {
			apiErr.Message = structured.Error.Message
		}
		return apiErr
	}

	var plain struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &plain); err == nil && plain.Error != "" {
		apiErr.Message = plain.Error
	}

	return apiErr
}
