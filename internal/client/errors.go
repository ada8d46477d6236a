package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/tukey-analytics/tukey/internal/apperrors"
	"github.com/tukey-analytics/tukey/internal/types"
)

// maximum number of bytes read from an error response body
const maxErrorBodyBytes = 1 << 20

const (
	msgValidationFallback = "Validation error occurred"
	msgBadRequest         = "Bad request. Please check your input."
	msgUnauthorized       = "Unauthorized. Please log in again."
	msgForbidden          = "Forbidden. You do not have permission to perform this action."
	msgNotFound           = "Resource not found."
	msgInvalidInput       = "Invalid input. Please check your data."
	msgServerError        = "Server error. Please try again later."
	msgUnavailable        = "Service unavailable. Please try again later."
	msgNetworkError       = "Network error. Please check your internet connection."
	msgUnexpected         = "An unexpected error occurred."
	msgInvalidEmbedURL    = "Invalid embed URL received from server"
)

var statusMessages = map[int]string{
	http.StatusBadRequest:          msgBadRequest,
	http.StatusUnauthorized:        msgUnauthorized,
	http.StatusForbidden:           msgForbidden,
	http.StatusNotFound:            msgNotFound,
	http.StatusUnprocessableEntity: msgInvalidInput,
	http.StatusInternalServerError: msgServerError,
	http.StatusServiceUnavailable:  msgUnavailable,
}

// ClientError represents an error encountered when communicating with the analytics API
// StatusCode 0 = no response received (network error, or the request was never sent), >0 = HTTP response received
type ClientError struct {
	Kind        apperrors.Kind          `json:"kind"`
	StatusCode  int                     `json:"status_code"`
	StatusText  string                  `json:"status_text,omitempty"`
	Detail      []types.ValidationError `json:"detail,omitempty"`
	DetailText  string                  `json:"detail_text,omitempty"` // set when the API returns detail as a plain string
	UserMessage string                  `json:"user_message"`
	LogMessage  string                  `json:"log_message"`
	Err         error                   `json:"-"`
}

func (e *ClientError) Error() string {
	return e.LogMessage
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// UserError returns the user-friendly message
func (e *ClientError) UserError() string {
	return e.UserMessage
}

// NewClientConnectionError creates a ClientError for requests that were sent but got no response
// (connection failures and timeouts)
func NewClientConnectionError(err error) *ClientError {
	e := &ClientError{
		Kind:       apperrors.KindNetwork,
		StatusCode: 0,
		LogMessage: fmt.Sprintf("network error: %v", err),
		Err:        err,
	}
	e.UserMessage = translate(e)
	return e
}

// NewClientInternalError creates a ClientError for failures on the client side, supply the error and an explanation of what was being done when the error occurred
func NewClientInternalError(err error, while string) *ClientError {
	e := &ClientError{
		Kind:       apperrors.KindClient,
		StatusCode: 0,
		LogMessage: fmt.Sprintf("internal error: %v while %v", err, while),
		Err:        err,
	}
	e.UserMessage = translate(e)
	return e
}

// NewClientApiError creates a ClientError from a non-2xx HTTP response sent by the API.
// The body is inspected for a "detail" field which is either a list of validation errors or a string.
func NewClientApiError(res *http.Response) *ClientError {
	e := &ClientError{
		Kind:       apperrors.KindForStatus(res.StatusCode),
		StatusCode: res.StatusCode,
		StatusText: statusText(res),
	}

	if res.Body != nil {
		body, err := io.ReadAll(io.LimitReader(res.Body, maxErrorBodyBytes))
		if err == nil && len(body) > 0 {
			e.Detail, e.DetailText = parseDetail(body)
		}
	}

	if len(e.Detail) > 0 {
		e.Kind = apperrors.KindValidation
	}

	e.LogMessage = fmt.Sprintf("api status %d", res.StatusCode)
	switch {
	case len(e.Detail) > 0:
		e.LogMessage += fmt.Sprintf(" - %d validation error(s): %s", len(e.Detail), e.Detail[0].Msg)
	case e.DetailText != "":
		e.LogMessage += " - " + e.DetailText
	}

	e.UserMessage = translate(e)
	return e
}

func parseDetail(body []byte) ([]types.ValidationError, string) {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return nil, ""
	}

	var list []types.ValidationError
	if err := json.Unmarshal(envelope.Detail, &list); err == nil {
		return list, ""
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		return nil, text
	}
	return nil, ""
}

// statusText returns the reason phrase sent by the server, falling back to the standard text
func statusText(res *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(res.Status, strconv.Itoa(res.StatusCode)))
	if text == "" {
		text = http.StatusText(res.StatusCode)
	}
	return text
}

// ErrorMessage returns a human-readable message for any error returned by the client.
//
// The message is chosen in this order:
//  1. the first validation error message, when the API returned a non-empty detail list
//  2. a fixed message for common status codes
//  3. a generic message using the response status text
//  4. the network error message when no response was received
//  5. the underlying error's own message
//
// The result is never empty.
func ErrorMessage(err error) string {
	if err == nil {
		return msgUnexpected
	}
	var cerr *ClientError
	if errors.As(err, &cerr) {
		return translate(cerr)
	}
	if errors.Is(err, ErrInvalidEmbedURL) {
		return msgInvalidEmbedURL
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return msgUnexpected
}

func translate(e *ClientError) string {
	if len(e.Detail) > 0 {
		if e.Detail[0].Msg != "" {
			return e.Detail[0].Msg
		}
		return msgValidationFallback
	}
	if e.DetailText != "" {
		return e.DetailText
	}

	if e.StatusCode > 0 {
		if msg, ok := statusMessages[e.StatusCode]; ok {
			return msg
		}
		if e.StatusText != "" {
			return fmt.Sprintf("Error %d: %s", e.StatusCode, e.StatusText)
		}
		return fmt.Sprintf("Error %d", e.StatusCode)
	}

	if e.Kind == apperrors.KindNetwork {
		return msgNetworkError
	}

	if e.Err != nil && e.Err.Error() != "" {
		return e.Err.Error()
	}
	return msgUnexpected
}

// IsValidationError reports whether the API rejected the request with 422
func IsValidationError(err error) bool {
	var cerr *ClientError
	return errors.As(err, &cerr) && cerr.StatusCode == http.StatusUnprocessableEntity
}

// ValidationMessages returns every validation message returned by the API
func ValidationMessages(err error) []string {
	var cerr *ClientError
	if !errors.As(err, &cerr) || len(cerr.Detail) == 0 {
		return []string{}
	}
	msgs := make([]string, 0, len(cerr.Detail))
	for _, d := range cerr.Detail {
		if d.Msg == "" {
			msgs = append(msgs, "Validation error")
			continue
		}
		msgs = append(msgs, d.Msg)
	}
	return msgs
}

// StatusCode returns the HTTP status of a failed call, 0 when no response was received
func StatusCode(err error) int {
	var cerr *ClientError
	if errors.As(err, &cerr) {
		return cerr.StatusCode
	}
	return 0
}

// ErrorKind classifies errors returned by the client
func ErrorKind(err error) apperrors.Kind {
	var cerr *ClientError
	if errors.As(err, &cerr) {
		return cerr.Kind
	}
	return apperrors.KindUnknown
}
