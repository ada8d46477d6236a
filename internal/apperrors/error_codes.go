package apperrors

import "net/http"

// ErrorCode is returned in the error_code field of gateway error responses
type ErrorCode string

const (
	ErrCodeAuthenticationFailure ErrorCode = "authentication_error"
	ErrCodeAuthorizationFailure  ErrorCode = "authorization_error"
	ErrCodeInternalError         ErrorCode = "internal_error"
	ErrCodeInvalidRequest        ErrorCode = "invalid_request"
	ErrCodeMalformedBody         ErrorCode = "malformed_body"
	ErrCodeRateLimitExceeded     ErrorCode = "rate_limit_exceeded"
	ErrCodeResourceNotFound      ErrorCode = "resource_not_found"
	ErrCodeUpstreamError         ErrorCode = "upstream_error"
	ErrCodeUpstreamUnavailable   ErrorCode = "upstream_unavailable"
)

// Kind classifies a failed call to the remote API
type Kind string

const (
	KindValidation     Kind = "validation"     // structured field-level detail
	KindAuthentication Kind = "authentication" // 401
	KindAuthorization  Kind = "authorization"  // 403
	KindNotFound       Kind = "not_found"      // 404
	KindServer         Kind = "server"         // 5xx
	KindNetwork        Kind = "network"        // request sent, no response
	KindClient         Kind = "client"         // request never sent
	KindUnknown        Kind = "unknown"
)

// KindForStatus maps an HTTP status code to an error kind.
// Status 0 means no response was received.
func KindForStatus(statusCode int) Kind {
	switch {
	case statusCode == 0:
		return KindNetwork
	case statusCode == http.StatusBadRequest, statusCode == http.StatusUnprocessableEntity:
		return KindValidation
	case statusCode == http.StatusUnauthorized:
		return KindAuthentication
	case statusCode == http.StatusForbidden:
		return KindAuthorization
	case statusCode == http.StatusNotFound:
		return KindNotFound
	case statusCode >= 500:
		return KindServer
	default:
		return KindUnknown
	}
}

// GatewayCode returns the gateway error code used when relaying an upstream failure of the given kind
func GatewayCode(kind Kind) ErrorCode {
	switch kind {
	case KindValidation:
		return ErrCodeInvalidRequest
	case KindAuthentication:
		return ErrCodeAuthenticationFailure
	case KindAuthorization:
		return ErrCodeAuthorizationFailure
	case KindNotFound:
		return ErrCodeResourceNotFound
	case KindNetwork:
		return ErrCodeUpstreamUnavailable
	case KindClient:
		return ErrCodeInternalError
	default:
		return ErrCodeUpstreamError
	}
}
