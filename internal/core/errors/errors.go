package errors

const (
	HttpInternalError           = "internal_error"
	HttpInvalidJsonError        = "invalid_json"
	HttpInvalidQueryError       = "invalid_query"
	HttpStorageUnavailableError = "storage_unavailable"
	HttpRateLimitedError        = "rate_limited"
)

// ErrorResponse is the error body of every API endpoint.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
