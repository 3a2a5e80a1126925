package errors

// Error codes for standardized error responses
const (
	// Authentication errors
	ErrCodeUnauthorized           = "unauthorized"
	ErrCodeForbidden              = "forbidden"
	ErrCodeInvalidToken           = "invalid_token"
	ErrCodeAuthenticationRequired = "authentication_required"

	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeMissingField     = "missing_field"

	// Resource errors
	ErrCodeNotFound = "not_found"
	ErrCodeConflict = "conflict"

	// Business logic errors
	ErrCodeQuizCreateFailed   = "quiz_create_failed"
	ErrCodeQuizDeleteFailed   = "quiz_delete_failed"
	ErrCodeQuizListFailed     = "quiz_list_failed"
	ErrCodeSessionBusy        = "session_busy"
	ErrCodeSessionEndFailed   = "session_end_failed"
	ErrCodeCatalogUnavailable = "catalog_unavailable"

	// Internal errors
	ErrCodeInternalError = "internal_error"
)
