package errors

// Error codes for standardized error responses
const (
	// Authentication errors
	ErrCodeUnauthorized           = "unauthorized"
	ErrCodeInvalidToken           = "invalid_token"
	ErrCodeTokenExpired           = "token_expired"
	ErrCodeAuthenticationRequired = "authentication_required"

	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeMissingField     = "missing_field"

	// Resource errors
	ErrCodeNotFound      = "not_found"
	ErrCodeAlreadyExists = "already_exists"

	// Account errors
	ErrCodeRegistrationFailed = "registration_failed"
	ErrCodeLoginFailed        = "login_failed"
	ErrCodeRefreshFailed      = "refresh_failed"
	ErrCodeUsernameTaken      = "username_taken"
	ErrCodeUserNotFound       = "user_not_found"

	// Match errors
	ErrCodeMatchNotFound       = "match_not_found"
	ErrCodeMatchCreationFailed = "match_creation_failed"
	ErrCodeInvalidMatchID      = "invalid_match_id"
	ErrCodeSubmitFailed        = "submit_failed"
	ErrCodeMatchCompleted      = "match_already_completed"
	ErrCodeNotInMatch          = "not_in_match"

	// Answer errors
	ErrCodeAdjacentDigits    = "adjacent_digits"
	ErrCodeMalformed         = "malformed_expression"
	ErrCodeIncorrectSolution = "incorrect_solution"

	// Queue errors
	ErrCodeEnqueueFailed  = "enqueue_failed"
	ErrCodeAlreadyQueued  = "already_queued"
	ErrCodeNotQueued      = "not_queued"
	ErrCodeAlreadyInMatch = "already_in_match"

	// Puzzle errors
	ErrCodeGenerationExhausted = "generation_exhausted"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"
	ErrCodeConnectionError    = "connection_error"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"

	// Leaderboard errors
	ErrCodeLeaderboardFetchFailed = "leaderboard_fetch_failed"
)
