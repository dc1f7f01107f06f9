package errx

// Common error constructors for convenience

// Internal creates an internal server error
func Internal(message string) *Error {
	return New(message, TypeInternal)
}

// Validation creates a validation error
func Validation(message string) *Error {
	return New(message, TypeValidation)
}

// NotFound creates a not found error
func NotFound(message string) *Error {
	return New(message, TypeNotFound)
}

// Unauthorized creates an authorization error
func Unauthorized(message string) *Error {
	return New(message, TypeAuthorization)
}

// Conflict creates a conflict error
func Conflict(message string) *Error {
	return New(message, TypeConflict)
}

// External creates an upstream (provider or store) error
func External(message string) *Error {
	return New(message, TypeExternal)
}

// RateLimited creates a rate limit error
func RateLimited(message string) *Error {
	return New(message, TypeRateLimited)
}
