package errx

// Type represents the category of error
type Type string

const (
	// TypeInternal represents internal server errors
	TypeInternal Type = "INTERNAL"

	// TypeValidation represents missing or malformed input
	TypeValidation Type = "VALIDATION"

	// TypeAuthorization represents bad credentials, sessions or state
	TypeAuthorization Type = "AUTHORIZATION"

	// TypeNotFound represents resource not found errors
	TypeNotFound Type = "NOT_FOUND"

	// TypeConflict represents uniqueness violations
	TypeConflict Type = "CONFLICT"

	// TypeExternal represents identity provider or store failures
	TypeExternal Type = "EXTERNAL"

	// TypeRateLimited represents callers over their request budget
	TypeRateLimited Type = "RATE_LIMITED"
)

// String returns the string representation of the error type
func (t Type) String() string {
	return string(t)
}
