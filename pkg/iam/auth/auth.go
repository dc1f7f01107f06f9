package auth

import (
	"net/http"

	"github.com/Abraxas-365/jobgrid/pkg/errx"
)

// Login methods, used as audit and metric labels
const (
	MethodPassword     = "password"
	MethodPasswordless = "passwordless"
	MethodSignup       = "signup"
)

// SessionCookieName is the cookie carrying the signed session token
const SessionCookieName = "session"

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("AUTH")

var (
	CodeUnauthorized              = ErrRegistry.Register("UNAUTHORIZED", errx.TypeAuthorization, http.StatusUnauthorized, "Unauthorized")
	CodeInvalidBody               = ErrRegistry.Register("INVALID_BODY", errx.TypeValidation, http.StatusBadRequest, "Invalid request body")
	CodeMissingCredentials        = ErrRegistry.Register("MISSING_CREDENTIALS", errx.TypeValidation, http.StatusBadRequest, "Email and password are required")
	CodeMissingEmail              = ErrRegistry.Register("MISSING_EMAIL", errx.TypeValidation, http.StatusBadRequest, "Email is required")
	CodeMissingOTP                = ErrRegistry.Register("MISSING_OTP", errx.TypeValidation, http.StatusBadRequest, "Email and code are required")
	CodeMissingCodeOrState        = ErrRegistry.Register("MISSING_CODE_OR_STATE", errx.TypeValidation, http.StatusBadRequest, "Missing code or state")
	CodeMissingRegistrationFields = ErrRegistry.Register("MISSING_REGISTRATION_FIELDS", errx.TypeValidation, http.StatusBadRequest, "Email, password, given name, and family name are required")
	CodeUnknownProvider           = ErrRegistry.Register("UNKNOWN_PROVIDER", errx.TypeValidation, http.StatusBadRequest, "Unsupported provider")
	CodeEmailExists               = ErrRegistry.Register("EMAIL_EXISTS", errx.TypeConflict, http.StatusConflict, "An account with this email already exists")
	CodeAccountNotFound           = ErrRegistry.Register("ACCOUNT_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "No account found for this email")
)

func ErrUnauthorized() *errx.Error {
	return ErrRegistry.New(CodeUnauthorized)
}

func ErrInvalidBody() *errx.Error {
	return ErrRegistry.New(CodeInvalidBody)
}

func ErrMissingCredentials() *errx.Error {
	return ErrRegistry.New(CodeMissingCredentials)
}

func ErrMissingEmail() *errx.Error {
	return ErrRegistry.New(CodeMissingEmail)
}

func ErrMissingOTP() *errx.Error {
	return ErrRegistry.New(CodeMissingOTP)
}

func ErrMissingCodeOrState() *errx.Error {
	return ErrRegistry.New(CodeMissingCodeOrState)
}

func ErrMissingRegistrationFields() *errx.Error {
	return ErrRegistry.New(CodeMissingRegistrationFields)
}

func ErrUnknownProvider() *errx.Error {
	return ErrRegistry.New(CodeUnknownProvider)
}

func ErrEmailExists() *errx.Error {
	return ErrRegistry.New(CodeEmailExists)
}

func ErrAccountNotFound() *errx.Error {
	return ErrRegistry.New(CodeAccountNotFound)
}
