package session

import (
	"net/http"

	"github.com/Abraxas-365/jobgrid/pkg/errx"
)

var ErrRegistry = errx.NewRegistry("SESSION")

var (
	CodeInvalidSignature = ErrRegistry.Register("INVALID_SIGNATURE", errx.TypeAuthorization, http.StatusUnauthorized, "Invalid session signature")
	CodeExpired          = ErrRegistry.Register("EXPIRED", errx.TypeAuthorization, http.StatusUnauthorized, "Session expired")
	CodeInvalid          = ErrRegistry.Register("INVALID", errx.TypeAuthorization, http.StatusUnauthorized, "Unauthorized - invalid session")
	CodeSignFailed       = ErrRegistry.Register("SIGN_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Could not create session")
)

func ErrInvalidSignature() *errx.Error {
	return ErrRegistry.New(CodeInvalidSignature)
}

func ErrExpired() *errx.Error {
	return ErrRegistry.New(CodeExpired)
}

func ErrInvalid() *errx.Error {
	return ErrRegistry.New(CodeInvalid)
}

func ErrSignFailed() *errx.Error {
	return ErrRegistry.New(CodeSignFailed)
}

// Opaque collapses every verification failure into CodeInvalid so callers
// cannot tell a forged token from an expired one. The original failure is
// kept as the cause for logging.
func Opaque(err error) *errx.Error {
	if err == nil {
		return nil
	}
	return ErrInvalid().WithCause(err)
}
