package identity

import (
	"net/http"

	"github.com/Abraxas-365/jobgrid/pkg/errx"
)

var ErrRegistry = errx.NewRegistry("IDENTITY")

var (
	CodeTokenExchange      = ErrRegistry.Register("TOKEN_EXCHANGE", errx.TypeExternal, http.StatusInternalServerError, "Authentication failed")
	CodeInvalidCredentials = ErrRegistry.Register("INVALID_CREDENTIALS", errx.TypeAuthorization, http.StatusUnauthorized, "Authentication failed")
	CodeInvalidOTP         = ErrRegistry.Register("INVALID_OTP", errx.TypeValidation, http.StatusBadRequest, "Invalid or expired code")
	CodePasswordless       = ErrRegistry.Register("PASSWORDLESS_START", errx.TypeExternal, http.StatusInternalServerError, "Could not send verification code")
	CodeSignup             = ErrRegistry.Register("SIGNUP", errx.TypeValidation, http.StatusBadRequest, "Registration failed")
	CodeInvalidIDToken     = ErrRegistry.Register("INVALID_ID_TOKEN", errx.TypeExternal, http.StatusInternalServerError, "Authentication failed")
	CodeUserInfo           = ErrRegistry.Register("USERINFO", errx.TypeExternal, http.StatusInternalServerError, "Could not load profile")
)

func ErrTokenExchange() *errx.Error {
	return ErrRegistry.New(CodeTokenExchange)
}

func ErrInvalidCredentials() *errx.Error {
	return ErrRegistry.New(CodeInvalidCredentials)
}

func ErrInvalidOTP() *errx.Error {
	return ErrRegistry.New(CodeInvalidOTP)
}

func ErrPasswordless() *errx.Error {
	return ErrRegistry.New(CodePasswordless)
}

func ErrSignup() *errx.Error {
	return ErrRegistry.New(CodeSignup)
}

func ErrInvalidIDToken() *errx.Error {
	return ErrRegistry.New(CodeInvalidIDToken)
}

func ErrUserInfo() *errx.Error {
	return ErrRegistry.New(CodeUserInfo)
}
