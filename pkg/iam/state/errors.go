package state

import (
	"net/http"

	"github.com/Abraxas-365/jobgrid/pkg/errx"
)

var ErrRegistry = errx.NewRegistry("STATE")

var (
	CodeMalformed = ErrRegistry.Register("MALFORMED", errx.TypeValidation, http.StatusBadRequest, "Invalid state parameter")
	CodeInvalid   = ErrRegistry.Register("INVALID", errx.TypeValidation, http.StatusBadRequest, "Invalid or expired state")
	CodeStore     = ErrRegistry.Register("STORE", errx.TypeExternal, http.StatusInternalServerError, "State store unavailable")
	CodeExists    = ErrRegistry.Register("EXISTS", errx.TypeConflict, http.StatusConflict, "State nonce already issued")
)

func ErrMalformedState() *errx.Error {
	return ErrRegistry.New(CodeMalformed)
}

func ErrInvalidState() *errx.Error {
	return ErrRegistry.New(CodeInvalid)
}

func ErrStore() *errx.Error {
	return ErrRegistry.New(CodeStore)
}

func ErrNonceExists() *errx.Error {
	return ErrRegistry.New(CodeExists)
}
