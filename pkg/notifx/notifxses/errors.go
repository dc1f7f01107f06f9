package notifxses

import "github.com/Abraxas-365/jobgrid/pkg/errx"

var sesErrors = errx.NewRegistry("NOTIFX_SES")

var (
	ErrSendFailed = sesErrors.Register("SEND_FAILED", errx.TypeExternal, 500, "SES send email failed")

	// ErrRejected means SES refused the message itself (unverified sender,
	// malformed address); retrying will not help.
	ErrRejected = sesErrors.Register("REJECTED", errx.TypeValidation, 400, "SES rejected the email")
)
