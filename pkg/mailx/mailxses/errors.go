package mailxses

import "github.com/clientela/clientela/pkg/errx"

var sesErrors = errx.NewRegistry("MAILX_SES")

var (
	ErrSendFailed = sesErrors.Register("SEND_FAILED", errx.TypeExternal, 502, "SES send email failed")
)
