package mailxqueue

import "github.com/clientela/clientela/pkg/errx"

var queueErrors = errx.NewRegistry("MAILX_QUEUE")

var (
	ErrEnqueue = queueErrors.Register("ENQUEUE_FAILED", errx.TypeInternal, 500, "Failed to enqueue mail envelope")
	ErrDequeue = queueErrors.Register("DEQUEUE_FAILED", errx.TypeInternal, 500, "Failed to dequeue mail envelope")
	ErrMarshal = queueErrors.Register("MARSHAL_FAILED", errx.TypeInternal, 500, "Failed to encode mail envelope")
)
