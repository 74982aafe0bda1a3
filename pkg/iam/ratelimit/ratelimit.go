package ratelimit

import (
	"context"
	"net/http"
	"time"

	"github.com/clientela/clientela/pkg/errx"
)

// Limiter define el contrato de la ventana deslizante de intentos fallidos.
// Los contadores son independientes por clave; incrementos atómicos por clave.
type Limiter interface {
	// Allow verifica si la clave todavía tiene intentos disponibles.
	// No incrementa el contador.
	Allow(ctx context.Context, key string) (bool, error)

	// RecordFailure registra un intento fallido dentro de la ventana.
	RecordFailure(ctx context.Context, key string) error

	// Reset limpia el contador de una clave.
	Reset(ctx context.Context, key string) error
}

// Config parametriza la ventana.
type Config struct {
	MaxAttempts int
	Window      time.Duration
}

var ErrRegistry = errx.NewRegistry("RATELIMIT")

var (
	CodeTooManyAttempts = ErrRegistry.Register("TOO_MANY_ATTEMPTS", errx.TypeRateLimited, http.StatusTooManyRequests, "Too many failed attempts, try again later")
	CodeBackendFailure  = ErrRegistry.Register("BACKEND_FAILURE", errx.TypeInternal, http.StatusInternalServerError, "Rate limit backend failure")
)

func ErrTooManyAttempts() *errx.Error { return ErrRegistry.New(CodeTooManyAttempts) }

func ErrBackendFailure(cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeBackendFailure, cause)
}
