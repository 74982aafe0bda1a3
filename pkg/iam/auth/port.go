package auth

import (
	"context"

	"github.com/clientela/clientela/pkg/kernel"
)

// TokenService defines the contract for session token management
type TokenService interface {
	GenerateAccessToken(profileID kernel.ProfileID, claims map[string]any) (string, error)
	ValidateAccessToken(token string) (*TokenClaims, error)
}

// AuditService defines the contract for security audit logging.
// Every attempt against the invitation validator and the webhook gateway is
// recorded with the client's network origin for abuse investigation.
type AuditService interface {
	LogValidationAttempt(ctx context.Context, fp kernel.Fingerprint, outcome string)
	LogRateLimited(ctx context.Context, fp kernel.Fingerprint, operation string)
	LogWebhookReceived(ctx context.Context, eventKind string, verified bool, ip string)
	LogProvisioned(ctx context.Context, profileID kernel.ProfileID, externalID kernel.ExternalID, outcome string)
	LogVerificationResend(ctx context.Context, fp kernel.Fingerprint, known bool)
	LogLogout(ctx context.Context, profileID kernel.ProfileID, ip string)
}
