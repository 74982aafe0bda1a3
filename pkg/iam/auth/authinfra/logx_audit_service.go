package authinfra

import (
	"context"
	"time"

	"github.com/clientela/clientela/pkg/kernel"
	"github.com/clientela/clientela/pkg/logx"
)

// LogxAuditService implements auth.AuditService using structured logx logging.
type LogxAuditService struct{}

func NewLogxAuditService() *LogxAuditService {
	return &LogxAuditService{}
}

func (s *LogxAuditService) LogValidationAttempt(_ context.Context, fp kernel.Fingerprint, outcome string) {
	logx.WithFields(logx.Fields{
		"audit_event": "invitation_validation",
		"outcome":     outcome,
		"ip":          fp.IP,
		"user_agent":  fp.UserAgent,
		"timestamp":   time.Now(),
	}).Info("Audit: invitation validation attempt")
}

func (s *LogxAuditService) LogRateLimited(_ context.Context, fp kernel.Fingerprint, operation string) {
	// Se registra aparte de los intentos inválidos ordinarios para poder
	// distinguir fuerza bruta de errores de tipeo en la investigación.
	logx.WithFields(logx.Fields{
		"audit_event": "rate_limited",
		"operation":   operation,
		"ip":          fp.IP,
		"user_agent":  fp.UserAgent,
		"timestamp":   time.Now(),
	}).Warn("Audit: client throttled")
}

func (s *LogxAuditService) LogWebhookReceived(_ context.Context, eventKind string, verified bool, ip string) {
	logx.WithFields(logx.Fields{
		"audit_event": "webhook_received",
		"event_kind":  eventKind,
		"verified":    verified,
		"ip":          ip,
		"timestamp":   time.Now(),
	}).Info("Audit: webhook received")
}

func (s *LogxAuditService) LogProvisioned(_ context.Context, profileID kernel.ProfileID, externalID kernel.ExternalID, outcome string) {
	logx.WithFields(logx.Fields{
		"audit_event": "profile_provisioned",
		"profile_id":  profileID,
		"external_id": externalID,
		"outcome":     outcome,
		"timestamp":   time.Now(),
	}).Info("Audit: profile provisioned")
}

func (s *LogxAuditService) LogVerificationResend(_ context.Context, fp kernel.Fingerprint, known bool) {
	logx.WithFields(logx.Fields{
		"audit_event": "verification_resend",
		"known":       known,
		"ip":          fp.IP,
		"user_agent":  fp.UserAgent,
		"timestamp":   time.Now(),
	}).Info("Audit: verification resend requested")
}

func (s *LogxAuditService) LogLogout(_ context.Context, profileID kernel.ProfileID, ip string) {
	logx.WithFields(logx.Fields{
		"audit_event": "logout",
		"profile_id":  profileID,
		"ip":          ip,
		"timestamp":   time.Now(),
	}).Info("Audit: logout")
}
