package profilesrv

import (
	"context"
	"time"

	"github.com/clientela/clientela/pkg/config"
	"github.com/clientela/clientela/pkg/errx"
	"github.com/clientela/clientela/pkg/iam/auth"
	"github.com/clientela/clientela/pkg/iam/invitation"
	"github.com/clientela/clientela/pkg/iam/profile"
	"github.com/clientela/clientela/pkg/iam/ratelimit"
	"github.com/clientela/clientela/pkg/kernel"
	"github.com/clientela/clientela/pkg/logx"
	"github.com/google/uuid"
)

// ProvisionStatus es el resultado de procesar un evento de aprovisionamiento
type ProvisionStatus string

const (
	StatusCreated            ProvisionStatus = "created"
	StatusAlreadyProvisioned ProvisionStatus = "already-provisioned"
)

// ProvisionResult resume qué hizo el aprovisionamiento con un evento.
// El webhook responde 200 con este resumen incluso cuando no creó nada,
// para que el proveedor no reintente condiciones permanentes.
type ProvisionResult struct {
	Status     ProvisionStatus  `json:"status"`
	ProfileID  kernel.ProfileID `json:"profile_id"`
	GrantCount int              `json:"grant_count"`
}

// VerificationNotifier reenvía el correo de verificación del proveedor externo
type VerificationNotifier interface {
	SendVerification(ctx context.Context, email string) error
}

// ProvisioningService materializa identidades del proveedor externo como
// perfiles locales. El proveedor es la fuente de verdad de credenciales;
// aquí sólo se crea el estado del CRM y el lote de invitaciones en cascada.
type ProvisioningService struct {
	repo     profile.Repository
	store    profile.ProvisioningStore
	limiter  ratelimit.Limiter
	audit    auth.AuditService
	notifier VerificationNotifier
	cfg      config.InvitationConfig
}

// NewProvisioningService crea una nueva instancia del servicio de aprovisionamiento
func NewProvisioningService(
	repo profile.Repository,
	store profile.ProvisioningStore,
	limiter ratelimit.Limiter,
	audit auth.AuditService,
	notifier VerificationNotifier,
	cfg config.InvitationConfig,
) *ProvisioningService {
	return &ProvisioningService{
		repo:     repo,
		store:    store,
		limiter:  limiter,
		audit:    audit,
		notifier: notifier,
		cfg:      cfg,
	}
}

// Provision procesa un evento de usuario creado/confirmado. Idempotente por
// external_id: el mismo evento entregado dos veces produce un solo perfil.
func (s *ProvisioningService) Provision(ctx context.Context, externalID kernel.ExternalID, email, name string, code *string) (*ProvisionResult, error) {
	if externalID.IsEmpty() {
		return nil, errx.Validation("external id is required")
	}
	if email == "" {
		return nil, errx.Validation("email is required")
	}

	// Chequeo de idempotencia antes de abrir la transacción
	existing, err := s.repo.FindByExternalID(ctx, externalID)
	if err == nil {
		s.audit.LogProvisioned(ctx, existing.ID, externalID, string(StatusAlreadyProvisioned))
		return &ProvisionResult{
			Status:    StatusAlreadyProvisioned,
			ProfileID: existing.ID,
		}, nil
	}
	if !errx.IsType(err, errx.TypeNotFound) {
		return nil, err
	}

	p := profile.Profile{
		ID:         kernel.NewProfileID(uuid.NewString()),
		ExternalID: externalID,
		Email:      profile.NormalizeEmail(email),
		Name:       name,
		CreatedAt:  time.Now(),
	}

	grants, err := invitation.NewBatch(p.ID, s.cfg.GrantCount, s.cfg.CodeLength, s.cfg.TTL)
	if err != nil {
		return nil, err
	}

	if err := s.store.Provision(ctx, p, code, grants); err != nil {
		// Dos entregas del mismo evento pueden cruzar el chequeo de arriba;
		// la restricción única convierte la segunda en un no-op.
		if errx.IsType(err, errx.TypeConflict) && !IsCodeConflict(err) {
			if existing, findErr := s.repo.FindByExternalID(ctx, externalID); findErr == nil {
				s.audit.LogProvisioned(ctx, existing.ID, externalID, string(StatusAlreadyProvisioned))
				return &ProvisionResult{
					Status:    StatusAlreadyProvisioned,
					ProfileID: existing.ID,
				}, nil
			}
		}
		return nil, err
	}

	s.audit.LogProvisioned(ctx, p.ID, externalID, string(StatusCreated))
	logx.WithFields(logx.Fields{
		"profile_id":  p.ID,
		"grant_count": len(grants),
	}).Info("✅ Profile provisioned")

	return &ProvisionResult{
		Status:     StatusCreated,
		ProfileID:  p.ID,
		GrantCount: len(grants),
	}, nil
}

// IsCodeConflict distingue la carrera por el código de invitación (el registro
// entero debe abortarse) de la carrera por el perfil (idempotencia).
func IsCodeConflict(err error) bool {
	var e *errx.Error
	if errx.As(err, &e) {
		return e.Code == invitation.CodeConflict.Code
	}
	return false
}

// CheckEmail responde si un email ya tiene perfil, para que el frontend
// dirija al usuario a login o a registro.
func (s *ProvisioningService) CheckEmail(ctx context.Context, email string) (bool, error) {
	if email == "" {
		return false, errx.Validation("email is required")
	}
	return s.repo.ExistsByEmail(ctx, email)
}

// ResendVerification pide al proveedor reenviar el correo de verificación.
// La respuesta es neutral: no revela si el email existe, y los intentos
// comparten la misma ventana anti enumeración que la validación de códigos.
func (s *ProvisioningService) ResendVerification(ctx context.Context, email string, fp kernel.Fingerprint) error {
	if email == "" {
		return errx.Validation("email is required")
	}

	allowed, err := s.limiter.Allow(ctx, "resend:"+fp.Key())
	if err != nil {
		return errx.Wrap(err, "rate limiter unavailable", errx.TypeInternal)
	}
	if !allowed {
		s.audit.LogRateLimited(ctx, fp, "resend-verification")
		return ratelimit.ErrTooManyAttempts()
	}

	known, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return err
	}

	s.audit.LogVerificationResend(ctx, fp, known)

	if !known {
		// Cuenta como intento fallido y se responde igual que el caso conocido
		if recErr := s.limiter.RecordFailure(ctx, "resend:"+fp.Key()); recErr != nil {
			logx.WithError(recErr).Warn("failed to record resend attempt")
		}
		return nil
	}

	if err := s.notifier.SendVerification(ctx, profile.NormalizeEmail(email)); err != nil {
		// El cliente recibe la respuesta neutral aunque el reenvío falle
		logx.WithError(err).Error("failed to dispatch verification resend")
	}

	return nil
}
