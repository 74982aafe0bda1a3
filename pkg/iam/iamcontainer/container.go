package iamcontainer

import (
	"github.com/clientela/clientela/pkg/config"
	"github.com/clientela/clientela/pkg/iam/auth"
	"github.com/clientela/clientela/pkg/iam/auth/authinfra"
	"github.com/clientela/clientela/pkg/iam/invitation/invitationapi"
	"github.com/clientela/clientela/pkg/iam/invitation/invitationinfra"
	"github.com/clientela/clientela/pkg/iam/invitation/invitationsrv"
	"github.com/clientela/clientela/pkg/iam/profile/profileapi"
	"github.com/clientela/clientela/pkg/iam/profile/profileinfra"
	"github.com/clientela/clientela/pkg/iam/profile/profilesrv"
	"github.com/clientela/clientela/pkg/iam/ratelimit"
	"github.com/clientela/clientela/pkg/iam/webhook"
	"github.com/clientela/clientela/pkg/logx"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// ---------------------------------------------------------------------------
// Deps: explicit external dependencies this bounded context requires.
// No hidden globals, no ambient state — everything comes through here.
// ---------------------------------------------------------------------------

type Deps struct {
	DB    *sqlx.DB
	Redis *redis.Client
	Cfg   *config.Config

	// Notifiers are cross-context dependencies injected as interfaces so the
	// IAM module has zero knowledge of the concrete mail implementation.
	InvitationNotifier   invitationsrv.Notifier
	VerificationNotifier profilesrv.VerificationNotifier
}

// ---------------------------------------------------------------------------
// Container: the public surface of the IAM module.
// Only expose what other modules or cmd/ actually need.
// ---------------------------------------------------------------------------

type Container struct {
	// Services — available for cross-module consumption
	InvitationService   *invitationsrv.InvitationService
	ProvisioningService *profilesrv.ProvisioningService
	TokenService        auth.TokenService

	// API handlers — needed by cmd/ to register routes
	InvitationHandlers *invitationapi.InvitationHandlers
	ProfileHandlers    *profileapi.ProfileHandlers
	WebhookHandlers    *webhook.WebhookHandlers

	// Session plumbing — needed by cmd/ for the root and logout routes
	AuthMiddleware *auth.TokenMiddleware
	SessionGate    *auth.SessionGate
}

// ---------------------------------------------------------------------------
// New: constructs the entire IAM dependency graph.
// Order matters: infra → repos → services → handlers → middleware.
// ---------------------------------------------------------------------------

func New(deps Deps) *Container {
	logx.Info("🔧 Initializing IAM container...")

	c := &Container{}

	// ── Repositories ─────────────────────────────────────────────────────

	invitationRepo := invitationinfra.NewPostgresInvitationRepository(deps.DB)
	profileRepo := profileinfra.NewPostgresProfileRepository(deps.DB)
	provisioningStore := profileinfra.NewPostgresProvisioningStore(deps.DB)

	// ── Infrastructure services ──────────────────────────────────────────

	limiterCfg := ratelimit.Config{
		MaxAttempts: deps.Cfg.RateLimit.MaxAttempts,
		Window:      deps.Cfg.RateLimit.Window,
	}

	var limiter ratelimit.Limiter
	if deps.Cfg.RateLimit.Backend == "redis" {
		limiter = ratelimit.NewRedisLimiter(deps.Redis, limiterCfg)
		logx.Info("  ✅ Using Redis rate limiter")
	} else {
		limiter = ratelimit.NewMemoryLimiter(limiterCfg)
		logx.Warn("  ⚠️  Using in-memory rate limiter (not recommended for multi-instance deployments)")
	}

	c.TokenService = auth.NewJWTService(
		deps.Cfg.Auth.JWTSecret,
		deps.Cfg.Auth.AccessTokenTTL,
		deps.Cfg.Auth.JWTIssuer,
	)

	auditService := authinfra.NewLogxAuditService()

	// ── Domain services ──────────────────────────────────────────────────

	c.InvitationService = invitationsrv.NewInvitationService(
		invitationRepo,
		limiter,
		auditService,
		deps.InvitationNotifier,
	)

	c.ProvisioningService = profilesrv.NewProvisioningService(
		profileRepo,
		provisioningStore,
		limiter,
		auditService,
		deps.VerificationNotifier,
		deps.Cfg.Invitation,
	)

	// ── Middleware & session gate ────────────────────────────────────────

	c.AuthMiddleware = auth.NewAuthMiddleware(c.TokenService, deps.Cfg.Auth.CookieName)
	c.SessionGate = auth.NewSessionGate(
		c.AuthMiddleware,
		auditService,
		deps.Cfg.Auth.CookieName,
		deps.Cfg.Auth.SecureCookies,
	)

	// ── API handlers ─────────────────────────────────────────────────────

	opTimeout := deps.Cfg.Server.OpTimeout

	c.InvitationHandlers = invitationapi.NewInvitationHandlers(c.InvitationService, opTimeout)
	c.ProfileHandlers = profileapi.NewProfileHandlers(c.ProvisioningService, opTimeout)

	gateway := webhook.NewGateway(deps.Cfg.Webhook.Secret)
	c.WebhookHandlers = webhook.NewWebhookHandlers(
		gateway,
		c.ProvisioningService,
		auditService,
		deps.Cfg.Webhook.SignatureHeader,
		opTimeout,
	)

	logx.Info("✅ IAM container initialized")
	return c
}
