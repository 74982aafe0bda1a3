package invitationsrv_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clientela/clientela/pkg/iam/invitation"
	"github.com/clientela/clientela/pkg/iam/invitation/invitationsrv"
	"github.com/clientela/clientela/pkg/kernel"
)

// --- fakes ---

// fakeRepo is an in-memory invitation.Repository keyed by token.
type fakeRepo struct {
	codes map[string]*invitation.Code
}

func newFakeRepo(codes ...*invitation.Code) *fakeRepo {
	r := &fakeRepo{codes: make(map[string]*invitation.Code)}
	for _, c := range codes {
		r.codes[c.Code] = c
	}
	return r
}

func (r *fakeRepo) Create(_ context.Context, codes []invitation.Code) error {
	for i := range codes {
		c := codes[i]
		r.codes[c.Code] = &c
	}
	return nil
}

func (r *fakeRepo) FindByCode(_ context.Context, code string) (*invitation.Code, error) {
	c, ok := r.codes[code]
	if !ok {
		return nil, invitation.ErrCodeNotFound()
	}
	return c, nil
}

func (r *fakeRepo) FindByOwner(_ context.Context, owner kernel.ProfileID) ([]*invitation.Code, error) {
	var out []*invitation.Code
	for _, c := range r.codes {
		if c.OwnerID != nil && *c.OwnerID == owner {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeRepo) FindByInvitee(_ context.Context, invitee kernel.ProfileID) (*invitation.Code, error) {
	for _, c := range r.codes {
		if c.InviteeID != nil && *c.InviteeID == invitee {
			return c, nil
		}
	}
	return nil, invitation.ErrCodeNotFound()
}

func (r *fakeRepo) Consume(_ context.Context, code string, invitee kernel.ProfileID, usedAt time.Time) error {
	c, ok := r.codes[code]
	if !ok || !c.IsAvailable() {
		return invitation.ErrCodeConflict()
	}
	c.Status = invitation.StatusUsed
	c.InviteeID = &invitee
	c.UsedAt = &usedAt
	return nil
}

// fakeLimiter counts failures per key without a clock.
type fakeLimiter struct {
	max      int
	failures map[string]int
	allowErr error
}

func newFakeLimiter(max int) *fakeLimiter {
	return &fakeLimiter{max: max, failures: make(map[string]int)}
}

func (l *fakeLimiter) Allow(_ context.Context, key string) (bool, error) {
	if l.allowErr != nil {
		return false, l.allowErr
	}
	return l.failures[key] < l.max, nil
}

func (l *fakeLimiter) RecordFailure(_ context.Context, key string) error {
	l.failures[key]++
	return nil
}

func (l *fakeLimiter) Reset(_ context.Context, key string) error {
	delete(l.failures, key)
	return nil
}

// fakeAudit records audit calls for assertions.
type fakeAudit struct {
	attempts    []string
	rateLimited int
}

func (a *fakeAudit) LogValidationAttempt(_ context.Context, _ kernel.Fingerprint, outcome string) {
	a.attempts = append(a.attempts, outcome)
}
func (a *fakeAudit) LogRateLimited(_ context.Context, _ kernel.Fingerprint, _ string) {
	a.rateLimited++
}
func (a *fakeAudit) LogWebhookReceived(_ context.Context, _ string, _ bool, _ string)             {}
func (a *fakeAudit) LogProvisioned(_ context.Context, _ kernel.ProfileID, _ kernel.ExternalID, _ string) {
}
func (a *fakeAudit) LogVerificationResend(_ context.Context, _ kernel.Fingerprint, _ bool) {}
func (a *fakeAudit) LogLogout(_ context.Context, _ kernel.ProfileID, _ string)             {}

// fakeNotifier records sent codes.
type fakeNotifier struct {
	sent []string
	err  error
}

func (n *fakeNotifier) SendInvitationCode(_ context.Context, email, code string, _ *time.Time) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, email+":"+code)
	return nil
}

// --- helpers ---

func availableCode(token string, owner *kernel.ProfileID) *invitation.Code {
	return &invitation.Code{
		ID:        "id-" + token,
		Code:      token,
		Status:    invitation.StatusAvailable,
		OwnerID:   owner,
		CreatedAt: time.Now(),
	}
}

var testFP = kernel.Fingerprint{IP: "203.0.113.9", UserAgent: "test-agent"}

// --- Validate ---

func TestValidate_ValidCode(t *testing.T) {
	owner := kernel.NewProfileID("owner-1")
	svc := invitationsrv.NewInvitationService(
		newFakeRepo(availableCode("ABC123", &owner)),
		newFakeLimiter(10),
		&fakeAudit{},
		&fakeNotifier{},
	)

	result, err := svc.Validate(context.Background(), "ABC123", testFP)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.Outcome != invitationsrv.OutcomeValid {
		t.Fatalf("expected valid, got %s", result.Outcome)
	}
	if result.OwnerID == nil || *result.OwnerID != owner {
		t.Fatal("owner not returned for valid code")
	}
}

func TestValidate_UnknownCode(t *testing.T) {
	limiter := newFakeLimiter(10)
	audit := &fakeAudit{}
	svc := invitationsrv.NewInvitationService(newFakeRepo(), limiter, audit, &fakeNotifier{})

	result, err := svc.Validate(context.Background(), "NOPE", testFP)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.Outcome != invitationsrv.OutcomeInvalid {
		t.Fatalf("expected invalid, got %s", result.Outcome)
	}
	if limiter.failures["invite:"+testFP.Key()] != 1 {
		t.Fatal("failed attempt not recorded")
	}
	if len(audit.attempts) != 1 || audit.attempts[0] != "invalid" {
		t.Fatalf("attempt not audited: %v", audit.attempts)
	}
}

func TestValidate_AlreadyUsed(t *testing.T) {
	code := availableCode("XYZ789", nil)
	invitee := kernel.NewProfileID("someone")
	_ = code.Consume(invitee)

	svc := invitationsrv.NewInvitationService(newFakeRepo(code), newFakeLimiter(10), &fakeAudit{}, &fakeNotifier{})

	result, err := svc.Validate(context.Background(), "XYZ789", testFP)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.Outcome != invitationsrv.OutcomeAlreadyUsed {
		t.Fatalf("expected already-used, got %s", result.Outcome)
	}
}

func TestValidate_ExpiredReportsInvalid(t *testing.T) {
	code := availableCode("OLD111", nil)
	past := time.Now().Add(-time.Hour)
	code.ExpiresAt = &past

	svc := invitationsrv.NewInvitationService(newFakeRepo(code), newFakeLimiter(10), &fakeAudit{}, &fakeNotifier{})

	result, err := svc.Validate(context.Background(), "OLD111", testFP)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	// Un código vencido no se distingue de uno inexistente
	if result.Outcome != invitationsrv.OutcomeInvalid {
		t.Fatalf("expected invalid, got %s", result.Outcome)
	}
}

func TestValidate_RateLimitKicksInAfterMax(t *testing.T) {
	owner := kernel.NewProfileID("owner-1")
	limiter := newFakeLimiter(3)
	audit := &fakeAudit{}
	svc := invitationsrv.NewInvitationService(
		newFakeRepo(availableCode("REAL99", &owner)),
		limiter,
		audit,
		&fakeNotifier{},
	)

	for i := 0; i < 3; i++ {
		result, err := svc.Validate(context.Background(), "WRONG", testFP)
		if err != nil {
			t.Fatalf("Validate #%d: %v", i, err)
		}
		if result.Outcome != invitationsrv.OutcomeInvalid {
			t.Fatalf("attempt %d: expected invalid, got %s", i, result.Outcome)
		}
	}

	// El intento N+1 se rechaza aunque el código enviado sea correcto
	result, err := svc.Validate(context.Background(), "REAL99", testFP)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.Outcome != invitationsrv.OutcomeRateLimited {
		t.Fatalf("expected rate-limited, got %s", result.Outcome)
	}
	if audit.rateLimited != 1 {
		t.Fatal("throttled attempt not audited")
	}
}

func TestValidate_IndependentFingerprints(t *testing.T) {
	limiter := newFakeLimiter(2)
	svc := invitationsrv.NewInvitationService(newFakeRepo(), limiter, &fakeAudit{}, &fakeNotifier{})

	other := kernel.Fingerprint{IP: "198.51.100.4", UserAgent: "other-agent"}

	for i := 0; i < 2; i++ {
		_, _ = svc.Validate(context.Background(), "WRONG", testFP)
	}

	result, err := svc.Validate(context.Background(), "WRONG", other)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.Outcome == invitationsrv.OutcomeRateLimited {
		t.Fatal("throttling one client must not affect another")
	}
}

func TestValidate_LimiterFailureFailsClosed(t *testing.T) {
	limiter := newFakeLimiter(10)
	limiter.allowErr = errors.New("redis down")
	svc := invitationsrv.NewInvitationService(newFakeRepo(), limiter, &fakeAudit{}, &fakeNotifier{})

	if _, err := svc.Validate(context.Background(), "ANY", testFP); err == nil {
		t.Fatal("expected error when limiter is unavailable")
	}
}

func TestValidate_EmptyCode(t *testing.T) {
	svc := invitationsrv.NewInvitationService(newFakeRepo(), newFakeLimiter(10), &fakeAudit{}, &fakeNotifier{})

	if _, err := svc.Validate(context.Background(), "", testFP); err == nil {
		t.Fatal("expected validation error for empty code")
	}
}

// --- SendCode ---

func TestSendCode(t *testing.T) {
	owner := kernel.NewProfileID("owner-1")
	notifier := &fakeNotifier{}
	svc := invitationsrv.NewInvitationService(
		newFakeRepo(availableCode("MINE01", &owner)),
		newFakeLimiter(10),
		&fakeAudit{},
		notifier,
	)

	if err := svc.SendCode(context.Background(), owner, "MINE01", "friend@example.com"); err != nil {
		t.Fatalf("SendCode: %v", err)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("expected 1 mail, got %d", len(notifier.sent))
	}
}

func TestSendCode_NotOwned(t *testing.T) {
	owner := kernel.NewProfileID("owner-1")
	svc := invitationsrv.NewInvitationService(
		newFakeRepo(availableCode("MINE01", &owner)),
		newFakeLimiter(10),
		&fakeAudit{},
		&fakeNotifier{},
	)

	err := svc.SendCode(context.Background(), kernel.NewProfileID("impostor"), "MINE01", "x@example.com")
	if err == nil {
		t.Fatal("expected error sending a code owned by another profile")
	}
}

func TestSendCode_Used(t *testing.T) {
	owner := kernel.NewProfileID("owner-1")
	code := availableCode("MINE01", &owner)
	_ = code.Consume(kernel.NewProfileID("someone"))

	svc := invitationsrv.NewInvitationService(newFakeRepo(code), newFakeLimiter(10), &fakeAudit{}, &fakeNotifier{})

	if err := svc.SendCode(context.Background(), owner, "MINE01", "x@example.com"); err == nil {
		t.Fatal("expected error sending a used code")
	}
}
