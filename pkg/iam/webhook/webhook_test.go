package webhook_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clientela/clientela/pkg/config"
	"github.com/clientela/clientela/pkg/errx"
	"github.com/clientela/clientela/pkg/iam/invitation"
	"github.com/clientela/clientela/pkg/iam/profile"
	"github.com/clientela/clientela/pkg/iam/profile/profilesrv"
	"github.com/clientela/clientela/pkg/iam/webhook"
	"github.com/clientela/clientela/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

const testSecret = "shhh-webhook-secret"

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// --- Gateway ---

func TestGateway_Verify(t *testing.T) {
	g := webhook.NewGateway(testSecret)
	body := []byte(`{"type":"user.created"}`)

	if !g.Verify(body, sign(body)) {
		t.Fatal("valid signature rejected")
	}
	if g.Verify(body, sign([]byte(`{"type":"user.created","x":1}`))) {
		t.Fatal("signature for a different body accepted")
	}
	if g.Verify(body, "") {
		t.Fatal("empty signature accepted")
	}
	if g.Verify(append(body, ' '), sign(body)) {
		t.Fatal("tampered body accepted")
	}
}

func TestGateway_Parse(t *testing.T) {
	g := webhook.NewGateway(testSecret)

	event, err := g.Parse([]byte(`{"type":"user.created","data":{"user_id":"ext-1","email":"a@b.com","invitation_code":"ABC123"}}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if event.Kind != webhook.EventUserCreated {
		t.Fatalf("expected user.created, got %s", event.Kind)
	}
	if event.Data.InvitationCode != "ABC123" {
		t.Fatalf("invitation code lost: %q", event.Data.InvitationCode)
	}

	if _, err := g.Parse([]byte(`not json`)); err == nil {
		t.Fatal("expected parse error for malformed payload")
	}
}

// --- fakes for the full handler path ---

type fakeProfileRepo struct {
	existing *profile.Profile
}

func (r *fakeProfileRepo) FindByID(_ context.Context, _ kernel.ProfileID) (*profile.Profile, error) {
	return nil, profile.ErrProfileNotFound()
}

func (r *fakeProfileRepo) FindByExternalID(_ context.Context, ext kernel.ExternalID) (*profile.Profile, error) {
	if r.existing != nil && r.existing.ExternalID == ext {
		return r.existing, nil
	}
	return nil, profile.ErrProfileNotFound()
}

func (r *fakeProfileRepo) FindByEmail(_ context.Context, _ string) (*profile.Profile, error) {
	return nil, profile.ErrProfileNotFound()
}

func (r *fakeProfileRepo) ExistsByEmail(_ context.Context, _ string) (bool, error) {
	return false, nil
}

type fakeStore struct {
	err   error
	calls int
}

func (s *fakeStore) Provision(_ context.Context, _ profile.Profile, _ *string, _ []invitation.Code) error {
	s.calls++
	return s.err
}

type noopLimiter struct{}

func (noopLimiter) Allow(_ context.Context, _ string) (bool, error)  { return true, nil }
func (noopLimiter) RecordFailure(_ context.Context, _ string) error  { return nil }
func (noopLimiter) Reset(_ context.Context, _ string) error          { return nil }

type fakeAudit struct {
	webhooks []bool
}

func (a *fakeAudit) LogValidationAttempt(_ context.Context, _ kernel.Fingerprint, _ string) {}
func (a *fakeAudit) LogRateLimited(_ context.Context, _ kernel.Fingerprint, _ string)       {}
func (a *fakeAudit) LogWebhookReceived(_ context.Context, _ string, verified bool, _ string) {
	a.webhooks = append(a.webhooks, verified)
}
func (a *fakeAudit) LogProvisioned(_ context.Context, _ kernel.ProfileID, _ kernel.ExternalID, _ string) {
}
func (a *fakeAudit) LogVerificationResend(_ context.Context, _ kernel.Fingerprint, _ bool) {}
func (a *fakeAudit) LogLogout(_ context.Context, _ kernel.ProfileID, _ string)             {}

type noopVerifier struct{}

func (noopVerifier) SendVerification(_ context.Context, _ string) error { return nil }

func newTestApp(store *fakeStore, repo *fakeProfileRepo) (*fiber.App, *fakeAudit) {
	audit := &fakeAudit{}

	provisioner := profilesrv.NewProvisioningService(
		repo,
		store,
		noopLimiter{},
		audit,
		noopVerifier{},
		config.InvitationConfig{GrantCount: 5, CodeLength: 16},
	)

	handlers := webhook.NewWebhookHandlers(
		webhook.NewGateway(testSecret),
		provisioner,
		audit,
		"X-Webhook-Signature",
		5*time.Second,
	)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var e *errx.Error
			if errx.As(err, &e) {
				return c.Status(e.HTTPStatus).JSON(e)
			}
			return c.SendStatus(fiber.StatusInternalServerError)
		},
	})
	handlers.RegisterRoutes(app)
	return app, audit
}

func postEvent(t *testing.T, app *fiber.App, body []byte, signature string) *http.Response {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/v1/auth/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-Webhook-Signature", signature)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("response not JSON: %v (%s)", err, raw)
	}
	return out
}

// --- handler ---

func TestReceive_BadSignature(t *testing.T) {
	store := &fakeStore{}
	app, audit := newTestApp(store, &fakeProfileRepo{})

	body := []byte(`{"type":"user.created","data":{"user_id":"ext-1","email":"a@b.com"}}`)

	resp := postEvent(t, app, body, "deadbeef")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if store.calls != 0 {
		t.Fatal("nothing must be provisioned on a bad signature")
	}
	if len(audit.webhooks) != 1 || audit.webhooks[0] {
		t.Fatal("rejected webhook not audited as unverified")
	}
}

func TestReceive_MissingSignature(t *testing.T) {
	store := &fakeStore{}
	app, _ := newTestApp(store, &fakeProfileRepo{})

	body := []byte(`{"type":"user.created","data":{"user_id":"ext-1","email":"a@b.com"}}`)

	resp := postEvent(t, app, body, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestReceive_UnknownKindIgnored(t *testing.T) {
	store := &fakeStore{}
	app, _ := newTestApp(store, &fakeProfileRepo{})

	body := []byte(`{"type":"user.password_changed","data":{"user_id":"ext-1"}}`)

	resp := postEvent(t, app, body, sign(body))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if decodeBody(t, resp)["status"] != "ignored" {
		t.Fatal("unknown kind should be reported as ignored")
	}
	if store.calls != 0 {
		t.Fatal("unknown kinds must not provision")
	}
}

func TestReceive_ProvisionsUser(t *testing.T) {
	store := &fakeStore{}
	app, _ := newTestApp(store, &fakeProfileRepo{})

	body := []byte(`{"type":"user.created","data":{"user_id":"ext-1","email":"a@b.com","name":"Nina","invitation_code":"ABC123"}}`)

	resp := postEvent(t, app, body, sign(body))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	out := decodeBody(t, resp)
	if out["status"] != "created" {
		t.Fatalf("expected created, got %v", out["status"])
	}
	if out["grant_count"] != float64(5) {
		t.Fatalf("expected 5 grants, got %v", out["grant_count"])
	}
	if store.calls != 1 {
		t.Fatalf("expected one provisioning call, got %d", store.calls)
	}
}

func TestReceive_DuplicateDelivery(t *testing.T) {
	existing := &profile.Profile{
		ID:         kernel.NewProfileID("p-1"),
		ExternalID: kernel.NewExternalID("ext-1"),
		Email:      "a@b.com",
	}
	store := &fakeStore{}
	app, _ := newTestApp(store, &fakeProfileRepo{existing: existing})

	body := []byte(`{"type":"user.confirmed","data":{"user_id":"ext-1","email":"a@b.com"}}`)

	resp := postEvent(t, app, body, sign(body))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if decodeBody(t, resp)["status"] != "already-provisioned" {
		t.Fatal("duplicate delivery should report already-provisioned")
	}
	if store.calls != 0 {
		t.Fatal("duplicate delivery must not hit the store")
	}
}

func TestReceive_CodeConflictIsNotRetriable(t *testing.T) {
	store := &fakeStore{err: invitation.ErrCodeConflict()}
	app, _ := newTestApp(store, &fakeProfileRepo{})

	body := []byte(`{"type":"user.created","data":{"user_id":"ext-1","email":"a@b.com","invitation_code":"TAKEN1"}}`)

	resp := postEvent(t, app, body, sign(body))
	// 200 para que el proveedor no reintente una condición permanente
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if decodeBody(t, resp)["status"] != "rejected" {
		t.Fatal("code conflict should be reported as rejected")
	}
}
