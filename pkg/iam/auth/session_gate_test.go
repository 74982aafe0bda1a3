package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/clientela/clientela/pkg/iam/auth"
	"github.com/clientela/clientela/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

type fakeAudit struct {
	logouts int
}

func (a *fakeAudit) LogValidationAttempt(_ context.Context, _ kernel.Fingerprint, _ string) {}
func (a *fakeAudit) LogRateLimited(_ context.Context, _ kernel.Fingerprint, _ string)       {}
func (a *fakeAudit) LogWebhookReceived(_ context.Context, _ string, _ bool, _ string)       {}
func (a *fakeAudit) LogProvisioned(_ context.Context, _ kernel.ProfileID, _ kernel.ExternalID, _ string) {
}
func (a *fakeAudit) LogVerificationResend(_ context.Context, _ kernel.Fingerprint, _ bool) {}
func (a *fakeAudit) LogLogout(_ context.Context, _ kernel.ProfileID, _ string) {
	a.logouts++
}

func newGateApp(t *testing.T) (*fiber.App, *auth.JWTService, *fakeAudit) {
	t.Helper()

	tokenSvc := auth.NewJWTService("test-secret", time.Hour, "clientela")
	middleware := auth.NewAuthMiddleware(tokenSvc, "access_token")
	audit := &fakeAudit{}
	gate := auth.NewSessionGate(middleware, audit, "access_token", false)

	app := fiber.New()
	app.Get("/", gate.RootHandler())
	app.Get("/logout", gate.LogoutHandler())
	app.Post("/logout", gate.LogoutHandler())
	return app, tokenSvc, audit
}

func sessionCookie(t *testing.T, tokenSvc *auth.JWTService) *http.Cookie {
	t.Helper()
	token, err := tokenSvc.GenerateAccessToken(kernel.NewProfileID("p-1"), map[string]any{"email": "a@b.com"})
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	return &http.Cookie{Name: "access_token", Value: token}
}

func TestDecide(t *testing.T) {
	gate := auth.NewSessionGate(nil, nil, "", false)

	if got := gate.Decide(true); got != auth.PathDashboard {
		t.Fatalf("authenticated: expected %s, got %s", auth.PathDashboard, got)
	}
	if got := gate.Decide(false); got != auth.PathInviteOnly {
		t.Fatalf("anonymous: expected %s, got %s", auth.PathInviteOnly, got)
	}
}

func TestRootHandler_Anonymous(t *testing.T) {
	app, _, _ := newGateApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != auth.PathInviteOnly {
		t.Fatalf("expected redirect to %s, got %s", auth.PathInviteOnly, loc)
	}
}

func TestRootHandler_Authenticated(t *testing.T) {
	app, tokenSvc, _ := newGateApp(t)

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(sessionCookie(t, tokenSvc))

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if loc := resp.Header.Get("Location"); loc != auth.PathDashboard {
		t.Fatalf("expected redirect to %s, got %s", auth.PathDashboard, loc)
	}
}

func TestRootHandler_BadTokenTreatedAsAnonymous(t *testing.T) {
	app, _, _ := newGateApp(t)

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: "garbage"})

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if loc := resp.Header.Get("Location"); loc != auth.PathInviteOnly {
		t.Fatalf("expected redirect to %s, got %s", auth.PathInviteOnly, loc)
	}
}

func TestLogout(t *testing.T) {
	for _, method := range []string{"GET", "POST"} {
		app, tokenSvc, audit := newGateApp(t)

		req := httptest.NewRequest(method, "/logout", nil)
		req.AddCookie(sessionCookie(t, tokenSvc))

		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("%s logout: %v", method, err)
		}
		if resp.StatusCode != http.StatusFound {
			t.Fatalf("%s logout: expected 302, got %d", method, resp.StatusCode)
		}
		if loc := resp.Header.Get("Location"); loc != auth.PathLogin {
			t.Fatalf("%s logout: expected redirect to %s, got %s", method, auth.PathLogin, loc)
		}

		// La cookie queda expirada
		expired := false
		for _, c := range resp.Cookies() {
			if c.Name == "access_token" && c.Value == "" && c.Expires.Before(time.Now()) {
				expired = true
			}
		}
		if !expired {
			t.Fatalf("%s logout: session cookie not expired", method)
		}

		if audit.logouts != 1 {
			t.Fatalf("%s logout: expected 1 audit entry, got %d", method, audit.logouts)
		}
	}
}

func TestLogout_WithoutSession(t *testing.T) {
	app, _, audit := newGateApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/logout", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if !strings.HasPrefix(resp.Header.Get("Location"), auth.PathLogin) {
		t.Fatal("logout without session should still redirect to login")
	}
	if audit.logouts != 0 {
		t.Fatal("no audit entry expected without a session")
	}
}
