package security

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestCSRFTokenBoundToSession(t *testing.T) {
	gen := NewCSRFGenerator("test-secret")

	token, err := gen.GenerateToken("session-a")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	again, err := gen.GenerateToken("session-a")
	if err != nil {
		t.Fatal(err)
	}
	if token != again {
		t.Error("token not stable for the same session")
	}

	if !gen.ValidateToken("session-a", token) {
		t.Error("valid token rejected")
	}
	if gen.ValidateToken("session-b", token) {
		t.Error("token accepted for a different session")
	}
	if gen.ValidateToken("session-a", "") {
		t.Error("empty token accepted")
	}
	if _, err := gen.GenerateToken(""); err == nil {
		t.Error("empty session id did not fail")
	}
}

func TestSessionCookieFlags(t *testing.T) {
	r := httptest.NewRequest("GET", "http://example.com/", nil)

	cookie := CreateSessionCookie(r, "rr_session", "abc", time.Now().Add(time.Hour))
	if !cookie.HttpOnly {
		t.Error("session cookie not HttpOnly")
	}
	if cookie.Secure {
		t.Error("Secure set on a plain HTTP request")
	}

	r.Header.Set("X-Forwarded-Proto", "https")
	cookie = CreateSessionCookie(r, "rr_session", "abc", time.Now().Add(time.Hour))
	if !cookie.Secure {
		t.Error("Secure not set behind an HTTPS proxy")
	}

	del := CreateDeleteCookie(r, "rr_session")
	if del.MaxAge != -1 || del.Value != "" {
		t.Errorf("delete cookie = %+v, want expired and empty", del)
	}
}

func TestRateLimiterBudgetAndRefill(t *testing.T) {
	rl := NewRateLimiter(2, 50*time.Millisecond)

	if !rl.Allow("1.2.3.4") || !rl.Allow("1.2.3.4") {
		t.Fatal("attempts within budget denied")
	}
	if rl.Allow("1.2.3.4") {
		t.Error("attempt over budget allowed")
	}

	// Other clients have their own budget
	if !rl.Allow("5.6.7.8") {
		t.Error("fresh client denied")
	}

	time.Sleep(60 * time.Millisecond)
	if !rl.Allow("1.2.3.4") {
		t.Error("budget did not refill after the window")
	}
}
