package shield

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/forkify/kit"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(DefaultHeaders())(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options: got %q", got)
	}
	if got := rec.Header().Get("Content-Security-Policy"); !strings.Contains(got, "img-src 'self' data: http: https:") {
		t.Errorf("CSP: got %q", got)
	}

	rec = httptest.NewRecorder()
	SecurityHeaders(HeaderConfig{XFrameOptions: "SAMEORIGIN"})(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if _, set := rec.Header()["Content-Security-Policy"]; set {
		t.Error("empty CSP was set")
	}
}

func TestMaxFormBody(t *testing.T) {
	// WHAT: An urlencoded body larger than the limit.
	// WHY: Upload forms must not buffer unbounded input.
	var parseErr error
	h := MaxFormBody(16)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parseErr = r.ParseForm()
	}))
	req := httptest.NewRequest(http.MethodPost, "/recipes", strings.NewReader("title="+strings.Repeat("a", 100)))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if parseErr == nil {
		t.Fatal("oversized form accepted")
	}
}

func TestHeadToGet(t *testing.T) {
	var method string
	HeadToGet(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { method = r.Method })).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodHead, "/", nil))
	if method != http.MethodGet {
		t.Errorf("method: got %s, want GET", method)
	}
}

func TestFlash_RoundTrip(t *testing.T) {
	rec := httptest.NewRecorder()
	SetFlash(rec, "success", "Recipe was successfully uploaded :)")
	cookie := rec.Result().Cookies()[0]

	var got *FlashMessage
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	Flash(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { got = GetFlash(r.Context()) })).ServeHTTP(rec, req)

	if got == nil || got.Type != "success" || got.Message != "Recipe was successfully uploaded :)" {
		t.Fatalf("flash: got %+v", got)
	}
	if c := rec.Result().Cookies(); len(c) != 1 || c[0].MaxAge >= 0 {
		t.Errorf("flash cookie not cleared: %+v", c)
	}
}

func TestTraceID(t *testing.T) {
	var traceID string
	h := TraceID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = kit.GetTraceID(r.Context())
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if len(traceID) != 24 {
		t.Errorf("trace id: got %q", traceID)
	}
	if rec.Header().Get("X-Trace-ID") != traceID {
		t.Errorf("header: got %q, want %q", rec.Header().Get("X-Trace-ID"), traceID)
	}
}

func TestRateLimiter(t *testing.T) {
	// WHAT: Three requests allowed per window, the fourth rejected, then the window resets.
	// WHY: Uploads hit the upstream API; one client must not exhaust it.
	rl := NewRateLimiter(3, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return now }

	for i := range 3 {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d rejected", i+1)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("fourth request allowed")
	}
	if !rl.Allow("5.6.7.8") {
		t.Error("other client rejected")
	}

	now = now.Add(61 * time.Second)
	if !rl.Allow("1.2.3.4") {
		t.Error("request after window rejected")
	}
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	h := rl.Middleware(ok)

	req := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/recipes", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec
	}
	if got := req().Code; got != http.StatusOK {
		t.Fatalf("first: got %d", got)
	}
	rec := req()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second: got %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After: got %q", rec.Header().Get("Retry-After"))
	}
}

func TestExtractIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:5555"
	if got := ExtractIP(r); got != "192.0.2.1" {
		t.Errorf("remote addr: got %q", got)
	}
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := ExtractIP(r); got != "203.0.113.9" {
		t.Errorf("forwarded: got %q", got)
	}
}
