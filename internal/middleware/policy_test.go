package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/litter/internal/auth"
	"github.com/hitoshi/litter/internal/model"
)

// mockTokenParser はトークン文字列からクレームを引く。
type mockTokenParser struct {
	tokens map[string]*auth.Claims
	calls  int
}

func (m *mockTokenParser) Parse(token string) (*auth.Claims, error) {
	m.calls++
	if c, ok := m.tokens[token]; ok {
		return c, nil
	}
	return nil, auth.ErrInvalidToken
}

func newClaims(subject string, roles ...string) *auth.Claims {
	c := &auth.Claims{Roles: roles}
	c.Subject = subject
	return c
}

func testPolicy() *Policy {
	return NewPolicy(
		PublicRoute(http.MethodPost, "/user/login"),
		PublicRoute("", "/health"),
		RoleRoute(http.MethodGet, "/messages/all", model.RoleAdmin),
		RoleRoute(http.MethodGet, "/messages/subscribed", model.RoleSubscriber),
		AuthenticatedRoute(http.MethodGet, "/messages/{id}"),
	)
}

func TestPolicy_Match(t *testing.T) {
	p := testPolicy()

	tests := []struct {
		name       string
		method     string
		path       string
		wantAccess AccessClass
		wantRole   string
	}{
		{"public exact", http.MethodPost, "/user/login", Public, ""},
		{"method mismatch falls to default", http.MethodGet, "/user/login", Authenticated, ""},
		{"any method", http.MethodDelete, "/health", Public, ""},
		{"trailing slash", http.MethodGet, "/health/", Public, ""},
		{"first match wins over param", http.MethodGet, "/messages/all", RoleRestricted, model.RoleAdmin},
		{"subscriber route", http.MethodGet, "/messages/subscribed", RoleRestricted, model.RoleSubscriber},
		{"param segment", http.MethodGet, "/messages/abc-123", Authenticated, ""},
		{"param does not span segments", http.MethodGet, "/messages/a/b", Authenticated, ""},
		{"unknown route defaults to authenticated", http.MethodGet, "/unknown", Authenticated, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Match(tt.method, tt.path)
			if got.Access != tt.wantAccess {
				t.Errorf("Access = %v, want %v", got.Access, tt.wantAccess)
			}
			if got.Role != tt.wantRole {
				t.Errorf("Role = %q, want %q", got.Role, tt.wantRole)
			}
		})
	}
}

func TestPolicyMiddleware(t *testing.T) {
	parser := &mockTokenParser{tokens: map[string]*auth.Claims{
		"sub-token":   newClaims("alice1", model.RoleSubscriber),
		"admin-token": newClaims("root01", model.RoleAdmin),
	}}

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
		wantCode   string
	}{
		{"public without token", http.MethodPost, "/user/login", "", http.StatusOK, ""},
		{"public with invalid token", http.MethodPost, "/user/login", "garbage", http.StatusOK, ""},
		{"authenticated without token", http.MethodGet, "/messages/abc", "", http.StatusUnauthorized, model.ErrCodeUnauthorized},
		{"authenticated with invalid token", http.MethodGet, "/messages/abc", "garbage", http.StatusUnauthorized, model.ErrCodeUnauthorized},
		{"authenticated with valid token", http.MethodGet, "/messages/abc", "sub-token", http.StatusOK, ""},
		{"role route without role", http.MethodGet, "/messages/all", "sub-token", http.StatusForbidden, model.ErrCodeForbidden},
		{"role route with role", http.MethodGet, "/messages/all", "admin-token", http.StatusOK, ""},
		{"role route without token", http.MethodGet, "/messages/all", "", http.StatusUnauthorized, model.ErrCodeUnauthorized},
		{"subscriber route", http.MethodGet, "/messages/subscribed", "sub-token", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlerCalled := false
			handler := NewPolicyMiddleware(testPolicy(), parser)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			resp := w.Result()
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if tt.wantCode == "" {
				if !handlerCalled {
					t.Error("expected handler to be called")
				}
				return
			}
			if handlerCalled {
				t.Error("handler must not run when access is denied")
			}
			var body ErrorResponseBody
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
		})
	}
}

// TestPolicyMiddleware_GenericUnauthorizedMessage は検証失敗の理由がレスポンスに含まれないことを検証する。
func TestPolicyMiddleware_GenericUnauthorizedMessage(t *testing.T) {
	parser := &mockTokenParser{}
	handler := NewPolicyMiddleware(testPolicy(), parser)(okHandler())

	expired := httptest.NewRequest(http.MethodGet, "/messages/abc", nil)
	expired.Header.Set("Authorization", "Bearer expired")
	missing := httptest.NewRequest(http.MethodGet, "/messages/abc", nil)

	var bodies []ErrorResponseBody
	for _, req := range []*http.Request{expired, missing} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		var body ErrorResponseBody
		if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		bodies = append(bodies, body)
	}

	if bodies[0].Message != bodies[1].Message {
		t.Errorf("messages differ: %q vs %q", bodies[0].Message, bodies[1].Message)
	}
}

func TestPolicyMiddleware_InjectsClaims(t *testing.T) {
	parser := &mockTokenParser{tokens: map[string]*auth.Claims{
		"sub-token": newClaims("alice1", model.RoleSubscriber),
	}}

	var got *auth.Claims
	handler := NewPolicyMiddleware(testPolicy(), parser)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = ClaimsFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/messages/abc", nil)
	req.Header.Set("Authorization", "bearer sub-token")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil || got.Subject != "alice1" {
		t.Errorf("claims = %+v, want subject alice1", got)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"Bearer  padded ", "padded"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		if got := bearerToken(req); got != tt.want {
			t.Errorf("bearerToken(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestClaimsFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := ClaimsFromContext(req.Context()); ok {
		t.Error("expected no claims in empty context")
	}
}
