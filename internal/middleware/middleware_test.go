package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rauth/examprep-backend/internal/model"
	"github.com/rauth/examprep-backend/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeValidator struct {
	claims  map[string]*service.Claims
	revoked map[string]bool
	failing bool
}

func (f *fakeValidator) ValidateToken(tokenStr string) (*service.Claims, error) {
	c, ok := f.claims[tokenStr]
	if !ok {
		return nil, errors.New("bad token")
	}
	return c, nil
}

func (f *fakeValidator) CheckNotRevoked(_ context.Context, jti string) error {
	if f.failing {
		return errors.New("redis down")
	}
	if f.revoked[jti] {
		return service.ErrTokenRevoked
	}
	return nil
}

func claimsFor(id int, role model.Role, jti string) *service.Claims {
	return &service.Claims{RegisteredClaims: jwt.RegisteredClaims{ID: jti}, UserID: id, Role: role}
}

func newAuthRouter(v TokenValidator) *gin.Engine {
	r := gin.New()
	r.GET("/me", RequireAuth(v), func(c *gin.Context) {
		c.String(http.StatusOK, "%d", GetClaims(c).UserID)
	})
	r.GET("/ws", RequireWSAuth(v), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/content", OptionalAuth(v), func(c *gin.Context) {
		if claims := GetClaims(c); claims != nil {
			c.String(http.StatusOK, "%d", claims.UserID)
			return
		}
		c.String(http.StatusOK, "anonymous")
	})
	r.GET("/admin", RequireAuth(v), RequireRole(model.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRequireAuth(t *testing.T) {
	v := &fakeValidator{
		claims: map[string]*service.Claims{
			"student": claimsFor(7, model.RoleStudent, "j1"),
			"admin":   claimsFor(1, model.RoleAdmin, "j2"),
			"old":     claimsFor(9, model.RoleStudent, "gone"),
		},
		revoked: map[string]bool{"gone": true},
	}
	r := newAuthRouter(v)

	tests := []struct {
		name     string
		path     string
		header   string
		wantCode int
		wantBody string
	}{
		{"bearer header", "/me", "Bearer student", http.StatusOK, "7"},
		{"lowercase scheme", "/me", "bearer student", http.StatusOK, "7"},
		{"query fallback", "/me?token=student", "", http.StatusOK, "7"},
		{"missing", "/me", "", http.StatusUnauthorized, "TOKEN_REQUIRED"},
		{"invalid", "/me", "Bearer nope", http.StatusUnauthorized, "TOKEN_INVALID"},
		{"revoked", "/me", "Bearer old", http.StatusUnauthorized, "TOKEN_REVOKED"},
		{"ws ignores header", "/ws", "Bearer student", http.StatusUnauthorized, "TOKEN_REQUIRED"},
		{"ws query", "/ws?token=student", "", http.StatusOK, ""},
		{"student on admin route", "/admin", "Bearer student", http.StatusForbidden, "ADMIN_ACCESS_ONLY"},
		{"admin on admin route", "/admin", "Bearer admin", http.StatusOK, ""},
		{"optional anonymous", "/content", "", http.StatusOK, "anonymous"},
		{"optional signed in", "/content", "Bearer student", http.StatusOK, "7"},
		{"optional bad token", "/content", "Bearer nope", http.StatusUnauthorized, "TOKEN_INVALID"},
		{"optional revoked", "/content", "Bearer old", http.StatusUnauthorized, "TOKEN_REVOKED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
			if tt.wantBody != "" && !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Errorf("expected body to contain %q, got %s", tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestRequireAuthRevocationStoreDown(t *testing.T) {
	v := &fakeValidator{claims: map[string]*service.Claims{"t": claimsFor(1, model.RoleStudent, "j")}, failing: true}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer t")
	newAuthRouter(v).ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 when revocation cannot be checked, got %d", w.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, 2, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return now }

	if !rl.allow("a") || !rl.allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.allow("a") {
		t.Fatal("third request inside the interval should be limited")
	}
	if !rl.allow("b") {
		t.Fatal("other clients have their own bucket")
	}

	now = now.Add(time.Minute)
	if !rl.allow("a") {
		t.Fatal("bucket should refill after the interval")
	}

	now = now.Add(10 * time.Minute)
	rl.cleanup()
	rl.mu.Lock()
	n := len(rl.visitors)
	rl.mu.Unlock()
	if n != 0 {
		t.Errorf("stale visitors should be pruned, have %d", n)
	}
}

func TestBrotli(t *testing.T) {
	large := strings.Repeat("Angkor Wat was built in the 12th century. ", 100)
	r := gin.New()
	r.Use(Brotli())
	r.GET("/large", func(c *gin.Context) { c.String(http.StatusOK, large) })
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "tiny") })

	t.Run("compresses large bodies", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/large", nil)
		req.Header.Set("Accept-Encoding", "gzip, br;q=1.0")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Header().Get("Content-Encoding") != "br" {
			t.Fatalf("expected br encoding, got %q", w.Header().Get("Content-Encoding"))
		}
		body, err := io.ReadAll(brotli.NewReader(bytes.NewReader(w.Body.Bytes())))
		if err != nil {
			t.Fatalf("decompress: %v", err)
		}
		if string(body) != large {
			t.Error("round-tripped body differs")
		}
	})

	t.Run("leaves small bodies alone", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/small", nil)
		req.Header.Set("Accept-Encoding", "br")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Header().Get("Content-Encoding") != "" || w.Body.String() != "tiny" {
			t.Errorf("unexpected small response %q / %q", w.Header().Get("Content-Encoding"), w.Body.String())
		}
	})

	t.Run("skips clients without br", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/large", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Header().Get("Content-Encoding") != "" || w.Body.String() != large {
			t.Error("expected identity response")
		}
	})
}
