package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func authEngine(cfg *AuthConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	g := gin.New()
	g.Use(BearerAuth(cfg))
	g.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	g.GET("/v1/sessions", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return g
}

func doRequest(g *gin.Engine, remoteAddr, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
	req.RemoteAddr = remoteAddr
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	return w
}

func TestBearerAuthDisabledPassesThrough(t *testing.T) {
	g := authEngine(&AuthConfig{Enabled: false, Token: "secret"})
	if w := doRequest(g, "10.0.0.1:12345", ""); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 when auth is disabled", w.Code)
	}
}

func TestBearerAuthNoTokenConfigured(t *testing.T) {
	g := authEngine(&AuthConfig{Enabled: true})
	if w := doRequest(g, "10.0.0.1:12345", ""); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 when no token is configured", w.Code)
	}
}

func TestBearerAuthEnforced(t *testing.T) {
	g := authEngine(&AuthConfig{Enabled: true, Token: "secret"})

	tests := []struct {
		name   string
		bearer string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"malformed header", "Token secret", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"correct token", "Bearer secret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := doRequest(g, "10.0.0.1:12345", tt.bearer); w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestBearerAuthLoopbackSkipped(t *testing.T) {
	g := authEngine(&AuthConfig{Enabled: true, Token: "secret"})
	if w := doRequest(g, "127.0.0.1:54321", ""); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for loopback callers", w.Code)
	}
	if w := doRequest(g, "[::1]:54321", ""); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for IPv6 loopback", w.Code)
	}
}

func TestBearerAuthHealthzWhitelisted(t *testing.T) {
	g := authEngine(&AuthConfig{Enabled: true, Token: "secret"})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.RemoteAddr = "10.0.0.1:12345"
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for /healthz without credentials", w.Code)
	}
}

func TestBearerAuthEnvTokenPrecedence(t *testing.T) {
	t.Setenv("CLINICORE_GATEWAY_TOKEN", "from-env")
	g := authEngine(&AuthConfig{Enabled: true, Token: "from-config"})

	if w := doRequest(g, "10.0.0.1:12345", "Bearer from-config"); w.Code != http.StatusUnauthorized {
		t.Errorf("config token accepted despite env override: status = %d", w.Code)
	}
	if w := doRequest(g, "10.0.0.1:12345", "Bearer from-env"); w.Code != http.StatusOK {
		t.Errorf("env token rejected: status = %d", w.Code)
	}
}
