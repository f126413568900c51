package toolexec

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
)

func apiTool(endpoint string) *entity.Tool {
	return &entity.Tool{
		Name:        "Drug Lookup",
		Symbol:      "drug_lookup",
		Type:        entity.ToolTypeAPI,
		APIEndpoint: endpoint,
	}
}

// --- Method selection ---

func TestCallAPIUsesGETWithoutArguments(t *testing.T) {
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	env := New(nil).Test(context.Background(), apiTool(srv.URL), nil)
	if env.Status != StatusSuccess {
		t.Fatalf("envelope = %+v", env)
	}
	if gotMethod != http.MethodGet {
		t.Errorf("method = %q, want GET", gotMethod)
	}
	if env.Result != "ok" {
		t.Errorf("result = %q", env.Result)
	}
}

func TestCallAPIUsesPOSTWithArguments(t *testing.T) {
	var gotMethod, gotContentType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Write([]byte(`{"interactions":[]}`))
	}))
	defer srv.Close()

	env := New(nil).Test(context.Background(), apiTool(srv.URL), map[string]any{"drug": "warfarin"})
	if env.Status != StatusSuccess {
		t.Fatalf("envelope = %+v", env)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("method = %q, want POST", gotMethod)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}
	if !strings.Contains(gotBody, "warfarin") {
		t.Errorf("body = %q", gotBody)
	}
}

// --- Failure classification ---

func TestCallAPIErrorStatusTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(strings.Repeat("e", 2000)))
	}))
	defer srv.Close()

	env := New(nil).Test(context.Background(), apiTool(srv.URL), nil)
	if env.Status != StatusError {
		t.Fatalf("envelope = %+v", env)
	}
	if !strings.Contains(env.Error, "HTTP 500") {
		t.Errorf("error = %q, want status classification", env.Error)
	}
	// The response body is excerpted to 500 characters.
	if strings.Contains(env.Error, strings.Repeat("e", 501)) {
		t.Error("error body not truncated")
	}
	if !strings.Contains(env.Error, strings.Repeat("e", 500)) {
		t.Errorf("error lost the excerpt: %q", env.Error)
	}
}

func TestCallAPITimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	exec := New(&Options{APITimeout: 50 * time.Millisecond})
	env := exec.Test(context.Background(), apiTool(srv.URL), nil)
	if env.Status != StatusError {
		t.Fatalf("envelope = %+v", env)
	}
	if !strings.Contains(env.Error, "timeout after") {
		t.Errorf("error = %q, want timeout classification", env.Error)
	}
}

func TestCallAPIUnreachable(t *testing.T) {
	env := New(nil).Test(context.Background(), apiTool("http://127.0.0.1:1/nothing"), nil)
	if env.Status != StatusError {
		t.Fatalf("envelope = %+v", env)
	}
	if env.Error == "" {
		t.Error("transport failure not classified")
	}
}

// --- Definition validation ---

func TestTestRejectsIncompleteDefinitions(t *testing.T) {
	exec := New(nil)
	ctx := context.Background()

	env := exec.Test(ctx, &entity.Tool{Type: entity.ToolTypeAPI}, nil)
	if env.Status != StatusError || !strings.Contains(env.Error, "no endpoint") {
		t.Errorf("api without endpoint: %+v", env)
	}

	env = exec.Test(ctx, &entity.Tool{Type: entity.ToolTypeFunction}, nil)
	if env.Status != StatusError || !strings.Contains(env.Error, "no code") {
		t.Errorf("function without code: %+v", env)
	}

	env = exec.Test(ctx, &entity.Tool{Type: entity.ToolTypeFunction, Code: "def run(): pass"}, nil)
	if env.Status != StatusError || !strings.Contains(env.Error, "entrypoint") {
		t.Errorf("function without entrypoint: %+v", env)
	}

	env = exec.Test(ctx, &entity.Tool{Type: "script"}, nil)
	if env.Status != StatusError || !strings.Contains(env.Error, "unknown tool type") {
		t.Errorf("unknown type: %+v", env)
	}
}
