package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/Dhanuzh/dchat/internal/config"
	"github.com/Dhanuzh/dchat/internal/provider"
	"github.com/Dhanuzh/dchat/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	for _, reg := range provider.NewDefaultRegistry().Registrations() {
		for _, v := range config.EnvVarsFor(reg.Name) {
			t.Setenv(v, "")
		}
	}
	return &config.Config{
		DefaultProvider: "openai",
		CredentialsFile: filepath.Join(t.TempDir(), "credentials.json"),
		Chat:            config.ChatConfig{Stream: false},
		Server: config.ServerConfig{
			Host:        "127.0.0.1",
			Port:        3001,
			CORSOrigins: []string{"*"},
			BodyLimitMB: 1,
		},
		Speech: config.SpeechConfig{OutputDir: t.TempDir()},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) (*Server, storage.Store) {
	t.Helper()
	store := storage.NewMemoryStore()
	logger, _ := logtest.NewNullLogger()
	return New(Options{Config: cfg, Store: store, Logger: logger}), store
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if r != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Response is not JSON: %s", w.Body.String())
	}
	return body.Error
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(t))
	w := do(t, srv.Handler(), http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "OK" || body["timestamp"] == "" {
		t.Errorf("Unexpected health body: %v", body)
	}
}

func TestUnknownEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(t))
	w := do(t, srv.Handler(), http.MethodGet, "/api/nope", nil)
	if w.Code != http.StatusNotFound || errorOf(t, w) != "Endpoint not found" {
		t.Errorf("Expected 404 Endpoint not found, got %d %s", w.Code, w.Body.String())
	}
}

func TestStorageErrorResponses(t *testing.T) {
	srv, store := newTestServer(t, testConfig(t))
	id, err := store.AddConversation(context.Background(), &storage.Conversation{Title: "kept"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		errMsg string
	}{
		{"missing conversation", http.MethodGet, "/api/conversations/999", nil, http.StatusNotFound, "Conversation not found"},
		{"missing chat setting", http.MethodDelete, "/api/chat-settings/999", nil, http.StatusNotFound, "Chat setting not found"},
		{"missing file data", http.MethodGet, "/api/file-data/999", nil, http.StatusNotFound, "File data not found"},
		{"empty patch", http.MethodPatch, fmt.Sprintf("/api/conversations/%d", id), map[string]any{}, http.StatusBadRequest, "No valid fields to update"},
		{"search without query", http.MethodGet, "/api/conversations/search/title", nil, http.StatusBadRequest, "Search query is required"},
		{"bad id", http.MethodGet, "/api/conversations/abc", nil, http.StatusBadRequest, "Invalid id"},
		{"malformed body", http.MethodPost, "/api/conversations", "{not json", http.StatusBadRequest, "Invalid request body"},
		{"bad limit", http.MethodGet, "/api/conversations/recent/zero", nil, http.StatusBadRequest, "Invalid limit"},
		{"file without data", http.MethodPost, "/api/file-data", map[string]any{"type": "image/png"}, http.StatusBadRequest, "File data is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv.Handler(), tt.method, tt.path, tt.body)
			if w.Code != tt.status {
				t.Errorf("Expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			if got := errorOf(t, w); got != tt.errMsg {
				t.Errorf("Expected error %q, got %q", tt.errMsg, got)
			}
		})
	}
}

func TestCreateResponses(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(t))

	w := do(t, srv.Handler(), http.MethodPost, "/api/conversations", storage.Conversation{Title: "first", GID: 7})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", w.Code)
	}
	var created struct {
		ID      int64  `json:"id"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.ID == 0 || created.Message == "" {
		t.Errorf("Unexpected create body: %s", w.Body.String())
	}

	w = do(t, srv.Handler(), http.MethodGet, "/api/conversations/count/7", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"count":1`) {
		t.Errorf("Unexpected count response: %d %s", w.Code, w.Body.String())
	}

	w = do(t, srv.Handler(), http.MethodGet, "/api/conversations/recent", nil)
	var recent []storage.Conversation
	if err := json.Unmarshal(w.Body.Bytes(), &recent); err != nil || len(recent) != 1 {
		t.Errorf("Expected one recent conversation, got %s", w.Body.String())
	}

	w = do(t, srv.Handler(), http.MethodDelete, "/api/conversations/gid/7", nil)
	if !strings.Contains(w.Body.String(), `"deletedCount":1`) {
		t.Errorf("Expected deletedCount, got %s", w.Body.String())
	}
}

// TestRemoteStoreRoundTrip drives the HTTP routes through the remote
// storage driver.
func TestRemoteStoreRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(t))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	remote, err := storage.NewRemoteStore(ts.URL, ts.Client())
	if err != nil {
		t.Fatalf("NewRemoteStore failed: %v", err)
	}
	ctx := context.Background()

	csID, err := remote.AddChatSettings(ctx, &storage.ChatSettings{Name: "Coder", Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("AddChatSettings failed: %v", err)
	}
	if err := remote.SetShowInSidebar(ctx, csID, true); err != nil {
		t.Fatalf("SetShowInSidebar failed: %v", err)
	}
	cs, err := remote.GetChatSettings(ctx, csID)
	if err != nil || !cs.ShowInSidebar || cs.Name != "Coder" {
		t.Errorf("Unexpected chat settings %+v, %v", cs, err)
	}

	fileID, err := remote.AddFileData(ctx, &storage.FileData{Data: "data:image/png;base64,AAAA", Type: "image/png"})
	if err != nil {
		t.Fatalf("AddFileData failed: %v", err)
	}

	convID, err := remote.AddConversation(ctx, &storage.Conversation{
		GID:   3,
		Title: "Gophers",
		Messages: []storage.Message{
			{Role: "user", Content: "look at this", FileDataRef: []storage.FileDataRef{{ID: fileID}}},
		},
	})
	if err != nil {
		t.Fatalf("AddConversation failed: %v", err)
	}

	title := "Gophers and friends"
	if err := remote.PatchConversation(ctx, convID, storage.ConversationPatch{Title: &title}); err != nil {
		t.Fatalf("PatchConversation failed: %v", err)
	}
	found, err := remote.SearchConversationTitles(ctx, "FRIENDS")
	if err != nil || len(found) != 1 || found[0].ID != convID {
		t.Errorf("Expected patched conversation in search, got %+v, %v", found, err)
	}

	var empty *storage.EmptyPatchError
	if err := remote.PatchConversation(ctx, convID, storage.ConversationPatch{}); !errors.As(err, &empty) {
		t.Errorf("Expected EmptyPatchError, got %v", err)
	}

	stats, err := remote.FileDataStats(ctx)
	if err != nil || stats.TotalFiles != 1 {
		t.Errorf("Expected one file in stats, got %+v, %v", stats, err)
	}

	if err := remote.DeleteConversation(ctx, convID); err != nil {
		t.Fatalf("DeleteConversation failed: %v", err)
	}
	if _, err := remote.GetConversation(ctx, convID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := remote.GetFileData(ctx, fileID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected referenced file data to be deleted, got %v", err)
	}
}

func TestCORSPreflight(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.CORSOrigins = []string{"http://localhost:5173"}
	srv, _ := newTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodOptions, "/api/conversations", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Unexpected allow origin %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Origin should not be allowed, got %q", got)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.RateLimitRPS = 0.001
	cfg.Server.RateLimitBurst = 1
	srv, _ := newTestServer(t, cfg)

	if w := do(t, srv.Handler(), http.MethodGet, "/health", nil); w.Code != http.StatusOK {
		t.Fatalf("First request should pass, got %d", w.Code)
	}
	w := do(t, srv.Handler(), http.MethodGet, "/health", nil)
	if w.Code != http.StatusTooManyRequests || errorOf(t, w) != "rate limit exceeded" {
		t.Errorf("Expected 429, got %d %s", w.Code, w.Body.String())
	}
}

func TestBodyLimit(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(t))
	big := storage.FileData{Data: strings.Repeat("A", 2<<20), Type: "image/png"}
	w := do(t, srv.Handler(), http.MethodPost, "/api/file-data", big)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413, got %d", w.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&storage.EmptyPatchError{}, http.StatusBadRequest},
		{&provider.ConfigurationError{Message: "x"}, http.StatusBadRequest},
		{&provider.ValidationError{Field: "speed", Message: "x"}, http.StatusBadRequest},
		{&provider.UnsupportedCapabilityError{Provider: "x", Capability: "y"}, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", storage.ErrNotFound), http.StatusNotFound},
		{&provider.UnknownProviderError{Name: "x"}, http.StatusNotFound},
		{&provider.ModelNotFoundError{ModelID: "x"}, http.StatusNotFound},
		{&provider.RequestInProgressError{}, http.StatusConflict},
		{&provider.RequestCancelledError{}, StatusClientClosedRequest},
		{provider.NewProviderRequestError("openai", "boom", 500, nil), http.StatusBadGateway},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
