package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mlanghorne/ghactions/internal/config"
)

func testSettings(t *testing.T) Settings {
	t.Helper()
	s := Settings{
		Enabled:       true,
		Host:          "127.0.0.1",
		Port:          0,
		DeliveriesDir: t.TempDir(),
	}
	s.normalize()
	return s
}

func startServer(t *testing.T, settings Settings, opts ...Option) *Server {
	t.Helper()
	server := NewServer(settings, opts...)
	if err := server.Start(context.Background()); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	})
	return server
}

func postWebhook(t *testing.T, server *Server, headers map[string]string, payload []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, server.BaseURL()+"/webhook", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post webhook: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestWebhookAcceptsSignedDelivery(t *testing.T) {
	settings := testSettings(t)
	settings.Secret = "s3cret"

	var hooked Delivery
	server := startServer(t, settings, WithHook(HookFunc(func(d Delivery, payload []byte) error {
		hooked = d
		return nil
	})))

	payload := []byte(`{"ref": "refs/heads/master"}`)
	resp := postWebhook(t, server, map[string]string{
		"X-GitHub-Event":      "push",
		"X-GitHub-Delivery":   "72d3162e-cc78-11e3-81ab-4c9367dc0958",
		"X-Hub-Signature-256": SignPayload("s3cret", payload),
	}, payload)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}

	var body deliveryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Event != "push" || body.Delivery != "72d3162e-cc78-11e3-81ab-4c9367dc0958" {
		t.Fatalf("unexpected response: %+v", body)
	}

	stored, err := os.ReadFile(filepath.Join(settings.DeliveriesDir, "push-72d3162e-cc78-11e3-81ab-4c9367dc0958.json"))
	if err != nil {
		t.Fatalf("delivery not stored: %v", err)
	}
	if !bytes.Equal(stored, payload) {
		t.Fatalf("stored payload differs: %s", stored)
	}
	if !hooked.Signed || hooked.Event != "push" {
		t.Fatalf("hook saw unexpected delivery: %+v", hooked)
	}
	if server.Accepted() != 1 {
		t.Fatalf("accepted count = %d", server.Accepted())
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	settings := testSettings(t)
	settings.Secret = "s3cret"
	server := startServer(t, settings)

	payload := []byte(`{}`)
	resp := postWebhook(t, server, map[string]string{
		"X-GitHub-Event":      "push",
		"X-Hub-Signature-256": SignPayload("wrong", payload),
	}, payload)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}

	resp = postWebhook(t, server, map[string]string{"X-GitHub-Event": "push"}, payload)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing signature should be rejected, got %d", resp.StatusCode)
	}
}

func TestWebhookUnsignedAcceptedWithoutSecret(t *testing.T) {
	server := startServer(t, testSettings(t))
	resp := postWebhook(t, server, map[string]string{"X-GitHub-Event": "ping"}, []byte(`{"zen": "Keep it simple."}`))
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	var body deliveryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Delivery == "" {
		t.Fatalf("missing delivery header should fall back to a generated id")
	}
}

func TestWebhookRequiresEventHeader(t *testing.T) {
	server := startServer(t, testSettings(t))
	resp := postWebhook(t, server, nil, []byte(`{}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestWebhookRejectsInvalidJSON(t *testing.T) {
	server := startServer(t, testSettings(t))
	resp := postWebhook(t, server, map[string]string{"X-GitHub-Event": "push"}, []byte("{nope"))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestWebhookRejectsOversizePayload(t *testing.T) {
	settings := testSettings(t)
	settings.MaxBodyBytes = 16
	server := startServer(t, settings)
	resp := postWebhook(t, server, map[string]string{"X-GitHub-Event": "push"}, bytes.Repeat([]byte("x"), 64))
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestHealthEndpoint(t *testing.T) {
	server := startServer(t, testSettings(t))
	resp, err := http.Get(server.BaseURL() + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	var body healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Status != string(StatusReady) {
		t.Fatalf("unexpected health status: %s", body.Status)
	}
}

func TestDisabledServerDoesNotStart(t *testing.T) {
	settings := testSettings(t)
	settings.Enabled = false
	server := NewServer(settings)
	if err := server.Start(context.Background()); err == nil {
		t.Fatalf("disabled server should refuse to start")
	}
}

func TestSettingsFromConfigAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.NewConfig(dir)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	t.Setenv("GHACTIONS_WEBHOOK_SECRET", "from-config-env")
	t.Setenv("GHACTIONS_BRIDGE_HOST", "0.0.0.0")
	t.Setenv("GHACTIONS_BRIDGE_PORT", "9000")
	t.Setenv("GHACTIONS_BRIDGE_ENABLED", "false")

	settings := SettingsFromConfig(cfg)
	if settings.Enabled {
		t.Fatalf("env override should disable the bridge")
	}
	if settings.Host != "0.0.0.0" || settings.Port != 9000 {
		t.Fatalf("env overrides not applied: %+v", settings)
	}
	if settings.Secret != "from-config-env" {
		t.Fatalf("secret not resolved: %q", settings.Secret)
	}
	if settings.DeliveriesDir != cfg.DeliveriesDir() {
		t.Fatalf("deliveries dir not wired: %s", settings.DeliveriesDir)
	}
}

func TestSanitizeID(t *testing.T) {
	if got := sanitizeID("pull_request"); got != "pull_request" {
		t.Fatalf("unexpected: %s", got)
	}
	if got := sanitizeID("../../etc/passwd"); strings.Contains(got, "/") {
		t.Fatalf("path separators must not survive: %s", got)
	}
	if got := sanitizeID("  "); got != "" {
		t.Fatalf("blank ids should collapse to empty: %q", got)
	}
}
