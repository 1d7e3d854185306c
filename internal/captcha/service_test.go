package captcha

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *ServiceClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewServiceClient(srv.URL, "test-key")
	c.PollInterval = time.Millisecond
	c.MaxPolls = 5
	return c
}

func TestSolveTokenReady(t *testing.T) {
	polls := 0
	c := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/createTask":
			var req createTaskRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode create: %v", err)
			}
			if req.ClientKey != "test-key" {
				t.Errorf("clientKey = %q", req.ClientKey)
			}
			if req.Task["type"] != "ReCaptchaV2TaskProxyLess" {
				t.Errorf("task type = %v", req.Task["type"])
			}
			json.NewEncoder(w).Encode(map[string]any{"errorId": 0, "taskId": "t-1"})
		case "/getTaskResult":
			polls++
			if polls < 3 {
				json.NewEncoder(w).Encode(map[string]any{"errorId": 0, "status": "processing"})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"errorId": 0,
				"status":  "ready",
				"solution": map[string]any{
					"gRecaptchaResponse": "tok-abc",
				},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	token, err := c.SolveToken(context.Background(), FamilyRecaptcha, "https://example.com", "sitekey")
	if err != nil {
		t.Fatalf("SolveToken: %v", err)
	}
	if token != "tok-abc" {
		t.Errorf("token = %q, want tok-abc", token)
	}
	if polls != 3 {
		t.Errorf("polls = %d, want 3", polls)
	}
}

func TestSolveTokenServiceError(t *testing.T) {
	c := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"errorId":          1,
			"errorDescription": "ERROR_KEY_DOES_NOT_EXIST",
		})
	})

	_, err := c.SolveToken(context.Background(), FamilyRecaptcha, "https://example.com", "sitekey")
	if err == nil {
		t.Fatal("expected error from service")
	}
}

func TestSolveTokenPollBudget(t *testing.T) {
	c := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/createTask" {
			json.NewEncoder(w).Encode(map[string]any{"errorId": 0, "taskId": "t-2"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"errorId": 0, "status": "processing"})
	})

	_, err := c.SolveToken(context.Background(), FamilyHcaptcha, "https://example.com", "sitekey")
	if err == nil {
		t.Fatal("expected poll budget exhaustion")
	}
}

func TestSolveTokenUnsupportedFamily(t *testing.T) {
	c := NewServiceClient("http://unused", "k")
	if _, err := c.SolveToken(context.Background(), FamilySlider, "u", "k"); err == nil {
		t.Fatal("slider challenges must not go to the token service")
	}
}

func TestConfigured(t *testing.T) {
	var nilClient *ServiceClient
	if nilClient.Configured() {
		t.Error("nil client reports configured")
	}
	if NewServiceClient("", "").Configured() {
		t.Error("empty client reports configured")
	}
	if !NewServiceClient("http://x", "k").Configured() {
		t.Error("complete client reports unconfigured")
	}
}
