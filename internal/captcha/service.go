package captcha

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	. "github.com/lmercat/webpilot/internal/logging"
)

// ServiceClient talks to an external token-solving service using the
// createTask / getTaskResult flow.
type ServiceClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	// polling knobs, overridable in tests
	PollInterval time.Duration
	MaxPolls     int
}

// NewServiceClient builds a client for the solving service at baseURL.
func NewServiceClient(baseURL, apiKey string) *ServiceClient {
	return &ServiceClient{
		baseURL:      baseURL,
		apiKey:       apiKey,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		PollInterval: 3 * time.Second,
		MaxPolls:     40,
	}
}

// Configured reports whether the service can be used.
func (c *ServiceClient) Configured() bool {
	return c != nil && c.baseURL != "" && c.apiKey != ""
}

type createTaskRequest struct {
	ClientKey string         `json:"clientKey"`
	Task      map[string]any `json:"task"`
}

type createTaskResponse struct {
	ErrorID          int    `json:"errorId"`
	ErrorDescription string `json:"errorDescription,omitempty"`
	TaskID           string `json:"taskId"`
}

type taskResultRequest struct {
	ClientKey string `json:"clientKey"`
	TaskID    string `json:"taskId"`
}

type taskResultResponse struct {
	ErrorID          int    `json:"errorId"`
	ErrorDescription string `json:"errorDescription,omitempty"`
	Status           string `json:"status"`
	Solution         struct {
		GRecaptchaResponse string `json:"gRecaptchaResponse"`
		Token              string `json:"token"`
		Text               string `json:"text"`
	} `json:"solution"`
}

// taskType maps a challenge family to the service task type.
func taskType(family string) (string, error) {
	switch family {
	case FamilyRecaptcha:
		return "ReCaptchaV2TaskProxyLess", nil
	case FamilyHcaptcha:
		return "HCaptchaTaskProxyLess", nil
	default:
		return "", fmt.Errorf("service cannot solve %s challenges", family)
	}
}

// SolveToken submits a token challenge and polls until the service
// returns a solution or the poll budget runs out.
func (c *ServiceClient) SolveToken(ctx context.Context, family, pageURL, siteKey string) (string, error) {
	tt, err := taskType(family)
	if err != nil {
		return "", err
	}

	taskID, err := c.createTask(ctx, map[string]any{
		"type":       tt,
		"websiteURL": pageURL,
		"websiteKey": siteKey,
	})
	if err != nil {
		return "", err
	}
	L_info("captcha: service task created", "family", family, "task", taskID)

	for poll := 0; poll < c.MaxPolls; poll++ {
		select {
		case <-time.After(c.PollInterval):
		case <-ctx.Done():
			return "", ctx.Err()
		}

		result, err := c.getTaskResult(ctx, taskID)
		if err != nil {
			return "", err
		}
		switch result.Status {
		case "ready":
			token := result.Solution.GRecaptchaResponse
			if token == "" {
				token = result.Solution.Token
			}
			if token == "" {
				return "", fmt.Errorf("service returned ready with empty token")
			}
			return token, nil
		case "processing":
			continue
		default:
			return "", fmt.Errorf("service task %s: unexpected status %q", taskID, result.Status)
		}
	}
	return "", fmt.Errorf("service task %s: no solution after %d polls", taskID, c.MaxPolls)
}

// SolveImage submits a base64 image for text recognition.
func (c *ServiceClient) SolveImage(ctx context.Context, imageB64 string) (string, error) {
	taskID, err := c.createTask(ctx, map[string]any{
		"type": "ImageToTextTask",
		"body": imageB64,
	})
	if err != nil {
		return "", err
	}

	for poll := 0; poll < c.MaxPolls; poll++ {
		select {
		case <-time.After(c.PollInterval):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		result, err := c.getTaskResult(ctx, taskID)
		if err != nil {
			return "", err
		}
		if result.Status == "ready" {
			return result.Solution.Text, nil
		}
	}
	return "", fmt.Errorf("service task %s: no solution after %d polls", taskID, c.MaxPolls)
}

func (c *ServiceClient) createTask(ctx context.Context, task map[string]any) (string, error) {
	var resp createTaskResponse
	err := c.post(ctx, "/createTask", createTaskRequest{ClientKey: c.apiKey, Task: task}, &resp)
	if err != nil {
		return "", err
	}
	if resp.ErrorID != 0 {
		return "", fmt.Errorf("service createTask: %s", resp.ErrorDescription)
	}
	if resp.TaskID == "" {
		return "", fmt.Errorf("service createTask: empty task id")
	}
	return resp.TaskID, nil
}

func (c *ServiceClient) getTaskResult(ctx context.Context, taskID string) (*taskResultResponse, error) {
	var resp taskResultResponse
	err := c.post(ctx, "/getTaskResult", taskResultRequest{ClientKey: c.apiKey, TaskID: taskID}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.ErrorID != 0 {
		return nil, fmt.Errorf("service getTaskResult: %s", resp.ErrorDescription)
	}
	return &resp, nil
}

func (c *ServiceClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("service request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service request %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
