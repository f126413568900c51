package chat

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/clinicore/clinicore/pkg/utils/json"
)

// DispatchResult is the task handle returned by POST /v1/chat.
type DispatchResult struct {
	TaskID    string `json:"task_id"`
	MessageID string `json:"message_id"`
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// StreamEvent mirrors one server-sent task event.
type StreamEvent struct {
	Type      string `json:"type"`
	MessageID string `json:"message_id"`
	Seq       int    `json:"seq"`
	Delta     string `json:"delta,omitempty"`
	Status    string `json:"status,omitempty"`
	Error     string `json:"error,omitempty"`
}

type dispatchRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Input     string `json:"input"`
}

type errResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// GatewayClient talks to the clinicored HTTP API.
type GatewayClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewGatewayClient creates a client. A nil httpClient selects a default with
// no timeout; streams stay open for the lifetime of a turn, so the per-call
// contexts carry the deadlines instead.
func NewGatewayClient(baseURL, token string, httpClient *http.Client) *GatewayClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &GatewayClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: httpClient,
	}
}

func (c *GatewayClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return req, nil
}

// Dispatch submits one chat turn and returns its task handle. The turn runs
// in the background; observe it with Stream.
func (c *GatewayClient) Dispatch(ctx context.Context, sessionID, input string) (*DispatchResult, error) {
	body, err := json.Marshal(dispatchRequest{SessionID: sessionID, Input: input})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/v1/chat", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var e errResponse
		if json.Unmarshal(respBody, &e) == nil && e.Message != "" {
			return nil, fmt.Errorf("server error: %s", e.Message)
		}
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(respBody))
	}

	var res DispatchResult
	if err := json.Unmarshal(respBody, &res); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &res, nil
}

// StreamCallback is called for each event during streaming.
type StreamCallback func(ev *StreamEvent)

// Stream follows a task's event stream until the [DONE] sentinel, calling cb
// for each event. It returns the accumulated assistant text.
func (c *GatewayClient) Stream(ctx context.Context, taskID string, cb StreamCallback) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/v1/tasks/"+taskID+"/stream", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("server returned %d: %s", resp.StatusCode, string(respBody))
	}

	var full strings.Builder
	var terminalErr string
	scanner := bufio.NewScanner(resp.Body)
	// Increase buffer for large replayed events
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}

		var ev StreamEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			continue
		}
		if ev.Type == "delta" {
			full.WriteString(ev.Delta)
		}
		if ev.Type == "done" && ev.Error != "" {
			terminalErr = ev.Error
		}
		if cb != nil {
			cb(&ev)
		}
	}
	if err := scanner.Err(); err != nil {
		return full.String(), fmt.Errorf("read stream: %w", err)
	}
	if terminalErr != "" {
		return full.String(), fmt.Errorf("turn failed: %s", terminalErr)
	}
	return full.String(), nil
}

// TaskView is the snapshot returned by GET /v1/tasks/:id.
type TaskView struct {
	TaskID         string `json:"task_id"`
	MessageID      string `json:"message_id"`
	SessionID      string `json:"session_id"`
	Status         string `json:"status"`
	Result         string `json:"result,omitempty"`
	ContentPreview string `json:"content_preview,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Poll fetches a task snapshot without subscribing to its stream.
func (c *GatewayClient) Poll(ctx context.Context, taskID string) (*TaskView, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/v1/tasks/"+taskID, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var e errResponse
		if json.Unmarshal(respBody, &e) == nil && e.Message != "" {
			return nil, fmt.Errorf("server error: %s", e.Message)
		}
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(respBody))
	}

	var view TaskView
	if err := json.Unmarshal(respBody, &view); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &view, nil
}

// RunOnce dispatches a single message and streams its output through out.
func RunOnce(client *GatewayClient, sessionID, message string, out func(delta string)) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	res, err := client.Dispatch(ctx, sessionID, message)
	if err != nil {
		return sessionID, err
	}
	_, err = client.Stream(ctx, res.TaskID, func(ev *StreamEvent) {
		if ev.Type == "delta" && out != nil {
			out(ev.Delta)
		}
	})
	return res.SessionID, err
}
