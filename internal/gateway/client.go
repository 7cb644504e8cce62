// Package gateway is the HTTP client for the agent gateway: dispatching
// runs, long-polling their completion, listing sessions, fetching history,
// and sending outbound messages.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/chr1sbest/switchboard/internal/logger"
	"github.com/chr1sbest/switchboard/internal/resilience"
)

// DispatchRequest starts a new agent run.
type DispatchRequest struct {
	Message    string `json:"message"`
	SessionKey string `json:"sessionKey,omitempty"`
	Deliver    bool   `json:"deliver,omitempty"`
	Thinking   string `json:"thinking,omitempty"`
}

// DispatchResult is the gateway's answer to a dispatch. RunID may be empty;
// callers fall back to a locally generated id.
type DispatchResult struct {
	RunID  string `json:"runId"`
	Status string `json:"status,omitempty"`
}

// WaitResult reports a run's status after a wait. "ok" means done;
// "timeout" means the gateway's own wait budget elapsed first; anything
// else is a terminal backend status passed through verbatim.
type WaitResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// SendRequest delivers one outbound message chunk.
type SendRequest struct {
	Channel        string `json:"channel,omitempty"`
	To             string `json:"to"`
	AccountID      string `json:"accountId,omitempty"`
	Message        string `json:"message"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

// Client talks to the agent gateway. Wait calls size their own HTTP
// timeout from the requested poll budget; everything else uses the
// configured request timeout.
type Client struct {
	baseURL        string
	token          string
	requestTimeout time.Duration
	http           *http.Client
	log            logger.Logger
}

// New creates a gateway client.
func New(baseURL, token string, requestTimeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	if requestTimeout <= 0 {
		requestTimeout = 10 * time.Second
	}
	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		token:          token,
		requestTimeout: requestTimeout,
		http:           &http.Client{},
		log:            log,
	}
}

// Dispatch starts an agent run. No retry: a duplicate dispatch would start
// duplicate work.
func (c *Client) Dispatch(ctx context.Context, req DispatchRequest) (DispatchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	var out DispatchResult
	if err := c.postJSON(ctx, "/v1/agent", req, &out); err != nil {
		return DispatchResult{}, err
	}
	return out, nil
}

// Wait long-polls a run until it completes or the poll budget elapses on
// the gateway side. The HTTP deadline pads the budget so a healthy gateway
// always answers first.
func (c *Client) Wait(ctx context.Context, runID string, poll time.Duration) (WaitResult, error) {
	ctx, cancel := context.WithTimeout(ctx, poll+5*time.Second)
	defer cancel()

	body := map[string]any{
		"runId":     runID,
		"timeoutMs": poll.Milliseconds(),
	}
	var out WaitResult
	if err := c.postJSON(ctx, "/v1/agent/wait", body, &out); err != nil {
		return WaitResult{}, err
	}
	return out, nil
}

// ListSessions fetches the gateway's session list for target resolution.
// Sessions are loosely shaped; callers probe fields themselves.
func (c *Client) ListSessions(ctx context.Context) ([]map[string]any, error) {
	var entries []map[string]any
	err := resilience.QuickRetry.Execute(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()

		var err error
		entries, err = c.getList(ctx, "/v1/sessions", "sessions")
		return err
	})
	return entries, err
}

// History fetches recent conversation entries for the given session key,
// newest last.
func (c *Client) History(ctx context.Context, sessionKey string, limit int) ([]map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	path := "/v1/history?session=" + url.QueryEscape(sessionKey)
	if limit > 0 {
		path += "&limit=" + strconv.Itoa(limit)
	}
	return c.getList(ctx, path, "messages")
}

// Send delivers one outbound message. Transient failures retry briefly;
// the idempotency key keeps retries from double-sending.
func (c *Client) Send(ctx context.Context, req SendRequest) error {
	return resilience.QuickRetry.Execute(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()

		return c.postJSON(ctx, "/v1/send", req, nil)
	})
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return resilience.NewPermanentError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return resilience.NewPermanentError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err := classifyStatus(resp.StatusCode, path, payload); err != nil {
		return err
	}
	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("gateway %s: bad response body: %w", path, err)
	}
	return nil
}

// getList decodes either {"<key>": [...]} or a bare JSON array.
func (c *Client) getList(ctx context.Context, path, key string) ([]map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, resilience.NewPermanentError(err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err := classifyStatus(resp.StatusCode, path, payload); err != nil {
		return nil, err
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(payload, &wrapped); err == nil {
		if raw, ok := wrapped[key]; ok {
			var entries []map[string]any
			if err := json.Unmarshal(raw, &entries); err != nil {
				return nil, fmt.Errorf("gateway %s: bad %s array: %w", path, key, err)
			}
			return entries, nil
		}
	}

	var entries []map[string]any
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, fmt.Errorf("gateway %s: bad response body: %w", path, err)
	}
	return entries, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// classifyStatus turns non-2xx responses into errors. Client errors are
// permanent (retrying the same bad request can't help); 429 and server
// errors are transient.
func classifyStatus(code int, path string, payload []byte) error {
	if code < 300 {
		return nil
	}
	detail := strings.TrimSpace(string(payload))
	if len(detail) > 200 {
		detail = detail[:200]
	}
	err := fmt.Errorf("gateway %s: status %d: %s", path, code, detail)
	if code >= 400 && code < 500 && code != http.StatusTooManyRequests {
		return resilience.NewPermanentError(err)
	}
	return resilience.NewTransientError(err)
}
