package interpreter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Errors for remote interpreter operations. Execute folds them into degraded
// results; they are exported so callers can match on Run.
var (
	// ErrEmptyCode is returned when there is no code to run.
	ErrEmptyCode = errors.New("no code to execute")

	// ErrMissingAPIKey is returned when the client has no API key.
	ErrMissingAPIKey = errors.New("interpreter API key not configured")

	// ErrBackendStatus is returned when the backend answers with a non-2xx status.
	ErrBackendStatus = errors.New("interpreter backend returned an error status")

	// ErrMalformedResponse is returned when the backend body cannot be decoded.
	ErrMalformedResponse = errors.New("malformed interpreter response")
)

// DefaultBaseURL is the Together API root serving the code interpreter.
const DefaultBaseURL = "https://api.together.xyz/v1"

// DefaultLanguage is the only language tag the loop sends.
const DefaultLanguage = "python"

const maxErrorBody = 4096

// Config configures a remote interpreter client.
type Config struct {
	// BaseURL is the API root; "/tci/execute" is appended. Default: DefaultBaseURL.
	BaseURL string

	// APIKey is sent as a bearer token. Required.
	APIKey string

	// Language is the language tag. Default: "python".
	Language string

	// Timeout bounds one execution call, including the network round trip.
	// Zero leaves timeouts to the transport.
	Timeout time.Duration

	// HTTPClient overrides the HTTP client. Default: http.DefaultClient.
	HTTPClient *http.Client

	// Logger receives request and failure logs. Default: slog.Default().
	Logger *slog.Logger
}

// Client executes code on the remote interpreter service.
type Client struct {
	endpoint   string
	apiKey     string
	language   string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

var _ Executor = (*Client)(nil)

// New creates a remote interpreter client.
func New(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	lang := cfg.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint:   base + "/tci/execute",
		apiKey:     cfg.APIKey,
		language:   lang,
		timeout:    cfg.Timeout,
		httpClient: hc,
		logger:     logger,
	}
}

// Endpoint returns the execute URL, for diagnostics.
func (c *Client) Endpoint() string { return c.endpoint }

// Execute runs code in the session identified by sessionID (empty starts a
// new session) with optional attachments. It never returns nil and never
// panics: every failure becomes a degraded Result.
func (c *Client) Execute(ctx context.Context, code, sessionID string, files []File) (result *Result) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("interpreter call panicked", "panic", r)
			result = DegradedResult(fmt.Errorf("interpreter call panicked: %v", r))
		}
	}()

	res, err := c.Run(ctx, code, sessionID, files)
	if err != nil {
		c.logger.Warn("interpreter call failed", "session_id", sessionID, "error", err)
		return DegradedResult(err)
	}
	return res
}

// Run performs one execution call and reports failures as errors.
func (c *Client) Run(ctx context.Context, code, sessionID string, files []File) (*Result, error) {
	if strings.TrimSpace(code) == "" {
		return nil, ErrEmptyCode
	}
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(executeRequest{
		Code:      code,
		Language:  c.language,
		SessionID: sessionID,
		Files:     files,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.logger.Debug("interpreter call",
		"endpoint", c.endpoint, "session_id", sessionID,
		"code_bytes", len(code), "files", len(files))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("interpreter request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: %d %s", ErrBackendStatus, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var payload executeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	result, err := payload.result()
	if err != nil {
		return nil, err
	}

	c.logger.Debug("interpreter call done",
		"session_id", result.SessionID, "status", result.Status,
		"outputs", len(result.Outputs), "errors", len(result.Errors),
		"duration", time.Since(start))
	return result, nil
}

// executeRequest is the wire request.
type executeRequest struct {
	Code      string `json:"code"`
	Language  string `json:"language"`
	SessionID string `json:"session_id,omitempty"`
	Files     []File `json:"files,omitempty"`
}

// executeResponse is the wire response envelope.
type executeResponse struct {
	Data   *executeData `json:"data"`
	Errors errorList    `json:"errors,omitempty"`
}

type executeData struct {
	SessionID string    `json:"session_id"`
	Status    string    `json:"status"`
	Outputs   []Output  `json:"outputs"`
	Errors    errorList `json:"errors,omitempty"`
}

func (r executeResponse) result() (*Result, error) {
	if r.Data == nil {
		if len(r.Errors) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, strings.Join(r.Errors, "; "))
		}
		return nil, fmt.Errorf("%w: missing data", ErrMalformedResponse)
	}

	status := r.Data.Status
	if status == "" {
		status = StatusUnknown
	}
	res := &Result{
		Status:    status,
		SessionID: r.Data.SessionID,
		Outputs:   r.Data.Outputs,
	}
	res.Errors = append(res.Errors, r.Data.Errors...)
	res.Errors = append(res.Errors, r.Errors...)
	return res, nil
}

// errorList decodes a list whose items are strings or objects carrying a
// message.
type errorList []string

func (l *errorList) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		// A single string or object is accepted as a one-item list.
		raw = []json.RawMessage{b}
	}
	out := make(errorList, 0, len(raw))
	for _, item := range raw {
		if strings.TrimSpace(string(item)) == "null" {
			continue
		}
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
			continue
		}
		var obj struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if err := json.Unmarshal(item, &obj); err == nil && (obj.Message != "" || obj.Error != "") {
			if obj.Message != "" {
				out = append(out, obj.Message)
			} else {
				out = append(out, obj.Error)
			}
			continue
		}
		out = append(out, string(item))
	}
	*l = out
	return nil
}
