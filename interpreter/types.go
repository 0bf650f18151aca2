package interpreter

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Execution status values reported by the backend.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusUnknown = "unknown"
)

// OutputType classifies one output of an execution.
type OutputType string

const (
	OutputStdout        OutputType = "stdout"
	OutputStderr        OutputType = "stderr"
	OutputDisplayData   OutputType = "display_data"
	OutputExecuteResult OutputType = "execute_result"
	OutputError         OutputType = "error"
)

// OutputData is the payload of an output: either plain text or a mapping of
// MIME type to payload.
type OutputData struct {
	Text string
	MIME map[string]any
}

// TextData wraps plain text.
func TextData(s string) OutputData { return OutputData{Text: s} }

// MIMEData wraps a MIME bundle.
func MIMEData(m map[string]any) OutputData { return OutputData{MIME: m} }

// IsText reports whether the payload is plain text.
func (d OutputData) IsText() bool { return d.MIME == nil }

// UnmarshalJSON accepts a JSON string or object. Any other JSON value is kept
// as its raw text.
func (d *OutputData) UnmarshalJSON(b []byte) error {
	*d = OutputData{}
	trimmed := strings.TrimSpace(string(b))
	switch {
	case trimmed == "null":
		return nil
	case strings.HasPrefix(trimmed, `"`):
		return json.Unmarshal(b, &d.Text)
	case strings.HasPrefix(trimmed, "{"):
		return json.Unmarshal(b, &d.MIME)
	default:
		d.Text = trimmed
		return nil
	}
}

// MarshalJSON writes the text or the MIME bundle.
func (d OutputData) MarshalJSON() ([]byte, error) {
	if d.MIME != nil {
		return json.Marshal(d.MIME)
	}
	return json.Marshal(d.Text)
}

// String renders the payload as text. MIME bundles render as JSON with
// sorted keys.
func (d OutputData) String() string {
	if d.MIME == nil {
		return d.Text
	}
	b, err := json.Marshal(d.MIME)
	if err != nil {
		return fmt.Sprint(d.MIME)
	}
	return string(b)
}

// PlainText returns the text/plain representation of a MIME bundle.
func (d OutputData) PlainText() (string, bool) {
	if d.MIME == nil {
		return "", false
	}
	v, ok := d.MIME["text/plain"]
	if !ok {
		return "", false
	}
	return stringify(v), true
}

// Image returns the first image payload of a MIME bundle and its MIME type.
// image/png and image/jpeg are preferred over other image types.
func (d OutputData) Image() (mimeType, payload string, ok bool) {
	if d.MIME == nil {
		return "", "", false
	}
	for _, mt := range []string{"image/png", "image/jpeg"} {
		if v, found := d.MIME[mt]; found {
			return mt, stringify(v), true
		}
	}
	keys := make([]string, 0, len(d.MIME))
	for k := range d.MIME {
		if strings.HasPrefix(k, "image/") {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return "", "", false
	}
	sort.Strings(keys)
	return keys[0], stringify(d.MIME[keys[0]]), true
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		// Jupyter splits multi-line payloads into a list of lines.
		var sb strings.Builder
		for _, part := range t {
			sb.WriteString(stringify(part))
		}
		return sb.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// Output is one ordered output of an execution.
type Output struct {
	Type OutputType `json:"type"`
	Data OutputData `json:"data"`
}

// File is an attachment uploaded with an execution call.
type File struct {
	Name     string `json:"name"`
	Encoding string `json:"encoding"` // "string" or "base64"
	Content  string `json:"content"`
}

// Result is the structured outcome of one execution call. A degraded result
// (transport or backend failure) has Status "error", a non-empty
// ErrorMessage and no SessionID.
type Result struct {
	Status       string   `json:"status"`
	SessionID    string   `json:"session_id,omitempty"`
	Outputs      []Output `json:"outputs,omitempty"`
	Errors       []string `json:"errors,omitempty"`
	ErrorMessage string   `json:"error_message,omitempty"`
}

// Degraded reports whether the result stands in for a failed call.
func (r *Result) Degraded() bool {
	return r != nil && r.ErrorMessage != ""
}

// Succeeded reports whether the backend reported success.
func (r *Result) Succeeded() bool {
	return r != nil && r.Status == StatusSuccess
}

// DegradedResult builds the stand-in result for a failed call.
func DegradedResult(err error) *Result {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &Result{Status: StatusError, ErrorMessage: msg}
}

// Executor runs code in a session. Implementations must return a non-nil
// Result and must not panic; failures become degraded results.
type Executor interface {
	Execute(ctx context.Context, code, sessionID string, files []File) *Result
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, code, sessionID string, files []File) *Result

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, code, sessionID string, files []File) *Result {
	return f(ctx, code, sessionID, files)
}
