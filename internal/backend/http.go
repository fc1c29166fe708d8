package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	tderrors "tunneldeck/pkg/errors"
)

// Caller performs one call on the backend RPC surface and decodes the unwrapped
// result payload into out (when out is non-nil).
type Caller interface {
	Call(ctx context.Context, method string, args any, out any) error
}

// envelope is the wire form of every backend reply.
type envelope struct {
	Success *bool           `json:"success,omitempty"`
	Result  json.RawMessage `json:"result"`
}

type request struct {
	Args any `json:"args"`
}

// HTTPCaller talks to the backend over HTTP, either on a TCP address or a unix socket.
type HTTPCaller struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPCaller creates a caller for baseURL. A "unix://" URL dials the socket path
// and sends requests to a fixed "http://unix" host.
func NewHTTPCaller(baseURL string, timeout time.Duration, logger *zap.Logger) (*HTTPCaller, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()

	switch {
	case strings.HasPrefix(baseURL, "unix://"):
		socketPath := strings.TrimPrefix(baseURL, "unix://")
		if socketPath == "" {
			return nil, fmt.Errorf("unix backend url has no socket path")
		}
		transport.DialContext = func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socketPath)
		}
		baseURL = "http://unix"
	case strings.HasPrefix(baseURL, "http://"), strings.HasPrefix(baseURL, "https://"):
	default:
		return nil, fmt.Errorf("unsupported backend url %q (want http://, https:// or unix://)", baseURL)
	}

	return &HTTPCaller{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Transport: transport, Timeout: timeout},
		logger:  logger,
	}, nil
}

// Call posts {"args": args} to {base}/methods/{method}.
func (c *HTTPCaller) Call(ctx context.Context, method string, args any, out any) error {
	if args == nil {
		args = struct{}{}
	}
	body, err := json.Marshal(request{Args: args})
	if err != nil {
		return &tderrors.RemoteError{Method: method, Err: fmt.Errorf("encode args: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/methods/"+method, bytes.NewReader(body))
	if err != nil {
		return &tderrors.RemoteError{Method: method, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return &tderrors.RemoteError{Method: method, Err: fmt.Errorf("%w: %v", tderrors.ErrBackendUnavailable, err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &tderrors.RemoteError{Method: method, Err: fmt.Errorf("read reply: %w", err)}
	}

	c.logger.Debug("backend call",
		zap.String("method", method),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &tderrors.RemoteError{Method: method, Err: fmt.Errorf("http status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &tderrors.RemoteError{Method: method, Err: fmt.Errorf("decode reply: %w", err)}
	}
	if env.Success != nil && !*env.Success {
		return &tderrors.RemoteError{Method: method, Err: fmt.Errorf("%w: %s", tderrors.ErrRemoteCall, failureText(env.Result))}
	}

	if out == nil {
		return nil
	}
	if len(env.Result) == 0 {
		return &tderrors.RemoteError{Method: method, Err: tderrors.ErrEmptyResponse}
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return &tderrors.RemoteError{Method: method, Err: fmt.Errorf("decode result: %w", err)}
	}
	return nil
}

// failureText renders the result of a failed reply, which is usually an error string.
func failureText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
