// Package apiclient talks to the remote banking API over HTTP.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"

	"github.com/vaultline/session-engine/internal/domain/recovery"
	"github.com/vaultline/session-engine/internal/ports"
)

const (
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 4 << 20
	// RequestIDHeader carries a per-call id for backend correlation.
	RequestIDHeader = "X-Request-ID"
)

// TransportOptions configures Transport.
type TransportOptions struct {
	BaseURL     string
	Timeout     time.Duration
	Credentials ports.CredentialStore // Optional: no bearer header when nil
	Client      *http.Client          // Optional: built with a cookie jar when nil
	Logger      *slog.Logger
}

// Transport implements ports.Transport over net/http.
type Transport struct {
	base   *url.URL
	client *http.Client
	creds  ports.CredentialStore
	logger *slog.Logger
}

// NewTransport validates the base URL and builds the HTTP client.
func NewTransport(opts TransportOptions) (*Transport, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https, got %q", opts.BaseURL)
	}

	client := opts.Client
	if client == nil {
		jar, jarErr := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if jarErr != nil {
			return nil, fmt.Errorf("cookie jar: %w", jarErr)
		}
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Jar: jar, Timeout: timeout}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{
		base:   base,
		client: client,
		creds:  opts.Credentials,
		logger: logger.With("component", "apiclient"),
	}, nil
}

// Call performs req. Non-2xx replies come back as *recovery.Failure.
func (t *Transport) Call(ctx context.Context, req ports.Request) (*ports.Response, error) {
	httpReq, err := t.build(ctx, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", req.Method, req.Path, err)
	}

	t.logger.DebugContext(ctx, "api call",
		"method", req.Method,
		"path", req.Path,
		"status", resp.StatusCode,
		"request_id", httpReq.Header.Get(RequestIDHeader),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeFailure(resp.StatusCode, body)
	}
	return &ports.Response{Status: resp.StatusCode, Body: body}, nil
}

func (t *Transport) build(ctx context.Context, req ports.Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	target, err := t.base.Parse(t.base.Path + req.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve path %q: %w", req.Path, err)
	}

	var body io.Reader
	if req.Body != nil {
		payload, marshalErr := json.Marshal(req.Body)
		if marshalErr != nil {
			return nil, fmt.Errorf("encode %s body: %w", req.Path, marshalErr)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set(RequestIDHeader, uuid.NewString())

	if !req.Anonymous && t.creds != nil {
		token, credErr := t.creds.Get(ctx)
		if credErr != nil {
			return nil, fmt.Errorf("read credential: %w", credErr)
		}
		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return httpReq, nil
}

// decodeFailure maps an error reply into the failure shape the classifier reads.
// The whole JSON body is kept in Data so nested fields stay reachable.
func decodeFailure(status int, body []byte) *recovery.Failure {
	f := &recovery.Failure{Status: status}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil || payload == nil {
		f.Message = strings.TrimSpace(string(body))
		if f.Message == "" {
			f.Message = http.StatusText(status)
		}
		return f
	}

	f.Data = payload
	f.Message = firstString(payload, "message", "error", "detail")
	f.Code = firstString(payload, "code")
	f.ErrorCode = firstString(payload, "errorCode", "error_code")
	return f
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// decodeJSON unmarshals a successful reply.
func decodeJSON(resp *ports.Response, out any) error {
	if resp == nil || len(resp.Body) == 0 {
		return errors.New("empty response body")
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
