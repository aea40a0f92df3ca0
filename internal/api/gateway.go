// Package api is the REST gateway to the social/chat backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"chat-client/internal/observability"
)

// CredentialSource yields the current bearer token, if any.
type CredentialSource interface {
	Credential() (string, bool)
}

// Gateway issues requests against the backend and unwraps {msg,data} envelopes.
type Gateway struct {
	baseURL  string
	creds    CredentialSource
	client   *http.Client
	deviceID string
	log      zerolog.Logger
}

type Option func(*Gateway)

// WithHTTPClient replaces the instrumented default client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.client = c }
}

func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.client.Timeout = d }
}

func WithDeviceID(id string) Option {
	return func(g *Gateway) { g.deviceID = id }
}

func NewGateway(baseURL string, creds CredentialSource, logger zerolog.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		client: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type envelope struct {
	Msg   string          `json:"msg"`
	Data  json.RawMessage `json:"data"`
	Error json.RawMessage `json:"error"`
}

// Call performs a JSON request and decodes the envelope's data into T.
func Call[T any](ctx context.Context, g *Gateway, method, path string, body any) (T, error) {
	var out T
	err := g.Do(ctx, method, path, body, &out)
	return out, err
}

// Do performs a JSON request. out may be nil when the payload is not needed.
func (g *Gateway) Do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
		contentType = "application/json"
	}
	return g.send(ctx, method, path, reader, contentType, out)
}

func (g *Gateway) send(ctx context.Context, method, path string, body io.Reader, contentType string, out any) (err error) {
	op := method + " " + path
	route := observability.RouteLabel(path)

	ctx, span := otel.Tracer("chat-client/api").Start(ctx, method+" "+route, trace.WithSpanKind(trace.SpanKindInternal))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request %s: %w", op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if token, ok := g.creds.Credential(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	requestID := uuid.NewString()
	observability.SetRequestHeaders(req, requestID, g.deviceID)

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		observability.ObserveAPIRequest(method, route, 0, time.Since(start))
		g.log.Warn().Err(err).
			Str("request_id", requestID).
			Str("trace_id", span.SpanContext().TraceID().String()).
			Str("route", route).
			Msg("api request failed")
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(resp.Body)
	observability.ObserveAPIRequest(method, route, resp.StatusCode, time.Since(start))
	if readErr != nil {
		return &NetworkError{Op: op, Err: readErr}
	}

	g.log.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("route", route).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("api request")

	return unwrap(resp.StatusCode, raw, out)
}

func unwrap(status int, raw []byte, out any) error {
	ok := status >= 200 && status < 300
	if ok && (status == http.StatusNoContent || len(bytes.TrimSpace(raw)) == 0) {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if !ok {
			return &APIError{Status: status, Message: fallbackErrorMessage}
		}
		return &DecodeError{Err: err}
	}

	if !ok {
		return &APIError{Status: status, Message: errorMessage(env)}
	}
	if hasValue(env.Error) {
		return &APIError{Status: status, Message: errorMessage(env)}
	}

	if out == nil || !hasValue(env.Data) {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &DecodeError{Err: err}
	}
	return nil
}

// errorMessage prefers error.msg, then the envelope msg.
func errorMessage(env envelope) string {
	if hasValue(env.Error) {
		var nested struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(env.Error, &nested); err == nil && nested.Msg != "" {
			return nested.Msg
		}
		var plain string
		if err := json.Unmarshal(env.Error, &plain); err == nil && plain != "" {
			return plain
		}
	}
	if env.Msg != "" {
		return env.Msg
	}
	return fallbackErrorMessage
}

func hasValue(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "", "null", `""`, "{}":
		return false
	}
	return true
}

// IsUnauthorized reports whether err is an APIError for a rejected credential.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Unauthorized()
}
