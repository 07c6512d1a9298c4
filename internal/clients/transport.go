// Package clients wraps the library backend's REST API. Each resource has
// its own thin client; all of them share one Transport.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const maxErrorBody = 64 << 10

// APIError is a non-2xx answer from the backend. Message is the backend's own
// explanation when it sent one.
type APIError struct {
	Op      string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Message, e.Status)
}

// Message returns the text to show a user for err: the backend's message for
// an APIError, otherwise fallback.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// StatusOf returns the backend status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

type tokenKey struct{}

// WithToken attaches the bearer token sent with every request made with ctx.
func WithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFrom(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey{}).(string)
	return t
}

// Transport issues JSON requests against the backend base URL.
type Transport struct {
	baseURL  string
	http     *http.Client
	tracer   trace.Tracer
	failures metric.Int64Counter
	breaker  *gobreaker.CircuitBreaker
}

type Option func(*Transport)

// WithHTTPClient replaces the default client (15s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transport) { t.http = c }
}

// WithBreaker stops calling the backend for cooldown after failures
// consecutive network errors or 5xx answers. Calls made while open fail
// immediately with a 503 APIError.
func WithBreaker(failures uint32, cooldown time.Duration) Option {
	return func(t *Transport) {
		t.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "backend",
			Timeout: cooldown,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= failures
			},
			IsSuccessful: backendHealthy,
		})
	}
}

// backendHealthy tells the breaker which errors say nothing about the
// backend's health.
func backendHealthy(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError
}

func NewTransport(baseURL string, opts ...Option) *Transport {
	t := &Transport{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		tracer:  otel.Tracer("libranexus/clients"),
	}
	for _, opt := range opts {
		opt(t)
	}

	failures, err := otel.Meter("libranexus/clients").Int64Counter(
		"backend.request.failures",
		metric.WithDescription("Backend calls that failed or returned a non-2xx status"),
	)
	if err == nil {
		t.failures = failures
	}
	return t
}

// BaseURL returns the backend root this transport talks to.
func (t *Transport) BaseURL() string { return t.baseURL }

// do sends one request. A nil body sends no payload; a nil out discards the
// response body.
func (t *Transport) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	ctx, span := t.tracer.Start(ctx, "backend."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.path", path),
		),
	)
	defer span.End()

	var err error
	if t.breaker != nil {
		_, err = t.breaker.Execute(func() (interface{}, error) {
			return nil, t.send(ctx, op, method, path, query, body, out, span)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = &APIError{Op: op, Status: http.StatusServiceUnavailable, Message: "The library service is unavailable, please try again shortly"}
		}
	} else {
		err = t.send(ctx, op, method, path, query, body, out, span)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if t.failures != nil {
			t.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
		}
	}
	return err
}

func (t *Transport) send(ctx context.Context, op, method, path string, query url.Values, body, out any, span trace.Span) error {
	target := t.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := tokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Op: op, Status: resp.StatusCode, Message: errorMessage(raw, resp.StatusCode)}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// errorMessage pulls "message" (or "error") out of a backend error body.
func errorMessage(raw []byte, status int) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return fmt.Sprintf("request failed: %d %s", status, http.StatusText(status))
}

// messageBody accepts either {"message": "..."} or a bare JSON string.
type messageBody struct {
	Message string
}

func (m *messageBody) UnmarshalJSON(raw []byte) error {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		m.Message = s
		return nil
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return err
	}
	m.Message = obj.Message
	return nil
}

func setString(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func setInt(q url.Values, key string, value int) {
	if value > 0 {
		q.Set(key, strconv.Itoa(value))
	}
}
