package chaos

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Fault describes what the Injector does to each request.
type Fault struct {
	Latency time.Duration
	Jitter  time.Duration
	// FailureRate is the share of requests, 0.0 to 1.0, that fail.
	FailureRate float64
	// Status is the response code of a failed request. Zero fails at the
	// transport level instead, as a refused connection would.
	Status int
}

// ErrInjected is the transport error of a failed request when Fault.Status
// is zero.
var ErrInjected = errors.New("chaos: injected connection failure")

// Injector is an http.RoundTripper that applies the current Fault before
// handing requests to the next transport.
type Injector struct {
	next     http.RoundTripper
	injected metric.Int64Counter

	mu    sync.RWMutex
	fault Fault
}

// NewInjector wraps next, http.DefaultTransport when nil. No fault is active
// until Set is called.
func NewInjector(next http.RoundTripper) *Injector {
	if next == nil {
		next = http.DefaultTransport
	}
	inj := &Injector{next: next}
	counter, err := otel.Meter("libranexus/chaos").Int64Counter(
		"chaos.faults.injected",
		metric.WithDescription("Requests failed or delayed by the fault injector"),
	)
	if err == nil {
		inj.injected = counter
	}
	return inj
}

func (i *Injector) Set(f Fault) {
	i.mu.Lock()
	i.fault = f
	i.mu.Unlock()
}

// Clear removes the active fault.
func (i *Injector) Clear() {
	i.Set(Fault{})
}

func (i *Injector) current() Fault {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.fault
}

func (i *Injector) RoundTrip(req *http.Request) (*http.Response, error) {
	f := i.current()

	if delay := f.Latency + jitter(f.Jitter); delay > 0 {
		i.count(req.Context(), "latency")
		t := time.NewTimer(delay)
		select {
		case <-req.Context().Done():
			t.Stop()
			return nil, req.Context().Err()
		case <-t.C:
		}
	}

	if f.FailureRate > 0 && rand.Float64() < f.FailureRate {
		i.count(req.Context(), "failure")
		if f.Status == 0 {
			return nil, ErrInjected
		}
		return &http.Response{
			Status:     http.StatusText(f.Status),
			StatusCode: f.Status,
			Proto:      "HTTP/1.1",
			ProtoMajor: 1,
			ProtoMinor: 1,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(strings.NewReader(`{"message":"injected fault"}`)),
			Request:    req,
		}, nil
	}

	return i.next.RoundTrip(req)
}

func (i *Injector) count(ctx context.Context, kind string) {
	if i.injected != nil {
		i.injected.Add(ctx, 1, metric.WithAttributes(attribute.String("fault", kind)))
	}
}

func jitter(spread time.Duration) time.Duration {
	if spread <= 0 {
		return 0
	}
	return rand.N(spread)
}
