// internal/chaos/chaos.go

// Package chaos runs fault-injection experiments against the path between
// this process and the library backend. Faults are injected on the HTTP
// client side, so the experiments exercise the real client stack: tracing,
// error mapping and the circuit breaker.
package chaos

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Experiment defines one chaos test.
type Experiment struct {
	Name        string
	Hypothesis  string
	SteadyState []Metric
	Method      []Action
	Rollback    []Action
	Validation  []Assertion

	// Duration is how long the fault stays injected.
	Duration time.Duration
	// Interval between metric samples; one second when zero.
	Interval time.Duration
	// RecoveryTimeout bounds the wait for steady state after rollback. Zero
	// skips the recovery phase.
	RecoveryTimeout time.Duration
}

// Metric is a measurable property of the system under test.
type Metric struct {
	Name      string
	Query     func(context.Context) (float64, error)
	Threshold Threshold
}

type Threshold struct {
	Operator string // >, <, >=, <=, ==
	Value    float64
}

func (t Threshold) holds(v float64) bool {
	switch t.Operator {
	case ">":
		return v > t.Value
	case "<":
		return v < t.Value
	case ">=":
		return v >= t.Value
	case "<=":
		return v <= t.Value
	case "==":
		return v == t.Value
	}
	return false
}

// Action injects or removes a fault.
type Action struct {
	Type    string // latency, failure, recover
	Target  string
	Execute func(context.Context) error
}

// Assertion is checked against the last observation of Metric.
type Assertion struct {
	Metric    string
	Condition func(float64) bool
	Message   string
}

type Result struct {
	Experiment       string                 `json:"experiment"`
	StartTime        time.Time              `json:"start_time"`
	Duration         time.Duration          `json:"duration"`
	SteadyStateValid bool                   `json:"steady_state_valid"`
	HypothesisHeld   bool                   `json:"hypothesis_held"`
	Violations       []Violation            `json:"violations"`
	Observations     map[string][]DataPoint `json:"observations"`
	Errors           []ErrorEvent           `json:"errors"`
	Failed           []string               `json:"failed_assertions,omitempty"`
	// MTTR is the time from rollback until every steady-state metric held
	// again. Nil when the system never recovered or recovery was not
	// measured.
	MTTR *time.Duration `json:"mttr,omitempty"`
}

type Violation struct {
	Metric    string    `json:"metric"`
	Expected  float64   `json:"expected"`
	Actual    float64   `json:"actual"`
	Timestamp time.Time `json:"timestamp"`
}

type DataPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

type ErrorEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error"`
	Component string    `json:"component"`
}

// ErrSteadyState aborts an experiment whose system is unhealthy before any
// fault is injected.
var ErrSteadyState = errors.New("chaos: steady state invalid, experiment aborted")

// Engine runs experiments.
type Engine struct {
	tracer trace.Tracer
	log    *zap.Logger
}

func NewEngine(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		tracer: otel.Tracer("libranexus/chaos"),
		log:    log.Named("chaos"),
	}
}

// Run executes exp: verify steady state, inject, observe, roll back, wait for
// recovery, then check the assertions.
func (e *Engine) Run(ctx context.Context, exp Experiment) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "chaos.run_experiment",
		trace.WithAttributes(attribute.String("experiment.name", exp.Name)),
	)
	defer span.End()

	interval := exp.Interval
	if interval <= 0 {
		interval = time.Second
	}
	res := &Result{
		Experiment:   exp.Name,
		StartTime:    time.Now(),
		Observations: make(map[string][]DataPoint),
	}
	log := e.log.With(zap.String("experiment", exp.Name))

	span.AddEvent("validating_steady_state")
	if ok, violations := e.sample(ctx, exp.SteadyState, res, false); !ok {
		res.Violations = violations
		res.Duration = time.Since(res.StartTime)
		return res, ErrSteadyState
	}
	res.SteadyStateValid = true

	span.AddEvent("injecting_chaos")
	e.execute(ctx, exp.Method, res, span)

	span.AddEvent("observing_system")
	observe, cancel := context.WithTimeout(ctx, exp.Duration)
	ticker := time.NewTicker(interval)
loop:
	for {
		select {
		case <-observe.Done():
			break loop
		case <-ticker.C:
			_, violations := e.sample(ctx, exp.SteadyState, res, true)
			res.Violations = append(res.Violations, violations...)
		}
	}
	ticker.Stop()
	cancel()

	span.AddEvent("rolling_back")
	e.execute(ctx, exp.Rollback, res, span)

	if exp.RecoveryTimeout > 0 {
		span.AddEvent("awaiting_recovery")
		if d, ok := e.awaitRecovery(ctx, exp, interval, res); ok {
			res.MTTR = &d
			log.Info("recovered", zap.Duration("mttr", d))
		} else {
			log.Warn("no recovery", zap.Duration("waited", exp.RecoveryTimeout))
		}
	}

	span.AddEvent("validating_assertions")
	res.HypothesisHeld = e.validate(exp.Validation, res)
	res.Duration = time.Since(res.StartTime)

	span.SetAttributes(
		attribute.Bool("hypothesis_held", res.HypothesisHeld),
		attribute.Int("violations", len(res.Violations)),
	)
	log.Info("experiment finished",
		zap.Bool("hypothesis_held", res.HypothesisHeld),
		zap.Int("violations", len(res.Violations)),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

func (e *Engine) execute(ctx context.Context, actions []Action, res *Result, span trace.Span) {
	for _, a := range actions {
		if err := a.Execute(ctx); err != nil {
			res.Errors = append(res.Errors, ErrorEvent{Timestamp: time.Now(), Error: err.Error(), Component: a.Target})
			span.RecordError(err)
		}
	}
}

// sample queries every metric once. With record set the values are kept as
// observations.
func (e *Engine) sample(ctx context.Context, metrics []Metric, res *Result, record bool) (bool, []Violation) {
	var violations []Violation
	for _, m := range metrics {
		v, err := m.Query(ctx)
		now := time.Now()
		if err != nil {
			res.Errors = append(res.Errors, ErrorEvent{Timestamp: now, Error: err.Error(), Component: m.Name})
			violations = append(violations, Violation{Metric: m.Name, Expected: m.Threshold.Value, Actual: -1, Timestamp: now})
			continue
		}
		if record {
			res.Observations[m.Name] = append(res.Observations[m.Name], DataPoint{Timestamp: now, Value: v})
		}
		if !m.Threshold.holds(v) {
			violations = append(violations, Violation{Metric: m.Name, Expected: m.Threshold.Value, Actual: v, Timestamp: now})
		}
	}
	return len(violations) == 0, violations
}

func (e *Engine) awaitRecovery(ctx context.Context, exp Experiment, interval time.Duration, res *Result) (time.Duration, bool) {
	start := time.Now()
	deadline := time.NewTimer(exp.RecoveryTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if ok, _ := e.sample(ctx, exp.SteadyState, res, true); ok {
			return time.Since(start), true
		}
		select {
		case <-ctx.Done():
			return 0, false
		case <-deadline.C:
			return 0, false
		case <-ticker.C:
		}
	}
}

func (e *Engine) validate(assertions []Assertion, res *Result) bool {
	held := true
	for _, a := range assertions {
		obs := res.Observations[a.Metric]
		if len(obs) == 0 || !a.Condition(obs[len(obs)-1].Value) {
			res.Failed = append(res.Failed, a.Message)
			held = false
		}
	}
	return held
}
