package chaos

import (
	"context"
	"net/http"
	"time"
)

// Probe is one representative call through the client stack, such as
// loading the recommended books.
type Probe func(context.Context) error

// SuccessRate samples probe n times and reports the percentage that
// succeeded.
func SuccessRate(probe Probe, n int) func(context.Context) (float64, error) {
	return func(ctx context.Context) (float64, error) {
		ok := 0
		for range n {
			if probe(ctx) == nil {
				ok++
			}
		}
		return float64(ok) / float64(n) * 100, nil
	}
}

// Timing tunes how long the predefined experiments run.
type Timing struct {
	Duration        time.Duration
	Interval        time.Duration
	RecoveryTimeout time.Duration
}

func (t Timing) apply(exp Experiment) Experiment {
	exp.Duration, exp.Interval, exp.RecoveryTimeout = t.Duration, t.Interval, t.RecoveryTimeout
	return exp
}

// Experiments returns the standard suite.
func Experiments(inj *Injector, probe Probe, t Timing) []Experiment {
	return []Experiment{
		BackendOutage(inj, probe, t),
		BackendLatency(inj, probe, 250*time.Millisecond, t),
		FlakyBackend(inj, probe, 0.2, t),
	}
}

func steadyState(probe Probe) Metric {
	return Metric{
		Name:      "backend_success_rate",
		Query:     SuccessRate(probe, 5),
		Threshold: Threshold{Operator: ">=", Value: 100},
	}
}

func recoverAction(inj *Injector) Action {
	return Action{
		Type:   "recover",
		Target: "backend",
		Execute: func(context.Context) error {
			inj.Clear()
			return nil
		},
	}
}

// BackendOutage takes the backend away entirely. The breaker should open so
// callers fail fast, and close again once the backend is back.
func BackendOutage(inj *Injector, probe Probe, t Timing) Experiment {
	return t.apply(Experiment{
		Name:        "backend-outage",
		Hypothesis:  "Calls fail fast while the backend is down and succeed again after it returns",
		SteadyState: []Metric{steadyState(probe)},
		Method: []Action{{
			Type:   "failure",
			Target: "backend",
			Execute: func(context.Context) error {
				inj.Set(Fault{FailureRate: 1, Status: http.StatusServiceUnavailable})
				return nil
			},
		}},
		Rollback: []Action{recoverAction(inj)},
		Validation: []Assertion{{
			Metric:    "backend_success_rate",
			Condition: func(v float64) bool { return v >= 100 },
			Message:   "backend calls did not recover after the outage",
		}},
	})
}

// BackendLatency slows every response down without failing any. Calls must
// keep succeeding as long as the delay stays under the client timeout.
func BackendLatency(inj *Injector, probe Probe, latency time.Duration, t Timing) Experiment {
	return t.apply(Experiment{
		Name:        "backend-latency",
		Hypothesis:  "Slow responses below the client timeout do not fail requests",
		SteadyState: []Metric{steadyState(probe)},
		Method: []Action{{
			Type:   "latency",
			Target: "backend",
			Execute: func(context.Context) error {
				inj.Set(Fault{Latency: latency, Jitter: latency / 5})
				return nil
			},
		}},
		Rollback: []Action{recoverAction(inj)},
		Validation: []Assertion{{
			Metric:    "backend_success_rate",
			Condition: func(v float64) bool { return v >= 100 },
			Message:   "requests failed under latency",
		}},
	})
}

// FlakyBackend fails a share of requests with 500s. Users see errors, but
// the system must be fully healthy once the fault is gone.
func FlakyBackend(inj *Injector, probe Probe, rate float64, t Timing) Experiment {
	return t.apply(Experiment{
		Name:        "flaky-backend",
		Hypothesis:  "Intermittent backend errors leave no lasting damage",
		SteadyState: []Metric{steadyState(probe)},
		Method: []Action{{
			Type:   "failure",
			Target: "backend",
			Execute: func(context.Context) error {
				inj.Set(Fault{FailureRate: rate, Status: http.StatusInternalServerError})
				return nil
			},
		}},
		Rollback: []Action{recoverAction(inj)},
		Validation: []Assertion{{
			Metric:    "backend_success_rate",
			Condition: func(v float64) bool { return v >= 100 },
			Message:   "backend calls did not recover after intermittent errors",
		}},
	})
}
