package gate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// unknownError is the message for faults that carry no description.
const unknownError = "Unknown error"

// unnamedGate labels a gate whose Name method panics.
const unnamedGate = "(unnamed gate)"

// Observer is notified synchronously around every gate that executes.
// Disabled gates produce no notifications.
type Observer interface {
	GateStarted(name string)
	GateFinished(result Result)
}

// Orchestrator runs registered gates in registration order.
type Orchestrator struct {
	gates    []Gate
	logger   *slog.Logger
	now      func() time.Time
	observer Observer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithObserver registers a progress observer.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		o.observer = obs
	}
}

// New creates an empty Orchestrator.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Register appends g to the registry. Names are not required to be unique.
func (o *Orchestrator) Register(g Gate) {
	o.gates = append(o.gates, g)
}

// Gates returns the registry in execution order.
func (o *Orchestrator) Gates() []Gate {
	out := make([]Gate, len(o.gates))
	copy(out, o.gates)
	return out
}

// Run executes every enabled gate in order and returns the report. It never
// fails: gate faults are recorded as error results.
func (o *Orchestrator) Run(ctx context.Context, rc *RunContext) *Report {
	start := o.now()
	results := make([]Result, 0, len(o.gates))

	for i, g := range o.gates {
		name := o.gateName(g)
		res, enabled := o.evaluate(g, name, rc)
		if !enabled {
			o.logger.Debug("gate disabled", "gate", name, "position", i)
			continue
		}
		if res == nil {
			res = o.execute(ctx, g, name, rc)
		}
		results = append(results, *res)

		if rc.FailFast() && res.Status.halts() {
			o.logger.Warn("fail-fast: stopping run",
				"gate", res.Name, "status", res.Status, "remaining", len(o.gates)-i-1)
			break
		}
	}

	total := o.since(start)
	report := NewReport(results, total, o.now())
	o.logger.Info("gates finished",
		"total", report.Summary.Total,
		"passed", report.Summary.Passed,
		"failed", report.Summary.Failed,
		"skipped", report.Summary.Skipped,
		"errors", report.Summary.Errors,
		"duration", total,
		"success", report.Success,
	)
	return report
}

// evaluate consults the enablement predicate. A predicate that panics is
// reported as an error result for that gate.
func (o *Orchestrator) evaluate(g Gate, name string, rc *RunContext) (res *Result, enabled bool) {
	defer func() {
		if p := recover(); p != nil {
			o.logger.Error("gate enablement panicked", "gate", name, "panic", p)
			r := errorResult(name, "enabled check panicked: "+panicMessage(p), 0)
			res, enabled = &r, true
		}
	}()
	return nil, g.Enabled(rc)
}

// execute runs one gate behind a recover boundary and stamps the duration.
func (o *Orchestrator) execute(ctx context.Context, g Gate, name string, rc *RunContext) *Result {
	o.logger.Debug("gate starting", "gate", name)
	if o.observer != nil {
		o.observer.GateStarted(name)
	}

	start := o.now()
	res := o.invoke(ctx, g, name, rc)
	res.Duration = o.since(start)

	o.logger.Info("gate finished", "gate", res.Name, "status", res.Status, "duration", res.Duration)
	if o.observer != nil {
		o.observer.GateFinished(res)
	}
	return &res
}

func (o *Orchestrator) invoke(ctx context.Context, g Gate, name string, rc *RunContext) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			o.logger.Error("gate panicked", "gate", name, "panic", p)
			res = errorResult(name, panicMessage(p), 0)
		}
	}()

	r, err := g.Run(ctx, rc)
	switch {
	case err != nil:
		o.logger.Debug("gate returned error", "gate", name, "error", err)
		return errorResult(name, err.Error(), 0)
	case r == nil:
		return errorResult(name, "", 0)
	case !r.Status.Valid():
		return errorResult(name, fmt.Sprintf("gate returned invalid status %q", r.Status), 0)
	}

	res = r.clone()
	if res.Name == "" {
		res.Name = name
	}
	return res
}

// gateName reads g's name once per run, containing a panic.
func (o *Orchestrator) gateName(g Gate) (name string) {
	defer func() {
		if p := recover(); p != nil {
			o.logger.Error("gate name panicked", "panic", p)
			name = unnamedGate
		}
	}()
	return g.Name()
}

// since returns the elapsed time from start, never negative.
func (o *Orchestrator) since(start time.Time) time.Duration {
	d := o.now().Sub(start)
	if d < 0 {
		return 0
	}
	return d
}

func errorResult(name, msg string, d time.Duration) Result {
	if strings.TrimSpace(msg) == "" {
		msg = unknownError
	}
	return Result{
		Name:     name,
		Status:   StatusError,
		Message:  msg,
		Duration: d,
	}
}

func panicMessage(p any) string {
	switch v := p.(type) {
	case error:
		return v.Error()
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
