// Package gate defines the quality gate contract and the orchestrator that
// runs a registry of gates against a project and reduces their outcomes to a
// single report.
package gate

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"slices"
	"time"

	"github.com/lucasnoah/gateagent/internal/config"
)

// Status is the outcome of one gate execution.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusSkipped, StatusError:
		return true
	}
	return false
}

// halts reports whether a result with this status stops a fail-fast run.
func (s Status) halts() bool {
	return s == StatusFailed || s == StatusError
}

// Result is the structured outcome of a single gate.
type Result struct {
	Name     string         `json:"name"`
	Status   Status         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Errors   []string       `json:"errors,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`
	Duration time.Duration  `json:"-"`
	Details  map[string]any `json:"details,omitempty"`
}

// MarshalJSON encodes Duration as whole milliseconds under "duration".
func (r Result) MarshalJSON() ([]byte, error) {
	type alias Result
	return json.Marshal(struct {
		alias
		Duration int64 `json:"duration"`
	}{alias(r), r.Duration.Milliseconds()})
}

// clone returns a copy that shares no slices or maps with r.
func (r *Result) clone() Result {
	c := *r
	c.Errors = slices.Clone(r.Errors)
	c.Warnings = slices.Clone(r.Warnings)
	c.Details = maps.Clone(r.Details)
	return c
}

// RunContext is the read-only input handed to every gate in a run.
type RunContext struct {
	ProjectRoot string
	Config      *config.Config
}

// FailFast reports whether the run stops at the first failed or errored gate.
func (rc *RunContext) FailFast() bool {
	return rc != nil && rc.Config != nil && rc.Config.FailFast
}

//go:generate mockgen -source=gate.go -destination=gate_mock_test.go -package=gate Gate

// Gate is one independently pluggable quality check.
//
// Enabled must be a pure predicate: no I/O, no side effects. Run reports
// expected conditions (missing tool, check failures) through the returned
// Result and returns an error only for unexpected faults.
type Gate interface {
	Name() string
	Enabled(rc *RunContext) bool
	Run(ctx context.Context, rc *RunContext) (*Result, error)
}

var errNoRunFunc = errors.New("gate has no run function")

// Func adapts plain functions to the Gate interface. A nil EnabledFn means
// always enabled.
type Func struct {
	GateName  string
	EnabledFn func(rc *RunContext) bool
	RunFn     func(ctx context.Context, rc *RunContext) (*Result, error)
}

var _ Gate = Func{}

func (f Func) Name() string { return f.GateName }

func (f Func) Enabled(rc *RunContext) bool {
	if f.EnabledFn == nil {
		return true
	}
	return f.EnabledFn(rc)
}

func (f Func) Run(ctx context.Context, rc *RunContext) (*Result, error) {
	if f.RunFn == nil {
		return nil, errNoRunFunc
	}
	return f.RunFn(ctx, rc)
}
