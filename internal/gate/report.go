package gate

import (
	"encoding/json"
	"time"
)

// TimestampFormat is the ISO-8601 layout used for Report.Timestamp.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// Summary aggregates the results of one run.
type Summary struct {
	Total         int           `json:"total"`
	Passed        int           `json:"passed"`
	Failed        int           `json:"failed"`
	Skipped       int           `json:"skipped"`
	Errors        int           `json:"errors"`
	TotalDuration time.Duration `json:"-"`
}

// MarshalJSON encodes TotalDuration as whole milliseconds.
func (s Summary) MarshalJSON() ([]byte, error) {
	type alias Summary
	return json.Marshal(struct {
		alias
		TotalDuration int64 `json:"totalDuration"`
	}{alias(s), s.TotalDuration.Milliseconds()})
}

// Report is the single aggregate output of an orchestrator run.
type Report struct {
	Results   []Result  `json:"results"`
	Summary   Summary   `json:"summary"`
	Timestamp time.Time `json:"-"`
	Success   bool      `json:"success"`
}

// MarshalJSON renders Timestamp in UTC with millisecond precision.
func (r Report) MarshalJSON() ([]byte, error) {
	type alias Report
	results := r.Results
	if results == nil {
		results = []Result{}
	}
	a := alias(r)
	a.Results = results
	return json.Marshal(struct {
		alias
		Timestamp string `json:"timestamp"`
	}{a, r.Timestamp.UTC().Format(TimestampFormat)})
}

// Summarize counts results by status. TotalDuration is supplied by the
// caller because it is a wall-clock span, not a sum of gate durations.
func Summarize(results []Result, total time.Duration) Summary {
	s := Summary{Total: len(results), TotalDuration: total}
	for _, r := range results {
		switch r.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		case StatusSkipped:
			s.Skipped++
		case StatusError:
			s.Errors++
		}
	}
	return s
}

// Succeeded is the verdict rule: no failures and no errors.
func (s Summary) Succeeded() bool {
	return s.Failed == 0 && s.Errors == 0
}

// NewReport assembles a report from finished results.
func NewReport(results []Result, total time.Duration, at time.Time) *Report {
	if results == nil {
		results = []Result{}
	}
	summary := Summarize(results, total)
	return &Report{
		Results:   results,
		Summary:   summary,
		Timestamp: at,
		Success:   summary.Succeeded(),
	}
}
