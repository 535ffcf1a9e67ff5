package checks

import (
	"encoding/json"
	"fmt"
)

// CoverageSummary is istanbul's coverage/coverage-summary.json.
type CoverageSummary struct {
	Total struct {
		Lines      CoverageMetric `json:"lines"`
		Statements CoverageMetric `json:"statements"`
		Functions  CoverageMetric `json:"functions"`
		Branches   CoverageMetric `json:"branches"`
	} `json:"total"`
}

// CoverageMetric is one coverage dimension.
type CoverageMetric struct {
	Pct Percent `json:"pct"`
}

// Percent is a coverage percentage. istanbul writes "Unknown" for a
// dimension with nothing to cover; that decodes as not Measured.
type Percent struct {
	Value    float64
	Measured bool
}

// Pct builds a measured Percent.
func Pct(v float64) Percent { return Percent{Value: v, Measured: true} }

func (p *Percent) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = Percent{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "Unknown" {
			return fmt.Errorf("invalid coverage percentage %q", s)
		}
		*p = Percent{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid coverage percentage %s", data)
	}
	*p = Pct(v)
	return nil
}

func (p Percent) MarshalJSON() ([]byte, error) {
	if !p.Measured {
		return []byte(`"Unknown"`), nil
	}
	return json.Marshal(p.Value)
}

func (p Percent) String() string {
	if !p.Measured {
		return "Unknown"
	}
	return fmt.Sprintf("%.2f%%", p.Value)
}

// DecodeCoverageSummary parses a coverage-summary.json document.
func DecodeCoverageSummary(data []byte) (*CoverageSummary, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decoding coverage summary: %w", err)
	}
	if _, ok := probe["total"]; !ok {
		return nil, fmt.Errorf("coverage summary has no total")
	}
	var s CoverageSummary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding coverage summary: %w", err)
	}
	return &s, nil
}
