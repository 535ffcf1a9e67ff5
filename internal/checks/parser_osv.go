package checks

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// OSVParser parses osv-scanner --format json output.
type OSVParser struct{}

// OSVReport is the subset of osv-scanner's JSON output gates care about.
type OSVReport struct {
	Results []struct {
		Source struct {
			Path string `json:"path"`
		} `json:"source"`
		Packages []struct {
			Package struct {
				Name    string `json:"name"`
				Version string `json:"version"`
			} `json:"package"`
			Vulnerabilities []OSVVulnerability `json:"vulnerabilities"`
		} `json:"packages"`
	} `json:"results"`
}

// OSVVulnerability is one advisory affecting a package.
type OSVVulnerability struct {
	ID       string      `json:"id"`
	Summary  string      `json:"summary"`
	Severity osvSeverity `json:"severity"`
}

// osvSeverity accepts a plain string or the OSV schema's list of
// {type, score} objects, keeping the first score.
type osvSeverity string

func (s *osvSeverity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] == 'n' {
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = osvSeverity(v)
		return nil
	}
	var list []struct {
		Type  string `json:"type"`
		Score string `json:"score"`
	}
	if err := json.Unmarshal(data, &list); err != nil {
		return nil
	}
	if len(list) > 0 {
		*s = osvSeverity(list[0].Score)
	}
	return nil
}

var errNotOSVJSON = errors.New("output is not an osv-scanner JSON report")

// DecodeOSV decodes osv-scanner JSON. A document without a results key is
// rejected.
func DecodeOSV(stdout string) (*OSVReport, error) {
	var raw struct {
		Results json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(stdout)), &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", errNotOSVJSON, err)
	}
	if len(raw.Results) == 0 || string(raw.Results) == "null" {
		return nil, errNotOSVJSON
	}
	var report OSVReport
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		return nil, fmt.Errorf("%w: %w", errNotOSVJSON, err)
	}
	return &report, nil
}

// Vulnerabilities formats every advisory as "pkg@version: ID [severity] - summary".
func (r *OSVReport) Vulnerabilities() []string {
	var out []string
	for _, res := range r.Results {
		for _, pkg := range res.Packages {
			for _, v := range pkg.Vulnerabilities {
				id := v.ID
				if v.Severity != "" {
					id += " [" + string(v.Severity) + "]"
				}
				out = append(out, fmt.Sprintf("%s@%s: %s - %s", pkg.Package.Name, pkg.Package.Version, id, v.Summary))
			}
		}
	}
	return out
}

// VulnerabilityMessage renders the count with the right plural.
func VulnerabilityMessage(n int) string {
	if n == 1 {
		return "1 vulnerability found"
	}
	return fmt.Sprintf("%d vulnerabilities found", n)
}

func (p *OSVParser) Parse(stdout string, stderr string, exitCode int) ParseResult {
	if exitCode == 0 {
		return ParseResult{Passed: true, Summary: "No vulnerabilities found"}
	}
	report, err := DecodeOSV(stdout)
	if err != nil {
		return ParseResult{
			Passed:   false,
			Summary:  fmt.Sprintf("exit code %d (could not parse osv-scanner JSON)", exitCode),
			Findings: []string{},
		}
	}
	vulns := report.Vulnerabilities()
	return ParseResult{
		Passed:   false,
		Summary:  VulnerabilityMessage(len(vulns)),
		Errors:   vulns,
		Findings: vulns,
	}
}
