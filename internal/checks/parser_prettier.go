package checks

import (
	"fmt"
	"strings"
)

// PrettierParser parses prettier --check output.
type PrettierParser struct{}

type prettierResult struct {
	FilesNeedingFormat []string `json:"files_needing_format"`
	Count              int      `json:"count"`
}

// UnformattedFiles extracts the file names prettier --check flagged.
func UnformattedFiles(stdout string) []string {
	// prettier --check outputs lines like:
	// Checking formatting...
	// [warn] src/auth.ts
	// [warn] src/index.ts
	// [warn] Code style issues found in the above file(s). Forgot to run Prettier?

	var files []string
	for _, line := range strings.Split(stdout, "\n") {
		if !strings.Contains(line, "[warn]") {
			continue
		}
		file := strings.TrimSpace(strings.Replace(line, "[warn]", "", 1))
		if file == "" || strings.Contains(file, "Code style issues") || strings.Contains(file, "Forgot to run") {
			continue
		}
		files = append(files, file)
	}
	return files
}

func (p *PrettierParser) Parse(stdout string, stderr string, exitCode int) ParseResult {
	files := UnformattedFiles(stdout)

	passed := exitCode == 0
	summary := fmt.Sprintf("%d file(s) not formatted", len(files))
	if passed {
		summary = "All files are formatted correctly"
	}

	return ParseResult{
		Passed:  passed,
		Summary: summary,
		Errors:  files,
		Findings: prettierResult{
			FilesNeedingFormat: files,
			Count:              len(files),
		},
	}
}
