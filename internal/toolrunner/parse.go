package toolrunner

import (
	"regexp"
	"strings"
)

var testSummaryRe = regexp.MustCompile(`(?m)^(ok|FAIL)\s+(\S+)\s+([\d.]+s|\(cached\))`)

// ParseTestOutput pulls a one-line summary and the failed test names out of
// `go test` output.
func ParseTestOutput(output string) (summary string, failed []string) {
	passed, failedPkgs := 0, 0
	for _, m := range testSummaryRe.FindAllStringSubmatch(output, -1) {
		if m[1] == "ok" {
			passed++
		} else {
			failedPkgs++
		}
	}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "--- FAIL: ") {
			name := strings.TrimPrefix(line, "--- FAIL: ")
			if idx := strings.IndexByte(name, ' '); idx > 0 {
				name = name[:idx]
			}
			failed = append(failed, name)
		}
	}
	switch {
	case passed == 0 && failedPkgs == 0:
		summary = "No test packages found."
	case failedPkgs == 0:
		summary = "All packages passed."
	default:
		summary = "Some packages failed."
	}
	return summary, failed
}

// ParseGitPorcelain returns the file paths from `git status --porcelain`.
func ParseGitPorcelain(output string) []string {
	var files []string
	for _, line := range strings.Split(output, "\n") {
		if len(line) < 4 {
			continue
		}
		// Two status columns, a space, then the path. Renames list both
		// sides; the new path is what matters.
		path := strings.TrimSpace(line[3:])
		if idx := strings.Index(path, " -> "); idx >= 0 {
			path = path[idx+4:]
		}
		if path != "" {
			files = append(files, path)
		}
	}
	return files
}
