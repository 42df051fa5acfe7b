package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gitlab.com/tozd/go/errors"
)

// Report aggregates the outcome ledger of one run.
type Report struct {
	Stamp   string
	Start   time.Time
	End     time.Time
	Results []ItemResult
}

// Duration is the wall-clock length of the run.
func (r *Report) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Succeeded returns the paths of candidates that transferred (and, when
// enabled, verified) successfully.
func (r *Report) Succeeded() []string {
	var out []string
	for _, res := range r.Results {
		if res.Succeeded() {
			out = append(out, res.Candidate.RelPath)
		}
	}
	return out
}

// Failed returns the paths of candidates that failed copy or verification.
func (r *Report) Failed() []string {
	var out []string
	for _, res := range r.Results {
		if !res.Succeeded() {
			out = append(out, res.Candidate.RelPath)
		}
	}
	return out
}

// DeletionFailures returns the paths of successful candidates whose source
// removal failed. These stay successes; they just need manual cleanup.
func (r *Report) DeletionFailures() []string {
	var out []string
	for _, res := range r.Results {
		if res.Succeeded() && res.DeletionErr != nil {
			out = append(out, res.Candidate.RelPath)
		}
	}
	return out
}

// Write renders the human-readable run report.
func (r *Report) Write(w io.Writer) error {
	failed := r.Failed()

	lines := []string{
		"Backup Task Report",
		strings.Repeat("=", 50),
		fmt.Sprintf("Start Time: %s", r.Start.Format(time.RFC3339)),
		fmt.Sprintf("End Time: %s", r.End.Format(time.RFC3339)),
		fmt.Sprintf("Total Duration: %s", r.Duration()),
		fmt.Sprintf("Successful: %d", len(r.Succeeded())),
		fmt.Sprintf("Failed: %d", len(failed)),
		"",
		"Failed Files:",
	}
	for _, path := range failed {
		lines = append(lines, fmt.Sprintf("- %s", path))
	}
	if deletions := r.DeletionFailures(); len(deletions) > 0 {
		lines = append(lines, "", "Source Deletion Failures (transfer still succeeded):")
		for _, path := range deletions {
			lines = append(lines, fmt.Sprintf("- %s", path))
		}
	}

	if _, err := io.WriteString(w, strings.Join(lines, "\n")+"\n"); err != nil {
		return errors.Errorf("writing report: %w", err)
	}
	return nil
}

// WriteFile writes the report to <logDir>/<stamp>_report.txt and returns the
// path.
func (r *Report) WriteFile(logDir string) (string, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", errors.Errorf("creating log directory: %w", err)
	}

	path := filepath.Join(logDir, r.Stamp+"_report.txt")
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Errorf("creating report file: %w", err)
	}
	defer f.Close()

	if err := r.Write(f); err != nil {
		return "", err
	}
	return path, nil
}
