package xunit

import (
	"strings"

	"rppreproc/internal/rp"
)

// Report Portal rejects item names longer than this many characters.
const maxItemName = 255

// SuiteStatus is FAILED when any failure or error is counted, PASSED otherwise.
func SuiteStatus(failures, errs int) rp.Status {
	if failures > 0 || errs > 0 {
		return rp.StatusFailed
	}
	return rp.StatusPassed
}

// Outcome is the derived result of one test case.
type Outcome struct {
	Status  rp.Status
	Issue   *rp.Issue
	Level   rp.LogLevel
	Message string
	// Attach is set when attachments should be uploaded for the case.
	Attach bool
}

// CaseOutcome derives the outcome of c. Skipped wins over failure and error,
// which win over passed. Failure and error messages are joined by newlines
// in document order.
func CaseOutcome(c Case) Outcome {
	switch {
	case c.Skipped != nil:
		return Outcome{
			Status:  rp.StatusSkipped,
			Issue:   &rp.Issue{IssueType: rp.IssueNotIssue},
			Level:   rp.LogDebug,
			Message: c.Skipped.Text(),
		}
	case len(c.Problems) > 0:
		msgs := make([]string, 0, len(c.Problems))
		for _, p := range c.Problems {
			msgs = append(msgs, p.Text())
		}
		return Outcome{
			Status:  rp.StatusFailed,
			Level:   rp.LogError,
			Message: strings.Join(msgs, "\n"),
			Attach:  true,
		}
	}
	return Outcome{Status: rp.StatusPassed}
}

// truncateName cuts name to maxItemName runes.
func truncateName(name string) string {
	r := []rune(name)
	if len(r) <= maxItemName {
		return name
	}
	return string(r[:maxItemName])
}
