package pipeline

import "strings"

// rejectionPatterns are matched case-insensitively against stage names.
var rejectionPatterns = []string{"reject", "declined", "not selected"}

// IsRejectionStage reports whether a stage name matches a rejection pattern,
// ignoring case.
func IsRejectionStage(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range rejectionPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// IsHiredStage reports whether a stage name marks a hire.
func IsHiredStage(name string) bool {
	return strings.Contains(strings.ToLower(name), "hired")
}

// IsOfferStage reports whether a stage name marks an extended offer.
func IsOfferStage(name string) bool {
	return strings.Contains(strings.ToLower(name), "offer")
}

// IsTerminalStage reports whether candidates in the stage are done with the
// pipeline, either hired or rejected.
func IsTerminalStage(name string) bool {
	return IsHiredStage(name) || IsRejectionStage(name)
}

// StageKey groups stages with the same name across jobs.
func StageKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
