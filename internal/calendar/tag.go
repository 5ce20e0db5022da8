// Package calendar adapts calendar providers to application.CalendarGateway.
// Provisional holds are recognised by a visible marker in the summary and a
// machine readable case tag in the description.
package calendar

import (
	"strings"

	"github.com/example/meeting-finder/internal/application"
)

const (
	// HoldMarker prefixes the summary of every provisional hold.
	HoldMarker = "【仮】"
	// HoldSummary is the full summary written on provisional holds.
	HoldSummary = HoldMarker + "打合せ候補"
	// HoldColorID is the provider colour used for provisional holds.
	HoldColorID = "5"

	caseTagPrefix = "AG_CASE_ID="
	generatorLine = "(meeting-finder generated)"
)

// CaseTag returns the description tag binding an event to a case.
func CaseTag(caseID string) string {
	return caseTagPrefix + caseID
}

// HoldDescription returns the description written on a provisional hold.
func HoldDescription(caseID string) string {
	return CaseTag(caseID) + "\n" + generatorLine
}

// ParseCaseTag extracts the case id from an event description.
func ParseCaseTag(description string) (string, bool) {
	idx := strings.Index(description, caseTagPrefix)
	if idx < 0 {
		return "", false
	}
	rest := description[idx+len(caseTagPrefix):]
	if end := strings.IndexAny(rest, " \t\r\n"); end >= 0 {
		rest = rest[:end]
	}
	if rest == "" {
		return "", false
	}
	return rest, true
}

// matchesHold reports whether the event is a provisional hold for caseID. An
// empty caseID matches any tagged hold.
func matchesHold(event application.CalendarEvent, caseID string) bool {
	tagged, ok := ParseCaseTag(event.Description)
	if !ok {
		return false
	}
	return caseID == "" || tagged == caseID
}
