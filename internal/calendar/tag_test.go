package calendar

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example/meeting-finder/internal/application"
)

func TestParseCaseTag(t *testing.T) {
	tests := []struct {
		name        string
		description string
		want        string
		ok          bool
	}{
		{name: "hold description", description: HoldDescription("case-1"), want: "case-1", ok: true},
		{name: "tag only", description: "AG_CASE_ID=abc", want: "abc", ok: true},
		{name: "embedded", description: "notes\nAG_CASE_ID=xyz trailing", want: "xyz", ok: true},
		{name: "empty id", description: "AG_CASE_ID=\n", ok: false},
		{name: "untagged", description: "weekly sync", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseCaseTag(tt.description)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchesHoldUsesExactCaseID(t *testing.T) {
	event := application.CalendarEvent{Description: HoldDescription("case-12")}

	assert.True(t, matchesHold(event, ""))
	assert.True(t, matchesHold(event, "case-12"))
	assert.False(t, matchesHold(event, "case-1"))
	assert.False(t, matchesHold(application.CalendarEvent{Summary: HoldSummary}, ""))
}
