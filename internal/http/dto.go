package http

import (
	"fmt"
	"time"

	"github.com/example/meeting-finder/internal/application"
)

type caseRequest struct {
	Name     string   `json:"name"`
	Duration *int     `json:"duration"`
	Buffer   *int     `json:"buffer"`
	MaxSlots *int     `json:"max_slots"`
	Members  []string `json:"members"`
}

func (r caseRequest) toInput() application.CaseInput {
	return application.CaseInput{
		Name:            r.Name,
		DurationMinutes: r.Duration,
		BufferMinutes:   r.Buffer,
		MaxSlots:        r.MaxSlots,
		Members:         r.Members,
	}
}

type caseDTO struct {
	ID                  string    `json:"id"`
	OwnerID             string    `json:"owner_id"`
	Name                string    `json:"name"`
	Duration            int       `json:"duration"`
	Buffer              int       `json:"buffer"`
	MaxSlots            int       `json:"max_slots"`
	Members             []string  `json:"members"`
	Status              string    `json:"status"`
	ProvisionalEventIDs []string  `json:"provisional_event_ids"`
	ConfirmedEventID    string    `json:"confirmed_event_id,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

func toCaseDTO(c application.Case) caseDTO {
	return caseDTO{
		ID:                  c.ID,
		OwnerID:             c.OwnerID,
		Name:                c.Name,
		Duration:            c.DurationMinutes,
		Buffer:              c.BufferMinutes,
		MaxSlots:            c.MaxSlots,
		Members:             nonNilStrings(c.Members),
		Status:              string(c.Status),
		ProvisionalEventIDs: nonNilStrings(c.ProvisionalEventIDs),
		ConfirmedEventID:    c.ConfirmedEventID,
		CreatedAt:           c.CreatedAt,
	}
}

type caseResponse struct {
	Case caseDTO `json:"case"`
}

type caseListResponse struct {
	Cases []caseDTO `json:"cases"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type slotDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func toSlotDTO(start, end time.Time) slotDTO {
	return slotDTO{Start: start.Format(time.RFC3339), End: end.Format(time.RFC3339)}
}

func (s slotDTO) toTimeRange() (application.TimeRange, error) {
	start, err := parseTimestamp(s.Start)
	if err != nil {
		return application.TimeRange{}, fmt.Errorf("start: %w", err)
	}
	end, err := parseTimestamp(s.End)
	if err != nil {
		return application.TimeRange{}, fmt.Errorf("end: %w", err)
	}
	return application.TimeRange{Start: start, End: end}, nil
}

type holdDTO struct {
	ID string `json:"id"`
	slotDTO
}

type promoteRequest struct {
	Slots []slotDTO `json:"slots"`
}

func (r promoteRequest) toTimeRanges() ([]application.TimeRange, error) {
	ranges := make([]application.TimeRange, 0, len(r.Slots))
	for i, slot := range r.Slots {
		tr, err := slot.toTimeRange()
		if err != nil {
			return nil, fmt.Errorf("slots[%d]: %w", i, err)
		}
		ranges = append(ranges, tr)
	}
	return ranges, nil
}

type promoteResponse struct {
	EventReferences []string `json:"event_references"`
	Case            caseDTO  `json:"case"`
}

type eventDTO struct {
	ID            string   `json:"id"`
	Summary       string   `json:"summary"`
	Start         string   `json:"start"`
	End           string   `json:"end"`
	Attendees     []string `json:"attendees"`
	ConferenceURL string   `json:"conference_url,omitempty"`
	HTMLLink      string   `json:"html_link,omitempty"`
}

func toEventDTO(event application.CalendarEvent) eventDTO {
	return eventDTO{
		ID:            event.ID,
		Summary:       event.Summary,
		Start:         event.Start.Format(time.RFC3339),
		End:           event.End.Format(time.RFC3339),
		Attendees:     nonNilStrings(event.Attendees),
		ConferenceURL: event.ConferenceURL,
		HTMLLink:      event.HTMLLink,
	}
}

type confirmResponse struct {
	ConfirmedEvent eventDTO `json:"confirmed_event"`
	Case           caseDTO  `json:"case"`
}

type reconcileResponse struct {
	DeletedCount int      `json:"deleted_count"`
	TrimmedCases []string `json:"trimmed_cases"`
	DeletedCases []string `json:"deleted_cases"`
}

// parseTimestamp accepts RFC3339 values. An empty value yields the zero time so
// the service can report the missing bound as a validation error.
func parseTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
