package application

import "time"

// Principal represents the authenticated owner invoking a service method.
type Principal struct {
	OwnerID string
	Email   string
}

// CaseStatus is the lifecycle state of a case.
type CaseStatus string

const (
	CaseStatusDraft       CaseStatus = "draft"
	CaseStatusProvisional CaseStatus = "provisional"
	CaseStatusConfirmed   CaseStatus = "confirmed"
)

// Defaults applied by CreateCase when the caller leaves a field unset.
const (
	DefaultCaseName        = "無題の案件"
	DefaultDurationMinutes = 60
	DefaultBufferMinutes   = 0
	DefaultMaxSlots        = 3
)

// Case is a single scheduling request tracked from draft to confirmation.
type Case struct {
	ID                  string
	OwnerID             string
	Name                string
	DurationMinutes     int
	BufferMinutes       int
	MaxSlots            int
	Members             []string
	Status              CaseStatus
	ProvisionalEventIDs []string
	ConfirmedEventID    string
	CreatedAt           time.Time
}

// CaseInput captures caller provided case fields. Nil numbers take defaults.
type CaseInput struct {
	Name            string
	DurationMinutes *int
	BufferMinutes   *int
	MaxSlots        *int
	Members         []string
}

// CreateCaseParams wraps the data required to create a case.
type CreateCaseParams struct {
	Principal Principal
	Input     CaseInput
}

// TimeRange is a caller supplied interval.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// PromoteParams wraps the slots chosen for provisional holds.
type PromoteParams struct {
	Principal Principal
	CaseID    string
	Slots     []TimeRange
}

// ConfirmParams wraps the final meeting interval.
type ConfirmParams struct {
	Principal Principal
	CaseID    string
	Interval  TimeRange
}

// FindSlotsParams requests candidate slots for a case.
type FindSlotsParams struct {
	Principal    Principal
	CaseID       string
	DaysToSearch int
}

// ReconcileParams bounds a reconciliation sweep. Nil bounds are open.
type ReconcileParams struct {
	Principal Principal
	From      *time.Time
	To        *time.Time
}

// ReconcileResult reports the outcome of a reconciliation sweep.
type ReconcileResult struct {
	DeletedCount int
	TrimmedCases []string
	DeletedCases []string
}

// CalendarEvent is an event as reported by the calendar provider. CaseID is
// the case named by the hold tag and is empty for untagged events.
type CalendarEvent struct {
	ID            string
	CaseID        string
	Summary       string
	Description   string
	Start         time.Time
	End           time.Time
	Attendees     []string
	ConferenceURL string
	HTMLLink      string
}

// HoldRequest describes a provisional hold to create. Attendees are invited
// as optional guests.
type HoldRequest struct {
	CaseID    string
	Start     time.Time
	End       time.Time
	Attendees []string
}

// ConfirmedEventRequest describes the final meeting event to create.
type ConfirmedEventRequest struct {
	CaseID              string
	Title               string
	Start               time.Time
	End                 time.Time
	Attendees           []string
	ConferenceRequestID string
}

// HoldFilter narrows a provisional hold listing. Empty fields do not filter.
type HoldFilter struct {
	CaseID string
	From   *time.Time
	To     *time.Time
}

func cloneCase(c Case) Case {
	c.Members = cloneStrings(c.Members)
	c.ProvisionalEventIDs = cloneStrings(c.ProvisionalEventIDs)
	return c
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
