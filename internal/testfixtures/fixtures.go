package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/meeting-finder/internal/application"
	"github.com/example/meeting-finder/internal/persistence"
	"github.com/example/meeting-finder/internal/scheduler"
)

var caseCounter uint64

// 2024-03-13 is a Wednesday, so default searches begin on Thursday the 14th.
var referenceTime = time.Date(2024, time.March, 13, 9, 0, 0, 0, scheduler.DefaultLocation)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// CaseFixture represents a deterministic case record that can be materialised
// for application or persistence tests.
type CaseFixture struct {
	ID                  string
	OwnerID             string
	Name                string
	DurationMinutes     int
	BufferMinutes       int
	MaxSlots            int
	Members             []string
	Status              application.CaseStatus
	ProvisionalEventIDs []string
	ConfirmedEventID    string
	CreatedAt           time.Time
}

// CaseOption configures the generated case fixture.
type CaseOption func(*CaseFixture)

// NewCaseFixture returns a deterministic draft case fixture with optional overrides.
func NewCaseFixture(opts ...CaseOption) CaseFixture {
	idx := atomic.AddUint64(&caseCounter, 1)
	fixture := CaseFixture{
		ID:              fmt.Sprintf("case-%03d", idx),
		OwnerID:         "owner@example.com",
		Name:            fmt.Sprintf("Case %03d", idx),
		DurationMinutes: application.DefaultDurationMinutes,
		BufferMinutes:   application.DefaultBufferMinutes,
		MaxSlots:        application.DefaultMaxSlots,
		Status:          application.CaseStatusDraft,
		CreatedAt:       referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithCaseID overrides the generated case ID.
func WithCaseID(id string) CaseOption {
	return func(f *CaseFixture) {
		f.ID = id
	}
}

// WithCaseOwner overrides the owning principal.
func WithCaseOwner(ownerID string) CaseOption {
	return func(f *CaseFixture) {
		f.OwnerID = ownerID
	}
}

// WithCaseName overrides the generated name.
func WithCaseName(name string) CaseOption {
	return func(f *CaseFixture) {
		f.Name = name
	}
}

// WithCaseDuration sets the meeting length and buffer in minutes.
func WithCaseDuration(durationMinutes, bufferMinutes int) CaseOption {
	return func(f *CaseFixture) {
		f.DurationMinutes = durationMinutes
		f.BufferMinutes = bufferMinutes
	}
}

// WithCaseMaxSlots overrides the number of slots offered.
func WithCaseMaxSlots(maxSlots int) CaseOption {
	return func(f *CaseFixture) {
		f.MaxSlots = maxSlots
	}
}

// WithCaseMembers sets the participant calendars.
func WithCaseMembers(members ...string) CaseOption {
	return func(f *CaseFixture) {
		f.Members = append([]string(nil), members...)
	}
}

// WithCaseProvisional marks the case provisional with the given hold ids.
func WithCaseProvisional(eventIDs ...string) CaseOption {
	return func(f *CaseFixture) {
		f.Status = application.CaseStatusProvisional
		f.ProvisionalEventIDs = append([]string(nil), eventIDs...)
	}
}

// WithCaseConfirmed marks the case confirmed with the given final event id.
func WithCaseConfirmed(eventID string) CaseOption {
	return func(f *CaseFixture) {
		f.Status = application.CaseStatusConfirmed
		f.ProvisionalEventIDs = nil
		f.ConfirmedEventID = eventID
	}
}

// WithCaseCreatedAt sets the created timestamp on the fixture.
func WithCaseCreatedAt(t time.Time) CaseOption {
	return func(f *CaseFixture) {
		f.CreatedAt = t
	}
}

// Application returns the fixture as an application.Case value.
func (f CaseFixture) Application() application.Case {
	return application.Case{
		ID:                  f.ID,
		OwnerID:             f.OwnerID,
		Name:                f.Name,
		DurationMinutes:     f.DurationMinutes,
		BufferMinutes:       f.BufferMinutes,
		MaxSlots:            f.MaxSlots,
		Members:             copyStrings(f.Members),
		Status:              f.Status,
		ProvisionalEventIDs: copyStrings(f.ProvisionalEventIDs),
		ConfirmedEventID:    f.ConfirmedEventID,
		CreatedAt:           f.CreatedAt,
	}
}

// Persistence returns the fixture as a persistence.Case value.
func (f CaseFixture) Persistence() persistence.Case {
	return persistence.Case{
		ID:                  f.ID,
		OwnerID:             f.OwnerID,
		Name:                f.Name,
		DurationMinutes:     f.DurationMinutes,
		BufferMinutes:       f.BufferMinutes,
		MaxSlots:            f.MaxSlots,
		Status:              string(f.Status),
		Members:             copyStrings(f.Members),
		ProvisionalEventIDs: copyStrings(f.ProvisionalEventIDs),
		ConfirmedEventID:    f.ConfirmedEventID,
		CreatedAt:           f.CreatedAt,
	}
}

// Principal returns the owning principal of the fixture.
func (f CaseFixture) Principal() application.Principal {
	return application.Principal{OwnerID: f.OwnerID, Email: f.OwnerID}
}

func copyStrings(values []string) []string {
	if len(values) == 0 {
		return []string{}
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
