package calendar

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/meeting-finder/internal/application"
	"github.com/example/meeting-finder/internal/scheduler"
)

// Gateway operations that MemoryGateway can be told to fail.
const (
	OpQueryBusy       = "query_busy"
	OpCreateHold      = "create_hold"
	OpCreateConfirmed = "create_confirmed"
	OpDeleteEvent     = "delete_event"
	OpListHolds       = "list_holds"
)

// MemoryGateway is an in-process calendar used for local runs and tests. All
// events live on a single calendar; busy data is seeded per calendar id.
type MemoryGateway struct {
	mu       sync.Mutex
	busy     map[string][]scheduler.Interval
	events   map[string]application.CalendarEvent
	failures map[string]error
	seq      int
}

var _ application.CalendarGateway = (*MemoryGateway)(nil)

// NewMemoryGateway returns an empty gateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		busy:     make(map[string][]scheduler.Interval),
		events:   make(map[string]application.CalendarEvent),
		failures: make(map[string]error),
	}
}

// SetBusy replaces the busy intervals reported for a calendar.
func (m *MemoryGateway) SetBusy(calendarID string, intervals ...scheduler.Interval) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.busy[calendarID] = append([]scheduler.Interval(nil), intervals...)
}

// AddEvent stores an event as if it had been created elsewhere.
func (m *MemoryGateway) AddEvent(event application.CalendarEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if event.ID == "" {
		event.ID = m.nextIDLocked()
	}
	if caseID, ok := ParseCaseTag(event.Description); ok && event.CaseID == "" {
		event.CaseID = caseID
	}
	m.events[event.ID] = event
}

// Fail makes every later call of operation return err until cleared with a nil err.
func (m *MemoryGateway) Fail(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, operation)
		return
	}
	m.failures[operation] = err
}

// Events returns every stored event ordered by start.
func (m *MemoryGateway) Events() []application.CalendarEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedLocked(func(application.CalendarEvent) bool { return true })
}

// QueryBusy returns seeded intervals overlapping [from, to). Stored events
// count as busy on the primary calendar.
func (m *MemoryGateway) QueryBusy(ctx context.Context, calendarIDs []string, from, to time.Time) ([]scheduler.Interval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[OpQueryBusy]; err != nil {
		return nil, err
	}

	window := scheduler.Interval{Start: from, End: to}
	var busy []scheduler.Interval
	for _, id := range calendarIDs {
		for _, interval := range m.busy[id] {
			if interval.Overlaps(window) {
				busy = append(busy, interval)
			}
		}
		if id != application.PrimaryCalendarID {
			continue
		}
		for _, event := range m.events {
			interval := scheduler.Interval{Start: event.Start, End: event.End}
			if interval.Overlaps(window) {
				busy = append(busy, interval)
			}
		}
	}
	return busy, nil
}

// CreateProvisionalHold stores a tagged hold.
func (m *MemoryGateway) CreateProvisionalHold(ctx context.Context, req application.HoldRequest) (application.CalendarEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[OpCreateHold]; err != nil {
		return application.CalendarEvent{}, err
	}

	event := application.CalendarEvent{
		ID:          m.nextIDLocked(),
		CaseID:      req.CaseID,
		Summary:     HoldSummary,
		Description: HoldDescription(req.CaseID),
		Start:       req.Start,
		End:         req.End,
		Attendees:   append([]string(nil), req.Attendees...),
	}
	m.events[event.ID] = event
	return event, nil
}

// CreateConfirmedEvent stores the final meeting with a fake conference link.
func (m *MemoryGateway) CreateConfirmedEvent(ctx context.Context, req application.ConfirmedEventRequest) (application.CalendarEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[OpCreateConfirmed]; err != nil {
		return application.CalendarEvent{}, err
	}

	event := application.CalendarEvent{
		ID:        m.nextIDLocked(),
		Summary:   req.Title,
		Start:     req.Start,
		End:       req.End,
		Attendees: append([]string(nil), req.Attendees...),
	}
	if req.ConferenceRequestID != "" {
		event.ConferenceURL = "https://meet.example.com/" + req.ConferenceRequestID
	}
	m.events[event.ID] = event
	return event, nil
}

// DeleteEvent removes an event.
func (m *MemoryGateway) DeleteEvent(ctx context.Context, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[OpDeleteEvent]; err != nil {
		return err
	}
	if _, ok := m.events[eventID]; !ok {
		return fmt.Errorf("delete event %s: %w", eventID, ErrEventGone)
	}
	delete(m.events, eventID)
	return nil
}

// ListProvisionalHolds returns tagged holds matching the filter ordered by start.
func (m *MemoryGateway) ListProvisionalHolds(ctx context.Context, filter application.HoldFilter) ([]application.CalendarEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[OpListHolds]; err != nil {
		return nil, err
	}

	return m.sortedLocked(func(event application.CalendarEvent) bool {
		if !matchesHold(event, filter.CaseID) {
			return false
		}
		if filter.From != nil && event.End.Before(*filter.From) {
			return false
		}
		if filter.To != nil && event.Start.After(*filter.To) {
			return false
		}
		return true
	}), nil
}

func (m *MemoryGateway) sortedLocked(keep func(application.CalendarEvent) bool) []application.CalendarEvent {
	out := make([]application.CalendarEvent, 0, len(m.events))
	for _, event := range m.events {
		if keep(event) {
			event.Attendees = append([]string(nil), event.Attendees...)
			out = append(out, event)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

func (m *MemoryGateway) nextIDLocked() string {
	m.seq++
	return fmt.Sprintf("evt-%d", m.seq)
}
