package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/example/meeting-finder/internal/scheduler"
)

var testLoc = time.FixedZone("JST", 9*60*60)

// 2024-03-13 is a Wednesday; searches start on Thursday 2024-03-14.
var testNow = time.Date(2024, 3, 13, 9, 0, 0, 0, testLoc)

func jst(day, hour, minute int) time.Time {
	return time.Date(2024, 3, day, hour, minute, 0, 0, testLoc)
}

type caseStoreStub struct {
	cases     map[string]Case
	getErr    error
	putErr    error
	deleteErr error
	listErr   error
	puts      int
	deletes   []string
}

func newCaseStoreStub(cases ...Case) *caseStoreStub {
	s := &caseStoreStub{cases: make(map[string]Case)}
	for _, c := range cases {
		s.cases[c.ID] = cloneCase(c)
	}
	return s
}

func (s *caseStoreStub) ListCases(ctx context.Context) ([]Case, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	ids := make([]string, 0, len(s.cases))
	for id := range s.cases {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]Case, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneCase(s.cases[id]))
	}
	return out, nil
}

func (s *caseStoreStub) GetCase(ctx context.Context, id string) (Case, error) {
	if s.getErr != nil {
		return Case{}, s.getErr
	}
	c, ok := s.cases[id]
	if !ok {
		return Case{}, ErrNotFound
	}
	return cloneCase(c), nil
}

func (s *caseStoreStub) PutCase(ctx context.Context, c Case) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.puts++
	s.cases[c.ID] = cloneCase(c)
	return nil
}

func (s *caseStoreStub) DeleteCase(ctx context.Context, id string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deletes = append(s.deletes, id)
	delete(s.cases, id)
	return nil
}

type stubEvent struct {
	event       CalendarEvent
	caseID      string
	provisional bool
}

type calendarStub struct {
	events map[string]stubEvent
	nextID int

	busy          []scheduler.Interval
	busyErr       error
	busyCalls     int
	lastCalendars []string
	lastFrom      time.Time
	lastTo        time.Time

	failCreateAt   int
	createCalls    int
	confirmErr     error
	confirmCalls   int
	lastConfirmReq ConfirmedEventRequest
	listErr        error
	deleteErrs     map[string]error
	deleteCalls    []string
}

func newCalendarStub() *calendarStub {
	return &calendarStub{events: make(map[string]stubEvent), deleteErrs: make(map[string]error)}
}

func (c *calendarStub) addHold(id, caseID string, start time.Time) {
	c.events[id] = stubEvent{
		event:       CalendarEvent{ID: id, CaseID: caseID, Start: start, End: start.Add(time.Hour)},
		caseID:      caseID,
		provisional: true,
	}
}

func (c *calendarStub) QueryBusy(ctx context.Context, calendarIDs []string, from, to time.Time) ([]scheduler.Interval, error) {
	c.busyCalls++
	c.lastCalendars = append([]string(nil), calendarIDs...)
	c.lastFrom, c.lastTo = from, to
	if c.busyErr != nil {
		return nil, c.busyErr
	}
	return append([]scheduler.Interval(nil), c.busy...), nil
}

func (c *calendarStub) CreateProvisionalHold(ctx context.Context, req HoldRequest) (CalendarEvent, error) {
	c.createCalls++
	if c.failCreateAt > 0 && c.createCalls == c.failCreateAt {
		return CalendarEvent{}, errors.New("calendar unavailable")
	}
	c.nextID++
	id := fmt.Sprintf("hold-%d", c.nextID)
	event := CalendarEvent{ID: id, CaseID: req.CaseID, Start: req.Start, End: req.End}
	c.events[id] = stubEvent{event: event, caseID: req.CaseID, provisional: true}
	return event, nil
}

func (c *calendarStub) CreateConfirmedEvent(ctx context.Context, req ConfirmedEventRequest) (CalendarEvent, error) {
	c.confirmCalls++
	c.lastConfirmReq = req
	if c.confirmErr != nil {
		return CalendarEvent{}, c.confirmErr
	}
	c.nextID++
	id := fmt.Sprintf("event-%d", c.nextID)
	event := CalendarEvent{ID: id, Summary: req.Title, Start: req.Start, End: req.End, Attendees: req.Attendees}
	c.events[id] = stubEvent{event: event, caseID: req.CaseID}
	return event, nil
}

func (c *calendarStub) DeleteEvent(ctx context.Context, eventID string) error {
	c.deleteCalls = append(c.deleteCalls, eventID)
	if err := c.deleteErrs[eventID]; err != nil {
		return err
	}
	if _, ok := c.events[eventID]; !ok {
		return errors.New("event not found")
	}
	delete(c.events, eventID)
	return nil
}

func (c *calendarStub) ListProvisionalHolds(ctx context.Context, filter HoldFilter) ([]CalendarEvent, error) {
	if c.listErr != nil {
		return nil, c.listErr
	}
	var out []CalendarEvent
	for _, e := range c.events {
		if !e.provisional {
			continue
		}
		if filter.CaseID != "" && e.caseID != filter.CaseID {
			continue
		}
		if filter.From != nil && !e.event.End.After(*filter.From) {
			continue
		}
		if filter.To != nil && e.event.Start.After(*filter.To) {
			continue
		}
		out = append(out, e.event)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *calendarStub) has(id string) bool {
	_, ok := c.events[id]
	return ok
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func fixedNow() time.Time { return testNow }

func newTestCaseService(store CaseStore, cal CalendarGateway) *CaseService {
	cfg := DefaultCaseServiceConfig()
	cfg.Location = testLoc
	return NewCaseServiceWithConfig(store, cal, cfg, sequentialIDs("case"), fixedNow, nil)
}

func intPtr(v int) *int { return &v }

var alice = Principal{OwnerID: "alice@example.com", Email: "alice@example.com"}
var mallory = Principal{OwnerID: "mallory@example.com", Email: "mallory@example.com"}

func provisionalCase(id string, holds ...string) Case {
	return Case{
		ID:                  id,
		OwnerID:             alice.OwnerID,
		Name:                "Kickoff",
		DurationMinutes:     60,
		MaxSlots:            3,
		Members:             []string{"bob@example.com"},
		Status:              CaseStatusProvisional,
		ProvisionalEventIDs: holds,
		CreatedAt:           testNow,
	}
}
