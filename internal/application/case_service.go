package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/meeting-finder/internal/persistence"
	"github.com/example/meeting-finder/internal/scheduler"
)

// PrimaryCalendarID addresses the owner's own calendar in free/busy queries.
const PrimaryCalendarID = "primary"

// CaseServiceConfig carries the organisational scheduling rules.
type CaseServiceConfig struct {
	Location          *time.Location
	WorkingHourStart  int
	WorkingHourEnd    int
	LunchStart        int
	LunchEnd          int
	PerDayCap         int
	DefaultSearchDays int
	MaxSearchDays     int
	BufferPolicy      scheduler.BufferPolicy
	BusyCacheTTL      time.Duration
}

// DefaultCaseServiceConfig returns the standard office rules: 10:00-19:00 with
// a 12:00-13:00 lunch in JST, two slots per day and a five day search.
func DefaultCaseServiceConfig() CaseServiceConfig {
	return CaseServiceConfig{
		Location:          scheduler.DefaultLocation,
		WorkingHourStart:  scheduler.DefaultWorkingHourStart,
		WorkingHourEnd:    scheduler.DefaultWorkingHourEnd,
		LunchStart:        scheduler.DefaultLunchStart,
		LunchEnd:          scheduler.DefaultLunchEnd,
		PerDayCap:         scheduler.DefaultPerDayCap,
		DefaultSearchDays: 5,
		MaxSearchDays:     30,
	}
}

// CaseService owns the case lifecycle: creation, provisional holds,
// confirmation and deletion.
type CaseService struct {
	cases       CaseStore
	calendar    CalendarGateway
	cfg         CaseServiceConfig
	busy        *busyCache
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
	metrics     *metrics
}

// NewCaseService constructs a case service with the default configuration.
func NewCaseService(cases CaseStore, calendar CalendarGateway, idGenerator func() string, now func() time.Time) *CaseService {
	return NewCaseServiceWithConfig(cases, calendar, DefaultCaseServiceConfig(), idGenerator, now, nil)
}

// NewCaseServiceWithLogger constructs a case service with a specified logger.
func NewCaseServiceWithLogger(cases CaseStore, calendar CalendarGateway, idGenerator func() string, now func() time.Time, logger *slog.Logger) *CaseService {
	return NewCaseServiceWithConfig(cases, calendar, DefaultCaseServiceConfig(), idGenerator, now, logger)
}

// NewCaseServiceWithConfig constructs a case service with explicit scheduling rules.
func NewCaseServiceWithConfig(cases CaseStore, calendar CalendarGateway, cfg CaseServiceConfig, idGenerator func() string, now func() time.Time, logger *slog.Logger) *CaseService {
	if idGenerator == nil {
		idGenerator = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = scheduler.DefaultLocation
	}
	if cfg.DefaultSearchDays <= 0 {
		cfg.DefaultSearchDays = 5
	}
	if cfg.MaxSearchDays < cfg.DefaultSearchDays {
		cfg.MaxSearchDays = cfg.DefaultSearchDays
	}
	return &CaseService{
		cases:       cases,
		calendar:    calendar,
		cfg:         cfg,
		busy:        newBusyCache(cfg.BusyCacheTTL, 256, now),
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
		metrics:     getMetrics(),
	}
}

// Reconciler returns a reconciler sharing the service's collaborators and cache.
func (s *CaseService) Reconciler() *Reconciler {
	r := NewReconcilerWithLogger(s.cases, s.calendar, s.logger)
	r.busy = s.busy
	return r
}

func (s *CaseService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CaseService", operation, attrs...)
}

// CreateCase validates input and persists a new draft case for the caller.
func (s *CaseService) CreateCase(ctx context.Context, params CreateCaseParams) (c Case, err error) {
	if s == nil {
		err = fmt.Errorf("CaseService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateCase", "principal_id", params.Principal.OwnerID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create case", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("case_id", c.ID).InfoContext(ctx, "case created")
	}()

	if params.Principal.OwnerID == "" {
		err = ErrAccessDenied
		return
	}
	if s.cases == nil {
		err = fmt.Errorf("case store not configured")
		return
	}

	c, vErr := s.buildCase(params)
	if vErr.HasErrors() {
		c = Case{}
		err = vErr
		return
	}

	if err = s.cases.PutCase(ctx, c); err != nil {
		err = mapCaseStoreError(err)
		return
	}
	s.metrics.caseTransitions.WithLabelValues("created").Inc()
	return
}

func (s *CaseService) buildCase(params CreateCaseParams) (Case, *ValidationError) {
	input := params.Input
	vErr := &ValidationError{}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = DefaultCaseName
	}
	if len([]rune(name)) > 200 {
		vErr.add("name", "name must be 200 characters or fewer")
	}

	duration := intOrDefault(input.DurationMinutes, DefaultDurationMinutes)
	buffer := intOrDefault(input.BufferMinutes, DefaultBufferMinutes)
	maxSlots := intOrDefault(input.MaxSlots, DefaultMaxSlots)

	workingMinutes := (s.cfg.WorkingHourEnd - s.cfg.WorkingHourStart) * 60
	switch {
	case duration <= 0:
		vErr.add("duration", "duration must be positive")
	case workingMinutes > 0 && duration > workingMinutes:
		vErr.add("duration", "duration must fit within working hours")
	}
	if buffer < 0 {
		vErr.add("buffer", "buffer must not be negative")
	}
	if maxSlots <= 0 {
		vErr.add("max_slots", "max slots must be positive")
	}

	members := normalizeMembers(input.Members)
	for _, member := range members {
		if strings.ContainsAny(member, " \t,") {
			vErr.add("members", "members must be calendar identifiers")
			break
		}
	}

	return Case{
		ID:              s.idGenerator(),
		OwnerID:         params.Principal.OwnerID,
		Name:            name,
		DurationMinutes: duration,
		BufferMinutes:   buffer,
		MaxSlots:        maxSlots,
		Members:         members,
		Status:          CaseStatusDraft,
		CreatedAt:       s.now(),
	}, vErr
}

// ListCases returns the caller's cases, newest first.
func (s *CaseService) ListCases(ctx context.Context, principal Principal) (cases []Case, err error) {
	if s == nil {
		return nil, fmt.Errorf("CaseService is nil")
	}
	if principal.OwnerID == "" {
		return nil, ErrAccessDenied
	}
	if s.cases == nil {
		return nil, nil
	}

	all, err := s.cases.ListCases(ctx)
	if err != nil {
		err = mapCaseStoreError(err)
		s.loggerWith(ctx, "ListCases", "principal_id", principal.OwnerID).
			ErrorContext(ctx, "failed to list cases", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}

	for _, c := range all {
		if c.OwnerID == principal.OwnerID {
			cases = append(cases, cloneCase(c))
		}
	}
	sort.SliceStable(cases, func(i, j int) bool {
		if !cases[i].CreatedAt.Equal(cases[j].CreatedAt) {
			return cases[i].CreatedAt.After(cases[j].CreatedAt)
		}
		return cases[i].ID < cases[j].ID
	})
	return cases, nil
}

// GetCase returns a single case owned by the caller.
func (s *CaseService) GetCase(ctx context.Context, principal Principal, caseID string) (Case, error) {
	if s == nil {
		return Case{}, fmt.Errorf("CaseService is nil")
	}
	return s.loadOwnedCase(ctx, principal, caseID)
}

// FindSlots queries busy time for the owner and the members, runs the free
// slot search and trims the candidates with the per-day selection policy.
func (s *CaseService) FindSlots(ctx context.Context, params FindSlotsParams) (slots []scheduler.Slot, err error) {
	if s == nil {
		err = fmt.Errorf("CaseService is nil")
		return
	}

	logger := s.loggerWith(ctx, "FindSlots",
		"principal_id", params.Principal.OwnerID,
		"case_id", params.CaseID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to find slots", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "slots found", "count", len(slots))
	}()

	days := params.DaysToSearch
	if days == 0 {
		days = s.cfg.DefaultSearchDays
	}
	if days < 0 || days > s.cfg.MaxSearchDays {
		err = newValidationError("days", fmt.Sprintf("days must be between 1 and %d", s.cfg.MaxSearchDays))
		return
	}

	var c Case
	c, err = s.loadOwnedCase(ctx, params.Principal, params.CaseID)
	if err != nil {
		return
	}
	if s.calendar == nil {
		err = fmt.Errorf("calendar gateway not configured")
		return
	}

	finder := s.finderConfig(c, days)
	window, ok := scheduler.SearchWindow(finder)
	if !ok {
		return nil, nil
	}

	calendarIDs := append([]string{PrimaryCalendarID}, c.Members...)
	var busy []scheduler.Interval
	busy, err = s.queryBusy(ctx, params.Principal.OwnerID, calendarIDs, window)
	if err != nil {
		return
	}

	candidates := scheduler.FindFreeSlots(busy, finder)
	selected := scheduler.SelectSlots(candidates, c.MaxSlots, s.cfg.PerDayCap, s.cfg.Location)
	slots = make([]scheduler.Slot, 0, len(selected))
	for _, slot := range selected {
		slots = append(slots, slot.In(s.cfg.Location))
	}
	return
}

func (s *CaseService) finderConfig(c Case, days int) scheduler.FinderConfig {
	return scheduler.FinderConfig{
		DurationMinutes:  c.DurationMinutes,
		BufferMinutes:    c.BufferMinutes,
		WorkingHourStart: s.cfg.WorkingHourStart,
		WorkingHourEnd:   s.cfg.WorkingHourEnd,
		LunchStart:       s.cfg.LunchStart,
		LunchEnd:         s.cfg.LunchEnd,
		SearchStartDate:  s.now(),
		DaysToSearch:     days,
		Location:         s.cfg.Location,
		BufferPolicy:     s.cfg.BufferPolicy,
	}
}

func (s *CaseService) queryBusy(ctx context.Context, ownerID string, calendarIDs []string, window scheduler.Interval) ([]scheduler.Interval, error) {
	key := buildBusyCacheKey(ownerID, calendarIDs, window.Start, window.End)
	if cached, ok := s.busy.Get(key); ok {
		s.metrics.busyCache.WithLabelValues("hit").Inc()
		return cached, nil
	}
	if s.busy != nil {
		s.metrics.busyCache.WithLabelValues("miss").Inc()
	}

	busy, err := s.calendar.QueryBusy(ctx, calendarIDs, window.Start, window.End)
	s.metrics.observeCall("query_busy", err)
	if err != nil {
		return nil, externalError("query free/busy", err)
	}
	s.busy.Store(key, busy)
	return busy, nil
}

// PromoteToProvisional creates one tagged hold per chosen slot and moves the
// case to provisional. Creation stops at the first failure; holds created
// before it are left in place and the case is not modified.
func (s *CaseService) PromoteToProvisional(ctx context.Context, params PromoteParams) (c Case, eventIDs []string, err error) {
	if s == nil {
		err = fmt.Errorf("CaseService is nil")
		return
	}

	logger := s.loggerWith(ctx, "PromoteToProvisional",
		"principal_id", params.Principal.OwnerID,
		"case_id", params.CaseID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create provisional holds", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "case promoted to provisional", "hold_count", len(eventIDs))
	}()

	c, err = s.loadOwnedCase(ctx, params.Principal, params.CaseID)
	if err != nil {
		return
	}
	if c.Status == CaseStatusConfirmed {
		err = newValidationError("status", "confirmed cases cannot take provisional holds")
		return
	}
	if vErr := validateSlots(params.Slots); vErr.HasErrors() {
		err = vErr
		return
	}
	if s.calendar == nil {
		err = fmt.Errorf("calendar gateway not configured")
		return
	}

	tasks := make([]calendarTask[CalendarEvent], 0, len(params.Slots))
	for _, slot := range params.Slots {
		req := HoldRequest{CaseID: c.ID, Start: slot.Start, End: slot.End, Attendees: cloneStrings(c.Members)}
		tasks = append(tasks, calendarTask[CalendarEvent]{
			label: slot.Start.Format(time.RFC3339),
			run: func(ctx context.Context) (CalendarEvent, error) {
				event, err := s.calendar.CreateProvisionalHold(ctx, req)
				s.metrics.observeCall("create_hold", err)
				return event, err
			},
		})
	}

	results, runErr := runAbortOnFirst(ctx, tasks)
	created := make([]string, 0, len(results))
	for _, result := range results {
		if result.err == nil {
			created = append(created, result.value.ID)
		}
	}
	if runErr != nil {
		if len(created) > 0 {
			logger.WarnContext(ctx, "provisional holds left without case reference", "event_ids", created)
		}
		c = Case{}
		err = externalError("create provisional hold", runErr)
		return
	}

	// Holds from an earlier promotion stay recorded until they are gone so
	// that DeleteCase and Confirm can still reach them.
	superseded := cloneStrings(c.ProvisionalEventIDs)
	c.ProvisionalEventIDs = uniqueStrings(append(cloneStrings(created), superseded...))
	c.Status = CaseStatusProvisional
	if err = s.cases.PutCase(ctx, c); err != nil {
		err = mapCaseStoreError(err)
		logger.WarnContext(ctx, "provisional holds left without case reference", "event_ids", created)
		c = Case{}
		return
	}
	if len(superseded) > 0 {
		c = s.dropSupersededHolds(ctx, logger, c, created, superseded)
	}

	s.busy.InvalidateOwner(c.OwnerID)
	s.metrics.caseTransitions.WithLabelValues("provisional").Inc()
	eventIDs = cloneStrings(created)
	return
}

// Confirm removes every hold of the case on a best-effort basis, creates the
// final meeting event and only then records the case as confirmed.
func (s *CaseService) Confirm(ctx context.Context, params ConfirmParams) (c Case, event CalendarEvent, err error) {
	if s == nil {
		err = fmt.Errorf("CaseService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Confirm",
		"principal_id", params.Principal.OwnerID,
		"case_id", params.CaseID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to confirm case", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("event_id", event.ID).InfoContext(ctx, "case confirmed")
	}()

	c, err = s.loadOwnedCase(ctx, params.Principal, params.CaseID)
	if err != nil {
		return
	}
	if c.Status == CaseStatusConfirmed {
		err = newValidationError("status", "case is already confirmed")
		return
	}
	if vErr := validateRange("interval", params.Interval); vErr.HasErrors() {
		err = vErr
		return
	}
	if s.calendar == nil {
		err = fmt.Errorf("calendar gateway not configured")
		return
	}

	s.deleteHoldsBestEffort(ctx, logger, "confirm", s.holdIDsForCase(ctx, logger, c))

	req := ConfirmedEventRequest{
		CaseID:              c.ID,
		Title:               c.Name,
		Start:               params.Interval.Start,
		End:                 params.Interval.End,
		Attendees:           cloneStrings(c.Members),
		ConferenceRequestID: uuid.NewString(),
	}
	event, err = s.calendar.CreateConfirmedEvent(ctx, req)
	s.metrics.observeCall("create_confirmed", err)
	if err != nil {
		c = Case{}
		err = externalError("create confirmed event", err)
		return
	}

	c.Status = CaseStatusConfirmed
	c.ConfirmedEventID = event.ID
	c.ProvisionalEventIDs = []string{}
	if err = s.cases.PutCase(ctx, c); err != nil {
		err = mapCaseStoreError(err)
		logger.WarnContext(ctx, "confirmed event left without case reference", "event_id", event.ID)
		c = Case{}
		return
	}

	s.busy.InvalidateOwner(c.OwnerID)
	s.metrics.caseTransitions.WithLabelValues("confirmed").Inc()
	return
}

// holdIDsForCase returns the recorded hold ids followed by any additional
// holds the provider still reports under the case tag.
func (s *CaseService) holdIDsForCase(ctx context.Context, logger *slog.Logger, c Case) []string {
	ids := cloneStrings(c.ProvisionalEventIDs)
	tagged, err := s.calendar.ListProvisionalHolds(ctx, HoldFilter{CaseID: c.ID})
	s.metrics.observeCall("list_holds", err)
	if err != nil {
		logger.WarnContext(ctx, "failed to list tagged holds, using recorded ids", "error", err)
		return uniqueStrings(ids)
	}
	for _, event := range tagged {
		ids = append(ids, event.ID)
	}
	return uniqueStrings(ids)
}

// deleteHoldsBestEffort removes each event and logs the ones that fail. It
// returns the ids that were deleted.
func (s *CaseService) deleteHoldsBestEffort(ctx context.Context, logger *slog.Logger, operation string, eventIDs []string) []string {
	return deleteEventsBestEffort(ctx, s.calendar, s.metrics, logger, operation, eventIDs)
}

// dropSupersededHolds deletes the holds of an earlier promotion and records
// only the new holds plus any superseded hold that could not be deleted. A
// failed store write keeps the wider record, which still names every hold.
func (s *CaseService) dropSupersededHolds(ctx context.Context, logger *slog.Logger, c Case, created, superseded []string) Case {
	deleted := make(map[string]struct{})
	for _, id := range s.deleteHoldsBestEffort(ctx, logger, "repromote", superseded) {
		deleted[id] = struct{}{}
	}
	if len(deleted) == 0 {
		return c
	}

	remaining := cloneStrings(created)
	for _, id := range superseded {
		if _, ok := deleted[id]; !ok {
			remaining = append(remaining, id)
		}
	}
	updated := cloneCase(c)
	updated.ProvisionalEventIDs = uniqueStrings(remaining)
	if err := s.cases.PutCase(ctx, updated); err != nil {
		logger.WarnContext(ctx, "case still references deleted holds", "error", err, "case_id", c.ID)
		return c
	}
	logger.InfoContext(ctx, "superseded provisional holds removed", "count", len(deleted))
	return updated
}

// DeleteCase removes the remaining holds on a best-effort basis and then
// deletes the case record regardless of the cleanup outcome.
func (s *CaseService) DeleteCase(ctx context.Context, principal Principal, caseID string) (err error) {
	if s == nil {
		return fmt.Errorf("CaseService is nil")
	}

	logger := s.loggerWith(ctx, "DeleteCase",
		"principal_id", principal.OwnerID,
		"case_id", caseID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete case", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "case deleted")
	}()

	var c Case
	c, err = s.loadOwnedCase(ctx, principal, caseID)
	if err != nil {
		return
	}

	if s.calendar != nil && len(c.ProvisionalEventIDs) > 0 {
		s.deleteHoldsBestEffort(ctx, logger, "delete_case", c.ProvisionalEventIDs)
	}

	if err = s.cases.DeleteCase(ctx, c.ID); err != nil {
		err = mapCaseStoreError(err)
		return
	}
	s.busy.InvalidateOwner(c.OwnerID)
	s.metrics.caseTransitions.WithLabelValues("deleted").Inc()
	return
}

// ListProvisionalHolds returns the holds the provider reports under the case tag.
func (s *CaseService) ListProvisionalHolds(ctx context.Context, principal Principal, caseID string) ([]CalendarEvent, error) {
	if s == nil {
		return nil, fmt.Errorf("CaseService is nil")
	}
	c, err := s.loadOwnedCase(ctx, principal, caseID)
	if err != nil {
		return nil, err
	}
	if s.calendar == nil {
		return nil, fmt.Errorf("calendar gateway not configured")
	}

	events, err := s.calendar.ListProvisionalHolds(ctx, HoldFilter{CaseID: c.ID})
	s.metrics.observeCall("list_holds", err)
	if err != nil {
		err = externalError("list provisional holds", err)
		s.loggerWith(ctx, "ListProvisionalHolds", "principal_id", principal.OwnerID, "case_id", caseID).
			ErrorContext(ctx, "failed to list provisional holds", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Start.Before(events[j].Start) })
	return events, nil
}

// loadOwnedCase fetches the case and enforces that the caller owns it.
func (s *CaseService) loadOwnedCase(ctx context.Context, principal Principal, caseID string) (Case, error) {
	if principal.OwnerID == "" {
		return Case{}, ErrAccessDenied
	}
	if strings.TrimSpace(caseID) == "" {
		return Case{}, ErrNotFound
	}
	if s.cases == nil {
		return Case{}, fmt.Errorf("case store not configured")
	}
	c, err := s.cases.GetCase(ctx, caseID)
	if err != nil {
		return Case{}, mapCaseStoreError(err)
	}
	if c.OwnerID != principal.OwnerID {
		return Case{}, ErrAccessDenied
	}
	return cloneCase(c), nil
}

func deleteEventsBestEffort(ctx context.Context, calendar CalendarGateway, m *metrics, logger *slog.Logger, operation string, eventIDs []string) []string {
	deleted := make([]string, 0, len(eventIDs))
	for _, result := range runCollectAll(ctx, deleteTasks(calendar, eventIDs)) {
		m.observeCall("delete_event", result.err)
		if result.err != nil {
			m.cleanupFailures.WithLabelValues(operation).Inc()
			logger.WarnContext(ctx, "failed to delete calendar event", "event_id", result.label, "error", result.err)
			continue
		}
		deleted = append(deleted, result.label)
	}
	return deleted
}

func validateSlots(slots []TimeRange) *ValidationError {
	vErr := &ValidationError{}
	if len(slots) == 0 {
		vErr.add("slots", "at least one slot is required")
		return vErr
	}
	for i, slot := range slots {
		vErr.merge(validateRange(fmt.Sprintf("slots[%d]", i), slot))
	}
	return vErr
}

func validateRange(field string, r TimeRange) *ValidationError {
	vErr := &ValidationError{}
	if r.Start.IsZero() || r.End.IsZero() {
		vErr.add(field, "start and end are required")
		return vErr
	}
	if !r.End.After(r.Start) {
		vErr.add(field, "start must be before end")
	}
	return vErr
}

func intOrDefault(value *int, fallback int) int {
	if value == nil {
		return fallback
	}
	return *value
}

func normalizeMembers(values []string) []string {
	trimmed := make([]string, 0, len(values))
	for _, value := range values {
		trimmed = append(trimmed, strings.TrimSpace(value))
	}
	return uniqueStrings(trimmed)
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}

func mapCaseStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		return newValidationError("case", "case record violates storage constraints")
	}
	return err
}
