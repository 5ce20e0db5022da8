package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Reconciler sweeps provisional holds out of the caller's calendar and repairs
// the case records that referenced them.
type Reconciler struct {
	cases    CaseStore
	calendar CalendarGateway
	busy     *busyCache
	logger   *slog.Logger
	metrics  *metrics
}

// NewReconciler constructs a reconciler over the given collaborators.
func NewReconciler(cases CaseStore, calendar CalendarGateway) *Reconciler {
	return NewReconcilerWithLogger(cases, calendar, nil)
}

// NewReconcilerWithLogger constructs a reconciler with a specified logger.
func NewReconcilerWithLogger(cases CaseStore, calendar CalendarGateway, logger *slog.Logger) *Reconciler {
	return &Reconciler{cases: cases, calendar: calendar, logger: defaultLogger(logger), metrics: getMetrics()}
}

// Reconcile deletes every tagged hold visible to the caller whose start lies
// within the optional inclusive range, then trims or deletes the caller's
// provisional cases that referenced a deleted hold. Holds belonging to another
// owner's case are left in place. Individual deletion
// failures are logged and skipped; DeletedCount only counts successes.
func (r *Reconciler) Reconcile(ctx context.Context, params ReconcileParams) (result ReconcileResult, err error) {
	if r == nil {
		err = fmt.Errorf("Reconciler is nil")
		return
	}

	logger := serviceLogger(ctx, r.logger, "Reconciler", "Reconcile", "principal_id", params.Principal.OwnerID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to reconcile provisional holds", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "provisional holds reconciled",
			"deleted_count", result.DeletedCount,
			"trimmed_cases", len(result.TrimmedCases),
			"deleted_cases", len(result.DeletedCases),
		)
	}()

	if params.Principal.OwnerID == "" {
		err = ErrAccessDenied
		return
	}
	if params.From != nil && params.To != nil && params.From.After(*params.To) {
		err = newValidationError("range", "from must not be after to")
		return
	}
	if r.calendar == nil || r.cases == nil {
		err = fmt.Errorf("reconciler collaborators not configured")
		return
	}

	cases, err := r.cases.ListCases(ctx)
	if err != nil {
		err = mapCaseStoreError(err)
		return
	}
	foreign := foreignHolds(cases, params.Principal.OwnerID)

	holds, err := r.calendar.ListProvisionalHolds(ctx, HoldFilter{From: params.From, To: params.To})
	r.metrics.observeCall("list_holds", err)
	if err != nil {
		err = externalError("list provisional holds", err)
		return
	}

	targets := make([]string, 0, len(holds))
	for _, hold := range holds {
		if !startsWithin(hold.Start, params.From, params.To) {
			continue
		}
		if foreign.owns(hold) {
			logger.DebugContext(ctx, "skipping hold of another owner", "event_id", hold.ID, "case_id", hold.CaseID)
			continue
		}
		targets = append(targets, hold.ID)
	}
	targets = uniqueStrings(targets)

	deleted := deleteEventsBestEffort(ctx, r.calendar, r.metrics, logger, "reconcile", targets)
	result.DeletedCount = len(deleted)
	r.metrics.reconcileDeleted.Add(float64(len(deleted)))
	if len(deleted) == 0 {
		return
	}
	r.busy.InvalidateOwner(params.Principal.OwnerID)

	err = r.repairCases(ctx, logger, cases, params.Principal.OwnerID, deleted, &result)
	return
}

// otherOwners indexes the cases and recorded holds that belong to someone
// other than the caller. A shared calendar can carry holds of several owners.
type otherOwners struct {
	cases  map[string]struct{}
	events map[string]struct{}
}

func foreignHolds(cases []Case, ownerID string) otherOwners {
	foreign := otherOwners{cases: make(map[string]struct{}), events: make(map[string]struct{})}
	for _, c := range cases {
		if c.OwnerID == ownerID {
			continue
		}
		foreign.cases[c.ID] = struct{}{}
		for _, id := range c.ProvisionalEventIDs {
			foreign.events[id] = struct{}{}
		}
	}
	return foreign
}

// owns reports whether the hold is tagged with, or recorded on, another
// owner's case. Holds of unknown cases are orphans and stay eligible.
func (o otherOwners) owns(hold CalendarEvent) bool {
	if _, ok := o.events[hold.ID]; ok {
		return true
	}
	if hold.CaseID == "" {
		return false
	}
	_, ok := o.cases[hold.CaseID]
	return ok
}

// repairCases removes deleted hold ids from the owner's provisional cases.
// Cases that lose every hold are deleted. Store failures are collected so one
// bad record does not stop the sweep.
func (r *Reconciler) repairCases(ctx context.Context, logger *slog.Logger, cases []Case, ownerID string, deleted []string, result *ReconcileResult) error {
	removed := make(map[string]struct{}, len(deleted))
	for _, id := range deleted {
		removed[id] = struct{}{}
	}

	var errs []error
	for _, c := range cases {
		if c.OwnerID != ownerID || c.Status != CaseStatusProvisional {
			continue
		}
		remaining := make([]string, 0, len(c.ProvisionalEventIDs))
		for _, id := range c.ProvisionalEventIDs {
			if _, ok := removed[id]; !ok {
				remaining = append(remaining, id)
			}
		}

		switch {
		case len(remaining) == len(c.ProvisionalEventIDs):
			continue
		case len(remaining) == 0:
			if err := r.cases.DeleteCase(ctx, c.ID); err != nil {
				errs = append(errs, fmt.Errorf("delete case %s: %w", c.ID, mapCaseStoreError(err)))
				continue
			}
			logger.InfoContext(ctx, "case removed after losing all holds", "case_id", c.ID)
			r.metrics.caseTransitions.WithLabelValues("reconciled_deleted").Inc()
			result.DeletedCases = append(result.DeletedCases, c.ID)
		default:
			updated := cloneCase(c)
			updated.ProvisionalEventIDs = remaining
			if err := r.cases.PutCase(ctx, updated); err != nil {
				errs = append(errs, fmt.Errorf("update case %s: %w", c.ID, mapCaseStoreError(err)))
				continue
			}
			logger.InfoContext(ctx, "case holds trimmed", "case_id", c.ID, "remaining", len(remaining))
			result.TrimmedCases = append(result.TrimmedCases, c.ID)
		}
	}
	return errors.Join(errs...)
}

func startsWithin(start time.Time, from, to *time.Time) bool {
	if from != nil && start.Before(*from) {
		return false
	}
	if to != nil && start.After(*to) {
		return false
	}
	return true
}
