package application

import (
	"context"
	"time"

	"github.com/example/meeting-finder/internal/scheduler"
)

// CaseStore captures the persistence operations needed by the lifecycle
// services. Implementations offer no compare-and-swap; the last writer wins.
type CaseStore interface {
	ListCases(ctx context.Context) ([]Case, error)
	GetCase(ctx context.Context, id string) (Case, error)
	PutCase(ctx context.Context, c Case) error
	DeleteCase(ctx context.Context, id string) error
}

// CalendarGateway is the calendar provider as seen by the lifecycle services.
// Calls act on behalf of the principal whose credentials travel in ctx.
type CalendarGateway interface {
	QueryBusy(ctx context.Context, calendarIDs []string, from, to time.Time) ([]scheduler.Interval, error)
	CreateProvisionalHold(ctx context.Context, req HoldRequest) (CalendarEvent, error)
	CreateConfirmedEvent(ctx context.Context, req ConfirmedEventRequest) (CalendarEvent, error)
	DeleteEvent(ctx context.Context, eventID string) error
	ListProvisionalHolds(ctx context.Context, filter HoldFilter) ([]CalendarEvent, error)
}
