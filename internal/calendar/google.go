package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/example/meeting-finder/internal/application"
	"github.com/example/meeting-finder/internal/scheduler"
)

// ErrEventGone is wrapped into delete errors when the provider no longer knows
// the event.
var ErrEventGone = errors.New("calendar: event not found")

// GoogleConfig configures a GoogleGateway.
type GoogleConfig struct {
	// CalendarID is the calendar holds and confirmed events are written to.
	CalendarID string
	// TimeZone is the IANA zone sent with free/busy queries and event times.
	TimeZone string
	// OAuth and RefreshToken form the fallback token source used when a
	// request carries no access token.
	OAuth        *oauth2.Config
	RefreshToken string
	// Endpoint overrides the API base URL.
	Endpoint string
	// HTTPClient is the base client for API and token requests.
	HTTPClient *http.Client
}

// GoogleGateway talks to the Google Calendar v3 API.
type GoogleGateway struct {
	cfg      GoogleConfig
	fallback oauth2.TokenSource
}

var _ application.CalendarGateway = (*GoogleGateway)(nil)

// NewOAuthConfig returns an OAuth client configuration for the calendar scope.
func NewOAuthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gcal.CalendarScope},
	}
}

// NewGoogleGateway constructs a gateway. Missing calendar id and time zone
// default to "primary" and Asia/Tokyo.
func NewGoogleGateway(cfg GoogleConfig) *GoogleGateway {
	if cfg.CalendarID == "" {
		cfg.CalendarID = application.PrimaryCalendarID
	}
	if cfg.TimeZone == "" {
		cfg.TimeZone = "Asia/Tokyo"
	}
	g := &GoogleGateway{cfg: cfg}
	if cfg.OAuth != nil && cfg.RefreshToken != "" {
		g.fallback = cfg.OAuth.TokenSource(g.baseContext(context.Background()), &oauth2.Token{RefreshToken: cfg.RefreshToken})
	}
	return g
}

func (g *GoogleGateway) baseContext(ctx context.Context) context.Context {
	if g.cfg.HTTPClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, g.cfg.HTTPClient)
}

func (g *GoogleGateway) tokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	if token, ok := AccessTokenFromContext(ctx); ok {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}), nil
	}
	if g.fallback != nil {
		return g.fallback, nil
	}
	return nil, ErrNoCredentials
}

func (g *GoogleGateway) service(ctx context.Context) (*gcal.Service, error) {
	ts, err := g.tokenSource(ctx)
	if err != nil {
		return nil, err
	}
	client := oauth2.NewClient(g.baseContext(ctx), ts)
	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if g.cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(g.cfg.Endpoint))
	}
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar client: %w", err)
	}
	return svc, nil
}

// QueryBusy returns the busy intervals of every calendar over [from, to). A
// calendar the provider cannot read fails the whole query.
func (g *GoogleGateway) QueryBusy(ctx context.Context, calendarIDs []string, from, to time.Time) ([]scheduler.Interval, error) {
	svc, err := g.service(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]*gcal.FreeBusyRequestItem, 0, len(calendarIDs))
	for _, id := range calendarIDs {
		items = append(items, &gcal.FreeBusyRequestItem{Id: id})
	}
	resp, err := svc.Freebusy.Query(&gcal.FreeBusyRequest{
		TimeMin:  from.UTC().Format(time.RFC3339),
		TimeMax:  to.UTC().Format(time.RFC3339),
		TimeZone: g.cfg.TimeZone,
		Items:    items,
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("query free/busy: %w", err)
	}

	ids := make([]string, 0, len(resp.Calendars))
	for id := range resp.Calendars {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var busy []scheduler.Interval
	for _, id := range ids {
		cal := resp.Calendars[id]
		if len(cal.Errors) > 0 {
			return nil, fmt.Errorf("query free/busy for %s: %s", id, cal.Errors[0].Reason)
		}
		for _, period := range cal.Busy {
			start, err := time.Parse(time.RFC3339, period.Start)
			if err != nil {
				return nil, fmt.Errorf("parse busy start %q: %w", period.Start, err)
			}
			end, err := time.Parse(time.RFC3339, period.End)
			if err != nil {
				return nil, fmt.Errorf("parse busy end %q: %w", period.End, err)
			}
			busy = append(busy, scheduler.Interval{Start: start, End: end})
		}
	}
	return busy, nil
}

// CreateProvisionalHold inserts a tagged hold with optional attendees.
func (g *GoogleGateway) CreateProvisionalHold(ctx context.Context, req application.HoldRequest) (application.CalendarEvent, error) {
	svc, err := g.service(ctx)
	if err != nil {
		return application.CalendarEvent{}, err
	}

	attendees := make([]*gcal.EventAttendee, 0, len(req.Attendees))
	for _, email := range req.Attendees {
		attendees = append(attendees, &gcal.EventAttendee{Email: email, Optional: true})
	}
	created, err := svc.Events.Insert(g.cfg.CalendarID, &gcal.Event{
		Summary:     HoldSummary,
		Description: HoldDescription(req.CaseID),
		Start:       g.eventTime(req.Start),
		End:         g.eventTime(req.End),
		ColorId:     HoldColorID,
		Attendees:   attendees,
	}).Context(ctx).Do()
	if err != nil {
		return application.CalendarEvent{}, fmt.Errorf("insert provisional hold: %w", err)
	}
	return toCalendarEvent(created)
}

// CreateConfirmedEvent inserts the final meeting with a Meet conference request.
func (g *GoogleGateway) CreateConfirmedEvent(ctx context.Context, req application.ConfirmedEventRequest) (application.CalendarEvent, error) {
	svc, err := g.service(ctx)
	if err != nil {
		return application.CalendarEvent{}, err
	}

	attendees := make([]*gcal.EventAttendee, 0, len(req.Attendees))
	for _, email := range req.Attendees {
		attendees = append(attendees, &gcal.EventAttendee{Email: email})
	}
	event := &gcal.Event{
		Summary:   req.Title,
		Start:     g.eventTime(req.Start),
		End:       g.eventTime(req.End),
		Attendees: attendees,
	}
	if req.ConferenceRequestID != "" {
		event.ConferenceData = &gcal.ConferenceData{
			CreateRequest: &gcal.CreateConferenceRequest{
				RequestId:             req.ConferenceRequestID,
				ConferenceSolutionKey: &gcal.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		}
	}

	created, err := svc.Events.Insert(g.cfg.CalendarID, event).ConferenceDataVersion(1).Context(ctx).Do()
	if err != nil {
		return application.CalendarEvent{}, fmt.Errorf("insert confirmed event: %w", err)
	}
	return toCalendarEvent(created)
}

// DeleteEvent removes an event from the configured calendar.
func (g *GoogleGateway) DeleteEvent(ctx context.Context, eventID string) error {
	svc, err := g.service(ctx)
	if err != nil {
		return err
	}
	if err := svc.Events.Delete(g.cfg.CalendarID, eventID).Context(ctx).Do(); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
			return fmt.Errorf("delete event %s: %w", eventID, ErrEventGone)
		}
		return fmt.Errorf("delete event %s: %w", eventID, err)
	}
	return nil
}

// ListProvisionalHolds searches for events carrying the hold marker and keeps
// those whose description tag matches the filter.
func (g *GoogleGateway) ListProvisionalHolds(ctx context.Context, filter application.HoldFilter) ([]application.CalendarEvent, error) {
	svc, err := g.service(ctx)
	if err != nil {
		return nil, err
	}

	call := svc.Events.List(g.cfg.CalendarID).Q(HoldMarker).SingleEvents(true).Context(ctx)
	if filter.From != nil {
		call = call.TimeMin(filter.From.UTC().Format(time.RFC3339))
	}
	if filter.To != nil {
		// timeMax is exclusive on start; widen it so holds starting exactly at To are returned.
		call = call.TimeMax(filter.To.Add(time.Second).UTC().Format(time.RFC3339))
	}

	var holds []application.CalendarEvent
	err = call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			event, err := toCalendarEvent(item)
			if err != nil {
				return err
			}
			if matchesHold(event, filter.CaseID) {
				holds = append(holds, event)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list provisional holds: %w", err)
	}
	return holds, nil
}

func (g *GoogleGateway) eventTime(t time.Time) *gcal.EventDateTime {
	return &gcal.EventDateTime{DateTime: t.Format(time.RFC3339), TimeZone: g.cfg.TimeZone}
}

func toCalendarEvent(item *gcal.Event) (application.CalendarEvent, error) {
	if item == nil {
		return application.CalendarEvent{}, errors.New("calendar: empty event")
	}
	start, err := parseEventTime(item.Start)
	if err != nil {
		return application.CalendarEvent{}, fmt.Errorf("event %s start: %w", item.Id, err)
	}
	end, err := parseEventTime(item.End)
	if err != nil {
		return application.CalendarEvent{}, fmt.Errorf("event %s end: %w", item.Id, err)
	}

	event := application.CalendarEvent{
		ID:            item.Id,
		Summary:       item.Summary,
		Description:   item.Description,
		Start:         start,
		End:           end,
		ConferenceURL: item.HangoutLink,
		HTMLLink:      item.HtmlLink,
	}
	if caseID, ok := ParseCaseTag(item.Description); ok {
		event.CaseID = caseID
	}
	for _, attendee := range item.Attendees {
		if attendee != nil && attendee.Email != "" {
			event.Attendees = append(event.Attendees, attendee.Email)
		}
	}
	return event, nil
}

// parseEventTime reads a timed or all-day event boundary.
func parseEventTime(value *gcal.EventDateTime) (time.Time, error) {
	if value == nil {
		return time.Time{}, nil
	}
	if value.DateTime != "" {
		return time.Parse(time.RFC3339, value.DateTime)
	}
	if value.Date != "" {
		loc := time.UTC
		if value.TimeZone != "" {
			if l, err := time.LoadLocation(value.TimeZone); err == nil {
				loc = l
			}
		}
		return time.ParseInLocation("2006-01-02", value.Date, loc)
	}
	return time.Time{}, nil
}
