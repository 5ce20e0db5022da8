// Package http exposes the meeting finder API over chi.
//
// Every route except /healthz and the metrics endpoint requires an
// `Authorization: Bearer <owner>:<secret>` API key. Calls that reach the
// calendar provider use the OAuth access token in the `X-Calendar-Token`
// header when present.
//
//   - GET /cases, POST /cases: list and create cases (`caseDTO` in dto.go).
//   - GET /cases/{id}, DELETE /cases/{id}: read one case or delete it along
//     with its remaining provisional holds.
//   - GET /cases/{id}/slots?days=N: candidate slots as `[{"start","end"}]` in
//     the organisation's time zone. `/slots.ics` returns the same slots as an
//     iCalendar document.
//   - POST /cases/{id}/provisional: body `{"slots":[{"start","end"}]}`; places
//     provisional holds and returns `{"event_references","case"}`.
//   - GET /cases/{id}/provisional: holds currently on the calendar for the case.
//   - POST /cases/{id}/confirm: body `{"start","end"}`; books the meeting and
//     returns `{"confirmed_event","case"}`.
//   - DELETE /manage/provisional?from=&to=: bulk removes tagged holds and
//     reconciles the caller's cases.
//
// Errors use `{"error_code","message","errors"}` with Japanese messages.
package http
