package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"testing"

	"github.com/example/meeting-finder/internal/application"
	"github.com/example/meeting-finder/internal/calendar"
	"github.com/example/meeting-finder/internal/persistence"
	"github.com/example/meeting-finder/internal/testfixtures"
)

const (
	ownerToken = "owner@example.com:secret"
	otherToken = "other@example.com:secret"
)

type authenticatorFunc func(token string) (application.Principal, error)

func (f authenticatorFunc) Authenticate(token string) (application.Principal, error) {
	return f(token)
}

var stubAuthenticator = authenticatorFunc(func(token string) (application.Principal, error) {
	switch token {
	case ownerToken:
		return application.Principal{OwnerID: "owner@example.com", Email: "owner@example.com"}, nil
	case otherToken:
		return application.Principal{OwnerID: "other@example.com", Email: "other@example.com"}, nil
	case "intruder@elsewhere.test:secret":
		return application.Principal{}, application.ErrDomainNotAllowed
	default:
		return application.Principal{}, application.ErrInvalidCredentials
	}
})

type memoryCaseStore struct {
	mu    sync.Mutex
	cases map[string]application.Case
}

func newMemoryCaseStore() *memoryCaseStore {
	return &memoryCaseStore{cases: make(map[string]application.Case)}
}

func (s *memoryCaseStore) ListCases(ctx context.Context) ([]application.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]application.Case, 0, len(s.cases))
	for _, c := range s.cases {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memoryCaseStore) GetCase(ctx context.Context, id string) (application.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[id]
	if !ok {
		return application.Case{}, persistence.ErrNotFound
	}
	return c, nil
}

func (s *memoryCaseStore) PutCase(ctx context.Context, c application.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cases[c.ID] = c
	return nil
}

func (s *memoryCaseStore) DeleteCase(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cases[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.cases, id)
	return nil
}

type testServer struct {
	handler  http.Handler
	store    *memoryCaseStore
	calendar *calendar.MemoryGateway
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := newMemoryCaseStore()
	gateway := calendar.NewMemoryGateway()
	logger := discardLogger()

	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	service := application.NewCaseServiceWithConfig(
		store,
		gateway,
		application.DefaultCaseServiceConfig(),
		testfixtures.NewIDGenerator("case").NextFunc(),
		clock.NowFunc(),
		logger,
	)

	cases := NewCaseHandler(service, logger)
	cases.now = clock.NowFunc()

	handler := NewRouter(RouterConfig{
		Cases:       cases,
		Manage:      NewManageHandler(service.Reconciler(), logger),
		Auth:        stubAuthenticator,
		Logger:      logger,
		MetricsPath: "/metrics",
	})
	return &testServer{handler: handler, store: store, calendar: gateway}
}

var errBoom = errors.New("boom")
