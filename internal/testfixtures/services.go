package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/meeting-finder/internal/application"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("case"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("case")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// CaseServiceDeps captures dependencies for constructing a case service.
// A zero Config falls back to application.DefaultCaseServiceConfig.
type CaseServiceDeps struct {
	Cases       application.CaseStore
	Calendar    application.CalendarGateway
	Config      *application.CaseServiceConfig
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewCaseService builds a case service using the supplied dependencies
// combined with the factory defaults.
func (f *ServiceFactory) NewCaseService(deps CaseServiceDeps) *application.CaseService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	cfg := application.DefaultCaseServiceConfig()
	if deps.Config != nil {
		cfg = *deps.Config
	}
	return application.NewCaseServiceWithConfig(
		deps.Cases,
		deps.Calendar,
		cfg,
		idGen,
		now,
		deps.Logger,
	)
}
