package testfixtures

import (
	"context"
	"testing"

	"github.com/example/meeting-finder/internal/application"
)

type capturingCaseStore struct {
	stored application.Case
}

func (c *capturingCaseStore) ListCases(ctx context.Context) ([]application.Case, error) {
	return nil, nil
}

func (c *capturingCaseStore) GetCase(ctx context.Context, id string) (application.Case, error) {
	return application.Case{}, application.ErrNotFound
}

func (c *capturingCaseStore) PutCase(ctx context.Context, cs application.Case) error {
	c.stored = cs
	return nil
}

func (c *capturingCaseStore) DeleteCase(ctx context.Context, id string) error {
	return nil
}

func TestServiceFactoryNewCaseService(t *testing.T) {
	factory := NewServiceFactory()
	store := &capturingCaseStore{}

	svc := factory.NewCaseService(CaseServiceDeps{Cases: store})
	principal := application.Principal{OwnerID: "owner@example.com"}

	created, err := svc.CreateCase(context.Background(), application.CreateCaseParams{
		Principal: principal,
		Input:     application.CaseInput{Name: "Weekly sync"},
	})
	if err != nil {
		t.Fatalf("CreateCase returned error: %v", err)
	}

	if created.ID != "case-1" {
		t.Fatalf("expected generated ID case-1, got %q", created.ID)
	}
	if store.stored.ID != created.ID {
		t.Fatalf("store received unexpected ID: %q", store.stored.ID)
	}
	if !created.CreatedAt.Equal(factory.Clock.Now()) {
		t.Fatalf("expected timestamp %v, got %v", factory.Clock.Now(), created.CreatedAt)
	}
}

func TestCaseFixtureConversions(t *testing.T) {
	fixture := NewCaseFixture(
		WithCaseID("case-x"),
		WithCaseMembers("bob@example.com"),
		WithCaseProvisional("hold-1", "hold-2"),
	)

	app := fixture.Application()
	if app.Status != application.CaseStatusProvisional || len(app.ProvisionalEventIDs) != 2 {
		t.Fatalf("unexpected application case %#v", app)
	}

	stored := fixture.Persistence()
	if stored.Status != "provisional" || stored.Members[0] != "bob@example.com" {
		t.Fatalf("unexpected persistence case %#v", stored)
	}

	confirmed := NewCaseFixture(WithCaseConfirmed("event-1")).Persistence()
	if confirmed.ProvisionalEventIDs == nil || len(confirmed.ProvisionalEventIDs) != 0 {
		t.Fatalf("expected empty hold list for confirmed fixture, got %#v", confirmed.ProvisionalEventIDs)
	}
}
