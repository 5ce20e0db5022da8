package persistence_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/example/meeting-finder/internal/persistence"
	"github.com/example/meeting-finder/internal/persistence/memory"
	"github.com/example/meeting-finder/internal/persistence/redisstore"
	"github.com/example/meeting-finder/internal/testfixtures"
)

func newPersistenceCase(opts ...testfixtures.CaseOption) persistence.Case {
	return testfixtures.NewCaseFixture(opts...).Persistence()
}

type backend struct {
	name string
	open func(t *testing.T) persistence.CaseRepository
}

func backends() []backend {
	return []backend{
		{
			name: "memory",
			open: func(t *testing.T) persistence.CaseRepository {
				storage := memory.Open()
				t.Cleanup(func() { _ = storage.Close() })
				return storage
			},
		},
		{
			name: "sqlite",
			open: func(t *testing.T) persistence.CaseRepository {
				return testfixtures.NewSQLiteHarness(t).Cases
			},
		},
		{
			name: "redis",
			open: func(t *testing.T) persistence.CaseRepository {
				server := miniredis.RunT(t)
				client := redis.NewClient(&redis.Options{Addr: server.Addr()})
				t.Cleanup(func() { _ = client.Close() })
				return redisstore.NewCaseRepository(client, "")
			},
		},
	}
}

func TestCaseRepository(t *testing.T) {
	t.Parallel()

	for _, b := range backends() {
		b := b
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()

			t.Run("puts, reads, replaces, and deletes cases", func(t *testing.T) {
				ctx := context.Background()
				repo := b.open(t)

				c := newPersistenceCase(
					testfixtures.WithCaseID("case-1"),
					testfixtures.WithCaseMembers("bob@example.com"),
				)
				if err := repo.PutCase(ctx, c); err != nil {
					t.Fatalf("PutCase returned error: %v", err)
				}

				fetched, err := repo.GetCase(ctx, "case-1")
				if err != nil {
					t.Fatalf("GetCase returned error: %v", err)
				}
				if fetched.Name != c.Name || fetched.Status != "draft" || len(fetched.Members) != 1 {
					t.Fatalf("unexpected case %#v", fetched)
				}

				c = newPersistenceCase(
					testfixtures.WithCaseID("case-1"),
					testfixtures.WithCaseProvisional("hold-1", "hold-2"),
				)
				if err := repo.PutCase(ctx, c); err != nil {
					t.Fatalf("PutCase replace returned error: %v", err)
				}
				fetched, err = repo.GetCase(ctx, "case-1")
				if err != nil {
					t.Fatalf("GetCase returned error: %v", err)
				}
				if fetched.Status != "provisional" || len(fetched.ProvisionalEventIDs) != 2 {
					t.Fatalf("expected replaced case, got %#v", fetched)
				}

				if err := repo.DeleteCase(ctx, "case-1"); err != nil {
					t.Fatalf("DeleteCase returned error: %v", err)
				}
				if _, err := repo.GetCase(ctx, "case-1"); !errors.Is(err, persistence.ErrNotFound) {
					t.Fatalf("expected ErrNotFound, got %v", err)
				}
			})

			t.Run("reports missing cases", func(t *testing.T) {
				ctx := context.Background()
				repo := b.open(t)

				if _, err := repo.GetCase(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
					t.Fatalf("expected ErrNotFound from GetCase, got %v", err)
				}
				if err := repo.DeleteCase(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
					t.Fatalf("expected ErrNotFound from DeleteCase, got %v", err)
				}
			})

			t.Run("lists cases in creation order", func(t *testing.T) {
				ctx := context.Background()
				repo := b.open(t)

				base := testfixtures.ReferenceTime()
				for i, id := range []string{"case-c", "case-a", "case-b"} {
					c := newPersistenceCase(
						testfixtures.WithCaseID(id),
						testfixtures.WithCaseCreatedAt(base.Add(time.Duration(3-i)*time.Hour)),
					)
					if err := repo.PutCase(ctx, c); err != nil {
						t.Fatalf("PutCase %s returned error: %v", id, err)
					}
				}

				cases, err := repo.ListCases(ctx)
				if err != nil {
					t.Fatalf("ListCases returned error: %v", err)
				}
				got := make([]string, 0, len(cases))
				for _, c := range cases {
					got = append(got, c.ID)
				}
				want := []string{"case-b", "case-a", "case-c"}
				if len(got) != len(want) {
					t.Fatalf("expected %v, got %v", want, got)
				}
				for i := range want {
					if got[i] != want[i] {
						t.Fatalf("expected %v, got %v", want, got)
					}
				}
			})

			t.Run("rejects records missing required fields", func(t *testing.T) {
				repo := b.open(t)
				err := repo.PutCase(context.Background(), newPersistenceCase(testfixtures.WithCaseOwner("")))
				if !errors.Is(err, persistence.ErrConstraintViolation) {
					t.Fatalf("expected ErrConstraintViolation, got %v", err)
				}
			})

			t.Run("returns copies", func(t *testing.T) {
				ctx := context.Background()
				repo := b.open(t)

				c := newPersistenceCase(testfixtures.WithCaseID("case-1"), testfixtures.WithCaseMembers("bob@example.com"))
				if err := repo.PutCase(ctx, c); err != nil {
					t.Fatalf("PutCase returned error: %v", err)
				}
				c.Members[0] = "mutated"

				fetched, err := repo.GetCase(ctx, "case-1")
				if err != nil {
					t.Fatalf("GetCase returned error: %v", err)
				}
				if fetched.Members[0] != "bob@example.com" {
					t.Fatalf("expected stored members to be isolated, got %v", fetched.Members)
				}
			})
		})
	}
}
