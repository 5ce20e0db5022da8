package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/example/meeting-finder/internal/application"
	"github.com/example/meeting-finder/internal/calendar"
	"github.com/example/meeting-finder/internal/config"
	"github.com/example/meeting-finder/internal/persistence/memory"
	"github.com/example/meeting-finder/internal/scheduler"
	"github.com/example/meeting-finder/internal/testfixtures"
)

func runCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestRootRegistersSubcommands(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"serve", "reconcile", "migrate", "hash-key"} {
		found, _, err := cmd.Find([]string{name})
		if err != nil || found.Name() != name {
			t.Fatalf("subcommand %q not registered: %v", name, err)
		}
	}
}

func TestHashKeyCommand(t *testing.T) {
	out, err := runCommand(t, "", "hash-key", "--owner", "owner@example.com", "s3cret")
	if err != nil {
		t.Fatalf("hash-key failed: %v", err)
	}

	owner, hash, ok := strings.Cut(strings.TrimSpace(out), "=")
	if !ok || owner != "owner@example.com" {
		t.Fatalf("unexpected output %q", out)
	}
	if err := application.VerifyKey(hash, "s3cret"); err != nil {
		t.Fatalf("hash does not verify: %v", err)
	}

	ring := application.NewKeyRing(map[string]string{owner: hash}, "example.com")
	principal, err := ring.Authenticate("owner@example.com:s3cret")
	if err != nil {
		t.Fatalf("key ring rejected generated hash: %v", err)
	}
	if principal.OwnerID != "owner@example.com" {
		t.Fatalf("unexpected principal %+v", principal)
	}
}

func TestHashKeyReadsSecretFromStdin(t *testing.T) {
	out, err := runCommand(t, "from-stdin\n", "hash-key")
	if err != nil {
		t.Fatalf("hash-key failed: %v", err)
	}
	if err := application.VerifyKey(strings.TrimSpace(out), "from-stdin"); err != nil {
		t.Fatalf("hash does not verify: %v", err)
	}

	if _, err := runCommand(t, "   \n", "hash-key"); err == nil {
		t.Fatal("expected empty secret to be rejected")
	}
}

func TestMigrateCommand(t *testing.T) {
	t.Setenv("SCHEDULER_STORE", config.StoreSQLite)
	t.Setenv("SCHEDULER_SQLITE_DSN", filepath.Join(t.TempDir(), "cases.db"))

	out, err := runCommand(t, "", "migrate", "--status")
	if err != nil {
		t.Fatalf("migrate --status failed: %v", err)
	}
	if !strings.Contains(out, "current version: none") || !strings.Contains(out, "pending: 1") {
		t.Fatalf("unexpected status output:\n%s", out)
	}

	out, err = runCommand(t, "", "migrate")
	if err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if !strings.Contains(out, "current version: 001") || !strings.Contains(out, "pending: 0") {
		t.Fatalf("unexpected migrate output:\n%s", out)
	}
}

func TestMigrateRequiresSQLiteStore(t *testing.T) {
	t.Setenv("SCHEDULER_STORE", config.StoreMemory)

	if _, err := runCommand(t, "", "migrate"); err == nil {
		t.Fatal("expected migrate to refuse non-sqlite stores")
	}
}

func TestReconcileCommandValidatesFlags(t *testing.T) {
	t.Setenv("SCHEDULER_STORE", config.StoreMemory)
	t.Setenv("SCHEDULER_CALENDAR", config.CalendarMemory)

	if _, err := runCommand(t, "", "reconcile"); err == nil {
		t.Fatal("expected missing --owner to fail")
	}
	if _, err := runCommand(t, "", "reconcile", "--owner", "owner@example.com", "--from", "yesterday"); err == nil {
		t.Fatal("expected malformed --from to fail")
	}

	out, err := runCommand(t, "", "reconcile", "--owner", "owner@example.com")
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	var result struct {
		DeletedCount int      `json:"deleted_count"`
		TrimmedCases []string `json:"trimmed_cases"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if result.DeletedCount != 0 || len(result.TrimmedCases) != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCaseStoreAdapterRoundTrip(t *testing.T) {
	ctx := context.Background()
	adapter := newCaseStoreAdapter(memory.Open())

	fixture := testfixtures.NewCaseFixture(
		testfixtures.WithCaseMembers("alice@example.com"),
		testfixtures.WithCaseProvisional("evt-1", "evt-2"),
	)
	want := fixture.Application()
	if err := adapter.PutCase(ctx, want); err != nil {
		t.Fatalf("put case: %v", err)
	}

	got, err := adapter.GetCase(ctx, want.ID)
	if err != nil {
		t.Fatalf("get case: %v", err)
	}
	if got.Status != application.CaseStatusProvisional || got.OwnerID != want.OwnerID {
		t.Fatalf("unexpected case %+v", got)
	}
	if len(got.ProvisionalEventIDs) != 2 || got.ProvisionalEventIDs[1] != "evt-2" {
		t.Fatalf("unexpected holds %v", got.ProvisionalEventIDs)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Fatalf("created at = %v, want %v", got.CreatedAt, want.CreatedAt)
	}

	list, err := adapter.ListCases(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("list cases = %v, %v", list, err)
	}

	if err := adapter.DeleteCase(ctx, want.ID); err != nil {
		t.Fatalf("delete case: %v", err)
	}
	if _, err := adapter.GetCase(ctx, want.ID); err == nil {
		t.Fatal("expected deleted case to be gone")
	}
}

func TestBuildComponentsServesSlots(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := config.Config{
		Store:             config.StoreMemory,
		Calendar:          config.CalendarMemory,
		TimeZone:          "Asia/Tokyo",
		WorkingHourStart:  10,
		WorkingHourEnd:    19,
		LunchStart:        12,
		LunchEnd:          13,
		PerDayCap:         2,
		DefaultSearchDays: 5,
		MaxSearchDays:     30,
		BufferPolicy:      config.BufferAroundBusy,
	}
	deps, err := buildComponents(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("build components: %v", err)
	}
	defer deps.Close()

	if _, ok := deps.calendar.(*calendar.MemoryGateway); !ok {
		t.Fatalf("calendar backend = %T, want *calendar.MemoryGateway", deps.calendar)
	}
	if got := caseServiceConfig(cfg).BufferPolicy; got != scheduler.BufferAroundBusy {
		t.Fatalf("buffer policy = %v, want around busy", got)
	}

	principal := application.Principal{OwnerID: "owner@example.com"}
	created, err := deps.cases.CreateCase(ctx, application.CreateCaseParams{Principal: principal})
	if err != nil {
		t.Fatalf("create case: %v", err)
	}
	slots, err := deps.cases.FindSlots(ctx, application.FindSlotsParams{Principal: principal, CaseID: created.ID})
	if err != nil {
		t.Fatalf("find slots: %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("slots = %d, want 3", len(slots))
	}
	for _, slot := range slots {
		if slot.End.Sub(slot.Start) != time.Hour {
			t.Fatalf("slot %v-%v is not one hour", slot.Start, slot.End)
		}
	}
}

func TestOpenCaseRepositoryRejectsUnknownStore(t *testing.T) {
	if _, _, err := openCaseRepository(context.Background(), config.Config{Store: "etcd"}, nil); err == nil {
		t.Fatal("expected unknown store to fail")
	}
	if _, err := newCalendarGateway(config.Config{Calendar: "exchange"}); err == nil {
		t.Fatal("expected unknown calendar backend to fail")
	}
}
