package testfixtures

import (
	"context"
	"testing"

	"github.com/example/shift-ledger/internal/application"
	"github.com/example/shift-ledger/internal/persistence"
)

func TestServiceFactoryNewEmployerService(t *testing.T) {
	factory := NewServiceFactory(WithIDGenerator(NewIDGenerator("emp")))
	harness := NewInMemorySQLiteHarness(t)

	svc := factory.NewEmployerService(EmployerServiceDeps{Employers: harness.Storage})
	employer, err := svc.CreateEmployer(context.Background(), application.EmployerInput{Name: "カフェ"})
	if err != nil {
		t.Fatalf("CreateEmployer returned error: %v", err)
	}

	if employer.ID != "emp-1" {
		t.Fatalf("expected generated ID emp-1, got %q", employer.ID)
	}
	stored, err := harness.Employers.GetEmployer(context.Background(), employer.ID)
	if err != nil {
		t.Fatalf("expected employer to be stored, got %v", err)
	}
	if !stored.CreatedAt.Equal(factory.Clock.Peek()) {
		t.Fatalf("expected timestamp %v, got %v", factory.Clock.Peek(), stored.CreatedAt)
	}
}

func TestServiceFactoryNewSyncService(t *testing.T) {
	factory := NewServiceFactory()
	harness := NewInMemorySQLiteHarness(t)
	events := NewEventSource().Add(NewEvent("書店", LocalTime(2024, 5, 3, 10, 0), 4))

	svc := factory.NewSyncService(SyncServiceDeps{Store: harness.Storage, Events: events})
	result := svc.Trigger(context.Background())
	if !result.Success || result.Created != 1 {
		t.Fatalf("expected one created shift, got %+v", result)
	}

	shifts, err := harness.Shifts.ListShifts(context.Background(), persistence.ShiftFilter{})
	if err != nil {
		t.Fatalf("ListShifts returned error: %v", err)
	}
	if len(shifts) != 1 || shifts[0].Status != persistence.StatusPending {
		t.Fatalf("expected one pending shift, got %+v", shifts)
	}
	if calls := events.Calls(); len(calls) != 2 {
		t.Fatalf("expected two calendar fetches, got %v", calls)
	}
}
