package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/shift-ledger/internal/persistence"
)

type shiftListerStub struct {
	shifts    []persistence.Shift
	employers []persistence.Employer
	filter    persistence.ShiftFilter
}

func (s *shiftListerStub) ListShifts(ctx context.Context, filter persistence.ShiftFilter) ([]persistence.Shift, error) {
	s.filter = filter
	var out []persistence.Shift
	for _, shift := range s.shifts {
		if filter.Status != "" && shift.Status != filter.Status {
			continue
		}
		out = append(out, shift)
	}
	return out, nil
}

func (s *shiftListerStub) ListEmployers(ctx context.Context) ([]persistence.Employer, error) {
	return s.employers, nil
}

func TestShiftService_ListShifts(t *testing.T) {
	t.Parallel()

	store := &shiftListerStub{
		shifts: []persistence.Shift{
			{ID: "s1", EmployerID: "e1", Status: persistence.StatusPending},
			{ID: "s2", EmployerID: "e1", Status: persistence.StatusCompleted},
		},
		employers: []persistence.Employer{{ID: "e1", Name: "カフェ"}},
	}
	jst := time.FixedZone("JST", 9*3600)
	svc := NewShiftService(store, jst, nil)

	shifts, err := svc.ListShifts(context.Background(), ShiftQuery{Status: "pending", FiscalYear: 2024})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(shifts) != 1 || shifts[0].ID != "s1" || shifts[0].EmployerName != "カフェ" {
		t.Fatalf("expected pending shift with employer name, got %+v", shifts)
	}
	if store.filter.StartsFrom == nil || !store.filter.StartsFrom.Equal(time.Date(2023, time.December, 1, 0, 0, 0, 0, jst)) {
		t.Fatalf("expected fiscal year range to start 2023-12-01, got %v", store.filter.StartsFrom)
	}
}

func TestShiftService_ListShiftsValidation(t *testing.T) {
	t.Parallel()

	svc := NewShiftService(&shiftListerStub{}, nil, nil)
	_, err := svc.ListShifts(context.Background(), ShiftQuery{Status: "DONE"})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := vErr.FieldErrors["status"]; !ok {
		t.Fatalf("expected status error, got %v", vErr.FieldErrors)
	}
}
