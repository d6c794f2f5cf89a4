package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/shift-ledger/internal/persistence"
)

type employerRepoStub struct {
	employers   map[string]persistence.Employer
	shiftCounts map[string]int
	createErr   error
	deleted     []string
}

func newEmployerRepoStub() *employerRepoStub {
	return &employerRepoStub{
		employers:   map[string]persistence.Employer{},
		shiftCounts: map[string]int{},
	}
}

func (s *employerRepoStub) CreateEmployer(ctx context.Context, employer persistence.Employer) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.employers[employer.ID] = employer
	return nil
}

func (s *employerRepoStub) UpdateEmployer(ctx context.Context, employer persistence.Employer) error {
	if _, ok := s.employers[employer.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.employers[employer.ID] = employer
	return nil
}

func (s *employerRepoStub) GetEmployer(ctx context.Context, id string) (persistence.Employer, error) {
	employer, ok := s.employers[id]
	if !ok {
		return persistence.Employer{}, persistence.ErrNotFound
	}
	return employer, nil
}

func (s *employerRepoStub) ListEmployers(ctx context.Context) ([]persistence.Employer, error) {
	out := make([]persistence.Employer, 0, len(s.employers))
	for _, employer := range s.employers {
		out = append(out, employer)
	}
	return out, nil
}

func (s *employerRepoStub) DeleteEmployer(ctx context.Context, id string) error {
	if _, ok := s.employers[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.employers, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *employerRepoStub) CountShiftsForEmployer(ctx context.Context, id string) (int, error) {
	return s.shiftCounts[id], nil
}

func newTestEmployerService(repo EmployerRepository) *EmployerService {
	now := time.Date(2024, time.June, 2, 10, 0, 0, 0, time.UTC)
	return NewEmployerService(repo, sequentialIDs(), func() time.Time { return now })
}

func TestEmployerService_CreateEmployer(t *testing.T) {
	t.Parallel()

	repo := newEmployerRepoStub()
	svc := newTestEmployerService(repo)

	employer, err := svc.CreateEmployer(context.Background(), EmployerInput{
		Name:       "  書店  ",
		HourlyWage: intValue(1100),
		Note:       stringValue("   "),
		Color:      stringValue("#ff8800"),
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if employer.ID != "id-1" {
		t.Fatalf("expected generated id, got %s", employer.ID)
	}
	if employer.Name != "書店" {
		t.Fatalf("expected trimmed name, got %q", employer.Name)
	}
	if employer.Note != nil {
		t.Fatalf("expected blank note to be dropped")
	}
	if employer.Color == nil || *employer.Color != "#ff8800" {
		t.Fatalf("expected color to be stored")
	}
	if _, ok := repo.employers["id-1"]; !ok {
		t.Fatalf("expected employer to be persisted")
	}
}

func TestEmployerService_CreateEmployerValidation(t *testing.T) {
	t.Parallel()

	svc := newTestEmployerService(newEmployerRepoStub())
	_, err := svc.CreateEmployer(context.Background(), EmployerInput{
		Name:                " ",
		HourlyWage:          intValue(-1),
		DefaultTransportFee: intValue(-1),
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"name", "hourly_wage", "default_transport_fee"} {
		if _, ok := vErr.FieldErrors[field]; !ok {
			t.Fatalf("expected %s validation error, got %v", field, vErr.FieldErrors)
		}
	}
}

func TestEmployerService_CreateEmployerDuplicate(t *testing.T) {
	t.Parallel()

	repo := newEmployerRepoStub()
	repo.createErr = persistence.ErrDuplicate
	svc := newTestEmployerService(repo)

	_, err := svc.CreateEmployer(context.Background(), EmployerInput{Name: "カフェ"})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestEmployerService_UpdateEmployer(t *testing.T) {
	t.Parallel()

	repo := newEmployerRepoStub()
	created := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	repo.employers["emp-1"] = persistence.Employer{ID: "emp-1", Name: "カフェ", CreatedAt: created}
	svc := newTestEmployerService(repo)
	changes := 0
	svc.NotifyOnChange(func() { changes++ })

	employer, err := svc.UpdateEmployer(context.Background(), UpdateEmployerParams{
		EmployerID: "emp-1",
		Input:      EmployerInput{Name: "カフェ本店", HourlyWage: intValue(1250), IsOneTime: true},
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if employer.Name != "カフェ本店" || *employer.HourlyWage != 1250 || !employer.IsOneTime {
		t.Fatalf("expected fields to be updated, got %+v", employer)
	}
	if !employer.CreatedAt.Equal(created) {
		t.Fatalf("expected creation time to be preserved")
	}
	if changes != 1 {
		t.Fatalf("expected one change notification, got %d", changes)
	}

	_, err = svc.UpdateEmployer(context.Background(), UpdateEmployerParams{EmployerID: "missing", Input: EmployerInput{Name: "x"}})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEmployerService_DeleteEmployer(t *testing.T) {
	t.Parallel()

	repo := newEmployerRepoStub()
	repo.employers["busy"] = persistence.Employer{ID: "busy", Name: "busy"}
	repo.employers["idle"] = persistence.Employer{ID: "idle", Name: "idle"}
	repo.shiftCounts["busy"] = 2
	svc := newTestEmployerService(repo)

	if err := svc.DeleteEmployer(context.Background(), "busy"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := svc.DeleteEmployer(context.Background(), "idle"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != "idle" {
		t.Fatalf("expected only idle to be deleted, got %v", repo.deleted)
	}
	if err := svc.DeleteEmployer(context.Background(), "idle"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEmployerService_ListEmployersSortsByName(t *testing.T) {
	t.Parallel()

	repo := newEmployerRepoStub()
	repo.employers["3"] = persistence.Employer{ID: "3", Name: "beta"}
	repo.employers["1"] = persistence.Employer{ID: "1", Name: "Alpha"}
	repo.employers["2"] = persistence.Employer{ID: "2", Name: "alpha"}
	svc := newTestEmployerService(repo)

	employers, err := svc.ListEmployers(context.Background())
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	got := []string{employers[0].ID, employers[1].ID, employers[2].ID}
	want := []string{"1", "2", "3"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}
