package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/shift-ledger/internal/persistence"
)

// EmployerRepository captures the persistence operations needed by the service.
type EmployerRepository interface {
	CreateEmployer(ctx context.Context, employer persistence.Employer) error
	UpdateEmployer(ctx context.Context, employer persistence.Employer) error
	GetEmployer(ctx context.Context, id string) (persistence.Employer, error)
	ListEmployers(ctx context.Context) ([]persistence.Employer, error)
	DeleteEmployer(ctx context.Context, id string) error
	CountShiftsForEmployer(ctx context.Context, id string) (int, error)
}

// EmployerService manages employers outside of calendar synchronization.
type EmployerService struct {
	employers   EmployerRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
	onChange    func()
}

// NewEmployerService constructs an employer service with the provided dependencies.
func NewEmployerService(employers EmployerRepository, idGenerator func() string, now func() time.Time) *EmployerService {
	return NewEmployerServiceWithLogger(employers, idGenerator, now, nil)
}

// NewEmployerServiceWithLogger constructs an employer service with a specified logger.
func NewEmployerServiceWithLogger(employers EmployerRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *EmployerService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &EmployerService{employers: employers, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

// NotifyOnChange registers fn to run after every successful write.
func (s *EmployerService) NotifyOnChange(fn func()) {
	s.onChange = fn
}

func (s *EmployerService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EmployerService", operation, attrs...)
}

// CreateEmployer validates input and stores a new employer.
func (s *EmployerService) CreateEmployer(ctx context.Context, input EmployerInput) (employer persistence.Employer, err error) {
	if s == nil {
		err = fmt.Errorf("EmployerService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateEmployer")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create employer", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("employer_id", employer.ID).InfoContext(ctx, "employer created")
	}()

	vErr := validateEmployerInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	employer = applyEmployerInput(persistence.Employer{ID: s.idGenerator(), CreatedAt: now}, input)
	employer.UpdatedAt = now

	if s.employers == nil {
		return
	}
	if err = s.employers.CreateEmployer(ctx, employer); err != nil {
		err = mapRepoError(err)
		return
	}
	return
}

// UpdateEmployer overwrites the editable fields of an employer.
func (s *EmployerService) UpdateEmployer(ctx context.Context, params UpdateEmployerParams) (employer persistence.Employer, err error) {
	if s == nil {
		err = fmt.Errorf("EmployerService is nil")
		return
	}
	if s.employers == nil {
		err = fmt.Errorf("employer repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateEmployer", "employer_id", params.EmployerID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update employer", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "employer updated")
	}()

	vErr := validateEmployerInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var existing persistence.Employer
	existing, err = s.employers.GetEmployer(ctx, params.EmployerID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	employer = applyEmployerInput(existing, params.Input)
	employer.UpdatedAt = s.now()
	if err = s.employers.UpdateEmployer(ctx, employer); err != nil {
		err = mapRepoError(err)
		return
	}
	if s.onChange != nil {
		s.onChange()
	}
	return
}

// DeleteEmployer removes an employer. Employers with shifts yield ErrConflict.
func (s *EmployerService) DeleteEmployer(ctx context.Context, employerID string) error {
	if s == nil {
		return fmt.Errorf("EmployerService is nil")
	}
	if s.employers == nil {
		return fmt.Errorf("employer repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteEmployer", "employer_id", employerID)

	count, err := s.employers.CountShiftsForEmployer(ctx, employerID)
	if err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to count employer shifts", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	if count > 0 {
		err = fmt.Errorf("%w: %d shifts reference employer %s", ErrConflict, count, employerID)
		logger.ErrorContext(ctx, "failed to delete employer", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	if err := s.employers.DeleteEmployer(ctx, employerID); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to delete employer", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "employer deleted")
	if s.onChange != nil {
		s.onChange()
	}
	return nil
}

// ListEmployers returns every employer ordered case-insensitively by name.
func (s *EmployerService) ListEmployers(ctx context.Context) (employers []persistence.Employer, err error) {
	if s == nil {
		err = fmt.Errorf("EmployerService is nil")
		return
	}
	if s.employers == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListEmployers")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list employers", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(employers)).DebugContext(ctx, "employers listed")
	}()

	var raw []persistence.Employer
	raw, err = s.employers.ListEmployers(ctx)
	if err != nil {
		return
	}

	employers = make([]persistence.Employer, len(raw))
	copy(employers, raw)
	sort.Slice(employers, func(i, j int) bool {
		if strings.EqualFold(employers[i].Name, employers[j].Name) {
			return employers[i].ID < employers[j].ID
		}
		return strings.ToLower(employers[i].Name) < strings.ToLower(employers[j].Name)
	})
	return
}

func applyEmployerInput(employer persistence.Employer, input EmployerInput) persistence.Employer {
	employer.Name = strings.TrimSpace(input.Name)
	employer.HourlyWage = copyIntPtr(input.HourlyWage)
	employer.DefaultTransportFee = copyIntPtr(input.DefaultTransportFee)
	employer.IsOneTime = input.IsOneTime
	employer.Note = normalizeOptionalString(input.Note)
	employer.Color = normalizeOptionalString(input.Color)
	return employer
}

func validateEmployerInput(input EmployerInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if input.HourlyWage != nil && *input.HourlyWage < 0 {
		vErr.add("hourly_wage", "must not be negative")
	}
	if input.DefaultTransportFee != nil && *input.DefaultTransportFee < 0 {
		vErr.add("default_transport_fee", "must not be negative")
	}

	return vErr
}
