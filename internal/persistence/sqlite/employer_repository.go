package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/shift-ledger/internal/persistence"
)

const employerColumns = `id, name, hourly_wage, default_transport_fee, is_one_time, note, color, created_at, updated_at`

// EmployerRepository implements persistence.EmployerRepository.
type EmployerRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewEmployerRepository creates an employer repository.
func NewEmployerRepository(pool *ConnectionPool) *EmployerRepository {
	return &EmployerRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateEmployer inserts a new employer.
func (r *EmployerRepository) CreateEmployer(ctx context.Context, employer persistence.Employer) error {
	if err := validateEmployer(employer); err != nil {
		return err
	}
	return r.pool.retry.WithRetry(ctx, func() error {
		_, err := r.helper.Exec(ctx, insertEmployerSQL, employerArgs(employer)...)
		return err
	})
}

const insertEmployerSQL = `
	INSERT INTO employers (` + employerColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func employerArgs(employer persistence.Employer) []any {
	return []any{
		employer.ID,
		employer.Name,
		nullableInt(employer.HourlyWage),
		nullableInt(employer.DefaultTransportFee),
		boolToInt(employer.IsOneTime),
		nullableString(employer.Note),
		nullableString(employer.Color),
		formatTime(employer.CreatedAt),
		formatTime(employer.UpdatedAt),
	}
}

// UpdateEmployer overwrites every mutable field.
func (r *EmployerRepository) UpdateEmployer(ctx context.Context, employer persistence.Employer) error {
	if err := validateEmployer(employer); err != nil {
		return err
	}

	const query = `
		UPDATE employers
		SET name = ?, hourly_wage = ?, default_transport_fee = ?, is_one_time = ?, note = ?, color = ?, updated_at = ?
		WHERE id = ?`

	var result sql.Result
	err := r.pool.retry.WithRetry(ctx, func() error {
		var execErr error
		result, execErr = r.helper.Exec(ctx, query,
			employer.Name,
			nullableInt(employer.HourlyWage),
			nullableInt(employer.DefaultTransportFee),
			boolToInt(employer.IsOneTime),
			nullableString(employer.Note),
			nullableString(employer.Color),
			formatTime(employer.UpdatedAt),
			employer.ID,
		)
		return execErr
	})
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// GetEmployer looks an employer up by id.
func (r *EmployerRepository) GetEmployer(ctx context.Context, id string) (persistence.Employer, error) {
	if id == "" {
		return persistence.Employer{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+employerColumns+` FROM employers WHERE id = ?`, id)
	return r.scanEmployer(row)
}

// GetEmployerByName looks an employer up by its unique name.
func (r *EmployerRepository) GetEmployerByName(ctx context.Context, name string) (persistence.Employer, error) {
	if strings.TrimSpace(name) == "" {
		return persistence.Employer{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+employerColumns+` FROM employers WHERE name = ?`, name)
	return r.scanEmployer(row)
}

// ListEmployers returns employers ordered by name.
func (r *EmployerRepository) ListEmployers(ctx context.Context) ([]persistence.Employer, error) {
	rows, err := r.helper.Query(ctx, `SELECT `+employerColumns+` FROM employers ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var employers []persistence.Employer
	for rows.Next() {
		employer, err := r.scanEmployer(rows)
		if err != nil {
			return nil, err
		}
		employers = append(employers, employer)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return employers, nil
}

// CountShiftsForEmployer returns how many shifts reference the employer.
func (r *EmployerRepository) CountShiftsForEmployer(ctx context.Context, id string) (int, error) {
	var count int
	if err := r.helper.QueryRow(ctx, `SELECT COUNT(*) FROM shifts WHERE employer_id = ?`, id).Scan(&count); err != nil {
		return 0, r.mapper.MapError(err)
	}
	return count, nil
}

// DeleteEmployer removes an employer that no shift references.
func (r *EmployerRepository) DeleteEmployer(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	return r.pool.WithWriteTransaction(ctx, func(tx *sql.Tx) error {
		var count int
		if err := r.helper.QueryRowTx(ctx, tx, `SELECT COUNT(*) FROM shifts WHERE employer_id = ?`, id).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: %d shifts reference employer %s", persistence.ErrForeignKeyViolation, count, id)
		}
		result, err := r.helper.ExecTx(ctx, tx, `DELETE FROM employers WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return requireAffected(result)
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *EmployerRepository) scanEmployer(row rowScanner) (persistence.Employer, error) {
	var (
		employer             persistence.Employer
		wage, transportFee   sql.NullInt64
		isOneTime            int
		note, color          sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(
		&employer.ID,
		&employer.Name,
		&wage,
		&transportFee,
		&isOneTime,
		&note,
		&color,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Employer{}, r.mapper.MapError(err)
	}

	employer.HourlyWage = intPtr(wage)
	employer.DefaultTransportFee = intPtr(transportFee)
	employer.IsOneTime = isOneTime != 0
	employer.Note = stringPtr(note)
	employer.Color = stringPtr(color)
	if employer.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Employer{}, err
	}
	if employer.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Employer{}, err
	}
	return employer, nil
}

func validateEmployer(employer persistence.Employer) error {
	if employer.ID == "" || strings.TrimSpace(employer.Name) == "" {
		return fmt.Errorf("%w: employer id and name are required", persistence.ErrConstraintViolation)
	}
	return nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
