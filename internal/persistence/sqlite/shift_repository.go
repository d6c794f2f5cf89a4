package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/shift-ledger/internal/persistence"
)

const shiftColumns = `id, calendar_event_id, employer_id, title, start_time, end_time, entry_status, created_at, updated_at`

// ShiftRepository implements persistence.ShiftRepository.
type ShiftRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewShiftRepository creates a shift repository.
func NewShiftRepository(pool *ConnectionPool) *ShiftRepository {
	return &ShiftRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateShift inserts a shift. A second shift with the same event id and
// start fails with persistence.ErrDuplicate.
func (r *ShiftRepository) CreateShift(ctx context.Context, shift persistence.Shift) error {
	if shift.ID == "" || shift.CalendarEventID == "" || shift.EmployerID == "" {
		return fmt.Errorf("%w: shift id, calendar event id and employer id are required", persistence.ErrConstraintViolation)
	}
	if shift.Status == "" {
		shift.Status = persistence.StatusPending
	}

	const query = `INSERT INTO shifts (` + shiftColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	return r.pool.retry.WithRetry(ctx, func() error {
		_, err := r.helper.Exec(ctx, query,
			shift.ID,
			shift.CalendarEventID,
			shift.EmployerID,
			shift.Title,
			formatTime(shift.Start),
			formatTime(shift.End),
			string(shift.Status),
			formatTime(shift.CreatedAt),
			formatTime(shift.UpdatedAt),
		)
		return err
	})
}

// GetShift looks a shift up by id.
func (r *ShiftRepository) GetShift(ctx context.Context, id string) (persistence.Shift, error) {
	if id == "" {
		return persistence.Shift{}, persistence.ErrNotFound
	}
	return r.scanShift(r.helper.QueryRow(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = ?`, id))
}

// GetShiftByEvent looks a shift up by its reconciliation key.
func (r *ShiftRepository) GetShiftByEvent(ctx context.Context, calendarEventID string, start time.Time) (persistence.Shift, error) {
	row := r.helper.QueryRow(ctx,
		`SELECT `+shiftColumns+` FROM shifts WHERE calendar_event_id = ? AND start_time = ?`,
		calendarEventID, formatTime(start),
	)
	return r.scanShift(row)
}

// ListShifts returns shifts matching filter ordered by start.
func (r *ShiftRepository) ListShifts(ctx context.Context, filter persistence.ShiftFilter) ([]persistence.Shift, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.EmployerID != "" {
		conditions = append(conditions, "employer_id = ?")
		args = append(args, filter.EmployerID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "entry_status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.StartsFrom != nil {
		conditions = append(conditions, "start_time >= ?")
		args = append(args, formatTime(*filter.StartsFrom))
	}
	if filter.StartsBefore != nil {
		conditions = append(conditions, "start_time < ?")
		args = append(args, formatTime(*filter.StartsBefore))
	}

	query := `SELECT ` + shiftColumns + ` FROM shifts`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_time ASC, id ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var shifts []persistence.Shift
	for rows.Next() {
		shift, err := r.scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, shift)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return shifts, nil
}

// DeleteShifts removes expenses, then entries, then the shifts themselves in
// a single transaction.
func (r *ShiftRepository) DeleteShifts(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	var deleted int64
	err := r.pool.WithWriteTransaction(ctx, func(tx *sql.Tx) error {
		statements := []string{
			`DELETE FROM expenses WHERE entry_id IN (SELECT id FROM entries WHERE shift_id IN (` + placeholders + `))`,
			`DELETE FROM entries WHERE shift_id IN (` + placeholders + `)`,
		}
		for _, stmt := range statements {
			if _, err := r.helper.ExecTx(ctx, tx, stmt, args...); err != nil {
				return err
			}
		}
		result, err := r.helper.ExecTx(ctx, tx, `DELETE FROM shifts WHERE id IN (`+placeholders+`)`, args...)
		if err != nil {
			return err
		}
		deleted, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return int(deleted), nil
}

func (r *ShiftRepository) scanShift(row rowScanner) (persistence.Shift, error) {
	var (
		shift                persistence.Shift
		start, end, status   string
		createdAt, updatedAt string
	)
	err := row.Scan(
		&shift.ID,
		&shift.CalendarEventID,
		&shift.EmployerID,
		&shift.Title,
		&start,
		&end,
		&status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Shift{}, r.mapper.MapError(err)
	}

	shift.Status = persistence.EntryStatus(status)
	for _, field := range []struct {
		column string
		value  string
		dest   *time.Time
	}{
		{"start_time", start, &shift.Start},
		{"end_time", end, &shift.End},
		{"created_at", createdAt, &shift.CreatedAt},
		{"updated_at", updatedAt, &shift.UpdatedAt},
	} {
		if *field.dest, err = parseTime(field.column, field.value); err != nil {
			return persistence.Shift{}, err
		}
	}
	return shift, nil
}
