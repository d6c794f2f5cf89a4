package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/shift-ledger/internal/persistence"
)

const entryColumns = `id, shift_id, entry_type, clock_in, clock_out, break_start, break_end,
	break_minutes, work_minutes, late_night_minutes, income, transport_fee, note, created_at, updated_at`

// EntryRepository implements persistence.EntryRepository.
type EntryRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewEntryRepository creates an entry repository.
func NewEntryRepository(pool *ConnectionPool) *EntryRepository {
	return &EntryRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CompleteShift stores entry with its expenses and marks the shift COMPLETED.
func (r *EntryRepository) CompleteShift(ctx context.Context, entry persistence.PayrollEntry) error {
	if err := validateEntry(entry); err != nil {
		return err
	}

	return r.pool.WithWriteTransaction(ctx, func(tx *sql.Tx) error {
		result, err := r.helper.ExecTx(ctx, tx,
			`UPDATE shifts SET entry_status = ?, updated_at = ? WHERE id = ? AND entry_status = ?`,
			string(persistence.StatusCompleted), formatTime(entry.CreatedAt), entry.ShiftID, string(persistence.StatusPending),
		)
		if err != nil {
			return err
		}
		if affected, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		} else if affected == 0 {
			return r.explainUnchangedShift(ctx, tx, entry.ShiftID)
		}

		if _, err := r.helper.ExecTx(ctx, tx,
			`INSERT INTO entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			entry.ID,
			entry.ShiftID,
			string(entry.Type),
			nullableString(entry.ClockIn),
			nullableString(entry.ClockOut),
			nullableString(entry.BreakStart),
			nullableString(entry.BreakEnd),
			nullableInt(entry.BreakMinutes),
			nullableInt(entry.WorkMinutes),
			nullableInt(entry.LateNightMinutes),
			nullableInt(entry.Income),
			nullableInt(entry.TransportFee),
			nullableString(entry.Note),
			formatTime(entry.CreatedAt),
			formatTime(entry.UpdatedAt),
		); err != nil {
			return err
		}

		return r.insertExpensesTx(ctx, tx, entry.ID, entry.Expenses)
	})
}

func (r *EntryRepository) explainUnchangedShift(ctx context.Context, tx *sql.Tx, shiftID string) error {
	var status string
	err := r.helper.QueryRowTx(ctx, tx, `SELECT entry_status FROM shifts WHERE id = ?`, shiftID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: shift %s is %s", persistence.ErrStateConflict, shiftID, status)
}

// GetEntry loads an entry with its expenses.
func (r *EntryRepository) GetEntry(ctx context.Context, id string) (persistence.PayrollEntry, error) {
	if id == "" {
		return persistence.PayrollEntry{}, persistence.ErrNotFound
	}
	return r.getEntry(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)
}

// GetEntryByShift loads the entry attached to a shift.
func (r *EntryRepository) GetEntryByShift(ctx context.Context, shiftID string) (persistence.PayrollEntry, error) {
	return r.getEntry(ctx, `SELECT `+entryColumns+` FROM entries WHERE shift_id = ?`, shiftID)
}

func (r *EntryRepository) getEntry(ctx context.Context, query string, arg string) (persistence.PayrollEntry, error) {
	entry, err := r.scanEntry(r.helper.QueryRow(ctx, query, arg))
	if err != nil {
		return persistence.PayrollEntry{}, err
	}

	rows, err := r.helper.Query(ctx,
		`SELECT id, entry_id, name, amount, created_at FROM expenses WHERE entry_id = ? ORDER BY created_at ASC, id ASC`,
		entry.ID,
	)
	if err != nil {
		return persistence.PayrollEntry{}, r.mapper.MapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			expense   persistence.Expense
			createdAt string
		)
		if err := rows.Scan(&expense.ID, &expense.EntryID, &expense.Name, &expense.Amount, &createdAt); err != nil {
			return persistence.PayrollEntry{}, r.mapper.MapError(err)
		}
		if expense.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return persistence.PayrollEntry{}, err
		}
		entry.Expenses = append(entry.Expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return persistence.PayrollEntry{}, r.mapper.MapError(err)
	}
	return entry, nil
}

// ReplaceEntry overwrites the stored entry and swaps its expenses.
func (r *EntryRepository) ReplaceEntry(ctx context.Context, entry persistence.PayrollEntry) error {
	if err := validateEntry(entry); err != nil {
		return err
	}

	return r.pool.WithWriteTransaction(ctx, func(tx *sql.Tx) error {
		result, err := r.helper.ExecTx(ctx, tx, `
			UPDATE entries
			SET entry_type = ?, clock_in = ?, clock_out = ?, break_start = ?, break_end = ?,
				break_minutes = ?, work_minutes = ?, late_night_minutes = ?, income = ?,
				transport_fee = ?, note = ?, updated_at = ?
			WHERE id = ?`,
			string(entry.Type),
			nullableString(entry.ClockIn),
			nullableString(entry.ClockOut),
			nullableString(entry.BreakStart),
			nullableString(entry.BreakEnd),
			nullableInt(entry.BreakMinutes),
			nullableInt(entry.WorkMinutes),
			nullableInt(entry.LateNightMinutes),
			nullableInt(entry.Income),
			nullableInt(entry.TransportFee),
			nullableString(entry.Note),
			formatTime(entry.UpdatedAt),
			entry.ID,
		)
		if err != nil {
			return err
		}
		if err := requireAffected(result); err != nil {
			return err
		}

		if _, err := r.helper.ExecTx(ctx, tx, `DELETE FROM expenses WHERE entry_id = ?`, entry.ID); err != nil {
			return err
		}
		return r.insertExpensesTx(ctx, tx, entry.ID, entry.Expenses)
	})
}

// DeleteEntry removes the entry with its expenses and reopens its shift.
func (r *EntryRepository) DeleteEntry(ctx context.Context, id string, reopenedAt time.Time) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithWriteTransaction(ctx, func(tx *sql.Tx) error {
		var shiftID string
		if err := r.helper.QueryRowTx(ctx, tx, `SELECT shift_id FROM entries WHERE id = ?`, id).Scan(&shiftID); err != nil {
			return err
		}
		if _, err := r.helper.ExecTx(ctx, tx, `DELETE FROM expenses WHERE entry_id = ?`, id); err != nil {
			return err
		}
		if _, err := r.helper.ExecTx(ctx, tx, `DELETE FROM entries WHERE id = ?`, id); err != nil {
			return err
		}
		_, err := r.helper.ExecTx(ctx, tx,
			`UPDATE shifts SET entry_status = ?, updated_at = ? WHERE id = ?`,
			string(persistence.StatusPending), formatTime(reopenedAt), shiftID,
		)
		return err
	})
}

// ListReportRows sums each completed shift's entry income, transport fee and
// expenses for shifts starting in [from, to).
func (r *EntryRepository) ListReportRows(ctx context.Context, from, to time.Time) ([]persistence.ReportRow, error) {
	const query = `
		SELECT s.id, s.start_time, e.id, e.name,
			COALESCE(en.income, 0),
			COALESCE(en.transport_fee, 0),
			COALESCE((SELECT SUM(x.amount) FROM expenses x WHERE x.entry_id = en.id), 0)
		FROM shifts s
		JOIN employers e ON e.id = s.employer_id
		JOIN entries en ON en.shift_id = s.id
		WHERE s.entry_status = ? AND s.start_time >= ? AND s.start_time < ?
		ORDER BY s.start_time ASC, s.id ASC`

	rows, err := r.helper.Query(ctx, query, string(persistence.StatusCompleted), formatTime(from), formatTime(to))
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var report []persistence.ReportRow
	for rows.Next() {
		var (
			row   persistence.ReportRow
			start string
		)
		if err := rows.Scan(&row.ShiftID, &start, &row.EmployerID, &row.EmployerName, &row.Income, &row.TransportFee, &row.Expenses); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if row.Start, err = parseTime("start_time", start); err != nil {
			return nil, err
		}
		report = append(report, row)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return report, nil
}

func (r *EntryRepository) insertExpensesTx(ctx context.Context, tx *sql.Tx, entryID string, expenses []persistence.Expense) error {
	for _, expense := range expenses {
		if expense.ID == "" {
			return fmt.Errorf("%w: expense id is required", persistence.ErrConstraintViolation)
		}
		if _, err := r.helper.ExecTx(ctx, tx,
			`INSERT INTO expenses (id, entry_id, name, amount, created_at) VALUES (?, ?, ?, ?, ?)`,
			expense.ID, entryID, expense.Name, expense.Amount, formatTime(expense.CreatedAt),
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *EntryRepository) scanEntry(row rowScanner) (persistence.PayrollEntry, error) {
	var (
		entry                                   persistence.PayrollEntry
		entryType                               string
		clockIn, clockOut, breakStart, breakEnd sql.NullString
		breakMinutes, workMinutes, lateNight    sql.NullInt64
		income, transportFee                    sql.NullInt64
		note                                    sql.NullString
		createdAt, updatedAt                    string
	)
	err := row.Scan(
		&entry.ID,
		&entry.ShiftID,
		&entryType,
		&clockIn,
		&clockOut,
		&breakStart,
		&breakEnd,
		&breakMinutes,
		&workMinutes,
		&lateNight,
		&income,
		&transportFee,
		&note,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.PayrollEntry{}, r.mapper.MapError(err)
	}

	entry.Type = persistence.EntryType(entryType)
	entry.ClockIn = stringPtr(clockIn)
	entry.ClockOut = stringPtr(clockOut)
	entry.BreakStart = stringPtr(breakStart)
	entry.BreakEnd = stringPtr(breakEnd)
	entry.BreakMinutes = intPtr(breakMinutes)
	entry.WorkMinutes = intPtr(workMinutes)
	entry.LateNightMinutes = intPtr(lateNight)
	entry.Income = intPtr(income)
	entry.TransportFee = intPtr(transportFee)
	entry.Note = stringPtr(note)
	if entry.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.PayrollEntry{}, err
	}
	if entry.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.PayrollEntry{}, err
	}
	return entry, nil
}

func validateEntry(entry persistence.PayrollEntry) error {
	if entry.ID == "" || entry.ShiftID == "" {
		return fmt.Errorf("%w: entry id and shift id are required", persistence.ErrConstraintViolation)
	}
	switch entry.Type {
	case persistence.EntryHours, persistence.EntryIncome:
	default:
		return fmt.Errorf("%w: unknown entry type %q", persistence.ErrConstraintViolation, entry.Type)
	}
	return nil
}
