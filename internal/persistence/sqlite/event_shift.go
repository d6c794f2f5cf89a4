package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/shift-ledger/internal/persistence"
)

// UpsertEventShift implements persistence.EventShiftWriter.
func (s *Storage) UpsertEventShift(ctx context.Context, employer persistence.Employer, shift persistence.Shift) (persistence.EventShiftUpsert, error) {
	if err := validateEmployer(employer); err != nil {
		return persistence.EventShiftUpsert{}, err
	}
	if shift.ID == "" || shift.CalendarEventID == "" {
		return persistence.EventShiftUpsert{}, fmt.Errorf("%w: shift id and calendar event id are required", persistence.ErrConstraintViolation)
	}
	if shift.Status == "" {
		shift.Status = persistence.StatusPending
	}

	var out persistence.EventShiftUpsert
	err := s.pool.WithWriteTransaction(ctx, func(tx *sql.Tx) error {
		out = persistence.EventShiftUpsert{}

		result, err := s.EmployerRepository.helper.ExecTx(ctx, tx,
			`INSERT INTO employers (`+employerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT(name) DO NOTHING`,
			employerArgs(employer)...,
		)
		if err != nil {
			return s.EmployerRepository.mapper.MapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		out.EmployerCreated = affected > 0
		out.Employer, err = s.EmployerRepository.scanEmployer(s.EmployerRepository.helper.QueryRowTx(ctx, tx,
			`SELECT `+employerColumns+` FROM employers WHERE name = ?`, employer.Name))
		if err != nil {
			return err
		}

		existing, err := s.ShiftRepository.scanShift(s.ShiftRepository.helper.QueryRowTx(ctx, tx,
			`SELECT `+shiftColumns+` FROM shifts WHERE calendar_event_id = ? AND start_time = ?`,
			shift.CalendarEventID, formatTime(shift.Start)))
		switch {
		case errors.Is(err, persistence.ErrNotFound):
			shift.EmployerID = out.Employer.ID
			if _, err := s.ShiftRepository.helper.ExecTx(ctx, tx,
				`INSERT INTO shifts (`+shiftColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				shift.ID,
				shift.CalendarEventID,
				shift.EmployerID,
				shift.Title,
				formatTime(shift.Start),
				formatTime(shift.End),
				string(shift.Status),
				formatTime(shift.CreatedAt),
				formatTime(shift.UpdatedAt),
			); err != nil {
				return s.ShiftRepository.mapper.MapError(err)
			}
			out.Shift = shift
			out.Outcome = persistence.ShiftCreated
			return nil
		case err != nil:
			return err
		}

		if formatTime(existing.End) == formatTime(shift.End) {
			out.Shift = existing
			out.Outcome = persistence.ShiftUnchanged
			return nil
		}
		if _, err := s.ShiftRepository.helper.ExecTx(ctx, tx,
			`UPDATE shifts SET end_time = ?, title = ?, updated_at = ? WHERE id = ?`,
			formatTime(shift.End), shift.Title, formatTime(shift.UpdatedAt), existing.ID,
		); err != nil {
			return s.ShiftRepository.mapper.MapError(err)
		}
		existing.End = shift.End
		existing.Title = shift.Title
		existing.UpdatedAt = shift.UpdatedAt
		out.Shift = existing
		out.Outcome = persistence.ShiftUpdated
		return nil
	})
	if err != nil {
		return persistence.EventShiftUpsert{}, err
	}
	return out, nil
}
