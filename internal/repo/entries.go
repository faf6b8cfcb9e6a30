package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/robocupjunioraustralia/registration-billing/internal/entry"
)

// EntryRepo implements entry.Repository.
type EntryRepo struct {
	Store Store
}

const entryColumns = `id, kind, event_id, division_id, school_id, campus_id,
	mentor_user_id, name, student_count, COALESCE(attendee_type, ''),
	invoice_override_id, created_at, updated_at`

func scanEntry(row pgx.Row) (entry.Entry, error) {
	var e entry.Entry
	err := row.Scan(
		&e.ID, &e.Kind, &e.EventID, &e.DivisionID, &e.SchoolID, &e.CampusID,
		&e.MentorUserID, &e.Name, &e.StudentCount, &e.AttendeeType,
		&e.InvoiceOverrideID, &e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

func (r EntryRepo) Get(ctx context.Context, id uuid.UUID) (entry.Entry, error) {
	row := r.Store.q(ctx).QueryRow(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = $1`, id)
	e, err := scanEntry(row)
	if isNoRows(err) {
		return entry.Entry{}, entry.ErrNotFound
	}
	if err != nil {
		return entry.Entry{}, fmt.Errorf("get entry: %w", err)
	}
	return e, nil
}

func (r EntryRepo) Insert(ctx context.Context, e entry.Entry) error {
	_, err := r.Store.q(ctx).Exec(ctx, `
		INSERT INTO entries (
			id, kind, event_id, division_id, school_id, campus_id,
			mentor_user_id, name, student_count, attendee_type,
			invoice_override_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11, $12, $12)`,
		e.ID, e.Kind, e.EventID, e.DivisionID, e.SchoolID, e.CampusID,
		e.MentorUserID, e.Name, e.StudentCount, string(e.AttendeeType),
		e.InvoiceOverrideID, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func (r EntryRepo) Update(ctx context.Context, e entry.Entry) error {
	tag, err := r.Store.q(ctx).Exec(ctx, `
		UPDATE entries
		   SET division_id = $2,
		       school_id = $3,
		       campus_id = $4,
		       mentor_user_id = $5,
		       name = $6,
		       student_count = $7,
		       attendee_type = NULLIF($8, ''),
		       invoice_override_id = $9,
		       updated_at = now()
		 WHERE id = $1`,
		e.ID, e.DivisionID, e.SchoolID, e.CampusID, e.MentorUserID,
		e.Name, e.StudentCount, string(e.AttendeeType), e.InvoiceOverrideID,
	)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entry.ErrNotFound
	}
	return nil
}

func (r EntryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.Store.q(ctx).Exec(ctx, `DELETE FROM entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entry.ErrNotFound
	}
	return nil
}

// List builds one of the three natural-scope shapes: school and campus,
// whole school, or independent mentor.
func (r EntryRepo) List(ctx context.Context, f entry.Filter) ([]entry.Entry, error) {
	sql := `SELECT ` + entryColumns + ` FROM entries WHERE event_id = $1 AND invoice_override_id IS NULL`
	args := []any{f.EventID}

	if f.IndependentOnly {
		sql += ` AND school_id IS NULL`
		if f.MentorUserID != nil {
			args = append(args, *f.MentorUserID)
			sql += fmt.Sprintf(` AND mentor_user_id = $%d`, len(args))
		}
	} else {
		if f.SchoolID != nil {
			args = append(args, *f.SchoolID)
			sql += fmt.Sprintf(` AND school_id = $%d`, len(args))
		}
		if f.MatchCampus {
			if f.CampusID != nil {
				args = append(args, *f.CampusID)
				sql += fmt.Sprintf(` AND campus_id = $%d`, len(args))
			} else {
				sql += ` AND campus_id IS NULL`
			}
		}
	}
	sql += ` ORDER BY created_at, id`

	return r.queryEntries(ctx, sql, args...)
}

func (r EntryRepo) ListByOverride(ctx context.Context, invoiceID uuid.UUID) ([]entry.Entry, error) {
	return r.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE invoice_override_id = $1 ORDER BY created_at, id`,
		invoiceID)
}

func (r EntryRepo) ListSchoolTeams(ctx context.Context, eventID uuid.UUID, schoolID *uuid.UUID, mentorUserID uuid.UUID) ([]entry.Entry, error) {
	if schoolID != nil {
		return r.queryEntries(ctx, `
			SELECT `+entryColumns+` FROM entries
			 WHERE event_id = $1 AND school_id = $2 AND kind = 'team' AND invoice_override_id IS NULL
			 ORDER BY created_at, id`,
			eventID, *schoolID)
	}
	return r.queryEntries(ctx, `
		SELECT `+entryColumns+` FROM entries
		 WHERE event_id = $1 AND school_id IS NULL AND mentor_user_id = $2
		   AND kind = 'team' AND invoice_override_id IS NULL
		 ORDER BY created_at, id`,
		eventID, mentorUserID)
}

func (r EntryRepo) DistinctCampuses(ctx context.Context, eventID, schoolID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.Store.q(ctx).Query(ctx, `
		SELECT DISTINCT campus_id FROM entries
		 WHERE event_id = $1 AND school_id = $2 AND campus_id IS NOT NULL`,
		eventID, schoolID)
	if err != nil {
		return nil, fmt.Errorf("distinct campuses: %w", err)
	}
	defer rows.Close()

	var campuses []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		campuses = append(campuses, id)
	}
	return campuses, rows.Err()
}

func (r EntryRepo) queryEntries(ctx context.Context, sql string, args ...any) ([]entry.Entry, error) {
	rows, err := r.Store.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []entry.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
