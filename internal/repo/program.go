package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/robocupjunioraustralia/registration-billing/internal/program"
)

// ProgramRepo implements program.Repository.
type ProgramRepo struct {
	Store Store
}

const eventColumns = `id, name, event_type, default_entry_fee, billing_type,
	special_rate_number, special_rate_fee, entry_fee_includes_gst,
	surcharge_amount, workshop_teacher_fee, workshop_student_fee,
	payment_due_date, created_at, updated_at`

func (r ProgramRepo) GetEvent(ctx context.Context, id uuid.UUID) (program.Event, error) {
	row := r.Store.q(ctx).QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)

	var e program.Event
	var specialFee decimal.NullDecimal
	err := row.Scan(
		&e.ID, &e.Name, &e.EventType, &e.DefaultEntryFee, &e.BillingType,
		&e.SpecialRateNumber, &specialFee, &e.EntryFeeIncludesGST,
		&e.SurchargeAmount, &e.WorkshopTeacherFee, &e.WorkshopStudentFee,
		&e.PaymentDueDate, &e.CreatedAt, &e.UpdatedAt,
	)
	if isNoRows(err) {
		return program.Event{}, program.ErrNotFound
	}
	if err != nil {
		return program.Event{}, fmt.Errorf("get event: %w", err)
	}
	if specialFee.Valid {
		e.SpecialRateFee = &specialFee.Decimal
	}
	return e, nil
}

func (r ProgramRepo) UpdateEventPricing(ctx context.Context, e program.Event) error {
	var specialFee decimal.NullDecimal
	if e.SpecialRateFee != nil {
		specialFee = decimal.NullDecimal{Decimal: *e.SpecialRateFee, Valid: true}
	}
	tag, err := r.Store.q(ctx).Exec(ctx, `
		UPDATE events
		   SET default_entry_fee = $2,
		       billing_type = $3,
		       special_rate_number = $4,
		       special_rate_fee = $5,
		       entry_fee_includes_gst = $6,
		       payment_due_date = $7,
		       updated_at = now()
		 WHERE id = $1`,
		e.ID, e.DefaultEntryFee, e.BillingType,
		e.SpecialRateNumber, specialFee, e.EntryFeeIncludesGST,
		e.PaymentDueDate,
	)
	if err != nil {
		return fmt.Errorf("update event pricing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return program.ErrNotFound
	}
	return nil
}

func (r ProgramRepo) ListAvailableDivisions(ctx context.Context, eventID uuid.UUID) ([]program.AvailableDivision, error) {
	rows, err := r.Store.q(ctx).Query(ctx, `
		SELECT id, event_id, division_id, billing_type, entry_fee
		  FROM available_divisions
		 WHERE event_id = $1
		 ORDER BY id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list available divisions: %w", err)
	}
	defer rows.Close()

	var result []program.AvailableDivision
	for rows.Next() {
		ad, err := scanAvailableDivision(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, ad)
	}
	return result, rows.Err()
}

func (r ProgramRepo) GetAvailableDivision(ctx context.Context, id uuid.UUID) (program.AvailableDivision, error) {
	row := r.Store.q(ctx).QueryRow(ctx, `
		SELECT id, event_id, division_id, billing_type, entry_fee
		  FROM available_divisions
		 WHERE id = $1`, id)
	ad, err := scanAvailableDivision(row)
	if isNoRows(err) {
		return program.AvailableDivision{}, program.ErrNotFound
	}
	if err != nil {
		return program.AvailableDivision{}, fmt.Errorf("get available division: %w", err)
	}
	return ad, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanAvailableDivision(row scannable) (program.AvailableDivision, error) {
	var ad program.AvailableDivision
	var fee decimal.NullDecimal
	if err := row.Scan(&ad.ID, &ad.EventID, &ad.DivisionID, &ad.BillingType, &fee); err != nil {
		return program.AvailableDivision{}, err
	}
	if fee.Valid {
		ad.EntryFee = &fee.Decimal
	}
	return ad, nil
}

func (r ProgramRepo) UpsertAvailableDivision(ctx context.Context, ad program.AvailableDivision) error {
	var fee decimal.NullDecimal
	if ad.EntryFee != nil {
		fee = decimal.NullDecimal{Decimal: *ad.EntryFee, Valid: true}
	}
	_, err := r.Store.q(ctx).Exec(ctx, `
		INSERT INTO available_divisions (id, event_id, division_id, billing_type, entry_fee)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id, division_id)
		DO UPDATE SET billing_type = EXCLUDED.billing_type, entry_fee = EXCLUDED.entry_fee`,
		ad.ID, ad.EventID, ad.DivisionID, ad.BillingType, fee)
	if err != nil {
		return fmt.Errorf("upsert available division: %w", err)
	}
	return nil
}

func (r ProgramRepo) DeleteAvailableDivision(ctx context.Context, id uuid.UUID) error {
	tag, err := r.Store.q(ctx).Exec(ctx, `DELETE FROM available_divisions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete available division: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return program.ErrNotFound
	}
	return nil
}

func (r ProgramRepo) ListDivisions(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]program.Division, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]program.Division{}, nil
	}
	rows, err := r.Store.q(ctx).Query(ctx, `SELECT id, name FROM divisions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("list divisions: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID]program.Division, len(ids))
	for rows.Next() {
		var d program.Division
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, err
		}
		result[d.ID] = d
	}
	return result, rows.Err()
}

func (r ProgramRepo) GetGlobalSettings(ctx context.Context) (program.GlobalSettings, error) {
	row := r.Store.q(ctx).QueryRow(ctx, `
		SELECT surcharge_amount, surcharge_name, surcharge_description, first_invoice_number
		  FROM global_settings
		 LIMIT 1`)

	var gs program.GlobalSettings
	err := row.Scan(&gs.SurchargeAmount, &gs.SurchargeName, &gs.SurchargeDescription, &gs.FirstInvoiceNumber)
	if isNoRows(err) {
		return program.GlobalSettings{}, nil
	}
	if err != nil {
		return program.GlobalSettings{}, fmt.Errorf("get global settings: %w", err)
	}
	return gs, nil
}
