package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/robocupjunioraustralia/registration-billing/internal/invoice"
	"github.com/robocupjunioraustralia/registration-billing/internal/pricing"
)

// InvoiceRepo implements invoice.Repository.
type InvoiceRepo struct {
	Store Store
}

const invoiceColumns = `id, event_id, school_id, campus_id, invoice_to_user_id,
	invoice_number, invoiced_date, purchase_order_number, notes,
	cached_excl_gst, cached_gst, cached_incl_gst, cached_quantity,
	created_at, updated_at`

func scanInvoice(row pgx.Row) (invoice.Invoice, error) {
	var inv invoice.Invoice
	var exclGST, gst, inclGST decimal.NullDecimal
	var quantity *int32
	err := row.Scan(
		&inv.ID, &inv.EventID, &inv.SchoolID, &inv.CampusID, &inv.InvoiceToUserID,
		&inv.InvoiceNumber, &inv.InvoicedDate, &inv.PurchaseOrderNumber, &inv.Notes,
		&exclGST, &gst, &inclGST, &quantity,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return invoice.Invoice{}, err
	}
	if exclGST.Valid && gst.Valid && inclGST.Valid && quantity != nil {
		inv.Cached = &pricing.Totals{
			ExclGST:  exclGST.Decimal,
			GST:      gst.Decimal,
			InclGST:  inclGST.Decimal,
			Quantity: *quantity,
		}
	}
	return inv, nil
}

func (r InvoiceRepo) Get(ctx context.Context, id uuid.UUID) (invoice.Invoice, error) {
	row := r.Store.q(ctx).QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	inv, err := scanInvoice(row)
	if isNoRows(err) {
		return invoice.Invoice{}, invoice.ErrNotFound
	}
	if err != nil {
		return invoice.Invoice{}, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

func (r InvoiceRepo) GetByScope(ctx context.Context, scope invoice.Scope) (invoice.Invoice, error) {
	sql := `SELECT ` + invoiceColumns + ` FROM invoices WHERE event_id = $1`
	args := []any{scope.EventID}

	switch {
	case scope.SchoolID == nil:
		args = append(args, scope.MentorUserID)
		sql += fmt.Sprintf(` AND school_id IS NULL AND invoice_to_user_id = $%d`, len(args))
	case scope.CampusID == nil:
		args = append(args, *scope.SchoolID)
		sql += fmt.Sprintf(` AND school_id = $%d AND campus_id IS NULL`, len(args))
	default:
		args = append(args, *scope.SchoolID, *scope.CampusID)
		sql += fmt.Sprintf(` AND school_id = $%d AND campus_id = $%d`, len(args)-1, len(args))
	}

	inv, err := scanInvoice(r.Store.q(ctx).QueryRow(ctx, sql, args...))
	if isNoRows(err) {
		return invoice.Invoice{}, invoice.ErrNotFound
	}
	if err != nil {
		return invoice.Invoice{}, fmt.Errorf("get invoice by scope: %w", err)
	}
	return inv, nil
}

func (r InvoiceRepo) Create(ctx context.Context, inv invoice.Invoice) error {
	_, err := r.Store.q(ctx).Exec(ctx, `
		INSERT INTO invoices (
			id, event_id, school_id, campus_id, invoice_to_user_id,
			invoice_number, invoiced_date, purchase_order_number, notes,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
		inv.ID, inv.EventID, inv.SchoolID, inv.CampusID, inv.InvoiceToUserID,
		inv.InvoiceNumber, inv.InvoicedDate, inv.PurchaseOrderNumber, inv.Notes,
		inv.CreatedAt,
	)
	if isUniqueViolation(err) {
		return invoice.ErrDuplicateScope
	}
	if err != nil {
		return fmt.Errorf("create invoice: %w", err)
	}
	return nil
}

func (r InvoiceRepo) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]invoice.Invoice, error) {
	rows, err := r.Store.q(ctx).Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE event_id = $1 ORDER BY invoice_number`,
		eventID)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []invoice.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (r InvoiceRepo) SaveTotals(ctx context.Context, id uuid.UUID, totals pricing.Totals) error {
	tag, err := r.Store.q(ctx).Exec(ctx, `
		UPDATE invoices
		   SET cached_excl_gst = $2,
		       cached_gst = $3,
		       cached_incl_gst = $4,
		       cached_quantity = $5,
		       updated_at = now()
		 WHERE id = $1`,
		id, totals.ExclGST, totals.GST, totals.InclGST, totals.Quantity)
	if err != nil {
		return fmt.Errorf("save totals: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return invoice.ErrNotFound
	}
	return nil
}

func (r InvoiceRepo) SetInvoicedDate(ctx context.Context, id uuid.UUID, date time.Time) error {
	_, err := r.Store.q(ctx).Exec(ctx, `
		UPDATE invoices
		   SET invoiced_date = $2, updated_at = now()
		 WHERE id = $1 AND invoiced_date IS NULL`,
		id, date)
	if err != nil {
		return fmt.Errorf("set invoiced date: %w", err)
	}
	return nil
}

func (r InvoiceRepo) UpdateDetails(ctx context.Context, id uuid.UUID, purchaseOrderNumber, notes string) error {
	tag, err := r.Store.q(ctx).Exec(ctx, `
		UPDATE invoices
		   SET purchase_order_number = $2, notes = $3, updated_at = now()
		 WHERE id = $1`,
		id, purchaseOrderNumber, notes)
	if err != nil {
		return fmt.Errorf("update invoice details: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return invoice.ErrNotFound
	}
	return nil
}

func (r InvoiceRepo) CampusInvoiceExists(ctx context.Context, eventID, schoolID uuid.UUID) (bool, error) {
	var exists bool
	err := r.Store.q(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM invoices
			 WHERE event_id = $1 AND school_id = $2 AND campus_id IS NOT NULL
		)`, eventID, schoolID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("campus invoice exists: %w", err)
	}
	return exists, nil
}

// NextInvoiceNumber allocates from the counter row, seeding it from the
// configured first invoice number on the way through. The row lock serialises
// concurrent allocations.
func (r InvoiceRepo) NextInvoiceNumber(ctx context.Context) (int64, error) {
	var number int64
	err := r.Store.q(ctx).QueryRow(ctx, `
		UPDATE invoice_number_seq
		   SET last_value = GREATEST(
			last_value + 1,
			COALESCE((SELECT first_invoice_number FROM global_settings LIMIT 1), 1))
		 WHERE singleton
		RETURNING last_value`).Scan(&number)
	if err != nil {
		return 0, fmt.Errorf("next invoice number: %w", err)
	}
	return number, nil
}

// PaymentRepo implements invoice.PaymentRepository.
type PaymentRepo struct {
	Store Store
}

func (r PaymentRepo) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]invoice.Payment, error) {
	rows, err := r.Store.q(ctx).Query(ctx, `
		SELECT id, invoice_id, amount_paid, date_paid, created_at
		  FROM payments
		 WHERE invoice_id = $1
		 ORDER BY date_paid, created_at`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []invoice.Payment
	for rows.Next() {
		var p invoice.Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.AmountPaid, &p.DatePaid, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r PaymentRepo) Insert(ctx context.Context, p invoice.Payment) error {
	_, err := r.Store.q(ctx).Exec(ctx, `
		INSERT INTO payments (id, invoice_id, amount_paid, date_paid, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.InvoiceID, p.AmountPaid, p.DatePaid, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r PaymentRepo) SumByInvoice(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.Store.q(ctx).QueryRow(ctx,
		`SELECT COALESCE(SUM(amount_paid), 0) FROM payments WHERE invoice_id = $1`,
		invoiceID).Scan(&sum)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("sum payments: %w", err)
	}
	return sum, nil
}
