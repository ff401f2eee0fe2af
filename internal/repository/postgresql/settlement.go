package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/settlement"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/shared"
	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type instrumentRepository struct {
	tenantRepo
}

func NewInstrumentRepository(db *database.DB, tenants *database.TenantResolver) settlement.InstrumentRepository {
	return &instrumentRepository{tenantRepo{db: db, tenants: tenants}}
}

const instrumentColumns = `
	id, business_id, kind, employee_id, category, description,
	requested_amount, amount, installment_amount, remaining_balance, status,
	payment_method, payment_notes, ledger_transaction_id,
	requested_by, approved_by, approved_at, approval_notes,
	rejected_by, rejected_at, rejection_reason,
	paid_by, paid_at, cancelled_by, cancelled_at, cancel_reason, repaid_at,
	version, created_at, updated_at`

func scanInstrument(row pgx.Row) (settlement.Instrument, error) {
	var i settlement.Instrument
	err := row.Scan(
		&i.ID, &i.BusinessID, &i.Kind, &i.EmployeeID, &i.Category, &i.Description,
		&i.RequestedAmount, &i.Amount, &i.InstallmentAmount, &i.RemainingBalance, &i.Status,
		&i.PaymentMethod, &i.PaymentNotes, &i.LedgerTransactionID,
		&i.RequestedBy, &i.ApprovedBy, &i.ApprovedAt, &i.ApprovalNotes,
		&i.RejectedBy, &i.RejectedAt, &i.RejectionReason,
		&i.PaidBy, &i.PaidAt, &i.CancelledBy, &i.CancelledAt, &i.CancelReason, &i.RepaidAt,
		&i.Version, &i.CreatedAt, &i.UpdatedAt,
	)
	return i, err
}

func (r *instrumentRepository) Create(ctx context.Context, i settlement.Instrument) (settlement.Instrument, error) {
	table, err := r.table(ctx, i.BusinessID, "settlement_instruments")
	if err != nil {
		return settlement.Instrument{}, err
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (
			id, business_id, kind, employee_id, category, description,
			requested_amount, amount, installment_amount, remaining_balance, status,
			requested_by, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 1, $13, $13)
		RETURNING %s
	`, table, instrumentColumns)

	created, err := scanInstrument(r.q(ctx).QueryRow(ctx, query,
		i.ID, i.BusinessID, i.Kind, i.EmployeeID, i.Category, i.Description,
		i.RequestedAmount, i.Amount, i.InstallmentAmount, i.RemainingBalance, i.Status,
		i.RequestedBy, i.CreatedAt,
	))
	if err != nil {
		return settlement.Instrument{}, fmt.Errorf("failed to create settlement instrument: %w", err)
	}
	return created, nil
}

func (r *instrumentRepository) get(ctx context.Context, businessID, id string, forUpdate bool) (settlement.Instrument, error) {
	table, err := r.table(ctx, businessID, "settlement_instruments")
	if err != nil {
		return settlement.Instrument{}, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE business_id = $1 AND id = $2`, instrumentColumns, table)
	if forUpdate {
		query += " FOR UPDATE"
	}

	i, err := scanInstrument(r.q(ctx).QueryRow(ctx, query, businessID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return settlement.Instrument{}, settlement.ErrInstrumentNotFound
		}
		return settlement.Instrument{}, fmt.Errorf("failed to get settlement instrument: %w", err)
	}
	if i.Deductions, err = r.deductions(ctx, businessID, id); err != nil {
		return settlement.Instrument{}, err
	}
	return i, nil
}

func (r *instrumentRepository) GetByID(ctx context.Context, businessID, id string) (settlement.Instrument, error) {
	return r.get(ctx, businessID, id, false)
}

func (r *instrumentRepository) GetForUpdate(ctx context.Context, businessID, id string) (settlement.Instrument, error) {
	return r.get(ctx, businessID, id, true)
}

func (r *instrumentRepository) deductions(ctx context.Context, businessID, instrumentID string) ([]settlement.Deduction, error) {
	table, err := r.table(ctx, businessID, "settlement_deductions")
	if err != nil {
		return nil, err
	}
	rows, err := r.q(ctx).Query(ctx, fmt.Sprintf(`
		SELECT id, reference_type, reference_id, amount, description, posted_at
		FROM %s
		WHERE business_id = $1 AND instrument_id = $2
		ORDER BY posted_at, id
	`, table), businessID, instrumentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlement deductions: %w", err)
	}
	defer rows.Close()

	var out []settlement.Deduction
	for rows.Next() {
		var d settlement.Deduction
		if err := rows.Scan(&d.ID, &d.ReferenceType, &d.ReferenceID, &d.Amount, &d.Description, &d.PostedAt); err != nil {
			return nil, fmt.Errorf("failed to scan settlement deduction: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Update writes the mutable columns under the version check and inserts the
// deductions that are not stored yet. The unique (instrument, reference)
// index rejects a second posting for the same reference.
func (r *instrumentRepository) Update(ctx context.Context, i settlement.Instrument) (settlement.Instrument, error) {
	table, err := r.table(ctx, i.BusinessID, "settlement_instruments")
	if err != nil {
		return settlement.Instrument{}, err
	}
	deductionsTable, err := r.table(ctx, i.BusinessID, "settlement_deductions")
	if err != nil {
		return settlement.Instrument{}, err
	}

	query := fmt.Sprintf(`
		UPDATE %s SET
			amount = $3, installment_amount = $4, remaining_balance = $5, status = $6,
			payment_method = $7, payment_notes = $8, ledger_transaction_id = $9,
			approved_by = $10, approved_at = $11, approval_notes = $12,
			rejected_by = $13, rejected_at = $14, rejection_reason = $15,
			paid_by = $16, paid_at = $17, cancelled_by = $18, cancelled_at = $19, cancel_reason = $20,
			repaid_at = $21, version = version + 1, updated_at = $22
		WHERE business_id = $1 AND id = $2 AND version = $23
		RETURNING %s
	`, table, instrumentColumns)

	q := r.q(ctx)
	updated, err := scanInstrument(q.QueryRow(ctx, query,
		i.BusinessID, i.ID, i.Amount, i.InstallmentAmount, i.RemainingBalance, i.Status,
		i.PaymentMethod, i.PaymentNotes, i.LedgerTransactionID,
		i.ApprovedBy, i.ApprovedAt, i.ApprovalNotes,
		i.RejectedBy, i.RejectedAt, i.RejectionReason,
		i.PaidBy, i.PaidAt, i.CancelledBy, i.CancelledAt, i.CancelReason,
		i.RepaidAt, i.UpdatedAt, i.Version,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return settlement.Instrument{}, fmt.Errorf("%w: instrument %s", shared.ErrConcurrentModification, i.ID)
		}
		return settlement.Instrument{}, fmt.Errorf("failed to update settlement instrument: %w", err)
	}

	for _, d := range i.Deductions {
		_, err := q.Exec(ctx, fmt.Sprintf(`
			INSERT INTO %s (id, business_id, instrument_id, reference_type, reference_id, amount, description, posted_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO NOTHING
		`, deductionsTable), d.ID, i.BusinessID, i.ID, d.ReferenceType, d.ReferenceID, d.Amount, d.Description, d.PostedAt)
		if err != nil {
			if uniqueViolation(err, "uk_settlement_deductions_reference") {
				return settlement.Instrument{}, settlement.ErrDeductionAlreadyApplied
			}
			return settlement.Instrument{}, fmt.Errorf("failed to insert settlement deduction: %w", err)
		}
	}
	updated.Deductions = i.Deductions
	return updated, nil
}

func (r *instrumentRepository) List(ctx context.Context, businessID string, filter settlement.InstrumentFilter) ([]settlement.Instrument, error) {
	table, err := r.table(ctx, businessID, "settlement_instruments")
	if err != nil {
		return nil, err
	}

	conditions := []string{"business_id = $1"}
	args := []interface{}{businessID}
	if filter.Kind != nil {
		args = append(args, *filter.Kind)
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.EmployeeID != nil {
		args = append(args, *filter.EmployeeID)
		conditions = append(conditions, fmt.Sprintf("employee_id = $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY created_at DESC, id DESC`,
		instrumentColumns, table, strings.Join(conditions, " AND "))
	return r.list(ctx, businessID, query, args...)
}

func (r *instrumentRepository) ListOutstandingAdvances(ctx context.Context, businessID, employeeID string) ([]settlement.Instrument, error) {
	table, err := r.table(ctx, businessID, "settlement_instruments")
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE business_id = $1 AND employee_id = $2 AND kind = 'advance'
			AND status = 'paid' AND remaining_balance > 0
		ORDER BY paid_at, id
	`, instrumentColumns, table)
	return r.list(ctx, businessID, query, businessID, employeeID)
}

func (r *instrumentRepository) list(ctx context.Context, businessID, query string, args ...interface{}) ([]settlement.Instrument, error) {
	rows, err := r.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlement instruments: %w", err)
	}
	var out []settlement.Instrument
	for rows.Next() {
		i, err := scanInstrument(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan settlement instrument: %w", err)
		}
		out = append(out, i)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Deductions are read after the cursor is closed: a transaction
	// connection cannot run a second query while rows are pending.
	for idx := range out {
		if out[idx].Deductions, err = r.deductions(ctx, businessID, out[idx].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ========== COMMISSIONS ==========

type commissionLedger struct {
	tenantRepo
}

func NewCommissionLedger(db *database.DB, tenants *database.TenantResolver) settlement.CommissionLedger {
	return &commissionLedger{tenantRepo{db: db, tenants: tenants}}
}

func (r *commissionLedger) GetForUpdate(ctx context.Context, businessID, commissionID string) (settlement.Commission, error) {
	table, err := r.table(ctx, businessID, "commissions")
	if err != nil {
		return settlement.Commission{}, err
	}
	var c settlement.Commission
	err = r.q(ctx).QueryRow(ctx, fmt.Sprintf(`
		SELECT id, business_id, employee_id, amount, deducted
		FROM %s
		WHERE business_id = $1 AND id = $2
		FOR UPDATE
	`, table), businessID, commissionID).Scan(&c.ID, &c.BusinessID, &c.EmployeeID, &c.Amount, &c.Deducted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return settlement.Commission{}, settlement.ErrCommissionNotFound
		}
		return settlement.Commission{}, fmt.Errorf("failed to get commission: %w", err)
	}
	return c, nil
}

// PostDeduction raises the deducted total only while it stays within the
// commission amount and records the posting.
func (r *commissionLedger) PostDeduction(ctx context.Context, businessID, commissionID string, d settlement.Deduction) error {
	table, err := r.table(ctx, businessID, "commissions")
	if err != nil {
		return err
	}
	postings, err := r.table(ctx, businessID, "commission_deductions")
	if err != nil {
		return err
	}

	q := r.q(ctx)
	tag, err := q.Exec(ctx, fmt.Sprintf(`
		UPDATE %s SET deducted = deducted + $3, updated_at = $4
		WHERE business_id = $1 AND id = $2 AND deducted + $3 <= amount
	`, table), businessID, commissionID, d.Amount, d.PostedAt)
	if err != nil {
		return fmt.Errorf("failed to post commission deduction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetForUpdate(ctx, businessID, commissionID); err != nil {
			return err
		}
		return fmt.Errorf("%w: commission %s", settlement.ErrCommissionExhausted, commissionID)
	}

	// The posting shares its id with the instrument-side deduction.
	_, err = q.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, business_id, commission_id, amount, description, posted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, postings), d.ID, businessID, commissionID, d.Amount, d.Description, d.PostedAt)
	if err != nil {
		return fmt.Errorf("failed to record commission deduction: %w", err)
	}
	return nil
}
