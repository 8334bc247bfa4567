package repository

import (
    "context"
    "database/sql"
    "encoding/json"
    "fmt"
    "time"

    "github.com/subvault/subscription-portal/internal/model"
    "github.com/subvault/subscription-portal/internal/workflow"
)

// SubscriptionRepo persists subscriptions and their archival records.
// It implements workflow.SubscriptionStore: updates are conditional on
// the version the caller read, so two actors racing on the same
// subscription cannot silently overwrite each other. The finance
// sub-record and the monthly continuation map are stored as JSON
// columns and round-trip unchanged.
type SubscriptionRepo struct{ DB *sql.DB }

func NewSubscriptionRepo(db *sql.DB) *SubscriptionRepo { return &SubscriptionRepo{DB: db} }

const subscriptionColumns = `id, tool_name, vendor, department, purpose, location, frequency, request_type,
cost_cents, entered_amount_cents, entered_currency, conversion_rate, duration_months, base_monthly_cost_cents,
status, requester_id, hod_id, approved_by, approval_date, remarks, declined_by_role, decline_reason,
request_date, renewal_date, expiry_date, alert_days, last_alert_at, monthly_continuation, finance,
payment_mode, transaction_id, invoice_number, version, created_at, updated_at`

// Get loads a subscription by id.
func (r *SubscriptionRepo) Get(ctx context.Context, id uint64) (*model.Subscription, error) {
    row := r.DB.QueryRowContext(ctx,
        "SELECT "+subscriptionColumns+" FROM subscriptions WHERE id=? LIMIT 1", id)
    s, err := scanSubscription(row)
    if err == sql.ErrNoRows {
        return nil, workflow.ErrNotFound
    }
    return s, err
}

// Create inserts a new subscription and populates its ID and version.
func (r *SubscriptionRepo) Create(ctx context.Context, s *model.Subscription) error {
    financeJSON, err := encodeFinance(s.Finance)
    if err != nil {
        return err
    }
    contJSON, err := encodeContinuation(s.MonthlyContinuation)
    if err != nil {
        return err
    }
    res, err := r.DB.ExecContext(ctx, `INSERT INTO subscriptions
(tool_name, vendor, department, purpose, location, frequency, request_type,
 cost_cents, entered_amount_cents, entered_currency, conversion_rate, duration_months, base_monthly_cost_cents,
 status, requester_id, hod_id, approved_by, approval_date, remarks, declined_by_role, decline_reason,
 request_date, renewal_date, expiry_date, alert_days, last_alert_at, monthly_continuation, finance,
 payment_mode, transaction_id, invoice_number, version)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,1)`,
        s.ToolName, s.Vendor, s.Department, s.Purpose, s.Location, s.Frequency, s.RequestType,
        s.CostCents, s.EnteredAmountCents, s.EnteredCurrency, s.ConversionRate, s.DurationMonths, s.BaseMonthlyCostCents,
        s.Status, s.RequesterID, s.HODID, s.ApprovedBy, s.ApprovalDate, s.Remarks, s.DeclinedByRole, s.DeclineReason,
        s.RequestDate, s.RenewalDate, s.ExpiryDate, s.AlertDays, s.LastAlertAt, contJSON, financeJSON,
        s.PaymentMode, s.TransactionID, s.InvoiceNumber)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    s.ID = uint64(id)
    s.Version = 1
    return nil
}

// Update writes the full subscription row conditionally on the version
// the caller read. When the condition fails the row is re-checked to
// distinguish a concurrent write (ErrVersionConflict) from a deleted
// subscription (ErrNotFound). On success the caller's copy carries the
// new version.
func (r *SubscriptionRepo) Update(ctx context.Context, s *model.Subscription) error {
    financeJSON, err := encodeFinance(s.Finance)
    if err != nil {
        return err
    }
    contJSON, err := encodeContinuation(s.MonthlyContinuation)
    if err != nil {
        return err
    }
    res, err := r.DB.ExecContext(ctx, `UPDATE subscriptions SET
tool_name=?, vendor=?, department=?, purpose=?, location=?, frequency=?, request_type=?,
cost_cents=?, entered_amount_cents=?, entered_currency=?, conversion_rate=?, duration_months=?, base_monthly_cost_cents=?,
status=?, requester_id=?, hod_id=?, approved_by=?, approval_date=?, remarks=?, declined_by_role=?, decline_reason=?,
request_date=?, renewal_date=?, expiry_date=?, alert_days=?, last_alert_at=?, monthly_continuation=?, finance=?,
payment_mode=?, transaction_id=?, invoice_number=?, version=version+1
WHERE id=? AND version=?`,
        s.ToolName, s.Vendor, s.Department, s.Purpose, s.Location, s.Frequency, s.RequestType,
        s.CostCents, s.EnteredAmountCents, s.EnteredCurrency, s.ConversionRate, s.DurationMonths, s.BaseMonthlyCostCents,
        s.Status, s.RequesterID, s.HODID, s.ApprovedBy, s.ApprovalDate, s.Remarks, s.DeclinedByRole, s.DeclineReason,
        s.RequestDate, s.RenewalDate, s.ExpiryDate, s.AlertDays, s.LastAlertAt, contJSON, financeJSON,
        s.PaymentMode, s.TransactionID, s.InvoiceNumber,
        s.ID, s.Version)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        var exists bool
        if err := r.DB.QueryRowContext(ctx,
            "SELECT EXISTS(SELECT 1 FROM subscriptions WHERE id=?)", s.ID).Scan(&exists); err != nil {
            return err
        }
        if exists {
            return workflow.ErrVersionConflict
        }
        return workflow.ErrNotFound
    }
    s.Version++
    return nil
}

// Archive snapshots the subscription into deleted_subscriptions and
// removes the original row in one transaction.
func (r *SubscriptionRepo) Archive(ctx context.Context, d *model.DeletedSubscription) error {
    snapshot, err := json.Marshal(d.Subscription)
    if err != nil {
        return fmt.Errorf("marshal snapshot: %w", err)
    }
    tx, err := r.DB.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    defer func() { _ = tx.Rollback() }()

    res, err := tx.ExecContext(ctx,
        "INSERT INTO deleted_subscriptions (subscription_id, snapshot, justification, deleted_by, deleted_at) VALUES (?,?,?,?,?)",
        d.Subscription.ID, snapshot, d.Justification, d.DeletedBy, d.DeletedAt)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    del, err := tx.ExecContext(ctx, "DELETE FROM subscriptions WHERE id=?", d.Subscription.ID)
    if err != nil {
        return err
    }
    if n, _ := del.RowsAffected(); n == 0 {
        return workflow.ErrNotFound
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    d.ID = uint64(id)
    return nil
}

// ListByRequester returns all subscriptions raised by a user, newest first.
func (r *SubscriptionRepo) ListByRequester(ctx context.Context, userID uint64) ([]model.Subscription, error) {
    return r.list(ctx,
        "SELECT "+subscriptionColumns+" FROM subscriptions WHERE requester_id=? ORDER BY request_date DESC", userID)
}

// ListByDepartment returns all subscriptions of a department, newest
// first. Used by the HOD view.
func (r *SubscriptionRepo) ListByDepartment(ctx context.Context, department string) ([]model.Subscription, error) {
    return r.list(ctx,
        "SELECT "+subscriptionColumns+" FROM subscriptions WHERE department=? ORDER BY request_date DESC", department)
}

// ListByStatus returns all subscriptions in a given status, oldest
// first so finance queues are worked in arrival order.
func (r *SubscriptionRepo) ListByStatus(ctx context.Context, status string) ([]model.Subscription, error) {
    return r.list(ctx,
        "SELECT "+subscriptionColumns+" FROM subscriptions WHERE status=? ORDER BY request_date ASC", status)
}

// ListAll returns every subscription, newest first. Admin view.
func (r *SubscriptionRepo) ListAll(ctx context.Context) ([]model.Subscription, error) {
    return r.list(ctx,
        "SELECT "+subscriptionColumns+" FROM subscriptions ORDER BY request_date DESC")
}

// ListDeleted returns the archival records, newest first. The embedded
// snapshots are decoded from their JSON documents.
func (r *SubscriptionRepo) ListDeleted(ctx context.Context) ([]model.DeletedSubscription, error) {
    rows, err := r.DB.QueryContext(ctx,
        "SELECT id, snapshot, justification, deleted_by, deleted_at FROM deleted_subscriptions ORDER BY deleted_at DESC")
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var out []model.DeletedSubscription
    for rows.Next() {
        var d model.DeletedSubscription
        var snapshot []byte
        if err := rows.Scan(&d.ID, &snapshot, &d.Justification, &d.DeletedBy, &d.DeletedAt); err != nil {
            return nil, err
        }
        if err := json.Unmarshal(snapshot, &d.Subscription); err != nil {
            return nil, fmt.Errorf("decode snapshot %d: %w", d.ID, err)
        }
        out = append(out, d)
    }
    return out, rows.Err()
}

func (r *SubscriptionRepo) list(ctx context.Context, query string, args ...interface{}) ([]model.Subscription, error) {
    rows, err := r.DB.QueryContext(ctx, query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var out []model.Subscription
    for rows.Next() {
        s, err := scanSubscription(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *s)
    }
    return out, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface{ Scan(dest ...interface{}) error }

func scanSubscription(row scanner) (*model.Subscription, error) {
    var (
        s            model.Subscription
        baseMonthly  sql.NullInt64
        approvedBy   sql.NullInt64
        approvalDate sql.NullTime
        renewalDate  sql.NullTime
        expiryDate   sql.NullTime
        lastAlertAt  sql.NullTime
        contJSON     []byte
        financeJSON  []byte
    )
    err := row.Scan(
        &s.ID, &s.ToolName, &s.Vendor, &s.Department, &s.Purpose, &s.Location, &s.Frequency, &s.RequestType,
        &s.CostCents, &s.EnteredAmountCents, &s.EnteredCurrency, &s.ConversionRate, &s.DurationMonths, &baseMonthly,
        &s.Status, &s.RequesterID, &s.HODID, &approvedBy, &approvalDate, &s.Remarks, &s.DeclinedByRole, &s.DeclineReason,
        &s.RequestDate, &renewalDate, &expiryDate, &s.AlertDays, &lastAlertAt, &contJSON, &financeJSON,
        &s.PaymentMode, &s.TransactionID, &s.InvoiceNumber, &s.Version, &s.CreatedAt, &s.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    if baseMonthly.Valid {
        v := baseMonthly.Int64
        s.BaseMonthlyCostCents = &v
    }
    if approvedBy.Valid {
        v := uint64(approvedBy.Int64)
        s.ApprovedBy = &v
    }
    s.ApprovalDate = nullTimePtr(approvalDate)
    s.RenewalDate = nullTimePtr(renewalDate)
    s.ExpiryDate = nullTimePtr(expiryDate)
    s.LastAlertAt = nullTimePtr(lastAlertAt)
    if s.MonthlyContinuation, err = decodeContinuation(contJSON); err != nil {
        return nil, err
    }
    if s.Finance, err = decodeFinance(financeJSON); err != nil {
        return nil, err
    }
    return &s, nil
}

func nullTimePtr(t sql.NullTime) *time.Time {
    if !t.Valid {
        return nil
    }
    v := t.Time
    return &v
}

// encodeFinance serializes the finance sub-record for the JSON column.
func encodeFinance(f model.FinanceRecord) ([]byte, error) {
    return json.Marshal(f)
}

// decodeFinance restores the finance sub-record. NULL and empty columns
// decode to an empty record.
func decodeFinance(b []byte) (model.FinanceRecord, error) {
    var f model.FinanceRecord
    if len(b) == 0 {
        return f, nil
    }
    if err := json.Unmarshal(b, &f); err != nil {
        return f, fmt.Errorf("decode finance record: %w", err)
    }
    return f, nil
}

func encodeContinuation(m map[string]string) ([]byte, error) {
    if m == nil {
        m = map[string]string{}
    }
    return json.Marshal(m)
}

func decodeContinuation(b []byte) (map[string]string, error) {
    m := map[string]string{}
    if len(b) == 0 {
        return m, nil
    }
    if err := json.Unmarshal(b, &m); err != nil {
        return nil, fmt.Errorf("decode continuation map: %w", err)
    }
    return m, nil
}
