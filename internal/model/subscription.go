package model

import "time"

// Subscription status values. A subscription moves along the chain
// Pending -> Approved -> ForwardedToAM -> VerifiedByAM -> PaymentCompleted
// -> Active -> Expired. Declined is absorbing and reachable from Pending
// (by the assigned HOD) and from Approved (by finance/APA). A renewal
// resets any subscription back to Pending and clears the finance state
// of the previous cycle.
const (
    StatusPending          = "Pending"
    StatusApproved         = "Approved"
    StatusForwardedToAM    = "ForwardedToAM"
    StatusVerifiedByAM     = "VerifiedByAM"
    StatusPaymentCompleted = "PaymentCompleted"
    StatusActive           = "Active"
    StatusExpired          = "Expired"
    StatusDeclined         = "Declined"
)

// Decline-actor roles recorded on a declined subscription. Stored as a
// structured column instead of tagging the remarks text with a prefix.
const (
    DeclinedByHOD        = "hod"
    DeclinedByFinanceAPA = "finance_apa"
)

// Continuation decisions recorded per billing month.
const (
    ContinuationContinued = "continued"
    ContinuationDeclined  = "declined"
)

// AMLog is the verification record an AM finance user submits before a
// payment may be executed. It is stored as a JSON document in the
// subscriptions.finance column and must round-trip unchanged.
//
// Fields:
//  Note                 – free-text verification note.
//  RecommendedPayment   – payment type the AM recommends (e.g. "card").
//  PlannedAmountCents   – amount the AM expects to be paid, in cents.
//  PlannedCurrency      – currency of the planned amount.
//  PlannedDate          – date the payment should be executed (nullable).
//  SubmittedBy          – user ID of the AM who verified.
//  SubmittedAt          – when the log was submitted.
type AMLog struct {
    Note               string     `json:"note"`
    RecommendedPayment string     `json:"recommended_payment"`
    PlannedAmountCents int64      `json:"planned_amount_cents"`
    PlannedCurrency    string     `json:"planned_currency"`
    PlannedDate        *time.Time `json:"planned_date,omitempty"`
    SubmittedBy        uint64     `json:"submitted_by"`
    SubmittedAt        time.Time  `json:"submitted_at"`
}

// APAExecution is the payment-execution record an APA finance user
// submits when marking a subscription as paid. Stored inside the same
// JSON finance document as the AMLog.
//
// Fields:
//  PaymentType     – how the payment was made.
//  PaymentDate     – when the payment was made (nullable).
//  TransactionID   – external transaction reference.
//  AmountPaidCents – amount actually paid, in cents of the base currency.
//  Currency        – currency the payment was made in.
//  ReceiptRef      – reference to the uploaded receipt, if any.
//  InvoiceNumber   – vendor invoice number.
//  Notes           – free-text execution notes.
//  ExecutedBy      – user ID of the APA who executed the payment.
//  ExecutedAt      – when the record was submitted.
type APAExecution struct {
    PaymentType     string     `json:"payment_type"`
    PaymentDate     *time.Time `json:"payment_date,omitempty"`
    TransactionID   string     `json:"transaction_id"`
    AmountPaidCents int64      `json:"amount_paid_cents"`
    Currency        string     `json:"currency"`
    ReceiptRef      string     `json:"receipt_ref,omitempty"`
    InvoiceNumber   string     `json:"invoice_number,omitempty"`
    Notes           string     `json:"notes,omitempty"`
    ExecutedBy      uint64     `json:"executed_by"`
    ExecutedAt      time.Time  `json:"executed_at"`
}

// FinanceRecord groups the per-cycle finance state of a subscription.
// A renewal replaces the whole record with an empty one so stale payment
// data never leaks into a new cycle.
type FinanceRecord struct {
    APAApproverID *uint64       `json:"apa_approver_id,omitempty"` // APA who forwarded to AM
    QueueAddedAt  *time.Time    `json:"queue_added_at,omitempty"`  // when the APA forwarded
    AMLog         *AMLog        `json:"am_log,omitempty"`
    APAExecution  *APAExecution `json:"apa_execution,omitempty"`
}

// Empty reports whether no finance activity has been recorded this cycle.
func (f FinanceRecord) Empty() bool {
    return f.APAApproverID == nil && f.QueueAddedAt == nil && f.AMLog == nil && f.APAExecution == nil
}

// Subscription is the central entity of the application: a software
// subscription request moving through HOD approval and the two-person
// finance control (AM verifies, APA executes). It corresponds to a row
// in the `subscriptions` table. The finance record and the monthly
// continuation map are persisted as JSON columns.
//
// Money is held in cents of the base currency. The amount the requester
// originally entered is kept alongside the conversion rate used so the
// normalization is auditable and reversible.
type Subscription struct {
    ID          uint64 // subscriptions.id
    ToolName    string // subscriptions.tool_name
    Vendor      string // subscriptions.vendor
    Department  string // subscriptions.department
    Purpose     string // subscriptions.purpose
    Location    string // subscriptions.location
    Frequency   string // subscriptions.frequency (monthly, yearly, one-time)
    RequestType string // subscriptions.request_type (new, renewal)

    CostCents            int64   // subscriptions.cost_cents (base currency)
    EnteredAmountCents   int64   // subscriptions.entered_amount_cents (as typed by the requester)
    EnteredCurrency      string  // subscriptions.entered_currency
    ConversionRate       float64 // subscriptions.conversion_rate (entered -> base)
    DurationMonths       int     // subscriptions.duration_months
    BaseMonthlyCostCents *int64  // subscriptions.base_monthly_cost_cents (nullable reference price)

    Status         string     // subscriptions.status
    RequesterID    uint64     // subscriptions.requester_id
    HODID          uint64     // subscriptions.hod_id (resolved at request/renewal time)
    ApprovedBy     *uint64    // subscriptions.approved_by (HOD approver, or decliner)
    ApprovalDate   *time.Time // subscriptions.approval_date
    Remarks        string     // subscriptions.remarks (HOD note on approval)
    DeclinedByRole string     // subscriptions.declined_by_role ("" | hod | finance_apa)
    DeclineReason  string     // subscriptions.decline_reason

    RequestDate time.Time  // subscriptions.request_date
    RenewalDate *time.Time // subscriptions.renewal_date (last renewal, nullable)
    ExpiryDate  *time.Time // subscriptions.expiry_date (set only at payment)
    AlertDays   int        // subscriptions.alert_days (1-60)
    LastAlertAt *time.Time // subscriptions.last_alert_at (once per calendar day)

    // MonthlyContinuation records the per-month continuation decision,
    // keyed "2006-01" -> continued|declined. JSON column.
    MonthlyContinuation map[string]string

    // Finance is the per-cycle finance sub-record. JSON column.
    Finance FinanceRecord

    // Legacy mirrors of the APA execution, kept flat for older report
    // queries that predate the JSON finance record.
    PaymentMode   string // subscriptions.payment_mode
    TransactionID string // subscriptions.transaction_id
    InvoiceNumber string // subscriptions.invoice_number

    Version   uint64    // subscriptions.version (optimistic concurrency token)
    CreatedAt time.Time // subscriptions.created_at
    UpdatedAt time.Time // subscriptions.updated_at
}
