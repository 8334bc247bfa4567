package workflow

import (
    "context"
    "fmt"
    "strings"
    "time"

    "github.com/subvault/subscription-portal/internal/model"
)

// Engine owns the subscription lifecycle. Every operation follows the
// same shape: validate and authorize against the current entity, apply
// the transition to a copy, persist it (conditionally on the version the
// caller read), and only then emit notifications. A failed write leaves
// no partial state and sends nothing.
type Engine struct {
    store    SubscriptionStore
    dir      Directory
    notifier Notifier
    rates    RateTable
    now      func() time.Time
}

// NewEngine wires the engine to its ports. A nil rate table falls back
// to the built-in defaults.
func NewEngine(store SubscriptionStore, dir Directory, notifier Notifier, rates RateTable) *Engine {
    if rates == nil {
        rates = DefaultRates()
    }
    return &Engine{
        store:    store,
        dir:      dir,
        notifier: notifier,
        rates:    rates,
        now:      func() time.Time { return time.Now().UTC() },
    }
}

// RequestInput carries the requester-supplied fields of a new
// subscription request. Duration may be given directly in months or as a
// start/end date pair; the date pair wins when both are present.
type RequestInput struct {
    ToolName             string
    Vendor               string
    Department           string
    Purpose              string
    Location             string
    Frequency            string
    RequestType          string
    AmountCents          int64
    Currency             string
    DurationMonths       int
    StartDate            *time.Time
    EndDate              *time.Time
    BaseMonthlyCostCents *int64
    AlertDays            int
}

// RenewInput carries the fields a renewal overwrites on an existing
// subscription.
type RenewInput struct {
    DurationMonths int
    AmountCents    int64
    Currency       string
    Remarks        string
    AlertDays      int
}

// AMLogInput is the verification data an AM submits.
type AMLogInput struct {
    Note               string
    RecommendedPayment string
    PlannedAmountCents int64
    PlannedCurrency    string
    PlannedDate        *time.Time
}

// ExecutionInput is the payment-execution data an APA submits.
type ExecutionInput struct {
    PaymentType     string
    PaymentDate     *time.Time
    TransactionID   string
    AmountPaidCents int64
    Currency        string
    ReceiptRef      string
    InvoiceNumber   string
    Notes           string
}

// SubmitRequest creates a new subscription in Pending for the acting
// user. The department's HOD is resolved up front; if none exists the
// request is rejected before anything is written.
func (e *Engine) SubmitRequest(ctx context.Context, actor model.User, in RequestInput) (*model.Subscription, error) {
    if !actor.CanRequest() {
        return nil, ErrAccessDenied
    }
    if strings.TrimSpace(in.ToolName) == "" {
        return nil, fmt.Errorf("%w: tool name required", ErrValidation)
    }
    if strings.TrimSpace(in.Department) == "" {
        return nil, fmt.Errorf("%w: department required", ErrValidation)
    }
    if in.AmountCents <= 0 {
        return nil, fmt.Errorf("%w: cost must be positive", ErrValidation)
    }

    duration := in.DurationMonths
    if in.StartDate != nil && in.EndDate != nil {
        duration = MonthsBetween(*in.StartDate, *in.EndDate)
    }
    if duration < 1 {
        duration = 1
    }

    costCents, rate, err := e.rates.Convert(in.AmountCents, in.Currency)
    if err != nil {
        return nil, err
    }

    hod, err := e.dir.HODForDepartment(ctx, in.Department)
    if err != nil {
        return nil, err
    }
    if hod == nil {
        return nil, fmt.Errorf("%w: %s", ErrNoHOD, in.Department)
    }

    now := e.now()
    currency := strings.ToUpper(strings.TrimSpace(in.Currency))
    if currency == "" {
        currency = BaseCurrency
    }
    s := &model.Subscription{
        ToolName:             strings.TrimSpace(in.ToolName),
        Vendor:               strings.TrimSpace(in.Vendor),
        Department:           strings.TrimSpace(in.Department),
        Purpose:              in.Purpose,
        Location:             in.Location,
        Frequency:            in.Frequency,
        RequestType:          in.RequestType,
        CostCents:            costCents,
        EnteredAmountCents:   in.AmountCents,
        EnteredCurrency:      currency,
        ConversionRate:       rate,
        DurationMonths:       duration,
        BaseMonthlyCostCents: in.BaseMonthlyCostCents,
        Status:               model.StatusPending,
        RequesterID:          actor.ID,
        HODID:                hod.ID,
        RequestDate:          now,
        AlertDays:            ClampAlertDays(in.AlertDays, 7),
        MonthlyContinuation:  map[string]string{},
    }
    if err := e.store.Create(ctx, s); err != nil {
        return nil, err
    }

    e.notifier.Notify(ctx, actor.ID,
        fmt.Sprintf("Subscription request for %s submitted and sent to %s for approval.", s.ToolName, hod.Name))
    e.notifier.Notify(ctx, hod.ID,
        fmt.Sprintf("New subscription request for %s from %s awaits your approval.", s.ToolName, actor.Name))
    return s, nil
}

// Renew restarts an existing subscription's cycle: status returns to
// Pending, the requester-supplied fields are overwritten, and all
// approval and finance state from the previous cycle is cleared. The
// department's current HOD is re-resolved and, as with a new request,
// the renewal is rejected before mutation when none exists.
func (e *Engine) Renew(ctx context.Context, actor model.User, subID uint64, in RenewInput) (*model.Subscription, error) {
    s, err := e.store.Get(ctx, subID)
    if err != nil {
        return nil, err
    }
    if !e.mayRenew(actor, s) {
        return nil, ErrAccessDenied
    }
    if in.DurationMonths < 1 {
        return nil, fmt.Errorf("%w: duration must be at least one month", ErrValidation)
    }
    if in.AmountCents <= 0 {
        return nil, fmt.Errorf("%w: cost must be positive", ErrValidation)
    }

    hod, err := e.dir.HODForDepartment(ctx, s.Department)
    if err != nil {
        return nil, err
    }
    if hod == nil {
        return nil, fmt.Errorf("%w: %s", ErrNoHOD, s.Department)
    }

    costCents, rate, err := e.rates.Convert(in.AmountCents, in.Currency)
    if err != nil {
        return nil, err
    }

    e.applyRenewal(s, hod.ID, renewalFields{
        durationMonths: in.DurationMonths,
        costCents:      costCents,
        enteredCents:   in.AmountCents,
        currency:       in.Currency,
        rate:           rate,
        remarks:        in.Remarks,
        alertDays:      ClampAlertDays(in.AlertDays, s.AlertDays),
    })
    if err := e.store.Update(ctx, s); err != nil {
        return nil, err
    }

    e.notifier.Notify(ctx, s.RequesterID,
        fmt.Sprintf("Renewal request for %s submitted and sent to %s for approval.", s.ToolName, hod.Name))
    e.notifier.Notify(ctx, hod.ID,
        fmt.Sprintf("Renewal request for %s awaits your approval.", s.ToolName))
    return s, nil
}

// Decide records the HOD's approval or decline of a Pending request.
// Decline is additionally reachable from Approved by an APA finance
// user, which withdraws the request from the finance queue. The decline
// actor's role is recorded structurally, not encoded into the remarks.
func (e *Engine) Decide(ctx context.Context, actor model.User, subID uint64, decision, reason string) (*model.Subscription, error) {
    s, err := e.store.Get(ctx, subID)
    if err != nil {
        return nil, err
    }
    now := e.now()

    switch decision {
    case model.StatusApproved:
        if s.Status != model.StatusPending {
            return nil, ErrInvalidTransition
        }
        if actor.ID != s.HODID {
            return nil, ErrAccessDenied
        }
        s.Status = model.StatusApproved
        s.ApprovedBy = &actor.ID
        s.ApprovalDate = &now
        if strings.TrimSpace(reason) != "" {
            s.Remarks = "HOD Note: " + reason
        }
    case model.StatusDeclined:
        switch s.Status {
        case model.StatusPending:
            if actor.ID != s.HODID {
                return nil, ErrAccessDenied
            }
            s.DeclinedByRole = model.DeclinedByHOD
        case model.StatusApproved:
            if !actor.IsFinance(model.SubRoleAPA) {
                return nil, ErrAccessDenied
            }
            s.DeclinedByRole = model.DeclinedByFinanceAPA
        default:
            return nil, ErrInvalidTransition
        }
        s.Status = model.StatusDeclined
        s.DeclineReason = reason
        s.ApprovedBy = &actor.ID
        s.ApprovalDate = &now
    default:
        return nil, fmt.Errorf("%w: decision must be %s or %s", ErrValidation, model.StatusApproved, model.StatusDeclined)
    }

    if err := e.store.Update(ctx, s); err != nil {
        return nil, err
    }

    if s.Status == model.StatusApproved {
        e.notifier.Notify(ctx, s.RequesterID,
            fmt.Sprintf("Your subscription request for %s was approved by %s.", s.ToolName, actor.Name))
        e.fanOut(ctx, model.SubRoleAPA,
            fmt.Sprintf("Subscription %s (%s) is approved and awaits finance review.", s.ToolName, s.Department))
    } else {
        e.notifier.Notify(ctx, s.RequesterID,
            fmt.Sprintf("Your subscription request for %s was declined: %s", s.ToolName, reason))
    }
    return s, nil
}

// ForwardToAM moves an Approved subscription into the AM verification
// queue. Only APA finance users may forward.
func (e *Engine) ForwardToAM(ctx context.Context, actor model.User, subID uint64) (*model.Subscription, error) {
    s, err := e.store.Get(ctx, subID)
    if err != nil {
        return nil, err
    }
    if !actor.IsFinance(model.SubRoleAPA) {
        return nil, ErrAccessDenied
    }
    if s.Status != model.StatusApproved {
        return nil, ErrInvalidTransition
    }

    now := e.now()
    s.Status = model.StatusForwardedToAM
    s.Finance.APAApproverID = &actor.ID
    s.Finance.QueueAddedAt = &now
    if err := e.store.Update(ctx, s); err != nil {
        return nil, err
    }

    e.fanOut(ctx, model.SubRoleAM,
        fmt.Sprintf("Subscription %s awaits payment verification.", s.ToolName))
    return s, nil
}

// SubmitAMLog records the AM's verification of payment details and
// moves the subscription to VerifiedByAM. Only AM finance users may
// submit, and only while the subscription sits in their queue.
func (e *Engine) SubmitAMLog(ctx context.Context, actor model.User, subID uint64, in AMLogInput) (*model.Subscription, error) {
    s, err := e.store.Get(ctx, subID)
    if err != nil {
        return nil, err
    }
    if !actor.IsFinance(model.SubRoleAM) {
        return nil, ErrAccessDenied
    }
    if s.Status != model.StatusForwardedToAM {
        return nil, ErrInvalidTransition
    }
    if in.PlannedAmountCents <= 0 {
        return nil, fmt.Errorf("%w: planned amount must be positive", ErrValidation)
    }

    now := e.now()
    s.Status = model.StatusVerifiedByAM
    s.Finance.AMLog = &model.AMLog{
        Note:               in.Note,
        RecommendedPayment: in.RecommendedPayment,
        PlannedAmountCents: in.PlannedAmountCents,
        PlannedCurrency:    in.PlannedCurrency,
        PlannedDate:        in.PlannedDate,
        SubmittedBy:        actor.ID,
        SubmittedAt:        now,
    }
    if err := e.store.Update(ctx, s); err != nil {
        return nil, err
    }

    e.fanOut(ctx, model.SubRoleAPA,
        fmt.Sprintf("Payment details for %s verified; ready for execution.", s.ToolName))
    return s, nil
}

// MarkAsPaid records the APA's payment execution. The subscription moves
// to PaymentCompleted and the expiry date becomes persisted truth:
// request date plus the duration in months. The flat payment columns are
// mirrored from the execution record for older report queries.
func (e *Engine) MarkAsPaid(ctx context.Context, actor model.User, subID uint64, in ExecutionInput) (*model.Subscription, error) {
    s, err := e.store.Get(ctx, subID)
    if err != nil {
        return nil, err
    }
    if !actor.IsFinance(model.SubRoleAPA) {
        return nil, ErrAccessDenied
    }
    if s.Status != model.StatusVerifiedByAM {
        return nil, ErrInvalidTransition
    }
    if in.AmountPaidCents <= 0 {
        return nil, fmt.Errorf("%w: amount paid must be positive", ErrValidation)
    }

    now := e.now()
    expiry := ProjectedExpiry(s.RequestDate, s.DurationMonths)
    s.Status = model.StatusPaymentCompleted
    s.ExpiryDate = &expiry
    s.Finance.APAExecution = &model.APAExecution{
        PaymentType:     in.PaymentType,
        PaymentDate:     in.PaymentDate,
        TransactionID:   in.TransactionID,
        AmountPaidCents: in.AmountPaidCents,
        Currency:        in.Currency,
        ReceiptRef:      in.ReceiptRef,
        InvoiceNumber:   in.InvoiceNumber,
        Notes:           in.Notes,
        ExecutedBy:      actor.ID,
        ExecutedAt:      now,
    }
    s.PaymentMode = in.PaymentType
    s.TransactionID = in.TransactionID
    s.InvoiceNumber = in.InvoiceNumber
    if err := e.store.Update(ctx, s); err != nil {
        return nil, err
    }

    e.notifier.Notify(ctx, s.RequesterID,
        fmt.Sprintf("Payment for %s completed; active until %s.", s.ToolName, expiry.Format("2006-01-02")))
    e.notifier.Notify(ctx, s.HODID,
        fmt.Sprintf("Payment for %s (%s) completed.", s.ToolName, s.Department))
    return s, nil
}

// SyncLifecycle advances the date-driven tail of the chain: a paid
// subscription becomes Active, and an Active (or still-Paid) one whose
// expiry has passed becomes Expired. It persists only when the status
// actually changed. Safe to call on every read path.
func (e *Engine) SyncLifecycle(ctx context.Context, s *model.Subscription) (*model.Subscription, error) {
    now := e.now()
    next := s.Status
    switch s.Status {
    case model.StatusPaymentCompleted:
        next = model.StatusActive
        if s.ExpiryDate != nil && now.After(*s.ExpiryDate) {
            next = model.StatusExpired
        }
    case model.StatusActive:
        if s.ExpiryDate != nil && now.After(*s.ExpiryDate) {
            next = model.StatusExpired
        }
    }
    if next == s.Status {
        return s, nil
    }
    s.Status = next
    if err := e.store.Update(ctx, s); err != nil {
        return nil, err
    }
    return s, nil
}

// TriggerRenewalAlert marks that the expiry alert fired for a
// subscription today. It is idempotent per UTC calendar day: a repeat
// call on the same day is a no-op and reports triggered=false. Outside
// the alert window the call is a validation failure.
func (e *Engine) TriggerRenewalAlert(ctx context.Context, subID uint64) (*model.Subscription, bool, error) {
    s, err := e.store.Get(ctx, subID)
    if err != nil {
        return nil, false, err
    }
    if s.ExpiryDate == nil {
        return nil, false, fmt.Errorf("%w: subscription has no expiry date", ErrValidation)
    }
    now := e.now()
    if !AlertEligible(now, *s.ExpiryDate, s.AlertDays) {
        return nil, false, fmt.Errorf("%w: expiry not within alert window", ErrValidation)
    }
    if s.LastAlertAt != nil && SameCalendarDay(*s.LastAlertAt, now) {
        return s, false, nil
    }
    s.LastAlertAt = &now
    if err := e.store.Update(ctx, s); err != nil {
        return nil, false, err
    }
    return s, true, nil
}

// UpdateContinuation records the monthly continuation decision for an
// Active subscription. The review window is the current calendar month
// and each month may be decided once. A "continued" decision synthesizes
// a one-month renewal on the spot, sharing the standard renewal reset.
func (e *Engine) UpdateContinuation(ctx context.Context, actor model.User, subID uint64, monthKey, decision string) (*model.Subscription, error) {
    s, err := e.store.Get(ctx, subID)
    if err != nil {
        return nil, err
    }
    if !e.mayRenew(actor, s) {
        return nil, ErrAccessDenied
    }
    if s, err = e.SyncLifecycle(ctx, s); err != nil {
        return nil, err
    }
    if s.Status != model.StatusActive {
        return nil, ErrInvalidTransition
    }
    if decision != model.ContinuationContinued && decision != model.ContinuationDeclined {
        return nil, fmt.Errorf("%w: decision must be %s or %s", ErrValidation, model.ContinuationContinued, model.ContinuationDeclined)
    }
    now := e.now()
    if monthKey != MonthKey(now) {
        return nil, fmt.Errorf("%w: continuation window for %s is closed", ErrValidation, monthKey)
    }
    if _, decided := s.MonthlyContinuation[monthKey]; decided {
        return nil, fmt.Errorf("%w: %s already decided", ErrValidation, monthKey)
    }

    var hodID uint64
    var hodName string
    if decision == model.ContinuationContinued {
        // Resolve the HOD before touching anything: the synthesized
        // renewal must fail whole when the department has none.
        hod, err := e.dir.HODForDepartment(ctx, s.Department)
        if err != nil {
            return nil, err
        }
        if hod == nil {
            return nil, fmt.Errorf("%w: %s", ErrNoHOD, s.Department)
        }
        hodID, hodName = hod.ID, hod.Name
    }

    if s.MonthlyContinuation == nil {
        s.MonthlyContinuation = map[string]string{}
    }
    s.MonthlyContinuation[monthKey] = decision

    if decision == model.ContinuationContinued {
        e.applyRenewal(s, hodID, renewalFields{
            durationMonths: 1,
            costCents:      MonthlyCostCents(s.CostCents, s.DurationMonths),
            enteredCents:   MonthlyCostCents(s.EnteredAmountCents, s.DurationMonths),
            currency:       s.EnteredCurrency,
            rate:           s.ConversionRate,
            remarks:        "Monthly continuation for " + monthKey,
            alertDays:      s.AlertDays,
        })
    }
    if err := e.store.Update(ctx, s); err != nil {
        return nil, err
    }

    if decision == model.ContinuationContinued {
        e.notifier.Notify(ctx, s.RequesterID,
            fmt.Sprintf("Continuation of %s for %s submitted and sent to %s for approval.", s.ToolName, monthKey, hodName))
        e.notifier.Notify(ctx, hodID,
            fmt.Sprintf("Continuation request for %s (%s) awaits your approval.", s.ToolName, monthKey))
    }
    return s, nil
}

// AdminDelete removes a subscription after snapshotting it into the
// deleted-subscriptions archive. Only admins may delete, and only with a
// non-empty justification.
func (e *Engine) AdminDelete(ctx context.Context, actor model.User, subID uint64, justification string) error {
    if actor.Role != model.RoleAdmin {
        return ErrAccessDenied
    }
    if strings.TrimSpace(justification) == "" {
        return fmt.Errorf("%w: justification required", ErrValidation)
    }
    s, err := e.store.Get(ctx, subID)
    if err != nil {
        return err
    }
    return e.store.Archive(ctx, &model.DeletedSubscription{
        Subscription:  *s,
        Justification: justification,
        DeletedBy:     actor.ID,
        DeletedAt:     e.now(),
    })
}

// renewalFields bundles the values a renewal overwrites.
type renewalFields struct {
    durationMonths int
    costCents      int64
    enteredCents   int64
    currency       string
    rate           float64
    remarks        string
    alertDays      int
}

// applyRenewal resets a subscription to the start of a new cycle. All
// approval and finance state of the prior cycle is cleared regardless of
// its previous values.
func (e *Engine) applyRenewal(s *model.Subscription, hodID uint64, f renewalFields) {
    now := e.now()
    currency := strings.ToUpper(strings.TrimSpace(f.currency))
    if currency == "" {
        currency = BaseCurrency
    }
    s.Status = model.StatusPending
    s.RequestType = "renewal"
    s.DurationMonths = f.durationMonths
    s.CostCents = f.costCents
    s.EnteredAmountCents = f.enteredCents
    s.EnteredCurrency = currency
    s.ConversionRate = f.rate
    s.Remarks = f.remarks
    s.AlertDays = f.alertDays
    s.HODID = hodID
    s.RequestDate = now
    s.RenewalDate = &now
    s.ApprovedBy = nil
    s.ApprovalDate = nil
    s.DeclinedByRole = ""
    s.DeclineReason = ""
    s.ExpiryDate = nil
    s.LastAlertAt = nil
    s.Finance = model.FinanceRecord{}
    s.PaymentMode = ""
    s.TransactionID = ""
    s.InvoiceNumber = ""
}

// mayRenew reports whether the actor may renew or continue the given
// subscription: its requester, an admin, or a POC of its department.
func (e *Engine) mayRenew(actor model.User, s *model.Subscription) bool {
    if actor.ID == s.RequesterID || actor.Role == model.RoleAdmin {
        return true
    }
    return actor.Role == model.RolePOC && actor.Department == s.Department
}

// fanOut notifies every finance user holding the given sub-role. Lookup
// failures are logged by the Directory implementation; here an error
// simply means nobody gets notified, which matches the fire-and-forget
// contract.
func (e *Engine) fanOut(ctx context.Context, subRole, message string) {
    users, err := e.dir.FinanceUsers(ctx, subRole)
    if err != nil {
        return
    }
    for _, u := range users {
        e.notifier.Notify(ctx, u.ID, message)
    }
}
