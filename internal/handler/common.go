package handler // handler defines http handlers

import (
    "context"
    "database/sql"
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/subvault/subscription-portal/internal/model"
    "github.com/subvault/subscription-portal/internal/repository"
    "github.com/subvault/subscription-portal/internal/workflow"
)

// getUserID extracts the user_id claim from echo.Context and converts it
// to uint64. JWT numeric claims decode as float64.
func getUserID(c echo.Context) (uint64, error) {
    v := c.Get("user_id")
    switch t := v.(type) {
    case uint64:
        return t, nil
    case int:
        return uint64(t), nil
    case int64:
        return uint64(t), nil
    case float64:
        return uint64(t), nil
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, nil
        }
    }
    return 0, errors.New("invalid user_id in context")
}

// currentUser loads the authenticated user's directory entry. The claims
// identify the user, but the database row is authoritative for role and
// department so an admin role change applies on the next request rather
// than at token expiry.
func currentUser(ctx context.Context, c echo.Context, users *repository.UserRepo) (model.User, error) {
    uid, err := getUserID(c)
    if err != nil {
        return model.User{}, err
    }
    return users.GetByID(ctx, uid)
}

// paramID parses the :id route parameter.
func paramID(c echo.Context) (uint64, error) {
    return strconv.ParseUint(c.Param("id"), 10, 64)
}

// reqCtx bounds a request's database work to five seconds, matching the
// budget used throughout the handlers.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// workflowError translates engine and repository errors into the JSON
// error responses the UI expects.
func workflowError(c echo.Context, err error) error {
    switch {
    case errors.Is(err, workflow.ErrNotFound) || errors.Is(err, sql.ErrNoRows):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
    case errors.Is(err, workflow.ErrAccessDenied) || errors.Is(err, repository.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
    case errors.Is(err, workflow.ErrInvalidTransition):
        return c.JSON(http.StatusConflict, echo.Map{"error": "invalid status transition"})
    case errors.Is(err, workflow.ErrVersionConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": "subscription was modified concurrently, reload and retry"})
    case errors.Is(err, workflow.ErrNoHOD):
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
    case errors.Is(err, workflow.ErrValidation):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    case errors.Is(err, repository.ErrConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
    }
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// ----- subscription response DTO -----

type financePart struct {
    APAApproverID *uint64             `json:"apa_approver_id,omitempty"`
    QueueAddedAt  *time.Time          `json:"queue_added_at,omitempty"`
    AMLog         *model.AMLog        `json:"am_log,omitempty"`
    APAExecution  *model.APAExecution `json:"apa_execution,omitempty"`
}

type subscriptionResp struct {
    ID                  uint64            `json:"id"`
    ToolName            string            `json:"tool_name"`
    Vendor              string            `json:"vendor"`
    Department          string            `json:"department"`
    Purpose             string            `json:"purpose,omitempty"`
    Location            string            `json:"location,omitempty"`
    Frequency           string            `json:"frequency,omitempty"`
    RequestType         string            `json:"request_type,omitempty"`
    CostCents           int64             `json:"cost_cents"`
    Currency            string            `json:"currency"`
    EnteredAmountCents  int64             `json:"entered_amount_cents"`
    EnteredCurrency     string            `json:"entered_currency"`
    ConversionRate      float64           `json:"conversion_rate"`
    DurationMonths      int               `json:"duration_months"`
    MonthlyCostCents    int64             `json:"monthly_cost_cents"`
    Status              string            `json:"status"`
    RequesterID         uint64            `json:"requester_id"`
    HODID               uint64            `json:"hod_id"`
    ApprovedBy          *uint64           `json:"approved_by,omitempty"`
    ApprovalDate        *time.Time        `json:"approval_date,omitempty"`
    Remarks             string            `json:"remarks,omitempty"`
    DeclinedByRole      string            `json:"declined_by_role,omitempty"`
    DeclineReason       string            `json:"decline_reason,omitempty"`
    RequestDate         time.Time         `json:"request_date"`
    RenewalDate         *time.Time        `json:"renewal_date,omitempty"`
    ExpiryDate          *time.Time        `json:"expiry_date,omitempty"`
    ProjectedExpiry     time.Time         `json:"projected_expiry"`
    AlertDays           int               `json:"alert_days"`
    LastAlertAt         *time.Time        `json:"last_alert_at,omitempty"`
    MonthlyContinuation map[string]string `json:"monthly_continuation,omitempty"`
    Finance             financePart       `json:"finance"`
    Version             uint64            `json:"version"`
}

// toSubscriptionResp flattens a subscription for the API. The projected
// expiry shown before payment is a display value; the persisted expiry
// appears only once the payment has been executed.
func toSubscriptionResp(s *model.Subscription) subscriptionResp {
    return subscriptionResp{
        ID:                  s.ID,
        ToolName:            s.ToolName,
        Vendor:              s.Vendor,
        Department:          s.Department,
        Purpose:             s.Purpose,
        Location:            s.Location,
        Frequency:           s.Frequency,
        RequestType:         s.RequestType,
        CostCents:           s.CostCents,
        Currency:            workflow.BaseCurrency,
        EnteredAmountCents:  s.EnteredAmountCents,
        EnteredCurrency:     s.EnteredCurrency,
        ConversionRate:      s.ConversionRate,
        DurationMonths:      s.DurationMonths,
        MonthlyCostCents:    workflow.MonthlyCostCents(s.CostCents, s.DurationMonths),
        Status:              s.Status,
        RequesterID:         s.RequesterID,
        HODID:               s.HODID,
        ApprovedBy:          s.ApprovedBy,
        ApprovalDate:        s.ApprovalDate,
        Remarks:             s.Remarks,
        DeclinedByRole:      s.DeclinedByRole,
        DeclineReason:       s.DeclineReason,
        RequestDate:         s.RequestDate,
        RenewalDate:         s.RenewalDate,
        ExpiryDate:          s.ExpiryDate,
        ProjectedExpiry:     workflow.ProjectedExpiry(s.RequestDate, s.DurationMonths),
        AlertDays:           s.AlertDays,
        LastAlertAt:         s.LastAlertAt,
        MonthlyContinuation: s.MonthlyContinuation,
        Finance: financePart{
            APAApproverID: s.Finance.APAApproverID,
            QueueAddedAt:  s.Finance.QueueAddedAt,
            AMLog:         s.Finance.AMLog,
            APAExecution:  s.Finance.APAExecution,
        },
        Version: s.Version,
    }
}

func toSubscriptionList(subs []model.Subscription) []subscriptionResp {
    out := make([]subscriptionResp, 0, len(subs))
    for i := range subs {
        out = append(out, toSubscriptionResp(&subs[i]))
    }
    return out
}
