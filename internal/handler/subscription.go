package handler

import (
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/subvault/subscription-portal/internal/model"
    "github.com/subvault/subscription-portal/internal/repository"
    "github.com/subvault/subscription-portal/internal/workflow"
)

// SubscriptionHandler serves the requester-facing subscription
// endpoints: submit, list, renew, alert and monthly continuation.
type SubscriptionHandler struct {
    Engine    *workflow.Engine
    Subs      *repository.SubscriptionRepo
    Users     *repository.UserRepo
    RDB       *redis.Client // optional; day-level dedupe of alert triggers across instances
    AlertDays int           // default alert window applied when a request omits alert_days
}

func NewSubscriptionHandler(eng *workflow.Engine, subs *repository.SubscriptionRepo, users *repository.UserRepo, rdb *redis.Client, alertDays int) *SubscriptionHandler {
    return &SubscriptionHandler{Engine: eng, Subs: subs, Users: users, RDB: rdb, AlertDays: alertDays}
}

// ----- DTOs -----

type createSubscriptionReq struct {
    ToolName             string `json:"tool_name"`
    Vendor               string `json:"vendor"`
    Department           string `json:"department"`
    Purpose              string `json:"purpose"`
    Location             string `json:"location"`
    Frequency            string `json:"frequency"`
    RequestType          string `json:"request_type"`
    AmountCents          int64  `json:"amount_cents"`
    Currency             string `json:"currency"`
    DurationMonths       int    `json:"duration_months"`
    StartDate            string `json:"start_date"` // YYYY-MM-DD
    EndDate              string `json:"end_date"`   // YYYY-MM-DD
    BaseMonthlyCostCents *int64 `json:"base_monthly_cost_cents"`
    AlertDays            int    `json:"alert_days"`
}

type renewSubscriptionReq struct {
    DurationMonths int    `json:"duration_months"`
    AmountCents    int64  `json:"amount_cents"`
    Currency       string `json:"currency"`
    Remarks        string `json:"remarks"`
    AlertDays      int    `json:"alert_days"`
}

type continuationReq struct {
    Month    string `json:"month"` // YYYY-MM
    Decision string `json:"decision"`
}

func parseDate(s string) (*time.Time, error) {
    s = strings.TrimSpace(s)
    if s == "" {
        return nil, nil
    }
    t, err := time.Parse("2006-01-02", s)
    if err != nil {
        return nil, err
    }
    return &t, nil
}

// Create submits a new subscription request in Pending.
func (h *SubscriptionHandler) Create(c echo.Context) error {
    var req createSubscriptionReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    start, err := parseDate(req.StartDate)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_date must be YYYY-MM-DD"})
    }
    end, err := parseDate(req.EndDate)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_date must be YYYY-MM-DD"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    actor, err := currentUser(ctx, c, h.Users)
    if err != nil {
        return workflowError(c, err)
    }
    if req.AlertDays <= 0 {
        req.AlertDays = h.AlertDays
    }
    s, err := h.Engine.SubmitRequest(ctx, actor, workflow.RequestInput{
        ToolName:             req.ToolName,
        Vendor:               req.Vendor,
        Department:           req.Department,
        Purpose:              req.Purpose,
        Location:             req.Location,
        Frequency:            req.Frequency,
        RequestType:          req.RequestType,
        AmountCents:          req.AmountCents,
        Currency:             req.Currency,
        DurationMonths:       req.DurationMonths,
        StartDate:            start,
        EndDate:              end,
        BaseMonthlyCostCents: req.BaseMonthlyCostCents,
        AlertDays:            req.AlertDays,
    })
    if err != nil {
        return workflowError(c, err)
    }
    return c.JSON(http.StatusCreated, toSubscriptionResp(s))
}

// List returns subscriptions scoped by the caller's role: employees see
// their own requests, HODs and POCs their department, finance and admin
// everything. An optional ?status= filter narrows the result.
func (h *SubscriptionHandler) List(c echo.Context) error {
    ctx, cancel := reqCtx(c)
    defer cancel()

    actor, err := currentUser(ctx, c, h.Users)
    if err != nil {
        return workflowError(c, err)
    }

    var subs []model.Subscription
    switch {
    case actor.Role == model.RoleFinance || actor.Role == model.RoleAdmin:
        subs, err = h.Subs.ListAll(ctx)
    case actor.IsHOD || actor.Role == model.RolePOC:
        subs, err = h.Subs.ListByDepartment(ctx, actor.Department)
    default:
        subs, err = h.Subs.ListByRequester(ctx, actor.ID)
    }
    if err != nil {
        return workflowError(c, err)
    }

    status := strings.TrimSpace(c.QueryParam("status"))
    out := make([]model.Subscription, 0, len(subs))
    for i := range subs {
        synced, err := h.Engine.SyncLifecycle(ctx, &subs[i])
        if err != nil {
            return workflowError(c, err)
        }
        if status != "" && synced.Status != status {
            continue
        }
        out = append(out, *synced)
    }
    return c.JSON(http.StatusOK, echo.Map{"subscriptions": toSubscriptionList(out)})
}

// Get returns one subscription if the caller is allowed to see it.
func (h *SubscriptionHandler) Get(c echo.Context) error {
    id, err := paramID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    actor, err := currentUser(ctx, c, h.Users)
    if err != nil {
        return workflowError(c, err)
    }
    s, err := h.Subs.Get(ctx, id)
    if err != nil {
        return workflowError(c, err)
    }
    if !maySee(actor, s) {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
    }
    s, err = h.Engine.SyncLifecycle(ctx, s)
    if err != nil {
        return workflowError(c, err)
    }
    return c.JSON(http.StatusOK, toSubscriptionResp(s))
}

// maySee mirrors the list scoping for a single record.
func maySee(actor model.User, s *model.Subscription) bool {
    if actor.Role == model.RoleFinance || actor.Role == model.RoleAdmin {
        return true
    }
    if actor.ID == s.RequesterID || actor.ID == s.HODID {
        return true
    }
    return (actor.IsHOD || actor.Role == model.RolePOC) && actor.Department == s.Department
}

// Renew restarts the approval cycle for an expired or expiring
// subscription with fresh commercial terms.
func (h *SubscriptionHandler) Renew(c echo.Context) error {
    id, err := paramID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var req renewSubscriptionReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    actor, err := currentUser(ctx, c, h.Users)
    if err != nil {
        return workflowError(c, err)
    }
    s, err := h.Engine.Renew(ctx, actor, id, workflow.RenewInput{
        DurationMonths: req.DurationMonths,
        AmountCents:    req.AmountCents,
        Currency:       req.Currency,
        Remarks:        req.Remarks,
        AlertDays:      req.AlertDays,
    })
    if err != nil {
        return workflowError(c, err)
    }
    return c.JSON(http.StatusOK, toSubscriptionResp(s))
}

// Alert triggers the expiry-window renewal alert for a subscription.
// Idempotent per calendar day; a Redis day key short-circuits repeat
// triggers across instances before the engine is consulted.
func (h *SubscriptionHandler) Alert(c echo.Context) error {
    id, err := paramID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    if h.RDB != nil {
        key := fmt.Sprintf("alert:sent:%d:%s", id, time.Now().UTC().Format("2006-01-02"))
        ok, err := h.RDB.SetNX(ctx, key, 1, 48*time.Hour).Result()
        if err == nil && !ok {
            return c.JSON(http.StatusOK, echo.Map{"triggered": false, "reason": "already alerted today"})
        }
        // on Redis error fall through; the engine enforces idempotency anyway
    }

    s, triggered, err := h.Engine.TriggerRenewalAlert(ctx, id)
    if err != nil {
        return workflowError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "triggered":    triggered,
        "subscription": toSubscriptionResp(s),
    })
}

// Continuation records the requester's continue/discontinue decision for
// the current month on a monthly subscription.
func (h *SubscriptionHandler) Continuation(c echo.Context) error {
    id, err := paramID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var req continuationReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    actor, err := currentUser(ctx, c, h.Users)
    if err != nil {
        return workflowError(c, err)
    }
    s, err := h.Engine.UpdateContinuation(ctx, actor, id, strings.TrimSpace(req.Month), strings.TrimSpace(req.Decision))
    if err != nil {
        return workflowError(c, err)
    }
    return c.JSON(http.StatusOK, toSubscriptionResp(s))
}
