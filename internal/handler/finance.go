package handler

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/subvault/subscription-portal/internal/model"
    "github.com/subvault/subscription-portal/internal/repository"
    "github.com/subvault/subscription-portal/internal/workflow"
)

// FinanceHandler serves the finance queue and the APA/AM actions that
// move an approved subscription through to payment completion.
type FinanceHandler struct {
    Engine *workflow.Engine
    Subs   *repository.SubscriptionRepo
    Users  *repository.UserRepo
}

func NewFinanceHandler(eng *workflow.Engine, subs *repository.SubscriptionRepo, users *repository.UserRepo) *FinanceHandler {
    return &FinanceHandler{Engine: eng, Subs: subs, Users: users}
}

// ----- DTOs -----

type amLogReq struct {
    Note               string `json:"note"`
    RecommendedPayment string `json:"recommended_payment"`
    PlannedAmountCents int64  `json:"planned_amount_cents"`
    PlannedCurrency    string `json:"planned_currency"`
    PlannedDate        string `json:"planned_date"` // YYYY-MM-DD
}

type paymentReq struct {
    PaymentType     string `json:"payment_type"`
    PaymentDate     string `json:"payment_date"` // YYYY-MM-DD
    TransactionID   string `json:"transaction_id"`
    AmountPaidCents int64  `json:"amount_paid_cents"`
    Currency        string `json:"currency"`
    ReceiptRef      string `json:"receipt_ref"`
    InvoiceNumber   string `json:"invoice_number"`
    Notes           string `json:"notes"`
}

type declineReq struct {
    Reason string `json:"reason"`
}

// Queue lists the subscriptions waiting on the caller. APA users see the
// Approved queue by default, AM users the ForwardedToAM queue; an
// explicit ?status= overrides.
func (h *FinanceHandler) Queue(c echo.Context) error {
    ctx, cancel := reqCtx(c)
    defer cancel()

    actor, err := currentUser(ctx, c, h.Users)
    if err != nil {
        return workflowError(c, err)
    }

    status := strings.TrimSpace(c.QueryParam("status"))
    if status == "" {
        if actor.SubRole == model.SubRoleAM {
            status = model.StatusForwardedToAM
        } else {
            status = model.StatusApproved
        }
    }
    subs, err := h.Subs.ListByStatus(ctx, status)
    if err != nil {
        return workflowError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"status": status, "subscriptions": toSubscriptionList(subs)})
}

// Forward moves an Approved subscription into the AM queue. APA only.
func (h *FinanceHandler) Forward(c echo.Context) error {
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
    s, err := h.Engine.ForwardToAM(ctx, actor, id)
    if err != nil {
        return workflowError(c, err)
    }
    return c.JSON(http.StatusOK, toSubscriptionResp(s))
}

// AMLog records the AM's verification of the planned payment. AM only.
func (h *FinanceHandler) AMLog(c echo.Context) error {
    id, err := paramID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var req amLogReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    planned, err := parseDate(req.PlannedDate)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "planned_date must be YYYY-MM-DD"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    actor, err := currentUser(ctx, c, h.Users)
    if err != nil {
        return workflowError(c, err)
    }
    s, err := h.Engine.SubmitAMLog(ctx, actor, id, workflow.AMLogInput{
        Note:               req.Note,
        RecommendedPayment: req.RecommendedPayment,
        PlannedAmountCents: req.PlannedAmountCents,
        PlannedCurrency:    req.PlannedCurrency,
        PlannedDate:        planned,
    })
    if err != nil {
        return workflowError(c, err)
    }
    return c.JSON(http.StatusOK, toSubscriptionResp(s))
}

// Payment records the executed payment and completes the finance chain.
// APA only.
func (h *FinanceHandler) Payment(c echo.Context) error {
    id, err := paramID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var req paymentReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    paid, err := parseDate(req.PaymentDate)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment_date must be YYYY-MM-DD"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    actor, err := currentUser(ctx, c, h.Users)
    if err != nil {
        return workflowError(c, err)
    }
    s, err := h.Engine.MarkAsPaid(ctx, actor, id, workflow.ExecutionInput{
        PaymentType:     req.PaymentType,
        PaymentDate:     paid,
        TransactionID:   req.TransactionID,
        AmountPaidCents: req.AmountPaidCents,
        Currency:        req.Currency,
        ReceiptRef:      req.ReceiptRef,
        InvoiceNumber:   req.InvoiceNumber,
        Notes:           req.Notes,
    })
    if err != nil {
        return workflowError(c, err)
    }
    return c.JSON(http.StatusOK, toSubscriptionResp(s))
}

// Decline withdraws an Approved subscription from the finance queue.
// APA only; the reason is recorded with the declining role.
func (h *FinanceHandler) Decline(c echo.Context) error {
    id, err := paramID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var req declineReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if strings.TrimSpace(req.Reason) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "reason required"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    actor, err := currentUser(ctx, c, h.Users)
    if err != nil {
        return workflowError(c, err)
    }
    s, err := h.Engine.Decide(ctx, actor, id, model.StatusDeclined, strings.TrimSpace(req.Reason))
    if err != nil {
        return workflowError(c, err)
    }
    return c.JSON(http.StatusOK, toSubscriptionResp(s))
}
