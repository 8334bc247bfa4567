package handler

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/subvault/subscription-portal/internal/model"
    "github.com/subvault/subscription-portal/internal/repository"
    "github.com/subvault/subscription-portal/internal/workflow"
)

// HODHandler serves the department-head decision endpoint.
type HODHandler struct {
    Engine *workflow.Engine
    Users  *repository.UserRepo
}

func NewHODHandler(eng *workflow.Engine, users *repository.UserRepo) *HODHandler {
    return &HODHandler{Engine: eng, Users: users}
}

type decisionReq struct {
    Decision string `json:"decision"` // approve | decline
    Reason   string `json:"reason"`
}

// Decide approves or declines a pending request. Only the HOD recorded
// on the subscription may decide it; a decline reason is mandatory.
func (h *HODHandler) Decide(c echo.Context) error {
    id, err := paramID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var req decisionReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    var decision string
    switch strings.ToLower(strings.TrimSpace(req.Decision)) {
    case "approve", "approved":
        decision = model.StatusApproved
    case "decline", "declined":
        decision = model.StatusDeclined
    default:
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "decision must be approve or decline"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    actor, err := currentUser(ctx, c, h.Users)
    if err != nil {
        return workflowError(c, err)
    }
    s, err := h.Engine.Decide(ctx, actor, id, decision, strings.TrimSpace(req.Reason))
    if err != nil {
        return workflowError(c, err)
    }
    return c.JSON(http.StatusOK, toSubscriptionResp(s))
}
