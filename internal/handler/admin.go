package handler

import (
    "database/sql"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/subvault/subscription-portal/internal/model"
    "github.com/subvault/subscription-portal/internal/repository"
    "github.com/subvault/subscription-portal/internal/workflow"
)

// AdminHandler serves the administration surface: subscription removal
// with an audit trail, user role management and the department table.
type AdminHandler struct {
    Engine *workflow.Engine
    Subs   *repository.SubscriptionRepo
    Users  *repository.UserRepo
    Depts  *repository.DepartmentRepo
}

func NewAdminHandler(eng *workflow.Engine, subs *repository.SubscriptionRepo, users *repository.UserRepo, depts *repository.DepartmentRepo) *AdminHandler {
    return &AdminHandler{Engine: eng, Subs: subs, Users: users, Depts: depts}
}

// ----- DTOs -----

type deleteSubscriptionReq struct {
    Justification string `json:"justification"`
}

type updateRolesReq struct {
    Role       string `json:"role"`
    SubRole    string `json:"sub_role"`
    Department string `json:"department"`
    IsHOD      bool   `json:"is_hod"`
}

type deptReq struct {
    Name string `json:"name"`
}

type deptPart struct {
    ID   uint64 `json:"id"`
    Name string `json:"name"`
}

type deletedPart struct {
    ID            uint64           `json:"id"`
    Subscription  subscriptionResp `json:"subscription"`
    Justification string           `json:"justification"`
    DeletedBy     uint64           `json:"deleted_by"`
    DeletedAt     string           `json:"deleted_at"`
}

// DeleteSubscription archives a subscription with a mandatory
// justification and removes the live row in the same transaction.
func (h *AdminHandler) DeleteSubscription(c echo.Context) error {
    id, err := paramID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var req deleteSubscriptionReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    actor, err := currentUser(ctx, c, h.Users)
    if err != nil {
        return workflowError(c, err)
    }
    if err := h.Engine.AdminDelete(ctx, actor, id, strings.TrimSpace(req.Justification)); err != nil {
        return workflowError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// ListDeleted returns the archive of removed subscriptions.
func (h *AdminHandler) ListDeleted(c echo.Context) error {
    ctx, cancel := reqCtx(c)
    defer cancel()

    dels, err := h.Subs.ListDeleted(ctx)
    if err != nil {
        return workflowError(c, err)
    }
    out := make([]deletedPart, 0, len(dels))
    for i := range dels {
        d := &dels[i]
        out = append(out, deletedPart{
            ID:            d.ID,
            Subscription:  toSubscriptionResp(&d.Subscription),
            Justification: d.Justification,
            DeletedBy:     d.DeletedBy,
            DeletedAt:     d.DeletedAt.UTC().Format(time.RFC3339),
        })
    }
    return c.JSON(http.StatusOK, echo.Map{"deleted": out})
}

// ListUsers returns the full directory for role administration.
func (h *AdminHandler) ListUsers(c echo.Context) error {
    ctx, cancel := reqCtx(c)
    defer cancel()

    users, err := h.Users.List(ctx)
    if err != nil {
        return workflowError(c, err)
    }
    out := make([]userPart, 0, len(users))
    for _, u := range users {
        out = append(out, toUserPart(u))
    }
    return c.JSON(http.StatusOK, echo.Map{"users": out})
}

// UpdateUserRoles rewrites a user's role assignment. Finance users must
// carry a valid sub-role; everyone else must not carry one.
func (h *AdminHandler) UpdateUserRoles(c echo.Context) error {
    id, err := paramID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var req updateRolesReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    role := strings.ToLower(strings.TrimSpace(req.Role))
    subRole := strings.ToLower(strings.TrimSpace(req.SubRole))
    switch role {
    case model.RoleEmployee, model.RolePOC, model.RoleHOD, model.RoleFinance, model.RoleAdmin:
    default:
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
    }
    if role == model.RoleFinance {
        if subRole != model.SubRoleAPA && subRole != model.SubRoleAM {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "finance users need sub_role apa or am"})
        }
    } else if subRole != "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "sub_role only applies to finance users"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    if err := h.Users.UpdateRoles(ctx, id, role, subRole, strings.TrimSpace(req.Department), req.IsHOD); err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
        }
        return workflowError(c, err)
    }
    u, err := h.Users.GetByID(ctx, id)
    if err != nil {
        return workflowError(c, err)
    }
    return c.JSON(http.StatusOK, toUserPart(u))
}

// ListDepartments returns the department reference table. Readable by
// any authenticated user; creation is admin-only.
func (h *AdminHandler) ListDepartments(c echo.Context) error {
    ctx, cancel := reqCtx(c)
    defer cancel()

    depts, err := h.Depts.List(ctx)
    if err != nil {
        return workflowError(c, err)
    }
    out := make([]deptPart, 0, len(depts))
    for _, d := range depts {
        out = append(out, deptPart{ID: d.ID, Name: d.Name})
    }
    return c.JSON(http.StatusOK, echo.Map{"departments": out})
}

// CreateDepartment adds a department.
func (h *AdminHandler) CreateDepartment(c echo.Context) error {
    var req deptReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Name) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    id, err := h.Depts.Create(ctx, req.Name)
    if err != nil {
        if err == repository.ErrConflict {
            return c.JSON(http.StatusConflict, echo.Map{"error": "department already exists"})
        }
        return workflowError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"id": id, "name": strings.TrimSpace(req.Name)})
}
