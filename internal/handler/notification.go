package handler

import (
    "database/sql"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/subvault/subscription-portal/internal/repository"
)

// NotificationHandler serves the in-app notification feed.
type NotificationHandler struct {
    Notifications *repository.NotificationRepo
}

func NewNotificationHandler(n *repository.NotificationRepo) *NotificationHandler {
    return &NotificationHandler{Notifications: n}
}

type notificationPart struct {
    ID        uint64    `json:"id"`
    Message   string    `json:"message"`
    Read      bool      `json:"read"`
    CreatedAt time.Time `json:"created_at"`
}

// List returns the caller's newest notifications plus the unread count.
// ?limit= caps the page, default 50.
func (h *NotificationHandler) List(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    limit, _ := strconv.Atoi(c.QueryParam("limit"))

    ctx, cancel := reqCtx(c)
    defer cancel()

    notes, err := h.Notifications.ListForUser(ctx, uid, limit)
    if err != nil {
        return workflowError(c, err)
    }
    unread, err := h.Notifications.CountUnread(ctx, uid)
    if err != nil {
        return workflowError(c, err)
    }
    out := make([]notificationPart, 0, len(notes))
    for _, n := range notes {
        out = append(out, notificationPart{ID: n.ID, Message: n.Message, Read: n.Read, CreatedAt: n.CreatedAt})
    }
    return c.JSON(http.StatusOK, echo.Map{"notifications": out, "unread": unread})
}

// MarkRead acknowledges one of the caller's notifications.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := paramID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    if err := h.Notifications.MarkRead(ctx, id, uid); err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
        }
        return workflowError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}
