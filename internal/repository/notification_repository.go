package repository

import (
    "context"
    "database/sql"

    "github.com/subvault/subscription-portal/internal/model"
)

// NotificationRepo persists in-app notifications. Rows are written by
// the queue consumer and read by the notification endpoints; the only
// mutation is the read acknowledgement.
type NotificationRepo struct{ DB *sql.DB }

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{DB: db} }

// Create inserts a notification row.
func (r *NotificationRepo) Create(ctx context.Context, n *model.AppNotification) error {
    res, err := r.DB.ExecContext(ctx,
        "INSERT INTO notifications (user_id, message, is_read, created_at) VALUES (?,?,0,?)",
        n.UserID, n.Message, n.CreatedAt)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    n.ID = uint64(id)
    return nil
}

// ListForUser returns the newest notifications for a user, capped at
// the given limit.
func (r *NotificationRepo) ListForUser(ctx context.Context, userID uint64, limit int) ([]model.AppNotification, error) {
    if limit <= 0 {
        limit = 50
    }
    rows, err := r.DB.QueryContext(ctx,
        "SELECT id, user_id, message, is_read, created_at FROM notifications WHERE user_id=? ORDER BY created_at DESC LIMIT ?",
        userID, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.AppNotification
    for rows.Next() {
        var n model.AppNotification
        if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Read, &n.CreatedAt); err != nil {
            return nil, err
        }
        out = append(out, n)
    }
    return out, rows.Err()
}

// CountUnread returns how many unread notifications a user has.
func (r *NotificationRepo) CountUnread(ctx context.Context, userID uint64) (int, error) {
    var n int
    err := r.DB.QueryRowContext(ctx,
        "SELECT COUNT(*) FROM notifications WHERE user_id=? AND is_read=0", userID).Scan(&n)
    return n, err
}

// MarkRead acknowledges a notification. Scoped to the owning user so
// one user cannot acknowledge another's.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, userID uint64) error {
    res, err := r.DB.ExecContext(ctx,
        "UPDATE notifications SET is_read=1 WHERE id=? AND user_id=?", id, userID)
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return sql.ErrNoRows
    }
    return nil
}
