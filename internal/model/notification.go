package model

import "time"

// AppNotification is an in-app notification created as a side effect of
// a workflow transition. Rows are written by the queue consumer and only
// ever mutated by the read acknowledgement.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – target user.
//  Message   – human-readable notification text.
//  Read      – whether the user has acknowledged it.
//  CreatedAt – creation timestamp.
type AppNotification struct {
    ID        uint64    // notifications.id
    UserID    uint64    // notifications.user_id
    Message   string    // notifications.message
    Read      bool      // notifications.is_read
    CreatedAt time.Time // notifications.created_at
}
