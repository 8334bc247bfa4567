// Package queue defines message payloads exchanged over the message broker.
package queue

// NotificationCreatedEvent is published whenever a workflow transition
// wants to notify a user. The consumer persists it as an AppNotification
// row; delivery is at-least-once, so consumers must tolerate a repeated
// event for the same transition.
type NotificationCreatedEvent struct {
    UserID    uint64 `json:"user_id"`
    Message   string `json:"message"`
    CreatedAt string `json:"created_at"`
}

// Name of the durable queue notification events travel through.
const NotificationQueueName = "notification.created"
