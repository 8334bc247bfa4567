package model

import "time"

// DeletedSubscription is the archival wrapper written when an admin
// removes a subscription. The full subscription is snapshotted as a JSON
// document before the row is deleted, together with the justification
// the admin supplied. Immutable once written.
//
// Fields:
//  ID            – primary key identifier of the archive row.
//  Subscription  – snapshot of the subscription at deletion time.
//  Justification – why the admin removed it (required, non-empty).
//  DeletedBy     – admin user ID.
//  DeletedAt     – deletion timestamp.
type DeletedSubscription struct {
    ID            uint64       // deleted_subscriptions.id
    Subscription  Subscription // deleted_subscriptions.snapshot (JSON)
    Justification string       // deleted_subscriptions.justification
    DeletedBy     uint64       // deleted_subscriptions.deleted_by
    DeletedAt     time.Time    // deleted_subscriptions.deleted_at
}
