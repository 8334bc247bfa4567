package workflow

import (
    "context"

    "github.com/subvault/subscription-portal/internal/model"
)

// Directory resolves users for authorization and notification fan-out.
// Lookups return nil (or an empty slice) when nothing matches; an error
// means the lookup itself failed.
type Directory interface {
    // UserByID returns the user with the given ID, or nil.
    UserByID(ctx context.Context, id uint64) (*model.User, error)
    // HODForDepartment returns the user flagged as HOD of the given
    // department, or nil when the department has none.
    HODForDepartment(ctx context.Context, department string) (*model.User, error)
    // FinanceUsers returns all finance users holding the given sub-role.
    FinanceUsers(ctx context.Context, subRole string) ([]model.User, error)
}

// SubscriptionStore is the durable home of subscriptions. Update is
// conditional on the Version the caller read; a lost race surfaces as
// ErrVersionConflict and nothing is written.
type SubscriptionStore interface {
    Get(ctx context.Context, id uint64) (*model.Subscription, error)
    Create(ctx context.Context, s *model.Subscription) error
    Update(ctx context.Context, s *model.Subscription) error
    // Archive atomically writes the archival record and removes the
    // original subscription row.
    Archive(ctx context.Context, d *model.DeletedSubscription) error
}

// Notifier delivers an in-app notification to a user. Delivery is
// fire-and-forget with at-least-once semantics: implementations log
// failures and never propagate them into the transition that triggered
// the notification.
type Notifier interface {
    Notify(ctx context.Context, userID uint64, message string)
}
