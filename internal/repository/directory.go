package repository

import (
    "context"
    "database/sql"

    "github.com/subvault/subscription-portal/internal/model"
)

// DirectoryAdapter exposes the user repository through the workflow
// engine's Directory port. Per the port contract a missing user is nil,
// not an error; only actual lookup failures propagate.
type DirectoryAdapter struct{ Users *UserRepo }

func NewDirectoryAdapter(users *UserRepo) *DirectoryAdapter { return &DirectoryAdapter{Users: users} }

func (d *DirectoryAdapter) UserByID(ctx context.Context, id uint64) (*model.User, error) {
    u, err := d.Users.GetByID(ctx, id)
    if err == sql.ErrNoRows {
        return nil, nil
    }
    if err != nil {
        return nil, err
    }
    return &u, nil
}

func (d *DirectoryAdapter) HODForDepartment(ctx context.Context, department string) (*model.User, error) {
    u, err := d.Users.HODForDepartment(ctx, department)
    if err == sql.ErrNoRows {
        return nil, nil
    }
    if err != nil {
        return nil, err
    }
    return &u, nil
}

func (d *DirectoryAdapter) FinanceUsers(ctx context.Context, subRole string) ([]model.User, error) {
    return d.Users.ListFinanceBySubRole(ctx, subRole)
}
