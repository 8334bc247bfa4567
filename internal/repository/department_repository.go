package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/subvault/subscription-portal/internal/model"
)

// DepartmentRepo persists the department reference table.
type DepartmentRepo struct{ DB *sql.DB }

func NewDepartmentRepo(db *sql.DB) *DepartmentRepo { return &DepartmentRepo{DB: db} }

// List returns all departments ordered by name.
func (r *DepartmentRepo) List(ctx context.Context) ([]model.Department, error) {
    rows, err := r.DB.QueryContext(ctx, "SELECT id, name, created_at FROM departments ORDER BY name")
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.Department
    for rows.Next() {
        var d model.Department
        if err := rows.Scan(&d.ID, &d.Name, &d.CreatedAt); err != nil {
            return nil, err
        }
        out = append(out, d)
    }
    return out, rows.Err()
}

// Create inserts a department. Duplicate names surface as ErrConflict.
func (r *DepartmentRepo) Create(ctx context.Context, name string) (uint64, error) {
    name = strings.TrimSpace(name)
    res, err := r.DB.ExecContext(ctx, "INSERT INTO departments (name) VALUES (?)", name)
    if err != nil {
        if strings.Contains(strings.ToLower(err.Error()), "1062") {
            return 0, ErrConflict
        }
        return 0, err
    }
    id, err := res.LastInsertId()
    return uint64(id), err
}

// Exists reports whether a department with the given name is known.
func (r *DepartmentRepo) Exists(ctx context.Context, name string) (bool, error) {
    var exists bool
    err := r.DB.QueryRowContext(ctx,
        "SELECT EXISTS(SELECT 1 FROM departments WHERE name=?)", strings.TrimSpace(name)).Scan(&exists)
    return exists, err
}
