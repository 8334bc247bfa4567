package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"

    "github.com/subvault/subscription-portal/internal/model"
    "github.com/subvault/subscription-portal/internal/utils"
)

// UserRepo persists directory entries in the 'users' table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

const userColumns = "id, name, email, password_hash, role, sub_role, department, is_hod, google_sub, microsoft_sub, is_active, created_at, updated_at"

// Create inserts a user and returns its ID. The password may be empty
// for OAuth-only accounts; it is hashed with bcrypt otherwise.
func (r *UserRepo) Create(ctx context.Context, u *model.User, password string, cost int) (uint64, error) {
    u.Email = strings.ToLower(strings.TrimSpace(u.Email))
    var hash string
    if password != "" {
        var err error
        hash, err = utils.HashPassword(password, cost)
        if err != nil {
            return 0, err
        }
    }
    res, err := r.DB.ExecContext(ctx,
        "INSERT INTO users (name, email, password_hash, role, sub_role, department, is_hod) VALUES (?,?,?,?,?,?,?)",
        u.Name, u.Email, hash, u.Role, u.SubRole, u.Department, u.IsHOD)
    if err != nil {
        if strings.Contains(strings.ToLower(err.Error()), "1062") {
            return 0, ErrEmailExists
        }
        return 0, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return 0, err
    }
    u.ID = uint64(id)
    return u.ID, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
    email = strings.ToLower(strings.TrimSpace(email))
    row := r.DB.QueryRowContext(ctx,
        "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
    return scanUser(row)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
    row := r.DB.QueryRowContext(ctx,
        "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
    return scanUser(row)
}

// HODForDepartment returns the active user flagged as HOD of the given
// department. sql.ErrNoRows when the department has none.
func (r *UserRepo) HODForDepartment(ctx context.Context, department string) (model.User, error) {
    row := r.DB.QueryRowContext(ctx,
        "SELECT "+userColumns+" FROM users WHERE department=? AND is_hod=1 AND is_active=1 LIMIT 1", department)
    return scanUser(row)
}

// ListFinanceBySubRole returns all active finance users with the given
// sub-role (apa or am).
func (r *UserRepo) ListFinanceBySubRole(ctx context.Context, subRole string) ([]model.User, error) {
    rows, err := r.DB.QueryContext(ctx,
        "SELECT "+userColumns+" FROM users WHERE role=? AND sub_role=? AND is_active=1", model.RoleFinance, subRole)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.User
    for rows.Next() {
        u, err := scanUser(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, u)
    }
    return out, rows.Err()
}

// List returns all users. Admin view.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
    rows, err := r.DB.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY name")
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.User
    for rows.Next() {
        u, err := scanUser(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, u)
    }
    return out, rows.Err()
}

// UpdateRoles rewrites a user's role assignment. Only admins reach this
// through the handler layer.
func (r *UserRepo) UpdateRoles(ctx context.Context, id uint64, role, subRole, department string, isHOD bool) error {
    res, err := r.DB.ExecContext(ctx,
        "UPDATE users SET role=?, sub_role=?, department=?, is_hod=? WHERE id=?",
        role, subRole, department, isHOD, id)
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return sql.ErrNoRows
    }
    return nil
}

func scanUser(row interface{ Scan(...interface{}) error }) (model.User, error) {
    var (
        u            model.User
        googleSub    sql.NullString
        microsoftSub sql.NullString
    )
    err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.SubRole, &u.Department,
        &u.IsHOD, &googleSub, &microsoftSub, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
    if err != nil {
        return model.User{}, err
    }
    if googleSub.Valid {
        v := googleSub.String
        u.GoogleSub = &v
    }
    if microsoftSub.Valid {
        v := microsoftSub.String
        u.MicrosoftSub = &v
    }
    return u, nil
}
