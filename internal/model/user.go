package model

import "time"

// Role values stored in users.role. Finance users additionally carry a
// sub-role that splits the two-person payment control.
const (
    RoleEmployee = "employee"
    RolePOC      = "poc"
    RoleHOD      = "hod"
    RoleFinance  = "finance"
    RoleAdmin    = "admin"
)

// Finance sub-roles stored in users.sub_role. Only meaningful when
// role=finance. The APA reviews approved requests and executes payments;
// the AM independently verifies payment details in between.
const (
    SubRoleAPA = "apa"
    SubRoleAM  = "am"
)

// User represents a directory entry as stored in the `users` table.
// The password hash is empty for accounts that only ever signed in
// through an external identity provider; the provider subject IDs are
// attached on first federated login and never touched afterwards.
//
// Fields:
//  ID           – primary key identifier.
//  Name         – display name.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password ("" for OAuth-only accounts).
//  Role         – employee|poc|hod|finance|admin.
//  SubRole      – apa|am when Role is finance, otherwise "".
//  Department   – department the user belongs to.
//  IsHOD        – whether the user is the head of their department.
//  GoogleSub    – Google identity subject, nullable.
//  MicrosoftSub – Microsoft identity subject, nullable.
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           uint64    // users.id
    Name         string    // users.name
    Email        string    // users.email
    PasswordHash string    // users.password_hash
    Role         string    // users.role
    SubRole      string    // users.sub_role
    Department   string    // users.department
    IsHOD        bool      // users.is_hod
    GoogleSub    *string   // users.google_sub (nullable)
    MicrosoftSub *string   // users.microsoft_sub (nullable)
    IsActive     bool      // users.is_active
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}

// CanRequest reports whether the user may originate subscription
// requests. HODs and admins may also raise requests for their own use.
func (u User) CanRequest() bool {
    switch u.Role {
    case RoleEmployee, RolePOC, RoleHOD, RoleAdmin:
        return true
    }
    return false
}

// IsFinance reports whether the user holds the given finance sub-role.
func (u User) IsFinance(subRole string) bool {
    return u.Role == RoleFinance && u.SubRole == subRole
}
