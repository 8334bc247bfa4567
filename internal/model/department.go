package model

import "time"

// Department is a row in the `departments` reference table. Subscription
// requests must name a known department, and HOD resolution happens
// against the users flagged is_hod within it.
type Department struct {
    ID        uint64    // departments.id
    Name      string    // departments.name (unique)
    CreatedAt time.Time // departments.created_at
}
