// internal/model/audit_entry.go
package model

import "time"

// AuditEntry is an append-only record of a state-changing operation.
type AuditEntry struct {
    ID        int       `db:"id" json:"id"`
    Action    string    `db:"action" json:"action"`
    Meta      string    `db:"meta" json:"meta"`
    CreatedAt time.Time `db:"created_at" json:"created_at"`
}
