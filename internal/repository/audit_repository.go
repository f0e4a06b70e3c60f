package repository

import "database/sql"

// AuditRepository persists append-only audit entries.
type AuditRepository struct {
    DB *sql.DB
}

func (r *AuditRepository) Insert(action, meta string) error {
    _, err := r.DB.Exec(`INSERT INTO audit_log (action, meta) VALUES ($1, $2)`, action, meta)
    return err
}
