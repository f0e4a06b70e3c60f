package repository

import (
    "database/sql"
    "strings"

    appErrors "github.com/textpulse/sms-backend/internal/errors"
    "github.com/textpulse/sms-backend/internal/model"
)

// ContactRepositoryInterface defines methods used by services and the
// activation path.
type ContactRepositoryInterface interface {
    Upsert(c *model.Contact) error
    GetByID(id int) (*model.Contact, error)
    List(limit int) ([]model.Contact, error)
    ListRecipients(targetTag string) ([]model.Contact, error)
    OptOut(id int) error
    OptOutByPhone(phone string) error
    Counts() (total int, optedOut int, err error)
}

// ContactRepository is the concrete implementation
type ContactRepository struct {
    DB *sql.DB
}

const contactColumns = "id, name, phone, consented, opted_out, tags, created_at"

// Upsert inserts a contact keyed by phone, or updates name/tags on
// conflict. The consent flag only ever merges upward: once a contact has
// consented, a later import row cannot silently revoke it. opted_out is
// never touched by upserts.
func (r *ContactRepository) Upsert(c *model.Contact) error {
    query := `
        INSERT INTO contacts (name, phone, tags, consented)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (phone) DO UPDATE SET
            name = EXCLUDED.name,
            tags = EXCLUDED.tags,
            consented = contacts.consented OR EXCLUDED.consented
        RETURNING id, consented, opted_out, created_at
    `
    return r.DB.QueryRow(query, c.Name, c.Phone, c.Tags, c.Consented).
        Scan(&c.ID, &c.Consented, &c.OptedOut, &c.CreatedAt)
}

// GetByID fetches a contact by ID
func (r *ContactRepository) GetByID(id int) (*model.Contact, error) {
    query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1`

    var c model.Contact
    err := r.DB.QueryRow(query, id).Scan(&c.ID, &c.Name, &c.Phone, &c.Consented, &c.OptedOut, &c.Tags, &c.CreatedAt)
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, appErrors.ErrContactNotFound
        }
        return nil, err
    }
    return &c, nil
}

// List returns the most recently added contacts.
func (r *ContactRepository) List(limit int) ([]model.Contact, error) {
    query := `SELECT ` + contactColumns + ` FROM contacts ORDER BY created_at DESC LIMIT $1`
    rows, err := r.DB.Query(query, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    contacts := []model.Contact{}
    for rows.Next() {
        var c model.Contact
        if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Consented, &c.OptedOut, &c.Tags, &c.CreatedAt); err != nil {
            return nil, err
        }
        contacts = append(contacts, c)
    }
    return contacts, rows.Err()
}

// ListRecipients selects the consented, not-opted-out contacts a campaign
// expands to. An empty targetTag matches everyone; otherwise the tag must
// appear as an exact case-insensitive token of the comma-separated tag
// list, not a substring.
func (r *ContactRepository) ListRecipients(targetTag string) ([]model.Contact, error) {
    query := `SELECT ` + contactColumns + ` FROM contacts WHERE consented = TRUE AND opted_out = FALSE`
    args := []interface{}{}

    tag := strings.TrimSpace(targetTag)
    if tag != "" {
        query += ` AND (',' || lower(tags) || ',') LIKE $1`
        args = append(args, "%,"+strings.ToLower(tag)+",%")
    }
    query += ` ORDER BY id ASC`

    rows, err := r.DB.Query(query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    contacts := []model.Contact{}
    for rows.Next() {
        var c model.Contact
        if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Consented, &c.OptedOut, &c.Tags, &c.CreatedAt); err != nil {
            return nil, err
        }
        contacts = append(contacts, c)
    }
    return contacts, rows.Err()
}

// OptOut raises the opted_out flag for a contact id. The flag is
// monotonic: the engine never lowers it.
func (r *ContactRepository) OptOut(id int) error {
    res, err := r.DB.Exec(`UPDATE contacts SET opted_out = TRUE WHERE id = $1`, id)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return appErrors.ErrContactNotFound
    }
    return nil
}

// OptOutByPhone raises the opted_out flag via the public unsubscribe path.
func (r *ContactRepository) OptOutByPhone(phone string) error {
    res, err := r.DB.Exec(`UPDATE contacts SET opted_out = TRUE WHERE phone = $1`, phone)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return appErrors.ErrContactNotFound
    }
    return nil
}

// Counts returns the totals shown on the dashboard.
func (r *ContactRepository) Counts() (int, int, error) {
    var total, optedOut int
    err := r.DB.QueryRow(`SELECT COUNT(*), COUNT(*) FILTER (WHERE opted_out) FROM contacts`).Scan(&total, &optedOut)
    if err != nil {
        return 0, 0, err
    }
    return total, optedOut, nil
}

var _ ContactRepositoryInterface = (*ContactRepository)(nil)
