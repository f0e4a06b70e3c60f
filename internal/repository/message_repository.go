package repository

import (
    "database/sql"
    "time"

    "github.com/textpulse/sms-backend/internal/model"
)

// DispatchCandidate is a queued message joined with the owning contact's
// current consent state, read fresh at tick time.
type DispatchCandidate struct {
    Message   model.Message
    Consented bool
    OptedOut  bool
}

type MessageRepositoryInterface interface {
    Insert(m *model.Message) error
    SelectQueuedBatch(limit int) ([]DispatchCandidate, error)

    // Status transitions. Each one is a single committed statement so a
    // crash mid-tick leaves at most the in-progress message ambiguous.
    MarkSending(id int) error
    MarkSent(id int, providerID string, sentAt time.Time) error
    MarkFailed(id int, errText string) error
    MarkSkipped(id int, reason string) error
    ResetSending() (int, error)

    // Counters
    CountSentBetween(contactID int, from, to time.Time) (int, error)
    CountActiveByCampaign(campaignID int) (int, error)
    StatusCounts(campaignID int) (map[string]int, error)
    CountsByStatus() (map[string]int, error)
    RecentByCampaign(campaignID, limit int) ([]model.Message, error)
}

type MessageRepository struct {
    DB *sql.DB
}

// Insert enqueues a message. Status defaults to queued.
func (r *MessageRepository) Insert(m *model.Message) error {
    if m.Status == "" {
        m.Status = model.StatusQueued
    }
    query := `
        INSERT INTO messages (campaign_id, contact_id, to_phone, body, status)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at
    `
    return r.DB.QueryRow(query, m.CampaignID, m.ContactID, m.ToPhone, m.Body, m.Status).Scan(&m.ID, &m.CreatedAt)
}

// SelectQueuedBatch returns up to limit queued messages, oldest first,
// each joined with the owning contact's current consent flags.
func (r *MessageRepository) SelectQueuedBatch(limit int) ([]DispatchCandidate, error) {
    query := `
        SELECT m.id, m.campaign_id, m.contact_id, m.to_phone, m.body, m.status, m.created_at,
               c.consented, c.opted_out
        FROM messages m
        JOIN contacts c ON c.id = m.contact_id
        WHERE m.status = $1
        ORDER BY m.created_at ASC, m.id ASC
        LIMIT $2
    `
    rows, err := r.DB.Query(query, model.StatusQueued, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    batch := []DispatchCandidate{}
    for rows.Next() {
        var cand DispatchCandidate
        m := &cand.Message
        if err := rows.Scan(&m.ID, &m.CampaignID, &m.ContactID, &m.ToPhone, &m.Body, &m.Status, &m.CreatedAt,
            &cand.Consented, &cand.OptedOut); err != nil {
            return nil, err
        }
        batch = append(batch, cand)
    }
    return batch, rows.Err()
}

func (r *MessageRepository) MarkSending(id int) error {
    _, err := r.DB.Exec(`UPDATE messages SET status = $2 WHERE id = $1 AND status = $3`,
        id, model.StatusSending, model.StatusQueued)
    return err
}

func (r *MessageRepository) MarkSent(id int, providerID string, sentAt time.Time) error {
    _, err := r.DB.Exec(`UPDATE messages SET status = $2, provider_id = $3, sent_at = $4 WHERE id = $1`,
        id, model.StatusSent, providerID, sentAt)
    return err
}

func (r *MessageRepository) MarkFailed(id int, errText string) error {
    _, err := r.DB.Exec(`UPDATE messages SET status = $2, error = $3 WHERE id = $1`,
        id, model.StatusFailed, errText)
    return err
}

func (r *MessageRepository) MarkSkipped(id int, reason string) error {
    _, err := r.DB.Exec(`UPDATE messages SET status = $2, error = $3 WHERE id = $1`,
        id, model.StatusSkipped, reason)
    return err
}

// ResetSending flips messages stranded in sending (by an abnormal process
// exit) back to queued for reprocessing. Accepts at-least-once delivery.
func (r *MessageRepository) ResetSending() (int, error) {
    res, err := r.DB.Exec(`UPDATE messages SET status = $1 WHERE status = $2`,
        model.StatusQueued, model.StatusSending)
    if err != nil {
        return 0, err
    }
    n, err := res.RowsAffected()
    return int(n), err
}

// CountSentBetween counts a contact's sent messages whose sent time falls
// in [from, to). The caller supplies calendar-day bounds in the reference
// time zone.
func (r *MessageRepository) CountSentBetween(contactID int, from, to time.Time) (int, error) {
    var n int
    err := r.DB.QueryRow(
        `SELECT COUNT(*) FROM messages WHERE contact_id = $1 AND status = $2 AND sent_at >= $3 AND sent_at < $4`,
        contactID, model.StatusSent, from, to,
    ).Scan(&n)
    return n, err
}

// CountActiveByCampaign counts messages still queued or sending, which is
// what keeps a campaign open.
func (r *MessageRepository) CountActiveByCampaign(campaignID int) (int, error) {
    var n int
    err := r.DB.QueryRow(
        `SELECT COUNT(*) FROM messages WHERE campaign_id = $1 AND status IN ($2, $3)`,
        campaignID, model.StatusQueued, model.StatusSending,
    ).Scan(&n)
    return n, err
}

func (r *MessageRepository) StatusCounts(campaignID int) (map[string]int, error) {
    rows, err := r.DB.Query(`SELECT status, COUNT(*) FROM messages WHERE campaign_id = $1 GROUP BY status`, campaignID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    return scanStatusCounts(rows)
}

func (r *MessageRepository) CountsByStatus() (map[string]int, error) {
    rows, err := r.DB.Query(`SELECT status, COUNT(*) FROM messages GROUP BY status`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    return scanStatusCounts(rows)
}

func scanStatusCounts(rows *sql.Rows) (map[string]int, error) {
    counts := map[string]int{
        model.StatusQueued:  0,
        model.StatusSending: 0,
        model.StatusSent:    0,
        model.StatusFailed:  0,
        model.StatusSkipped: 0,
    }
    for rows.Next() {
        var status string
        var n int
        if err := rows.Scan(&status, &n); err != nil {
            return nil, err
        }
        counts[status] = n
    }
    return counts, rows.Err()
}

// RecentByCampaign returns the latest messages of a campaign for operator
// inspection (per-message error text lives here, not in the UI).
func (r *MessageRepository) RecentByCampaign(campaignID, limit int) ([]model.Message, error) {
    query := `
        SELECT id, campaign_id, contact_id, to_phone, body, status,
               COALESCE(provider_id, ''), COALESCE(error, ''), created_at, sent_at
        FROM messages
        WHERE campaign_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT $2
    `
    rows, err := r.DB.Query(query, campaignID, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    msgs := []model.Message{}
    for rows.Next() {
        var m model.Message
        if err := rows.Scan(&m.ID, &m.CampaignID, &m.ContactID, &m.ToPhone, &m.Body, &m.Status,
            &m.ProviderID, &m.Error, &m.CreatedAt, &m.SentAt); err != nil {
            return nil, err
        }
        msgs = append(msgs, m)
    }
    return msgs, rows.Err()
}

var _ MessageRepositoryInterface = (*MessageRepository)(nil)
