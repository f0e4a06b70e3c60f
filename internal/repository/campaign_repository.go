package repository

import (
    "database/sql"
    "time"

    appErrors "github.com/textpulse/sms-backend/internal/errors"
    "github.com/textpulse/sms-backend/internal/model"
)

type CampaignRepositoryInterface interface {
    Create(c *model.Campaign) error
    GetByID(id int) (*model.Campaign, error)
    List(limit int) ([]model.Campaign, error)
    Count() (int, error)
    Delete(id int) error

    // Lifecycle
    MarkStarted(id int, at time.Time) error
    ListStartedIncomplete() ([]model.Campaign, error)
    Complete(id int, at time.Time) error
}

type CampaignRepository struct {
    DB *sql.DB
}

const campaignColumns = "id, name, message_template, target_tag, created_at, started_at, completed_at"

func (r *CampaignRepository) Create(c *model.Campaign) error {
    query := `
        INSERT INTO campaigns (name, message_template, target_tag)
        VALUES ($1, $2, $3)
        RETURNING id, created_at
    `
    return r.DB.QueryRow(query, c.Name, c.MessageTemplate, c.TargetTag).Scan(&c.ID, &c.CreatedAt)
}

func (r *CampaignRepository) GetByID(id int) (*model.Campaign, error) {
    query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`

    var c model.Campaign
    err := r.DB.QueryRow(query, id).Scan(&c.ID, &c.Name, &c.MessageTemplate, &c.TargetTag, &c.CreatedAt, &c.StartedAt, &c.CompletedAt)
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, appErrors.NewCampaignNotFound(id)
        }
        return nil, err
    }
    return &c, nil
}

func (r *CampaignRepository) List(limit int) ([]model.Campaign, error) {
    query := `SELECT ` + campaignColumns + ` FROM campaigns ORDER BY created_at DESC LIMIT $1`
    rows, err := r.DB.Query(query, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    campaigns := []model.Campaign{}
    for rows.Next() {
        var c model.Campaign
        if err := rows.Scan(&c.ID, &c.Name, &c.MessageTemplate, &c.TargetTag, &c.CreatedAt, &c.StartedAt, &c.CompletedAt); err != nil {
            return nil, err
        }
        campaigns = append(campaigns, c)
    }
    return campaigns, rows.Err()
}

func (r *CampaignRepository) Count() (int, error) {
    var n int
    err := r.DB.QueryRow(`SELECT COUNT(*) FROM campaigns`).Scan(&n)
    return n, err
}

// Delete removes a campaign; its messages cascade at the schema level.
func (r *CampaignRepository) Delete(id int) error {
    res, err := r.DB.Exec(`DELETE FROM campaigns WHERE id = $1`, id)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return appErrors.NewCampaignNotFound(id)
    }
    return nil
}

// MarkStarted sets the start time exactly once. A second activation hits
// the started_at IS NULL guard and is rejected instead of duplicating the
// recipient expansion.
func (r *CampaignRepository) MarkStarted(id int, at time.Time) error {
    res, err := r.DB.Exec(`UPDATE campaigns SET started_at = $2 WHERE id = $1 AND started_at IS NULL`, id, at)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        // Distinguish missing from already-started.
        if _, err := r.GetByID(id); err != nil {
            return err
        }
        return appErrors.ErrCampaignAlreadyStarted
    }
    return nil
}

// ListStartedIncomplete returns the campaigns the completion scanner has
// to look at: started but not yet closed.
func (r *CampaignRepository) ListStartedIncomplete() ([]model.Campaign, error) {
    query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE started_at IS NOT NULL AND completed_at IS NULL ORDER BY id ASC`
    rows, err := r.DB.Query(query)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    campaigns := []model.Campaign{}
    for rows.Next() {
        var c model.Campaign
        if err := rows.Scan(&c.ID, &c.Name, &c.MessageTemplate, &c.TargetTag, &c.CreatedAt, &c.StartedAt, &c.CompletedAt); err != nil {
            return nil, err
        }
        campaigns = append(campaigns, c)
    }
    return campaigns, rows.Err()
}

// Complete sets the completion time at most once, and only on a campaign
// that was started. Re-running on a completed campaign is a no-op.
func (r *CampaignRepository) Complete(id int, at time.Time) error {
    _, err := r.DB.Exec(
        `UPDATE campaigns SET completed_at = $2 WHERE id = $1 AND started_at IS NOT NULL AND completed_at IS NULL`,
        id, at,
    )
    return err
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
