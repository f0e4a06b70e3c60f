// internal/model/message.go
package model

import "time"

// Message statuses. Queued and Sending are the only non-terminal states;
// Sending normally lives for the duration of a single provider call.
const (
    StatusQueued  = "queued"
    StatusSending = "sending"
    StatusSent    = "sent"
    StatusFailed  = "failed"
    StatusSkipped = "skipped"
)

// Message is one campaign send to one contact. ToPhone and Body are
// immutable snapshots taken at enqueue time. ProviderID is set only on a
// successful send, Error only on failure or skip.
type Message struct {
    ID         int        `db:"id" json:"id"`
    CampaignID int        `db:"campaign_id" json:"campaign_id"`
    ContactID  int        `db:"contact_id" json:"contact_id"`
    ToPhone    string     `db:"to_phone" json:"to_phone"`
    Body       string     `db:"body" json:"body"`
    Status     string     `db:"status" json:"status"`
    ProviderID string     `db:"provider_id" json:"provider_id,omitempty"`
    Error      string     `db:"error" json:"error,omitempty"`
    CreatedAt  time.Time  `db:"created_at" json:"created_at"`
    SentAt     *time.Time `db:"sent_at" json:"sent_at,omitempty"`
}
