// internal/model/campaign.go
package model

import "time"

// Campaign expands into one queued message per matching contact when
// activated. TargetTag empty means every eligible contact. StartedAt and
// CompletedAt are each set at most once; CompletedAt only by the
// completion scanner after the message backlog for the campaign drains.
type Campaign struct {
    ID              int        `db:"id" json:"id"`
    Name            string     `db:"name" json:"name"`
    MessageTemplate string     `db:"message_template" json:"message_template"`
    TargetTag       string     `db:"target_tag" json:"target_tag"`
    CreatedAt       time.Time  `db:"created_at" json:"created_at"`
    StartedAt       *time.Time `db:"started_at" json:"started_at,omitempty"`
    CompletedAt     *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}
