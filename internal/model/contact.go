// internal/model/contact.go
package model

import "time"

// Contact is a phone-keyed recipient. Tags is a comma-separated list of
// free-text category labels used for campaign targeting.
type Contact struct {
    ID        int       `db:"id" json:"id"`
    Name      string    `db:"name" json:"name"`
    Phone     string    `db:"phone" json:"phone"`
    Consented bool      `db:"consented" json:"consented"`
    OptedOut  bool      `db:"opted_out" json:"opted_out"`
    Tags      string    `db:"tags" json:"tags"`
    CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Eligible reports whether the contact may receive messages at all.
func (c Contact) Eligible() bool {
    return c.Consented && !c.OptedOut
}
