// internal/errors/errors.go
package appErrors

import (
    "errors"
    "fmt"
)

// ErrCampaignNotFound is returned when a campaign id does not exist.
type ErrCampaignNotFound struct {
    CampaignID int
}

func (e *ErrCampaignNotFound) Error() string {
    return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

// Helper constructor
func NewCampaignNotFound(id int) error {
    return &ErrCampaignNotFound{CampaignID: id}
}

// IsCampaignNotFound reports whether err wraps an ErrCampaignNotFound.
func IsCampaignNotFound(err error) bool {
    var nf *ErrCampaignNotFound
    return errors.As(err, &nf)
}

// ErrCampaignAlreadyStarted is returned when activation is attempted on a
// campaign whose start time is already set. Re-activation would duplicate
// the recipient expansion, so it is rejected outright.
var ErrCampaignAlreadyStarted = errors.New("campaign already started")

// ErrContactNotFound is returned when a contact id or phone does not exist.
var ErrContactNotFound = errors.New("contact not found")
