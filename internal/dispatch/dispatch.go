// internal/dispatch/dispatch.go
package dispatch

import (
    "time"

    "github.com/rs/zerolog"

    "github.com/textpulse/sms-backend/internal/gateway"
    "github.com/textpulse/sms-backend/internal/model"
    "github.com/textpulse/sms-backend/internal/repository"
)

// MessageStore defines the message operations the dispatcher needs.
type MessageStore interface {
    SelectQueuedBatch(limit int) ([]repository.DispatchCandidate, error)
    MarkSending(id int) error
    MarkSent(id int, providerID string, sentAt time.Time) error
    MarkFailed(id int, errText string) error
    MarkSkipped(id int, reason string) error
    ResetSending() (int, error)
    CountSentBetween(contactID int, from, to time.Time) (int, error)
    CountActiveByCampaign(campaignID int) (int, error)
}

// CampaignStore defines the campaign operations the completion scanner needs.
type CampaignStore interface {
    ListStartedIncomplete() ([]model.Campaign, error)
    Complete(id int, at time.Time) error
}

// Auditor is the fire-and-forget audit sink.
type Auditor interface {
    Record(action, meta string)
}

// Config bounds one tick: at most RatePerTick provider calls, with the
// per-contact DailyCap evaluated against calendar days in Timezone.
type Config struct {
    RatePerTick int
    DailyCap    int
    TickPeriod  time.Duration
    Timezone    *time.Location
}

// Dispatcher drains the queued-message backlog. A single dispatcher is
// assumed per deployment; ticks never overlap.
type Dispatcher struct {
    Messages  MessageStore
    Campaigns CampaignStore
    Gateway   gateway.Gateway
    Audit     Auditor
    Cfg       Config
    Log       zerolog.Logger

    // Now is swappable for tests; nil means time.Now.
    Now func() time.Time
}

func (d *Dispatcher) now() time.Time {
    if d.Now != nil {
        return d.Now()
    }
    return time.Now()
}

func (d *Dispatcher) location() *time.Location {
    if d.Cfg.Timezone != nil {
        return d.Cfg.Timezone
    }
    return time.UTC
}

// dayBounds returns the [start, end) of the calendar day containing t in
// the reference time zone.
func (d *Dispatcher) dayBounds(t time.Time) (time.Time, time.Time) {
    loc := d.location()
    t = t.In(loc)
    start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
    return start, start.Add(24 * time.Hour)
}
