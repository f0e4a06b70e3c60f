// internal/audit/audit.go
package audit

import (
    "encoding/json"

    "github.com/rs/zerolog"

    "github.com/textpulse/sms-backend/internal/queue"
)

// Topic is the queue topic audit entries travel on.
const Topic = "audit_log"

// Entry is the wire form of one audit record.
type Entry struct {
    Action string `json:"action"`
    Meta   string `json:"meta"`
}

// Store persists entries; satisfied by repository.AuditRepository.
type Store interface {
    Insert(action, meta string) error
}

// Recorder is the fire-and-forget audit sink handed to every mutating
// operation. A failed publish is logged and dropped; it never fails or
// blocks the primary operation.
type Recorder struct {
    queue queue.Queue
    log   zerolog.Logger
}

func NewRecorder(q queue.Queue, log zerolog.Logger) *Recorder {
    return &Recorder{
        queue: q,
        log:   log.With().Str("component", "audit").Logger(),
    }
}

func (r *Recorder) Record(action, meta string) {
    if err := r.queue.Publish(Topic, Entry{Action: action, Meta: meta}); err != nil {
        r.log.Warn().Err(err).Str("action", action).Msg("audit entry dropped")
    }
}

// StartWriter subscribes the persistence side of the audit trail. The
// in-memory queue delivers Entry values directly; the AMQP transport
// delivers JSON bytes.
func StartWriter(q queue.Queue, store Store, log zerolog.Logger) error {
    wlog := log.With().Str("component", "audit").Logger()
    return q.Subscribe(Topic, func(payload any) error {
        var e Entry
        switch p := payload.(type) {
        case Entry:
            e = p
        case []byte:
            if err := json.Unmarshal(p, &e); err != nil {
                wlog.Warn().Err(err).Msg("discarding malformed audit payload")
                return nil
            }
        default:
            wlog.Warn().Msg("discarding audit payload of unexpected type")
            return nil
        }
        return store.Insert(e.Action, e.Meta)
    })
}
