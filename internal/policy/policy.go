// internal/policy/policy.go
package policy

// Skip reasons recorded on the message when a candidate is rejected.
const (
    ReasonNoConsent = "no consent or opted out"
    ReasonDailyCap  = "daily cap reached"
)

// Decision is the outcome of an eligibility check. Reason is set only
// when Proceed is false.
type Decision struct {
    Proceed bool
    Reason  string
}

// Evaluate decides whether a queued message may be handed to the
// provider. Rules are checked in order, first match wins:
//
//  1. contact not consented or opted out -> skip
//  2. sentToday >= dailyCap             -> skip
//  3. proceed
//
// sentToday is the count of this contact's messages sent on the current
// calendar day in the reference time zone, not a rolling 24h window. The
// caller recomputes it per message, so a contact can cross the cap in the
// middle of a tick.
func Evaluate(consented, optedOut bool, sentToday, dailyCap int) Decision {
    if !consented || optedOut {
        return Decision{Reason: ReasonNoConsent}
    }
    if sentToday >= dailyCap {
        return Decision{Reason: ReasonDailyCap}
    }
    return Decision{Proceed: true}
}
