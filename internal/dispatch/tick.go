// internal/dispatch/tick.go
package dispatch

import (
    "context"
    "fmt"

    "github.com/textpulse/sms-backend/internal/policy"
    "github.com/textpulse/sms-backend/internal/repository"
)

// TickResult summarizes one pass over the queue.
type TickResult struct {
    Selected int
    Sent     int
    Failed   int
    Skipped  int
}

func (r TickResult) empty() bool {
    return r.Selected == 0
}

// RunTick processes up to RatePerTick queued messages, oldest first. Each
// message is committed independently: a failure on one never aborts the
// rest of the batch. The daily-cap count is recomputed per message, so
// sends committed earlier in the same tick count toward the cap.
func (d *Dispatcher) RunTick(ctx context.Context) (TickResult, error) {
    var res TickResult

    batch, err := d.Messages.SelectQueuedBatch(d.Cfg.RatePerTick)
    if err != nil {
        return res, fmt.Errorf("selecting queued batch: %w", err)
    }
    res.Selected = len(batch)

    for _, cand := range batch {
        if err := ctx.Err(); err != nil {
            return res, err
        }
        d.processOne(ctx, cand, &res)
    }
    return res, nil
}

func (d *Dispatcher) processOne(ctx context.Context, cand repository.DispatchCandidate, res *TickResult) {
    m := cand.Message
    log := d.Log.With().Int("message", m.ID).Int("campaign", m.CampaignID).Int("contact", m.ContactID).Logger()

    from, to := d.dayBounds(d.now())
    sentToday, err := d.Messages.CountSentBetween(m.ContactID, from, to)
    if err != nil {
        // Leave the message queued; the next tick picks it up again.
        log.Error().Err(err).Msg("counting daily sends failed")
        return
    }

    decision := policy.Evaluate(cand.Consented, cand.OptedOut, sentToday, d.Cfg.DailyCap)
    if !decision.Proceed {
        if err := d.Messages.MarkSkipped(m.ID, decision.Reason); err != nil {
            log.Error().Err(err).Msg("marking message skipped failed")
            return
        }
        d.Audit.Record("message_skipped", fmt.Sprintf("id=%d,reason=%s", m.ID, decision.Reason))
        log.Debug().Str("reason", decision.Reason).Msg("message skipped")
        res.Skipped++
        return
    }

    if err := d.Messages.MarkSending(m.ID); err != nil {
        log.Error().Err(err).Msg("marking message sending failed")
        return
    }

    providerID, err := d.Gateway.Send(ctx, m.ToPhone, m.Body)
    if err != nil {
        // Terminal: the error text is captured verbatim for operators,
        // and the message is never re-queued.
        if uerr := d.Messages.MarkFailed(m.ID, err.Error()); uerr != nil {
            log.Error().Err(uerr).Msg("marking message failed failed")
            return
        }
        d.Audit.Record("message_failed", fmt.Sprintf("id=%d", m.ID))
        log.Warn().Err(err).Msg("provider send failed")
        res.Failed++
        return
    }

    if err := d.Messages.MarkSent(m.ID, providerID, d.now()); err != nil {
        log.Error().Err(err).Str("provider_id", providerID).Msg("marking message sent failed")
        return
    }
    d.Audit.Record("message_sent", fmt.Sprintf("id=%d,provider_id=%s", m.ID, providerID))
    log.Debug().Str("provider_id", providerID).Msg("message sent")
    res.Sent++
}
