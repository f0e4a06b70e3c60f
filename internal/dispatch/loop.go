// internal/dispatch/loop.go
package dispatch

import (
    "context"
    "errors"
    "fmt"
    "time"
)

// Recover resolves messages left in sending by an abnormal shutdown:
// they are reset to queued and reprocessed, trading a possible duplicate
// send for never stranding a message. Call once before Run.
func (d *Dispatcher) Recover() error {
    n, err := d.Messages.ResetSending()
    if err != nil {
        return fmt.Errorf("resetting in-flight messages: %w", err)
    }
    if n > 0 {
        d.Audit.Record("dispatch_recovered", fmt.Sprintf("requeued=%d", n))
        d.Log.Warn().Int("requeued", n).Msg("reset in-flight messages from previous run")
    }
    return nil
}

// Run drives the dispatch loop: one tick plus one completion scan per
// period, until ctx is cancelled. Ticks never overlap; a slow tick delays
// the next one. Any per-tick error is contained here and the loop carries
// on at the next period.
func (d *Dispatcher) Run(ctx context.Context) {
    period := d.Cfg.TickPeriod
    if period <= 0 {
        period = time.Second
    }

    d.Log.Info().
        Dur("period", period).
        Int("rate_per_tick", d.Cfg.RatePerTick).
        Int("daily_cap", d.Cfg.DailyCap).
        Msg("dispatch loop started")

    ticker := time.NewTicker(period)
    defer ticker.Stop()

    for {
        select {
        case <-ctx.Done():
            d.Log.Info().Msg("dispatch loop stopped")
            return
        case <-ticker.C:
            d.tick(ctx)
        }
    }
}

func (d *Dispatcher) tick(ctx context.Context) {
    defer func() {
        if r := recover(); r != nil {
            d.Log.Error().Interface("panic", r).Msg("tick panicked")
        }
    }()

    start := time.Now()
    res, err := d.RunTick(ctx)
    if err != nil {
        if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
            return
        }
        d.Log.Error().Err(err).Msg("tick failed")
    }

    if err := d.CloseFinishedCampaigns(ctx); err != nil &&
        !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
        d.Log.Error().Err(err).Msg("completion scan failed")
    }

    if !res.empty() {
        d.Log.Info().
            Int("selected", res.Selected).
            Int("sent", res.Sent).
            Int("failed", res.Failed).
            Int("skipped", res.Skipped).
            Dur("dur", time.Since(start)).
            Msg("tick finished")
    }
}
