// internal/dispatch/completion.go
package dispatch

import (
    "context"
    "fmt"
)

// CloseFinishedCampaigns marks started campaigns with no queued or
// sending messages left as completed. Runs after every tick. Idempotent:
// already-completed campaigns are excluded by the repository query, and a
// campaign that activated with zero recipients closes on the first scan.
func (d *Dispatcher) CloseFinishedCampaigns(ctx context.Context) error {
    campaigns, err := d.Campaigns.ListStartedIncomplete()
    if err != nil {
        return fmt.Errorf("listing open campaigns: %w", err)
    }

    for _, c := range campaigns {
        if err := ctx.Err(); err != nil {
            return err
        }
        remaining, err := d.Messages.CountActiveByCampaign(c.ID)
        if err != nil {
            d.Log.Error().Err(err).Int("campaign", c.ID).Msg("counting remaining messages failed")
            continue
        }
        if remaining > 0 {
            continue
        }
        if err := d.Campaigns.Complete(c.ID, d.now()); err != nil {
            d.Log.Error().Err(err).Int("campaign", c.ID).Msg("completing campaign failed")
            continue
        }
        d.Audit.Record("campaign_completed", fmt.Sprintf("id=%d", c.ID))
        d.Log.Info().Int("campaign", c.ID).Str("name", c.Name).Msg("campaign completed")
    }
    return nil
}
