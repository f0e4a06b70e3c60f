// internal/gateway/gateway.go
package gateway

import (
    "context"

    "github.com/textpulse/sms-backend/internal/config"
)

// Gateway sends a single SMS and returns the provider's reference id.
// Every failure mode (timeout, rejection, malformed response) surfaces as
// a plain error; the dispatcher records the text verbatim and never
// retries.
type Gateway interface {
    Send(ctx context.Context, to, body string) (string, error)
}

// New builds the gateway handle once at process start. Missing
// credentials yield a gateway that deterministically fails every call
// instead of a hidden readiness flag checked ad hoc.
func New(cfg config.ProviderConfig) Gateway {
    if cfg.DryRun {
        return &DryRun{}
    }
    if cfg.APIKey == "" {
        return &Disabled{}
    }
    return NewAfricasTalking(cfg)
}
