// internal/gateway/disabled.go
package gateway

import (
    "context"
    "errors"
)

// ErrNotConfigured is the deterministic failure of the Disabled gateway.
var ErrNotConfigured = errors.New("sms provider not configured: set AT_API_KEY")

// Disabled is the gateway used when provider credentials are absent. The
// dashboard and queueing keep working; every send fails terminally with
// the same error.
type Disabled struct{}

func (g *Disabled) Send(ctx context.Context, to, body string) (string, error) {
    return "", ErrNotConfigured
}
