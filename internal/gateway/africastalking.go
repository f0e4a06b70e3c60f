// internal/gateway/africastalking.go
package gateway

import (
    "context"
    "encoding/json"
    "fmt"
    "net/http"
    "net/url"
    "strings"

    "github.com/textpulse/sms-backend/internal/config"
)

// AfricasTalking is an HTTP client for the Africa's Talking bulk SMS API.
type AfricasTalking struct {
    username string
    apiKey   string
    senderID string
    baseURL  string
    client   *http.Client
}

// NewAfricasTalking creates a provider client with a bounded timeout so a
// stuck call cannot stall a dispatch tick indefinitely.
func NewAfricasTalking(cfg config.ProviderConfig) *AfricasTalking {
    return &AfricasTalking{
        username: cfg.Username,
        apiKey:   cfg.APIKey,
        senderID: cfg.SenderID,
        baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
        client:   &http.Client{Timeout: cfg.Timeout()},
    }
}

type sendResponse struct {
    SMSMessageData struct {
        Message    string `json:"Message"`
        Recipients []struct {
            Number     string `json:"number"`
            Status     string `json:"status"`
            StatusCode int    `json:"statusCode"`
            MessageID  string `json:"messageId"`
        } `json:"Recipients"`
    } `json:"SMSMessageData"`
}

// Send posts one message and returns the provider message id.
func (g *AfricasTalking) Send(ctx context.Context, to, body string) (string, error) {
    form := url.Values{}
    form.Set("username", g.username)
    form.Set("to", to)
    form.Set("message", body)
    if g.senderID != "" {
        form.Set("from", g.senderID)
    }

    req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/version1/messaging", strings.NewReader(form.Encode()))
    if err != nil {
        return "", fmt.Errorf("building provider request: %w", err)
    }
    req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
    req.Header.Set("Accept", "application/json")
    req.Header.Set("apiKey", g.apiKey)

    resp, err := g.client.Do(req)
    if err != nil {
        return "", fmt.Errorf("provider request failed: %w", err)
    }
    defer resp.Body.Close()

    if resp.StatusCode < 200 || resp.StatusCode >= 300 {
        return "", fmt.Errorf("provider returned HTTP %d", resp.StatusCode)
    }

    var parsed sendResponse
    if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
        return "", fmt.Errorf("decoding provider response: %w", err)
    }

    recipients := parsed.SMSMessageData.Recipients
    if len(recipients) == 0 {
        return "", fmt.Errorf("provider accepted no recipients: %s", parsed.SMSMessageData.Message)
    }

    rec := recipients[0]
    if !strings.EqualFold(rec.Status, "Success") {
        return "", fmt.Errorf("provider send failed: %s (%d)", rec.Status, rec.StatusCode)
    }
    if rec.MessageID == "" {
        return "", fmt.Errorf("provider returned no message id for %s", rec.Number)
    }
    return rec.MessageID, nil
}
