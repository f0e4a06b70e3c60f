// internal/gateway/gateway_test.go
package gateway_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textpulse/sms-backend/internal/config"
	"github.com/textpulse/sms-backend/internal/gateway"
)

func providerConfig(baseURL string) config.ProviderConfig {
	return config.ProviderConfig{
		Username:       "sandbox",
		APIKey:         "atsk_test",
		SenderID:       "TEXTPULSE",
		BaseURL:        baseURL,
		TimeoutSeconds: 5,
	}
}

func TestAfricasTalkingSendSuccess(t *testing.T) {
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/version1/messaging", r.URL.Path)
		assert.Equal(t, "atsk_test", r.Header.Get("apiKey"))
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"username": r.PostForm.Get("username"),
			"to":       r.PostForm.Get("to"),
			"message":  r.PostForm.Get("message"),
			"from":     r.PostForm.Get("from"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"SMSMessageData":{"Message":"Sent to 1/1","Recipients":[
			{"number":"+254700000001","status":"Success","statusCode":101,"messageId":"ATXid_abc123"}
		]}}`))
	}))
	defer srv.Close()

	g := gateway.NewAfricasTalking(providerConfig(srv.URL))
	id, err := g.Send(context.Background(), "+254700000001", "hello there")
	require.NoError(t, err)

	assert.Equal(t, "ATXid_abc123", id)
	assert.Equal(t, "sandbox", gotForm["username"])
	assert.Equal(t, "+254700000001", gotForm["to"])
	assert.Equal(t, "hello there", gotForm["message"])
	assert.Equal(t, "TEXTPULSE", gotForm["from"])
}

func TestAfricasTalkingSendRecipientFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"SMSMessageData":{"Message":"Sent to 0/1","Recipients":[
			{"number":"+254700000001","status":"UserInBlacklist","statusCode":406,"messageId":""}
		]}}`))
	}))
	defer srv.Close()

	g := gateway.NewAfricasTalking(providerConfig(srv.URL))
	_, err := g.Send(context.Background(), "+254700000001", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UserInBlacklist")
}

func TestAfricasTalkingSendNoRecipients(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"SMSMessageData":{"Message":"InvalidSenderId","Recipients":[]}}`))
	}))
	defer srv.Close()

	g := gateway.NewAfricasTalking(providerConfig(srv.URL))
	_, err := g.Send(context.Background(), "+254700000001", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "InvalidSenderId")
}

func TestAfricasTalkingSendHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	g := gateway.NewAfricasTalking(providerConfig(srv.URL))
	_, err := g.Send(context.Background(), "+254700000001", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestNewSelectsImplementation(t *testing.T) {
	dry := gateway.New(config.ProviderConfig{DryRun: true})
	id, err := dry.Send(context.Background(), "+254700000001", "hi")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "dry_"))

	disabled := gateway.New(config.ProviderConfig{})
	_, err = disabled.Send(context.Background(), "+254700000001", "hi")
	assert.ErrorIs(t, err, gateway.ErrNotConfigured)

	real := gateway.New(providerConfig("https://api.africastalking.com"))
	_, ok := real.(*gateway.AfricasTalking)
	assert.True(t, ok)
}
