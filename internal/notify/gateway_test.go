package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewaySendPostsJSON(t *testing.T) {
	var got gatewayMessage
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	gw, err := NewGateway(GatewayConfig{URL: srv.URL, Token: "secret", SenderID: "LANDBOOK"})
	require.NoError(t, err)
	require.NoError(t, gw.Send(context.Background(), "+923001234567", "hello"))

	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, gatewayMessage{To: "+923001234567", From: "LANDBOOK", Message: "hello"}, got)
}

func TestGatewaySendReportsFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	gw, err := NewGateway(GatewayConfig{URL: srv.URL})
	require.NoError(t, err)
	err = gw.Send(context.Background(), "1", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestNewGatewayRequiresURL(t *testing.T) {
	_, err := NewGateway(GatewayConfig{})
	assert.Error(t, err)
}
