package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/HeyGuihi/CrioloWhatsApp/app/config"
	"github.com/samber/do"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	upstream := httptest.NewServer(handler)
	t.Cleanup(upstream.Close)

	cfg := &config.Config{
		Gateway: config.Gateway{
			BaseURL: upstream.URL,
			Token:   "gw-test",
		},
	}
	cfg.ApplyDefaults()

	di := do.New()
	t.Cleanup(func() { _ = di.Shutdown() })
	do.ProvideValue(di, cfg)

	client, err := NewClient(di)
	require.NoError(t, err)

	return client
}

func TestSend(t *testing.T) {
	var got sendRequest
	var auth string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})

	err := client.Send(context.Background(), "5511999999999", "Olá!")
	require.NoError(t, err)

	assert.Equal(t, "Bearer gw-test", auth)
	assert.Equal(t, "5511999999999", got.ContactID)
	assert.Equal(t, "Olá!", got.Text)
}

func TestSendReusesConnection(t *testing.T) {
	var mu sync.Mutex
	conns := make(map[string]struct{})

	// Large enough that an undrained body would force the transport to
	// drop the connection instead of reusing it.
	body := bytes.Repeat([]byte("a"), 8<<10)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		conns[r.RemoteAddr] = struct{}{}
		mu.Unlock()

		_, _ = w.Write(body)
	})

	for i := 0; i < 3; i++ {
		require.NoError(t, client.Send(context.Background(), "5511999999999", "Olá!"))
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, conns, 1, "sequential sends should share one connection")
}

func TestSendRejectedByGateway(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "session expired", http.StatusUnauthorized)
	})

	err := client.Send(context.Background(), "5511999999999", "Olá!")
	assert.Error(t, err)
}
