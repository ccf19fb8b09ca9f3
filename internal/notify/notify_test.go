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

func TestWebhook_ResearchReady(t *testing.T) {
	var got readyEvent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	NewWebhook(srv.URL).ResearchReady(context.Background(), "lead-1", "packet-1")

	assert.Equal(t, "research_ready", got.Event)
	assert.Equal(t, "lead-1", got.LeadID)
	assert.Equal(t, "packet-1", got.PacketID)
}

func TestWebhook_FailureDoesNotPanic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	// Non-2xx and unreachable endpoints are logged, not surfaced.
	NewWebhook(srv.URL).ResearchReady(context.Background(), "lead-1", "packet-1")
	NewWebhook("http://127.0.0.1:1/unreachable").ResearchReady(context.Background(), "lead-1", "packet-1")
	NewWebhook("").ResearchReady(context.Background(), "lead-1", "packet-1")
}
