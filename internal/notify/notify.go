// Package notify delivers best-effort "research ready" events to callers.
// Delivery failures are logged, never propagated: a lost notification must
// not fail a research run.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Notifier announces that a fresh research packet is available for a lead.
type Notifier interface {
	ResearchReady(ctx context.Context, leadID, packetID string)
}

// Noop discards all notifications.
type Noop struct{}

func (Noop) ResearchReady(ctx context.Context, leadID, packetID string) {}

// Webhook posts research-ready events to an HTTP endpoint as JSON.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook creates a webhook notifier. An empty URL yields a notifier
// that silently drops events.
func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type readyEvent struct {
	Event    string `json:"event"`
	LeadID   string `json:"lead_id"`
	PacketID string `json:"packet_id"`
}

func (w *Webhook) ResearchReady(ctx context.Context, leadID, packetID string) {
	if w.url == "" {
		return
	}
	if err := w.post(ctx, readyEvent{Event: "research_ready", LeadID: leadID, PacketID: packetID}); err != nil {
		zap.L().Warn("notify: research-ready webhook failed",
			zap.String("lead_id", leadID),
			zap.Error(err),
		)
	}
}

func (w *Webhook) post(ctx context.Context, event readyEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return eris.Wrap(err, "notify: marshal event")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "notify: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "notify: request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return eris.Errorf("notify: webhook returned status %d", resp.StatusCode)
	}

	return nil
}
