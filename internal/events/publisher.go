// Package events publishes distribution notifications to external observers.
package events

import (
	"time"

	"airdrop-backend/internal/clients"

	"github.com/sirupsen/logrus"
)

// Event is the envelope every notification is wrapped in
type Event struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// ClaimSucceededEvent is emitted after a successful claim commit
type ClaimSucceededEvent struct {
	ClaimID   string `json:"claim_id"`
	Nullifier string `json:"nullifier"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
	EpochID   uint64 `json:"epoch_id"`
}

// EpochRotatedEvent is emitted when the administrator rotates the epoch
type EpochRotatedEvent struct {
	EpochID uint64 `json:"epoch_id"`
	Root    string `json:"root"`
}

// PauseToggledEvent is emitted when the pause gate changes
type PauseToggledEvent struct {
	Paused bool `json:"paused"`
}

// RewardChangedEvent is emitted when the per-claim reward changes
type RewardChangedEvent struct {
	Amount string `json:"amount"`
}

// Sink receives events in-process (the websocket feed)
type Sink interface {
	Broadcast(event Event)
}

// Publisher fans notifications out to NATS and any in-process sinks. Both
// targets are optional; delivery is fire-and-forget and never fails the
// operation that produced the event.
type Publisher struct {
	nats   *clients.NATSClient
	sinks  []Sink
	prefix string
}

// NewPublisher creates a publisher. nats may be nil (publishing disabled).
func NewPublisher(nats *clients.NATSClient, prefix string, sinks ...Sink) *Publisher {
	if prefix == "" {
		prefix = "airdrop"
	}
	return &Publisher{nats: nats, sinks: sinks, prefix: prefix}
}

func (p *Publisher) publish(subject, eventType string, data interface{}) {
	event := Event{Type: eventType, Timestamp: time.Now().UTC(), Data: data}

	for _, sink := range p.sinks {
		sink.Broadcast(event)
	}

	if p.nats == nil {
		return
	}
	if err := p.nats.Publish(p.prefix+"."+subject, event); err != nil {
		logrus.WithError(err).WithField("subject", subject).Warn("Failed to publish event")
	}
}

// ClaimSucceeded notifies observers of a completed payout
func (p *Publisher) ClaimSucceeded(e ClaimSucceededEvent) {
	p.publish("claim.succeeded", "claim_succeeded", e)
}

// EpochRotated notifies observers of a new epoch and root
func (p *Publisher) EpochRotated(e EpochRotatedEvent) {
	p.publish("epoch.rotated", "epoch_rotated", e)
}

// PauseToggled notifies observers of a pause gate change
func (p *Publisher) PauseToggled(e PauseToggledEvent) {
	p.publish("pause.toggled", "pause_toggled", e)
}

// RewardChanged notifies observers of a reward amount change
func (p *Publisher) RewardChanged(e RewardChangedEvent) {
	p.publish("reward.changed", "reward_changed", e)
}
