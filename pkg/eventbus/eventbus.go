// Package eventbus publishes fired rules onto NATS as CloudEvents so
// sibling services can react to game events without touching the
// trigger service. The bridge is optional and best-effort: publish
// failures are logged and never reach the snapshot pipeline.
package eventbus

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/primaryrutabaga/cs2-link/pkg/natsx"
	"github.com/primaryrutabaga/cs2-link/pkg/schemas"
)

// publisher is the slice of *nats.Conn the bridge needs; narrowed for
// testing.
type publisher interface {
	Publish(subject string, data []byte) error
}

// Bridge publishes fired-rule CloudEvents.
type Bridge struct {
	nc  publisher
	now func() time.Time
}

func New(nc *nats.Conn) *Bridge {
	return &Bridge{nc: nc, now: time.Now}
}

// PublishFired emits one CloudEvent for a fired rule, carrying the
// transition that caused it.
func (b *Bridge) PublishFired(ruleID string, old, next schemas.Snapshot) {
	subject, err := natsx.FiredSubject(ruleID)
	if err != nil {
		log.Printf("eventbus: subject for rule %s: %v", ruleID, err)
		return
	}

	event := schemas.CloudEvent{
		SpecVersion: schemas.CloudEventsSpecVersion,
		ID:          uuid.NewString(),
		Source:      schemas.EventSourceTrigger,
		Type:        schemas.EventTypeFired,
		Time:        b.now().UTC().Format(time.RFC3339),
		Subject:     ruleID,
		Data: map[string]any{
			"event_id":  ruleID,
			"old_state": old,
			"new_state": next,
		},
	}

	raw, err := json.Marshal(event)
	if err != nil {
		log.Printf("eventbus: marshal event for rule %s: %v", ruleID, err)
		return
	}
	if err := b.nc.Publish(subject, raw); err != nil {
		log.Printf("eventbus: publish %s: %v", subject, err)
	}
}
