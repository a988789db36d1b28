package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/primaryrutabaga/cs2-link/pkg/metrics"
	"github.com/primaryrutabaga/cs2-link/pkg/rules"
	"github.com/primaryrutabaga/cs2-link/pkg/schemas"
)

// ErrMalformed marks inbound payloads missing required sections.
var ErrMalformed = errors.New("malformed state payload")

// Status classifies the outcome of one snapshot submission.
type Status string

const (
	StatusProcessed Status = "success"
	StatusIgnored   Status = "ignored"
)

// Dispatcher runs a fired rule's actions against the command sink. It
// must be safe for concurrent use; outcomes are logged by the
// implementation and never reach the processor.
type Dispatcher interface {
	Dispatch(ruleID string, actions []schemas.Action)
}

// Notifier fans a fired rule out to live observers.
type Notifier interface {
	NotifyEvent(ruleID string, old, next schemas.Snapshot)
}

// Publisher forwards a fired rule to the event bus. Optional.
type Publisher interface {
	PublishFired(ruleID string, old, next schemas.Snapshot)
}

// Processor drives the snapshot pipeline: validate, evaluate against
// the baseline, hand fired rules to the dispatcher/notifier/publisher,
// then overwrite the baseline. One mutex serializes the whole
// read-evaluate-write sequence so concurrent submissions cannot
// interleave into a baseline that reflects neither.
type Processor struct {
	mu         sync.Mutex
	tracker    *Tracker
	store      *rules.Store
	dispatcher Dispatcher
	notifier   Notifier
	publisher  Publisher
}

// NewProcessor wires the pipeline. publisher may be nil when the event
// bus is disabled.
func NewProcessor(tracker *Tracker, store *rules.Store, dispatcher Dispatcher, notifier Notifier, publisher Publisher) *Processor {
	return &Processor{
		tracker:    tracker,
		store:      store,
		dispatcher: dispatcher,
		notifier:   notifier,
		publisher:  publisher,
	}
}

// Submit processes one inbound snapshot payload. Malformed payloads are
// rejected before any state changes; payloads for a player other than
// the locally observed one are ignored, which is a filter outcome, not
// an error. Dispatch runs fire-and-forget so a slow sink never blocks
// the pipeline beyond the dispatcher's own timeout.
func (p *Processor) Submit(payload *schemas.StatePayload) (Status, error) {
	if err := payload.Validate(); err != nil {
		metrics.SnapshotsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !payload.IsLocalPlayer() {
		metrics.SnapshotsTotal.WithLabelValues("ignored").Inc()
		return StatusIgnored, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	old := p.tracker.Current()
	next := payload.Snapshot()

	for _, sr := range Evaluate(old, next, p.store.List()) {
		metrics.EventsFiredTotal.WithLabelValues(sr.ID).Inc()
		go p.dispatcher.Dispatch(sr.ID, sr.Rule.Actions)
		p.notifier.NotifyEvent(sr.ID, old, next)
		if p.publisher != nil {
			p.publisher.PublishFired(sr.ID, old, next)
		}
	}

	p.tracker.Replace(next)
	metrics.SnapshotsTotal.WithLabelValues("success").Inc()
	return StatusProcessed, nil
}
