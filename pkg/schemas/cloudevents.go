package schemas

const (
	CloudEventsSpecVersion = "1.0"
)

// Event source and type used for fired-trigger publications.
const (
	EventSourceTrigger = "cs2_link/trigger"
	EventTypeFired     = "game.event.fired"
)

// CloudEvent represents the minimal CloudEvents envelope published on
// the event bus for each fired rule.
type CloudEvent struct {
	SpecVersion string         `json:"specversion"`
	ID          string         `json:"id"`
	Source      string         `json:"source"`
	Type        string         `json:"type"`
	Time        string         `json:"time"`
	DataSchema  string         `json:"dataschema,omitempty"`
	Subject     string         `json:"subject,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
}
