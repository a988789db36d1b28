package schemas

// Observer websocket message types.
const (
	MessageTypeState = "game_state"
	MessageTypeEvent = "game_event"
)

// StateMessage is the periodic full-state push to a game-state observer.
type StateMessage struct {
	Type      string   `json:"type"`
	Data      Snapshot `json:"data"`
	Timestamp string   `json:"timestamp"`
}

// EventMessage notifies observers that a rule fired, carrying the state
// transition that caused it.
type EventMessage struct {
	Type      string     `json:"type"`
	EventID   string     `json:"event_id"`
	Data      Transition `json:"data"`
	Timestamp string     `json:"timestamp"`
}

// Transition is the (old, new) snapshot pair of one observed change.
type Transition struct {
	OldState Snapshot `json:"old_state"`
	NewState Snapshot `json:"new_state"`
}
