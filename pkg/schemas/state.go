package schemas

import "fmt"

// PhaseUnknown is the phase reported before the first snapshot carries one.
const PhaseUnknown = "unknown"

// Snapshot is the watched subset of game state at one instant. It is
// both the evaluator's input and the hub's periodic broadcast payload.
type Snapshot struct {
	Health     int    `json:"health"`
	IsAlive    bool   `json:"is_alive"`
	Flashed    int    `json:"flashed"`
	Smoked     int    `json:"smoked"`
	Burning    int    `json:"burning"`
	RoundPhase string `json:"round_phase"`
	MapPhase   string `json:"map_phase"`
}

// InitialSnapshot is the baseline before any game data has arrived.
func InitialSnapshot() Snapshot {
	return Snapshot{
		Health:     100,
		IsAlive:    true,
		RoundPhase: PhaseUnknown,
		MapPhase:   PhaseUnknown,
	}
}

// StatePayload is the inbound game-state integration payload posted by
// the game client. Sections the client did not populate are nil.
type StatePayload struct {
	Provider *ProviderInfo `json:"provider"`
	Player   *PlayerInfo   `json:"player"`
	Round    *RoundInfo    `json:"round"`
	Map      *MapInfo      `json:"map"`
}

type ProviderInfo struct {
	SteamID string `json:"steamid"`
}

type PlayerInfo struct {
	SteamID string       `json:"steamid"`
	State   *PlayerState `json:"state"`
}

type PlayerState struct {
	Health  int `json:"health"`
	Flashed int `json:"flashed"`
	Smoked  int `json:"smoked"`
	Burning int `json:"burning"`
}

type RoundInfo struct {
	Phase string `json:"phase"`
}

type MapInfo struct {
	Phase string `json:"phase"`
}

// Validate rejects payloads missing the sections the evaluator needs.
// Round is optional; its phase defaults to unknown.
func (p *StatePayload) Validate() error {
	if p.Player == nil {
		return fmt.Errorf("missing player section")
	}
	if p.Map == nil {
		return fmt.Errorf("missing map section")
	}
	if p.Player.State == nil {
		return fmt.Errorf("missing player state section")
	}
	if p.Provider == nil {
		return fmt.Errorf("missing provider section")
	}
	return nil
}

// IsLocalPlayer reports whether the payload describes the locally
// observed player. Spectated-player payloads carry another steamid in
// the player section and are filtered, not rejected.
func (p *StatePayload) IsLocalPlayer() bool {
	return p.Provider != nil && p.Player != nil && p.Provider.SteamID == p.Player.SteamID
}

// Snapshot projects the payload into the watched attribute set. Missing
// numeric fields already decoded to zero; missing phases become unknown.
// Call Validate first.
func (p *StatePayload) Snapshot() Snapshot {
	s := Snapshot{
		Health:     p.Player.State.Health,
		Flashed:    p.Player.State.Flashed,
		Smoked:     p.Player.State.Smoked,
		Burning:    p.Player.State.Burning,
		RoundPhase: PhaseUnknown,
		MapPhase:   PhaseUnknown,
	}
	s.IsAlive = s.Health > 0
	if p.Round != nil && p.Round.Phase != "" {
		s.RoundPhase = p.Round.Phase
	}
	if p.Map.Phase != "" {
		s.MapPhase = p.Map.Phase
	}
	return s
}
