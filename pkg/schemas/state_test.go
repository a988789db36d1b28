package schemas

import (
	"encoding/json"
	"testing"
)

func payloadFixture() *StatePayload {
	return &StatePayload{
		Provider: &ProviderInfo{SteamID: "7656119000001"},
		Player: &PlayerInfo{
			SteamID: "7656119000001",
			State:   &PlayerState{Health: 80, Flashed: 0, Smoked: 0, Burning: 0},
		},
		Round: &RoundInfo{Phase: "live"},
		Map:   &MapInfo{Phase: "live"},
	}
}

func TestStatePayloadValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*StatePayload)
		wantErr bool
	}{
		{"complete payload", func(p *StatePayload) {}, false},
		{"missing player", func(p *StatePayload) { p.Player = nil }, true},
		{"missing map", func(p *StatePayload) { p.Map = nil }, true},
		{"missing player state", func(p *StatePayload) { p.Player.State = nil }, true},
		{"missing provider", func(p *StatePayload) { p.Provider = nil }, true},
		{"missing round is fine", func(p *StatePayload) { p.Round = nil }, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := payloadFixture()
			tc.mutate(p)
			err := p.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestStatePayloadIsLocalPlayer(t *testing.T) {
	p := payloadFixture()
	if !p.IsLocalPlayer() {
		t.Error("matching steamids should be the local player")
	}
	p.Player.SteamID = "7656119000002"
	if p.IsLocalPlayer() {
		t.Error("mismatched steamids should not be the local player")
	}
}

func TestStatePayloadSnapshot(t *testing.T) {
	t.Run("full payload", func(t *testing.T) {
		p := payloadFixture()
		p.Player.State.Flashed = 3
		s := p.Snapshot()
		want := Snapshot{Health: 80, IsAlive: true, Flashed: 3, RoundPhase: "live", MapPhase: "live"}
		if s != want {
			t.Errorf("snapshot = %+v, want %+v", s, want)
		}
	})

	t.Run("dead player", func(t *testing.T) {
		p := payloadFixture()
		p.Player.State.Health = 0
		s := p.Snapshot()
		if s.IsAlive {
			t.Error("IsAlive should be false at zero health")
		}
	})

	t.Run("missing round defaults to unknown", func(t *testing.T) {
		p := payloadFixture()
		p.Round = nil
		if got := p.Snapshot().RoundPhase; got != PhaseUnknown {
			t.Errorf("RoundPhase = %q, want %q", got, PhaseUnknown)
		}
	})
}

// Missing numeric state fields must decode to zero, per the ingestion
// contract for producers that omit them.
func TestStatePayloadDecodeDefaults(t *testing.T) {
	raw := `{
		"provider": {"steamid": "1"},
		"player": {"steamid": "1", "state": {"health": 100}},
		"map": {"phase": "warmup"}
	}`
	var p StatePayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	s := p.Snapshot()
	if s.Flashed != 0 || s.Smoked != 0 || s.Burning != 0 {
		t.Errorf("omitted state fields should default to 0, got %+v", s)
	}
	if s.RoundPhase != PhaseUnknown {
		t.Errorf("RoundPhase = %q, want %q", s.RoundPhase, PhaseUnknown)
	}
	if s.MapPhase != "warmup" {
		t.Errorf("MapPhase = %q, want %q", s.MapPhase, "warmup")
	}
}
