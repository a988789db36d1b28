package natsx

import (
	"errors"
	"testing"
)

func TestIsValidToken(t *testing.T) {
	testCases := []struct {
		name  string
		token string
		want  bool
	}{
		{"valid lowercase", "token", true},
		{"valid with numbers", "token123", true},
		{"valid with underscore", "token_one", true},
		{"valid single char", "a", true},
		{"invalid with uppercase", "Token", false},
		{"invalid with dot", "token.one", false},
		{"invalid with dash", "token-one", false},
		{"invalid with space", "token one", false},
		{"empty string", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsValidToken(tc.token); got != tc.want {
				t.Errorf("IsValidToken(%q) = %v, want %v", tc.token, got, tc.want)
			}
		})
	}
}

func TestSanitizeToken(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{"already valid", "player_hurt", "player_hurt"},
		{"uppercase lowered", "RoundEnd", "roundend"},
		{"uuid dashes", "5caa6be5-9f3c-4b5a-8a3c-1ce0a2fbb3ff", "5caa6be5_9f3c_4b5a_8a3c_1ce0a2fbb3ff"},
		{"dots replaced", "a.b.c", "a_b_c"},
		{"empty input", "", "_"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeToken(tc.in); got != tc.want {
				t.Errorf("SanitizeToken(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestBuildSubject(t *testing.T) {
	testCases := []struct {
		name        string
		source      string
		class       string
		typ         string
		id          string
		action      string
		wantSubject string
		wantErr     error
	}{
		{"full valid subject", "cs2_link", "events", "game", "player_hurt", "fired", "cs2_link.events.game.player_hurt.fired", nil},
		{"valid without optional", "cs2_link", "commands", "sink", "", "", "cs2_link.commands.sink", nil},
		{"valid with id, no action", "cs2_link", "audit", "rule", "round_end", "", "cs2_link.audit.rule.round_end", nil},
		{"invalid source", "Invalid.Source", "events", "game", "", "", "", ErrInvalidToken},
		{"invalid class", "cs2_link", "invalidclass", "game", "", "", "", ErrInvalidClass},
		{"invalid type", "cs2_link", "events", "Game", "", "", "", ErrInvalidToken},
		{"invalid id", "cs2_link", "events", "game", "bad-id", "", "", ErrInvalidToken},
		{"invalid action", "cs2_link", "events", "game", "player_hurt", "state-Changed", "", ErrInvalidToken},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := BuildSubject(tc.source, tc.class, tc.typ, tc.id, tc.action)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("BuildSubject() error = %v, want %v", err, tc.wantErr)
				}
			} else if err != nil {
				t.Fatalf("BuildSubject() unexpected error = %v", err)
			}
			if got != tc.wantSubject {
				t.Errorf("BuildSubject() = %v, want %v", got, tc.wantSubject)
			}
		})
	}
}

func TestFiredSubject(t *testing.T) {
	testCases := []struct {
		name   string
		ruleID string
		want   string
	}{
		{"plain id", "player_hurt", "cs2_link.events.game.player_hurt.fired"},
		{"uuid id", "5caa6be5-9f3c-4b5a-8a3c-1ce0a2fbb3ff", "cs2_link.events.game.5caa6be5_9f3c_4b5a_8a3c_1ce0a2fbb3ff.fired"},
		{"empty id", "", "cs2_link.events.game._.fired"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := FiredSubject(tc.ruleID)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("FiredSubject(%q) = %q, want %q", tc.ruleID, got, tc.want)
			}
		})
	}
}
