package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/primaryrutabaga/cs2-link/pkg/dispatch"
	"github.com/primaryrutabaga/cs2-link/pkg/engine"
	"github.com/primaryrutabaga/cs2-link/pkg/hub"
	"github.com/primaryrutabaga/cs2-link/pkg/rules"
	"github.com/primaryrutabaga/cs2-link/pkg/schemas"
)

// testSink records commandIds the dispatcher delivers.
type testSink struct {
	mu       sync.Mutex
	commands []string
}

func (s *testSink) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			CommandID string `json:"commandId"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		s.mu.Lock()
		s.commands = append(s.commands, req.CommandID)
		s.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
}

func (s *testSink) waitFor(t *testing.T, command string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		for _, c := range s.commands {
			if c == command {
				s.mu.Unlock()
				return
			}
		}
		s.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("sink never received %q", command)
}

type fixture struct {
	srv  *httptest.Server
	sink *testSink
}

func newFixture(t *testing.T, staticDir string) *fixture {
	t.Helper()

	sink := &testSink{}
	sinkSrv := httptest.NewServer(sink.handler())
	t.Cleanup(sinkSrv.Close)

	store, err := rules.Open(filepath.Join(t.TempDir(), "rules.yaml"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	tracker := engine.NewTracker()
	h := hub.New(time.Minute, tracker.Current)
	processor := engine.NewProcessor(tracker, store, dispatch.New(sinkSrv.URL), h, nil)

	srv := httptest.NewServer(New(processor, tracker, store, h, staticDir).Router())
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, sink: sink}
}

func (f *fixture) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(f.srv.URL+path, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func snapshotBody(health int, mutate func(map[string]any)) map[string]any {
	body := map[string]any{
		"provider": map[string]any{"steamid": "1"},
		"player": map[string]any{
			"steamid": "1",
			"state":   map[string]any{"health": health},
		},
		"round": map[string]any{"phase": "live"},
		"map":   map[string]any{"phase": "live"},
	}
	if mutate != nil {
		mutate(body)
	}
	return body
}

// ---------------------------------------------------------------------------
// Snapshot ingestion
// ---------------------------------------------------------------------------

func TestSnapshotPipeline(t *testing.T) {
	f := newFixture(t, "")

	// Observe events before submitting.
	wsURL := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/game-events"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial events socket: %v", err)
	}
	defer ws.Close()
	// Let the subscription land before the snapshot arrives.
	if err := ws.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
		t.Fatal(err)
	}
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, pong, err := ws.ReadMessage(); err != nil || string(pong) != "pong" {
		t.Fatalf("heartbeat failed: %q, %v", pong, err)
	}

	resp := f.postJSON(t, "/api/cs2-event", snapshotBody(80, nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	result := decodeBody[map[string]string](t, resp)
	if result["status"] != "success" {
		t.Errorf("status = %q, want success", result["status"])
	}

	// The dispatcher reached the sink.
	f.sink.waitFor(t, "player_hurt")

	// The observer got the event.
	var msg schemas.EventMessage
	if err := ws.ReadJSON(&msg); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if msg.EventID != "player_hurt" {
		t.Errorf("event_id = %q, want player_hurt", msg.EventID)
	}
	if msg.Data.OldState.Health != 100 || msg.Data.NewState.Health != 80 {
		t.Errorf("transition = %+v, want 100 -> 80", msg.Data)
	}

	// The baseline advanced.
	stateResp, err := http.Get(f.srv.URL + "/api/game-state")
	if err != nil {
		t.Fatal(err)
	}
	state := decodeBody[schemas.Snapshot](t, stateResp)
	if state.Health != 80 || !state.IsAlive {
		t.Errorf("game state = %+v, want health 80 alive", state)
	}
}

func TestSnapshotMalformed(t *testing.T) {
	f := newFixture(t, "")

	resp := f.postJSON(t, "/api/cs2-event", snapshotBody(0, func(b map[string]any) {
		delete(b, "player")
	}))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	result := decodeBody[map[string]string](t, resp)
	if result["status"] != "error" {
		t.Errorf("status = %q, want error", result["status"])
	}

	// No state change.
	stateResp, err := http.Get(f.srv.URL + "/api/game-state")
	if err != nil {
		t.Fatal(err)
	}
	state := decodeBody[schemas.Snapshot](t, stateResp)
	if state != schemas.InitialSnapshot() {
		t.Errorf("baseline changed on malformed payload: %+v", state)
	}
}

func TestSnapshotNotJSON(t *testing.T) {
	f := newFixture(t, "")
	resp, err := http.Post(f.srv.URL+"/api/cs2-event", "application/json", strings.NewReader("not json"))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSnapshotSpectatorIgnored(t *testing.T) {
	f := newFixture(t, "")

	resp := f.postJSON(t, "/api/cs2-event", snapshotBody(0, func(b map[string]any) {
		b["player"].(map[string]any)["steamid"] = "2"
	}))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	result := decodeBody[map[string]string](t, resp)
	if result["status"] != "ignored" {
		t.Errorf("status = %q, want ignored", result["status"])
	}
}

// ---------------------------------------------------------------------------
// Rule administration
// ---------------------------------------------------------------------------

func TestRuleAdministration(t *testing.T) {
	f := newFixture(t, "")

	t.Run("list seeds defaults", func(t *testing.T) {
		resp, err := http.Get(f.srv.URL + "/api/events")
		if err != nil {
			t.Fatal(err)
		}
		body := decodeBody[struct {
			Events map[string]schemas.Rule `json:"events"`
		}](t, resp)
		if _, ok := body.Events["player_hurt"]; !ok {
			t.Errorf("default rules missing, got %d rules", len(body.Events))
		}
	})

	t.Run("get unknown rule", func(t *testing.T) {
		resp, err := http.Get(f.srv.URL + "/api/events/nope")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})

	var createdID string
	t.Run("create", func(t *testing.T) {
		resp := f.postJSON(t, "/api/events", map[string]any{
			"event_name": "warmup started",
			"enabled":    true,
			"trigger_condition": map[string]any{
				"type":  "round_phase",
				"value": "freezetime",
			},
			"actions": []map[string]any{
				{"type": "send_command", "command": "warmup"},
			},
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		body := decodeBody[struct {
			Success bool   `json:"success"`
			EventID string `json:"event_id"`
		}](t, resp)
		if !body.Success || body.EventID == "" {
			t.Fatalf("create response = %+v", body)
		}
		createdID = body.EventID
	})

	t.Run("get created", func(t *testing.T) {
		resp, err := http.Get(f.srv.URL + "/api/events/" + createdID)
		if err != nil {
			t.Fatal(err)
		}
		rule := decodeBody[schemas.Rule](t, resp)
		if rule.Name != "warmup started" {
			t.Errorf("name = %q", rule.Name)
		}
	})

	t.Run("update", func(t *testing.T) {
		resp := f.postJSON(t, "/api/events/"+createdID, map[string]any{
			"event_name": "warmup started",
			"enabled":    false,
			"trigger_condition": map[string]any{
				"type":  "round_phase",
				"value": "freezetime",
			},
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		resp.Body.Close()

		check, err := http.Get(f.srv.URL + "/api/events/" + createdID)
		if err != nil {
			t.Fatal(err)
		}
		rule := decodeBody[schemas.Rule](t, check)
		if rule.Enabled {
			t.Error("update did not disable the rule")
		}
	})

	t.Run("reject unknown condition", func(t *testing.T) {
		resp := f.postJSON(t, "/api/events", map[string]any{
			"event_name": "bad",
			"enabled":    true,
			"trigger_condition": map[string]any{
				"type": "teleported",
			},
		})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("delete", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodDelete, f.srv.URL+"/api/events/"+createdID, nil)
		if err != nil {
			t.Fatal(err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}

		again, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		again.Body.Close()
		if again.StatusCode != http.StatusNotFound {
			t.Errorf("second delete status = %d, want 404", again.StatusCode)
		}
	})
}

// ---------------------------------------------------------------------------
// Ancillary endpoints
// ---------------------------------------------------------------------------

func TestHealth(t *testing.T) {
	f := newFixture(t, "")
	resp, err := http.Get(f.srv.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	body := decodeBody[map[string]string](t, resp)
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, "")
	resp, err := http.Get(f.srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestStaticServing(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>panel</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	f := newFixture(t, dir)

	t.Run("index", func(t *testing.T) {
		resp, err := http.Get(f.srv.URL + "/")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want 200", resp.StatusCode)
		}
	})

	t.Run("spa fallback", func(t *testing.T) {
		resp, err := http.Get(f.srv.URL + "/settings/events")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("client route status = %d, want index fallback 200", resp.StatusCode)
		}
	})

	t.Run("api paths never fall back", func(t *testing.T) {
		resp, err := http.Get(f.srv.URL + "/api/nope")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})
}
