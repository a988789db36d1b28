// Package dispatch delivers fired-rule commands to the external
// notification sink. Delivery is best-effort: one bounded attempt per
// action, failures logged and isolated so a dead sink never stalls
// snapshot processing.
package dispatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/primaryrutabaga/cs2-link/pkg/metrics"
	"github.com/primaryrutabaga/cs2-link/pkg/schemas"
)

const (
	sinkPath       = "/api/send-command"
	requestTimeout = 5 * time.Second
	maxInFlight    = 16
)

// commandRequest is the sink's wire format for one command.
type commandRequest struct {
	CommandID string `json:"commandId"`
}

// sinkResponse is the sink's JSON reply.
type sinkResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Client posts send_command actions to the sink endpoint. A semaphore
// bounds concurrent in-flight calls across all firings.
type Client struct {
	endpoint string
	http     *http.Client
	sem      chan struct{}
}

func New(baseURL string) *Client {
	return &Client{
		endpoint: strings.TrimRight(baseURL, "/") + sinkPath,
		http:     &http.Client{Timeout: requestTimeout},
		sem:      make(chan struct{}, maxInFlight),
	}
}

// Dispatch runs every action of one fired rule in order. Each action
// gets exactly one attempt; a failure is logged and the remaining
// actions still run. Unknown action types are skipped (they cannot
// enter through the admin surface, but a hand-edited rule file can
// carry them).
func (c *Client) Dispatch(ruleID string, actions []schemas.Action) {
	for _, a := range actions {
		if a.Type != schemas.ActionSendCommand {
			log.Printf("dispatch: rule %s: skipping unknown action type %q", ruleID, a.Type)
			continue
		}
		if err := c.sendCommand(a.Command); err != nil {
			metrics.DispatchTotal.WithLabelValues("failed").Inc()
			log.Printf("dispatch: rule %s: command %q failed: %v", ruleID, a.Command, err)
			continue
		}
		metrics.DispatchTotal.WithLabelValues("sent").Inc()
		log.Printf("dispatch: rule %s: command %q sent", ruleID, a.Command)
	}
}

func (c *Client) sendCommand(commandID string) error {
	c.sem <- struct{}{}
	defer func() { <-c.sem }()

	body, err := json.Marshal(commandRequest{CommandID: commandID})
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}

	resp, err := c.http.Post(c.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	var result sinkResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("sink rejected command: %s", result.Message)
	}
	return nil
}
