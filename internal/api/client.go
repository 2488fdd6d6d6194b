// internal/api/client.go
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fitvtt/attrition/pkg/core"
)

// Client posts attrition summaries to an external webhook, for tables that
// mirror survival state into Discord or a campaign dashboard.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new webhook client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Healthcheck checks if the webhook endpoint is reachable.
func (c *Client) Healthcheck() error {
	resp, err := c.httpClient.Get(c.baseURL + "/healthcheck")
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// summaryPayload is the wire form of a posted summary.
type summaryPayload struct {
	ActorID   string        `json:"actorId"`
	ActorName string        `json:"actorName"`
	WorldTime int64         `json:"worldTime"`
	Lines     []linePayload `json:"lines"`
}

type linePayload struct {
	Resource string `json:"resource"`
	Level    int    `json:"level"`
	Label    string `json:"label"`
}

// PostSummary sends one actor summary as JSON.
func (c *Client) PostSummary(s core.Summary) error {
	payload := summaryPayload{
		ActorID:   string(s.ActorID),
		ActorName: s.ActorName,
		WorldTime: s.WorldTime,
	}
	for _, line := range s.Lines {
		payload.Lines = append(payload.Lines, linePayload{
			Resource: line.Kind.String(),
			Level:    line.Level,
			Label:    line.Label,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/v1/summaries", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("summary post failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("summary post returned status %d", resp.StatusCode)
	}
	return nil
}
