// internal/api/client_test.go
package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fitvtt/attrition/pkg/core"
)

func TestNew(t *testing.T) {
	c := New("http://localhost:5000", "secret123")

	if c == nil {
		t.Fatal("New returned nil")
	}
	if c.baseURL != "http://localhost:5000" {
		t.Errorf("expected baseURL=http://localhost:5000, got %s", c.baseURL)
	}
	if c.apiKey != "secret123" {
		t.Errorf("expected apiKey=secret123, got %s", c.apiKey)
	}
	if c.httpClient == nil {
		t.Error("httpClient is nil")
	}
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:5000/", "secret")
	if c.baseURL != "http://localhost:5000" {
		t.Errorf("expected trailing slash trimmed, got %s", c.baseURL)
	}
}

func TestHealthcheck_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthcheck" {
			t.Errorf("expected path /healthcheck, got %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := New(server.URL, "")
	if err := c.Healthcheck(); err != nil {
		t.Errorf("Healthcheck failed: %v", err)
	}
}

func TestHealthcheck_ServerDown(t *testing.T) {
	c := New("http://localhost:59999", "") // unlikely to be listening
	if err := c.Healthcheck(); err == nil {
		t.Error("expected error for unreachable server")
	}
}

func TestHealthcheck_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := New(server.URL, "")
	if err := c.Healthcheck(); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestPostSummary_Success(t *testing.T) {
	var receivedKey string
	var received summaryPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/summaries" {
			t.Errorf("expected path /api/v1/summaries, got %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		receivedKey = r.Header.Get("X-Api-Key")

		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("failed to read body: %v", err)
		}
		if err := json.Unmarshal(body, &received); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := New(server.URL, "secret123")
	err := c.PostSummary(core.Summary{
		ActorID:   "actor-1",
		ActorName: "Mira",
		WorldTime: 86400,
		Lines: []core.SummaryLine{
			{Kind: core.Hunger, Level: 2, Label: "hungry"},
			{Kind: core.Thirst, Level: 0, Label: "quenched"},
		},
	})
	if err != nil {
		t.Fatalf("PostSummary failed: %v", err)
	}

	if receivedKey != "secret123" {
		t.Errorf("expected api key header, got %q", receivedKey)
	}
	if received.ActorName != "Mira" {
		t.Errorf("expected actorName=Mira, got %s", received.ActorName)
	}
	if len(received.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(received.Lines))
	}
	if received.Lines[0].Resource != "hunger" || received.Lines[0].Label != "hungry" {
		t.Errorf("unexpected first line: %+v", received.Lines[0])
	}
}

func TestPostSummary_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	c := New(server.URL, "wrong")
	if err := c.PostSummary(core.Summary{ActorID: "a"}); err == nil {
		t.Error("expected error for 403 response")
	}
}
