package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gridpilot-labs/gridpilot-go/internal/config"
	"github.com/gridpilot-labs/gridpilot-go/internal/cua"
	"github.com/gridpilot-labs/gridpilot-go/internal/runner"
	"github.com/gridpilot-labs/gridpilot-go/internal/tasks"
	"github.com/gridpilot-labs/gridpilot-go/internal/trajectory"
	"github.com/gridpilot-labs/gridpilot-go/internal/ws"
)

func dialTestServer(t *testing.T, factory ws.Factory) *websocket.Conn {
	t.Helper()
	logger := testLogger()
	registry := ws.NewRegistry(logger)

	mux := http.NewServeMux()
	newWSAPI(logger, registry, factory, 0).register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) (string, map[string]any) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var envelope struct {
		Type      string         `json:"type"`
		Payload   map[string]any `json:"payload"`
		Timestamp float64        `json:"timestamp"`
	}
	if err := conn.ReadJSON(&envelope); err != nil {
		t.Fatalf("read envelope: %v", err)
	}
	if envelope.Timestamp <= 0 {
		t.Fatalf("envelope timestamp = %v", envelope.Timestamp)
	}
	return envelope.Type, envelope.Payload
}

func TestWebSocketGreeting(t *testing.T) {
	conn := dialTestServer(t, func(string, runner.Hooks) (ws.JobRunner, error) {
		return nil, ws.ErrUnknownEndpoint
	})

	msgType, payload := readEnvelope(t, conn)
	if msgType != ws.TypeStatus {
		t.Fatalf("greeting type = %q, want status", msgType)
	}
	if payload["status"] != "idle" || payload["message"] != "Connected. Ready to start." {
		t.Fatalf("greeting payload = %v", payload)
	}
}

func TestWebSocketRunAPIRoundTrip(t *testing.T) {
	factory := func(endpoint string, hooks runner.Hooks) (ws.JobRunner, error) {
		if endpoint != "buses" {
			return nil, ws.ErrUnknownEndpoint
		}
		return &stubJob{result: runner.Result{Status: runner.StatusSuccess}}, nil
	}
	conn := dialTestServer(t, factory)

	// Drain the greeting.
	readEnvelope(t, conn)

	frame, _ := json.Marshal(map[string]any{
		"type":    "run_api",
		"payload": map[string]string{"endpoint": "buses"},
	})
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	sawResponse := false
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !sawResponse {
		msgType, payload := readEnvelope(t, conn)
		if msgType == ws.TypeAPIResponse {
			if payload["endpoint"] != "buses" || payload["status"] != "success" {
				t.Fatalf("api_response payload = %v", payload)
			}
			sawResponse = true
		}
	}
	if !sawResponse {
		t.Fatal("api_response never arrived")
	}
}

func TestWebSocketUnknownEndpoint(t *testing.T) {
	conn := dialTestServer(t, func(string, runner.Hooks) (ws.JobRunner, error) {
		return nil, ws.ErrUnknownEndpoint
	})
	readEnvelope(t, conn)

	frame, _ := json.Marshal(map[string]any{
		"type":    "run_api",
		"payload": map[string]string{"endpoint": "frequency"},
	})
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	msgType, payload := readEnvelope(t, conn)
	if msgType != ws.TypeError {
		t.Fatalf("type = %q, want error", msgType)
	}
	if payload["message"] != "Unknown API endpoint: frequency" {
		t.Fatalf("payload = %v", payload)
	}
}

func TestRunnerFactoryMapsEndpoints(t *testing.T) {
	cfgFactory := newTestFactory(t)

	for _, endpoint := range []string{"", "buses", "contingency", "grid"} {
		job, err := cfgFactory(endpoint, runner.Hooks{})
		if err != nil {
			t.Fatalf("factory(%q) error = %v", endpoint, err)
		}
		if job == nil {
			t.Fatalf("factory(%q) returned nil job", endpoint)
		}
		if job.IsRunning() {
			t.Fatalf("factory(%q) job already running", endpoint)
		}
	}

	if _, err := cfgFactory("frequency", runner.Hooks{}); err != ws.ErrUnknownEndpoint {
		t.Fatalf("factory(frequency) error = %v, want ErrUnknownEndpoint", err)
	}
	// The interactive task has no schema and is not reachable as an API.
	if _, err := cfgFactory("agent", runner.Hooks{}); err != ws.ErrUnknownEndpoint {
		t.Fatalf("factory(agent) error = %v, want ErrUnknownEndpoint", err)
	}
}

func newTestFactory(t *testing.T) ws.Factory {
	t.Helper()
	logger := testLogger()
	catalog, err := tasks.Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	cfg := config.Config{
		Service: "gridpilot-backend",
		Engine: config.EngineConfig{
			SandboxName: "m-windows-test",
			TargetURL:   "http://grid.local",
		},
	}
	store := trajectory.NewStore(t.TempDir(), logger)
	return newRunnerFactory(cfg, catalog, stubEngine{}, store, nil, nil, logger)
}

type stubEngine struct{}

func (stubEngine) Connect(ctx context.Context, target string) (cua.Session, error) {
	return nil, context.Canceled
}
