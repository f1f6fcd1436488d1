package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gridpilot-labs/gridpilot-go/internal/runner"
)

// ErrUnknownEndpoint is returned by a Factory for an endpoint name it does
// not serve.
var ErrUnknownEndpoint = errors.New("unknown api endpoint")

// JobRunner is the slice of the runner the session needs. One JobRunner
// is built per run and discarded afterwards.
type JobRunner interface {
	Run(ctx context.Context) runner.Result
	Stop()
	IsRunning() bool
}

// Factory builds a runner for one run. An empty endpoint means the
// interactive agent task; anything else names an extraction endpoint.
type Factory func(endpoint string, hooks runner.Hooks) (JobRunner, error)

type activeRun struct {
	runner JobRunner
	done   chan struct{}
}

// Session coordinates runs for one connection. Each connection gets its
// own session with its own active-run slot; sessions never observe or
// stop each other's runs.
type Session struct {
	connID   string
	registry *Registry
	factory  Factory
	logger   *slog.Logger
	pacing   time.Duration

	mu     sync.Mutex
	active *activeRun
}

func NewSession(connID string, registry *Registry, factory Factory, pacing time.Duration, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{connID: connID, registry: registry, factory: factory, pacing: pacing, logger: logger}
}

type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// HandleMessage dispatches one raw client frame.
func (s *Session) HandleMessage(ctx context.Context, data []byte) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError("Invalid message format")
		return
	}

	switch msg.Type {
	case TypeStartAgent:
		s.handleStart(ctx)
	case TypeStopAgent:
		s.handleStop()
	case TypeRunAPI:
		var payload RunAPIPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.Endpoint == "" {
			s.sendError("run_api requires an endpoint")
			return
		}
		s.handleRunNamed(ctx, payload.Endpoint)
	default:
		s.sendError("Unknown message type: " + msg.Type)
	}
}

func (s *Session) handleStart(ctx context.Context) {
	job, err := s.factory("", s.updateHooks())
	if err != nil {
		s.sendError(err.Error())
		return
	}
	if !s.launch(ctx, job, nil) {
		s.sendError("Agent is already running")
	}
}

func (s *Session) handleRunNamed(ctx context.Context, endpoint string) {
	hooks := s.updateHooks()
	hooks.OnLog = func(entry runner.Entry) {
		s.registry.SendTo(s.connID, NewMessage(TypeAPILog, APILogPayload{
			Message:   entry.Message,
			Timestamp: entry.Timestamp,
			Level:     entry.Level,
		}))
	}

	job, err := s.factory(endpoint, hooks)
	if err != nil {
		if errors.Is(err, ErrUnknownEndpoint) {
			s.sendError("Unknown API endpoint: " + endpoint)
			return
		}
		s.sendError(err.Error())
		return
	}

	after := func(result runner.Result) {
		payload := APIResponsePayload{Endpoint: endpoint, Status: result.Status, Error: result.Error}
		if result.Status == runner.StatusSuccess {
			payload.Data = result.Data
		}
		s.registry.SendTo(s.connID, NewMessage(TypeAPIResponse, payload))
		if result.Status == runner.StatusSuccess {
			s.registry.SendTo(s.connID, NewMessage(TypeStatus, StatusPayload{Status: "completed", Message: "API " + endpoint + " completed"}))
		} else {
			s.registry.SendTo(s.connID, NewMessage(TypeStatus, StatusPayload{Status: "error", Message: result.Error}))
		}
	}
	if !s.launch(ctx, job, after) {
		s.sendError("Another run is already in progress")
		return
	}
	s.registry.SendTo(s.connID, NewMessage(TypeStatus, StatusPayload{Status: "running", Message: "Starting API: " + endpoint}))
}

// launch claims the session's active-run slot and starts the job. It
// returns false without starting anything if a run is already active.
func (s *Session) launch(ctx context.Context, job JobRunner, after func(runner.Result)) bool {
	s.mu.Lock()
	if s.active != nil {
		select {
		case <-s.active.done:
			s.active = nil
		default:
			s.mu.Unlock()
			return false
		}
	}
	active := &activeRun{runner: job, done: make(chan struct{})}
	s.active = active
	s.mu.Unlock()

	go func() {
		defer close(active.done)
		result := job.Run(ctx)
		s.logger.Info("run finished", "connection_id", s.connID, "status", result.Status)
		if after != nil {
			after(result)
		}
	}()
	return true
}

func (s *Session) handleStop() {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()

	if active == nil {
		s.registry.SendTo(s.connID, NewMessage(TypeStatus, StatusPayload{Status: "idle", Message: "No task running"}))
		return
	}
	select {
	case <-active.done:
		s.registry.SendTo(s.connID, NewMessage(TypeStatus, StatusPayload{Status: "idle", Message: "No task running"}))
		return
	default:
	}

	active.runner.Stop()
	<-active.done
	s.registry.SendTo(s.connID, NewMessage(TypeStatus, StatusPayload{Status: "stopped", Message: "Stopped by user"}))
}

// Disconnect stops this session's run, if any, and forgets the channel.
// Called when the transport read loop ends. Runs owned by other sessions
// are untouched.
func (s *Session) Disconnect() {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	if active != nil {
		active.runner.Stop()
	}
	s.registry.Unregister(s.connID)
}

// Running reports whether a run currently holds this session's slot.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return false
	}
	select {
	case <-s.active.done:
		return false
	default:
		return true
	}
}

func (s *Session) updateHooks() runner.Hooks {
	return runner.Hooks{OnUpdate: func(u runner.Update) {
		var msg Message
		switch u.Kind {
		case runner.UpdateStatus:
			msg = NewMessage(TypeStatus, StatusPayload{Status: u.Status, Message: u.Message})
		case runner.UpdateMessage:
			msg = NewMessage(TypeMessage, AgentMessagePayload{Role: u.Role, Content: u.Content, Action: u.Action})
		case runner.UpdateScreenshot:
			msg = NewMessage(TypeScreenshot, ScreenshotPayload{ImageData: u.ImageData, Step: u.Step})
		case runner.UpdateComplete:
			msg = NewMessage(TypeAgentComplete, StatusPayload{Status: u.Status, Message: u.Message})
		case runner.UpdateError:
			msg = NewMessage(TypeError, StatusPayload{Status: "error", Message: u.Message})
		default:
			return
		}
		s.registry.SendTo(s.connID, msg)
		if s.pacing > 0 {
			time.Sleep(s.pacing)
		}
	}}
}

func (s *Session) sendError(message string) {
	s.registry.SendTo(s.connID, NewMessage(TypeError, StatusPayload{Status: "error", Message: message}))
}
