package cua

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ClientConfig configures the websocket engine client.
type ClientConfig struct {
	Endpoint string
	APIKey   string
	Logger   *slog.Logger
}

// Client speaks the engine's websocket protocol: one connection per
// session, JSON frames both ways, agent output delivered as batches of
// records that DecodeRecord turns into typed events.
type Client struct {
	cfg    ClientConfig
	dialer *websocket.Dialer
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 30 * time.Second,
		},
	}
}

func (c *Client) Connect(ctx context.Context, target string) (Session, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	url := fmt.Sprintf("%s?sandbox=%s&os=windows&provider=cloud", c.cfg.Endpoint, target)
	conn, _, err := c.dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("connect sandbox %q: %w", target, err)
	}
	return &session{conn: conn, logger: c.cfg.Logger}, nil
}

type session struct {
	conn   *websocket.Conn
	logger *slog.Logger
	mu     sync.Mutex // serializes writes
}

type frame struct {
	Type    string            `json:"type"`
	Task    string            `json:"task,omitempty"`
	Agent   *agentFrame       `json:"agent,omitempty"`
	Output  []json.RawMessage `json:"output,omitempty"`
	Message string            `json:"message,omitempty"`
}

type agentFrame struct {
	Instructions   string  `json:"instructions"`
	ImageRetention int     `json:"only_n_most_recent_images"`
	CostBudget     float64 `json:"max_trajectory_budget"`
	TrajectoryDir  string  `json:"trajectory_dir,omitempty"`
}

func (s *session) writeFrame(f frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(f)
}

func (s *session) NewAgent(cfg AgentConfig) (Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("agent config: %w", err)
	}
	err := s.writeFrame(frame{
		Type: "configure",
		Agent: &agentFrame{
			Instructions:   cfg.Instructions,
			ImageRetention: cfg.ImageRetention,
			CostBudget:     cfg.CostBudget,
			TrajectoryDir:  cfg.TrajectoryDir,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("configure agent: %w", err)
	}
	return &agent{session: s}, nil
}

type agent struct {
	session *session
}

// Dispatch submits the task and streams decoded events until the engine
// reports the run is done. Record batches that fail to decode are logged
// and skipped; the stream keeps going.
func (a *agent) Dispatch(ctx context.Context, task string) (<-chan Event, error) {
	if err := a.session.writeFrame(frame{Type: "run", Task: task}); err != nil {
		return nil, fmt.Errorf("dispatch task: %w", err)
	}

	events := make(chan Event)
	go func() {
		defer close(events)
		for {
			var f frame
			if err := a.session.conn.ReadJSON(&f); err != nil {
				a.session.logger.Debug("engine stream closed", "error", err)
				return
			}
			switch f.Type {
			case "output":
				for _, raw := range f.Output {
					decoded, err := DecodeRecord(raw)
					if err != nil {
						a.session.logger.Warn("skipping undecodable record", "error", err)
						continue
					}
					for _, ev := range decoded {
						select {
						case events <- ev:
						case <-ctx.Done():
							return
						}
					}
				}
			case "done", "error":
				if f.Message != "" {
					a.session.logger.Info("engine run ended", "type", f.Type, "message", f.Message)
				}
				return
			}
		}
	}()
	return events, nil
}

func (s *session) Close(ctx context.Context) error {
	deadline := time.Now().Add(5 * time.Second)
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	s.mu.Lock()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	s.mu.Unlock()
	return s.conn.Close()
}
