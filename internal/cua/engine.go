// Package cua is the boundary to the desktop-automation engine: a cloud
// sandbox that drives a remote Windows machine and emits heterogeneous
// event records while an automation agent works. The engine itself is an
// external collaborator; this package defines the surface the backend
// depends on and decodes the engine's wire records into typed events once,
// at the boundary.
package cua

import (
	"context"
	"errors"
)

// Engine opens sessions against named remote execution environments.
type Engine interface {
	Connect(ctx context.Context, target string) (Session, error)
}

// Session is one live connection to a sandbox. Close is safe to call on
// every exit path.
type Session interface {
	NewAgent(cfg AgentConfig) (Agent, error)
	Close(ctx context.Context) error
}

// Agent executes one natural-language task and streams events until the
// task concludes. The returned channel is closed when the stream ends.
type Agent interface {
	Dispatch(ctx context.Context, task string) (<-chan Event, error)
}

// AgentConfig bounds an agent run: only the ImageRetention most recent
// screenshots stay in model context, and the engine stops the run once
// CostBudget is exhausted.
type AgentConfig struct {
	ImageRetention int
	CostBudget     float64
	Instructions   string
	TrajectoryDir  string
}

func (c AgentConfig) Validate() error {
	if c.ImageRetention <= 0 {
		return errors.New("image retention must be positive")
	}
	if c.CostBudget <= 0 {
		return errors.New("cost budget must be positive")
	}
	if c.Instructions == "" {
		return errors.New("instructions are required")
	}
	return nil
}
