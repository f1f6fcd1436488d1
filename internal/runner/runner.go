// Package runner owns the lifecycle of one externally-driven automation
// run: connect to the engine, drive the agent, observe its event stream,
// collect the screenshots it leaves behind, and hand them to the extraction
// pipeline. A Runner is single-use per run and never lets a failure escape
// Run as a panic or an error value; every outcome is a Result.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gridpilot-labs/gridpilot-go/internal/cua"
	"github.com/gridpilot-labs/gridpilot-go/internal/extraction"
	"github.com/gridpilot-labs/gridpilot-go/internal/tasks"
	"github.com/gridpilot-labs/gridpilot-go/internal/trajectory"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"

	LevelInfo  = "info"
	LevelError = "error"
)

// Entry is one run log line. Entries are immutable once appended and keep
// append order.
type Entry struct {
	Timestamp float64 `json:"timestamp"`
	Message   string  `json:"message"`
	Level     string  `json:"level"`
}

// Result is produced exactly once per Run and immutable afterwards.
type Result struct {
	Status          string
	Data            extraction.Result
	Error           string
	Logs            []Entry
	FinalScreenshot string
}

// Update kinds streamed to an observer while the run progresses.
type UpdateKind string

const (
	UpdateStatus     UpdateKind = "status"
	UpdateMessage    UpdateKind = "message"
	UpdateScreenshot UpdateKind = "screenshot"
	UpdateComplete   UpdateKind = "agent_complete"
	UpdateError      UpdateKind = "error"
)

// Update is one streamed progress notice. Which fields are set depends on
// Kind: Status/Message for status-like kinds, Role/Content/Action for
// messages, ImageData/Step for screenshots.
type Update struct {
	Kind      UpdateKind
	Status    string
	Message   string
	Role      string
	Content   string
	Action    string
	ImageData string
	Step      int
}

// Hooks observe a run. OnUpdate is called synchronously from the run loop,
// so a slow observer paces the run; OnLog is dispatched through a bounded
// queue and never blocks the run loop.
type Hooks struct {
	OnLog    func(Entry)
	OnUpdate func(Update)
}

type Config struct {
	Engine    cua.Engine
	Target    string
	TargetURL string
	Task      tasks.Task
	Store     *trajectory.Store
	Archive   *trajectory.Archive
	Pipeline  *extraction.Pipeline
	Logger    *slog.Logger
	Hooks     Hooks
}

type Runner struct {
	cfg   Config
	runID string

	running       atomic.Bool
	stopRequested atomic.Bool

	mu        sync.Mutex
	logs      []Entry
	lastShot  string
	cancelRun context.CancelFunc

	logCh   chan Entry
	logDone chan struct{}
}

func New(cfg Config) *Runner {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Runner{cfg: cfg, runID: uuid.NewString()}
}

func (r *Runner) IsRunning() bool { return r.running.Load() }

// Stop requests a cooperative stop: the run's context is cancelled and
// the flag is observed at the next checkpoint, so the event stream winds
// down and neither collection nor extraction runs afterwards.
func (r *Runner) Stop() {
	if r.stopRequested.CompareAndSwap(false, true) && r.IsRunning() {
		r.log("Stopping task...", LevelInfo)
	}
	r.mu.Lock()
	cancel := r.cancelRun
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Run executes the task to completion and returns its Result. It never
// panics and never overlaps: a second call while one is active fails fast
// with an error-status Result.
func (r *Runner) Run(ctx context.Context) Result {
	if !r.running.CompareAndSwap(false, true) {
		return Result{Status: StatusError, Error: "run already in progress"}
	}
	defer r.running.Store(false)

	r.startLogPump()
	defer r.stopLogPump()

	var result Result
	func() {
		defer func() {
			if v := recover(); v != nil {
				result = r.fail(fmt.Sprintf("unexpected failure: %v", v))
			}
		}()
		result = r.run(ctx)
	}()
	return result
}

func (r *Runner) run(ctx context.Context) Result {
	task := r.cfg.Task

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	r.mu.Lock()
	r.cancelRun = cancel
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.cancelRun = nil
		r.mu.Unlock()
	}()

	r.update(Update{Kind: UpdateStatus, Status: "connecting", Message: "Connecting to Windows sandbox..."})
	r.log("Connecting to Windows sandbox...", LevelInfo)

	sess, err := r.cfg.Engine.Connect(ctx, r.cfg.Target)
	if err != nil {
		return r.fail(err.Error())
	}
	defer r.teardown(sess)
	r.log("Sandbox connected successfully", LevelInfo)

	trajDir := ""
	if task.Extracts() {
		trajDir, err = r.cfg.Store.Allocate(task.Name)
		if err != nil {
			return r.fail(err.Error())
		}
		r.log("Trajectory will be saved to: "+trajDir, LevelInfo)
	}

	agent, err := sess.NewAgent(cua.AgentConfig{
		ImageRetention: task.ImageRetention,
		CostBudget:     task.CostBudget,
		Instructions:   task.Instructions,
		TrajectoryDir:  trajDir,
	})
	if err != nil {
		return r.fail(err.Error())
	}

	r.update(Update{Kind: UpdateStatus, Status: "running", Message: "Agent started, executing task..."})
	r.log("Agent initialized, starting task...", LevelInfo)

	prompt := strings.ReplaceAll(task.Prompt, "{target_url}", r.cfg.TargetURL)
	events, err := agent.Dispatch(ctx, prompt)
	if err != nil {
		return r.fail(err.Error())
	}

	step := 0
	for ev := range events {
		if r.stopRequested.Load() {
			break
		}
		switch ev := ev.(type) {
		case cua.TextMessage:
			r.log("Agent: "+preview(ev.Text), LevelInfo)
			r.update(Update{Kind: UpdateMessage, Role: "assistant", Content: ev.Text})
		case cua.ActionCall:
			r.log("Executing: "+ev.Action, LevelInfo)
			r.update(Update{Kind: UpdateMessage, Role: "system", Content: "Executing action: " + ev.Action, Action: ev.Action})
		case cua.ImageOutput:
			step++
			r.setLastShot(ev.ImageURL)
			r.log("Screenshot captured", LevelInfo)
			r.update(Update{Kind: UpdateScreenshot, ImageData: ev.ImageURL, Step: step})
		case cua.Reasoning:
			r.update(Update{Kind: UpdateMessage, Role: "reasoning", Content: ev.Summary})
		}
	}

	// Stop checkpoint: once the flag is observed the run ends here, before
	// collection and extraction.
	if r.stopRequested.Load() {
		r.log("Task stopped before completion", LevelInfo)
		return Result{Status: StatusSuccess, Logs: r.snapshotLogs(), FinalScreenshot: r.getLastShot()}
	}

	if !task.Extracts() {
		r.log("Agent task completed", LevelInfo)
		r.update(Update{Kind: UpdateComplete, Status: "completed", Message: "Agent task completed successfully"})
		return Result{Status: StatusSuccess, Logs: r.snapshotLogs(), FinalScreenshot: r.getLastShot()}
	}

	r.log("Task completed, reading screenshots from trajectory...", LevelInfo)
	artifacts, err := trajectory.Collect(trajDir)
	if err != nil {
		return r.fail(err.Error())
	}
	if len(artifacts) == 0 {
		return r.fail("No screenshot(s) found in trajectory: " + trajDir)
	}
	if !task.MultiShot {
		artifacts = artifacts[len(artifacts)-1:]
	}
	r.log(fmt.Sprintf("Found %d screenshot(s) in trajectory", len(artifacts)), LevelInfo)

	images := make([]string, 0, len(artifacts))
	for _, artifact := range artifacts {
		url, err := trajectory.DataURL(artifact.Path)
		if err != nil {
			return r.fail(err.Error())
		}
		images = append(images, url)
	}

	schema, err := extraction.For(task.Schema)
	if err != nil {
		return r.fail(err.Error())
	}

	r.log("Sending screenshots to model for analysis...", LevelInfo)
	data := r.cfg.Pipeline.Extract(ctx, images, schema)
	if softErr := data.Err(); softErr != "" {
		// Soft failure: the job itself completed, extraction reports its
		// own error inside the result.
		r.log("Extraction reported: "+softErr, LevelError)
	} else {
		r.log("Extraction completed", LevelInfo)
	}

	r.archive(ctx, task.Name, trajDir, artifacts)

	return Result{
		Status:          StatusSuccess,
		Data:            data,
		Logs:            r.snapshotLogs(),
		FinalScreenshot: images[len(images)-1],
	}
}

func (r *Runner) archive(ctx context.Context, taskName, trajDir string, artifacts []trajectory.Artifact) {
	if r.cfg.Archive == nil {
		return
	}
	if err := r.cfg.Archive.Upload(ctx, taskName, filepath.Base(trajDir), artifacts); err != nil {
		r.log("Trajectory archive failed: "+err.Error(), LevelError)
		return
	}
	r.log("Trajectory archived", LevelInfo)
}

func (r *Runner) teardown(sess cua.Session) {
	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sess.Close(closeCtx); err != nil {
		r.cfg.Logger.Error("session close failed", "run_id", r.runID, "error", err)
		return
	}
	r.cfg.Logger.Info("disconnected from sandbox", "run_id", r.runID)
}

func (r *Runner) fail(msg string) Result {
	r.log(msg, LevelError)
	r.update(Update{Kind: UpdateError, Status: "error", Message: msg})
	return Result{Status: StatusError, Error: msg, Logs: r.snapshotLogs()}
}

// log appends synchronously; subscriber dispatch goes through the bounded
// queue and is dropped rather than ever blocking the run loop.
func (r *Runner) log(message, level string) {
	entry := Entry{Timestamp: epochSeconds(time.Now()), Message: message, Level: level}

	r.mu.Lock()
	r.logs = append(r.logs, entry)
	logCh := r.logCh
	r.mu.Unlock()

	if level == LevelError {
		r.cfg.Logger.Error("job log", "run_id", r.runID, "task", r.cfg.Task.Name, "message", message)
	} else {
		r.cfg.Logger.Info("job log", "run_id", r.runID, "task", r.cfg.Task.Name, "message", message)
	}

	if logCh != nil {
		select {
		case logCh <- entry:
		default:
		}
	}
}

func (r *Runner) update(u Update) {
	if r.cfg.Hooks.OnUpdate != nil {
		r.cfg.Hooks.OnUpdate(u)
	}
}

func (r *Runner) startLogPump() {
	ch := make(chan Entry, 256)
	done := make(chan struct{})
	r.mu.Lock()
	r.logCh = ch
	r.logDone = done
	r.mu.Unlock()

	go func() {
		defer close(done)
		for entry := range ch {
			if r.cfg.Hooks.OnLog != nil {
				r.cfg.Hooks.OnLog(entry)
			}
		}
	}()
}

func (r *Runner) stopLogPump() {
	r.mu.Lock()
	ch := r.logCh
	done := r.logDone
	r.logCh = nil
	r.mu.Unlock()

	close(ch)
	<-done
}

func (r *Runner) setLastShot(url string) {
	r.mu.Lock()
	r.lastShot = url
	r.mu.Unlock()
}

func (r *Runner) getLastShot() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastShot
}

func (r *Runner) snapshotLogs() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.logs))
	copy(out, r.logs)
	return out
}

func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

const previewLimit = 200

func preview(s string) string {
	if len(s) <= previewLimit {
		return s
	}
	return s[:previewLimit] + "..."
}
