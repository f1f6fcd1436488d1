// Package trajectory manages the on-disk artifact layout: every automation
// run gets a fresh timestamp-named directory under one base location, the
// engine drops screenshots into it, and the runner collects them afterwards
// ordered by modification time. The base location is the backend's only
// durable state and is never cleaned up here.
package trajectory

import (
	"encoding/base64"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gridpilot-labs/gridpilot-go/internal/platform/requestid"
)

type Store struct {
	base   string
	logger *slog.Logger
}

func NewStore(base string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{base: base, logger: logger}
}

// Allocate creates a fresh run directory named after the task, the wall
// clock, and a random suffix to keep same-second runs apart.
func (s *Store) Allocate(taskName string) (string, error) {
	suffix, err := requestid.Short()
	if err != nil {
		return "", fmt.Errorf("run suffix: %w", err)
	}
	name := fmt.Sprintf("%s_%s_%s", taskName, time.Now().Format("20060102_150405"), suffix)
	dir := filepath.Join(s.base, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("allocate trajectory dir: %w", err)
	}
	s.logger.Info("trajectory allocated", "dir", dir)
	return dir, nil
}

// Artifact is one screenshot file left behind by a run.
type Artifact struct {
	Path    string
	ModTime time.Time
}

// Collect walks the run directory recursively and returns every PNG
// ordered by modification time ascending. A missing directory yields an
// empty slice, not an error; the caller decides whether that is terminal.
func Collect(dir string) ([]Artifact, error) {
	if dir == "" {
		return nil, nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	var artifacts []Artifact
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".png") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		artifacts = append(artifacts, Artifact{Path: path, ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan trajectory: %w", err)
	}

	sort.Slice(artifacts, func(i, j int) bool {
		if artifacts[i].ModTime.Equal(artifacts[j].ModTime) {
			return artifacts[i].Path < artifacts[j].Path
		}
		return artifacts[i].ModTime.Before(artifacts[j].ModTime)
	})
	return artifacts, nil
}

// Latest returns the most recently modified screenshot, if any.
func Latest(dir string) (Artifact, bool, error) {
	artifacts, err := Collect(dir)
	if err != nil {
		return Artifact{}, false, err
	}
	if len(artifacts) == 0 {
		return Artifact{}, false, nil
	}
	return artifacts[len(artifacts)-1], true, nil
}

// DataURL reads the artifact and encodes it as a base64 PNG data URL, the
// form the extraction pipeline and the wire protocol both carry.
func DataURL(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read artifact: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw), nil
}
