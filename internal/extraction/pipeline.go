// Package extraction turns rendered screenshots into structured data by way
// of a multimodal completion oracle and a layered parse-recovery chain. The
// pipeline never fails hard on model output: malformed replies and upstream
// HTTP errors all come back as an error-shaped Result.
package extraction

import (
	"context"
	"errors"
	"log/slog"
)

// Result is the task-specific JSON value extracted from the screenshots.
// When extraction soft-fails it carries the schema key mapped to an empty
// value plus "error" (and "raw_response" for parse failures). Callers must
// treat the presence of "error" as a soft-failure signal, not a crash.
type Result map[string]any

// Err returns the soft-failure description, if any.
func (r Result) Err() string {
	s, _ := r["error"].(string)
	return s
}

const rawResponseLimit = 500

type Pipeline struct {
	oracle Oracle
	logger *slog.Logger
}

func NewPipeline(oracle Oracle, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{oracle: oracle, logger: logger}
}

// Extract sends all images plus the schema's instruction prompt to the
// oracle in a single call and recovers a JSON object from the reply. It
// never returns an error: every failure mode is folded into the Result.
func (p *Pipeline) Extract(ctx context.Context, images []string, schema Schema) Result {
	normalized := make([]Image, 0, len(images))
	for _, img := range images {
		normalized = append(normalized, NormalizeImage(img))
	}

	callCtx, cancel := context.WithTimeout(ctx, schema.Timeout)
	defer cancel()

	p.logger.Info("sending screenshots to oracle", "schema", schema.Name, "images", len(normalized))
	text, err := p.oracle.Complete(callCtx, normalized, schema.Prompt, schema.MaxTokens)
	if err != nil {
		return p.failure(schema, err)
	}

	if result, ok := recoverJSON(text, schema); ok {
		return result
	}

	p.logger.Error("could not parse oracle response", "schema", schema.Name, "raw", truncate(text, rawResponseLimit))
	result := schema.emptyResult()
	result["error"] = "Could not parse response"
	result["raw_response"] = truncate(text, rawResponseLimit)
	return result
}

func (p *Pipeline) failure(schema Schema, err error) Result {
	result := schema.emptyResult()

	var statusErr *StatusError
	switch {
	case errors.As(err, &statusErr):
		result["error"] = statusErr.Error()
	case errors.Is(err, ErrEmptyResponse):
		result["error"] = "Empty response from model"
	default:
		result["error"] = err.Error()
	}

	p.logger.Error("oracle call failed", "schema", schema.Name, "error", err)
	return result
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
