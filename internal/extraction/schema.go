package extraction

import (
	"fmt"
	"regexp"
	"time"
)

// Schema is one extraction variant: the instruction prompt sent to the
// oracle, the top-level key expected in its reply, and the call bounds.
// Variants differ only in data; the pipeline algorithm is shared.
type Schema struct {
	Name      string
	Key       string
	Prompt    string
	MaxTokens int
	Timeout   time.Duration
	Multi     bool

	// objectValued schemas ({"grid": {...}}) report an empty object on
	// failure instead of an empty list.
	objectValued bool
	keyPattern   *regexp.Regexp
}

const (
	singleTimeout = 60 * time.Second
	multiTimeout  = 120 * time.Second

	singleMaxTokens = 4096
	multiMaxTokens  = 8192
)

// listKeyPattern is the strict recovery pattern for single-image list
// schemas: a brace object whose expected key maps to an array, with no
// other top-level nesting before or after it.
func listKeyPattern(key string) *regexp.Regexp {
	return regexp.MustCompile(`(?s)\{[^{}]*"` + key + `"[^{}]*\[.*?\][^{}]*\}`)
}

// looseKeyPattern is the relaxed pattern used for batched and object-valued
// schemas, whose replies nest too deeply for the strict form.
func looseKeyPattern(key string) *regexp.Regexp {
	return regexp.MustCompile(`(?s)\{.*"` + key + `".*\}`)
}

var schemas = map[string]Schema{
	"buses": {
		Name:       "buses",
		Key:        "buses",
		Prompt:     busesPrompt,
		MaxTokens:  singleMaxTokens,
		Timeout:    singleTimeout,
		keyPattern: listKeyPattern("buses"),
	},
	"contingency": {
		Name:       "contingency",
		Key:        "contingencies",
		Prompt:     contingencyPrompt,
		MaxTokens:  singleMaxTokens,
		Timeout:    singleTimeout,
		keyPattern: listKeyPattern("contingencies"),
	},
	"contingency_multi": {
		Name:       "contingency_multi",
		Key:        "contingencies",
		Prompt:     contingencyMultiPrompt,
		MaxTokens:  multiMaxTokens,
		Timeout:    multiTimeout,
		Multi:      true,
		keyPattern: looseKeyPattern("contingencies"),
	},
	"grid": {
		Name:         "grid",
		Key:          "grid",
		Prompt:       gridPrompt,
		MaxTokens:    singleMaxTokens,
		Timeout:      singleTimeout,
		objectValued: true,
		keyPattern:   looseKeyPattern("grid"),
	},
}

// For returns the named schema variant.
func For(name string) (Schema, error) {
	schema, ok := schemas[name]
	if !ok {
		return Schema{}, fmt.Errorf("unknown extraction schema %q", name)
	}
	return schema, nil
}

// emptyResult is the soft-failure skeleton: the expected key mapped to an
// empty value. Callers attach the error description.
func (s Schema) emptyResult() Result {
	if s.objectValued {
		return Result{s.Key: map[string]any{}}
	}
	return Result{s.Key: []any{}}
}
