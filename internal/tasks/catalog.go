package tasks

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const CatalogSchemaV1 = "gridpilot.tasks.v1"

// Extraction schema names a task may reference. The empty string means the
// task streams agent output only and skips the extraction step.
const (
	SchemaBuses            = "buses"
	SchemaContingency      = "contingency"
	SchemaContingencyMulti = "contingency_multi"
	SchemaGrid             = "grid"
)

// Task describes one named automation run: the agent's standing
// instructions, the dispatched task text, and the extraction schema applied
// to the screenshots it leaves behind.
type Task struct {
	Name           string  `yaml:"name"`
	Description    string  `yaml:"description,omitempty"`
	Instructions   string  `yaml:"instructions"`
	Prompt         string  `yaml:"prompt"`
	Schema         string  `yaml:"schema,omitempty"`
	ImageRetention int     `yaml:"image_retention"`
	CostBudget     float64 `yaml:"cost_budget"`
	MultiShot      bool    `yaml:"multi_shot,omitempty"`
}

type Catalog struct {
	Schema string `yaml:"schema"`
	Tasks  []Task `yaml:"tasks"`

	byName map[string]Task
}

func Parse(input []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(input, &catalog); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	catalog.byName = make(map[string]Task, len(catalog.Tasks))
	for _, task := range catalog.Tasks {
		catalog.byName[task.Name] = task
	}
	return &catalog, nil
}

func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(raw)
}

// Default returns the compiled-in catalog.
func Default() (*Catalog, error) {
	return Parse([]byte(defaultCatalogYAML))
}

func (c *Catalog) Validate() error {
	if strings.TrimSpace(c.Schema) != CatalogSchemaV1 {
		return fmt.Errorf("catalog.schema must be %q", CatalogSchemaV1)
	}
	if len(c.Tasks) == 0 {
		return errors.New("catalog.tasks must be non-empty")
	}
	seen := make(map[string]struct{}, len(c.Tasks))
	for i, task := range c.Tasks {
		if err := task.Validate(); err != nil {
			return fmt.Errorf("task[%d]: %w", i, err)
		}
		if _, dup := seen[task.Name]; dup {
			return fmt.Errorf("task[%d]: duplicate name %q", i, task.Name)
		}
		seen[task.Name] = struct{}{}
	}
	return nil
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(t.Instructions) == "" {
		return errors.New("instructions are required")
	}
	if strings.TrimSpace(t.Prompt) == "" {
		return errors.New("prompt is required")
	}
	switch t.Schema {
	case "", SchemaBuses, SchemaContingency, SchemaContingencyMulti, SchemaGrid:
	default:
		return fmt.Errorf("unknown schema %q", t.Schema)
	}
	if t.ImageRetention <= 0 {
		return fmt.Errorf("image retention must be positive: %d", t.ImageRetention)
	}
	if t.CostBudget <= 0 {
		return fmt.Errorf("cost budget must be positive: %v", t.CostBudget)
	}
	return nil
}

// Extracts reports whether the task ends with a structured-extraction step.
func (t Task) Extracts() bool { return t.Schema != "" }

func (c *Catalog) Get(name string) (Task, bool) {
	task, ok := c.byName[name]
	return task, ok
}

func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.byName))
	for name := range c.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
