package tasks

import (
	"strings"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	catalog, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}

	for _, name := range []string{"agent", "buses", "contingency", "grid"} {
		task, ok := catalog.Get(name)
		if !ok {
			t.Fatalf("default catalog missing task %q", name)
		}
		if err := task.Validate(); err != nil {
			t.Fatalf("task %q invalid: %v", name, err)
		}
	}

	agent, _ := catalog.Get("agent")
	if agent.Extracts() {
		t.Fatal("agent task must not run extraction")
	}
	if !strings.Contains(agent.Prompt, "{target_url}") {
		t.Fatal("agent prompt must carry the target_url placeholder")
	}

	buses, _ := catalog.Get("buses")
	if buses.Schema != SchemaBuses {
		t.Fatalf("buses schema = %q, want %q", buses.Schema, SchemaBuses)
	}
	if buses.MultiShot {
		t.Fatal("buses task is single-shot")
	}
	if buses.ImageRetention != 5 || buses.CostBudget != 15.0 {
		t.Fatalf("buses budgets = (%d, %v), want (5, 15.0)", buses.ImageRetention, buses.CostBudget)
	}

	contingency, _ := catalog.Get("contingency")
	if contingency.Schema != SchemaContingencyMulti {
		t.Fatalf("contingency schema = %q, want %q", contingency.Schema, SchemaContingencyMulti)
	}
	if !contingency.MultiShot {
		t.Fatal("contingency task must collect all screenshots")
	}
}

func TestParseRejectsInvalidCatalogs(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:    "wrong schema header",
			input:   "schema: nope\ntasks:\n  - name: a\n",
			wantErr: "catalog.schema",
		},
		{
			name:    "no tasks",
			input:   "schema: gridpilot.tasks.v1\ntasks: []\n",
			wantErr: "non-empty",
		},
		{
			name: "missing instructions",
			input: `
schema: gridpilot.tasks.v1
tasks:
  - name: buses
    prompt: do it
    image_retention: 5
    cost_budget: 15.0
`,
			wantErr: "instructions are required",
		},
		{
			name: "unknown extraction schema",
			input: `
schema: gridpilot.tasks.v1
tasks:
  - name: buses
    instructions: i
    prompt: p
    schema: feeders
    image_retention: 5
    cost_budget: 15.0
`,
			wantErr: "unknown schema",
		},
		{
			name: "zero retention",
			input: `
schema: gridpilot.tasks.v1
tasks:
  - name: buses
    instructions: i
    prompt: p
    schema: buses
    image_retention: 0
    cost_budget: 15.0
`,
			wantErr: "image retention",
		},
		{
			name: "duplicate names",
			input: `
schema: gridpilot.tasks.v1
tasks:
  - name: buses
    instructions: i
    prompt: p
    schema: buses
    image_retention: 5
    cost_budget: 15.0
  - name: buses
    instructions: i
    prompt: p
    schema: buses
    image_retention: 5
    cost_budget: 15.0
`,
			wantErr: "duplicate name",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.input))
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Parse() error = %v, want substring %q", err, tc.wantErr)
			}
		})
	}
}

func TestNamesSorted(t *testing.T) {
	catalog, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	names := catalog.Names()
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("Names() not sorted: %v", names)
		}
	}
}
