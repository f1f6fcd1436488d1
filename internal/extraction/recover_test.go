package extraction

import (
	"testing"
)

func mustSchema(t *testing.T, name string) Schema {
	t.Helper()
	schema, err := For(name)
	if err != nil {
		t.Fatalf("For(%q) error = %v", name, err)
	}
	return schema
}

func TestRecoverJSONDirect(t *testing.T) {
	schema := mustSchema(t, "buses")
	result, ok := recoverJSON(`{"buses": [{"number": 1, "name": "Bus1"}]}`, schema)
	if !ok {
		t.Fatal("direct parse should succeed")
	}
	buses, ok := result["buses"].([]any)
	if !ok || len(buses) != 1 {
		t.Fatalf("buses = %#v, want one entry", result["buses"])
	}
}

func TestRecoverJSONFencedBlock(t *testing.T) {
	schema := mustSchema(t, "buses")
	text := "Here is the data:\n```json\n{\"buses\":[{\"number\":1,\"name\":\"Bus1\",\"voltage_kv\":138.0,\"area\":\"Ativ Island\",\"zone\":null,\"type\":\"Slack\",\"mw_load\":null,\"mvar_load\":null}]}\n```\nLet me know if you need more."

	result, ok := recoverJSON(text, schema)
	if !ok {
		t.Fatal("fenced-block parse should succeed")
	}
	buses, ok := result["buses"].([]any)
	if !ok || len(buses) != 1 {
		t.Fatalf("buses = %#v, want one entry", result["buses"])
	}
	bus, ok := buses[0].(map[string]any)
	if !ok {
		t.Fatalf("bus entry = %#v, want object", buses[0])
	}
	if bus["name"] != "Bus1" || bus["voltage_kv"] != 138.0 || bus["type"] != "Slack" {
		t.Fatalf("bus fields = %#v", bus)
	}
	if bus["zone"] != nil || bus["mw_load"] != nil {
		t.Fatalf("null fields should decode to nil: %#v", bus)
	}
}

func TestRecoverJSONFencedBlockWithoutTag(t *testing.T) {
	schema := mustSchema(t, "buses")
	result, ok := recoverJSON("```\n{\"buses\": []}\n```", schema)
	if !ok {
		t.Fatal("untagged fenced block should parse")
	}
	if _, has := result["buses"]; !has {
		t.Fatalf("result = %#v, want buses key", result)
	}
}

func TestRecoverJSONKeyedObjectInProse(t *testing.T) {
	schema := mustSchema(t, "buses")
	text := `Sure! The extracted data is {"buses": [{"number": 2}]} as requested.`

	result, ok := recoverJSON(text, schema)
	if !ok {
		t.Fatal("keyed-object parse should succeed")
	}
	buses, ok := result["buses"].([]any)
	if !ok || len(buses) != 1 {
		t.Fatalf("buses = %#v, want one entry", result["buses"])
	}
}

func TestRecoverJSONLooseKeyPattern(t *testing.T) {
	schema := mustSchema(t, "contingency_multi")
	text := `Analysis complete. {"contingencies": [{"number": 1, "violation_details": [{"percent": 101.2}]}], "summary": {"total_contingencies": 1}} Done.`

	result, ok := recoverJSON(text, schema)
	if !ok {
		t.Fatal("loose keyed-object parse should succeed")
	}
	if _, has := result["summary"]; !has {
		t.Fatalf("result = %#v, want summary key", result)
	}
}

func TestRecoverJSONMisses(t *testing.T) {
	schema := mustSchema(t, "buses")
	cases := []struct {
		name string
		text string
	}{
		{name: "plain prose", text: "I could not find any bus data in the screenshot."},
		{name: "top-level array", text: `[{"number": 1}]`},
		{name: "wrong key in object fragment", text: `prose {"lines": [1]} prose`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if result, ok := recoverJSON(tc.text, schema); ok {
				t.Fatalf("recoverJSON() = %#v, want miss", result)
			}
		})
	}
}

func TestForUnknownSchema(t *testing.T) {
	if _, err := For("feeders"); err == nil {
		t.Fatal("For() expected error for unknown schema")
	}
}
