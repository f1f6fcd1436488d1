package extraction

import (
	"encoding/json"
	"regexp"
)

var fencedBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// parseStrategy attempts one recovery of a JSON object from raw model text.
type parseStrategy func(text string, schema Schema) (Result, bool)

// The ordered recovery chain. First success wins; the order is part of the
// pipeline's contract: direct parse, fenced code block, then a regex hunt
// for a brace object carrying the schema's expected key.
var parseStrategies = []parseStrategy{
	parseDirect,
	parseFencedBlock,
	parseKeyedObject,
}

func recoverJSON(text string, schema Schema) (Result, bool) {
	for _, strategy := range parseStrategies {
		if result, ok := strategy(text, schema); ok {
			return result, true
		}
	}
	return nil, false
}

func parseDirect(text string, _ Schema) (Result, bool) {
	return parseObject(text)
}

func parseFencedBlock(text string, _ Schema) (Result, bool) {
	match := fencedBlockPattern.FindStringSubmatch(text)
	if match == nil {
		return nil, false
	}
	return parseObject(match[1])
}

func parseKeyedObject(text string, schema Schema) (Result, bool) {
	match := schema.keyPattern.FindString(text)
	if match == "" {
		return nil, false
	}
	return parseObject(match)
}

// parseObject accepts only a JSON object; valid JSON of any other kind is
// treated as a miss so the next strategy gets a chance.
func parseObject(text string) (Result, bool) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, false
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return Result(m), true
}
