package cua

import (
	"encoding/json"
	"fmt"
)

// Event is the decoded form of one engine output record. Exactly one of
// TextMessage, ActionCall, ImageOutput, or Reasoning.
type Event interface {
	isEvent()
}

// TextMessage is a textual message from the agent.
type TextMessage struct {
	Role string
	Text string
}

// ActionCall reports that the agent executed a desktop action.
type ActionCall struct {
	Action string
}

// ImageOutput carries a screenshot the agent produced, as a data URL.
type ImageOutput struct {
	ImageURL string
}

// Reasoning is a summary of the agent's internal deliberation.
type Reasoning struct {
	Summary string
}

func (TextMessage) isEvent() {}
func (ActionCall) isEvent()  {}
func (ImageOutput) isEvent() {}
func (Reasoning) isEvent()   {}

type rawRecord struct {
	Type    string `json:"type"`
	Content []struct {
		Type     string `json:"type"`
		Text     string `json:"text"`
		ImageURL string `json:"image_url"`
	} `json:"content"`
	Action struct {
		Type string `json:"type"`
	} `json:"action"`
	Summary []struct {
		Text string `json:"text"`
	} `json:"summary"`
}

// DecodeRecord turns one wire record into zero or more typed events. A
// record may carry several content blocks (a message with multiple text
// blocks, an output with multiple screenshots); unknown record and block
// types are skipped rather than rejected, since the engine grows new record
// kinds without notice.
func DecodeRecord(raw []byte) ([]Event, error) {
	var rec rawRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}

	var events []Event
	switch rec.Type {
	case "message":
		for _, block := range rec.Content {
			if block.Type != "text" && block.Type != "output_text" {
				continue
			}
			if block.Text == "" {
				continue
			}
			events = append(events, TextMessage{Role: "assistant", Text: block.Text})
		}
	case "computer_call":
		action := rec.Action.Type
		if action == "" {
			action = "unknown"
		}
		events = append(events, ActionCall{Action: action})
	case "computer_call_output":
		for _, block := range rec.Content {
			if block.Type != "computer_screenshot" && block.Type != "input_image" {
				continue
			}
			if block.ImageURL == "" {
				continue
			}
			events = append(events, ImageOutput{ImageURL: block.ImageURL})
		}
	case "reasoning":
		for _, s := range rec.Summary {
			if s.Text == "" {
				continue
			}
			events = append(events, Reasoning{Summary: s.Text})
		}
	}
	return events, nil
}
