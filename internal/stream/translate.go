package stream

import (
	"fmt"
	"strings"

	"github.com/wheelhouse-ai/wheelhouse/internal/partialjson"
	"github.com/wheelhouse-ai/wheelhouse/pkg/models"
)

// ToMessage converts a response tree snapshot into an assistant message.
//
// The conversion is pure and idempotent: the same snapshot always yields
// an identical message, which lets callers re-translate growing
// snapshots on every event. Partial tool-call arguments are expected mid
// stream, so an undecodable argument string becomes an empty argument
// map, never an error. An item or part kind outside the enumeration is a
// protocol violation and fails loudly.
func ToMessage(resp *Response) (*models.Message, error) {
	if resp == nil {
		return nil, ErrNoResponse
	}

	msg := &models.Message{
		ID:   resp.ID,
		Role: models.RoleAssistant,
	}

	var content strings.Builder
	for _, item := range resp.Output {
		switch item.Kind {
		case ItemMessage:
			for _, part := range item.Content {
				if part.Type != PartOutputText {
					return nil, fmt.Errorf("%w: content part type %q", ErrMalformedEvent, part.Type)
				}
				content.WriteString(part.Text)
			}
			if msg.ID == "" {
				msg.ID = item.ID
			}

		case ItemFunctionCall:
			msg.ToolCalls = append(msg.ToolCalls, models.ToolCall{
				ID:      item.CallID,
				Name:    item.Name,
				RawArgs: item.Arguments,
				Args:    decodeArgs(item.Arguments),
			})

		case ItemReasoning:
			r := msg.Reasoning
			if r == nil {
				r = &models.Reasoning{ID: item.ID}
				msg.Reasoning = r
			}
			for _, part := range item.Summary {
				r.Summaries = append(r.Summaries, part.Text)
			}
			for _, part := range item.ReasoningContent {
				r.Contents = append(r.Contents, part.Text)
			}

		default:
			return nil, fmt.Errorf("%w: output item kind %q", ErrMalformedEvent, item.Kind)
		}
	}
	msg.Content = content.String()

	return msg, nil
}

// decodeArgs best-effort decodes a raw argument fragment. Anything that
// is not (yet) an object decodes to an empty map.
func decodeArgs(raw string) map[string]any {
	v, err := partialjson.Parse(raw)
	if err != nil {
		return map[string]any{}
	}
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}
