package llm_test

import (
	"bidmaster/internal/llm"
	"testing"
)

func TestStripFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Unfenced", `  {"a":1}  `, `{"a":1}`},
		{"JSONFence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"GenericFence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"GenericFenceUpperTag", "```JSON\n{\"a\":1}\n```", `{"a":1}`},
		{"GenericFenceKeepsFirstTextLine", "```\nHello\nworld\n```", "Hello\nworld"},
		{"UnclosedFence", "```json\n{\"a\":1}", `{"a":1}`},
		{
			"FenceAfterPreambleIsKept",
			"Here you go:\n```json\n{\"a\":1}\n```",
			"Here you go:\n```json\n{\"a\":1}\n```",
		},
		{
			"JSONFenceWithCodeInBody",
			"```json\n{\"body\":\"Use:\\n```\\nx\\n```\"}\n```",
			"{\"body\":\"Use:\\n```\\nx\\n```\"}",
		},
		{"SingleLineFence", "```hello```", "```hello```"},
		{
			"UnfencedJSONWithCodeInBody",
			"{\"body\":\"Use:\\n```\\nx\\n```\\n\"}",
			"{\"body\":\"Use:\\n```\\nx\\n```\\n\"}",
		},
		{
			"ProseAroundCodeBlock",
			"Great question.\n\n```\nCapability: ...\n```\n\nGood luck with the bid!",
			"Great question.\n\n```\nCapability: ...\n```\n\nGood luck with the bid!",
		},
		{
			"TwoBlocks",
			"```\nfirst\n```\nand\n```\nsecond\n```",
			"```\nfirst\n```\nand\n```\nsecond\n```",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := llm.StripFence(test.in); got != test.want {
				t.Errorf("Expected %q, got %q", test.want, got)
			}
		})
	}
}
