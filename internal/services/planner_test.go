package services

import (
	"strings"
	"testing"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "bare object",
			input: `{"clips":[]}`,
			want:  `{"clips":[]}`,
		},
		{
			name:  "prose wrapped",
			input: "Sure, here is the plan:\n{\"clips\":[{\"type\":\"veo\"}]}\nHope that helps!",
			want:  `{"clips":[{"type":"veo"}]}`,
		},
		{
			name:  "code fence wrapped",
			input: "```json\n{\"clips\": []}\n```",
			want:  `{"clips": []}`,
		},
		{
			name:  "braces inside string literals",
			input: `text {"code": "def f():\n    return {1: \"}\"}", "n": 1} tail`,
			want:  `{"code": "def f():\n    return {1: \"}\"}", "n": 1}`,
		},
		{
			name:  "nested objects",
			input: `{"a":{"b":{"c":1}}} {"second": true}`,
			want:  `{"a":{"b":{"c":1}}}`,
		},
		{
			name:    "no object at all",
			input:   "the model refused to answer",
			wantErr: true,
		},
		{
			name:    "unbalanced",
			input:   `{"clips": [`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSONObject(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseShotList(t *testing.T) {
	t.Run("direct JSON", func(t *testing.T) {
		list, err := parseShotList(`{"clips":[{"type":"veo","prompt":"a spinning cube","voice_over":"hello"}]}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(list.Clips) != 1 {
			t.Fatalf("got %d clips, want 1", len(list.Clips))
		}
		if list.Clips[0].Prompt == nil || *list.Clips[0].Prompt != "a spinning cube" {
			t.Error("prompt not parsed")
		}
	})

	t.Run("prose wrapped JSON", func(t *testing.T) {
		raw := "Here is your shot list:\n```json\n" +
			`{"clips":[{"type":"manim","code":"from manim import *","voice_over":"intro"},{"type":"veo","prompt":"ocean","voice_over":"outro"}]}` +
			"\n```"
		list, err := parseShotList(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(list.Clips) != 2 {
			t.Fatalf("got %d clips, want 2", len(list.Clips))
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := parseShotList("no json here"); err == nil {
			t.Error("expected error for non-JSON input")
		}
	})

	t.Run("embedded object is not a shot list", func(t *testing.T) {
		_, err := parseShotList(`answer: {"clips": "not-an-array"}`)
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "not a shot list") {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
