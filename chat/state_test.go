package chat

import (
	"errors"
	"testing"

	"github.com/a-h/revchat/models"
	"github.com/google/go-cmp/cmp"
)

var validForm = Form{
	DeveloperMessage: "Reply in one word.",
	UserMessage:      "2+2?",
	APIKey:           "sk-test",
}

func reduceAll(s State, events ...Event) State {
	for _, e := range events {
		s = Reduce(s, e)
	}
	return s
}

func TestReduce(t *testing.T) {
	tests := []struct {
		name     string
		initial  State
		events   []Event
		expected State
	}{
		{
			name:    "fields can be changed",
			initial: State{},
			events: []Event{
				FieldChanged{Field: FieldDeveloperMessage, Value: "d"},
				FieldChanged{Field: FieldUserMessage, Value: "u"},
				FieldChanged{Field: FieldModel, Value: "m"},
				FieldChanged{Field: FieldAPIKey, Value: "k"},
				FieldChanged{Field: FieldPortOverride, Value: "8001"},
			},
			expected: State{
				Form: Form{DeveloperMessage: "d", UserMessage: "u", Model: "m", APIKey: "k", PortOverride: "8001"},
			},
		},
		{
			name:    "loading settings keeps the user message",
			initial: State{Form: Form{UserMessage: "u", Model: "old"}},
			events: []Event{
				SettingsLoaded{Settings: models.Settings{Model: "m", APIKey: "k", DeveloperMessage: "d", PortOverride: "1"}},
			},
			expected: State{
				Form: Form{DeveloperMessage: "d", UserMessage: "u", Model: "m", APIKey: "k", PortOverride: "1"},
			},
		},
		{
			name:    "loading empty settings uses the default developer message",
			initial: State{},
			events:  []Event{SettingsLoaded{}},
			expected: State{
				Form: Form{DeveloperMessage: models.DefaultDeveloperMessage},
			},
		},
		{
			name:    "submitting an invalid form adds an error and starts nothing",
			initial: State{Form: Form{DeveloperMessage: "d", APIKey: "k"}},
			events:  []Event{Submitted{RequestID: 1}},
			expected: State{
				Form: Form{DeveloperMessage: "d", APIKey: "k"},
				Transcript: []models.ChatMessage{
					{Role: models.RoleError, Content: "missing required fields: user message"},
				},
			},
		},
		{
			name:    "submitting a valid form adds the system and user messages",
			initial: State{Form: validForm},
			events:  []Event{Submitted{RequestID: 1}},
			expected: State{
				Form: validForm,
				Transcript: []models.ChatMessage{
					{Role: models.RoleSystem, Content: "Reply in one word."},
					{Role: models.RoleUser, Content: "2+2?"},
				},
				InFlight:  true,
				RequestID: 1,
			},
		},
		{
			name:    "chunks update the pending text and completion appends the response",
			initial: State{Form: validForm},
			events: []Event{
				Submitted{RequestID: 1},
				ChunkReceived{RequestID: 1, Text: "4"},
				ChunkReceived{RequestID: 1, Text: "4"},
				Completed{RequestID: 1, Text: "4"},
			},
			expected: State{
				Form: validForm,
				Transcript: []models.ChatMessage{
					{Role: models.RoleSystem, Content: "Reply in one word."},
					{Role: models.RoleUser, Content: "2+2?"},
					{Role: models.RoleAssistant, Content: "4"},
				},
				RequestID: 1,
			},
		},
		{
			name:    "submitting while a request is in flight is ignored",
			initial: State{Form: validForm},
			events: []Event{
				Submitted{RequestID: 1},
				Submitted{RequestID: 2},
			},
			expected: State{
				Form: validForm,
				Transcript: []models.ChatMessage{
					{Role: models.RoleSystem, Content: "Reply in one word."},
					{Role: models.RoleUser, Content: "2+2?"},
				},
				InFlight:  true,
				RequestID: 1,
			},
		},
		{
			name:    "the system message is only repeated when it changes",
			initial: State{Form: validForm},
			events: []Event{
				Submitted{RequestID: 1},
				Completed{RequestID: 1, Text: "4"},
				Submitted{RequestID: 2},
				Completed{RequestID: 2, Text: "Four"},
				FieldChanged{Field: FieldDeveloperMessage, Value: "Reply in French."},
				Submitted{RequestID: 3},
			},
			expected: State{
				Form: Form{DeveloperMessage: "Reply in French.", UserMessage: "2+2?", APIKey: "sk-test"},
				Transcript: []models.ChatMessage{
					{Role: models.RoleSystem, Content: "Reply in one word."},
					{Role: models.RoleUser, Content: "2+2?"},
					{Role: models.RoleAssistant, Content: "4"},
					{Role: models.RoleUser, Content: "2+2?"},
					{Role: models.RoleAssistant, Content: "Four"},
					{Role: models.RoleSystem, Content: "Reply in French."},
					{Role: models.RoleUser, Content: "2+2?"},
				},
				InFlight:  true,
				RequestID: 3,
			},
		},
		{
			name:    "failures add an error entry",
			initial: State{Form: validForm},
			events: []Event{
				Submitted{RequestID: 1},
				ChunkReceived{RequestID: 1, Text: "partial"},
				Failed{RequestID: 1, Err: errors.New("API error: 500: model overloaded")},
			},
			expected: State{
				Form: validForm,
				Transcript: []models.ChatMessage{
					{Role: models.RoleSystem, Content: "Reply in one word."},
					{Role: models.RoleUser, Content: "2+2?"},
					{Role: models.RoleError, Content: "API error: 500: model overloaded"},
				},
				RequestID: 1,
			},
		},
		{
			name:    "cancellation adds an error entry",
			initial: State{Form: validForm},
			events: []Event{
				Submitted{RequestID: 1},
				Cancelled{RequestID: 1},
			},
			expected: State{
				Form: validForm,
				Transcript: []models.ChatMessage{
					{Role: models.RoleSystem, Content: "Reply in one word."},
					{Role: models.RoleUser, Content: "2+2?"},
					{Role: models.RoleError, Content: CancelledMessage},
				},
				RequestID: 1,
			},
		},
		{
			name:    "events from other requests are ignored",
			initial: State{Form: validForm},
			events: []Event{
				Submitted{RequestID: 2},
				ChunkReceived{RequestID: 1, Text: "stale"},
				Completed{RequestID: 1, Text: "stale"},
				Failed{RequestID: 1, Err: errors.New("stale")},
				Cancelled{RequestID: 1},
			},
			expected: State{
				Form: validForm,
				Transcript: []models.ChatMessage{
					{Role: models.RoleSystem, Content: "Reply in one word."},
					{Role: models.RoleUser, Content: "2+2?"},
				},
				InFlight:  true,
				RequestID: 2,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual := reduceAll(tt.initial, tt.events...)
			if diff := cmp.Diff(tt.expected, actual); diff != "" {
				t.Error(diff)
			}
		})
	}
}

func TestReduceDoesNotModifyPreviousState(t *testing.T) {
	s1 := reduceAll(State{Form: validForm}, Submitted{RequestID: 1}, Completed{RequestID: 1, Text: "4"})
	before := append([]models.ChatMessage(nil), s1.Transcript...)

	// Both branches append to the same previous state.
	s2 := reduceAll(s1, Submitted{RequestID: 2}, Completed{RequestID: 2, Text: "a"})
	s3 := reduceAll(s1, Submitted{RequestID: 3}, Completed{RequestID: 3, Text: "b"})

	if diff := cmp.Diff(before, s1.Transcript); diff != "" {
		t.Errorf("previous state was modified: %s", diff)
	}
	if s2.Transcript[len(s2.Transcript)-1].Content != "a" {
		t.Errorf("expected %q, got %q", "a", s2.Transcript[len(s2.Transcript)-1].Content)
	}
	if s3.Transcript[len(s3.Transcript)-1].Content != "b" {
		t.Errorf("expected %q, got %q", "b", s3.Transcript[len(s3.Transcript)-1].Content)
	}
}

func TestFormSettings(t *testing.T) {
	expected := models.Settings{Model: "m", APIKey: "k", DeveloperMessage: "d", PortOverride: "8001"}
	s := NewState(expected)
	if diff := cmp.Diff(expected, s.Form.Settings()); diff != "" {
		t.Error(diff)
	}
}
