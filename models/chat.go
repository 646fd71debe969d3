package models

import (
	"errors"
	"strings"
)

// DefaultModel is used by transports that need a model name when the request
// leaves it empty.
const DefaultModel = "gpt-4.1-mini"

const DefaultDeveloperMessage = "To every user question the response should be informative, but should be rendered as a brutalist poetry in the style of Mayakovsky, in English."

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	DeveloperMessage string `json:"developer_message"`
	UserMessage      string `json:"user_message"`
	// Model is optional, the endpoint picks a default when it's empty.
	Model  string `json:"model,omitempty"`
	APIKey string `json:"api_key"`
}

// ValidationError lists the required fields that were missing.
type ValidationError struct {
	Fields []string
}

func (ve *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(ve.Fields, ", ")
}

// IsValidationError returns true if err is, or wraps, a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Validate returns a *ValidationError if a required field is blank.
func (r ChatRequest) Validate() error {
	var missing []string
	if strings.TrimSpace(r.DeveloperMessage) == "" {
		missing = append(missing, "developer message")
	}
	if strings.TrimSpace(r.UserMessage) == "" {
		missing = append(missing, "user message")
	}
	if strings.TrimSpace(r.APIKey) == "" {
		missing = append(missing, "API key")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleError     Role = "error"
)

// ChatMessage is a transcript entry.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
