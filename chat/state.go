// Package chat holds the state of a chat front end and the reducer that
// updates it. The reducer never modifies its input, so state transitions can
// be tested without a UI.
package chat

import (
	"slices"

	"github.com/a-h/revchat/models"
)

// Form is the user editable part of the state.
type Form struct {
	DeveloperMessage string
	UserMessage      string
	Model            string
	APIKey           string
	PortOverride     string
}

// Request returns the request that submitting the form would send.
func (f Form) Request() models.ChatRequest {
	return models.ChatRequest{
		DeveloperMessage: f.DeveloperMessage,
		UserMessage:      f.UserMessage,
		Model:            f.Model,
		APIKey:           f.APIKey,
	}
}

// Settings returns the persisted part of the form.
func (f Form) Settings() models.Settings {
	return models.Settings{
		Model:            f.Model,
		APIKey:           f.APIKey,
		DeveloperMessage: f.DeveloperMessage,
		PortOverride:     f.PortOverride,
	}
}

type State struct {
	Form       Form
	Transcript []models.ChatMessage
	// Pending is the response text received so far for the request in flight.
	Pending   string
	InFlight  bool
	RequestID int
}

// NewState returns the initial state for the given settings.
func NewState(s models.Settings) State {
	return Reduce(State{}, SettingsLoaded{Settings: s})
}

type Event interface {
	event()
}

type Field int

const (
	FieldDeveloperMessage Field = iota
	FieldUserMessage
	FieldModel
	FieldAPIKey
	FieldPortOverride
)

type FieldChanged struct {
	Field Field
	Value string
}

// SettingsLoaded replaces the persisted form fields. The user message is kept.
type SettingsLoaded struct {
	Settings models.Settings
}

// Submitted starts a request with the given ID. IDs must increase.
type Submitted struct {
	RequestID int
}

// ChunkReceived carries the full response text received so far.
type ChunkReceived struct {
	RequestID int
	Text      string
}

type Completed struct {
	RequestID int
	Text      string
}

type Failed struct {
	RequestID int
	Err       error
}

type Cancelled struct {
	RequestID int
}

func (FieldChanged) event()   {}
func (SettingsLoaded) event() {}
func (Submitted) event()      {}
func (ChunkReceived) event()  {}
func (Completed) event()      {}
func (Failed) event()         {}
func (Cancelled) event()      {}

const CancelledMessage = "request cancelled"

// Reduce returns the state that results from applying e to s.
func Reduce(s State, e Event) State {
	switch e := e.(type) {
	case FieldChanged:
		s.Form = setField(s.Form, e.Field, e.Value)
	case SettingsLoaded:
		s.Form.Model = e.Settings.Model
		s.Form.APIKey = e.Settings.APIKey
		s.Form.DeveloperMessage = e.Settings.DeveloperMessage
		s.Form.PortOverride = e.Settings.PortOverride
		if s.Form.DeveloperMessage == "" {
			s.Form.DeveloperMessage = models.DefaultDeveloperMessage
		}
	case Submitted:
		if s.InFlight {
			return s
		}
		req := s.Form.Request()
		if err := req.Validate(); err != nil {
			s.Transcript = appendMessage(s.Transcript, models.RoleError, err.Error())
			return s
		}
		if lastSystemMessage(s.Transcript) != req.DeveloperMessage {
			s.Transcript = appendMessage(s.Transcript, models.RoleSystem, req.DeveloperMessage)
		}
		s.Transcript = appendMessage(s.Transcript, models.RoleUser, req.UserMessage)
		s.Pending = ""
		s.InFlight = true
		s.RequestID = e.RequestID
	case ChunkReceived:
		if !s.isCurrent(e.RequestID) {
			return s
		}
		s.Pending = e.Text
	case Completed:
		if !s.isCurrent(e.RequestID) {
			return s
		}
		s.Transcript = appendMessage(s.Transcript, models.RoleAssistant, e.Text)
		s.Pending = ""
		s.InFlight = false
	case Failed:
		if !s.isCurrent(e.RequestID) {
			return s
		}
		msg := "unknown error"
		if e.Err != nil {
			msg = e.Err.Error()
		}
		s.Transcript = appendMessage(s.Transcript, models.RoleError, msg)
		s.Pending = ""
		s.InFlight = false
	case Cancelled:
		if !s.isCurrent(e.RequestID) {
			return s
		}
		s.Transcript = appendMessage(s.Transcript, models.RoleError, CancelledMessage)
		s.Pending = ""
		s.InFlight = false
	}
	return s
}

func (s State) isCurrent(id int) bool {
	return s.InFlight && s.RequestID == id
}

func setField(f Form, field Field, value string) Form {
	switch field {
	case FieldDeveloperMessage:
		f.DeveloperMessage = value
	case FieldUserMessage:
		f.UserMessage = value
	case FieldModel:
		f.Model = value
	case FieldAPIKey:
		f.APIKey = value
	case FieldPortOverride:
		f.PortOverride = value
	}
	return f
}

// appendMessage copies the transcript so that earlier states are unaffected.
func appendMessage(transcript []models.ChatMessage, role models.Role, content string) []models.ChatMessage {
	return append(slices.Clip(transcript), models.ChatMessage{Role: role, Content: content})
}

func lastSystemMessage(transcript []models.ChatMessage) string {
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Role == models.RoleSystem {
			return transcript[i].Content
		}
	}
	return ""
}
