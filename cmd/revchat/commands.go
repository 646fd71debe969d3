package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/a-h/revchat/chat"
	"github.com/a-h/revchat/models"
)

// command is a line typed into the chat input that starts with a slash.
type command struct {
	name string
	arg  string
}

const (
	commandModel      = "model"
	commandSystem     = "system"
	commandKey        = "key"
	commandPort       = "port"
	commandSave       = "save"
	commandClearInput = "clear-input"
	commandHelp       = "help"
)

const commandHelpText = `/model <name>     set the model (empty for the backend default)
/system <text>    set the developer message (empty for the default)
/key <api key>    set the API key
/port <port>      send requests to another port (empty to clear)
/save             save the settings
/clear-input      clear the message
/help             show this help`

func parseCommand(input string) (c command, ok bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return c, false
	}
	name, arg, _ := strings.Cut(input[1:], " ")
	return command{name: strings.ToLower(name), arg: strings.TrimSpace(arg)}, true
}

// apply returns the events for the command. /save is handled by the caller.
func (c command) apply() (events []chat.Event, status string, err error) {
	switch c.name {
	case commandModel:
		events = append(events, chat.FieldChanged{Field: chat.FieldModel, Value: c.arg})
		if c.arg == "" {
			return events, "model reset to the backend default", nil
		}
		return events, fmt.Sprintf("model set to %s", c.arg), nil
	case commandSystem:
		msg := c.arg
		if msg == "" {
			msg = models.DefaultDeveloperMessage
		}
		events = append(events, chat.FieldChanged{Field: chat.FieldDeveloperMessage, Value: msg})
		return events, "developer message updated", nil
	case commandKey:
		events = append(events, chat.FieldChanged{Field: chat.FieldAPIKey, Value: c.arg})
		return events, "API key updated", nil
	case commandPort:
		if c.arg != "" {
			if n, err := strconv.Atoi(c.arg); err != nil || n < 1 || n > 65535 {
				return nil, "", fmt.Errorf("invalid port %q", c.arg)
			}
		}
		events = append(events, chat.FieldChanged{Field: chat.FieldPortOverride, Value: c.arg})
		if c.arg == "" {
			return events, "port override cleared", nil
		}
		return events, fmt.Sprintf("port set to %s", c.arg), nil
	case commandClearInput:
		events = append(events, chat.FieldChanged{Field: chat.FieldUserMessage, Value: ""})
		return events, "", nil
	case commandHelp:
		return nil, commandHelpText, nil
	}
	return nil, "", fmt.Errorf("unknown command /%s, try /help", c.name)
}

// maskKey hides all but the end of an API key.
func maskKey(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}
