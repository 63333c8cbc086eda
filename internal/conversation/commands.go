package conversation

import "strings"

// Command is a control word typed in place of a question.
type Command int

const (
	CommandNone Command = iota
	CommandExit
	CommandReset
)

// ParseCommand recognises exit, quit, bye and reset, ignoring case and
// surrounding whitespace.
func ParseCommand(input string) Command {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "exit", "quit", "bye":
		return CommandExit
	case "reset":
		return CommandReset
	}
	return CommandNone
}
