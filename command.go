package tgroute

import (
	"strings"
)

// AnyCommand is the wildcard command token. Its handler fires for commands
// that have no handler of their own.
const AnyCommand = "*"

// parsedCommand is a message text split into a command invocation.
type parsedCommand struct {
	token    string // normalised, e.g. "/start"
	username string // bot username after "@", if any
	args     []string
}

// parseCommand splits "/start@bot a b" into its parts. ok is false when the
// text is not a command.
func parseCommand(text string) (parsedCommand, bool) {
	if !strings.HasPrefix(text, "/") {
		return parsedCommand{}, false
	}
	fields := strings.Fields(text)
	if len(fields) == 0 || fields[0] == "/" {
		return parsedCommand{}, false
	}

	token, username, _ := strings.Cut(fields[0], "@")
	return parsedCommand{
		token:    normalizeCommand(token),
		username: username,
		args:     fields[1:],
	}, true
}

// addressedTo reports whether the command targets a bot with the given
// username. Commands without "@" target every bot; an unknown own username
// accepts everything.
func (c parsedCommand) addressedTo(username string) bool {
	if c.username == "" || username == "" {
		return true
	}
	return strings.EqualFold(c.username, strings.TrimPrefix(username, "@"))
}
