package repl

import (
	"sort"
	"strings"
)

// commandHelp documents the commands known to the REPL. Local commands
// are handled without a round trip.
var commandHelp = map[string]string{
	"ping":       "PING [message]",
	"get":        "GET key",
	"set":        "SET key value [PX milliseconds]",
	"connect":    "connect host:port",
	"disconnect": "disconnect",
	"help":       "help [prefix]",
	"history":    "history",
	"exit":       "exit",
	"quit":       "quit",
}

// Completer provides command completion for the REPL.
type Completer struct {
	commands []string
}

// NewCompleter creates a new Completer.
func NewCompleter() *Completer {
	commands := make([]string, 0, len(commandHelp))
	for name := range commandHelp {
		commands = append(commands, name)
	}
	sort.Strings(commands)
	return &Completer{commands: commands}
}

// Complete returns the commands starting with prefix, ignoring case.
func (c *Completer) Complete(prefix string) []string {
	prefix = strings.ToLower(prefix)
	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}

// Usage returns the usage line for a command, or "" if unknown.
func (c *Completer) Usage(name string) string {
	return commandHelp[strings.ToLower(name)]
}
