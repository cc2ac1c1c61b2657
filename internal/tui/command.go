package tui

import (
	"fmt"
	"strings"
)

// Command represents a parsed command.
type Command struct {
	Name string
	Args string
}

// ParseCommand parses a command string (without the leading ':'). Names are
// case-insensitive and short aliases resolve to their full name.
func ParseCommand(input string) Command {
	input = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(input), ":"))
	name, args, _ := strings.Cut(input, " ")
	cmd := Command{Name: strings.ToLower(name), Args: strings.TrimSpace(args)}
	if full, ok := commandAliases[cmd.Name]; ok {
		cmd.Name = full
	}
	return cmd
}

var commandAliases = map[string]string{
	"a": "add",
	"o": "open",
	"h": "help",
	"q": "quit",
}

// Validate checks the argument count of known commands.
func (c Command) Validate() error {
	switch c.Name {
	case "add", "open":
		if c.Args == "" || strings.ContainsRune(c.Args, ' ') {
			return fmt.Errorf("usage: :%s <mobile>", c.Name)
		}
	case "retry", "logout", "help", "quit":
		if c.Args != "" {
			return fmt.Errorf(":%s takes no arguments", c.Name)
		}
	case "":
		return fmt.Errorf("empty command")
	default:
		return fmt.Errorf("unknown command %q", c.Name)
	}
	return nil
}
