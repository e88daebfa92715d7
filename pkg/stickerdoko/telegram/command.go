package telegram

import (
	"strings"
	"unicode"
)

// Command is a parsed "/name@bot args" message
type Command struct {
	Name string
	Args string
}

// ParseCommand parses text as a bot command. The name is kept verbatim, so
// "/TAG" does not match the "tag" command, and the arguments are trimmed.
// A command addressed to a different bot with "/name@otherbot" is rejected.
func ParseCommand(text, botUsername string) (Command, bool) {
	if !strings.HasPrefix(text, "/") {
		return Command{}, false
	}

	head, rest := text[1:], ""
	if i := strings.IndexFunc(head, unicode.IsSpace); i >= 0 {
		head, rest = head[:i], head[i:]
	}

	name, mention, addressed := strings.Cut(head, "@")
	if addressed && !strings.EqualFold(mention, botUsername) {
		return Command{}, false
	}
	if name == "" {
		return Command{}, false
	}

	return Command{Name: name, Args: strings.TrimSpace(rest)}, true
}
