package actions

import (
	"regexp"
	"strings"
)

// directiveRe matches one action directive line. The whole line must match.
var directiveRe = regexp.MustCompile(`^Action: ([A-Za-z0-9_]+): (.*)$`)

// Invocation is an action request parsed from one line of model output.
type Invocation struct {
	Name     string
	Argument string
}

// ParseDirective parses a single line of the form "Action: <name>: <argument>". The argument
// is trimmed of surrounding whitespace. ok is false when the line is not a directive.
func ParseDirective(line string) (inv Invocation, ok bool) {
	m := directiveRe.FindStringSubmatch(strings.TrimRight(line, "\r"))
	if m == nil {
		return Invocation{}, false
	}
	return Invocation{
		Name:     m[1],
		Argument: strings.TrimSpace(m[2]),
	}, true
}

// ParseFirst scans text line by line and returns the first directive found. Later directives
// are ignored. ok is false when no line is a directive, meaning text is a final answer.
func ParseFirst(text string) (inv Invocation, ok bool) {
	for _, line := range strings.Split(text, "\n") {
		if inv, ok := ParseDirective(line); ok {
			return inv, true
		}
	}
	return Invocation{}, false
}
