package dispatch

import (
	"regexp"
	"strings"
)

// Default templates used when an event carries no custom ones.
const (
	DefaultSubjectTemplate = "You're invited to {{eventName}}"
	DefaultBodyTemplate    = "Hello,\n\n" +
		"You've been invited to {{eventName}}.\n" +
		"{{eventDescription}}\n\n" +
		"Starts: {{startsAt}}\n" +
		"Ends: {{endsAt}}\n\n" +
		"Join here: {{inviteLink}}\n"
)

// LinkPlaceholder is the placeholder the join link is substituted into.
const LinkPlaceholder = "inviteLink"

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z][a-zA-Z0-9_]*)\s*\}\}`)

// Render substitutes {{name}} placeholders from the context. Unknown or
// absent keys become the empty string; missing context is expected, not an
// error. Rendering the same inputs twice yields byte-identical output.
func Render(template string, context map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		return context[name]
	})
}

// EnsureLink guarantees the join link survives into the final message even
// if a custom template omitted it. It appends a default line with the
// literal link iff neither the named placeholder nor the literal link is
// already present, so applying it to its own output is a no-op.
func EnsureLink(body, name, link string) string {
	placeholder := "{{" + name + "}}"
	if strings.Contains(body, placeholder) || strings.Contains(body, link) {
		return body
	}
	return strings.TrimRight(body, "\n") + "\n\nJoin here: " + link + "\n"
}
