package slack

import "regexp"

// Agents produce standard Markdown; Slack renders mrkdwn. Convert the two
// constructs that actually differ before posting.

var (
	mdLinkRE = regexp.MustCompile(`\[([^\]]+)]\(([^)]+)\)`)
	mdBoldRE = regexp.MustCompile(`\*\*(.*?)\*\*`)
)

// ToMrkdwn converts Markdown links and bold markers to Slack mrkdwn:
// [text](url) becomes <url|text>, **bold** becomes *bold*.
func ToMrkdwn(text string) string {
	text = mdLinkRE.ReplaceAllString(text, "<$2|$1>")
	return mdBoldRE.ReplaceAllString(text, "*$1*")
}
