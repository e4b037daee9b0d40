package pipeline

import (
	"html"
	"strings"
)

// renderSummaryBlock renders the generated summary as an HTML fragment
// appended to calendar events and embedded in emails
func renderSummaryBlock(summaryText string) string {
	var sb strings.Builder
	sb.WriteString("<hr><h2>Meeting Summary</h2>")
	for _, paragraph := range strings.Split(summaryText, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		sb.WriteString("<p>")
		sb.WriteString(strings.ReplaceAll(html.EscapeString(paragraph), "\n", "<br>"))
		sb.WriteString("</p>")
	}
	return sb.String()
}

// appendSummaryToBody appends the summary block to an event's existing
// HTML body, preserving the original content
func appendSummaryToBody(existingBody, summaryText string) string {
	return existingBody + renderSummaryBlock(summaryText)
}

// renderEmailBody builds the HTML body for the organizer email
func renderEmailBody(subject, summaryText string) string {
	var sb strings.Builder
	sb.WriteString("<html><body>")
	sb.WriteString("<p>A transcript for <b>")
	sb.WriteString(html.EscapeString(subject))
	sb.WriteString("</b> has been processed. The full transcript is attached.</p>")
	sb.WriteString(renderSummaryBlock(summaryText))
	sb.WriteString("</body></html>")
	return sb.String()
}
