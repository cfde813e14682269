package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/safarai/intelwatch/app/brief"
	"github.com/safarai/intelwatch/app/database"
)

// Subject builds the email subject line for a brief.
func Subject(b database.Brief) string {
	return fmt.Sprintf("Intelligence Brief: %s", b.CreatedAt.Format("Jan 2, 2006"))
}

// Render produces the HTML body. Each section shows at most
// brief.DisplayLimit events; the stored brief keeps the full list.
func Render(b database.Brief, events []database.Event) string {
	byID := make(map[string]database.Event, len(events))
	for _, event := range events {
		byID[event.ID] = event
	}

	var sb strings.Builder
	sb.WriteString("<html><body style=\"font-family:Arial,sans-serif;max-width:640px;margin:0 auto\">\n")
	sb.WriteString(fmt.Sprintf("<h1>Intelligence Brief</h1>\n<p>%s</p>\n", b.CreatedAt.Format("Monday, January 2, 2006")))

	if len(b.Sections) == 0 {
		sb.WriteString("<p>No notable events detected in this run.</p>\n")
	}

	for _, section := range b.Sections {
		sb.WriteString(fmt.Sprintf("<h2>%s</h2>\n", html.EscapeString(section.Name)))

		shown := 0
		for _, id := range section.EventIDs {
			if shown >= brief.DisplayLimit {
				break
			}
			event, ok := byID[id]
			if !ok {
				continue
			}
			writeEvent(&sb, event)
			shown++
		}

		if remaining := len(section.EventIDs) - shown; remaining > 0 {
			sb.WriteString(fmt.Sprintf("<p><em>+%d more</em></p>\n", remaining))
		}
	}

	sb.WriteString("</body></html>\n")
	return sb.String()
}

func writeEvent(sb *strings.Builder, event database.Event) {
	sb.WriteString("<div style=\"margin-bottom:16px\">\n")
	sb.WriteString(fmt.Sprintf("<strong>%s</strong> <span style=\"color:#888\">(%s, score %d)</span><br>\n",
		html.EscapeString(event.Title), html.EscapeString(event.Company), event.Score))
	sb.WriteString(fmt.Sprintf("%s<br>\n", html.EscapeString(event.Summary)))
	if event.WhyItMatters != "" {
		sb.WriteString(fmt.Sprintf("<em>Why it matters:</em> %s<br>\n", html.EscapeString(event.WhyItMatters)))
	}
	if event.SourceURL != "" {
		sb.WriteString(fmt.Sprintf("<a href=\"%s\">Source</a>\n", html.EscapeString(event.SourceURL)))
	}
	sb.WriteString("</div>\n")
}
