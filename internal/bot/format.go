package bot

import (
	"fmt"
	"strings"
	"time"

	"memer/internal/config"
	"memer/internal/model"
	"memer/internal/postcache"
)

// FormatItem formats a post as a Telegram message. Content goes last so the
// link preview shows the media.
func FormatItem(item model.Item) string {
	var b strings.Builder
	if item.Source != "" {
		fmt.Fprintf(&b, "[r/%s]", item.Source)
		if item.Sensitive {
			b.WriteString(" NSFW")
		}
		b.WriteString("\n\n")
	}
	b.WriteString(item.Title)
	if item.Content != "" {
		b.WriteString("\n\n")
		b.WriteString(item.Content)
	}
	return b.String()
}

// FormatRetry formats a rate-limit reply, rounding the wait up to a second.
func FormatRetry(wait time.Duration) string {
	secs := int((wait + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf("Slow down! Try again in %ds.", secs)
}

// FormatGroups lists the configured source groups.
func FormatGroups(src config.Sources) string {
	groups := src.Groups()
	if len(groups) == 0 {
		return "No groups configured."
	}
	var b strings.Builder
	b.WriteString("Groups:\n")
	for _, g := range groups {
		names, _ := src.Group(g)
		fmt.Fprintf(&b, "\n%s: %s", g, strings.Join(names, ", "))
	}
	b.WriteString("\n\nUse /post <group> to get a post from one group.")
	return b.String()
}

// FormatReport summarizes a refresh cycle.
func FormatReport(r postcache.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Refreshed %d sources in %s, %d posts.",
		len(r.Succeeded), r.Elapsed.Round(time.Millisecond), r.Items)
	if len(r.Failed) > 0 {
		fmt.Fprintf(&b, "\nFailed: %s", strings.Join(r.Failed, ", "))
	}
	return b.String()
}
