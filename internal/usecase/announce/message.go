package announce

import (
	"strings"

	"blog-tweeter/internal/domain/entity"
)

const (
	messagePrefix = "New post - "

	// MaxMessageWeight is the platform limit for one update.
	MaxMessageWeight = 280

	// urlWeight is the fixed weight of any link after shortening.
	urlWeight = 23

	truncationSuffix = "..."
)

// FormatMessage renders the announcement for post:
//
//	New post - {title}
//	{url}
//
// When the result would exceed MaxMessageWeight the title is shortened and
// suffixed with "...". The URL is never cut.
func FormatMessage(post entity.Post) string {
	title := strings.TrimSpace(post.Title)
	budget := MaxMessageWeight - weight(messagePrefix) - weight("\n") - urlWeight
	if weight(title) > budget {
		title = truncateWeighted(title, budget-weight(truncationSuffix)) + truncationSuffix
	}
	return messagePrefix + title + "\n" + post.URL
}

// weight approximates the platform's weighted length: Latin script and common
// punctuation count 1, everything else (CJK, emoji) counts 2.
func weight(s string) int {
	n := 0
	for _, r := range s {
		n += runeWeight(r)
	}
	return n
}

func runeWeight(r rune) int {
	switch {
	case r <= 0x10FF,
		r >= 0x2000 && r <= 0x200D,
		r >= 0x2010 && r <= 0x201F,
		r >= 0x2032 && r <= 0x2037:
		return 1
	default:
		return 2
	}
}

// truncateWeighted cuts s on a rune boundary so its weight is at most max.
func truncateWeighted(s string, max int) string {
	n := 0
	for i, r := range s {
		w := runeWeight(r)
		if n+w > max {
			return strings.TrimRight(s[:i], " ")
		}
		n += w
	}
	return s
}
