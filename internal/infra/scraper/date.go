package scraper

import (
	"strings"
	"time"

	"blog-tweeter/internal/domain/entity"

	"github.com/mmcdole/gofeed"
)

// rfc2822Layouts are tried in order against the raw publish date.
// RSS 2.0 mandates RFC 822 dates, but feeds commonly drop the weekday,
// use single-digit days or name the zone instead of giving an offset.
var rfc2822Layouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"02 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
	"02 Jan 2006 15:04:05 MST",
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
}

// rfc2822Zones are the zone names RFC 2822 section 4.3 allows in place of a
// numeric offset. time.Parse gives an abbreviation it does not know a zero
// offset, so these are rewritten before parsing.
var rfc2822Zones = map[string]string{
	"UT":  "+0000",
	"GMT": "+0000",
	"Z":   "+0000",
	"EST": "-0500",
	"EDT": "-0400",
	"CST": "-0600",
	"CDT": "-0500",
	"MST": "-0700",
	"MDT": "-0600",
	"PST": "-0800",
	"PDT": "-0700",
}

// ParseRFC2822 parses a feed date, keeping the zone offset it carries.
func ParseRFC2822(raw string) (time.Time, bool) {
	raw = numericZone(strings.TrimSpace(raw))
	for _, layout := range rfc2822Layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// numericZone replaces a trailing RFC 2822 zone name with its offset.
func numericZone(raw string) string {
	i := strings.LastIndexByte(raw, ' ')
	if i < 0 {
		return raw
	}
	if offset, ok := rfc2822Zones[strings.ToUpper(raw[i+1:])]; ok {
		return raw[:i+1] + offset
	}
	return raw
}

// publishDate resolves the entry date. RSS items carry pubDate, Atom entries
// carry published and sometimes only updated. When the strict layouts fail,
// the lenient value already parsed by gofeed is accepted.
func publishDate(item *gofeed.Item) (time.Time, error) {
	raw, parsed := item.Published, item.PublishedParsed
	if strings.TrimSpace(raw) == "" && parsed == nil {
		raw, parsed = item.Updated, item.UpdatedParsed
	}

	if strings.TrimSpace(raw) == "" && parsed == nil {
		return time.Time{}, &entity.MalformedEntryError{Field: "pubDate", Reason: "missing"}
	}

	if t, ok := ParseRFC2822(raw); ok {
		return t, nil
	}
	if parsed != nil {
		return *parsed, nil
	}

	return time.Time{}, &entity.MalformedEntryError{
		Field:  "pubDate",
		Reason: "unparseable date '" + raw + "'",
	}
}
