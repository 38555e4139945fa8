// Package entity defines the domain values shared by the announce cycle:
// the blog post read from the feed, the credentials used to reach the social
// platform, and the error taxonomy that decides whether a failure is fatal.
package entity

import "time"

// Post is the newest entry of the blog feed.
// Date keeps the zone offset from the feed; compare with time.Time methods only.
type Post struct {
	Title string
	URL   string
	Date  time.Time
}
