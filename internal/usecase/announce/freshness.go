// Package announce runs one announce cycle: read the newest blog post, read
// when the account last published, and publish the post if it is newer.
package announce

import "time"

// IsNewer reports whether postDate is strictly later than lastPublished.
// Equal instants are not newer, so a post published at the same second as the
// last update is never announced twice. Zone offsets do not matter.
func IsNewer(postDate, lastPublished time.Time) bool {
	return postDate.After(lastPublished)
}
