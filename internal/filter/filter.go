// Package filter decides which cached items a channel may receive.
package filter

import "memer/internal/model"

// Rules describe what a single delivery must skip.
type Rules struct {
	// AllowSensitive lets sensitive items through.
	AllowSensitive bool
	// LastPermalink is the item delivered most recently; it is never repeated
	// back to back.
	LastPermalink string
	// Blocked reports whether a permalink is on the channel's blacklist.
	Blocked func(permalink string) bool
}

// Match checks whether an item passes the rules.
// Sensitive items need AllowSensitive. The last delivered item and
// blacklisted items never pass.
func Match(item model.Item, r Rules) bool {
	if item.Sensitive && !r.AllowSensitive {
		return false
	}
	if r.LastPermalink != "" && item.Permalink == r.LastPermalink {
		return false
	}
	if r.Blocked != nil && r.Blocked(item.Permalink) {
		return false
	}
	return true
}

// Eligible returns the items that pass the rules, in their original order.
func Eligible(items []model.Item, r Rules) []model.Item {
	var out []model.Item
	for _, it := range items {
		if Match(it, r) {
			out = append(out, it)
		}
	}
	return out
}
