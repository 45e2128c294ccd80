// CLAUDE:SUMMARY Suppresses keyword mentions that duplicate an announcement already reported for the same source.
// CLAUDE:EXPORTS Mentions
// Package dedup removes mentions whose text overlaps an announcement found in
// the same source, so a notice is never reported twice.
package dedup

import (
	"strings"

	"github.com/hazyhaar/boletin/boletin/internal/match"
	"github.com/hazyhaar/boletin/textnorm"
)

// identities returns the normalized strings a mention is compared against:
// the municipality heading and the prefixed body of every announcement.
func identities(announcements []match.Announcement) []string {
	out := make([]string, 0, 2*len(announcements))
	for _, a := range announcements {
		for _, s := range []string{
			a.Label(),
			strings.TrimSpace(a.Prefix + " " + a.Text),
		} {
			if n := textnorm.Normalize(s); n != "" {
				out = append(out, n)
			}
		}
	}
	return out
}

// Mentions returns the mentions that do not overlap any announcement. A
// mention overlaps when its normalized text is contained in an identity
// string or contains one. Order is preserved.
func Mentions(announcements []match.Announcement, mentions []match.Mention) []match.Mention {
	if len(announcements) == 0 || len(mentions) == 0 {
		return mentions
	}
	ids := identities(announcements)
	out := make([]match.Mention, 0, len(mentions))
	for _, m := range mentions {
		if !overlaps(textnorm.Normalize(m.Text), ids) {
			out = append(out, m)
		}
	}
	return out
}

func overlaps(text string, ids []string) bool {
	if text == "" {
		return false
	}
	for _, id := range ids {
		if strings.Contains(id, text) || strings.Contains(text, id) {
			return true
		}
	}
	return false
}
