// CLAUDE:SUMMARY Match data model: parser fragments, dated announcements and mentions, and the per-source MatchSet handed to the renderer.
// Package match holds the data model shared by parsers, the aggregator and
// the report renderer.
package match

// NoAnnouncementText is the placeholder body returned by a parser when a
// municipality has no announcement in a document. Callers filter it out.
const NoAnnouncementText = "No se encontró texto de anuncio específico."

// MunicipalityPrefix precedes the municipality name in gazette headings.
const MunicipalityPrefix = "Ayuntamiento de "

// AnnouncementFragment is one announcement located by a parser, before it is
// attributed to a snapshot date.
type AnnouncementFragment struct {
	Prefix string // document reference code, "" when absent
	Text   string
	URL    string // absolute document URL, "" when absent
}

// IsPlaceholder reports whether f is the "nothing found" sentinel.
func (f AnnouncementFragment) IsPlaceholder() bool {
	return f.Text == NoAnnouncementText && f.URL == "" && f.Prefix == ""
}

// Placeholder returns the sentinel fragment slice.
func Placeholder() []AnnouncementFragment {
	return []AnnouncementFragment{{Text: NoAnnouncementText}}
}

// MentionFragment is one keyword hit located by a parser.
type MentionFragment struct {
	Query string // raw query phrase that matched
	Text  string
	URL   string
}

// Announcement is a notice addressed to a municipality, attributed to the
// date of the snapshot it was found in.
type Announcement struct {
	Municipality string `json:"municipality"`
	Prefix       string `json:"prefix,omitempty"`
	Text         string `json:"text"`
	URL          string `json:"url,omitempty"`
	Date         string `json:"date,omitempty"` // YYYYMMDD
}

// Label is the heading announcements are grouped and sorted under.
func (a Announcement) Label() string {
	return MunicipalityPrefix + a.Municipality
}

// Mention is a keyword hit attributed to a snapshot date.
type Mention struct {
	Query string `json:"query"`
	Text  string `json:"text"`
	URL   string `json:"url,omitempty"`
	Date  string `json:"date,omitempty"`
}

// MatchSet is everything found in one source for one run.
type MatchSet struct {
	Source        Source         `json:"source"`
	SourceURL     string         `json:"source_url"`
	Announcements []Announcement `json:"announcements"`
	Mentions      []Mention      `json:"mentions"`
	// FetchError is set by live runs when the source page could not be retrieved.
	FetchError string `json:"fetch_error,omitempty"`
}

// Empty reports whether the set has neither announcements nor mentions.
func (m *MatchSet) Empty() bool {
	return len(m.Announcements) == 0 && len(m.Mentions) == 0
}

// Results maps each consulted source to its MatchSet.
type Results map[Source]*MatchSet

// Ordered returns the sets in report display order, skipping absent sources.
func (r Results) Ordered() []*MatchSet {
	out := make([]*MatchSet, 0, len(r))
	for _, s := range AllSources {
		if set, ok := r[s]; ok && set != nil {
			out = append(out, set)
		}
	}
	return out
}

// Counts returns the total number of announcements and mentions.
func (r Results) Counts() (announcements, mentions int) {
	for _, set := range r {
		if set == nil {
			continue
		}
		announcements += len(set.Announcements)
		mentions += len(set.Mentions)
	}
	return announcements, mentions
}
