// CLAUDE:SUMMARY Regional gazette (DOE) parser: header-triggered state machine over <p> blocks, justified-text containers, DOE2/DOE4 spans.
package parse

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hazyhaar/boletin/boletin/internal/match"
	"github.com/hazyhaar/boletin/textnorm"
)

// DOE markup hooks.
const (
	regionalHeader    = "span.DOE2"
	regionalBody      = "span.DOE4"
	regionalContainer = "div.justificado"
	regionalLink      = "a.enlace_dis"
)

type regionalState int

const (
	regionalSearching regionalState = iota
	regionalInMunicipality
	regionalDone
)

// Regional parses the Diario Oficial de Extremadura. The issue is a flat run
// of paragraphs; a DOE2 heading naming the municipality opens its section and
// the next different heading closes it.
type Regional struct {
	logger *slog.Logger
}

func (p *Regional) Source() match.Source { return match.SourceRegional }

func (p *Regional) Announcements(page *Page, municipality string) []match.AnnouncementFragment {
	target := municipalityKey(municipality)
	state := regionalSearching
	var out []match.AnnouncementFragment

	page.doc.Find("p").EachWithBreak(func(_ int, block *goquery.Selection) bool {
		next, frag := p.step(state, target, block)
		if next == regionalInMunicipality && state == regionalSearching {
			p.logger.Debug("municipality heading found", "municipality", municipality, "date", page.Date)
		}
		if frag != nil {
			out = append(out, *frag)
		}
		state = next
		return state != regionalDone
	})

	if len(out) == 0 {
		p.logger.Debug("no announcements", "municipality", municipality, "date", page.Date)
		return match.Placeholder()
	}
	return out
}

// step is the transition function: it consumes one paragraph and returns the
// next state plus the fragment the paragraph yields, if any.
func (p *Regional) step(state regionalState, target string, block *goquery.Selection) (regionalState, *match.AnnouncementFragment) {
	header := block.Find(regionalHeader).First()
	hasHeader := header.Length() > 0
	headerKey := ""
	if hasHeader {
		headerKey = textnorm.Normalize(text(header))
	}

	if hasHeader && strings.Contains(headerKey, target) {
		return regionalInMunicipality, nil
	}
	if state != regionalInMunicipality {
		return state, nil
	}

	var frag *match.AnnouncementFragment
	if container := block.ParentsFiltered(regionalContainer).First(); container.Length() > 0 {
		if body := block.Find(regionalBody).First(); body.Length() > 0 {
			frag = &match.AnnouncementFragment{Text: text(body)}
			if hasHeader {
				frag.Prefix = text(header) + ".-"
			}
			if href, ok := block.Find(regionalLink).First().Attr("href"); ok {
				frag.URL = match.ResolveURL(match.RegionalHost, href)
			}
		}
	}

	// Any other heading ends the municipality's section.
	if hasHeader {
		return regionalDone, frag
	}
	return state, frag
}

func (p *Regional) Mentions(page *Page, queries []textnorm.Query) []match.MentionFragment {
	if len(queries) == 0 {
		return nil
	}

	type unit struct {
		block *goquery.Selection
		text  string
		key   string
	}
	var units []unit
	page.doc.Find("p").Each(func(_ int, block *goquery.Selection) {
		t := text(block)
		if t == "" {
			return
		}
		units = append(units, unit{block: block, text: t, key: textnorm.Normalize(t)})
	})

	var out []match.MentionFragment
	for _, q := range queries {
		for _, u := range units {
			if !q.MatchNormalized(u.key) {
				continue
			}
			frag := match.MentionFragment{Query: q.Raw, Text: u.text}
			container := u.block.ParentsFiltered(regionalContainer).First()
			if href, ok := container.Find(regionalLink).First().Attr("href"); ok {
				frag.URL = match.ResolveURL(match.RegionalHost, href)
			}
			p.logger.Debug("mention found", "query", q.Raw, "date", page.Date)
			out = append(out, frag)
		}
	}
	return out
}
