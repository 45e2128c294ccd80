// CLAUDE:SUMMARY Provincial gazette (BOP Badajoz) parser: Administración Local section boundaries, nivel2/nivel3 headings, dl-coded articles, sumario_dinamico mentions.
package parse

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/boletin/boletin/internal/match"
	"github.com/hazyhaar/boletin/textnorm"
)

const (
	localSectionKey   = "administracion local"
	adminSectionKey   = "administracion"
	provincialSummary = "div#sumario_dinamico"
)

type provincialState int

const (
	provincialBeforeLocal provincialState = iota
	provincialSearching
	provincialInMunicipality
	provincialDone
)

// Provincial parses the Boletín Oficial de la Provincia de Badajoz.
//
// Municipal notices live in the "Administración Local" section. The issue
// repeats that title further down (the summary and the body both carry it),
// so the scan stops at its second occurrence. This is a heuristic boundary:
// an issue where the title appears once runs to the next top-level section,
// and one where it never appears yields nothing.
type Provincial struct {
	logger *slog.Logger
}

func (p *Provincial) Source() match.Source { return match.SourceProvincial }

func (p *Provincial) Announcements(page *Page, municipality string) []match.AnnouncementFragment {
	target := municipalityKey(municipality)
	state := provincialBeforeLocal
	var out []match.AnnouncementFragment

	page.doc.Find("p, article").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		next, frag := p.step(state, target, page.Date, el)
		if next == provincialInMunicipality && state != provincialInMunicipality {
			p.logger.Debug("municipality heading found", "municipality", municipality, "date", page.Date)
		}
		if frag != nil {
			out = append(out, *frag)
		}
		state = next
		return state != provincialDone
	})

	if len(out) == 0 {
		p.logger.Debug("no announcements", "municipality", municipality, "date", page.Date)
		return match.Placeholder()
	}
	return out
}

func (p *Provincial) step(state provincialState, target, date string, el *goquery.Selection) (provincialState, *match.AnnouncementFragment) {
	isP := isElement(el, atom.P)

	if isP && el.HasClass("nivel1") {
		key := textnorm.Normalize(text(el))
		switch {
		case strings.Contains(key, localSectionKey):
			if state == provincialBeforeLocal {
				return provincialSearching, nil
			}
			return provincialDone, nil
		case state != provincialBeforeLocal && !strings.Contains(key, adminSectionKey):
			return provincialDone, nil
		}
		return state, nil
	}
	if state == provincialBeforeLocal {
		return state, nil
	}

	heading := isP && (el.HasClass("nivel3") || el.HasClass("nivel2"))
	if heading {
		matches := strings.Contains(textnorm.Normalize(text(el)), target)
		if matches && el.HasClass("nivel3") {
			return provincialInMunicipality, nil
		}
		if !matches && state == provincialInMunicipality {
			return provincialSearching, nil
		}
		return state, nil
	}

	if state != provincialInMunicipality || !isElement(el, atom.Article) || el.Find("dl").Length() == 0 {
		return state, nil
	}
	code, title, linked, ok := definitionEntry(el)
	if !ok {
		return state, nil
	}
	frag := &match.AnnouncementFragment{Text: title}
	if linked {
		frag.URL = match.ProvincialAnnouncementURL(date, code)
	}
	return state, frag
}

func (p *Provincial) Mentions(page *Page, queries []textnorm.Query) []match.MentionFragment {
	if len(queries) == 0 {
		return nil
	}
	summary := page.doc.Find(provincialSummary).First()
	if summary.Length() == 0 {
		p.logger.Warn("dynamic summary container missing", "date", page.Date)
		return nil
	}

	var out []match.MentionFragment
	summary.Find("article").Each(func(_ int, article *goquery.Selection) {
		key := textnorm.Normalize(article.Text())
		for _, q := range queries {
			if !q.MatchNormalized(key) {
				continue
			}
			code, title, linked, ok := definitionEntry(article)
			if !ok {
				continue
			}
			frag := match.MentionFragment{Query: q.Raw, Text: title}
			if linked {
				frag.URL = match.ProvincialAnnouncementURL(page.Date, code)
			}
			p.logger.Debug("mention found", "query", q.Raw, "date", page.Date)
			out = append(out, frag)
		}
	})
	return out
}
