// CLAUDE:SUMMARY National gazette (BOE) parser: flat scan of li.dispo items with nested PDF pointer links.
package parse

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hazyhaar/boletin/boletin/internal/match"
	"github.com/hazyhaar/boletin/textnorm"
)

const (
	nationalItem = "li.dispo"
	nationalPDF  = "li.puntoPDF a"
)

// National parses the Boletín Oficial del Estado daily summary: a flat list
// of dispositions, each one paragraph plus an optional PDF pointer.
type National struct {
	logger *slog.Logger
}

func (p *National) Source() match.Source { return match.SourceNational }

type nationalItemView struct {
	text string
	key  string
	url  string
}

// items reads every disposition with a non-empty paragraph, in document order.
func (p *National) items(page *Page) []nationalItemView {
	var out []nationalItemView
	page.doc.Find(nationalItem).Each(func(_ int, li *goquery.Selection) {
		para := li.Find("p").First()
		if para.Length() == 0 {
			return
		}
		t := text(para)
		if t == "" {
			return
		}
		v := nationalItemView{text: t, key: textnorm.Normalize(t)}
		if href, ok := li.Find(nationalPDF).First().Attr("href"); ok {
			v.url = match.ResolveURL(match.NationalHost, href)
		}
		out = append(out, v)
	})
	return out
}

func (p *National) Announcements(page *Page, municipality string) []match.AnnouncementFragment {
	target := municipalityKey(municipality)
	var out []match.AnnouncementFragment
	for _, it := range p.items(page) {
		if strings.Contains(it.key, target) {
			out = append(out, match.AnnouncementFragment{Text: it.text, URL: it.url})
		}
	}
	if len(out) == 0 {
		p.logger.Debug("no announcements", "municipality", municipality, "date", page.Date)
		return match.Placeholder()
	}
	return out
}

func (p *National) Mentions(page *Page, queries []textnorm.Query) []match.MentionFragment {
	if len(queries) == 0 {
		return nil
	}
	var out []match.MentionFragment
	for _, it := range p.items(page) {
		for _, q := range queries {
			if q.MatchNormalized(it.key) {
				out = append(out, match.MentionFragment{Query: q.Raw, Text: it.text, URL: it.url})
			}
		}
	}
	return out
}
