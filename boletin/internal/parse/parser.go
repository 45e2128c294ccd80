// CLAUDE:SUMMARY Parser interface, parsed Page wrapper and per-source registry for the three gazette HTML dialects.
// CLAUDE:EXPORTS Parser, Page, Load, For, All
// Package parse locates municipality announcements and keyword mentions in
// the HTML of the three monitored gazettes.
//
// Each dialect is a sequential scan over structural blocks driven by an
// explicit state machine. Parsers never fail on unexpected markup: a missing
// element means "no match here" and the scan moves on.
package parse

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/boletin/boletin/internal/match"
	"github.com/hazyhaar/boletin/textnorm"
)

// Parser extracts announcements and mentions from one gazette dialect.
type Parser interface {
	Source() match.Source
	// Announcements returns the fragments addressed to municipality, or the
	// single placeholder fragment when there are none.
	Announcements(page *Page, municipality string) []match.AnnouncementFragment
	// Mentions returns every text unit matching one of queries. Empty when
	// nothing matches.
	Mentions(page *Page, queries []textnorm.Query) []match.MentionFragment
}

// Page is a parsed snapshot, shared by every scan over the same document.
type Page struct {
	Date string // YYYYMMDD
	doc  *goquery.Document
}

// Load parses raw HTML. The x/net/html parser recovers from almost any
// markup, so an error here means the reader itself failed.
func Load(raw, date string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Page{Date: date, doc: doc}, nil
}

// For returns the parser for source.
func For(source match.Source, logger *slog.Logger) (Parser, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("source", string(source))
	switch source {
	case match.SourceRegional:
		return &Regional{logger: logger}, nil
	case match.SourceProvincial:
		return &Provincial{logger: logger}, nil
	case match.SourceNational:
		return &National{logger: logger}, nil
	}
	return nil, fmt.Errorf("no parser for source %q", source)
}

// All returns one parser per known source.
func All(logger *slog.Logger) map[match.Source]Parser {
	out := make(map[match.Source]Parser, len(match.AllSources))
	for _, s := range match.AllSources {
		p, _ := For(s, logger)
		out[s] = p
	}
	return out
}

// municipalityKey is the normalized heading a municipality is announced under.
func municipalityKey(municipality string) string {
	return textnorm.Normalize(match.MunicipalityPrefix + strings.TrimSpace(municipality))
}

// isElement reports whether the first node of sel is a tag element.
func isElement(sel *goquery.Selection, tag atom.Atom) bool {
	if sel.Length() == 0 {
		return false
	}
	n := sel.Get(0)
	return n.Type == html.ElementNode && n.DataAtom == tag
}

// text returns the cleaned text content of sel.
func text(sel *goquery.Selection) string {
	return textnorm.Clean(sel.Text())
}

// definitionEntry reads the code/title pair of a provincial article
// (<dl><dt>[code]</dt><dd><a>title</a></dd></dl>). ok is false when either
// half is missing or the title is empty.
func definitionEntry(article *goquery.Selection) (code, title string, linked bool, ok bool) {
	dt := article.Find("dt").First()
	dd := article.Find("dd").First()
	if dt.Length() == 0 || dd.Length() == 0 {
		return "", "", false, false
	}
	code = strings.TrimSpace(strings.Trim(text(dt), "[] "))
	if link := dd.Find("a").First(); link.Length() > 0 {
		title, linked = text(link), true
	} else {
		title = text(dd)
	}
	if title == "" {
		return "", "", false, false
	}
	return code, title, linked, true
}
