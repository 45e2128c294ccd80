// CLAUDE:SUMMARY Gazette source enum (DOE regional, BOP provincial, BOE national) with display titles and per-source URL schemes.
package match

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Source identifies one of the monitored gazettes.
type Source string

const (
	// SourceRegional is the Diario Oficial de Extremadura.
	SourceRegional Source = "DOE"
	// SourceProvincial is the Boletín Oficial de la Provincia de Badajoz.
	SourceProvincial Source = "BOP"
	// SourceNational is the Boletín Oficial del Estado.
	SourceNational Source = "BOE"
)

// DateLayout is the canonical snapshot date format.
const DateLayout = "20060102"

// Hosts used to resolve relative document links.
const (
	RegionalHost   = "https://doe.juntaex.es"
	ProvincialHost = "https://www.dip-badajoz.es"
	NationalHost   = "https://www.boe.es"
)

// AllSources lists every source in report display order.
var AllSources = []Source{SourceNational, SourceRegional, SourceProvincial}

// ParseSource accepts a source code (DOE, BOP, BOE) or kind name
// (regional, provincial, national), case-insensitively.
func ParseSource(s string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "doe", "regional":
		return SourceRegional, nil
	case "bop", "provincial", "bop badajoz":
		return SourceProvincial, nil
	case "boe", "national":
		return SourceNational, nil
	}
	return "", fmt.Errorf("unknown source %q", s)
}

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	switch s {
	case SourceRegional, SourceProvincial, SourceNational:
		return true
	}
	return false
}

// Kind returns the administrative level of the gazette.
func (s Source) Kind() string {
	switch s {
	case SourceRegional:
		return "regional"
	case SourceProvincial:
		return "provincial"
	case SourceNational:
		return "national"
	}
	return ""
}

// Title is the section heading used in reports.
func (s Source) Title() string {
	return "Resultados " + string(s)
}

// ArchiveURL is the identifier reported for runs over archived snapshots.
func (s Source) ArchiveURL() string {
	switch s {
	case SourceRegional:
		return RegionalHost + "/ultimosdoe/"
	case SourceProvincial:
		return ProvincialHost + "/bop/"
	case SourceNational:
		return NationalHost + "/boe/dias/"
	}
	return ""
}

// PageURL returns the URL of the full daily issue for date (YYYYMMDD).
func (s Source) PageURL(date string) (string, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", fmt.Errorf("page url: %w", err)
	}
	switch s {
	case SourceRegional:
		return RegionalHost + "/ultimosdoe/mostrardoe.php?fecha=" + date + "&t=o", nil
	case SourceProvincial:
		return ProvincialHost + "/bop/ventana_boletin_completo.php?FechaSolicitada=" + date + "000000", nil
	case SourceNational:
		return NationalHost + "/boe/dias/" + t.Format("2006/01/02") + "/", nil
	}
	return "", fmt.Errorf("page url: unknown source %q", s)
}

// ProvincialAnnouncementURL builds the anchor link to one announcement in
// the provincial issue of date, keyed by its code.
func ProvincialAnnouncementURL(date, code string) string {
	return ProvincialHost + "/bop/ventana_boletin_completo.php?FechaSolicitada=" + date + "000000#Anuncio_" + code
}

// ResolveURL makes href absolute against host. Already-absolute links are
// returned unchanged; an empty href yields "".
func ResolveURL(host, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	base, err := url.Parse(host)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
