// CLAUDE:SUMMARY Renders MatchSets into a self-contained HTML report (escaped gazette text, fixed source order) and its sanitized Markdown rendition.
// CLAUDE:EXPORTS Renderer, Meta, Mode, NewRenderer, NoResultsText, DisplayDate
// Package report turns search results into the document sent by email or
// downloaded from the API.
package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/boletin/boletin/internal/match"
)

// NoResultsText is shown for a source with neither announcements nor mentions.
const NoResultsText = "Sin resultados para el período consultado"

// Mode tells where the results came from.
type Mode string

const (
	ModeHistorical Mode = "historical"
	ModeLive       Mode = "live"
)

// Meta describes the run being reported.
type Meta struct {
	Mode        Mode
	GeneratedAt time.Time
}

//go:embed report.html.tmpl
var reportTemplate string

// Renderer renders reports. It is safe for concurrent use.
type Renderer struct {
	tmpl   *template.Template
	policy *bluemonday.Policy
	md     *converter.Converter
}

// NewRenderer parses the report template.
func NewRenderer() *Renderer {
	return &Renderer{
		tmpl:   template.Must(template.New("report").Parse(reportTemplate)),
		policy: bluemonday.UGCPolicy(),
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Gazette text is plain text; the template escapes it.
type itemView struct {
	Prefix string
	Text   string
	URL    string
	Date   string
}

type groupView struct {
	Label string
	Items []itemView
}

type mentionView struct {
	Query string
	Text  string
	URL   string
	Date  string
}

type sectionView struct {
	Heading    string
	SourceURL  string
	FetchError string
	Empty      bool
	Groups     []groupView
	Mentions   []mentionView
}

type pageView struct {
	Title     string
	Footer    string
	NoResults string
	Sections  []sectionView
}

// HTML renders results as a standalone HTML document. Sections follow the
// national, regional, provincial order and skip absent sources.
func (r *Renderer) HTML(results match.Results, meta Meta) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, r.view(results, meta)); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

// Markdown renders results as Markdown, derived from the HTML rendition.
// The document is reduced to its body markup first: head, title and
// stylesheet are dropped and links carry no script or unsafe scheme.
func (r *Renderer) Markdown(results match.Results, meta Meta) (string, error) {
	html, err := r.HTML(results, meta)
	if err != nil {
		return "", err
	}
	md, err := r.md.ConvertString(r.policy.Sanitize(html))
	if err != nil {
		return "", fmt.Errorf("convert report to markdown: %w", err)
	}
	return md, nil
}

func (r *Renderer) view(results match.Results, meta Meta) pageView {
	if meta.GeneratedAt.IsZero() {
		meta.GeneratedAt = time.Now()
	}
	today := meta.GeneratedAt.Format("02/01/2006")
	v := pageView{NoResults: NoResultsText}
	if meta.Mode == ModeLive {
		v.Title = "Resumen Automático de Publicaciones Oficiales - " + today
		v.Footer = "Este correo ha sido generado automáticamente por un servicio de monitoreo de boletines oficiales."
	} else {
		v.Title = "Resumen Búsqueda Histórica - " + today
		v.Footer = "Este reporte ha sido generado por búsqueda histórica en boletines oficiales."
	}

	for _, set := range results.Ordered() {
		sec := sectionView{
			Heading:    set.Source.Title(),
			SourceURL:  set.SourceURL,
			FetchError: set.FetchError,
			Empty:      set.Empty(),
		}
		for _, a := range set.Announcements {
			item := itemView{
				Prefix: a.Prefix,
				Text:   a.Text,
				URL:    a.URL,
				Date:   DisplayDate(a.Date),
			}
			if n := len(sec.Groups); n > 0 && sec.Groups[n-1].Label == a.Label() {
				sec.Groups[n-1].Items = append(sec.Groups[n-1].Items, item)
				continue
			}
			sec.Groups = append(sec.Groups, groupView{Label: a.Label(), Items: []itemView{item}})
		}
		for _, m := range set.Mentions {
			sec.Mentions = append(sec.Mentions, mentionView{
				Query: m.Query,
				Text:  m.Text,
				URL:   m.URL,
				Date:  DisplayDate(m.Date),
			})
		}
		v.Sections = append(v.Sections, sec)
	}
	return v
}

// DisplayDate converts YYYYMMDD to dd/mm/yyyy. Other input is returned as is.
func DisplayDate(d string) string {
	t, err := time.Parse(match.DateLayout, d)
	if err != nil {
		return d
	}
	return t.Format("02/01/2006")
}
