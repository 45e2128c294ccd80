package report

import (
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/boletin/boletin/internal/match"
)

var generated = time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

func TestHTML_SourceOrder(t *testing.T) {
	// WHAT: National renders before Regional even when the map holds Regional first.
	// WHY: Readers expect the same section order in every report.
	res := match.Results{
		match.SourceRegional: {Source: match.SourceRegional, SourceURL: match.SourceRegional.ArchiveURL()},
		match.SourceNational: {Source: match.SourceNational, SourceURL: match.SourceNational.ArchiveURL()},
	}
	out, err := NewRenderer().HTML(res, Meta{Mode: ModeHistorical, GeneratedAt: generated})
	if err != nil {
		t.Fatalf("html: %v", err)
	}
	boe := strings.Index(out, "Resultados BOE")
	doe := strings.Index(out, "Resultados DOE")
	if boe < 0 || doe < 0 || boe > doe {
		t.Fatalf("order: BOE at %d, DOE at %d", boe, doe)
	}
	if strings.Contains(out, "Resultados BOP") {
		t.Error("absent source rendered")
	}
}

func TestHTML_NoResultsAndSourceURL(t *testing.T) {
	res := match.Results{
		match.SourceProvincial: {Source: match.SourceProvincial, SourceURL: "https://www.dip-badajoz.es/bop/"},
	}
	out, err := NewRenderer().HTML(res, Meta{GeneratedAt: generated})
	if err != nil {
		t.Fatalf("html: %v", err)
	}
	if !strings.Contains(out, NoResultsText) {
		t.Error("missing no-results notice")
	}
	if !strings.Contains(out, `Enlace consultado:</strong> <a href="https://www.dip-badajoz.es/bop/"`) {
		t.Error("missing queried source link")
	}
	if !strings.Contains(out, "Resumen Búsqueda Histórica - 15/03/2024") {
		t.Error("missing historical title")
	}
}

func TestHTML_GroupsAndMentions(t *testing.T) {
	// WHAT: Consecutive announcements share one municipality heading; dates are dd/mm/yyyy.
	res := match.Results{
		match.SourceNational: {
			Source:    match.SourceNational,
			SourceURL: "https://www.boe.es/boe/dias/",
			Announcements: []match.Announcement{
				{Municipality: "Badajoz", Text: "Licitación A", URL: "https://www.boe.es/a.pdf", Date: "20240101"},
				{Municipality: "Badajoz", Prefix: "ANUNCIO.-", Text: "Licitación B", Date: "20240102"},
				{Municipality: "Zafra", Text: "Padrón", Date: "20240102"},
			},
			Mentions: []match.Mention{{Query: "subvenciones", Text: "Convocatoria de subvenciones", Date: "20240103"}},
		},
	}
	out, err := NewRenderer().HTML(res, Meta{Mode: ModeLive, GeneratedAt: generated})
	if err != nil {
		t.Fatalf("html: %v", err)
	}
	if n := strings.Count(out, "Ayuntamiento de Badajoz"); n != 1 {
		t.Errorf("Badajoz headings: got %d, want 1", n)
	}
	for _, want := range []string{
		"Ayuntamiento de Zafra",
		"Fecha: 01/01/2024",
		`<a href="https://www.boe.es/a.pdf" class="pdf-link">`,
		"<strong>ANUNCIO.-</strong> Licitación B",
		"Mención: subvenciones",
		"Fecha: 03/01/2024",
		"Resumen Automático de Publicaciones Oficiales - 15/03/2024",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q", want)
		}
	}
	if strings.Contains(out, NoResultsText) {
		t.Error("no-results notice shown for a non-empty source")
	}
}

func TestHTML_EscapesGazetteText(t *testing.T) {
	// WHAT: Text that looks like markup is escaped and kept, never interpreted or dropped.
	// WHY: Gazettes quote contact addresses as <registro@...>; the report is opened in mail clients.
	res := match.Results{
		match.SourceNational: {
			Source: match.SourceNational,
			Announcements: []match.Announcement{
				{Municipality: "Badajoz", Text: `<script>alert(1)</script>Tasas & precios <b>públicos</b>`},
				{Municipality: "Mérida", Text: "Presentación en <registro@merida.es> o sede <https://sede.merida.es>"},
			},
		},
	}
	out, err := NewRenderer().HTML(res, Meta{GeneratedAt: generated})
	if err != nil {
		t.Fatalf("html: %v", err)
	}
	if strings.Contains(out, "<script>") || strings.Contains(out, "<b>") {
		t.Errorf("markup leaked: %s", out)
	}
	for _, want := range []string{
		"&lt;script&gt;alert(1)&lt;/script&gt;Tasas &amp; precios &lt;b&gt;públicos&lt;/b&gt;",
		"Presentación en &lt;registro@merida.es&gt; o sede &lt;https://sede.merida.es&gt;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestMarkdown_KeepsBracketedText(t *testing.T) {
	res := match.Results{
		match.SourceRegional: {
			Source:   match.SourceRegional,
			Mentions: []match.Mention{{Query: "sede", Text: "Solicitudes en <https://sede.merida.es> y <registro@merida.es>", Date: "20240101"}},
		},
	}
	md, err := NewRenderer().Markdown(res, Meta{GeneratedAt: generated})
	if err != nil {
		t.Fatalf("markdown: %v", err)
	}
	for _, want := range []string{"sede.merida.es", "registro@merida.es"} {
		if !strings.Contains(md, want) {
			t.Errorf("missing %q in:\n%s", want, md)
		}
	}
	if strings.Contains(md, "<script") || strings.Contains(md, "<title>") {
		t.Errorf("document markup leaked:\n%s", md)
	}
}

func TestMarkdown(t *testing.T) {
	res := match.Results{
		match.SourceNational: {
			Source:        match.SourceNational,
			SourceURL:     "https://www.boe.es/boe/dias/",
			Announcements: []match.Announcement{{Municipality: "Badajoz", Text: "Licitación", URL: "https://www.boe.es/a.pdf", Date: "20240101"}},
		},
	}
	md, err := NewRenderer().Markdown(res, Meta{GeneratedAt: generated})
	if err != nil {
		t.Fatalf("markdown: %v", err)
	}
	for _, want := range []string{"### Resultados BOE", "Ayuntamiento de Badajoz", "(https://www.boe.es/a.pdf)", "https://www.boe.es/boe/dias/"} {
		if !strings.Contains(md, want) {
			t.Errorf("missing %q in:\n%s", want, md)
		}
	}
	if strings.Contains(md, "font-family") {
		t.Error("stylesheet leaked into markdown")
	}
}

func TestDisplayDate(t *testing.T) {
	if got := DisplayDate("20240315"); got != "15/03/2024" {
		t.Errorf("got %q", got)
	}
	if got := DisplayDate("ayer"); got != "ayer" {
		t.Errorf("got %q", got)
	}
}
