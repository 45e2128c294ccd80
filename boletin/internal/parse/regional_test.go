package parse

import (
	"testing"

	"github.com/hazyhaar/boletin/boletin/internal/match"
	"github.com/hazyhaar/boletin/textnorm"
)

const regionalFixture = `<html><body>
<p><span class="DOE2">Ayuntamiento de Badajoz</span></p>
<div class="justificado"><p><span class="DOE4">Anuncio de Badajoz sobre tasas.</span> <a class="enlace_dis" href="/pdfs/doe/2024/badajoz.pdf">PDF</a></p></div>
<p><span class="DOE2">Ayuntamiento de Mérida</span></p>
<div class="justificado"><p><span class="DOE4">Anuncio de 3 de marzo sobre subvenciones culturales.</span> <a class="enlace_dis" href="/pdfs/doe/2024/merida1.pdf">PDF</a></p></div>
<div class="justificado"><p><span class="DOE4">Bases de licitación de obra pública en la calle Mayor.</span> <a class="enlace_dis" href="/pdfs/doe/2024/merida2.pdf">PDF</a></p></div>
<p><span class="DOE2">Ayuntamiento de Plasencia</span></p>
<div class="justificado"><p><span class="DOE4">Anuncio de Plasencia sobre subvenciones.</span> <a class="enlace_dis" href="/pdfs/doe/2024/plasencia.pdf">PDF</a></p></div>
</body></html>`

func regionalParser(t *testing.T) Parser {
	t.Helper()
	p, err := For(match.SourceRegional, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return p
}

func mustLoad(t *testing.T, raw, date string) *Page {
	t.Helper()
	page, err := Load(raw, date)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return page
}

func TestRegional_AnnouncementsWithinSection(t *testing.T) {
	// WHAT: Only paragraphs between the Mérida heading and the next heading are captured.
	// WHY: Neighbouring municipalities' notices must not leak into the section.
	page := mustLoad(t, regionalFixture, "20240304")
	got := regionalParser(t).Announcements(page, "Merida")
	if len(got) != 2 {
		t.Fatalf("count: got %d, want 2 (%+v)", len(got), got)
	}
	if got[0].Text != "Anuncio de 3 de marzo sobre subvenciones culturales." {
		t.Errorf("text: got %q", got[0].Text)
	}
	if got[0].URL != "https://doe.juntaex.es/pdfs/doe/2024/merida1.pdf" {
		t.Errorf("url: got %q", got[0].URL)
	}
	if got[1].URL != "https://doe.juntaex.es/pdfs/doe/2024/merida2.pdf" {
		t.Errorf("url: got %q", got[1].URL)
	}
	if got[0].Prefix != "" {
		t.Errorf("prefix: got %q, want empty", got[0].Prefix)
	}
}

func TestRegional_PrefixFromHeaderSpan(t *testing.T) {
	// WHAT: A DOE2 span inside a justified paragraph becomes the "X.-" prefix and closes the section.
	// WHY: DOE reference codes share the heading style; a differing heading is a boundary.
	raw := `<p><span class="DOE2">AYUNTAMIENTO DE CÁCERES</span></p>
<div class="justificado"><p><span class="DOE2">ANUNCIO</span> <span class="DOE4">de 2 de enero de 2024 sobre padrón.</span></p></div>
<div class="justificado"><p><span class="DOE4">No debe capturarse.</span></p></div>`
	got := regionalParser(t).Announcements(mustLoad(t, raw, "20240102"), "Cáceres")
	if len(got) != 1 {
		t.Fatalf("count: got %d, want 1 (%+v)", len(got), got)
	}
	if got[0].Prefix != "ANUNCIO.-" {
		t.Errorf("prefix: got %q, want %q", got[0].Prefix, "ANUNCIO.-")
	}
	if got[0].URL != "" {
		t.Errorf("url: got %q, want empty", got[0].URL)
	}
}

func TestRegional_NoMatchReturnsPlaceholder(t *testing.T) {
	page := mustLoad(t, regionalFixture, "20240304")
	got := regionalParser(t).Announcements(page, "Almendralejo")
	if len(got) != 1 || !got[0].IsPlaceholder() {
		t.Fatalf("got %+v, want placeholder", got)
	}
}

func TestRegional_MalformedMarkup(t *testing.T) {
	// WHAT: Garbage in, placeholder out, no panic.
	page := mustLoad(t, `<div class="justificado"><p><span class="DOE4">`, "20240304")
	got := regionalParser(t).Announcements(page, "Badajoz")
	if len(got) != 1 || !got[0].IsPlaceholder() {
		t.Fatalf("got %+v, want placeholder", got)
	}
	if m := regionalParser(t).Mentions(page, textnorm.ParseQueries([]string{"x"})); len(m) != 0 {
		t.Errorf("mentions: got %d, want 0", len(m))
	}
}

func TestRegional_Mentions(t *testing.T) {
	// WHAT: Every paragraph containing all terms is a mention, linked through its container.
	page := mustLoad(t, regionalFixture, "20240304")
	qs := textnorm.ParseQueries([]string{"subvenciones", "licitacion, obra publica"})
	got := regionalParser(t).Mentions(page, qs)
	if len(got) != 3 {
		t.Fatalf("count: got %d, want 3 (%+v)", len(got), got)
	}
	if got[0].Query != "subvenciones" || got[2].Query != "licitacion, obra publica" {
		t.Errorf("query order: got %q, %q, %q", got[0].Query, got[1].Query, got[2].Query)
	}
	if got[2].URL != "https://doe.juntaex.es/pdfs/doe/2024/merida2.pdf" {
		t.Errorf("url: got %q", got[2].URL)
	}
}
