package parse

import (
	"testing"

	"github.com/hazyhaar/boletin/boletin/internal/match"
	"github.com/hazyhaar/boletin/textnorm"
)

const provincialFixture = `<html><body>
<p class="nivel1">Administración del Estado</p>
<p class="nivel3">Ayuntamiento de Zafra</p>
<article><dl><dt>[100]</dt><dd><a href="#">Anuncio estatal sobre Zafra</a></dd></dl></article>
<p class="nivel1">Administración Local</p>
<p class="nivel2">Ayuntamientos</p>
<p class="nivel3">Ayuntamiento de Zafra</p>
<article><dl><dt>[1234]</dt><dd><a href="#">Aprobación inicial del presupuesto</a></dd></dl></article>
<article><dl><dt>[1235]</dt><dd>Padrón de agua sin enlace</dd></dl></article>
<p class="nivel3">Ayuntamiento de Llerena</p>
<article><dl><dt>[1240]</dt><dd><a href="#">Licencia de obras en Llerena</a></dd></dl></article>
<p class="nivel1">Administración Local</p>
<p class="nivel3">Ayuntamiento de Zafra</p>
<article><dl><dt>[9999]</dt><dd><a href="#">Fuera del ámbito</a></dd></dl></article>
<div id="sumario_dinamico">
<article><dl><dt>[2001]</dt><dd><a href="#">Convocatoria de subvenciones deportivas</a></dd></dl></article>
<article><p>Subvenciones sin lista</p></article>
</div>
</body></html>`

func provincialParser(t *testing.T) Parser {
	t.Helper()
	p, err := For(match.SourceProvincial, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return p
}

func TestProvincial_LocalSectionOnly(t *testing.T) {
	// WHAT: Articles before the first Administración Local title and after its second occurrence are ignored.
	// WHY: State administration notices also carry municipality headings.
	page := mustLoad(t, provincialFixture, "20240115")
	got := provincialParser(t).Announcements(page, "Zafra")
	if len(got) != 2 {
		t.Fatalf("count: got %d, want 2 (%+v)", len(got), got)
	}
	if got[0].Text != "Aprobación inicial del presupuesto" {
		t.Errorf("text: got %q", got[0].Text)
	}
	want := "https://www.dip-badajoz.es/bop/ventana_boletin_completo.php?FechaSolicitada=20240115000000#Anuncio_1234"
	if got[0].URL != want {
		t.Errorf("url: got %q, want %q", got[0].URL, want)
	}
	if got[1].Text != "Padrón de agua sin enlace" || got[1].URL != "" {
		t.Errorf("unlinked entry: got %+v", got[1])
	}
}

func TestProvincial_HeadingResetsSection(t *testing.T) {
	page := mustLoad(t, provincialFixture, "20240115")
	got := provincialParser(t).Announcements(page, "Llerena")
	if len(got) != 1 || got[0].Text != "Licencia de obras en Llerena" {
		t.Fatalf("got %+v", got)
	}
}

func TestProvincial_TopLevelSectionStops(t *testing.T) {
	// WHAT: A non-administration top-level title inside the local section ends the scan.
	raw := `<p class="nivel1">ADMINISTRACIÓN LOCAL</p>
<p class="nivel3">Ayuntamiento de Zafra</p>
<article><dl><dt>[1]</dt><dd><a>Primero</a></dd></dl></article>
<p class="nivel1">Anuncios particulares</p>
<article><dl><dt>[2]</dt><dd><a>Segundo</a></dd></dl></article>`
	got := provincialParser(t).Announcements(mustLoad(t, raw, "20240115"), "zafra")
	if len(got) != 1 || got[0].Text != "Primero" {
		t.Fatalf("got %+v", got)
	}
}

func TestProvincial_NoLocalSection(t *testing.T) {
	raw := `<p class="nivel3">Ayuntamiento de Zafra</p><article><dl><dt>[1]</dt><dd><a>X</a></dd></dl></article>`
	got := provincialParser(t).Announcements(mustLoad(t, raw, "20240115"), "Zafra")
	if len(got) != 1 || !got[0].IsPlaceholder() {
		t.Fatalf("got %+v, want placeholder", got)
	}
}

func TestProvincial_MentionsInSummaryOnly(t *testing.T) {
	// WHAT: Mentions come from the dynamic summary; articles without a definition list are skipped.
	page := mustLoad(t, provincialFixture, "20240115")
	got := provincialParser(t).Mentions(page, textnorm.ParseQueries([]string{"subvenciones"}))
	if len(got) != 1 {
		t.Fatalf("count: got %d, want 1 (%+v)", len(got), got)
	}
	if got[0].Text != "Convocatoria de subvenciones deportivas" {
		t.Errorf("text: got %q", got[0].Text)
	}
	if got[0].URL != "https://www.dip-badajoz.es/bop/ventana_boletin_completo.php?FechaSolicitada=20240115000000#Anuncio_2001" {
		t.Errorf("url: got %q", got[0].URL)
	}
}

func TestProvincial_MissingSummary(t *testing.T) {
	page := mustLoad(t, `<p>subvenciones</p>`, "20240115")
	if got := provincialParser(t).Mentions(page, textnorm.ParseQueries([]string{"subvenciones"})); len(got) != 0 {
		t.Fatalf("got %+v, want none", got)
	}
}
