package boletin

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/boletin/boletin/internal/fetch"
	"github.com/hazyhaar/boletin/boletin/internal/mail"
	"github.com/hazyhaar/boletin/boletin/internal/store"
)

const badajozItem = `<ul><li class="dispo"><p>Ayuntamiento de Badajoz anuncia licitación de obras</p>
<ul><li class="puntoPDF"><a href="/boe/dias/2024/03/15/pdfs/BOE-B-2024-1.pdf">PDF</a></li></ul></li></ul>`

type pageGetter struct {
	mu    sync.Mutex
	pages map[string]string
	calls int
}

func (g *pageGetter) Get(_ context.Context, url string) (*fetch.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	body, ok := g.pages[url]
	if !ok {
		return nil, errors.New("404")
	}
	return &fetch.Result{Body: body, StatusCode: 200}, nil
}

func nationalPages(dates ...string) *pageGetter {
	g := &pageGetter{pages: make(map[string]string)}
	for _, d := range dates {
		u, _ := SourceNational.PageURL(d)
		g.pages[u] = badajozItem
	}
	return g
}

type captureMailer struct {
	sent []mail.Message
}

func (m *captureMailer) Send(_ context.Context, msg mail.Message) error {
	m.sent = append(m.sent, msg)
	return nil
}

func fixedClock(s string) func() time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t }
}

func setupTestService(t *testing.T, opts ...Option) (*Service, *store.Store) {
	t.Helper()
	st := store.OpenMemory(t)
	cfg := DefaultConfig()
	cfg.Ingest.Pause = -1
	svc, err := New(st, cfg, nil, opts...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, st
}

func TestService_IngestThenSearch(t *testing.T) {
	// WHAT: Pages ingested for two days are found by a historical search.
	// WHY: Ingestion and search meet only through the archive.
	svc, _ := setupTestService(t, WithGetter(nationalPages("20240101", "20240102")))
	ctx := context.Background()

	stored, err := svc.Ingest(ctx, "20240101", "20240102", []Source{SourceNational})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if stored[SourceNational] != 2 {
		t.Fatalf("stored: got %d, want 2", stored[SourceNational])
	}

	res, err := svc.Search(ctx, Query{
		Municipalities: []string{"Badajoz"},
		From:           "20240101",
		To:             "20240102",
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if n := len(res[SourceNational].Announcements); n != 2 {
		t.Fatalf("announcements: got %d, want 2", n)
	}
	if got := res[SourceNational].Announcements[0].URL; got != "https://www.boe.es/boe/dias/2024/03/15/pdfs/BOE-B-2024-1.pdf" {
		t.Errorf("url: got %q", got)
	}

	log, err := svc.RecentSearches(ctx, 10)
	if err != nil {
		t.Fatalf("recent searches: %v", err)
	}
	if len(log) != 1 {
		t.Fatalf("search log: got %d entries, want 1", len(log))
	}
	if log[0].Mode != "historical" || log[0].Announcements != 2 {
		t.Errorf("search log entry: got %+v", log[0])
	}
}

func TestService_IngestSkipsExisting(t *testing.T) {
	// WHAT: A second ingest of the same range fetches nothing.
	g := nationalPages("20240101")
	svc, _ := setupTestService(t, WithGetter(g))
	ctx := context.Background()

	if _, err := svc.Ingest(ctx, "20240101", "20240101", []Source{SourceNational}); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	calls := g.calls
	stored, err := svc.Ingest(ctx, "20240101", "20240101", []Source{SourceNational})
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if stored[SourceNational] != 0 || g.calls != calls {
		t.Errorf("second run: stored %d, fetches %d", stored[SourceNational], g.calls-calls)
	}
}

func TestService_IngestInvalidInput(t *testing.T) {
	svc, _ := setupTestService(t, WithGetter(nationalPages()))
	ctx := context.Background()

	cases := []struct {
		name     string
		from, to string
		sources  []Source
	}{
		{"bad date", "2024-01-01", "20240102", nil},
		{"inverted", "20240105", "20240101", nil},
		{"unknown source", "20240101", "20240101", []Source{"BOCM"}},
	}
	for _, tc := range cases {
		if _, err := svc.Ingest(ctx, tc.from, tc.to, tc.sources); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: got %v, want ErrInvalidInput", tc.name, err)
		}
	}
}

func TestService_SearchEmptyQuery(t *testing.T) {
	svc, _ := setupTestService(t)
	_, err := svc.Search(context.Background(), Query{From: "20240101", To: "20240101"})
	if !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("got %v, want ErrEmptyQuery", err)
	}
}

func TestService_SearchLiveDefaultsToToday(t *testing.T) {
	// WHAT: A live search without a date scans today's issue in the service timezone.
	// WHY: 23:30 UTC on the 14th is already the 15th in Madrid.
	svc, _ := setupTestService(t,
		WithGetter(nationalPages("20240315")),
		WithClock(fixedClock("2024-03-14T23:30:00Z")))

	res, err := svc.SearchLive(context.Background(), LiveQuery{
		Municipalities: []string{"Badajoz"},
		Sources:        []Source{SourceNational},
	})
	if err != nil {
		t.Fatalf("live: %v", err)
	}
	anns := res[SourceNational].Announcements
	if len(anns) != 1 {
		t.Fatalf("announcements: got %d, want 1", len(anns))
	}
	if anns[0].Date != "20240315" {
		t.Errorf("date: got %q, want 20240315", anns[0].Date)
	}
}

func TestService_Report(t *testing.T) {
	svc, st := setupTestService(t, WithClock(fixedClock("2024-03-15T09:00:00Z")))
	ctx := context.Background()
	if err := st.UpsertSnapshot(ctx, "20240101", SourceNational, badajozItem); err != nil {
		t.Fatalf("seed: %v", err)
	}
	q := Query{Municipalities: []string{"Badajoz"}, From: "20240101", To: "20240101"}

	html, _, err := svc.Report(ctx, q, FormatHTML)
	if err != nil {
		t.Fatalf("html report: %v", err)
	}
	if !strings.Contains(html, "Resumen Búsqueda Histórica - 15/03/2024") {
		t.Errorf("html title missing:\n%s", html)
	}
	if !strings.Contains(html, "anuncia licitación de obras") {
		t.Error("html: announcement text missing")
	}

	md, res, err := svc.Report(ctx, q, FormatMarkdown)
	if err != nil {
		t.Fatalf("markdown report: %v", err)
	}
	if strings.Contains(md, "<html") {
		t.Error("markdown output still contains html")
	}
	if !strings.Contains(md, "anuncia licitación de obras") {
		t.Error("markdown: announcement text missing")
	}
	if a, _ := res.Counts(); a != 1 {
		t.Errorf("counts: got %d announcements, want 1", a)
	}
}

func TestService_RefreshPrunes(t *testing.T) {
	// WHAT: Refresh archives the recent days then drops snapshots past retention.
	svc, st := setupTestService(t,
		WithGetter(nationalPages("20240314", "20240315")),
		WithClock(fixedClock("2024-03-15T09:00:00Z")))
	svc.config.Ingest.RefreshDays = 2
	ctx := context.Background()
	if err := st.UpsertSnapshot(ctx, "20230101", SourceNational, badajozItem); err != nil {
		t.Fatalf("seed: %v", err)
	}

	sum, err := svc.Refresh(ctx)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if sum.Stored[SourceNational] != 2 {
		t.Errorf("stored: got %d, want 2", sum.Stored[SourceNational])
	}
	if sum.Pruned != 1 {
		t.Errorf("pruned: got %d, want 1", sum.Pruned)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Snapshots != 2 || stats.FirstDate != "20240314" {
		t.Errorf("stats: got %+v", stats)
	}
}

func TestService_PruneRejectsNonPositive(t *testing.T) {
	svc, _ := setupTestService(t)
	if _, err := svc.Prune(context.Background(), 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("got %v, want ErrInvalidInput", err)
	}
}

func TestService_DispatchDueWithoutMailer(t *testing.T) {
	svc, _ := setupTestService(t)
	if _, err := svc.DispatchDue(context.Background()); !errors.Is(err, ErrMailDisabled) {
		t.Fatalf("got %v, want ErrMailDisabled", err)
	}
}

func TestService_DispatchDue(t *testing.T) {
	// WHAT: A subscription due at the current local minute receives one digest.
	// WHY: Send times are local; 09:00 UTC is 10:00 in Madrid in March.
	m := &captureMailer{}
	svc, _ := setupTestService(t,
		WithGetter(nationalPages("20240315")),
		WithMailer(m),
		WithClock(fixedClock("2024-03-15T09:00:00Z")))
	ctx := context.Background()

	err := svc.PutPreference(ctx, &Preference{
		UserID:         "u1",
		Email:          "alcaldia@example.org",
		Municipalities: []string{"Badajoz"},
		Sources:        []Source{SourceNational},
		SendTime:       "10:00",
		ExpiresOn:      "20240331",
	})
	if err != nil {
		t.Fatalf("put preference: %v", err)
	}

	out, err := svc.DispatchDue(ctx)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(out) != 1 || out[0].Err != nil {
		t.Fatalf("outcomes: got %+v", out)
	}
	if out[0].Announcements != 1 {
		t.Errorf("announcements: got %d, want 1", out[0].Announcements)
	}
	if len(m.sent) != 1 {
		t.Fatalf("sent: got %d, want 1", len(m.sent))
	}
	if m.sent[0].Subject != "Publicaciones del Día - 15/03/2024" {
		t.Errorf("subject: got %q", m.sent[0].Subject)
	}
	if m.sent[0].To != "alcaldia@example.org" {
		t.Errorf("to: got %q", m.sent[0].To)
	}
}

func TestService_PutPreferenceValidation(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	valid := func() *Preference {
		return &Preference{UserID: "u1", Email: "a@b.es", SendTime: "08:30", ExpiresOn: "20241231"}
	}

	cases := []struct {
		name   string
		mutate func(p *Preference)
	}{
		{"missing user", func(p *Preference) { p.UserID = " " }},
		{"bad email", func(p *Preference) { p.Email = "nobody" }},
		{"email with header injection", func(p *Preference) { p.Email = "a@b.es\r\nBcc: x@example.org" }},
		{"email with bare newline", func(p *Preference) { p.Email = "a@b.es\nBcc: x@example.org" }},
		{"email with display name", func(p *Preference) { p.Email = "Ana <ana@merida.es>" }},
		{"email with two addresses", func(p *Preference) { p.Email = "a@b.es, x@example.org" }},
		{"email without domain", func(p *Preference) { p.Email = "ana@" }},
		{"bad send time", func(p *Preference) { p.SendTime = "25:00" }},
		{"send time without colon", func(p *Preference) { p.SendTime = "0830" }},
		{"bad expiry", func(p *Preference) { p.ExpiresOn = "31/12/2024" }},
		{"unknown source", func(p *Preference) { p.Sources = []Source{"BOCM"} }},
	}
	for _, tc := range cases {
		p := valid()
		tc.mutate(p)
		if err := svc.PutPreference(ctx, p); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: got %v, want ErrInvalidInput", tc.name, err)
		}
	}

	if err := svc.PutPreference(ctx, valid()); err != nil {
		t.Fatalf("valid preference: %v", err)
	}
	got, err := svc.GetPreference(ctx, "u1")
	if err != nil || got == nil {
		t.Fatalf("get: %v, %v", got, err)
	}
	if got.SendTime != "08:30" {
		t.Errorf("send time: got %q", got.SendTime)
	}

	ok, err := svc.DeletePreference(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("delete: %v, %v", ok, err)
	}
	if got, _ := svc.GetPreference(ctx, "u1"); got != nil {
		t.Error("preference still present after delete")
	}
}

func TestNew_BadTimezone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scheduler.Timezone = "Mars/Olympus"
	if _, err := New(store.OpenMemory(t), cfg, nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("got %v, want ErrInvalidInput", err)
	}
}
