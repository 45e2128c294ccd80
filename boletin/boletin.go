// CLAUDE:SUMMARY Service orchestrator: wires archive, fetcher, search, report, ingestion, digest and scheduler behind the business methods.
// CLAUDE:EXPORTS Service, Open, New, Option, WithRegisterer, WithGetter, WithMailer, WithClock
// Package boletin monitors the Extremadura regional gazette (DOE), the
// Badajoz provincial gazette (BOP) and the national gazette (BOE) for
// notices addressed to municipalities and for keyword mentions.
package boletin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	netmail "net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hazyhaar/boletin/boletin/internal/digest"
	"github.com/hazyhaar/boletin/boletin/internal/fetch"
	"github.com/hazyhaar/boletin/boletin/internal/ingest"
	"github.com/hazyhaar/boletin/boletin/internal/mail"
	"github.com/hazyhaar/boletin/boletin/internal/match"
	"github.com/hazyhaar/boletin/boletin/internal/metrics"
	"github.com/hazyhaar/boletin/boletin/internal/report"
	"github.com/hazyhaar/boletin/boletin/internal/scheduler"
	"github.com/hazyhaar/boletin/boletin/internal/search"
	"github.com/hazyhaar/boletin/boletin/internal/store"
)

// Getter fetches one gazette page.
type Getter = search.Getter

// Service is the main boletin orchestrator.
type Service struct {
	store      *store.Store
	aggregator *search.Aggregator
	live       *search.Live
	ingester   *ingest.Ingester
	renderer   *report.Renderer
	dispatcher *digest.Dispatcher // nil when mail is disabled
	metrics    *metrics.Metrics
	config     *Config
	loc        *time.Location
	logger     *slog.Logger
	now        func() time.Time
}

type options struct {
	registerer prometheus.Registerer
	getter     Getter
	mailer     mail.Mailer
	now        func() time.Time
}

// Option customises New.
type Option func(*options)

// WithRegisterer registers the service metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithGetter replaces the HTTP fetcher.
func WithGetter(g Getter) Option { return func(o *options) { o.getter = g } }

// WithMailer replaces the SMTP transport, enabling digests without SMTP config.
func WithMailer(m mail.Mailer) Option { return func(o *options) { o.mailer = m } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// New creates a Service over an opened archive.
func New(st *store.Store, cfg *Config, logger *slog.Logger, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidInput, cfg.Scheduler.Timezone, err)
	}

	m := metrics.New(o.registerer)
	getter := o.getter
	if getter == nil {
		getter = fetch.New(fetch.Config{
			Timeout:   cfg.Fetch.Timeout,
			MaxBytes:  cfg.Fetch.MaxBytes,
			UserAgent: cfg.Fetch.UserAgent,
		})
	}

	svc := &Service{
		store:      st,
		aggregator: search.NewAggregator(st, logger, m),
		live:       search.NewLive(getter, logger, m),
		ingester:   ingest.New(st, getter, ingest.Config{Pause: cfg.Ingest.Pause}, logger, m),
		renderer:   report.NewRenderer(),
		metrics:    m,
		config:     cfg,
		loc:        loc,
		logger:     logger,
		now:        o.now,
	}

	mailer := o.mailer
	if mailer == nil && cfg.SMTP.Host != "" {
		mailer = mail.NewSMTP(mail.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	}
	if mailer != nil {
		svc.dispatcher = digest.New(st, svc.live, svc.renderer, mailer,
			digest.Config{Location: loc, From: cfg.SMTP.From}, logger, m)
	}
	return svc, nil
}

// Open opens the archive at cfg.DBPath and builds a Service over it.
// Close releases the archive.
func Open(cfg *Config, logger *slog.Logger, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.defaults()
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrStoreUnavailable, cfg.DBPath, err)
	}
	svc, err := New(st, cfg, logger, opts...)
	if err != nil {
		st.Close()
		return nil, err
	}
	return svc, nil
}

// Close closes the archive.
func (s *Service) Close() error { return s.store.Close() }

// Config returns the effective configuration.
func (s *Service) Config() *Config { return s.config }

// Today returns the current date in the service timezone, as YYYYMMDD.
func (s *Service) Today() string {
	return s.now().In(s.loc).Format(match.DateLayout)
}

// Search runs a historical search over the archive.
func (s *Service) Search(ctx context.Context, q Query) (Results, error) {
	start := time.Now()
	res, err := s.aggregator.Search(ctx, q)
	s.logSearch(ctx, "historical", q, res, time.Since(start), err)
	return res, err
}

// SearchLive fetches and scans the pages published on q.Date (today when empty).
func (s *Service) SearchLive(ctx context.Context, q LiveQuery) (Results, error) {
	if q.Date == "" {
		q.Date = s.Today()
	}
	start := time.Now()
	res, err := s.live.Search(ctx, q)
	s.logSearch(ctx, "live", q, res, time.Since(start), err)
	return res, err
}

// Render formats results.
func (s *Service) Render(res Results, live bool, format Format) (string, error) {
	meta := report.Meta{Mode: report.ModeHistorical, GeneratedAt: s.now().In(s.loc)}
	if live {
		meta.Mode = report.ModeLive
	}
	if format == FormatMarkdown {
		return s.renderer.Markdown(res, meta)
	}
	return s.renderer.HTML(res, meta)
}

// Report runs a historical search and renders it.
func (s *Service) Report(ctx context.Context, q Query, format Format) (string, Results, error) {
	res, err := s.Search(ctx, q)
	if err != nil {
		return "", nil, err
	}
	doc, err := s.Render(res, false, format)
	return doc, res, err
}

// Ingest archives the pages of every date in [from, to] not yet stored.
// No sources means all sources.
func (s *Service) Ingest(ctx context.Context, from, to string, sources []Source) (map[Source]int, error) {
	dates, err := ingest.DateRange(from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	sources, err = validSources(sources)
	if err != nil {
		return nil, err
	}
	stored, err := s.ingester.Run(ctx, dates, sources)
	return stored, ingestErr(ctx, err)
}

// ingestErr classifies an ingester failure: cancellation stays as is,
// everything else is an archive failure.
func ingestErr(ctx context.Context, err error) error {
	if err == nil || ctx.Err() != nil {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

// Refresh archives the last RefreshDays days for every source, then prunes
// snapshots older than RetentionDays.
func (s *Service) Refresh(ctx context.Context) (*IngestSummary, error) {
	dates := ingest.LastDays(s.now().In(s.loc), s.config.Ingest.RefreshDays)
	stored, err := s.ingester.Run(ctx, dates, AllSources)
	if err := ingestErr(ctx, err); err != nil {
		return nil, err
	}
	pruned, err := s.Prune(ctx, s.config.Ingest.RetentionDays)
	if err != nil {
		return nil, err
	}
	s.logger.Info("refresh done", "dates", len(dates), "stored", stored, "pruned", pruned)
	return &IngestSummary{Stored: stored, Pruned: pruned}, nil
}

// Prune deletes snapshots older than days days.
func (s *Service) Prune(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, fmt.Errorf("%w: retention must be positive, got %d", ErrInvalidInput, days)
	}
	cutoff := s.now().In(s.loc).AddDate(0, 0, -days).Format(match.DateLayout)
	n, err := s.store.PruneBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return n, nil
}

// Stats returns archive counters.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	st, err := s.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return st, nil
}

// DispatchDue sends the digests due at the current minute.
func (s *Service) DispatchDue(ctx context.Context) ([]DigestOutcome, error) {
	if s.dispatcher == nil {
		return nil, ErrMailDisabled
	}
	return s.dispatcher.RunDue(ctx, s.now())
}

// RunScheduler runs the periodic refresh and, when mail is enabled, the
// digest check. It blocks until ctx is done.
func (s *Service) RunScheduler(ctx context.Context) error {
	sched := scheduler.New(s.loc, s.logger)
	err := sched.Add(scheduler.Job{
		Name: "refresh",
		Spec: s.config.Scheduler.IngestCron,
		Run: func(ctx context.Context) error {
			_, err := s.Refresh(ctx)
			return err
		},
	})
	if err != nil {
		return err
	}
	if s.dispatcher != nil {
		err := sched.Add(scheduler.Job{
			Name: "digest",
			Spec: s.config.Scheduler.DigestCron,
			Run: func(ctx context.Context) error {
				_, err := s.DispatchDue(ctx)
				return err
			},
		})
		if err != nil {
			return err
		}
	} else {
		s.logger.Info("digest dispatch disabled: no mail transport")
	}
	return sched.Run(ctx)
}

var sendTimeRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// GetPreference returns the preference of userID, or nil if absent.
func (s *Service) GetPreference(ctx context.Context, userID string) (*Preference, error) {
	p, err := s.store.GetPreference(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return p, nil
}

// ListPreferences returns every stored preference.
func (s *Service) ListPreferences(ctx context.Context) ([]*Preference, error) {
	ps, err := s.store.ListPreferences(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return ps, nil
}

// PutPreference validates and stores p.
func (s *Service) PutPreference(ctx context.Context, p *Preference) error {
	if err := validatePreference(p); err != nil {
		return err
	}
	if err := s.store.UpsertPreference(ctx, p); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// DeletePreference removes the preference of userID and reports whether it existed.
func (s *Service) DeletePreference(ctx context.Context, userID string) (bool, error) {
	ok, err := s.store.DeletePreference(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return ok, nil
}

// RecentSearches returns the latest search log entries.
func (s *Service) RecentSearches(ctx context.Context, limit int) ([]*SearchLogEntry, error) {
	return s.store.RecentSearches(ctx, limit)
}

func validatePreference(p *Preference) error {
	p.UserID = strings.TrimSpace(p.UserID)
	p.Email = strings.TrimSpace(p.Email)
	if p.UserID == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	if p.Email != "" && !validEmail(p.Email) {
		return fmt.Errorf("%w: email %q", ErrInvalidInput, p.Email)
	}
	if p.SendTime != "" && !sendTimeRe.MatchString(p.SendTime) {
		return fmt.Errorf("%w: send_time %q is not HH:MM", ErrInvalidInput, p.SendTime)
	}
	if p.ExpiresOn != "" {
		if _, err := time.Parse(match.DateLayout, p.ExpiresOn); err != nil {
			return fmt.Errorf("%w: expires_on %q is not YYYYMMDD", ErrInvalidInput, p.ExpiresOn)
		}
	}
	for _, src := range p.Sources {
		if !src.Valid() {
			return fmt.Errorf("%w: unknown source %q", ErrInvalidInput, src)
		}
	}
	return nil
}

// validEmail accepts a bare RFC 5322 address. Display names and anything
// that could add a header line are refused.
func validEmail(s string) bool {
	if strings.ContainsAny(s, "\r\n") {
		return false
	}
	addr, err := netmail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func validSources(sources []Source) ([]Source, error) {
	if len(sources) == 0 {
		return AllSources, nil
	}
	for _, src := range sources {
		if !src.Valid() {
			return nil, fmt.Errorf("%w: unknown source %q", ErrInvalidInput, src)
		}
	}
	return sources, nil
}

// logSearch records a search run. Failures to log are only warned about.
func (s *Service) logSearch(ctx context.Context, mode string, params any, res Results, d time.Duration, searchErr error) {
	entry := &store.SearchLogEntry{Mode: mode, DurationMs: d.Milliseconds()}
	if b, err := json.Marshal(params); err == nil {
		entry.ParamsJSON = string(b)
	}
	if searchErr != nil {
		entry.ErrorMessage = searchErr.Error()
	} else {
		entry.Announcements, entry.Mentions = res.Counts()
	}
	if err := s.store.InsertSearchLog(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Warn("search log write failed", "error", err)
	}
}
