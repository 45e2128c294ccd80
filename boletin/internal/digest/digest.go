// CLAUDE:SUMMARY Per-user digest dispatch: selects preferences due at the current minute, runs a live search, renders and mails the report.
// CLAUDE:EXPORTS Dispatcher, Config, Outcome, Searcher, Preferences, New
// Package digest sends each subscriber their daily gazette summary at the
// time they chose.
package digest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/boletin/boletin/internal/mail"
	"github.com/hazyhaar/boletin/boletin/internal/match"
	"github.com/hazyhaar/boletin/boletin/internal/metrics"
	"github.com/hazyhaar/boletin/boletin/internal/report"
	"github.com/hazyhaar/boletin/boletin/internal/search"
	"github.com/hazyhaar/boletin/boletin/internal/store"
)

// Searcher runs the live search. *search.Live satisfies it.
type Searcher interface {
	Search(ctx context.Context, q search.LiveQuery) (match.Results, error)
}

// Preferences lists due subscriptions. *store.Store satisfies it.
type Preferences interface {
	DuePreferences(ctx context.Context, sendTime, today string) ([]*store.Preference, error)
}

// Config configures the dispatcher.
type Config struct {
	Location *time.Location // send times are read in this zone. Default: UTC.
	From     string         // sender address
}

// Outcome is the result of one user's dispatch.
type Outcome struct {
	UserID        string
	Email         string
	Announcements int
	Mentions      int
	Err           error
}

// Dispatcher sends due digests.
type Dispatcher struct {
	prefs    Preferences
	searcher Searcher
	renderer *report.Renderer
	mailer   mail.Mailer
	cfg      Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// New creates a Dispatcher. logger and m may be nil.
func New(prefs Preferences, s Searcher, r *report.Renderer, mailer mail.Mailer, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{prefs: prefs, searcher: s, renderer: r, mailer: mailer, cfg: cfg, logger: logger, metrics: m}
}

// RunDue sends the digest of every subscription whose send time is the
// minute of now and whose expiry date is today or later. One user's failure
// does not stop the others. The error is reserved for the preference lookup.
func (d *Dispatcher) RunDue(ctx context.Context, now time.Time) ([]Outcome, error) {
	local := now.In(d.cfg.Location)
	today := local.Format(match.DateLayout)
	due, err := d.prefs.DuePreferences(ctx, local.Format("15:04"), today)
	if err != nil {
		return nil, fmt.Errorf("digest: due preferences: %w", err)
	}

	out := make([]Outcome, 0, len(due))
	for _, p := range due {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		o := d.send(ctx, p, local)
		if o.Err != nil {
			d.metrics.DigestSent("failed")
			d.logger.Warn("digest: failed", "user_id", p.UserID, "error", o.Err)
		} else {
			d.metrics.DigestSent("sent")
			d.logger.Info("digest: sent", "user_id", p.UserID,
				"announcements", o.Announcements, "mentions", o.Mentions)
		}
		out = append(out, o)
	}
	return out, nil
}

func (d *Dispatcher) send(ctx context.Context, p *store.Preference, local time.Time) Outcome {
	o := Outcome{UserID: p.UserID, Email: p.Email}
	res, err := d.searcher.Search(ctx, search.LiveQuery{
		Municipalities: p.Municipalities,
		Keywords:       p.Keywords,
		Sources:        p.Sources,
		Date:           local.Format(match.DateLayout),
	})
	if err != nil {
		o.Err = fmt.Errorf("search: %w", err)
		return o
	}
	o.Announcements, o.Mentions = res.Counts()

	meta := report.Meta{Mode: report.ModeLive, GeneratedAt: local}
	html, err := d.renderer.HTML(res, meta)
	if err != nil {
		o.Err = err
		return o
	}
	text, err := d.renderer.Markdown(res, meta)
	if err != nil {
		o.Err = err
		return o
	}
	err = d.mailer.Send(ctx, mail.Message{
		From:    d.cfg.From,
		To:      p.Email,
		Subject: Subject(local),
		Text:    text,
		HTML:    html,
	})
	if err != nil {
		o.Err = fmt.Errorf("send: %w", err)
	}
	return o
}

// Subject is the digest email subject for day t.
func Subject(t time.Time) string {
	return "Publicaciones del Día - " + t.Format("02/01/2006")
}
