package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/boletin/boletin"
	"github.com/hazyhaar/boletin/kit"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the MCP endpoint and the scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				a.cfg.HTTP.Addr = addr
			}
			noScheduler, _ := cmd.Flags().GetBool("no-scheduler")

			srv := &http.Server{
				Addr:    a.cfg.HTTP.Addr,
				Handler: newRouter(a.svc, a.registry, a.logger),
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				a.logger.Info("http starting", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			if !noScheduler {
				g.Go(func() error { return a.svc.RunScheduler(ctx) })
			}
			return g.Wait()
		},
	}
	cmd.Flags().String("addr", "", "listen address (overrides http.addr and PORT)")
	cmd.Flags().Bool("no-scheduler", false, "do not run the periodic refresh and digest jobs")
	return cmd
}

// newRouter mounts the JSON API, Prometheus metrics and the MCP streamable
// HTTP endpoint.
func newRouter(svc *boletin.Service, reg *prometheus.Registry, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := kit.WithTransport(req.Context(), "http")
			ctx = kit.WithRequestID(ctx, middleware.GetReqID(req.Context()))
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	mcpSrv := newMCPServer(svc)
	r.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return mcpSrv }, nil))

	h := &handlers{svc: svc, logger: logger}
	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", h.stats)
		r.Get("/searches", h.searches)
		r.Post("/search", h.search)
		r.Post("/live", h.live)
		r.Post("/report", h.report)
		r.Post("/ingest", h.ingest)
		r.Post("/refresh", h.refresh)
		r.Post("/digest", h.digest)

		r.Get("/preferences", h.listPreferences)
		pref := r.With(h.caller)
		pref.Get("/preferences/{userID}", h.getPreference)
		pref.Put("/preferences/{userID}", h.putPreference)
		pref.Delete("/preferences/{userID}", h.deletePreference)
	})
	return r
}

type handlers struct {
	svc    *boletin.Service
	logger *slog.Logger
}

func (h *handlers) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, 200, stats)
}

func (h *handlers) searches(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.RecentSearches(r.Context(), queryInt(r, "limit", 20))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, 200, list)
}

func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	var q boletin.Query
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeError(w, 400, err)
		return
	}
	res, err := h.svc.Search(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, 200, map[string]any{"results": res.Ordered()})
}

func (h *handlers) live(w http.ResponseWriter, r *http.Request) {
	var q boletin.LiveQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeError(w, 400, err)
		return
	}
	res, err := h.svc.SearchLive(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, 200, map[string]any{"results": res.Ordered()})
}

func (h *handlers) report(w http.ResponseWriter, r *http.Request) {
	format, ok := boletin.ParseFormat(r.URL.Query().Get("format"))
	if !ok {
		writeJSON(w, 400, map[string]string{"error": "format must be html or md"})
		return
	}
	var q boletin.Query
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeError(w, 400, err)
		return
	}
	doc, _, err := h.svc.Report(r.Context(), q, format)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if format == boletin.FormatMarkdown {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	w.WriteHeader(200)
	w.Write([]byte(doc))
}

func (h *handlers) ingest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From    string           `json:"from"`
		To      string           `json:"to"`
		Sources []boletin.Source `json:"sources"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, err)
		return
	}
	stored, err := h.svc.Ingest(r.Context(), req.From, req.To, req.Sources)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, 200, map[string]any{"stored": stored})
}

func (h *handlers) refresh(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Refresh(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, 200, sum)
}

func (h *handlers) digest(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.DispatchDue(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, 200, digestView(out))
}

// caller tags requests addressed to one subscription with its user id and
// logs them.
func (h *handlers) caller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := kit.WithUserID(r.Context(), chi.URLParam(r, "userID"))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctx))
		h.logger.Info("preference request",
			"method", r.Method,
			"status", ww.Status(),
			"user_id", kit.GetUserID(ctx),
			"request_id", kit.GetRequestID(ctx),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (h *handlers) listPreferences(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListPreferences(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, 200, list)
}

func (h *handlers) getPreference(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetPreference(r.Context(), kit.GetUserID(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if p == nil {
		writeJSON(w, 404, map[string]string{"error": "preference not found"})
		return
	}
	writeJSON(w, 200, p)
}

func (h *handlers) putPreference(w http.ResponseWriter, r *http.Request) {
	var p boletin.Preference
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, 400, err)
		return
	}
	p.UserID = kit.GetUserID(r.Context())
	if err := h.svc.PutPreference(r.Context(), &p); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, 200, p)
}

func (h *handlers) deletePreference(w http.ResponseWriter, r *http.Request) {
	ok, err := h.svc.DeletePreference(r.Context(), kit.GetUserID(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, 404, map[string]string{"error": "preference not found"})
		return
	}
	writeJSON(w, 200, map[string]string{"status": "deleted"})
}

// fail maps service errors to HTTP status codes.
func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := 500
	switch {
	case errors.Is(err, boletin.ErrEmptyQuery), errors.Is(err, boletin.ErrInvalidInput):
		code = 400
	case errors.Is(err, boletin.ErrMailDisabled):
		code = 409
	case errors.Is(err, boletin.ErrStoreUnavailable):
		code = 503
	}
	if code >= 500 {
		attrs := []any{"path", r.URL.Path, "request_id", kit.GetRequestID(r.Context())}
		if id := kit.GetUserID(r.Context()); id != "" {
			attrs = append(attrs, "user_id", id)
		}
		h.logger.Error("request failed", append(attrs, "error", err)...)
	}
	writeError(w, code, err)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
