// CLAUDE:SUMMARY MCP tool surface: historical and live search, rendered reports, ingestion, archive stats and digest preferences.
package boletin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/boletin/kit"
)

// RegisterMCP registers all boletin tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerSearch(srv)
	s.registerLiveSearch(srv)
	s.registerReport(srv)
	s.registerIngest(srv)
	s.registerStats(srv)
	s.registerGetPreference(srv)
	s.registerPutPreference(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	sch := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		sch["required"] = required
	}
	return sch
}

func stringList(desc string) map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": desc}
}

var queryProperties = map[string]any{
	"municipalities": stringList("Municipality names, e.g. Mérida"),
	"keywords":       stringList("Keyword queries; words within one query must all appear"),
	"sources":        stringList("Gazettes to search: DOE, BOP, BOE. Empty means all"),
	"from":           map[string]any{"type": "string", "description": "First date, YYYYMMDD"},
	"to":             map[string]any{"type": "string", "description": "Last date, YYYYMMDD"},
}

// register wraps endpoint with request logging and exposes it as tool.
// outer middlewares run before the logging one.
func (s *Service) register(srv *mcp.Server, tool *mcp.Tool, endpoint kit.Endpoint, decode func(json.RawMessage) (any, error), outer ...kit.Middleware) {
	mw := kit.Logging(s.logger, tool.Name)
	if len(outer) > 0 {
		mw = kit.Chain(outer[0], append(outer[1:], mw)...)
	}
	kit.RegisterMCPTool(srv, tool, mw(endpoint), decode)
}

func (s *Service) registerSearch(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "boletin_search",
		Description: "Search archived DOE, BOP and BOE issues for notices addressed to municipalities and for keyword mentions",
		InputSchema: inputSchema(queryProperties, []string{"from", "to"}),
	}
	endpoint := func(ctx context.Context, r any) (any, error) {
		res, err := s.Search(ctx, r.(Query))
		if err != nil {
			return nil, err
		}
		return res.Ordered(), nil
	}
	s.register(srv, tool, endpoint, kit.DecodeJSON[Query]())
}

func (s *Service) registerLiveSearch(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "boletin_live_search",
		Description: "Fetch the issues published on one date (today by default) and search them",
		InputSchema: inputSchema(map[string]any{
			"municipalities": queryProperties["municipalities"],
			"keywords":       queryProperties["keywords"],
			"sources":        queryProperties["sources"],
			"date":           map[string]any{"type": "string", "description": "Publication date, YYYYMMDD. Default: today"},
		}, nil),
	}
	endpoint := func(ctx context.Context, r any) (any, error) {
		res, err := s.SearchLive(ctx, r.(LiveQuery))
		if err != nil {
			return nil, err
		}
		return res.Ordered(), nil
	}
	s.register(srv, tool, endpoint, kit.DecodeJSON[LiveQuery]())
}

func (s *Service) registerReport(srv *mcp.Server) {
	type req struct {
		Query
		Format string `json:"format"`
	}
	props := map[string]any{"format": map[string]any{"type": "string", "description": "html (default) or md"}}
	for k, v := range queryProperties {
		props[k] = v
	}
	tool := &mcp.Tool{
		Name:        "boletin_report",
		Description: "Run a historical search and render the summary report as HTML or Markdown",
		InputSchema: inputSchema(props, []string{"from", "to"}),
	}
	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(req)
		format, ok := ParseFormat(p.Format)
		if !ok {
			return nil, fmt.Errorf("%w: format %q", ErrInvalidInput, p.Format)
		}
		doc, res, err := s.Report(ctx, p.Query, format)
		if err != nil {
			return nil, err
		}
		announcements, mentions := res.Counts()
		return map[string]any{
			"format":        format,
			"report":        doc,
			"announcements": announcements,
			"mentions":      mentions,
		}, nil
	}
	s.register(srv, tool, endpoint, kit.DecodeJSON[req]())
}

func (s *Service) registerIngest(srv *mcp.Server) {
	type req struct {
		From    string   `json:"from"`
		To      string   `json:"to"`
		Sources []Source `json:"sources"`
	}
	tool := &mcp.Tool{
		Name:        "boletin_ingest",
		Description: "Archive the gazette issues of a date range that are not stored yet",
		InputSchema: inputSchema(map[string]any{
			"from":    queryProperties["from"],
			"to":      queryProperties["to"],
			"sources": queryProperties["sources"],
		}, []string{"from", "to"}),
	}
	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(req)
		stored, err := s.Ingest(ctx, p.From, p.To, p.Sources)
		if err != nil {
			return nil, err
		}
		return map[string]any{"stored": stored}, nil
	}
	s.register(srv, tool, endpoint, kit.DecodeJSON[req]())
}

func (s *Service) registerStats(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "boletin_stats",
		Description: "Archive statistics: snapshots per gazette, covered dates, subscriptions, searches",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	endpoint := func(ctx context.Context, _ any) (any, error) {
		return s.Stats(ctx)
	}
	s.register(srv, tool, endpoint, kit.DecodeJSON[struct{}]())
}

func (s *Service) registerGetPreference(srv *mcp.Server) {
	type req struct {
		UserID string `json:"user_id"`
	}
	tool := &mcp.Tool{
		Name:        "boletin_get_preference",
		Description: "Read the daily digest subscription of a user",
		InputSchema: inputSchema(map[string]any{
			"user_id": map[string]any{"type": "string", "description": "User ID"},
		}, []string{"user_id"}),
	}
	endpoint := func(ctx context.Context, r any) (any, error) {
		p, err := s.GetPreference(ctx, r.(req).UserID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, fmt.Errorf("no preference for user %q", r.(req).UserID)
		}
		return p, nil
	}
	s.register(srv, tool, endpoint, kit.DecodeJSON[req](), kit.Caller(func(r any) string { return r.(req).UserID }))
}

func (s *Service) registerPutPreference(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "boletin_put_preference",
		Description: "Create or replace the daily digest subscription of a user",
		InputSchema: inputSchema(map[string]any{
			"user_id":        map[string]any{"type": "string", "description": "User ID"},
			"email":          map[string]any{"type": "string", "description": "Recipient address"},
			"municipalities": queryProperties["municipalities"],
			"keywords":       queryProperties["keywords"],
			"sources":        queryProperties["sources"],
			"send_time":      map[string]any{"type": "string", "description": "Local send time, HH:MM"},
			"expires_on":     map[string]any{"type": "string", "description": "Last delivery date, YYYYMMDD"},
		}, []string{"user_id", "email", "send_time", "expires_on"}),
	}
	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(Preference)
		if err := s.PutPreference(ctx, &p); err != nil {
			return nil, err
		}
		return &p, nil
	}
	s.register(srv, tool, endpoint, kit.DecodeJSON[Preference](), kit.Caller(func(r any) string { return r.(Preference).UserID }))
}
