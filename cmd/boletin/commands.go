package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/boletin/boletin"
	"github.com/hazyhaar/boletin/kit"
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Archive the issues of a date range",
		Long: `Fetch and archive every issue in [--from, --to] that is not stored yet.
Dates are YYYYMMDD. Pages that cannot be fetched are logged and skipped.

Example:
  boletin ingest --from 20240101 --to 20240131 --sources DOE,BOP`,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")
			rawSources, _ := cmd.Flags().GetStringSlice("sources")
			if from == "" {
				return fmt.Errorf("--from is required")
			}
			if to == "" {
				to = from
			}
			sources, err := parseSources(rawSources)
			if err != nil {
				return err
			}

			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := kit.WithTransport(cmd.Context(), "cli")
			stored, err := a.svc.Ingest(ctx, from, to, sources)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"stored": stored})
		},
	}
	cmd.Flags().String("from", "", "first date, YYYYMMDD")
	cmd.Flags().String("to", "", "last date, YYYYMMDD (default: --from)")
	cmd.Flags().StringSlice("sources", nil, "gazettes: DOE, BOP, BOE (default: all)")
	return cmd
}

func refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Archive the last days for every gazette and prune old snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			sum, err := a.svc.Refresh(kit.WithTransport(cmd.Context(), "cli"))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), sum)
		},
	}
}

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search for municipality notices and keyword mentions",
		Long: `Search the archive over [--from, --to], or with --live fetch the issues
published on --date (default: today) and search them.

Each --keyword is one query; its words must all appear in the same text.

Example:
  boletin search --municipality Mérida --keyword "ayudas pymes" --from 20240101 --to 20240131
  boletin search --live --municipality Badajoz --format md`,
		RunE: func(cmd *cobra.Command, args []string) error {
			munis, _ := cmd.Flags().GetStringSlice("municipality")
			keywords, _ := cmd.Flags().GetStringArray("keyword")
			rawSources, _ := cmd.Flags().GetStringSlice("sources")
			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")
			live, _ := cmd.Flags().GetBool("live")
			date, _ := cmd.Flags().GetString("date")
			rawFormat, _ := cmd.Flags().GetString("format")

			sources, err := parseSources(rawSources)
			if err != nil {
				return err
			}
			var format boletin.Format
			if rawFormat != "json" {
				f, ok := boletin.ParseFormat(rawFormat)
				if !ok {
					return fmt.Errorf("unknown format %q: want json, html or md", rawFormat)
				}
				format = f
			}

			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := kit.WithTransport(cmd.Context(), "cli")

			var res boletin.Results
			if live {
				res, err = a.svc.SearchLive(ctx, boletin.LiveQuery{
					Municipalities: munis, Keywords: keywords, Sources: sources, Date: date,
				})
			} else {
				if to == "" {
					to = from
				}
				res, err = a.svc.Search(ctx, boletin.Query{
					Municipalities: munis, Keywords: keywords, Sources: sources, From: from, To: to,
				})
			}
			if err != nil {
				return err
			}

			if format == "" {
				return printJSON(cmd.OutOrStdout(), res.Ordered())
			}
			doc, err := a.svc.Render(res, live, format)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), doc)
			return err
		},
	}
	cmd.Flags().StringSlice("municipality", nil, "municipality names")
	cmd.Flags().StringArray("keyword", nil, "keyword query (repeatable)")
	cmd.Flags().StringSlice("sources", nil, "gazettes: DOE, BOP, BOE (default: all)")
	cmd.Flags().String("from", "", "first date, YYYYMMDD")
	cmd.Flags().String("to", "", "last date, YYYYMMDD (default: --from)")
	cmd.Flags().Bool("live", false, "fetch and search the issues of --date instead of the archive")
	cmd.Flags().String("date", "", "publication date for --live, YYYYMMDD (default: today)")
	cmd.Flags().String("format", "json", "output: json, html or md")
	return cmd
}

func pruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete snapshots older than --days days",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			days, _ := cmd.Flags().GetInt("days")
			if days == 0 {
				days = a.cfg.Ingest.RetentionDays
			}
			n, err := a.svc.Prune(cmd.Context(), days)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"pruned": n, "days": days})
		},
	}
	cmd.Flags().Int("days", 0, "retention in days (default: ingest.retention_days)")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show archive statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			stats, err := a.svc.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}
}

func digestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "digest",
		Short: "Send the digests due at the current minute",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			out, err := a.svc.DispatchDue(kit.WithTransport(cmd.Context(), "cli"))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), digestView(out))
		},
	}
}

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the boletin tools over MCP on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			srv := newMCPServer(a.svc)
			a.logger.Info("mcp stdio starting")
			return srv.Run(cmd.Context(), &mcp.StdioTransport{})
		},
	}
}

func newMCPServer(svc *boletin.Service) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "boletin", Version: version}, nil)
	svc.RegisterMCP(srv)
	return srv
}

type digestResult struct {
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	Announcements int    `json:"announcements"`
	Mentions      int    `json:"mentions"`
	Error         string `json:"error,omitempty"`
}

func digestView(out []boletin.DigestOutcome) []digestResult {
	view := make([]digestResult, 0, len(out))
	for _, o := range out {
		r := digestResult{UserID: o.UserID, Email: o.Email, Announcements: o.Announcements, Mentions: o.Mentions}
		if o.Err != nil {
			r.Error = o.Err.Error()
		}
		view = append(view, r)
	}
	return view
}

func printJSON(w io.Writer, v any) error {
	if w == nil {
		w = os.Stdout
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
