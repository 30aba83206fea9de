// Command voicetext-mcp exposes the VoiceText dictation history to MCP
// clients over stdio. The database is opened read-only.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jwulff/voicetext/internal/config"
	"github.com/jwulff/voicetext/internal/db"
	"github.com/jwulff/voicetext/internal/settings"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

var version = "dev"

const defaultListLimit = 10

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// stdout carries the protocol; diagnostics go to stderr.
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	if cfg.Store.Driver != config.StoreSQLite {
		logger.Fatal().Str("driver", cfg.Store.Driver).Msg("history requires the sqlite store")
	}

	store, err := db.OpenReadOnly(context.Background(), cfg.Store.Path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Store.Path).Msg("open database")
	}
	defer store.Close()

	h := &handlers{store: store, settings: settings.New(store, logger)}
	s := server.NewMCPServer("voicetext", version, server.WithToolCapabilities(false))
	h.register(s)

	if err := server.ServeStdio(s); err != nil {
		logger.Error().Err(err).Msg("serve")
		os.Exit(1)
	}
}

type handlers struct {
	store    *db.Store
	settings *settings.Store
}

func (h *handlers) register(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List recent dictation sessions, newest first"),
		mcp.WithNumber("limit", mcp.Description("Maximum number of sessions (default 10)")),
	), h.listSessions)

	s.AddTool(mcp.NewTool("get_transcript",
		mcp.WithDescription("Get the finalized transcript of a dictation session"),
		mcp.WithString("session_id", mcp.Description("Session ID; the latest session when omitted")),
	), h.getTranscript)

	s.AddTool(mcp.NewTool("get_autosave",
		mcp.WithDescription("Get the auto-saved transcript buffer"),
	), h.getAutosave)
}

func (h *handlers) listSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", defaultListLimit)
	if limit <= 0 {
		limit = defaultListLimit
	}
	sessions, err := h.store.Sessions(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list sessions: %v", err)), nil
	}
	if len(sessions) == 0 {
		return mcp.NewToolResultText("No sessions recorded."), nil
	}
	var b strings.Builder
	for _, sess := range sessions {
		fmt.Fprintf(&b, "%s  %s  %s  %s  %s words", sess.ID, humanize.Time(sess.StartedAt), sess.Locale, sess.Status, humanize.Comma(int64(sess.Words)))
		if sess.WPM > 0 {
			fmt.Fprintf(&b, "  %d wpm", sess.WPM)
		}
		if sess.ErrorKind != "" {
			fmt.Fprintf(&b, "  (%s)", sess.ErrorKind)
		}
		b.WriteByte('\n')
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (h *handlers) getTranscript(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("session_id", "")

	var (
		sess *db.Session
		err  error
	)
	if id == "" {
		sess, err = h.store.LatestSession(ctx)
	} else {
		sess, err = h.store.GetSession(ctx, id)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get session: %v", err)), nil
	}
	if sess == nil {
		return mcp.NewToolResultError("session not found"), nil
	}

	segments, err := h.store.SegmentsForSession(ctx, sess.ID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get segments: %v", err)), nil
	}
	texts := make([]string, 0, len(segments))
	for _, seg := range segments {
		texts = append(texts, seg.Text)
	}
	return mcp.NewToolResultText(strings.Join(texts, " ")), nil
}

func (h *handlers) getAutosave(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, ok, err := h.settings.LoadAutosave(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultText("No auto-saved text."), nil
	}
	return mcp.NewToolResultText(text), nil
}
