// Package mcpserver exposes analysis history and question fetching as MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rbright/rehearse/internal/dashboard"
	"github.com/rbright/rehearse/internal/history"
)

const defaultListLimit = 20

// Store is the read side of the history database.
type Store interface {
	List(ctx context.Context, limit int) ([]history.Record, error)
	Get(ctx context.Context, id string) (history.Record, error)
}

// QuestionSource fetches interview questions from the backend.
type QuestionSource interface {
	NewQuestion(ctx context.Context) (string, error)
}

type handlers struct {
	store     Store
	questions QuestionSource
	logger    *slog.Logger
}

// New registers the history tools on a fresh MCP server. questions may be nil,
// in which case new_question is not offered.
func New(store Store, questions QuestionSource, version string, logger *slog.Logger) *server.MCPServer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &handlers{store: store, questions: questions, logger: logger}

	s := server.NewMCPServer("rehearse", version, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List recent interview answer analyses, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of sessions to return (default 20).")),
	), h.listSessions)

	s.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Get the full analysis of one recorded answer."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Session ID from list_sessions.")),
	), h.getSession)

	if questions != nil {
		s.AddTool(mcp.NewTool("new_question",
			mcp.WithDescription("Fetch a new interview question from the analysis backend."),
		), h.newQuestion)
	}
	return s
}

// Serve runs s over stdio until ctx is cancelled or stdin closes.
func Serve(ctx context.Context, s *server.MCPServer, stdin io.Reader, stdout io.Writer) error {
	return server.NewStdioServer(s).Listen(ctx, stdin, stdout)
}

type sessionSummary struct {
	ID              string `json:"id"`
	Question        string `json:"question,omitempty"`
	ConfidenceScore int    `json:"confidence_score"`
	Tier            string `json:"tier"`
	MimeType        string `json:"mime_type"`
	Bytes           int    `json:"bytes"`
	AnalyzedAt      string `json:"analyzed_at"`
}

type sessionDetail struct {
	sessionSummary
	Notes             string   `json:"notes,omitempty"`
	StartedAt         string   `json:"started_at"`
	Transcript        string   `json:"transcript"`
	EyeContact        string   `json:"eye_contact"`
	FacialExpressions string   `json:"facial_expressions"`
	SpeakingStyle     string   `json:"speaking_style"`
	FeedbackPoints    []string `json:"feedback_points"`
}

func summarize(rec history.Record) sessionSummary {
	view := dashboard.Build(rec.Result, rec.AnalyzedAt)
	return sessionSummary{
		ID:              rec.ID,
		Question:        rec.Question,
		ConfidenceScore: view.Score,
		Tier:            string(view.Tier),
		MimeType:        rec.MimeType,
		Bytes:           rec.Bytes,
		AnalyzedAt:      rec.AnalyzedAt.Format(time.RFC3339),
	}
}

func (h *handlers) listSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", defaultListLimit)
	if limit <= 0 {
		limit = defaultListLimit
	}

	records, err := h.store.List(ctx, limit)
	if err != nil {
		h.logger.Error("mcp list sessions failed", "error", err.Error())
		return mcp.NewToolResultErrorFromErr("list sessions", err), nil
	}

	out := make([]sessionSummary, 0, len(records))
	for _, rec := range records {
		out = append(out, summarize(rec))
	}
	return jsonResult(out)
}

func (h *handlers) getSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rec, err := h.store.Get(ctx, id)
	if errors.Is(err, history.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("session %q not found", id)), nil
	}
	if err != nil {
		h.logger.Error("mcp get session failed", "session_id", id, "error", err.Error())
		return mcp.NewToolResultErrorFromErr("get session", err), nil
	}

	view := dashboard.Build(rec.Result, rec.AnalyzedAt)
	return jsonResult(sessionDetail{
		sessionSummary:    summarize(rec),
		Notes:             rec.Notes,
		StartedAt:         rec.StartedAt.Format(time.RFC3339),
		Transcript:        view.Transcript,
		EyeContact:        view.EyeContact,
		FacialExpressions: view.FacialExpressions,
		SpeakingStyle:     view.SpeakingStyle,
		FeedbackPoints:    view.Feedback,
	})
}

func (h *handlers) newQuestion(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := h.questions.NewQuestion(ctx)
	if err != nil {
		h.logger.Error("mcp new question failed", "error", err.Error())
		return mcp.NewToolResultErrorFromErr("Failed to get new question", err), nil
	}
	return mcp.NewToolResultText(question), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
