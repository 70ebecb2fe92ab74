package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rbright/rehearse/internal/analysis"
	"github.com/rbright/rehearse/internal/config"
	"github.com/rbright/rehearse/internal/dashboard"
	"github.com/rbright/rehearse/internal/history"
	"github.com/rbright/rehearse/internal/mcpserver"
	"github.com/rbright/rehearse/internal/session"
	"github.com/rbright/rehearse/internal/version"
)

const renderWidth = 80

// backendLoginError marks a reachable client whose login or setup failed.
type backendLoginError struct {
	err error
}

func (e *backendLoginError) Error() string {
	return fmt.Sprintf("backend login failed: %v", e.err)
}

func (e *backendLoginError) Unwrap() error {
	return e.err
}

// connectBackend builds the analysis client and, when credentials are
// configured, logs in and selects the interview track. A login failure
// still returns the client.
func connectBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (*analysis.Client, error) {
	client, err := analysis.New(cfg.Backend)
	if err != nil {
		return nil, err
	}
	if cfg.Backend.Email == "" || cfg.Backend.Password == "" {
		return client, nil
	}

	if err := client.Login(ctx, cfg.Backend.Email, cfg.Backend.Password); err != nil {
		logger.Error("backend login failed", "error", err.Error())
		return client, &backendLoginError{err: err}
	}
	if cfg.Interview.Branch != "" || cfg.Interview.Level != "" {
		if err := client.Setup(ctx, cfg.Interview.Branch, cfg.Interview.Level); err != nil {
			logger.Error("backend setup failed", "error", err.Error())
			return client, &backendLoginError{err: err}
		}
	}
	logger.Info("backend session ready", "url", cfg.Backend.URL)
	return client, nil
}

// openHistory returns nil when history is disabled.
func openHistory(cfg config.Config) (*history.Store, error) {
	if !cfg.History.Enable {
		return nil, nil
	}
	path := strings.TrimSpace(cfg.History.Path)
	if path == "" {
		defaultPath, err := history.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}
	return history.Open(path)
}

// mimeForPath infers the upload type from the file extension.
func mimeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".m4v":
		return "video/mp4"
	default:
		return "video/webm"
	}
}

func (r Runner) commandQuestion(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	client, err := connectBackend(ctx, cfg, logger)
	if err != nil {
		return r.fail(err)
	}
	question, err := client.NewQuestion(ctx)
	if err != nil {
		return r.fail(fmt.Errorf("get new question: %w", err))
	}
	fmt.Fprintln(r.Stdout, question)
	return 0
}

// commandAnalyze uploads an existing recording, prints the dashboard, and
// records the result in history.
func (r Runner) commandAnalyze(ctx context.Context, cfg config.Config, logger *slog.Logger, path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return r.fail(fmt.Errorf("read recording: %w", err))
	}
	if len(data) < cfg.Upload.MinBytes {
		return r.fail(fmt.Errorf("%s (%d bytes)", session.MsgTooShort, len(data)))
	}

	client, err := connectBackend(ctx, cfg, logger)
	if err != nil {
		return r.fail(err)
	}

	clip := analysis.Clip{Data: data, MimeType: mimeForPath(path)}
	startedAt := time.Now()
	result, err := client.Analyze(ctx, clip)
	if err != nil {
		logger.Error("analyze file failed", "path", path, "bytes", len(data), "error", err.Error())
		return r.fail(fmt.Errorf("analysis failed: %w", err))
	}
	analyzedAt := time.Now()

	view := dashboard.Build(result, analyzedAt)
	fmt.Fprintln(r.Stdout, dashboard.Render(view, view.BarFill, renderWidth))

	store, err := openHistory(cfg)
	if err != nil {
		logger.Error("open history failed", "error", err.Error())
		fmt.Fprintf(r.Stderr, "warning: history unavailable: %v\n", err)
		return 0
	}
	if store == nil {
		return 0
	}
	defer func() { _ = store.Close() }()

	rec := history.Record{
		ID:         uuid.NewString(),
		MimeType:   clip.MimeType,
		Bytes:      len(data),
		StartedAt:  startedAt,
		AnalyzedAt: analyzedAt,
		Result:     result,
	}
	if err := store.Save(ctx, rec); err != nil {
		logger.Error("save history failed", "session_id", rec.ID, "error", err.Error())
		fmt.Fprintf(r.Stderr, "warning: save history: %v\n", err)
	}
	logger.Info("file analyzed",
		"session_id", rec.ID,
		"bytes", rec.Bytes,
		"mime_type", rec.MimeType,
		"duration_ms", analyzedAt.Sub(startedAt).Milliseconds(),
	)
	return 0
}

func (r Runner) commandHistory(ctx context.Context, cfg config.Config, limit int) int {
	store, err := openHistory(cfg)
	if err != nil {
		return r.fail(err)
	}
	if store == nil {
		fmt.Fprintln(r.Stderr, "error: history is disabled (history.enable = false)")
		return 1
	}
	defer func() { _ = store.Close() }()

	records, err := store.List(ctx, limit)
	if err != nil {
		return r.fail(err)
	}
	if len(records) == 0 {
		fmt.Fprintln(r.Stdout, "no analyses recorded yet")
		return 0
	}

	for _, rec := range records {
		view := dashboard.Build(rec.Result, rec.AnalyzedAt)
		question := rec.Question
		if question == "" {
			question = "-"
		}
		fmt.Fprintf(r.Stdout, "%s  %s  %4s  %-14s  %s\n",
			rec.ID,
			rec.AnalyzedAt.Local().Format("2006-01-02 15:04"),
			view.ScoreText,
			view.Tier,
			question,
		)
	}
	return 0
}

// commandMCP serves history over stdio. The question tool is offered only
// when the backend is reachable enough to build a client.
func (r Runner) commandMCP(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	store, err := openHistory(cfg)
	if err != nil {
		return r.fail(err)
	}
	if store == nil {
		fmt.Fprintln(r.Stderr, "error: history is disabled (history.enable = false)")
		return 1
	}
	defer func() { _ = store.Close() }()

	var questions mcpserver.QuestionSource
	if client, err := connectBackend(ctx, cfg, logger); client != nil {
		if err != nil {
			logger.Warn("mcp backend login failed", "error", err.Error())
		}
		questions = client
	}

	s := mcpserver.New(store, questions, version.Version, logger)
	stdin := r.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	if err := mcpserver.Serve(ctx, s, stdin, r.Stdout); err != nil && ctx.Err() == nil && !errors.Is(err, io.EOF) {
		return r.fail(fmt.Errorf("mcp server: %w", err))
	}
	return 0
}
