package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/rbright/rehearse/internal/config"
	"github.com/rbright/rehearse/internal/dashboard"
	"github.com/rbright/rehearse/internal/indicator"
	"github.com/rbright/rehearse/internal/ipc"
	"github.com/rbright/rehearse/internal/logging"
	"github.com/rbright/rehearse/internal/notify"
	"github.com/rbright/rehearse/internal/output"
	"github.com/rbright/rehearse/internal/session"
	"github.com/rbright/rehearse/internal/tui"
)

// commandRecord owns the control socket and hosts the interactive session
// until the user quits.
func (r Runner) commandRecord(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		return r.fail(err)
	}

	listener, err := ipc.Acquire(ctx, socketPath, acquireProbe, acquireRetries, nil)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintf(r.Stderr, "error: %v; use `rehearse toggle` to control it\n", err)
			return 1
		}
		return r.fail(err)
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	hub := notify.NewHub(cfg.Notify, logger)
	bridge := tui.NewBridge()
	hub.Register(bridge)

	client, err := connectBackend(ctx, cfg, logger)
	if err != nil {
		var loginErr *backendLoginError
		if !errors.As(err, &loginErr) {
			return r.fail(err)
		}
		// recording still works; analysis will report the auth failure
		hub.Warning(loginErr.Error())
	}

	store, err := openHistory(cfg)
	if err != nil {
		logger.Error("open history failed", "error", err.Error())
		hub.Warning("History is unavailable: " + err.Error())
	}
	var saver session.HistorySaver
	if store != nil {
		defer func() { _ = store.Close() }()
		saver = store
	}

	dumpDir := ""
	if cfg.Debug.ClipDump {
		if dir, err := logging.StateDir(); err == nil {
			dumpDir = dir
		}
	}

	manager := session.NewManager(session.Options{
		Logger: logger,
		Opener: session.FFmpegOpener{
			Capture: cfg.Capture,
			Audio:   cfg.Audio,
			Logger:  logger,
		},
		Uploader:     client,
		Presenter:    dashboard.NewPresenter(bridge, hub),
		Notifier:     hub,
		Surface:      bridge,
		Indicator:    indicator.NewHyprNotify(cfg.Indicator, logger),
		History:      saver,
		Timeslice:    time.Duration(cfg.Capture.TimesliceMS) * time.Millisecond,
		MinClipBytes: cfg.Upload.MinBytes,
		DumpDir:      dumpDir,
		OnOutcome:    func(outcome session.Outcome) { logOutcome(logger, outcome) },
	})

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, manager)
	}()

	model := tui.New(ctx, manager, client, output.NewClipboard(cfg.Clipboard, logger)).WithNotifier(hub)
	runErr := tui.Run(ctx, model, bridge)
	if ctx.Err() != nil {
		runErr = nil
	}

	manager.Teardown()
	manager.Wait()
	serverCancel()
	if serverErr := <-serverErrCh; serverErr != nil {
		return r.fail(fmt.Errorf("ipc server failed: %w", serverErr))
	}
	if runErr != nil {
		return r.fail(runErr)
	}
	return 0
}

func logOutcome(logger *slog.Logger, outcome session.Outcome) {
	if logger == nil {
		return
	}
	fields := []any{
		"session_id", outcome.SessionID,
		"bytes", outcome.Bytes,
	}
	if outcome.Result != nil {
		fields = append(fields, "confidence_score", int(outcome.Result.ConfidenceScore))
	}

	if outcome.Err != nil {
		logger.Error("recording failed", append(fields, "error", outcome.Err.Error())...)
		return
	}
	logger.Info("recording analyzed", fields...)
}
