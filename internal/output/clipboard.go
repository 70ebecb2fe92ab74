// Package output exports analysis summaries to the clipboard.
package output

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/rehearse/internal/config"
	"github.com/rbright/rehearse/internal/dashboard"
)

const clipboardTimeout = 2 * time.Second

// ErrNothingToCopy is returned when no analysis has been shown yet.
var ErrNothingToCopy = errors.New("no analysis to copy")

// Clipboard pipes text into the configured clipboard command.
type Clipboard struct {
	argv   []string
	logger *slog.Logger
}

// NewClipboard constructs a clipboard writer from clipboard_cmd.
func NewClipboard(cmd config.CommandConfig, logger *slog.Logger) *Clipboard {
	return &Clipboard{argv: cmd.Argv, logger: logger}
}

// CopyView writes the plain-text summary of view.
func (c *Clipboard) CopyView(ctx context.Context, view dashboard.View) error {
	if view.ScoreText == "" {
		return ErrNothingToCopy
	}
	return c.Copy(ctx, dashboard.Summary(view))
}

// Copy writes text to the clipboard.
func (c *Clipboard) Copy(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrNothingToCopy
	}

	ctx, cancel := context.WithTimeout(ctx, clipboardTimeout)
	defer cancel()
	if err := runCommandWithInput(ctx, c.argv, text); err != nil {
		if c.logger != nil {
			c.logger.Error("clipboard copy failed", "error", err.Error())
		}
		return fmt.Errorf("set clipboard: %w", err)
	}
	if c.logger != nil {
		c.logger.Info("analysis copied to clipboard", "bytes", len(text))
	}
	return nil
}

// runCommandWithInput executes argv and optionally writes input to stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}
