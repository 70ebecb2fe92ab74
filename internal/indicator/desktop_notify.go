package indicator

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

const (
	busDestination = "org.freedesktop.Notifications"
	busObject      = "/org/freedesktop/Notifications"
)

// Freedesktop urgency hint values.
const (
	urgencyLow      byte = 0
	urgencyNormal   byte = 1
	urgencyCritical byte = 2
)

// urgencyFor maps a status onto the notification urgency hint.
func urgencyFor(kind StatusKind) byte {
	switch kind {
	case StatusComplete:
		return urgencyLow
	case StatusError:
		return urgencyCritical
	default:
		return urgencyNormal
	}
}

// desktopNote is one replaceable freedesktop notification.
type desktopNote struct {
	App       string
	ReplaceID uint32
	Summary   string
	Urgency   byte
	TimeoutMS int
}

func (n desktopNote) args() []string {
	return []string{
		"--user", "call", busDestination, busObject, busDestination,
		"Notify", "susssasa{sv}i",
		n.App,
		strconv.FormatUint(uint64(n.ReplaceID), 10),
		"", // icon
		n.Summary,
		"", // body
		"0",
		"1", "urgency", "y", strconv.Itoa(int(n.Urgency)),
		strconv.Itoa(n.TimeoutMS),
	}
}

// desktopBus talks to the session notification daemon through busctl.
type desktopBus struct {
	run func(ctx context.Context, args ...string) ([]byte, error)
}

func newDesktopBus() desktopBus {
	return desktopBus{run: func(ctx context.Context, args ...string) ([]byte, error) {
		return exec.CommandContext(ctx, "busctl", args...).CombinedOutput()
	}}
}

// Notify shows note and returns the id the daemon assigned to it.
func (b desktopBus) Notify(ctx context.Context, note desktopNote) (uint32, error) {
	out, err := b.call(ctx, "desktop notify", note.args())
	if err != nil {
		return 0, err
	}

	fields := strings.Fields(out)
	if len(fields) < 2 || fields[0] != "u" {
		return 0, fmt.Errorf("desktop notify invalid response: %q", out)
	}
	id, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("desktop notify parse id %q: %w", fields[1], err)
	}
	return uint32(id), nil
}

// Close dismisses notification id.
func (b desktopBus) Close(ctx context.Context, id uint32) error {
	args := []string{
		"--user", "call", busDestination, busObject, busDestination,
		"CloseNotification", "u", strconv.FormatUint(uint64(id), 10),
	}
	_, err := b.call(ctx, "desktop dismiss", args)
	return err
}

func (b desktopBus) call(ctx context.Context, op string, args []string) (string, error) {
	out, err := b.run(ctx, args...)
	trimmed := strings.TrimSpace(string(out))
	if err != nil {
		if trimmed == "" {
			return "", fmt.Errorf("%s failed: %w", op, err)
		}
		return "", fmt.Errorf("%s failed: %w (%s)", op, err, trimmed)
	}
	return trimmed, nil
}
