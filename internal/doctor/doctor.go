// Package doctor runs readiness diagnostics for config, capture tools, devices, and the backend.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/rehearse/internal/analysis"
	"github.com/rbright/rehearse/internal/config"
	"github.com/rbright/rehearse/internal/hypr"
	"github.com/rbright/rehearse/internal/media"
)

const checkTimeout = 3 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{}

	checks = append(checks, Check{
		Name:    "config",
		Pass:    true,
		Message: cfg.Describe(),
	})

	checks = append(checks, checkBinary(cfg.Config.Capture.FFmpeg, "recorder"))
	checks = append(checks, checkEncoding(ctx, cfg.Config.Capture))
	checks = append(checks, checkVideoDevice(cfg.Config.Capture.VideoDevice))
	checks = append(checks, checkAudioSelection(ctx, cfg.Config))
	checks = append(checks, checkCommand(cfg.Config.Clipboard.Argv, "clipboard_cmd"))

	if cfg.Config.Indicator.Enable && cfg.Config.Indicator.Backend == "hypr" {
		checks = append(checks, checkEnv("HYPRLAND_INSTANCE_SIGNATURE", func(v string) bool {
			return strings.TrimSpace(v) != ""
		}, "Hyprland session detected", "HYPRLAND_INSTANCE_SIGNATURE is empty"))
		checks = append(checks, checkHyprland(ctx))
	}

	checks = append(checks, checkBackendReady(ctx, cfg.Config.Backend))
	if strings.TrimSpace(cfg.Config.Backend.GRPCHealth) != "" {
		checks = append(checks, checkGRPCHealth(ctx, cfg.Config.Backend.GRPCHealth))
	}

	return Report{Checks: checks}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkEncoding reports which configured mime type ffmpeg can produce.
func checkEncoding(ctx context.Context, capture config.CaptureConfig) Check {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	enc, supported, err := media.Negotiate(ctx, capture.FFmpeg, capture.MimeTypes)
	if err != nil {
		return Check{Name: "capture.encoding", Pass: false, Message: err.Error()}
	}
	if !supported {
		return Check{
			Name:    "capture.encoding",
			Pass:    false,
			Message: fmt.Sprintf("ffmpeg supports none of the preferred types; would fall back to %q", enc.MimeType),
		}
	}
	return Check{
		Name:    "capture.encoding",
		Pass:    true,
		Message: fmt.Sprintf("%s (%s + %s)", enc.MimeType, enc.VideoCodec, enc.AudioCodec),
	}
}

// checkVideoDevice opens the camera node and reports the user-facing reason on failure.
func checkVideoDevice(path string) Check {
	if err := media.ProbeVideoDevice(path); err != nil {
		message := err.Error()
		var deviceErr *media.DeviceError
		if errors.As(err, &deviceErr) {
			message = fmt.Sprintf("%s (%v)", deviceErr.UserMessage(), deviceErr.Err)
		}
		return Check{Name: "capture.video_device", Pass: false, Message: message}
	}
	return Check{Name: "capture.video_device", Pass: true, Message: fmt.Sprintf("%s is accessible", path)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := media.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkHyprland confirms hyprctl can reach the running compositor.
func checkHyprland(ctx context.Context) Check {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	version, err := hypr.Version(ctx)
	if err != nil {
		return Check{Name: "hyprland", Pass: false, Message: err.Error()}
	}
	return Check{Name: "hyprland", Pass: true, Message: version}
}

// checkBackendReady probes the analysis backend's health path.
func checkBackendReady(ctx context.Context, cfg config.BackendConfig) Check {
	cfg.TimeoutMS = int(checkTimeout / time.Millisecond)
	client, err := analysis.New(cfg)
	if err != nil {
		return Check{Name: "backend.ready", Pass: false, Message: err.Error()}
	}

	url := strings.TrimRight(cfg.URL, "/") + cfg.HealthPath
	if err := client.Ready(ctx); err != nil {
		return Check{Name: "backend.ready", Pass: false, Message: fmt.Sprintf("%s: %v", url, err)}
	}
	return Check{Name: "backend.ready", Pass: true, Message: fmt.Sprintf("reachable at %s", url)}
}

// checkGRPCHealth runs the standard gRPC health check against target.
func checkGRPCHealth(ctx context.Context, target string) Check {
	if err := analysis.CheckGRPCHealth(ctx, target, "", checkTimeout); err != nil {
		return Check{Name: "backend.grpc_health", Pass: false, Message: err.Error()}
	}
	return Check{Name: "backend.grpc_health", Pass: true, Message: fmt.Sprintf("%s is SERVING", target)}
}
