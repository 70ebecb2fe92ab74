package config

import (
	"fmt"
	"net/url"
	"strings"
)

var (
	knownBranches = []string{"CSE", "ECE", "ME", "CE"}
	knownLevels   = []string{"Easy", "Medium", "Hard"}
	notifyLevels  = []string{"info", "success", "warning", "error"}
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	base := strings.TrimSpace(cfg.Backend.URL)
	if base == "" {
		return nil, fmt.Errorf("backend.url must not be empty")
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("backend.url is invalid: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("backend.url must use http or https")
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("backend.url must include a host")
	}

	routes := []struct {
		name  string
		value string
	}{
		{name: "backend.question_path", value: cfg.Backend.QuestionPath},
		{name: "backend.analyze_path", value: cfg.Backend.AnalyzePath},
		{name: "backend.login_path", value: cfg.Backend.LoginPath},
		{name: "backend.setup_path", value: cfg.Backend.SetupPath},
		{name: "backend.health_path", value: cfg.Backend.HealthPath},
	}
	for _, route := range routes {
		if !strings.HasPrefix(strings.TrimSpace(route.value), "/") {
			return nil, fmt.Errorf("%s must start with '/'", route.name)
		}
	}
	if cfg.Backend.TimeoutMS <= 0 {
		return nil, fmt.Errorf("backend.timeout_ms must be > 0")
	}
	if strings.TrimSpace(cfg.Backend.Email) != "" && cfg.Backend.Password == "" {
		warnings = append(warnings, Warning{Message: "backend.email is set without backend.password; login will be skipped"})
	}

	if strings.TrimSpace(cfg.Capture.FFmpeg) == "" {
		return nil, fmt.Errorf("capture.ffmpeg must not be empty")
	}
	if strings.TrimSpace(cfg.Capture.VideoDevice) == "" {
		return nil, fmt.Errorf("capture.video_device must not be empty")
	}
	if cfg.Capture.Width <= 0 || cfg.Capture.Height <= 0 {
		return nil, fmt.Errorf("capture.width and capture.height must be > 0")
	}
	if cfg.Capture.FrameRate <= 0 {
		return nil, fmt.Errorf("capture.frame_rate must be > 0")
	}
	if cfg.Capture.SampleRate <= 0 {
		return nil, fmt.Errorf("capture.sample_rate must be > 0")
	}
	if cfg.Capture.VideoBitrate <= 0 {
		return nil, fmt.Errorf("capture.video_bitrate must be > 0")
	}
	if cfg.Capture.TimesliceMS <= 0 {
		return nil, fmt.Errorf("capture.timeslice_ms must be > 0")
	}
	if len(cfg.Capture.MimeTypes) == 0 {
		return nil, fmt.Errorf("capture.mime_types must not be empty")
	}
	for _, mime := range cfg.Capture.MimeTypes {
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(mime)), "video/") {
			return nil, fmt.Errorf("capture.mime_types entry %q must be a video/* type", mime)
		}
	}

	if cfg.Upload.MinBytes < 0 {
		return nil, fmt.Errorf("upload.min_bytes must be >= 0")
	}

	if branch := strings.TrimSpace(cfg.Interview.Branch); branch != "" && !contains(knownBranches, branch) {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("interview.branch %q is not one of %s", branch, strings.Join(knownBranches, ", "))})
	}
	if level := strings.TrimSpace(cfg.Interview.Level); level != "" && !contains(knownLevels, level) {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("interview.level %q is not one of %s", level, strings.Join(knownLevels, ", "))})
	}
	if (cfg.Interview.Branch == "") != (cfg.Interview.Level == "") {
		warnings = append(warnings, Warning{Message: "interview.branch and interview.level must be set together; setup will be skipped"})
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Indicator.Backend))
	if backend == "" {
		return nil, fmt.Errorf("indicator.backend must not be empty")
	}
	if backend != "hypr" && backend != "desktop" {
		return nil, fmt.Errorf("indicator.backend must be one of: hypr, desktop")
	}
	if backend == "desktop" && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.backend=desktop")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}

	if !contains(notifyLevels, strings.ToLower(strings.TrimSpace(cfg.Notify.MinLevel))) {
		return nil, fmt.Errorf("notify.min_level must be one of: %s", strings.Join(notifyLevels, ", "))
	}

	if len(cfg.Clipboard.Argv) == 0 {
		return nil, fmt.Errorf("clipboard_cmd must not be empty")
	}

	return warnings, nil
}

func contains(values []string, want string) bool {
	for _, value := range values {
		if value == want {
			return true
		}
	}
	return false
}
