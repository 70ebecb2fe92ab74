package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// passwordEnv overrides backend.password so secrets can stay out of the file.
const passwordEnv = "REHEARSE_PASSWORD"

type fileConfig struct {
	Backend   *fileBackend   `json:"backend" yaml:"backend"`
	Capture   *fileCapture   `json:"capture" yaml:"capture"`
	Audio     *fileAudio     `json:"audio" yaml:"audio"`
	Upload    *fileUpload    `json:"upload" yaml:"upload"`
	Interview *fileInterview `json:"interview" yaml:"interview"`
	Indicator *fileIndicator `json:"indicator" yaml:"indicator"`
	Notify    *fileNotify    `json:"notify" yaml:"notify"`
	History   *fileHistory   `json:"history" yaml:"history"`

	ClipboardCmd *string    `json:"clipboard_cmd" yaml:"clipboard_cmd"`
	Debug        *fileDebug `json:"debug" yaml:"debug"`
}

type fileBackend struct {
	URL          *string `json:"url" yaml:"url"`
	QuestionPath *string `json:"question_path" yaml:"question_path"`
	AnalyzePath  *string `json:"analyze_path" yaml:"analyze_path"`
	LoginPath    *string `json:"login_path" yaml:"login_path"`
	SetupPath    *string `json:"setup_path" yaml:"setup_path"`
	HealthPath   *string `json:"health_path" yaml:"health_path"`
	GRPCHealth   *string `json:"grpc_health" yaml:"grpc_health"`
	TimeoutMS    *int    `json:"timeout_ms" yaml:"timeout_ms"`
	HTTP2        *bool   `json:"http2" yaml:"http2"`
	Email        *string `json:"email" yaml:"email"`
	Password     *string `json:"password" yaml:"password"`
}

type fileCapture struct {
	FFmpeg           *string     `json:"ffmpeg" yaml:"ffmpeg"`
	VideoFormat      *string     `json:"video_format" yaml:"video_format"`
	VideoDevice      *string     `json:"video_device" yaml:"video_device"`
	Width            *int        `json:"width" yaml:"width"`
	Height           *int        `json:"height" yaml:"height"`
	FrameRate        *int        `json:"frame_rate" yaml:"frame_rate"`
	FacingMode       *string     `json:"facing_mode" yaml:"facing_mode"`
	SampleRate       *int        `json:"sample_rate" yaml:"sample_rate"`
	EchoCancellation *bool       `json:"echo_cancellation" yaml:"echo_cancellation"`
	NoiseSuppression *bool       `json:"noise_suppression" yaml:"noise_suppression"`
	VideoBitrate     *int        `json:"video_bitrate" yaml:"video_bitrate"`
	TimesliceMS      *int        `json:"timeslice_ms" yaml:"timeslice_ms"`
	MimeTypes        *stringList `json:"mime_types" yaml:"mime_types"`
}

type fileAudio struct {
	Input    *string `json:"input" yaml:"input"`
	Fallback *string `json:"fallback" yaml:"fallback"`
}

type fileUpload struct {
	MinBytes *int `json:"min_bytes" yaml:"min_bytes"`
}

type fileInterview struct {
	Branch *string `json:"branch" yaml:"branch"`
	Level  *string `json:"level" yaml:"level"`
}

type fileIndicator struct {
	Enable            *bool   `json:"enable" yaml:"enable"`
	Backend           *string `json:"backend" yaml:"backend"`
	DesktopAppName    *string `json:"desktop_app_name" yaml:"desktop_app_name"`
	SoundEnable       *bool   `json:"sound_enable" yaml:"sound_enable"`
	SoundStartFile    *string `json:"sound_start_file" yaml:"sound_start_file"`
	SoundStopFile     *string `json:"sound_stop_file" yaml:"sound_stop_file"`
	SoundCompleteFile *string `json:"sound_complete_file" yaml:"sound_complete_file"`
	SoundErrorFile   *string `json:"sound_error_file" yaml:"sound_error_file"`
	ErrorTimeoutMS    *int    `json:"error_timeout_ms" yaml:"error_timeout_ms"`
}

type fileNotify struct {
	Desktop  *bool   `json:"desktop" yaml:"desktop"`
	MinLevel *string `json:"min_level" yaml:"min_level"`
	AppName  *string `json:"app_name" yaml:"app_name"`
}

type fileHistory struct {
	Enable *bool   `json:"enable" yaml:"enable"`
	Path   *string `json:"path" yaml:"path"`
}

type fileDebug struct {
	ClipDump *bool `json:"clip_dump" yaml:"clip_dump"`
}

// stringList accepts either a list or a comma-delimited string.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = splitCommaList(single)
		return nil
	}

	return fmt.Errorf("expected string array or comma-delimited string")
}

func (l *stringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*l = list
		return nil
	case yaml.ScalarNode:
		*l = splitCommaList(value.Value)
		return nil
	default:
		return fmt.Errorf("line %d: expected string list or comma-delimited string", value.Line)
	}
}

func splitCommaList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func (payload fileConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if b := payload.Backend; b != nil {
		setString(&cfg.Backend.URL, b.URL)
		setString(&cfg.Backend.QuestionPath, b.QuestionPath)
		setString(&cfg.Backend.AnalyzePath, b.AnalyzePath)
		setString(&cfg.Backend.LoginPath, b.LoginPath)
		setString(&cfg.Backend.SetupPath, b.SetupPath)
		setString(&cfg.Backend.HealthPath, b.HealthPath)
		setString(&cfg.Backend.GRPCHealth, b.GRPCHealth)
		setInt(&cfg.Backend.TimeoutMS, b.TimeoutMS)
		setBool(&cfg.Backend.HTTP2, b.HTTP2)
		setString(&cfg.Backend.Email, b.Email)
		if b.Password != nil {
			cfg.Backend.Password = *b.Password
			warnings = append(warnings, Warning{Message: fmt.Sprintf("backend.password stored in config; prefer %s", passwordEnv)})
		}
	}
	if secret := os.Getenv(passwordEnv); secret != "" {
		cfg.Backend.Password = secret
	}

	if c := payload.Capture; c != nil {
		setString(&cfg.Capture.FFmpeg, c.FFmpeg)
		setString(&cfg.Capture.VideoFormat, c.VideoFormat)
		setString(&cfg.Capture.VideoDevice, c.VideoDevice)
		setInt(&cfg.Capture.Width, c.Width)
		setInt(&cfg.Capture.Height, c.Height)
		setInt(&cfg.Capture.FrameRate, c.FrameRate)
		setString(&cfg.Capture.FacingMode, c.FacingMode)
		setInt(&cfg.Capture.SampleRate, c.SampleRate)
		setBool(&cfg.Capture.EchoCancellation, c.EchoCancellation)
		setBool(&cfg.Capture.NoiseSuppression, c.NoiseSuppression)
		setInt(&cfg.Capture.VideoBitrate, c.VideoBitrate)
		setInt(&cfg.Capture.TimesliceMS, c.TimesliceMS)
		if c.MimeTypes != nil {
			cfg.Capture.MimeTypes = cfg.Capture.MimeTypes[:0]
			for _, mime := range *c.MimeTypes {
				if mime = strings.TrimSpace(mime); mime != "" {
					cfg.Capture.MimeTypes = append(cfg.Capture.MimeTypes, mime)
				}
			}
		}
	}

	if a := payload.Audio; a != nil {
		setString(&cfg.Audio.Input, a.Input)
		setString(&cfg.Audio.Fallback, a.Fallback)
	}

	if payload.Upload != nil {
		setInt(&cfg.Upload.MinBytes, payload.Upload.MinBytes)
	}

	if i := payload.Interview; i != nil {
		setString(&cfg.Interview.Branch, i.Branch)
		setString(&cfg.Interview.Level, i.Level)
	}

	if ind := payload.Indicator; ind != nil {
		setBool(&cfg.Indicator.Enable, ind.Enable)
		setString(&cfg.Indicator.Backend, ind.Backend)
		setString(&cfg.Indicator.DesktopAppName, ind.DesktopAppName)
		setBool(&cfg.Indicator.SoundEnable, ind.SoundEnable)
		setString(&cfg.Indicator.SoundStartFile, ind.SoundStartFile)
		setString(&cfg.Indicator.SoundStopFile, ind.SoundStopFile)
		setString(&cfg.Indicator.SoundCompleteFile, ind.SoundCompleteFile)
		setString(&cfg.Indicator.SoundErrorFile, ind.SoundErrorFile)
		setInt(&cfg.Indicator.ErrorTimeoutMS, ind.ErrorTimeoutMS)
	}

	if n := payload.Notify; n != nil {
		setBool(&cfg.Notify.Desktop, n.Desktop)
		if n.MinLevel != nil {
			cfg.Notify.MinLevel = strings.ToLower(strings.TrimSpace(*n.MinLevel))
		}
		setString(&cfg.Notify.AppName, n.AppName)
	}

	if h := payload.History; h != nil {
		setBool(&cfg.History.Enable, h.Enable)
		setString(&cfg.History.Path, h.Path)
	}

	if payload.ClipboardCmd != nil {
		raw := *payload.ClipboardCmd
		argv, err := SplitCommand(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid clipboard_cmd: %w", err)
		}
		cfg.Clipboard = CommandConfig{Raw: raw, Argv: argv}
	}

	if payload.Debug != nil {
		setBool(&cfg.Debug.ClipDump, payload.Debug.ClipDump)
	}

	return warnings, nil
}

func setString(dst *string, value *string) {
	if value != nil {
		*dst = strings.TrimSpace(*value)
	}
}

func setInt(dst *int, value *int) {
	if value != nil {
		*dst = *value
	}
}

func setBool(dst *bool, value *bool) {
	if value != nil {
		*dst = *value
	}
}
