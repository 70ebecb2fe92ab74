package config

// DefaultMimeTypes is the recorder encoding preference, best first.
var DefaultMimeTypes = []string{
	"video/webm;codecs=vp9,opus",
	"video/webm;codecs=vp8,opus",
	"video/webm",
	"video/mp4",
}

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	clipboard := "wl-copy --trim-newline"

	return Config{
		Backend: BackendConfig{
			URL:          "http://127.0.0.1:5000",
			QuestionPath: "/new-question",
			AnalyzePath:  "/analyze",
			LoginPath:    "/login",
			SetupPath:    "/setup",
			HealthPath:   "/login",
			TimeoutMS:    120000,
		},
		Capture: CaptureConfig{
			FFmpeg:           "ffmpeg",
			VideoFormat:      "v4l2",
			VideoDevice:      "/dev/video0",
			Width:            1280,
			Height:           720,
			FrameRate:        30,
			FacingMode:       "user",
			SampleRate:       44100,
			EchoCancellation: true,
			NoiseSuppression: true,
			VideoBitrate:     2500000,
			TimesliceMS:      1000,
			MimeTypes:        append([]string(nil), DefaultMimeTypes...),
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Upload: UploadConfig{MinBytes: 5000},
		Indicator: IndicatorConfig{
			Enable:         true,
			Backend:        "hypr",
			DesktopAppName: "rehearse-indicator",
			SoundEnable:    true,
			ErrorTimeoutMS: 1600,
		},
		Notify: NotifyConfig{
			Desktop:  false,
			MinLevel: "warning",
			AppName:  "rehearse",
		},
		History:   HistoryConfig{Enable: true},
		Clipboard: CommandConfig{Raw: clipboard, Argv: mustSplitCommand(clipboard)},
		Debug:     DebugConfig{},
	}
}
