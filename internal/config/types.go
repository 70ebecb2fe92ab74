// Package config resolves, parses, validates, and defaults rehearse configuration.
package config

// Config is the fully materialized runtime configuration used by rehearse.
type Config struct {
	Backend   BackendConfig
	Capture   CaptureConfig
	Audio     AudioConfig
	Upload    UploadConfig
	Interview InterviewConfig
	Indicator IndicatorConfig
	Notify    NotifyConfig
	History   HistoryConfig
	Clipboard CommandConfig
	Debug     DebugConfig
}

// BackendConfig locates the analysis backend and its routes.
type BackendConfig struct {
	URL          string
	QuestionPath string
	AnalyzePath  string
	LoginPath    string
	SetupPath    string
	HealthPath   string
	GRPCHealth   string
	TimeoutMS    int
	HTTP2        bool
	Email        string
	Password     string
}

// CaptureConfig controls device constraints and recorder encoding.
type CaptureConfig struct {
	FFmpeg           string
	VideoFormat      string
	VideoDevice      string
	Width            int
	Height           int
	FrameRate        int
	FacingMode       string
	SampleRate       int
	EchoCancellation bool
	NoiseSuppression bool
	VideoBitrate     int
	TimesliceMS      int
	MimeTypes        []string
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string
	Fallback string
}

// UploadConfig controls client-side clip validation.
type UploadConfig struct {
	MinBytes int
}

// InterviewConfig selects the question track on backends that support setup.
type InterviewConfig struct {
	Branch string
	Level  string
}

// IndicatorConfig controls visual indicator and audio cue behavior.
type IndicatorConfig struct {
	Enable            bool
	Backend           string
	DesktopAppName    string
	SoundEnable       bool
	SoundStartFile    string
	SoundStopFile     string
	SoundCompleteFile string
	SoundErrorFile   string
	ErrorTimeoutMS    int
}

// NotifyConfig controls desktop delivery of user notifications.
type NotifyConfig struct {
	Desktop  bool
	MinLevel string
	AppName  string
}

// HistoryConfig controls the local analysis history database.
type HistoryConfig struct {
	Enable bool
	Path   string
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	ClipDump bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
