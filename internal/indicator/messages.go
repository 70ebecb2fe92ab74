package indicator

import (
	"os"
	"strings"
)

type locale string

const (
	localeEnglish locale = "en"
)

type messages struct {
	ready     string
	recording string
	analyzing string
	complete  string
	errorText string
}

var defaultMessages = indicatorMessages(localeEnglish)

func indicatorMessagesFromEnv() messages {
	return indicatorMessages(resolveLocale(os.Getenv("LANG")))
}

func resolveLocale(raw string) locale {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(raw, "en") {
		return localeEnglish
	}
	return localeEnglish
}

func indicatorMessages(tag locale) messages {
	switch tag {
	case localeEnglish:
		fallthrough
	default:
		return messages{
			ready:     "Ready",
			recording: "Recording...",
			analyzing: "Analyzing...",
			complete:  "Analysis Complete",
			errorText: "Error",
		}
	}
}

func (m messages) label(s Status) string {
	switch s.Kind {
	case StatusReady:
		return m.ready
	case StatusRecording:
		return m.recording
	case StatusAnalyzing:
		return m.analyzing
	case StatusComplete:
		return m.complete
	default:
		if s.Message != "" {
			return s.Message
		}
		return m.errorText
	}
}
