package media

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// FallbackMimeType types a clip whose recorder did not report one.
const FallbackMimeType = "video/webm"

// Encoding is a recorder output format resolved from a MIME type.
type Encoding struct {
	MimeType   string
	Muxer      string
	Extension  string
	VideoCodec string
	AudioCodec string
}

// Encoders lists the ffmpeg encoders the encoding requires.
func (e Encoding) Encoders() []string {
	return []string{e.VideoCodec, e.AudioCodec}
}

// ParseEncoding maps a container/codecs MIME type to ffmpeg muxer and encoders.
func ParseEncoding(mime string) (Encoding, error) {
	base, params, _ := strings.Cut(strings.TrimSpace(mime), ";")
	base = strings.ToLower(strings.TrimSpace(base))

	codecs := make([]string, 0, 2)
	if params != "" {
		key, value, ok := strings.Cut(strings.TrimSpace(params), "=")
		if !ok || strings.ToLower(strings.TrimSpace(key)) != "codecs" {
			return Encoding{}, fmt.Errorf("unsupported mime parameter in %q", mime)
		}
		for _, codec := range strings.Split(strings.Trim(value, `"' `), ",") {
			if codec = strings.ToLower(strings.TrimSpace(codec)); codec != "" {
				codecs = append(codecs, codec)
			}
		}
	}

	enc := Encoding{MimeType: strings.TrimSpace(mime)}
	switch base {
	case "video/webm":
		enc.Muxer, enc.Extension = "webm", "webm"
		enc.VideoCodec, enc.AudioCodec = "libvpx", "libopus"
	case "video/mp4":
		enc.Muxer, enc.Extension = "mp4", "mp4"
		enc.VideoCodec, enc.AudioCodec = "libx264", "aac"
	default:
		return Encoding{}, fmt.Errorf("unsupported container %q", base)
	}

	for _, codec := range codecs {
		switch {
		case codec == "vp9" || strings.HasPrefix(codec, "vp09"):
			enc.VideoCodec = "libvpx-vp9"
		case codec == "vp8":
			enc.VideoCodec = "libvpx"
		case strings.HasPrefix(codec, "avc1") || codec == "h264":
			enc.VideoCodec = "libx264"
		case codec == "opus":
			enc.AudioCodec = "libopus"
		case codec == "vorbis":
			enc.AudioCodec = "libvorbis"
		case strings.HasPrefix(codec, "mp4a") || codec == "aac":
			enc.AudioCodec = "aac"
		default:
			return Encoding{}, fmt.Errorf("unsupported codec %q in %q", codec, mime)
		}
	}
	return enc, nil
}

// Capabilities is the set of encoders and muxers an ffmpeg build offers.
type Capabilities struct {
	Encoders map[string]bool
	Muxers   map[string]bool
}

// Supports reports whether every component of enc is available.
func (c Capabilities) Supports(enc Encoding) bool {
	if !c.Muxers[enc.Muxer] {
		return false
	}
	for _, name := range enc.Encoders() {
		if !c.Encoders[name] {
			return false
		}
	}
	return true
}

// Select returns the first supported candidate. When none is supported the
// last parseable candidate is returned with ok=false.
func (c Capabilities) Select(candidates []string) (Encoding, bool, error) {
	var last Encoding
	found := false
	for _, mime := range candidates {
		enc, err := ParseEncoding(mime)
		if err != nil {
			continue
		}
		if c.Supports(enc) {
			return enc, true, nil
		}
		last, found = enc, true
	}
	if !found {
		return Encoding{}, false, fmt.Errorf("no recognizable mime type in %v", candidates)
	}
	return last, false, nil
}

// ProbeCapabilities asks ffmpeg for its encoder and muxer lists.
func ProbeCapabilities(ctx context.Context, ffmpeg string) (Capabilities, error) {
	encoders, err := ffmpegList(ctx, ffmpeg, "-encoders")
	if err != nil {
		return Capabilities{}, err
	}
	muxers, err := ffmpegList(ctx, ffmpeg, "-muxers")
	if err != nil {
		return Capabilities{}, err
	}
	return Capabilities{Encoders: encoders, Muxers: muxers}, nil
}

// Negotiate probes ffmpeg and picks the first supported preference.
func Negotiate(ctx context.Context, ffmpeg string, preferences []string) (Encoding, bool, error) {
	caps, err := ProbeCapabilities(ctx, ffmpeg)
	if err != nil {
		return Encoding{}, false, err
	}
	return caps.Select(preferences)
}

func ffmpegList(ctx context.Context, ffmpeg string, flag string) (map[string]bool, error) {
	cmd := exec.CommandContext(ctx, ffmpeg, "-hide_banner", flag)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %s", ffmpeg, flag, err, strings.TrimSpace(stderr.String()))
	}
	return parseFFmpegList(out), nil
}

// parseFFmpegList reads `ffmpeg -encoders` / `-muxers` tables. Entries
// follow a " ------" separator line as "<flags> <name> <description>".
func parseFFmpegList(out []byte) map[string]bool {
	names := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	inTable := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "--") {
			inTable = true
			continue
		}
		if !inTable {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		// muxers may list aliases as "webm,matroska"
		for _, name := range strings.Split(fields[1], ",") {
			names[name] = true
		}
	}
	return names
}
