package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rbright/rehearse/internal/config"
	"github.com/rbright/rehearse/internal/media"
)

// FFmpegOpener opens the configured camera and microphone and binds an
// ffmpeg recorder using the first encoding ffmpeg supports.
type FFmpegOpener struct {
	Capture config.CaptureConfig
	Audio   config.AudioConfig
	Logger  *slog.Logger
	Backend media.AudioBackend
}

// Constraints maps capture and audio config onto device constraints.
func Constraints(capture config.CaptureConfig, audio config.AudioConfig) media.Constraints {
	return media.Constraints{
		VideoFormat:      capture.VideoFormat,
		VideoDevice:      capture.VideoDevice,
		Width:            capture.Width,
		Height:           capture.Height,
		FrameRate:        capture.FrameRate,
		FacingMode:       capture.FacingMode,
		SampleRate:       capture.SampleRate,
		EchoCancellation: capture.EchoCancellation,
		NoiseSuppression: capture.NoiseSuppression,
		AudioInput:       audio.Input,
		AudioFallback:    audio.Fallback,
	}
}

// Open implements Opener.
func (o FFmpegOpener) Open(ctx context.Context) (Capture, error) {
	backend := o.Backend
	if backend == nil {
		backend = media.PulseBackend{}
	}

	stream, err := media.OpenWith(ctx, Constraints(o.Capture, o.Audio), backend)
	if err != nil {
		return nil, err
	}

	enc, supported, err := media.Negotiate(ctx, o.Capture.FFmpeg, o.Capture.MimeTypes)
	if err != nil {
		_ = stream.Stop()
		return nil, fmt.Errorf("negotiate encoding: %w", err)
	}
	if !supported && o.Logger != nil {
		o.Logger.Warn("no preferred encoding is supported by ffmpeg; using last candidate",
			"mime_type", enc.MimeType,
		)
	}

	recorder, err := media.NewRecorder(o.Capture.FFmpeg, stream, enc, o.Capture.VideoBitrate)
	if err != nil {
		_ = stream.Stop()
		return nil, fmt.Errorf("create recorder: %w", err)
	}

	if o.Logger != nil {
		o.Logger.Info("capture opened",
			"video_device", o.Capture.VideoDevice,
			"audio_device", stream.Audio().Device.ID,
			"mime_type", enc.MimeType,
			"video_bitrate", o.Capture.VideoBitrate,
		)
	}
	return streamCapture{stream: stream, recorder: recorder}, nil
}

type streamCapture struct {
	stream   *media.Stream
	recorder *media.FFmpegRecorder
}

func (c streamCapture) Recorder() media.Recorder { return c.recorder }
func (c streamCapture) Stop() error              { return c.stream.Stop() }
