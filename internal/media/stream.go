// Package media acquires camera/microphone access and records clips through ffmpeg.
package media

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Constraints describes the requested capture shape.
type Constraints struct {
	VideoFormat string
	VideoDevice string
	Width       int
	Height      int
	FrameRate   int
	// FacingMode is advisory; V4L2 devices do not report which way they face.
	FacingMode string

	SampleRate       int
	EchoCancellation bool
	NoiseSuppression bool
	AudioInput       string
	AudioFallback    string
}

// DefaultConstraints mirrors a 720p front camera with a cleaned-up 44.1 kHz microphone.
func DefaultConstraints() Constraints {
	return Constraints{
		VideoFormat:      "v4l2",
		VideoDevice:      "/dev/video0",
		Width:            1280,
		Height:           720,
		FrameRate:        30,
		FacingMode:       "user",
		SampleRate:       44100,
		EchoCancellation: true,
		NoiseSuppression: true,
		AudioInput:       "default",
		AudioFallback:    "default",
	}
}

// Stream is an acquired camera + microphone pair.
type Stream struct {
	constraints Constraints
	audio       Selection
	hold        io.Closer

	mu       sync.Mutex
	stopped  bool
	recorder *FFmpegRecorder
}

// Open acquires the camera and the Pulse microphone selected by c.
func Open(ctx context.Context, c Constraints) (*Stream, error) {
	return OpenWith(ctx, c, PulseBackend{})
}

// OpenWith is Open with an explicit audio backend.
func OpenWith(ctx context.Context, c Constraints, backend AudioBackend) (*Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ProbeVideoDevice(c.VideoDevice); err != nil {
		return nil, err
	}

	devices, err := backend.Devices(ctx)
	if err != nil {
		return nil, classifyDeviceError("microphone", err)
	}
	selection, err := selectDeviceFromList(devices, c.AudioInput, c.AudioFallback)
	if err != nil {
		return nil, classifyDeviceError("microphone", err)
	}

	hold, err := backend.Hold(ctx, selection.Device)
	if err != nil {
		return nil, classifyDeviceError(selection.Device.ID, err)
	}

	return &Stream{constraints: c, audio: selection, hold: hold}, nil
}

// ProbeVideoDevice opens the camera node briefly to surface ENOENT/EACCES/EBUSY.
func ProbeVideoDevice(path string) error {
	if path == "" {
		return &DeviceError{Kind: DeviceNotFound, Device: "camera", Err: errors.New("no video device configured")}
	}
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return classifyDeviceError(path, err)
	}
	return file.Close()
}

// Constraints returns the constraints the stream was opened with.
func (s *Stream) Constraints() Constraints {
	return s.constraints
}

// Audio returns the selected microphone and any fallback warning.
func (s *Stream) Audio() Selection {
	return s.audio
}

// Active reports whether the stream still holds its devices.
func (s *Stream) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.stopped
}

func (s *Stream) bind(recorder *FFmpegRecorder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStreamStopped
	}
	s.recorder = recorder
	return nil
}

// Stop releases every track: any bound recorder is stopped and the
// microphone handle closed. Later calls are no-ops.
func (s *Stream) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	recorder := s.recorder
	s.recorder = nil
	s.mu.Unlock()

	if recorder != nil {
		if err := recorder.Stop(); err != nil && !errors.Is(err, ErrRecorderInactive) {
			_ = s.hold.Close()
			return err
		}
	}
	if s.hold != nil {
		return s.hold.Close()
	}
	return nil
}

// ListVideoDevices returns V4L2 capture nodes present on this host.
func ListVideoDevices() []string {
	matches, _ := filepath.Glob("/dev/video*")
	sort.Strings(matches)
	return matches
}
