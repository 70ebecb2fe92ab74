package media

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

var (
	// ErrRecorderInactive is returned by Stop when nothing is recording.
	ErrRecorderInactive = errors.New("recorder is not recording")
	// ErrRecorderActive is returned by Start while a recording is running.
	ErrRecorderActive = errors.New("recorder is already recording")
	// ErrStreamStopped is returned when the device stream was already released.
	ErrStreamStopped = errors.New("device stream stopped")
)

const (
	defaultStartGrace = 250 * time.Millisecond
	defaultKillAfter  = 1200 * time.Millisecond
	readBufferBytes   = 32 * 1024
)

// RecorderState mirrors the recorder lifecycle seen by callers.
type RecorderState string

const (
	RecorderInactive  RecorderState = "inactive"
	RecorderRecording RecorderState = "recording"
)

// EventKind tags a recorder event.
type EventKind int

const (
	EventData EventKind = iota
	EventStop
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventData:
		return "data"
	case EventStop:
		return "stop"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one recorder notification. Every EventData of a recording is
// delivered before its single EventStop or EventError, after which the
// channel is closed.
type Event struct {
	Kind EventKind
	Data []byte
	Err  error
}

// Recorder turns a device stream into an encoded clip.
type Recorder interface {
	State() RecorderState
	MimeType() string
	Start(timeslice time.Duration) (<-chan Event, error)
	Stop() error
}

// FFmpegRecorder encodes the stream's camera and microphone with an ffmpeg
// subprocess writing the container to stdout.
type FFmpegRecorder struct {
	command  string
	stream   *Stream
	encoding Encoding
	bitrate  int

	startGrace time.Duration
	killAfter  time.Duration

	mu        sync.Mutex
	state     RecorderState
	process   *os.Process
	requested bool
	exited    chan struct{}
}

// NewRecorder binds a recorder to stream.
func NewRecorder(command string, stream *Stream, encoding Encoding, videoBitrate int) (*FFmpegRecorder, error) {
	if command == "" {
		command = "ffmpeg"
	}
	r := &FFmpegRecorder{
		command:    command,
		stream:     stream,
		encoding:   encoding,
		bitrate:    videoBitrate,
		startGrace: defaultStartGrace,
		killAfter:  defaultKillAfter,
		state:      RecorderInactive,
	}
	if err := stream.bind(r); err != nil {
		return nil, err
	}
	return r, nil
}

// State reports whether a recording is in progress.
func (r *FFmpegRecorder) State() RecorderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// MimeType is the negotiated output type.
func (r *FFmpegRecorder) MimeType() string {
	return r.encoding.MimeType
}

// Args returns the ffmpeg argv (without the command) for one recording.
func (r *FFmpegRecorder) Args() []string {
	c := r.stream.Constraints()
	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", c.VideoFormat,
		"-framerate", strconv.Itoa(c.FrameRate),
		"-video_size", fmt.Sprintf("%dx%d", c.Width, c.Height),
		"-i", c.VideoDevice,
		"-f", "pulse",
		"-sample_rate", strconv.Itoa(c.SampleRate),
		"-i", r.stream.Audio().Device.ID,
	}
	if c.NoiseSuppression {
		args = append(args, "-af", "afftdn")
	}
	args = append(args,
		"-c:v", r.encoding.VideoCodec,
		"-b:v", strconv.Itoa(r.bitrate),
		"-c:a", r.encoding.AudioCodec,
	)
	if r.encoding.Muxer == "mp4" {
		// mp4 must be fragmented to be written to a pipe
		args = append(args, "-movflags", "frag_keyframe+empty_moov")
	}
	return append(args, "-f", r.encoding.Muxer, "-")
}

// Start launches ffmpeg and returns the ordered event channel for this
// recording. Buffered output is emitted as EventData every timeslice.
func (r *FFmpegRecorder) Start(timeslice time.Duration) (<-chan Event, error) {
	if timeslice <= 0 {
		return nil, fmt.Errorf("timeslice must be > 0")
	}
	if !r.stream.Active() {
		return nil, ErrStreamStopped
	}

	r.mu.Lock()
	if r.state == RecorderRecording {
		r.mu.Unlock()
		return nil, ErrRecorderActive
	}
	r.mu.Unlock()

	cmd := exec.Command(r.command, r.Args()...)
	stderr := &lockedBuffer{}
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	events := make(chan Event, 64)
	exited := make(chan struct{})

	r.mu.Lock()
	r.state = RecorderRecording
	r.process = cmd.Process
	r.requested = false
	r.exited = exited
	r.mu.Unlock()

	go r.pump(cmd, stdout, stderr, timeslice, events, exited)

	select {
	case <-exited:
		// drain so the pump's sends never leak
		var last error
		for event := range events {
			if event.Kind == EventError {
				last = event.Err
			}
		}
		if last != nil {
			return nil, fmt.Errorf("ffmpeg exited before recording started: %w", last)
		}
		return nil, errors.New("ffmpeg exited before recording started")
	case <-time.After(r.startGrace):
	}
	return events, nil
}

// Stop asks ffmpeg to finalize the container. The remaining bytes and the
// terminal EventStop arrive on the channel returned by Start.
func (r *FFmpegRecorder) Stop() error {
	r.mu.Lock()
	if r.state != RecorderRecording || r.process == nil {
		r.mu.Unlock()
		return ErrRecorderInactive
	}
	r.state = RecorderInactive
	r.requested = true
	process := r.process
	exited := r.exited
	killAfter := r.killAfter
	r.mu.Unlock()

	if err := process.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("signal ffmpeg: %w", err)
	}

	go func() {
		select {
		case <-exited:
		case <-time.After(killAfter):
			_ = process.Kill()
		}
	}()
	return nil
}

func (r *FFmpegRecorder) pump(cmd *exec.Cmd, stdout io.Reader, stderr *lockedBuffer, timeslice time.Duration, events chan<- Event, exited chan<- struct{}) {
	defer close(events)
	defer close(exited)

	reads := make(chan []byte, 16)
	readErr := make(chan error, 1)
	go func() {
		defer close(reads)
		buf := make([]byte, readBufferBytes)
		for {
			n, err := stdout.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				reads <- chunk
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					readErr <- err
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(timeslice)
	defer ticker.Stop()

	var pending []byte
	flush := func() {
		if len(pending) == 0 {
			return
		}
		events <- Event{Kind: EventData, Data: pending}
		pending = nil
	}

loop:
	for {
		select {
		case chunk, ok := <-reads:
			if !ok {
				break loop
			}
			pending = append(pending, chunk...)
		case <-ticker.C:
			flush()
		}
	}
	flush()

	waitErr := cmd.Wait()
	select {
	case err := <-readErr:
		if waitErr == nil {
			waitErr = err
		}
	default:
	}

	r.mu.Lock()
	requested := r.requested
	r.state = RecorderInactive
	r.process = nil
	r.mu.Unlock()

	if requested {
		if err := normalizeStopErr(waitErr); err != nil {
			events <- Event{Kind: EventError, Err: withStderr(err, stderr)}
			return
		}
		events <- Event{Kind: EventStop}
		return
	}

	if waitErr == nil {
		waitErr = errors.New("ffmpeg exited unexpectedly")
	}
	events <- Event{Kind: EventError, Err: withStderr(waitErr, stderr)}
}

// normalizeStopErr treats a non-zero exit after an interrupt as a clean stop.
func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func withStderr(err error, stderr *lockedBuffer) error {
	if text := stderr.String(); text != "" {
		return fmt.Errorf("%w: %s", err, text)
	}
	return err
}

// lockedBuffer collects ffmpeg stderr while the process runs.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(bytes.TrimSpace(b.buf.Bytes()))
}
