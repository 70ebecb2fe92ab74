package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rbright/rehearse/internal/analysis"
	"github.com/rbright/rehearse/internal/dashboard"
	"github.com/rbright/rehearse/internal/history"
	"github.com/rbright/rehearse/internal/indicator"
	"github.com/rbright/rehearse/internal/media"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	mime     string
	startErr error
	stopErr  error
	tail     [][]byte

	starts atomic.Int32
	stops  atomic.Int32

	mu     sync.Mutex
	state  media.RecorderState
	events chan media.Event
}

func newFakeRecorder(mime string) *fakeRecorder {
	return &fakeRecorder{mime: mime, state: media.RecorderInactive}
}

func (r *fakeRecorder) State() media.RecorderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *fakeRecorder) MimeType() string { return r.mime }

func (r *fakeRecorder) Start(time.Duration) (<-chan media.Event, error) {
	r.starts.Add(1)
	if r.startErr != nil {
		return nil, r.startErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = media.RecorderRecording
	r.events = make(chan media.Event, 32)
	return r.events, nil
}

// Stop flushes tail as data events, then emits the terminal stop.
func (r *fakeRecorder) Stop() error {
	r.stops.Add(1)
	if r.stopErr != nil {
		return r.stopErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != media.RecorderRecording {
		return media.ErrRecorderInactive
	}
	r.state = media.RecorderInactive
	for _, chunk := range r.tail {
		r.events <- media.Event{Kind: media.EventData, Data: chunk}
	}
	r.events <- media.Event{Kind: media.EventStop}
	close(r.events)
	return nil
}

func (r *fakeRecorder) emit(data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events <- media.Event{Kind: media.EventData, Data: data}
}

func (r *fakeRecorder) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = media.RecorderInactive
	r.events <- media.Event{Kind: media.EventError, Err: err}
	close(r.events)
}

type fakeCapture struct {
	recorder *fakeRecorder
	stops    atomic.Int32
}

func (c *fakeCapture) Recorder() media.Recorder { return c.recorder }

func (c *fakeCapture) Stop() error {
	c.stops.Add(1)
	if c.recorder.State() == media.RecorderRecording {
		_ = c.recorder.Stop()
	}
	return nil
}

type fakeOpener struct {
	capture *fakeCapture
	err     error
	opens   atomic.Int32
}

func (o *fakeOpener) Open(context.Context) (Capture, error) {
	o.opens.Add(1)
	if o.err != nil {
		return nil, o.err
	}
	return o.capture, nil
}

type fakeUploader struct {
	result analysis.Result
	err    error

	mu    sync.Mutex
	clips []analysis.Clip
}

func (u *fakeUploader) Analyze(_ context.Context, clip analysis.Clip) (analysis.Result, error) {
	u.mu.Lock()
	u.clips = append(u.clips, clip)
	u.mu.Unlock()
	return u.result, u.err
}

func (u *fakeUploader) calls() []analysis.Clip {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]analysis.Clip(nil), u.clips...)
}

type note struct {
	level   string
	message string
}

type fakeNotifier struct {
	mu    sync.Mutex
	notes []note
}

func (n *fakeNotifier) add(level string, message string) {
	n.mu.Lock()
	n.notes = append(n.notes, note{level: level, message: message})
	n.mu.Unlock()
}

func (n *fakeNotifier) Info(message string)    { n.add("info", message) }
func (n *fakeNotifier) Success(message string) { n.add("success", message) }
func (n *fakeNotifier) Warning(message string) { n.add("warning", message) }
func (n *fakeNotifier) Error(message string)   { n.add("error", message) }

func (n *fakeNotifier) all() []note {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]note(nil), n.notes...)
}

func (n *fakeNotifier) count(level string, message string) int {
	total := 0
	for _, got := range n.all() {
		if got.level == level && got.message == message {
			total++
		}
	}
	return total
}

type fakeSurface struct {
	mu       sync.Mutex
	controls []Controls
	statuses []indicator.Status
}

func (s *fakeSurface) SetControls(c Controls) {
	s.mu.Lock()
	s.controls = append(s.controls, c)
	s.mu.Unlock()
}

func (s *fakeSurface) SetStatus(status indicator.Status) {
	s.mu.Lock()
	s.statuses = append(s.statuses, status)
	s.mu.Unlock()
}

func (s *fakeSurface) lastControls() Controls {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.controls) == 0 {
		return Controls{}
	}
	return s.controls[len(s.controls)-1]
}

type fakeIndicator struct {
	shows atomic.Int32
	hides atomic.Int32
}

func (f *fakeIndicator) Show(context.Context, indicator.Status) { f.shows.Add(1) }
func (f *fakeIndicator) Hide(context.Context)                   { f.hides.Add(1) }

type fakePresenter struct {
	presented atomic.Int32
}

func (p *fakePresenter) Present(result analysis.Result) dashboard.View {
	p.presented.Add(1)
	return dashboard.Build(result, time.Now())
}

type fakeHistory struct {
	mu      sync.Mutex
	records []history.Record
}

func (h *fakeHistory) Save(_ context.Context, rec history.Record) error {
	h.mu.Lock()
	h.records = append(h.records, rec)
	h.mu.Unlock()
	return nil
}

func (h *fakeHistory) all() []history.Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]history.Record(nil), h.records...)
}

type harness struct {
	manager   *Manager
	recorder  *fakeRecorder
	capture   *fakeCapture
	opener    *fakeOpener
	uploader  *fakeUploader
	notifier  *fakeNotifier
	surface   *fakeSurface
	indicator *fakeIndicator
	presenter *fakePresenter
	history   *fakeHistory
	outcomes  chan Outcome
}

func newHarness(t *testing.T, mutate func(*Options)) *harness {
	t.Helper()
	h := &harness{
		recorder:  newFakeRecorder("video/webm;codecs=vp9,opus"),
		uploader:  &fakeUploader{result: analysis.Result{ConfidenceScore: 82, Transcript: "hello"}},
		notifier:  &fakeNotifier{},
		surface:   &fakeSurface{},
		indicator: &fakeIndicator{},
		presenter: &fakePresenter{},
		history:   &fakeHistory{},
		outcomes:  make(chan Outcome, 8),
	}
	h.capture = &fakeCapture{recorder: h.recorder}
	h.opener = &fakeOpener{capture: h.capture}

	opts := Options{
		Opener:    h.opener,
		Uploader:  h.uploader,
		Presenter: h.presenter,
		Notifier:  h.notifier,
		Surface:   h.surface,
		Indicator: h.indicator,
		History:   h.history,
		Timeslice: 10 * time.Millisecond,
		OnOutcome: func(o Outcome) { h.outcomes <- o },
	}
	if mutate != nil {
		mutate(&opts)
	}
	h.manager = NewManager(opts)
	t.Cleanup(h.manager.Teardown)
	return h
}

func (h *harness) ready(t *testing.T) {
	t.Helper()
	require.NoError(t, h.manager.Initialize(context.Background()))
}

func (h *harness) outcome(t *testing.T) Outcome {
	t.Helper()
	select {
	case o := <-h.outcomes:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for recording outcome")
		return Outcome{}
	}
}

func bytesOf(n int, b byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

// gatedUploader holds Analyze until release is closed.
type gatedUploader struct {
	fakeUploader
	entered chan struct{}
	release chan struct{}
}

func newGatedUploader() *gatedUploader {
	return &gatedUploader{
		fakeUploader: fakeUploader{result: analysis.Result{ConfidenceScore: 71}},
		entered:      make(chan struct{}, 1),
		release:      make(chan struct{}),
	}
}

func (u *gatedUploader) Analyze(ctx context.Context, clip analysis.Clip) (analysis.Result, error) {
	u.entered <- struct{}{}
	select {
	case <-u.release:
	case <-ctx.Done():
		return analysis.Result{}, ctx.Err()
	}
	return u.fakeUploader.Analyze(ctx, clip)
}
