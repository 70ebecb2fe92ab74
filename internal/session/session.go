// Package session coordinates the recording lifecycle from device access to
// the analysis dashboard.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rbright/rehearse/internal/analysis"
	"github.com/rbright/rehearse/internal/fsm"
	"github.com/rbright/rehearse/internal/history"
	"github.com/rbright/rehearse/internal/indicator"
	"github.com/rbright/rehearse/internal/ipc"
	"github.com/rbright/rehearse/internal/media"
)

// User-facing notification texts.
const (
	MsgStartFailed     = "Failed to start recording. Please try again."
	MsgStopFailed      = "Error stopping recording. Please try again."
	MsgHidden          = "Recording stopped because you switched tabs."
	MsgTooShort        = "Recording too short. Please record at least 5 seconds."
	MsgUploading       = "Uploading recording for analysis..."
	MsgRecordingFailed = "Recording error occurred. Please try again."
	MsgStillAnalyzing  = "Still analyzing your last answer. Please wait for the results."
	msgAnalysisFailed  = "Analysis failed: "
)

const (
	defaultTimeslice    = time.Second
	defaultMinClipBytes = 5000
)

var (
	// ErrClipTooShort marks a recording discarded before upload.
	ErrClipTooShort = errors.New("recording too short")
	// ErrRecordingFailed marks a recording ended by a recorder error.
	ErrRecordingFailed = errors.New("recording failed")
	// ErrAnalysisPending rejects a start while the previous clip is being
	// finalized or analyzed.
	ErrAnalysisPending = errors.New("previous recording is still being analyzed")
)

var nowFunc = time.Now

// RecordingSession is the clip being recorded.
type RecordingSession struct {
	ID        string
	StartedAt time.Time
	Chunks    [][]byte
	MimeType  string

	hiddenWarned bool
}

// Bytes is the total size of the buffered fragments.
func (s *RecordingSession) Bytes() int {
	total := 0
	for _, chunk := range s.Chunks {
		total += len(chunk)
	}
	return total
}

// Outcome reports how one recording ended.
type Outcome struct {
	SessionID string
	Bytes     int
	Result    *analysis.Result
	Err       error
}

// Options wires a Manager. Opener is required; nil collaborators fall back
// to no-ops.
type Options struct {
	Logger       *slog.Logger
	Opener       Opener
	Uploader     Uploader
	Presenter    Presenter
	Notifier     Notifier
	Surface      Surface
	Indicator    indicator.Controller
	History      HistorySaver
	Timeslice    time.Duration
	MinClipBytes int
	DumpDir      string
	OnOutcome    func(Outcome)
}

// Manager owns the device stream, the recorder, and the current recording.
type Manager struct {
	logger    *slog.Logger
	opener    Opener
	uploader  Uploader
	presenter Presenter
	notifier  Notifier
	surface   Surface
	indicator indicator.Controller
	history   HistorySaver
	timeslice time.Duration
	minBytes  int
	dumpDir   string
	onOutcome func(Outcome)

	// op serializes lifecycle operations; mu guards the snapshot fields.
	op sync.Mutex

	mu       sync.RWMutex
	state    fsm.State
	status   indicator.Status
	capture  Capture
	session  *RecordingSession
	question string
	notes    string
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager constructs a manager with safe default fallbacks.
func NewManager(opts Options) *Manager {
	m := &Manager{
		logger:    opts.Logger,
		opener:    opts.Opener,
		uploader:  opts.Uploader,
		presenter: opts.Presenter,
		notifier:  opts.Notifier,
		surface:   opts.Surface,
		indicator: opts.Indicator,
		history:   opts.History,
		timeslice: opts.Timeslice,
		minBytes:  opts.MinClipBytes,
		dumpDir:   opts.DumpDir,
		onOutcome: opts.OnOutcome,
		state:     fsm.StateIdle,
		status:    indicator.Ready(),
	}
	if m.logger == nil {
		m.logger = slog.New(slog.DiscardHandler)
	}
	if m.presenter == nil {
		m.presenter = noopPresenter{}
	}
	if m.notifier == nil {
		m.notifier = noopNotifier{}
	}
	if m.surface == nil {
		m.surface = noopSurface{}
	}
	if m.indicator == nil {
		m.indicator = noopIndicator{}
	}
	if m.timeslice <= 0 {
		m.timeslice = defaultTimeslice
	}
	if m.minBytes <= 0 {
		m.minBytes = defaultMinClipBytes
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	return m
}

// State returns the current FSM state snapshot.
func (m *Manager) State() fsm.State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Status returns the status last shown to the user.
func (m *Manager) Status() indicator.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// SessionID returns the current recording's ID, or "" between recordings.
func (m *Manager) SessionID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return ""
	}
	return m.session.ID
}

// SetQuestion records the question being answered for history.
func (m *Manager) SetQuestion(question string) {
	m.mu.Lock()
	m.question = strings.TrimSpace(question)
	m.mu.Unlock()
}

// SetNotes records free-form notes for history.
func (m *Manager) SetNotes(notes string) {
	m.mu.Lock()
	m.notes = notes
	m.mu.Unlock()
}

// transition applies one FSM event to the manager state.
func (m *Manager) transition(event fsm.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := fsm.Transition(m.state, event)
	if err != nil {
		return err
	}
	m.state = next
	return nil
}

// toErrorAndReset transitions to error and back to idle best-effort.
func (m *Manager) toErrorAndReset() {
	_ = m.transition(fsm.EventFail)
	_ = m.transition(fsm.EventReset)
}

func (m *Manager) setStatus(ctx context.Context, status indicator.Status) {
	m.mu.Lock()
	m.status = status
	m.mu.Unlock()
	m.surface.SetStatus(status)
	m.indicator.Show(ctx, status)
}

func (m *Manager) idleControls() {
	m.surface.SetControls(Controls{StartEnabled: true})
}

// Initialize opens the device stream and prepares the recorder.
func (m *Manager) Initialize(ctx context.Context) error {
	m.op.Lock()
	defer m.op.Unlock()

	m.mu.RLock()
	ready := m.capture != nil
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return errors.New("session manager is closed")
	}
	if ready {
		return nil
	}
	if m.opener == nil {
		return errors.New("no capture device opener configured")
	}

	capture, err := m.opener.Open(ctx)
	if err != nil {
		var deviceErr *media.DeviceError
		message := media.UserMessage(media.DeviceUnknown)
		if errors.As(err, &deviceErr) {
			message = deviceErr.UserMessage()
		}
		m.logger.Error("device access failed", "error", err.Error())
		m.notifier.Error(message)
		m.surface.SetControls(Controls{})
		m.setStatus(ctx, indicator.Error("Permission Error"))
		return err
	}

	m.mu.Lock()
	m.capture = capture
	m.mu.Unlock()

	m.logger.Info("session ready", "mime_type", capture.Recorder().MimeType())
	m.idleControls()
	m.setStatus(ctx, indicator.Ready())
	return nil
}

// StartRecording begins a new recording. It is a no-op while recording or
// before Initialize succeeded, and returns ErrAnalysisPending while the
// previous clip is still stopping or uploading.
func (m *Manager) StartRecording(ctx context.Context) error {
	m.op.Lock()
	defer m.op.Unlock()
	return m.startLocked(ctx)
}

func (m *Manager) startLocked(ctx context.Context) error {
	m.mu.RLock()
	capture := m.capture
	state := m.state
	m.mu.RUnlock()
	if capture == nil || state == fsm.StateRecording {
		return nil
	}
	if fsm.Busy(state) {
		m.notifier.Info(MsgStillAnalyzing)
		return ErrAnalysisPending
	}
	recorder := capture.Recorder()
	if recorder == nil || recorder.State() == media.RecorderRecording {
		return nil
	}

	if err := m.transition(fsm.EventStart); err != nil {
		return err
	}

	rec := &RecordingSession{
		ID:        uuid.NewString(),
		StartedAt: nowFunc(),
		MimeType:  recorder.MimeType(),
	}
	m.mu.Lock()
	m.session = rec
	m.mu.Unlock()

	events, err := recorder.Start(m.timeslice)
	if err != nil {
		m.logger.Error("recorder start failed", "session_id", rec.ID, "error", err.Error())
		m.clearSession(rec.ID)
		m.toErrorAndReset()
		m.notifier.Error(MsgStartFailed)
		m.idleControls()
		m.setStatus(ctx, indicator.Ready())
		return fmt.Errorf("start recording: %w", err)
	}

	m.logger.Info("recording started", "session_id", rec.ID, "mime_type", rec.MimeType)
	m.surface.SetControls(Controls{StopEnabled: true, Overlay: true})
	m.setStatus(ctx, indicator.Recording())

	m.wg.Add(1)
	go m.consume(rec.ID, events)
	return nil
}

// StopRecording asks the recorder to finish. The clip is uploaded once the
// recorder reports it has stopped. It is a no-op when not recording.
func (m *Manager) StopRecording(ctx context.Context) error {
	m.op.Lock()
	defer m.op.Unlock()
	return m.stopLocked(ctx)
}

func (m *Manager) stopLocked(ctx context.Context) error {
	m.mu.RLock()
	capture := m.capture
	state := m.state
	id := ""
	if m.session != nil {
		id = m.session.ID
	}
	m.mu.RUnlock()
	if state != fsm.StateRecording || capture == nil {
		return nil
	}

	if err := m.transition(fsm.EventStop); err != nil {
		return err
	}
	if err := capture.Recorder().Stop(); err != nil {
		m.logger.Error("recorder stop failed", "session_id", id, "error", err.Error())
		m.clearSession(id)
		m.toErrorAndReset()
		m.notifier.Error(MsgStopFailed)
		m.idleControls()
		m.setStatus(ctx, indicator.Ready())
		return fmt.Errorf("stop recording: %w", err)
	}

	m.logger.Info("recording stop requested", "session_id", id)
	m.surface.SetControls(Controls{})
	m.setStatus(ctx, indicator.Analyzing())
	return nil
}

// Toggle stops an active recording or starts a new one.
func (m *Manager) Toggle(ctx context.Context) error {
	m.op.Lock()
	defer m.op.Unlock()
	if m.State() == fsm.StateRecording {
		return m.stopLocked(ctx)
	}
	return m.startLocked(ctx)
}

// Hidden stops an active recording when the surface loses visibility and
// warns once per recording.
func (m *Manager) Hidden(ctx context.Context) error {
	m.op.Lock()
	defer m.op.Unlock()

	if m.State() != fsm.StateRecording {
		return nil
	}
	err := m.stopLocked(ctx)

	m.mu.Lock()
	warn := m.session != nil && !m.session.hiddenWarned
	if warn {
		m.session.hiddenWarned = true
	}
	m.mu.Unlock()
	if warn {
		m.notifier.Warning(MsgHidden)
	}
	return err
}

// consume appends fragments in order and hands the finished clip to the
// upload handshake. One consumer runs per recording.
func (m *Manager) consume(id string, events <-chan media.Event) {
	defer m.wg.Done()
	for event := range events {
		switch event.Kind {
		case media.EventData:
			m.appendChunk(id, event.Data)
		case media.EventStop:
			m.finish(id)
		case media.EventError:
			m.recordingFailed(id, event.Err)
		}
	}
}

func (m *Manager) appendChunk(id string, data []byte) {
	if len(data) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil || m.session.ID != id {
		return
	}
	m.session.Chunks = append(m.session.Chunks, data)
}

func (m *Manager) recordingFailed(id string, cause error) {
	m.op.Lock()
	defer m.op.Unlock()

	rec := m.takeSession(id)
	if rec == nil {
		return
	}
	if cause == nil {
		cause = errors.New("recorder error")
	}
	m.logger.Error("recording failed", "session_id", id, "error", cause.Error())
	m.toErrorAndReset()
	m.notifier.Error(MsgRecordingFailed)
	m.idleControls()
	m.setStatus(m.ctx, indicator.Ready())
	m.report(Outcome{SessionID: id, Bytes: rec.Bytes(), Err: fmt.Errorf("%w: %v", ErrRecordingFailed, cause)})
}

// finish runs the upload handshake for a stopped recording.
func (m *Manager) finish(id string) {
	m.op.Lock()

	m.mu.RLock()
	state := m.state
	m.mu.RUnlock()
	if state != fsm.StateStopping {
		m.op.Unlock()
		return
	}
	rec := m.takeSession(id)
	if rec == nil {
		m.op.Unlock()
		return
	}

	clip := analysis.Clip{Data: concat(rec.Chunks), MimeType: rec.MimeType}
	if strings.TrimSpace(clip.MimeType) == "" {
		clip.MimeType = media.FallbackMimeType
	}
	size := len(clip.Data)
	durationMS := nowFunc().Sub(rec.StartedAt).Milliseconds()

	if size < m.minBytes {
		m.logger.Warn("clip discarded",
			"session_id", id,
			"bytes", size,
			"duration_ms", durationMS,
			"error", ErrClipTooShort.Error(),
		)
		_ = m.transition(fsm.EventDiscard)
		m.notifier.Warning(MsgTooShort)
		m.idleControls()
		m.setStatus(m.ctx, indicator.Ready())
		m.op.Unlock()
		m.report(Outcome{SessionID: id, Bytes: size, Err: ErrClipTooShort})
		return
	}

	m.dumpClip(id, clip)
	m.logger.Info("uploading clip",
		"session_id", id,
		"bytes", size,
		"mime_type", clip.MimeType,
		"duration_ms", durationMS,
	)
	_ = m.transition(fsm.EventFinalize)
	m.notifier.Info(MsgUploading)
	m.op.Unlock()

	result, err := m.upload(clip)

	m.op.Lock()
	defer m.op.Unlock()

	if m.isClosed() {
		m.report(Outcome{SessionID: id, Bytes: size, Err: context.Canceled})
		return
	}
	if err != nil {
		m.logger.Error("analysis failed", "session_id", id, "error", err.Error())
		_ = m.transition(fsm.EventFail)
		m.notifier.Error(msgAnalysisFailed + err.Error())
		m.idleControls()
		m.setStatus(m.ctx, indicator.Error("Analysis Failed"))
		m.report(Outcome{SessionID: id, Bytes: size, Err: err})
		return
	}

	m.presenter.Present(result)
	_ = m.transition(fsm.EventAnalyzed)
	m.surface.SetControls(Controls{StartEnabled: true, Dashboard: true})
	m.setStatus(m.ctx, indicator.Complete())
	m.logger.Info("analysis complete", "session_id", id, "confidence_score", int(result.ConfidenceScore))
	m.saveHistory(rec, clip, result)
	m.report(Outcome{SessionID: id, Bytes: size, Result: &result})
}

func (m *Manager) upload(clip analysis.Clip) (analysis.Result, error) {
	if m.uploader == nil {
		return analysis.Result{}, errors.New("no analysis backend configured")
	}
	return m.uploader.Analyze(m.ctx, clip)
}

func (m *Manager) dumpClip(id string, clip analysis.Clip) {
	if m.dumpDir == "" {
		return
	}
	path, err := media.DumpClip(m.dumpDir, id, clip.Extension(), clip.Data)
	if err != nil {
		m.logger.Warn("clip dump failed", "session_id", id, "error", err.Error())
		return
	}
	m.logger.Info("clip dumped", "session_id", id, "path", path)
}

func (m *Manager) saveHistory(rec *RecordingSession, clip analysis.Clip, result analysis.Result) {
	if m.history == nil {
		return
	}
	m.mu.RLock()
	question, notes := m.question, m.notes
	m.mu.RUnlock()

	err := m.history.Save(m.ctx, history.Record{
		ID:         rec.ID,
		Question:   question,
		Notes:      notes,
		MimeType:   clip.MimeType,
		Bytes:      len(clip.Data),
		StartedAt:  rec.StartedAt,
		AnalyzedAt: nowFunc(),
		Result:     result,
	})
	if err != nil {
		m.logger.Warn("history save failed", "session_id", rec.ID, "error", err.Error())
	}
}

// takeSession detaches the current recording when it matches id.
func (m *Manager) takeSession(id string) *RecordingSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil || m.session.ID != id {
		return nil
	}
	rec := m.session
	m.session = nil
	return rec
}

func (m *Manager) clearSession(id string) {
	_ = m.takeSession(id)
}

func (m *Manager) isClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

func (m *Manager) report(outcome Outcome) {
	if m.onOutcome != nil {
		m.onOutcome(outcome)
	}
}

// Teardown releases the device regardless of state. It is safe to call
// more than once.
func (m *Manager) Teardown() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	capture := m.capture
	m.capture = nil
	m.session = nil
	busy := fsm.Busy(m.state)
	m.mu.Unlock()

	m.cancel()
	if busy {
		m.toErrorAndReset()
	}
	if capture != nil {
		if err := capture.Stop(); err != nil {
			m.logger.Warn("device release failed", "error", err.Error())
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 800*time.Millisecond)
	defer cancel()
	m.indicator.Hide(ctx)
	m.logger.Info("session torn down")
}

// Wait blocks until every recording consumer has exited.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Handle serves IPC commands for the owning process.
func (m *Manager) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return m.response(true, "status", "")
	case ipc.CommandToggle:
		if err := m.Toggle(ctx); err != nil {
			return m.response(false, "", err.Error())
		}
		return m.response(true, "toggled", "")
	case ipc.CommandStart:
		if state := m.State(); state != fsm.StateIdle && state != fsm.StateError {
			return m.response(false, "", fmt.Sprintf("cannot start from state %s", state))
		}
		if err := m.StartRecording(ctx); err != nil {
			return m.response(false, "", err.Error())
		}
		if m.State() != fsm.StateRecording {
			return m.response(false, "", "device is not ready")
		}
		return m.response(true, "recording started", "")
	case ipc.CommandStop:
		if state := m.State(); state != fsm.StateRecording {
			return m.response(false, "", fmt.Sprintf("cannot stop from state %s", state))
		}
		if err := m.StopRecording(ctx); err != nil {
			return m.response(false, "", err.Error())
		}
		return m.response(true, "stop requested", "")
	case ipc.CommandHide:
		if err := m.Hidden(ctx); err != nil {
			return m.response(false, "", err.Error())
		}
		return m.response(true, "hidden", "")
	default:
		return m.response(false, "", fmt.Sprintf("unknown command: %s", req.Command))
	}
}

func (m *Manager) response(ok bool, message string, errText string) ipc.Response {
	return ipc.Response{
		OK:        ok,
		State:     string(m.State()),
		Status:    m.Status().Label(),
		SessionID: m.SessionID(),
		Message:   message,
		Error:     errText,
	}
}

func concat(chunks [][]byte) []byte {
	total := 0
	for _, chunk := range chunks {
		total += len(chunk)
	}
	out := make([]byte, 0, total)
	for _, chunk := range chunks {
		out = append(out, chunk...)
	}
	return out
}
