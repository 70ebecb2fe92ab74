package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/rbright/rehearse/internal/analysis"
	"github.com/rbright/rehearse/internal/dashboard"
	"github.com/rbright/rehearse/internal/fsm"
	"github.com/rbright/rehearse/internal/indicator"
	"github.com/rbright/rehearse/internal/ipc"
	"github.com/rbright/rehearse/internal/media"
	"github.com/stretchr/testify/require"
)

func TestInitializeReady(t *testing.T) {
	h := newHarness(t, nil)
	h.ready(t)

	require.Equal(t, indicator.Ready(), h.manager.Status())
	require.Equal(t, Controls{StartEnabled: true}, h.surface.lastControls())

	// a second call keeps the open stream
	h.ready(t)
	require.Equal(t, int32(1), h.opener.opens.Load())
}

func TestInitializeDeviceErrorShowsKindMessage(t *testing.T) {
	h := newHarness(t, nil)
	h.opener.err = &media.DeviceError{Kind: media.DevicePermissionDenied, Device: "/dev/video0", Err: syscall.EACCES}

	err := h.manager.Initialize(context.Background())
	var deviceErr *media.DeviceError
	require.ErrorAs(t, err, &deviceErr)

	require.Equal(t, 1, h.notifier.count("error", "Camera/microphone permission denied. Please allow access."))
	require.Equal(t, indicator.Error("Permission Error"), h.manager.Status())
	require.Equal(t, Controls{}, h.surface.lastControls())

	require.NoError(t, h.manager.StartRecording(context.Background()))
	require.Equal(t, fsm.StateIdle, h.manager.State())
	require.Zero(t, h.recorder.starts.Load())
}

func TestInitializeUnclassifiedErrorUsesGenericMessage(t *testing.T) {
	h := newHarness(t, nil)
	h.opener.err = errors.New("ffmpeg: not found")

	require.Error(t, h.manager.Initialize(context.Background()))
	require.Equal(t, 1, h.notifier.count("error", "Failed to access camera/microphone. Please check permissions."))
}

func TestRecordingUploadsConcatenatedClip(t *testing.T) {
	h := newHarness(t, nil)
	h.ready(t)
	h.manager.SetQuestion("  Why this role?  ")
	h.manager.SetNotes("be concise")
	ctx := context.Background()

	require.NoError(t, h.manager.StartRecording(ctx))
	require.Equal(t, fsm.StateRecording, h.manager.State())
	require.Equal(t, indicator.Recording(), h.manager.Status())
	require.Equal(t, Controls{StopEnabled: true, Overlay: true}, h.surface.lastControls())
	sessionID := h.manager.SessionID()
	require.NotEmpty(t, sessionID)

	h.recorder.emit(bytesOf(3000, 'a'))
	h.recorder.tail = [][]byte{bytesOf(3000, 'b')}
	require.NoError(t, h.manager.StopRecording(ctx))

	out := h.outcome(t)
	require.NoError(t, out.Err)
	require.Equal(t, sessionID, out.SessionID)
	require.Equal(t, 6000, out.Bytes)
	require.NotNil(t, out.Result)

	clips := h.uploader.calls()
	require.Len(t, clips, 1)
	require.Equal(t, "video/webm;codecs=vp9,opus", clips[0].MimeType)
	require.Equal(t, append(bytesOf(3000, 'a'), bytesOf(3000, 'b')...), clips[0].Data)

	require.Equal(t, int32(1), h.presenter.presented.Load())
	require.Equal(t, fsm.StateIdle, h.manager.State())
	require.Equal(t, indicator.Complete(), h.manager.Status())
	require.Equal(t, Controls{StartEnabled: true, Dashboard: true}, h.surface.lastControls())
	require.Equal(t, 1, h.notifier.count("info", MsgUploading))

	records := h.history.all()
	require.Len(t, records, 1)
	require.Equal(t, sessionID, records[0].ID)
	require.Equal(t, "Why this role?", records[0].Question)
	require.Equal(t, "be concise", records[0].Notes)
	require.Equal(t, 6000, records[0].Bytes)
	require.Equal(t, analysis.Score(82), records[0].Result.ConfidenceScore)
}

func TestShortClipIsDiscardedWithoutUpload(t *testing.T) {
	h := newHarness(t, nil)
	h.ready(t)
	ctx := context.Background()

	require.NoError(t, h.manager.StartRecording(ctx))
	h.recorder.tail = [][]byte{bytesOf(4999, 'x')}
	require.NoError(t, h.manager.StopRecording(ctx))

	out := h.outcome(t)
	require.ErrorIs(t, out.Err, ErrClipTooShort)
	require.Equal(t, 4999, out.Bytes)
	require.Empty(t, h.uploader.calls())
	require.Equal(t, 1, h.notifier.count("warning", MsgTooShort))
	require.Equal(t, fsm.StateIdle, h.manager.State())
	require.Equal(t, indicator.Ready(), h.manager.Status())
	require.Equal(t, Controls{StartEnabled: true}, h.surface.lastControls())
	require.Zero(t, h.presenter.presented.Load())
}

func TestMinimumClipSizeIsInclusive(t *testing.T) {
	h := newHarness(t, nil)
	h.ready(t)
	ctx := context.Background()

	require.NoError(t, h.manager.StartRecording(ctx))
	h.recorder.tail = [][]byte{bytesOf(5000, 'x')}
	require.NoError(t, h.manager.StopRecording(ctx))

	out := h.outcome(t)
	require.NoError(t, out.Err)
	require.Len(t, h.uploader.calls(), 1)
}

func TestAnalysisFailureLeavesErrorStatus(t *testing.T) {
	h := newHarness(t, nil)
	h.uploader.err = &analysis.ServerError{Status: 500, Body: "boom"}
	h.ready(t)
	ctx := context.Background()

	require.NoError(t, h.manager.StartRecording(ctx))
	h.recorder.tail = [][]byte{bytesOf(6000, 'v')}
	require.NoError(t, h.manager.StopRecording(ctx))

	out := h.outcome(t)
	var serverErr *analysis.ServerError
	require.ErrorAs(t, out.Err, &serverErr)
	require.Equal(t, 1, h.notifier.count("error", "Analysis failed: Server error: 500 - boom"))
	require.Equal(t, indicator.Error("Analysis Failed"), h.manager.Status())
	require.Equal(t, fsm.StateError, h.manager.State())
	require.Zero(t, h.presenter.presented.Load())
	require.Empty(t, h.history.all())

	// the next attempt starts from the error state
	h.uploader.err = nil
	require.NoError(t, h.manager.StartRecording(ctx))
	require.Equal(t, fsm.StateRecording, h.manager.State())
}

func TestAnalysisErrorBodyIsReported(t *testing.T) {
	h := newHarness(t, nil)
	h.uploader.err = &analysis.AnalysisError{Message: "Could not parse model output", Details: "raw"}
	h.ready(t)
	ctx := context.Background()

	require.NoError(t, h.manager.StartRecording(ctx))
	h.recorder.tail = [][]byte{bytesOf(6000, 'v')}
	require.NoError(t, h.manager.StopRecording(ctx))

	h.outcome(t)
	require.Equal(t, 1, h.notifier.count("error", "Analysis failed: Could not parse model output"))
	require.Zero(t, h.presenter.presented.Load())
}

func TestStartIsNoOpWhileRecording(t *testing.T) {
	h := newHarness(t, nil)
	h.ready(t)
	ctx := context.Background()

	require.NoError(t, h.manager.StartRecording(ctx))
	first := h.manager.SessionID()
	require.NoError(t, h.manager.StartRecording(ctx))
	require.Equal(t, int32(1), h.recorder.starts.Load())
	require.Equal(t, first, h.manager.SessionID())
}

func TestStartBeforeInitializeIsNoOp(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.manager.StartRecording(context.Background()))
	require.Equal(t, fsm.StateIdle, h.manager.State())
	require.Zero(t, h.recorder.starts.Load())
}

func TestEachRecordingGetsNewSession(t *testing.T) {
	h := newHarness(t, nil)
	h.ready(t)
	ctx := context.Background()

	require.NoError(t, h.manager.StartRecording(ctx))
	first := h.manager.SessionID()
	h.recorder.tail = [][]byte{bytesOf(10, 'a')}
	require.NoError(t, h.manager.StopRecording(ctx))
	h.outcome(t)

	require.NoError(t, h.manager.StartRecording(ctx))
	second := h.manager.SessionID()
	require.NotEqual(t, first, second)

	h.recorder.tail = [][]byte{bytesOf(20, 'b')}
	require.NoError(t, h.manager.StopRecording(ctx))
	out := h.outcome(t)
	require.Equal(t, 20, out.Bytes)
}

func TestStartFailureResets(t *testing.T) {
	h := newHarness(t, nil)
	h.recorder.startErr = errors.New("ffmpeg exited before recording started")
	h.ready(t)

	err := h.manager.StartRecording(context.Background())
	require.Error(t, err)
	require.Equal(t, 1, h.notifier.count("error", MsgStartFailed))
	require.Equal(t, fsm.StateIdle, h.manager.State())
	require.Equal(t, indicator.Ready(), h.manager.Status())
	require.Empty(t, h.manager.SessionID())
}

func TestStopFailureResets(t *testing.T) {
	h := newHarness(t, nil)
	h.ready(t)
	ctx := context.Background()

	require.NoError(t, h.manager.StartRecording(ctx))
	h.recorder.stopErr = errors.New("signal ffmpeg: no such process")

	err := h.manager.StopRecording(ctx)
	require.Error(t, err)
	require.Equal(t, 1, h.notifier.count("error", MsgStopFailed))
	require.Equal(t, fsm.StateIdle, h.manager.State())
	require.Equal(t, Controls{StartEnabled: true}, h.surface.lastControls())
}

func TestStopWhenIdleIsNoOp(t *testing.T) {
	h := newHarness(t, nil)
	h.ready(t)
	require.NoError(t, h.manager.StopRecording(context.Background()))
	require.Zero(t, h.recorder.stops.Load())
}

func TestStopShowsAnalyzingUntilUploadCompletes(t *testing.T) {
	h := newHarness(t, nil)
	h.ready(t)
	ctx := context.Background()

	require.NoError(t, h.manager.StartRecording(ctx))
	h.recorder.tail = [][]byte{bytesOf(6000, 'z')}
	require.NoError(t, h.manager.StopRecording(ctx))
	h.outcome(t)

	h.surface.mu.Lock()
	statuses := append([]indicator.Status(nil), h.surface.statuses...)
	h.surface.mu.Unlock()
	require.Equal(t, []indicator.Status{
		indicator.Ready(),
		indicator.Recording(),
		indicator.Analyzing(),
		indicator.Complete(),
	}, statuses)
}

func TestToggle(t *testing.T) {
	h := newHarness(t, nil)
	h.ready(t)
	ctx := context.Background()

	require.NoError(t, h.manager.Toggle(ctx))
	require.Equal(t, fsm.StateRecording, h.manager.State())

	h.recorder.tail = [][]byte{bytesOf(6000, 'q')}
	require.NoError(t, h.manager.Toggle(ctx))
	require.Equal(t, int32(1), h.recorder.stops.Load())
	h.outcome(t)
	require.Equal(t, fsm.StateIdle, h.manager.State())
}

func TestHiddenStopsAndWarnsOnce(t *testing.T) {
	h := newHarness(t, nil)
	h.ready(t)
	ctx := context.Background()

	require.NoError(t, h.manager.Hidden(ctx))
	require.Zero(t, h.notifier.count("warning", MsgHidden))

	require.NoError(t, h.manager.StartRecording(ctx))
	h.recorder.tail = [][]byte{bytesOf(6000, 'h')}
	require.NoError(t, h.manager.Hidden(ctx))
	require.NoError(t, h.manager.Hidden(ctx))
	h.outcome(t)
	require.NoError(t, h.manager.Hidden(ctx))

	require.Equal(t, 1, h.notifier.count("warning", MsgHidden))
	require.Equal(t, int32(1), h.recorder.stops.Load())
	require.Len(t, h.uploader.calls(), 1)
}

func TestRecorderErrorDiscardsSession(t *testing.T) {
	h := newHarness(t, nil)
	h.ready(t)
	ctx := context.Background()

	require.NoError(t, h.manager.StartRecording(ctx))
	h.recorder.emit(bytesOf(9000, 'e'))
	h.recorder.fail(errors.New("ffmpeg exited unexpectedly"))

	out := h.outcome(t)
	require.ErrorIs(t, out.Err, ErrRecordingFailed)
	require.Equal(t, 1, h.notifier.count("error", MsgRecordingFailed))
	require.Equal(t, fsm.StateIdle, h.manager.State())
	require.Equal(t, indicator.Ready(), h.manager.Status())
	require.Equal(t, Controls{StartEnabled: true}, h.surface.lastControls())
	require.Empty(t, h.uploader.calls())
	require.Empty(t, h.manager.SessionID())
}

func TestMissingMimeTypeFallsBackToWebM(t *testing.T) {
	h := newHarness(t, nil)
	h.recorder.mime = ""
	h.ready(t)
	ctx := context.Background()

	require.NoError(t, h.manager.StartRecording(ctx))
	h.recorder.tail = [][]byte{bytesOf(6000, 'm')}
	require.NoError(t, h.manager.StopRecording(ctx))
	h.outcome(t)

	clips := h.uploader.calls()
	require.Len(t, clips, 1)
	require.Equal(t, media.FallbackMimeType, clips[0].MimeType)
}

func TestClipDumpWritesDebugCopy(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, func(o *Options) { o.DumpDir = dir })
	h.ready(t)
	ctx := context.Background()

	require.NoError(t, h.manager.StartRecording(ctx))
	h.recorder.tail = [][]byte{bytesOf(6000, 'd')}
	require.NoError(t, h.manager.StopRecording(ctx))
	h.outcome(t)

	matches, err := filepath.Glob(filepath.Join(dir, "debug", "*.webm"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	info, err := os.Stat(matches[0])
	require.NoError(t, err)
	require.Equal(t, int64(6000), info.Size())
}

func TestTeardownIsIdempotent(t *testing.T) {
	h := newHarness(t, nil)
	h.ready(t)
	require.NoError(t, h.manager.StartRecording(context.Background()))

	h.manager.Teardown()
	h.manager.Teardown()
	h.manager.Wait()

	require.Equal(t, int32(1), h.capture.stops.Load())
	require.Equal(t, int32(1), h.indicator.hides.Load())
	require.Equal(t, fsm.StateIdle, h.manager.State())
	require.Empty(t, h.uploader.calls())
	require.Error(t, h.manager.Initialize(context.Background()))
}

func TestTeardownWithoutDevice(t *testing.T) {
	h := newHarness(t, nil)
	h.manager.Teardown()
	require.Zero(t, h.capture.stops.Load())
}

func TestHandleCommands(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	notReady := h.manager.Handle(ctx, ipc.Request{Command: ipc.CommandStart})
	require.False(t, notReady.OK)
	require.Equal(t, "device is not ready", notReady.Error)

	h.ready(t)

	status := h.manager.Handle(ctx, ipc.Request{Command: ipc.CommandStatus})
	require.True(t, status.OK)
	require.Equal(t, string(fsm.StateIdle), status.State)
	require.Equal(t, "Ready", status.Status)

	stop := h.manager.Handle(ctx, ipc.Request{Command: ipc.CommandStop})
	require.False(t, stop.OK)
	require.Contains(t, stop.Error, "cannot stop from state idle")

	start := h.manager.Handle(ctx, ipc.Request{Command: ipc.CommandStart})
	require.True(t, start.OK)
	require.Equal(t, string(fsm.StateRecording), start.State)
	require.Equal(t, "Recording...", start.Status)
	require.NotEmpty(t, start.SessionID)

	again := h.manager.Handle(ctx, ipc.Request{Command: ipc.CommandStart})
	require.False(t, again.OK)
	require.Contains(t, again.Error, "cannot start from state recording")

	h.recorder.tail = [][]byte{bytesOf(6000, 'i')}
	toggled := h.manager.Handle(ctx, ipc.Request{Command: ipc.CommandToggle})
	require.True(t, toggled.OK)
	h.outcome(t)

	hide := h.manager.Handle(ctx, ipc.Request{Command: ipc.CommandHide})
	require.True(t, hide.OK)

	unknown := h.manager.Handle(ctx, ipc.Request{Command: "cancel"})
	require.False(t, unknown.OK)
	require.Contains(t, unknown.Error, "unknown command")
}

func TestNoopCollaboratorsAreSafe(t *testing.T) {
	recorder := newFakeRecorder("video/mp4")
	outcomes := make(chan Outcome, 1)
	m := NewManager(Options{
		Opener:    &fakeOpener{capture: &fakeCapture{recorder: recorder}},
		OnOutcome: func(o Outcome) { outcomes <- o },
	})
	defer m.Teardown()
	ctx := context.Background()

	require.NoError(t, m.Initialize(ctx))
	require.NoError(t, m.StartRecording(ctx))
	recorder.tail = [][]byte{bytesOf(6000, 'n')}
	require.NoError(t, m.StopRecording(ctx))

	out := <-outcomes
	require.Error(t, out.Err)
	require.Contains(t, out.Err.Error(), "no analysis backend configured")
}

func TestNoopPresenterBuildsView(t *testing.T) {
	view := noopPresenter{}.Present(analysis.Result{ConfidenceScore: 91})
	require.Equal(t, dashboard.TierExcellent, view.Tier)
}

func TestStartWhileUploadingIsRejectedWithNotice(t *testing.T) {
	uploader := newGatedUploader()
	h := newHarness(t, func(o *Options) { o.Uploader = uploader })
	h.ready(t)
	ctx := context.Background()

	require.NoError(t, h.manager.StartRecording(ctx))
	h.recorder.tail = [][]byte{bytesOf(6000, 'u')}
	require.NoError(t, h.manager.StopRecording(ctx))
	require.Equal(t, Controls{}, h.surface.lastControls())

	select {
	case <-uploader.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for upload to begin")
	}
	require.Equal(t, fsm.StateUploading, h.manager.State())
	require.Equal(t, Controls{}, h.surface.lastControls())

	require.ErrorIs(t, h.manager.StartRecording(ctx), ErrAnalysisPending)
	require.ErrorIs(t, h.manager.Toggle(ctx), ErrAnalysisPending)
	require.Equal(t, int32(1), h.recorder.starts.Load())
	require.Equal(t, fsm.StateUploading, h.manager.State())
	require.Equal(t, 2, h.notifier.count("info", MsgStillAnalyzing))

	toggled := h.manager.Handle(ctx, ipc.Request{Command: ipc.CommandToggle})
	require.False(t, toggled.OK)
	require.Equal(t, ErrAnalysisPending.Error(), toggled.Error)

	close(uploader.release)
	outcome := h.outcome(t)
	require.NoError(t, outcome.Err)
	require.Equal(t, fsm.StateIdle, h.manager.State())
	require.Equal(t, Controls{StartEnabled: true, Dashboard: true}, h.surface.lastControls())

	require.NoError(t, h.manager.StartRecording(ctx))
	require.Equal(t, fsm.StateRecording, h.manager.State())
	require.Equal(t, int32(2), h.recorder.starts.Load())
}
