package session

import (
	"context"

	"github.com/rbright/rehearse/internal/analysis"
	"github.com/rbright/rehearse/internal/dashboard"
	"github.com/rbright/rehearse/internal/history"
	"github.com/rbright/rehearse/internal/indicator"
	"github.com/rbright/rehearse/internal/media"
)

// Capture is an acquired device stream with its bound recorder.
type Capture interface {
	Recorder() media.Recorder
	Stop() error
}

// Opener acquires the device stream and negotiates its recorder.
type Opener interface {
	Open(context.Context) (Capture, error)
}

// Uploader sends a finished clip for analysis.
type Uploader interface {
	Analyze(context.Context, analysis.Clip) (analysis.Result, error)
}

// Presenter shows an analysis result.
type Presenter interface {
	Present(analysis.Result) dashboard.View
}

// Notifier is the user-facing notification channel.
type Notifier interface {
	Info(string)
	Success(string)
	Warning(string)
	Error(string)
}

// HistorySaver persists analyzed sessions.
type HistorySaver interface {
	Save(context.Context, history.Record) error
}

// Controls is the enabled/visible state of the recording surface.
type Controls struct {
	StartEnabled bool
	StopEnabled  bool
	Overlay      bool
	Dashboard    bool
}

// Surface receives control and status updates.
type Surface interface {
	SetControls(Controls)
	SetStatus(indicator.Status)
}

type noopIndicator struct{}

func (noopIndicator) Show(context.Context, indicator.Status) {}
func (noopIndicator) Hide(context.Context)                   {}

type noopSurface struct{}

func (noopSurface) SetControls(Controls)       {}
func (noopSurface) SetStatus(indicator.Status) {}

type noopNotifier struct{}

func (noopNotifier) Info(string)    {}
func (noopNotifier) Success(string) {}
func (noopNotifier) Warning(string) {}
func (noopNotifier) Error(string)   {}

type noopPresenter struct{}

func (noopPresenter) Present(result analysis.Result) dashboard.View {
	return dashboard.Build(result, nowFunc())
}
