package dashboard

import (
	"time"

	"github.com/rbright/rehearse/internal/analysis"
)

// Sink displays a built view.
type Sink interface {
	Show(View)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(View)

func (f SinkFunc) Show(v View) { f(v) }

// Notifier is the success channel the presenter reports through.
type Notifier interface {
	Success(message string)
}

// Presenter builds views from results and hands them to the surface.
type Presenter struct {
	sink     Sink
	notifier Notifier
	now      func() time.Time
}

// NewPresenter wires a presenter. Either argument may be nil.
func NewPresenter(sink Sink, notifier Notifier) *Presenter {
	return &Presenter{sink: sink, notifier: notifier, now: time.Now}
}

// Present builds the view, shows it, and announces completion.
func (p *Presenter) Present(result analysis.Result) View {
	view := Build(result, p.now())
	if p.sink != nil {
		p.sink.Show(view)
	}
	if p.notifier != nil {
		p.notifier.Success(CompleteMessage)
	}
	return view
}
