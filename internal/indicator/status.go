package indicator

// StatusKind is the coarse state shown by every status surface.
type StatusKind string

const (
	StatusReady     StatusKind = "ready"
	StatusRecording StatusKind = "recording"
	StatusAnalyzing StatusKind = "analyzing"
	StatusComplete  StatusKind = "complete"
	StatusError     StatusKind = "error"
)

// Status is a kind plus, for errors, the message to display.
type Status struct {
	Kind    StatusKind
	Message string
}

func Ready() Status     { return Status{Kind: StatusReady} }
func Recording() Status { return Status{Kind: StatusRecording} }
func Analyzing() Status { return Status{Kind: StatusAnalyzing} }
func Complete() Status  { return Status{Kind: StatusComplete} }

// Error builds an error status carrying message.
func Error(message string) Status {
	return Status{Kind: StatusError, Message: message}
}

// Label is the user-facing text for the status.
func (s Status) Label() string {
	return defaultMessages.label(s)
}
