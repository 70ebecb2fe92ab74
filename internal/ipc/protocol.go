// Package ipc is the single-owner control socket of a running rehearse session.
package ipc

import "strings"

// Commands understood by the owner.
const (
	CommandStatus = "status"
	CommandToggle = "toggle"
	CommandStart  = "start"
	CommandStop   = "stop"
	CommandHide   = "hide"
)

// Request is one JSON line sent to the owner.
type Request struct {
	Command string `json:"command"`
}

// Response is the owner's one-line JSON reply.
type Response struct {
	OK        bool   `json:"ok"`
	State     string `json:"state,omitempty"`
	Status    string `json:"status,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ValidCommand reports whether command is part of the control protocol.
func ValidCommand(command string) bool {
	switch strings.TrimSpace(command) {
	case CommandStatus, CommandToggle, CommandStart, CommandStop, CommandHide:
		return true
	default:
		return false
	}
}
