package media

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"syscall"
)

// DeviceErrorKind classifies why camera/microphone access failed.
type DeviceErrorKind string

const (
	DeviceNotFound         DeviceErrorKind = "not_found"
	DevicePermissionDenied DeviceErrorKind = "permission_denied"
	DeviceBusy             DeviceErrorKind = "busy"
	DeviceUnknown          DeviceErrorKind = "unknown"
)

// DeviceError reports a failed device acquisition.
type DeviceError struct {
	Kind   DeviceErrorKind
	Device string
	Err    error
}

func (e *DeviceError) Error() string {
	if e.Device == "" {
		return fmt.Sprintf("device %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("device %s (%s): %v", e.Kind, e.Device, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// UserMessage is the text shown to the user for this failure.
func (e *DeviceError) UserMessage() string {
	return UserMessage(e.Kind)
}

// UserMessage maps a failure kind to its user-facing explanation.
func UserMessage(kind DeviceErrorKind) string {
	switch kind {
	case DeviceNotFound:
		return "No camera/microphone found. Please connect a device."
	case DevicePermissionDenied:
		return "Camera/microphone permission denied. Please allow access."
	case DeviceBusy:
		return "Camera/microphone is busy. Please close other apps using it."
	default:
		return "Failed to access camera/microphone. Please check permissions."
	}
}

// classifyDeviceError wraps err in a DeviceError with a kind derived from
// the platform errno or the Pulse error text.
func classifyDeviceError(device string, err error) *DeviceError {
	var existing *DeviceError
	if errors.As(err, &existing) {
		return existing
	}
	return &DeviceError{Kind: deviceErrorKind(err), Device: device, Err: err}
}

func deviceErrorKind(err error) DeviceErrorKind {
	switch {
	case err == nil:
		return DeviceUnknown
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENODEV), errors.Is(err, syscall.ENXIO):
		return DeviceNotFound
	case errors.Is(err, fs.ErrPermission), errors.Is(err, syscall.EACCES), errors.Is(err, syscall.EPERM):
		return DevicePermissionDenied
	case errors.Is(err, syscall.EBUSY):
		return DeviceBusy
	}

	text := strings.ToLower(err.Error())
	switch {
	case strings.Contains(text, "no such entity"),
		strings.Contains(text, "no audio input devices"),
		strings.Contains(text, "did not match any device"),
		strings.Contains(text, "not found"):
		return DeviceNotFound
	case strings.Contains(text, "access denied"), strings.Contains(text, "permission denied"):
		return DevicePermissionDenied
	case strings.Contains(text, "busy"):
		return DeviceBusy
	default:
		return DeviceUnknown
	}
}
