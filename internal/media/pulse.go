package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// Device describes one Pulse input source surfaced to rehearse.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Selection is the resolved capture source plus optional fallback warning context.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

// ListDevices returns available Pulse input sources with default/availability metadata.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := newPulseClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}
	defaultID := defaultSource.ID()

	var sourceInfos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &sourceInfos); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	devices := make([]Device, 0, len(sourceInfos))
	for _, source := range sourceInfos {
		if source == nil {
			continue
		}
		devices = append(devices, Device{
			ID:          source.SourceName,
			Description: source.Device,
			State:       sourceStateString(source.State),
			Available:   sourceAvailable(source),
			Muted:       source.Mute,
			Default:     source.SourceName == defaultID,
		})
	}
	return devices, nil
}

// SelectDevice resolves audio.input/audio.fallback preferences against live devices.
func SelectDevice(ctx context.Context, input string, fallback string) (Selection, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return Selection{}, err
	}
	return selectDeviceFromList(devices, input, fallback)
}

// selectDeviceFromList picks the device for input, switching to fallback
// (or the default source) when the input is muted or unplugged.
func selectDeviceFromList(devices []Device, input string, fallback string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, errors.New("no audio input devices found")
	}

	primary, ok := findDevice(devices, input)
	if !ok {
		if isDefaultPreference(input) {
			return Selection{}, errors.New("default audio source is unavailable")
		}
		return Selection{}, fmt.Errorf("audio.input %q did not match any device", normalizePreference(input))
	}
	reason := unusableReason(primary)
	if reason == "" {
		return Selection{Device: primary}, nil
	}

	alt, ok := findDevice(devices, fallback)
	if !ok {
		if isDefaultPreference(fallback) {
			return Selection{}, fmt.Errorf("primary input %q is %s and no usable fallback: default audio source is unavailable", primary.ID, reason)
		}
		return Selection{}, fmt.Errorf("primary input %q is %s and fallback %q not found", primary.ID, reason, normalizePreference(fallback))
	}
	switch unusableReason(alt) {
	case "muted":
		return Selection{}, fmt.Errorf("audio fallback device %q is muted", alt.ID)
	case "unavailable":
		return Selection{}, fmt.Errorf("audio fallback device %q is not available", alt.ID)
	}

	return Selection{
		Device:   alt,
		Warning:  fmt.Sprintf("audio.input %q is %s; falling back to %q", primary.ID, reason, alt.ID),
		Fallback: alt.ID != primary.ID,
	}, nil
}

// findDevice resolves a preference: "" or "default" is the default source,
// an exact id wins over a substring match on id or description.
func findDevice(devices []Device, preference string) (Device, bool) {
	term := normalizePreference(preference)
	if isDefaultPreference(term) {
		for _, dev := range devices {
			if dev.Default {
				return dev, true
			}
		}
		return Device{}, false
	}

	for _, dev := range devices {
		if strings.EqualFold(dev.ID, term) {
			return dev, true
		}
	}
	for _, dev := range devices {
		if deviceMatches(dev, term) {
			return dev, true
		}
	}
	return Device{}, false
}

func normalizePreference(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func isDefaultPreference(raw string) bool {
	term := normalizePreference(raw)
	return term == "" || term == "default"
}

// unusableReason is "" for a device that can record.
func unusableReason(dev Device) string {
	switch {
	case dev.Muted:
		return "muted"
	case !dev.Available:
		return "unavailable"
	default:
		return ""
	}
}

// AudioBackend lists microphone sources and holds the selected one open
// for the lifetime of a Stream.
type AudioBackend interface {
	Devices(ctx context.Context) ([]Device, error)
	Hold(ctx context.Context, device Device) (io.Closer, error)
}

// PulseBackend is the AudioBackend used outside tests.
type PulseBackend struct{}

// Devices lists Pulse input sources.
func (PulseBackend) Devices(ctx context.Context) ([]Device, error) {
	return ListDevices(ctx)
}

// Hold keeps a Pulse client connected to the selected source so that a
// vanished source is reported at Open rather than mid-recording.
func (PulseBackend) Hold(_ context.Context, device Device) (io.Closer, error) {
	client, err := newPulseClient()
	if err != nil {
		return nil, err
	}
	if _, err := client.SourceByID(device.ID); err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", device.ID, err)
	}
	return closerFunc(func() error {
		client.Close()
		return nil
	}), nil
}

func newPulseClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("rehearse"),
		pulse.ClientApplicationIconName("camera-web"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}

type closerFunc func() error

func (f closerFunc) Close() error {
	return f()
}

// deviceMatches reports whether a search term matches a device id or description.
func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	id := strings.ToLower(device.ID)
	desc := strings.ToLower(device.Description)
	return strings.Contains(id, term) || strings.Contains(desc, term)
}

var sourceStates = map[uint32]string{0: "running", 1: "idle", 2: "suspended"}

func sourceStateString(state uint32) string {
	if name, ok := sourceStates[state]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", state)
}

// portUnavailable is PulseAudio's "no" port availability; "unknown" (0)
// and "yes" (2) both count as plugged in.
const portUnavailable = 1

// sourceAvailable reports whether the source's active port is plugged in.
// Sources without ports are always available.
func sourceAvailable(source *pulseproto.GetSourceInfoReply) bool {
	if source == nil {
		return false
	}
	for _, port := range source.Ports {
		if port.Name == source.ActivePortName {
			return port.Available != portUnavailable
		}
	}
	return true
}
