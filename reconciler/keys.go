package reconciler

import (
	"errors"
	"fmt"
)

// ErrUnsupportedCommand is returned for commands without a native key.
var ErrUnsupportedCommand = errors.New("unsupported remote command")

// RemoteCommand is a host-facing key press, independent of the television's key names.
type RemoteCommand int

const (
	Rewind RemoteCommand = iota
	FastForward
	Next
	Previous
	CursorUp
	CursorDown
	CursorLeft
	CursorRight
	Select
	Back
	Exit
	PlayPause
	Info
	VolumeUp
	VolumeDown
)

var commandNames = map[RemoteCommand]string{
	Rewind:      "rewind",
	FastForward: "fast-forward",
	Next:        "next",
	Previous:    "previous",
	CursorUp:    "cursor-up",
	CursorDown:  "cursor-down",
	CursorLeft:  "cursor-left",
	CursorRight: "cursor-right",
	Select:      "select",
	Back:        "back",
	Exit:        "exit",
	PlayPause:   "play-pause",
	Info:        "info",
	VolumeUp:    "volume-up",
	VolumeDown:  "volume-down",
}

func (c RemoteCommand) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("RemoteCommand(%d)", int(c))
}

// nativeKeys are the JointSpace input/key names.
var nativeKeys = map[RemoteCommand]string{
	Rewind:      "Rewind",
	FastForward: "FastForward",
	Next:        "Next",
	Previous:    "Previous",
	CursorUp:    "CursorUp",
	CursorDown:  "CursorDown",
	CursorLeft:  "CursorLeft",
	CursorRight: "CursorRight",
	Select:      "Confirm",
	Back:        "Back",
	Exit:        "Back",
	PlayPause:   "PlayPause",
	Info:        "Home",
	VolumeUp:    "VolumeUp",
	VolumeDown:  "VolumeDown",
}

// KeyMap returns the native key table with an optional play/pause override.
func KeyMap(playPauseKey string) map[RemoteCommand]string {
	keys := make(map[RemoteCommand]string, len(nativeKeys))
	for cmd, key := range nativeKeys {
		keys[cmd] = key
	}
	if playPauseKey != "" {
		keys[PlayPause] = playPauseKey
	}
	return keys
}
