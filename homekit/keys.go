package homekit

import (
	"github.com/brutella/hc/characteristic"

	"github.com/brutella/hkphilipstv/reconciler"
)

var remoteKeyCommands = map[int]reconciler.RemoteCommand{
	characteristic.RemoteKeyRewind:      reconciler.Rewind,
	characteristic.RemoteKeyFastForward: reconciler.FastForward,
	characteristic.RemoteKeyNextTrack:   reconciler.Next,
	characteristic.RemoteKeyPrevTrack:   reconciler.Previous,
	characteristic.RemoteKeyArrowUp:     reconciler.CursorUp,
	characteristic.RemoteKeyArrowDown:   reconciler.CursorDown,
	characteristic.RemoteKeyArrowLeft:   reconciler.CursorLeft,
	characteristic.RemoteKeyArrowRight:  reconciler.CursorRight,
	characteristic.RemoteKeySelect:      reconciler.Select,
	characteristic.RemoteKeyBack:        reconciler.Back,
	characteristic.RemoteKeyExit:        reconciler.Exit,
	characteristic.RemoteKeyPlayPause:   reconciler.PlayPause,
	characteristic.RemoteKeyInfo:        reconciler.Info,
}

var volumeSelectorCommands = map[int]reconciler.RemoteCommand{
	characteristic.VolumeSelectorIncrement: reconciler.VolumeUp,
	characteristic.VolumeSelectorDecrement: reconciler.VolumeDown,
}
