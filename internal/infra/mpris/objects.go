package mpris

import (
	"time"

	"github.com/godbus/dbus/v5"
)

// rootObject implements org.mpris.MediaPlayer2. The player has no window and cannot quit.
type rootObject struct{}

func (rootObject) Raise() *dbus.Error { return nil }
func (rootObject) Quit() *dbus.Error  { return nil }

// playerObject implements the methods of org.mpris.MediaPlayer2.Player.
type playerObject struct {
	server *Server
}

func (p *playerObject) Next() *dbus.Error {
	p.server.dispatch(CommandNext, 0)
	return nil
}

func (p *playerObject) Previous() *dbus.Error {
	p.server.dispatch(CommandPrevious, 0)
	return nil
}

func (p *playerObject) Pause() *dbus.Error {
	p.server.dispatch(CommandPause, 0)
	return nil
}

func (p *playerObject) PlayPause() *dbus.Error {
	p.server.dispatch(CommandPlayPause, 0)
	return nil
}

func (p *playerObject) Stop() *dbus.Error {
	p.server.dispatch(CommandStop, 0)
	return nil
}

func (p *playerObject) Play() *dbus.Error {
	p.server.dispatch(CommandPlay, 0)
	return nil
}

// playerMethodNames maps Go method names that differ from their D-Bus names.
// Seek is exported as SeekBy so it does not collide with io.Seeker.
var playerMethodNames = map[string]string{
	"SeekBy": "Seek",
}

// SeekBy implements the Seek method: move by offset microseconds.
func (p *playerObject) SeekBy(offset int64) *dbus.Error {
	p.server.dispatch(CommandSeek, time.Duration(offset)*time.Microsecond)
	return nil
}

// SetPosition is ignored unless trackID names the current track.
func (p *playerObject) SetPosition(trackID dbus.ObjectPath, position int64) *dbus.Error {
	if trackID != p.server.currentTrack() || position < 0 {
		return nil
	}
	p.server.dispatch(CommandSetPosition, time.Duration(position)*time.Microsecond)
	return nil
}

func (p *playerObject) OpenUri(string) *dbus.Error {
	return dbus.MakeFailedError(errUnsupported)
}
