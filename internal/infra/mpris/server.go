// Package mpris exposes a media player on the D-Bus session bus using the
// MPRIS2 interfaces, so desktop media keys and lock screens can show and
// control it.
//
// Reference: https://specifications.freedesktop.org/mpris-spec/latest/
package mpris

import (
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"
	zlog "github.com/rs/zerolog/log"
)

const (
	busNamePrefix   = "org.mpris.MediaPlayer2."
	objectPath      = dbus.ObjectPath("/org/mpris/MediaPlayer2")
	rootInterface   = "org.mpris.MediaPlayer2"
	playerInterface = "org.mpris.MediaPlayer2.Player"
	noTrackPath     = dbus.ObjectPath("/org/mpris/MediaPlayer2/TrackList/NoTrack")
)

// PlaybackStatus is the MPRIS PlaybackStatus property value.
type PlaybackStatus string

const (
	StatusPlaying PlaybackStatus = "Playing"
	StatusPaused  PlaybackStatus = "Paused"
	StatusStopped PlaybackStatus = "Stopped"
)

// Command is a method call received from an MPRIS client.
type Command int

const (
	CommandPlay        Command = iota // Play
	CommandPause                      // Pause
	CommandPlayPause                  // PlayPause
	CommandStop                       // Stop
	CommandNext                       // Next
	CommandPrevious                   // Previous
	CommandSeek                       // Seek by a relative offset
	CommandSetPosition                // SetPosition to an absolute position
)

// String returns the MPRIS method name of the command.
func (c Command) String() string {
	switch c {
	case CommandPlay:
		return "Play"
	case CommandPause:
		return "Pause"
	case CommandPlayPause:
		return "PlayPause"
	case CommandStop:
		return "Stop"
	case CommandNext:
		return "Next"
	case CommandPrevious:
		return "Previous"
	case CommandSeek:
		return "Seek"
	case CommandSetPosition:
		return "SetPosition"
	default:
		return "Unknown"
	}
}

// CommandHandler receives commands. arg is the offset for CommandSeek and
// the position for CommandSetPosition.
type CommandHandler func(cmd Command, arg time.Duration)

// Metadata is the track shown by MPRIS clients.
type Metadata struct {
	TrackID string
	Title   string
	Artist  string
	Album   string
	ArtURL  string
	Length  time.Duration
}

// Server is an MPRIS2 media player exported on the session bus.
type Server struct {
	conn    *dbus.Conn
	props   *prop.Properties
	busName string

	mu      sync.RWMutex
	handler CommandHandler
	trackID dbus.ObjectPath
}

// Connect exports a player named busNamePrefix+name on the session bus.
func Connect(name, identity string) (*Server, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to session bus")
	}

	s := &Server{
		conn:    conn,
		busName: busNamePrefix + sanitize(name),
		trackID: noTrackPath,
	}
	if err := s.export(identity); err != nil {
		conn.Close()
		return nil, err
	}

	reply, err := conn.RequestName(s.busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return nil, errors.Wrapf(err, "failed to request bus name %s", s.busName)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return nil, errors.Newf("bus name %s is already taken", s.busName)
	}

	zlog.Info().Msgf("mpris: exported player: name=%s", s.busName)
	return s, nil
}

func (s *Server) export(identity string) error {
	root := &rootObject{}
	player := &playerObject{server: s}

	if err := s.conn.Export(root, objectPath, rootInterface); err != nil {
		return errors.Wrap(err, "failed to export root interface")
	}
	if err := s.conn.ExportWithMap(player, playerMethodNames, objectPath, playerInterface); err != nil {
		return errors.Wrap(err, "failed to export player interface")
	}

	props, err := prop.Export(s.conn, objectPath, prop.Map{
		rootInterface: {
			"CanQuit":             {Value: false, Emit: prop.EmitFalse},
			"CanRaise":            {Value: false, Emit: prop.EmitFalse},
			"HasTrackList":        {Value: false, Emit: prop.EmitFalse},
			"Identity":            {Value: identity, Emit: prop.EmitFalse},
			"SupportedUriSchemes": {Value: []string{}, Emit: prop.EmitFalse},
			"SupportedMimeTypes":  {Value: []string{}, Emit: prop.EmitFalse},
		},
		playerInterface: {
			"PlaybackStatus": {Value: string(StatusStopped), Emit: prop.EmitTrue},
			"LoopStatus":     {Value: "None", Emit: prop.EmitFalse},
			"Rate":           {Value: 1.0, Emit: prop.EmitFalse},
			"Shuffle":        {Value: false, Emit: prop.EmitFalse},
			"Metadata":       {Value: metadataMap(nil), Emit: prop.EmitTrue},
			"Volume":         {Value: 1.0, Emit: prop.EmitFalse},
			"Position":       {Value: int64(0), Emit: prop.EmitFalse},
			"MinimumRate":    {Value: 1.0, Emit: prop.EmitFalse},
			"MaximumRate":    {Value: 1.0, Emit: prop.EmitFalse},
			"CanGoNext":      {Value: true, Emit: prop.EmitTrue},
			"CanGoPrevious":  {Value: true, Emit: prop.EmitTrue},
			"CanPlay":        {Value: true, Emit: prop.EmitTrue},
			"CanPause":       {Value: true, Emit: prop.EmitTrue},
			"CanSeek":        {Value: true, Emit: prop.EmitTrue},
			"CanControl":     {Value: true, Emit: prop.EmitFalse},
		},
	})
	if err != nil {
		return errors.Wrap(err, "failed to export properties")
	}
	s.props = props

	node := &introspect.Node{
		Name: string(objectPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			{
				Name:       rootInterface,
				Methods:    introspect.Methods(root),
				Properties: props.Introspection(rootInterface),
			},
			{
				Name:       playerInterface,
				Methods:    renameMethods(introspect.Methods(player), playerMethodNames),
				Properties: props.Introspection(playerInterface),
				Signals: []introspect.Signal{
					{Name: "Seeked", Args: []introspect.Arg{{Name: "Position", Type: "x"}}},
				},
			},
		},
	}
	if err := s.conn.Export(introspect.NewIntrospectable(node), objectPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		return errors.Wrap(err, "failed to export introspection")
	}
	return nil
}

// OnCommand sets the handler for incoming commands. nil drops them.
func (s *Server) OnCommand(handler CommandHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
}

func (s *Server) dispatch(cmd Command, arg time.Duration) {
	s.mu.RLock()
	handler := s.handler
	s.mu.RUnlock()

	zlog.Debug().Msgf("mpris: command: %s arg=%v", cmd, arg)
	if handler != nil {
		handler(cmd, arg)
	}
}

// SetMetadata replaces the Metadata property. nil clears it.
func (s *Server) SetMetadata(m *Metadata) {
	s.mu.Lock()
	s.trackID = noTrackPath
	if m != nil {
		s.trackID = trackPath(m.TrackID)
	}
	s.mu.Unlock()

	s.props.SetMust(playerInterface, "Metadata", metadataMap(m))
}

// SetPlaybackStatus updates the PlaybackStatus property.
func (s *Server) SetPlaybackStatus(status PlaybackStatus) {
	s.props.SetMust(playerInterface, "PlaybackStatus", string(status))
}

// SetPosition updates the Position property without signalling, as MPRIS
// clients poll it.
func (s *Server) SetPosition(position time.Duration) {
	s.props.SetMust(playerInterface, "Position", position.Microseconds())
}

// renameMethods applies the same Go-to-D-Bus names used at export time.
func renameMethods(methods []introspect.Method, names map[string]string) []introspect.Method {
	for i := range methods {
		if name, ok := names[methods[i].Name]; ok {
			methods[i].Name = name
		}
	}
	return methods
}

// Seeked updates the position and emits the Seeked signal.
func (s *Server) Seeked(position time.Duration) error {
	s.SetPosition(position)
	return s.conn.Emit(objectPath, playerInterface+".Seeked", position.Microseconds())
}

// Close releases the bus name and closes the connection.
func (s *Server) Close() error {
	if _, err := s.conn.ReleaseName(s.busName); err != nil {
		zlog.Warn().Msgf("mpris: failed to release bus name: %v", err)
	}
	return s.conn.Close()
}

func (s *Server) currentTrack() dbus.ObjectPath {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trackID
}

// metadataMap converts m to the xesam/mpris metadata dictionary.
func metadataMap(m *Metadata) map[string]dbus.Variant {
	if m == nil {
		return map[string]dbus.Variant{
			"mpris:trackid": dbus.MakeVariant(noTrackPath),
		}
	}

	md := map[string]dbus.Variant{
		"mpris:trackid": dbus.MakeVariant(trackPath(m.TrackID)),
		"xesam:title":   dbus.MakeVariant(m.Title),
	}
	if m.Length > 0 {
		md["mpris:length"] = dbus.MakeVariant(m.Length.Microseconds())
	}
	if m.Artist != "" {
		md["xesam:artist"] = dbus.MakeVariant([]string{m.Artist})
	}
	if m.Album != "" {
		md["xesam:album"] = dbus.MakeVariant(m.Album)
	}
	if m.ArtURL != "" {
		md["mpris:artUrl"] = dbus.MakeVariant(m.ArtURL)
	}
	return md
}

// trackPath turns a track ID into a valid D-Bus object path.
func trackPath(trackID string) dbus.ObjectPath {
	if trackID == "" {
		return noTrackPath
	}
	return dbus.ObjectPath("/org/tapedeck/track/" + sanitize(trackID))
}

// sanitize replaces every character that is not allowed in a D-Bus path
// element or bus name element with '_'.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
