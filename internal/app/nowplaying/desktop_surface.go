package nowplaying

import (
	"fmt"
	"strings"
	"sync"

	zlog "github.com/rs/zerolog/log"
)

// DesktopNotifier sends a desktop notification.
type DesktopNotifier interface {
	Notify(title, message string) error
}

// DesktopSurface shows a notification whenever a new track starts playing.
type DesktopSurface struct {
	notifier DesktopNotifier
	handlers handlerSet
	announce announcer
	wg       sync.WaitGroup
}

// NewDesktopSurface creates a desktop notification surface.
func NewDesktopSurface(notifier DesktopNotifier) *DesktopSurface {
	return &DesktopSurface{notifier: notifier}
}

func (s *DesktopSurface) Name() string { return "desktop" }

func (s *DesktopSurface) SetMetadata(m *Metadata) {
	s.show(s.announce.setMetadata(m))
}

func (s *DesktopSurface) SetPlaybackState(state SessionState) {
	s.show(s.announce.setState(state))
}

func (s *DesktopSurface) SetActionHandler(action Action, handler ActionHandler) {
	s.handlers.set(action, handler)
}

// Close waits for pending notifications.
func (s *DesktopSurface) Close() error {
	s.wg.Wait()
	return nil
}

func (s *DesktopSurface) show(m *Metadata) {
	if m == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.notifier.Notify(m.Title, subtitle(m)); err != nil {
			zlog.Warn().Msgf("desktop surface: %v", err)
		}
	}()
}

// subtitle joins artist and album, skipping empty parts.
func subtitle(m *Metadata) string {
	var parts []string
	if m.Artist != "" {
		parts = append(parts, m.Artist)
	}
	if m.Album != "" {
		parts = append(parts, m.Album)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%d:%02d", int(m.Duration.Minutes()), int(m.Duration.Seconds())%60)
	}
	return strings.Join(parts, " - ")
}
