// Package desktop shows desktop notifications.
package desktop

import (
	"github.com/cockroachdb/errors"
	"github.com/gen2brain/beeep"
)

// Notifier sends desktop notifications through the platform notification service.
type Notifier struct {
	icon   string
	notify func(title, message string, icon any) error
}

// New creates a notifier. appName is shown as the notification source where
// the platform supports it; icon is a path to an image file and may be empty.
func New(appName, icon string) *Notifier {
	if appName != "" {
		beeep.AppName = appName
	}
	return &Notifier{
		icon:   icon,
		notify: beeep.Notify,
	}
}

// Notify shows a notification.
func (n *Notifier) Notify(title, message string) error {
	var icon any = ""
	if n.icon != "" {
		icon = n.icon
	}
	if err := n.notify(title, message, icon); err != nil {
		return errors.Wrap(err, "failed to send desktop notification")
	}
	return nil
}
