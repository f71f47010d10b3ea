package notify

import "log"

// Notifier raises a local desktop notification. The client shell (Capacitor or
// Electron) supplies the real implementation; server-side processes use LogNotifier.
type Notifier interface {
	Notify(title, body string)
}

// LogNotifier writes notifications to the operational log.
type LogNotifier struct{}

// Notify logs the notification.
func (LogNotifier) Notify(title, body string) {
	log.Printf("notify: %s: %s", title, body)
}
