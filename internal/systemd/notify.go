// Package systemd reports service state to the systemd manager.
package systemd

import (
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/smazurov/camspeed/internal/logging"
)

// Notifier sends sd_notify messages. Outside systemd (no NOTIFY_SOCKET) the
// messages are dropped.
type Notifier struct {
	notify func(unsetEnv bool, state string) (bool, error)
	logger logging.Logger
}

// NewNotifier creates a notifier using daemon.SdNotify.
func NewNotifier(logger logging.Logger) *Notifier {
	return &Notifier{notify: daemon.SdNotify, logger: logger}
}

// Ready tells systemd the service finished starting.
func (n *Notifier) Ready() {
	n.send(daemon.SdNotifyReady)
}

// Stopping tells systemd the service is shutting down.
func (n *Notifier) Stopping() {
	n.send(daemon.SdNotifyStopping)
}

// Status sets the free-form status line shown by systemctl status.
func (n *Notifier) Status(msg string) {
	n.send("STATUS=" + msg)
}

func (n *Notifier) send(state string) {
	sent, err := n.notify(false, state)
	if err != nil {
		n.logger.Warn("sd_notify failed", "state", state, "error", err)
		return
	}
	if sent {
		n.logger.Debug("sd_notify sent", "state", state)
	}
}
