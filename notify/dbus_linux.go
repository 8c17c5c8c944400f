//go:build linux

package notify

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	notificationsDest   = "org.freedesktop.Notifications"
	notificationsPath   = dbus.ObjectPath("/org/freedesktop/Notifications")
	notificationsMethod = "org.freedesktop.Notifications.Notify"
	appName             = "winchord"
	expireMs            = int32(3000)
)

// DBusNotifier posts desktop notifications on the session bus. Each message
// replaces the previous one so only the latest guidance stays on screen.
type DBusNotifier struct {
	conn *dbus.Conn
	obj  dbus.BusObject

	mu     sync.Mutex
	lastID uint32
}

// NewDBus connects to the session bus
func NewDBus() (*DBusNotifier, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &DBusNotifier{
		conn: conn,
		obj:  conn.Object(notificationsDest, notificationsPath),
	}, nil
}

// Notify shows title and body as a desktop notification
func (n *DBusNotifier) Notify(title, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	call := n.obj.Call(notificationsMethod, 0,
		appName, n.lastID, "", title, body,
		[]string{}, map[string]dbus.Variant{}, expireMs)
	if call.Err != nil {
		return fmt.Errorf("failed to send notification: %w", call.Err)
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return fmt.Errorf("failed to read notification id: %w", err)
	}
	n.lastID = id
	return nil
}

// Close releases the bus connection
func (n *DBusNotifier) Close() error {
	return n.conn.Close()
}

// New returns a desktop notifier, falling back to logging when no session bus
// is reachable
func New() Notifier {
	n, err := NewDBus()
	if err != nil {
		slog.Warn("Desktop notifications unavailable, logging guidance instead", "error", err)
		return LogNotifier{}
	}
	return n
}
