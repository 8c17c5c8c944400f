//go:build !linux

package notify

// New returns the notifier for this platform
func New() Notifier {
	return LogNotifier{}
}
