package systray

import (
	"log/slog"
	"os/exec"
	"runtime"
	"sync"

	"github.com/getlantern/systray"
)

// Actions are invoked from menu clicks
type Actions struct {
	Pause     func()
	Resume    func()
	Configure func()
}

// SystrayManager manages the system tray icon and menu
type SystrayManager struct {
	webURL   string
	iconData []byte
	actions  Actions
	quit     chan struct{}
	quitOnce sync.Once

	mu          sync.Mutex
	paused      bool
	alwaysOnTop bool
	mStatus     *systray.MenuItem
	mToggle     *systray.MenuItem
	mOnTop      *systray.MenuItem
}

// NewSystrayManager creates a new systray manager. An empty webURL hides the
// web UI entry.
func NewSystrayManager(webURL string, iconData []byte, actions Actions) *SystrayManager {
	return &SystrayManager{
		webURL:   webURL,
		iconData: iconData,
		actions:  actions,
		quit:     make(chan struct{}),
	}
}

// Run starts the system tray (blocking call)
func (m *SystrayManager) Run() {
	systray.Run(m.onReady, m.onExit)
}

// Stop stops the system tray
func (m *SystrayManager) Stop() {
	systray.Quit()
}

// WaitForQuit returns a channel that will be closed when user clicks Quit
func (m *SystrayManager) WaitForQuit() <-chan struct{} {
	return m.quit
}

// SetState updates the status line and checkmarks
func (m *SystrayManager) SetState(paused, alwaysOnTop bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = paused
	m.alwaysOnTop = alwaysOnTop
	m.render()
}

// render applies the current state to the menu. Caller holds mu.
func (m *SystrayManager) render() {
	if m.mStatus == nil {
		return
	}
	if m.paused {
		m.mStatus.SetTitle("○ Paused")
		m.mToggle.SetTitle("Resume listening")
	} else {
		m.mStatus.SetTitle("● Listening")
		m.mToggle.SetTitle("Pause listening")
	}
	if m.alwaysOnTop {
		m.mOnTop.Check()
	} else {
		m.mOnTop.Uncheck()
	}
}

// onReady is called when the systray is ready
func (m *SystrayManager) onReady() {
	if len(m.iconData) > 0 {
		systray.SetIcon(m.iconData)
	}

	systray.SetTitle("winchord")
	systray.SetTooltip("winchord - keyboard chords for windows")

	m.mu.Lock()
	m.mStatus = systray.AddMenuItem("● Listening", "Current status")
	m.mStatus.Disable()
	m.mOnTop = systray.AddMenuItem("Always on top", "Toggled by chord")
	m.mOnTop.Disable()
	systray.AddSeparator()
	m.mToggle = systray.AddMenuItem("Pause listening", "Stop or start reacting to chords")
	mConfigure := systray.AddMenuItem("Configure window", "Click a window, then press its slot number")
	m.render()
	m.mu.Unlock()

	var webClicked chan struct{}
	if m.webURL != "" {
		webClicked = systray.AddMenuItem("Open Web UI", "Open the winchord dashboard").ClickedCh
	}
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Exit winchord")

	go func() {
		for {
			select {
			case <-m.mToggle.ClickedCh:
				m.mu.Lock()
				paused := m.paused
				m.mu.Unlock()
				if paused {
					call(m.actions.Resume)
				} else {
					call(m.actions.Pause)
				}
			case <-mConfigure.ClickedCh:
				call(m.actions.Configure)
			case <-webClicked:
				openBrowser(m.webURL)
			case <-mQuit.ClickedCh:
				slog.Info("User requested quit from system tray")
				m.quitOnce.Do(func() { close(m.quit) })
				systray.Quit()
				return
			}
		}
	}()
}

func call(f func()) {
	if f != nil {
		f()
	}
}

// onExit is called when the systray is exiting
func (m *SystrayManager) onExit() {
	slog.Info("System tray exited")
}

// openBrowser opens url in the default browser
func openBrowser(url string) {
	slog.Info("Opening web UI", "url", url)

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	default:
		slog.Error("Unsupported platform for opening browser", "platform", runtime.GOOS)
		return
	}

	if err := cmd.Start(); err != nil {
		slog.Error("Failed to open web UI", "error", err)
	}
}
