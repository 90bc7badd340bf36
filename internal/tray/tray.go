// Package tray provides a system tray menu for the sign-to-speech app.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle   func(enabled bool)
	onMute     func(muted bool)
	onSettings func()
	onQuit     func()
	enabled    bool
	muted      bool
	lastSign   string
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuToggle   *systray.MenuItem
	menuMute     *systray.MenuItem
	menuLastSign *systray.MenuItem
}

// New creates a new Tray instance with detection enabled and speech unmuted.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback function to be called when detection is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnMute sets the callback function to be called when speech is muted or unmuted.
func (t *Tray) OnMute(fn func(muted bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onMute = fn
}

// OnSettings sets the callback function to be called when the settings menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray from outside the menu.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("SignSpeak")
	systray.SetTooltip("SignSpeak sign-to-speech")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle hand detection")
	t.menuMute = systray.AddMenuItem(muteTitle(t.muted), "Mute or unmute speech")
	systray.AddSeparator()

	t.menuLastSign = systray.AddMenuItem(lastSignTitle(t.lastSign), "Last recognized sign")
	t.menuLastSign.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit SignSpeak")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-t.menuMute.ClickedCh:
				t.handleMute()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Detection On"
	}
	return "○ Detection Off"
}

func muteTitle(muted bool) string {
	if muted {
		return "Unmute Speech"
	}
	return "Mute Speech"
}

func lastSignTitle(sign string) string {
	if sign == "" {
		return "Last: none"
	}
	return "Last: " + sign
}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// handleMute handles the mute menu item click.
func (t *Tray) handleMute() {
	t.mu.Lock()
	t.muted = !t.muted
	muted := t.muted
	if t.menuMute != nil {
		t.menuMute.SetTitle(muteTitle(muted))
	}
	callback := t.onMute
	t.mu.Unlock()

	if callback != nil {
		callback(muted)
	}
}

// handleSettings handles the settings menu item click.
func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetLastSign updates the last sign display in the menu.
func (t *Tray) SetLastSign(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastSign = name
	if t.menuLastSign != nil {
		t.menuLastSign.SetTitle(lastSignTitle(name))
	}
}

// SetMuted syncs the mute item with a change made elsewhere.
func (t *Tray) SetMuted(muted bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.muted = muted
	if t.menuMute != nil {
		t.menuMute.SetTitle(muteTitle(muted))
	}
}

// LastSign returns the last sign shown.
func (t *Tray) LastSign() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastSign
}

// IsEnabled returns the current detection state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// IsMuted returns the current mute state.
func (t *Tray) IsMuted() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.muted
}
