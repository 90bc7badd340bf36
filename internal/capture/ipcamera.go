package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// ProbeTimeout bounds an IP camera reachability probe.
const ProbeTimeout = 10 * time.Second

// ErrNotImageStream is returned when the URL does not serve images.
var ErrNotImageStream = errors.New("response is not an image stream")

// ConnectError reports an IP camera that is unreachable or timed out.
type ConnectError struct {
	URL string
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect to %s: %v", e.URL, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// ProbeIPCamera checks that rawURL answers with an image or multipart
// (MJPEG) response within timeout. Only the headers are read.
func ProbeIPCamera(ctx context.Context, client *http.Client, rawURL string, timeout time.Duration) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ConnectError{URL: rawURL, Err: errors.New("URL must be http(s)://host[:port]/path")}
	}
	if timeout <= 0 {
		timeout = ProbeTimeout
	}
	if client == nil {
		client = http.DefaultClient
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &ConnectError{URL: rawURL, Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &ConnectError{URL: rawURL, Err: fmt.Errorf("timeout after %s", timeout)}
		}
		return &ConnectError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ConnectError{URL: rawURL, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !(strings.HasPrefix(mediaType, "image/") || strings.HasPrefix(mediaType, "multipart/")) {
		return &ConnectError{URL: rawURL, Err: ErrNotImageStream}
	}
	return nil
}

// IPCamera tracks the connection to a phone or network camera.
type IPCamera struct {
	client  *http.Client
	timeout time.Duration

	mu        sync.Mutex
	url       string
	connected bool
}

// NewIPCamera creates a disconnected IP camera. client may be nil.
func NewIPCamera(client *http.Client, timeout time.Duration) *IPCamera {
	if timeout <= 0 {
		timeout = ProbeTimeout
	}
	return &IPCamera{client: client, timeout: timeout}
}

// Connect probes rawURL and, on success, returns an unopened stream camera
// for it. On failure the IP camera is left disconnected.
func (c *IPCamera) Connect(ctx context.Context, rawURL string) (Camera, error) {
	if err := ProbeIPCamera(ctx, c.client, rawURL, c.timeout); err != nil {
		c.mu.Lock()
		c.connected = false
		c.url = ""
		c.mu.Unlock()
		slog.Warn("IP camera connect failed", "url", rawURL, "error", err)
		return nil, err
	}

	c.mu.Lock()
	c.url = rawURL
	c.connected = true
	c.mu.Unlock()

	slog.Info("IP camera connected", "url", rawURL)
	return NewStreamCamera(rawURL), nil
}

// Disconnect forgets the connected URL.
func (c *IPCamera) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.url = ""
	c.connected = false
}

// IsConnected reports whether a probe succeeded since the last disconnect.
func (c *IPCamera) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// URL returns the connected URL, or "".
func (c *IPCamera) URL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.url
}

// HelpApp describes a phone app that can serve as an IP camera.
type HelpApp struct {
	Name         string `json:"name"`
	URLPattern   string `json:"urlPattern"`
	Instructions string `json:"instructions"`
}

// Help lists phone camera apps and connection tips.
type Help struct {
	Apps []HelpApp `json:"apps"`
	Tips []string  `json:"tips"`
}

// IPCameraHelp returns setup guidance for phone cameras.
func IPCameraHelp() Help {
	return Help{
		Apps: []HelpApp{
			{
				Name:         "IP Webcam (Android)",
				URLPattern:   "http://<phone-ip>:8080/video",
				Instructions: "Install IP Webcam, start the server and use the URL it shows",
			},
			{
				Name:         "DroidCam (Android/iOS)",
				URLPattern:   "http://<phone-ip>:4747/video",
				Instructions: "Install DroidCam, join the same WiFi as this machine and use the IP shown in the app",
			},
			{
				Name:         "iVCam (iOS)",
				URLPattern:   "http://<phone-ip>:8080/video",
				Instructions: "Install iVCam on the phone and connect over the same network",
			},
			{
				Name:         "Camo (iOS/Android)",
				URLPattern:   "USB or WiFi virtual webcam",
				Instructions: "Shows up as a regular camera device",
			},
		},
		Tips: []string{
			"Keep the phone and this machine on the same WiFi network",
			"Disable mobile data on the phone for a stable connection",
			"Check firewall settings if the connection fails",
			"Bluetooth cameras need an app that exposes a virtual webcam",
		},
	}
}
