package capture

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestProbeIPCamera(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/video":
			w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("--frame\r\n"))
		case "/shot.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write([]byte{0xff, 0xd8})
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"mjpeg stream", srv.URL + "/video", false},
		{"jpeg snapshot", srv.URL + "/shot.jpg", false},
		{"html page", srv.URL + "/page", true},
		{"not found", srv.URL + "/missing", true},
		{"bad scheme", "rtsp://192.168.1.5/stream", true},
		{"garbage", "::not a url", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ProbeIPCamera(context.Background(), srv.Client(), tt.url, time.Second)
			if tt.wantErr {
				var ce *ConnectError
				if !errors.As(err, &ce) {
					t.Errorf("err = %v, want ConnectError", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestProbeIPCamera_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	err := ProbeIPCamera(context.Background(), srv.Client(), srv.URL+"/video", 100*time.Millisecond)
	elapsed := time.Since(start)

	var ce *ConnectError
	if !errors.As(err, &ce) || !strings.Contains(err.Error(), "timeout") {
		t.Errorf("err = %v, want timeout ConnectError", err)
	}
	if elapsed > 2*time.Second {
		t.Errorf("probe took %v", elapsed)
	}
}

func TestIPCamera_ConnectDisconnect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/video" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	}))
	defer srv.Close()

	ip := NewIPCamera(srv.Client(), time.Second)
	ctx := context.Background()

	cam, err := ip.Connect(ctx, srv.URL+"/video")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !ip.IsConnected() || ip.URL() != srv.URL+"/video" {
		t.Errorf("connected=%v url=%q", ip.IsConnected(), ip.URL())
	}
	if cam.Source() != srv.URL+"/video" || cam.IsOpen() {
		t.Errorf("camera source=%q open=%v", cam.Source(), cam.IsOpen())
	}

	if _, err := ip.Connect(ctx, srv.URL+"/missing"); err == nil {
		t.Fatal("expected error for missing stream")
	}
	if ip.IsConnected() || ip.URL() != "" {
		t.Error("failed connect left the camera connected")
	}

	ip.Connect(ctx, srv.URL+"/video")
	ip.Disconnect()
	if ip.IsConnected() {
		t.Error("IsConnected() after Disconnect")
	}
}

func TestIPCamera_UnreachableResolvesWithinTimeout(t *testing.T) {
	ip := NewIPCamera(nil, 500*time.Millisecond)

	done := make(chan error, 1)
	go func() {
		_, err := ip.Connect(context.Background(), "http://10.255.255.1:8080/video")
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected connect failure")
		}
	case <-time.After(ProbeTimeout):
		t.Fatal("connect did not resolve within the probe timeout")
	}
	if ip.IsConnected() {
		t.Error("IsConnected() = true after failure")
	}
}

func TestIPCameraHelp(t *testing.T) {
	help := IPCameraHelp()
	if len(help.Apps) == 0 || len(help.Tips) == 0 {
		t.Fatalf("help = %+v", help)
	}
	for _, app := range help.Apps {
		if app.Name == "" || app.URLPattern == "" {
			t.Errorf("incomplete app entry %+v", app)
		}
	}
}
