package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/signspeak/internal/capture"
	"github.com/ayusman/signspeak/internal/detector"
)

// maxReadFailures is how many consecutive failed reads are reported as a
// camera error. The loop keeps retrying after that.
const maxReadFailures = 50

// runPipeline is the frame loop for one camera stream.
//
// Each tick reads a frame, adjusts the frame rate from motion, detects
// hands, feeds the scheduler and recorder, and publishes the annotated frame.
// The loop paces at IdleFPS until motion is seen, then at ActiveFPS until
// IdleTimeout passes without motion.
func (a *App) runPipeline(ctx context.Context, cam capture.Camera) {
	activity := capture.NewActivity(capture.IdleFPS, capture.ActiveFPS, capture.IdleTimeout)
	ticker := time.NewTicker(time.Second / time.Duration(activity.FPS()))
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, err := cam.ReadFrame()
		if errors.Is(err, capture.ErrEndOfStream) {
			slog.Info("Video ended", "source", cam.Source())
			a.scheduler.Observe(nil)
			a.publish(EventCamera, map[string]any{"streaming": true, "ended": true})
			go a.endStream(cam)
			return
		}
		if err != nil {
			failures++
			slog.Debug("Error reading frame", "source", cam.Source(), "error", err)
			if failures == maxReadFailures {
				slog.Warn("Camera stopped delivering frames", "source", cam.Source(), "error", err)
				a.publish(EventCamera, map[string]any{"streaming": true, "error": err.Error()})
			}
			a.scheduler.Observe(nil)
			continue
		}
		failures = 0

		motion, _ := a.motion.Detect(frame)
		if fps, changed := activity.Update(motion, time.Now()); changed {
			cam.SetFPS(fps)
			ticker.Reset(time.Second / time.Duration(fps))
			slog.Info("Frame rate changed", "fps", fps, "active", activity.Active())
		}

		hands := a.detect(frame)
		a.scheduler.Observe(hands)
		a.record(frame, hands)
		a.publishFrame(frame, hands)
		frame.Close()
	}
}

func (a *App) detect(frame *gocv.Mat) []detector.Hand {
	a.mu.RLock()
	d := a.detector
	enabled := a.enabled
	a.mu.RUnlock()

	if !enabled || d == nil {
		return nil
	}
	hands, err := d.Detect(frame)
	if err != nil {
		slog.Debug("Error detecting hands", "error", err)
		return nil
	}
	return hands
}

func (a *App) record(frame *gocv.Mat, hands []detector.Hand) {
	if !a.recorder.IsRecording() {
		return
	}
	if err := a.recorder.WriteFrame(frame, hands); err != nil {
		slog.Warn("Recording failed", "error", err)
		a.publish(EventRecording, map[string]any{"recording": false, "error": err.Error()})
	}
}

func (a *App) publishFrame(frame *gocv.Mat, hands []detector.Hand) {
	annotated := frame.Clone()
	defer annotated.Close()
	detector.DrawHands(&annotated, hands)

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, annotated)
	if err != nil {
		slog.Debug("Encode frame", "error", err)
		return
	}
	jpeg := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	a.setFrame(jpeg)
	a.publish(EventHands, map[string]any{
		"hands":     hands,
		"timestamp": time.Now().UnixMilli(),
	})
}

// Snapshot returns the latest annotated JPEG frame.
func (a *App) Snapshot() ([]byte, error) {
	frame, _ := a.Frame()
	if frame == nil {
		return nil, ErrNotStreaming
	}
	return frame, nil
}
