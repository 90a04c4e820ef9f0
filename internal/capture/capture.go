package capture

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/arpitjain2323/buddyguard/internal/errors"
	"github.com/arpitjain2323/buddyguard/internal/logger"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// systemSource samples the local machine: cpu/mem through gopsutil, the
// foreground application and frame through OS utilities.
type systemSource struct {
	cfg Config
}

func New(cfg Config) (Source, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if cfg.ScreenshotDir != "" {
		if err := os.MkdirAll(cfg.ScreenshotDir, defaultDirPerm); err != nil {
			return nil, errFactory.Wrap(ErrInvalidConfig, err)
		}
	}

	return &systemSource{cfg: cfg}, nil
}

func (s *systemSource) Capture(ctx context.Context) (*Snapshot, error) {
	now := time.Now()

	snapshot := &Snapshot{Timestamp: now}
	s.sampleResources(ctx, snapshot)

	app, title := foregroundContext(ctx)
	snapshot.ForegroundApp = app
	snapshot.WindowTitle = title

	if s.cfg.TrackBrowserURL {
		snapshot.URL = browserURL(ctx, app)
	}

	if s.cfg.FrameEnabled {
		frame, err := s.captureFrame(ctx, now)
		if err != nil {
			return nil, err
		}
		snapshot.Frame = frame
	}

	return snapshot, nil
}

func (s *systemSource) sampleResources(ctx context.Context, snapshot *Snapshot) {
	// cpu.Percent with zero interval reports usage since the previous call,
	// which matches the capture cadence.
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		snapshot.CPUPercent = percents[0]
	} else if err != nil {
		logger.Debug().Err(err).Msg("CPU sampling failed")
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		snapshot.MemPercent = vm.UsedPercent
	} else {
		logger.Debug().Err(err).Msg("Memory sampling failed")
	}
}

func (s *systemSource) captureFrame(ctx context.Context, now time.Time) ([]byte, error) {
	errFactory := errors.New()

	path := filepath.Join(os.TempDir(), fmt.Sprintf("buddyguard_%d.png", now.UnixNano()))
	retained := false
	if s.cfg.ScreenshotDir != "" {
		path = filepath.Join(s.cfg.ScreenshotDir, fmt.Sprintf("screen_%d.png", now.Unix()))
		retained = true
	}
	if !retained {
		defer os.Remove(path)
	}

	cmdCtx, cancel := context.WithTimeout(ctx, defaultCommandTimeout*time.Second)
	defer cancel()

	name, args := frameCommand(path)
	if name == "" {
		return nil, errFactory.WithData(ErrCaptureDenied, runtime.GOOS)
	}

	cmd := exec.CommandContext(cmdCtx, name, args...)
	if err := cmd.Run(); err != nil {
		if cmdCtx.Err() != nil {
			return nil, errFactory.Wrap(ErrCaptureTimeout, cmdCtx.Err())
		}
		// Permission-denied captures surface as a non-zero exit
		return nil, errFactory.Wrap(ErrCaptureDenied, err)
	}

	frame, err := os.ReadFile(path)
	if err != nil {
		return nil, errFactory.Wrap(ErrCaptureFailed, err)
	}
	if len(frame) == 0 {
		return nil, errFactory.New(ErrCaptureFailed)
	}

	return frame, nil
}

// foregroundContext resolves the frontmost application and window title.
// Failures are tolerated: usage tracking degrades to unattributed time.
func foregroundContext(ctx context.Context) (app, title string) {
	cmdCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	switch runtime.GOOS {
	case "darwin":
		app = runLine(cmdCtx, "osascript", "-e",
			`tell application "System Events" to get name of first application process whose frontmost is true`)
		if app != "" {
			title = runLine(cmdCtx, "osascript", "-e",
				`tell application "System Events" to get name of front window of first application process whose frontmost is true`)
		}
	case "linux":
		title = runLine(cmdCtx, "xdotool", "getactivewindow", "getwindowname")
		app = runLine(cmdCtx, "xdotool", "getactivewindow", "getwindowclassname")
	}

	return app, title
}

// browserURL resolves the active tab URL when the foreground app is a known
// browser. Internal pages (chrome://, about:) are treated as no URL.
func browserURL(ctx context.Context, app string) string {
	if runtime.GOOS != "darwin" {
		return ""
	}

	var script string
	switch app {
	case "Google Chrome":
		script = `tell application "Google Chrome" to get URL of active tab of front window`
	case "Safari":
		script = `tell application "Safari" to get URL of front document`
	default:
		return ""
	}

	cmdCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	raw := runLine(cmdCtx, "osascript", "-e", script)
	if raw == "" || strings.HasPrefix(raw, "chrome://") || strings.HasPrefix(raw, "about:") {
		return ""
	}

	return normalizeURL(raw)
}

// normalizeURL strips the fragment so per-URL time is keyed consistently;
// path and query are kept.
func normalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}
	u.Fragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}

func frameCommand(path string) (name string, args []string) {
	switch runtime.GOOS {
	case "darwin":
		return "screencapture", []string{"-x", "-t", "png", path}
	case "linux":
		return "scrot", []string{"-o", path}
	default:
		return "", nil
	}
}

func runLine(ctx context.Context, name string, args ...string) string {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
