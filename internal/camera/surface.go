// Package camera implements the capture surface: device acquisition with a
// high-resolution-then-default fallback, the simulated exposure readout,
// the live view with OSD, and rasterizing stills at a fixed JPEG quality.
package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fpang/camera-sim/internal/filehandler"
	"github.com/fpang/camera-sim/internal/metrics"
	"github.com/rs/zerolog/log"
)

// State is the surface lifecycle state.
type State string

const (
	StateInitializing State = "initializing"
	StateReady        State = "ready"
	StateError        State = "error"
)

// DeviceErrorMessage is the human-readable message shown in the error state.
const DeviceErrorMessage = "Camera access denied or unavailable."

// DefaultSimulationInterval is how often simulated settings drift.
const DefaultSimulationInterval = 2 * time.Second

// previewQuality is the JPEG quality of live-view frames.
const previewQuality = 80

// ErrNotReady is returned by Capture and Preview outside the ready state.
var ErrNotReady = errors.New("camera surface not ready")

// Still is one rasterized capture with the state it was taken in.
type Still struct {
	Payload    filehandler.Payload
	Settings   Settings
	Lens       LensType
	CapturedAt time.Time
}

// Status is a point-in-time view of the surface.
type Status struct {
	State    State      `json:"state"`
	Error    string     `json:"error,omitempty"`
	Lens     LensType   `json:"lens"`
	Zoom     float64    `json:"zoom"`
	Settings Settings   `json:"settings"`
	Battery  int        `json:"battery"`
	OSD      OSD        `json:"osd"`
	Device   DeviceInfo `json:"device"`
}

// Options configures a Surface.
type Options struct {
	// SimulationInterval defaults to DefaultSimulationInterval.
	SimulationInterval time.Duration
	// Battery reports the battery level; defaults to BatteryReader{}.Level.
	Battery func() int
	// Initial settings; defaults to DefaultSettings().
	Initial *Settings
}

// Surface owns one camera device and the simulation task for its lifetime.
type Surface struct {
	sim       *Simulator
	interval  time.Duration
	batteryFn func() int

	// lifecycle serialises Start, Restart and Close so at most one device
	// is held at a time.
	lifecycle sync.Mutex

	mu      sync.Mutex
	opener  Opener
	device  Device
	state   State
	errMsg  string
	lens    LensType
	battery int
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSurface creates a surface that acquires devices from opener.
func NewSurface(opener Opener, opts Options) *Surface {
	interval := opts.SimulationInterval
	if interval <= 0 {
		interval = DefaultSimulationInterval
	}
	batteryFn := opts.Battery
	if batteryFn == nil {
		batteryFn = BatteryReader{}.Level
	}
	initial := DefaultSettings()
	if opts.Initial != nil {
		initial = *opts.Initial
	}
	return &Surface{
		sim:       NewSimulator(initial),
		interval:  interval,
		batteryFn: batteryFn,
		opener:    opener,
		state:     StateInitializing,
		lens:      DefaultLens,
		battery:   FullBattery,
	}
}

// Start acquires the device and starts the simulation task. Acquisition
// failure puts the surface in the error state and is returned wrapped in
// ErrDeviceUnavailable; the task keeps running so Restart can recover.
// Starting a started surface replaces its device.
func (s *Surface) Start(ctx context.Context) error {
	return s.Restart(ctx)
}

// Restart releases any held device and acquires again. It is the manual
// recovery action from the error state.
func (s *Surface) Restart(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if err := s.releaseDevice(); err != nil {
		log.Warn().Err(err).Msg("Failed to release previous camera")
	}
	s.startTask()
	return s.acquire(ctx)
}

// SetOpener replaces the device source used by the next Start or Restart.
func (s *Surface) SetOpener(o Opener) {
	s.mu.Lock()
	s.opener = o
	s.mu.Unlock()
}

// Close stops the simulation task and releases the device. Idempotent.
func (s *Surface) Close() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.running = false
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return s.releaseDevice()
}

func (s *Surface) acquire(ctx context.Context) error {
	s.mu.Lock()
	s.state = StateInitializing
	s.errMsg = ""
	opener := s.opener
	s.mu.Unlock()

	dev, err := opener.Open(ctx, HighResConstraints)
	if err != nil {
		log.Warn().Err(err).Str("constraints", HighResConstraints.String()).Msg("High-resolution camera request failed, retrying with defaults")
		dev, err = opener.Open(ctx, DefaultConstraints)
	}
	if err != nil {
		s.mu.Lock()
		s.state = StateError
		s.errMsg = DeviceErrorMessage
		s.mu.Unlock()
		log.Error().Err(err).Msg("Camera acquisition failed")
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	s.mu.Lock()
	s.device = dev
	s.state = StateReady
	s.mu.Unlock()

	info := dev.Info()
	log.Info().
		Str("kind", info.Kind).
		Str("name", info.Name).
		Int("width", info.Width).
		Int("height", info.Height).
		Msg("Capture surface ready")
	return nil
}

func (s *Surface) releaseDevice() error {
	s.mu.Lock()
	dev := s.device
	s.device = nil
	s.state = StateInitializing
	s.mu.Unlock()

	if dev == nil {
		return nil
	}
	if err := dev.Close(); err != nil {
		return fmt.Errorf("failed to release camera: %w", err)
	}
	return nil
}

// startTask launches the settings/battery task unless it is running.
func (s *Surface) startTask() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})
	s.battery = s.batteryFn()
	go s.run(ctx, s.done)
}

func (s *Surface) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			settings := s.sim.Step()
			level := s.batteryFn()
			s.mu.Lock()
			s.battery = level
			s.mu.Unlock()
			log.Debug().
				Int("iso", settings.ISO).
				Str("shutter", settings.ShutterSpeed).
				Int("battery", level).
				Msg("Simulated settings updated")
		}
	}
}

// SetLens selects the focal-length class.
func (s *Surface) SetLens(l LensType) error {
	if !l.Valid() {
		return fmt.Errorf("invalid lens %q", l)
	}
	s.mu.Lock()
	s.lens = l
	s.mu.Unlock()
	return nil
}

// Lens returns the selected focal-length class.
func (s *Surface) Lens() LensType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lens
}

// Settings returns a snapshot of the simulated settings.
func (s *Surface) Settings() Settings {
	return s.sim.Snapshot()
}

// Battery returns the last polled battery level.
func (s *Surface) Battery() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.battery
}

// SetSettings overrides the simulated settings until the next drift.
func (s *Surface) SetSettings(settings Settings) {
	s.sim.Set(settings)
}

// Status returns the current state, readout and device.
func (s *Surface) Status() Status {
	settings := s.sim.Snapshot()
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		State:    s.state,
		Error:    s.errMsg,
		Lens:     s.lens,
		Zoom:     s.lens.Zoom(),
		Settings: settings,
		Battery:  s.battery,
		OSD:      NewOSD(settings, s.lens, s.battery),
	}
	if s.device != nil {
		st.Device = s.device.Info()
	}
	return st
}

// Capture rasterizes the current frame as a JPEG at the capture quality,
// paired with the settings and lens in effect when it was requested.
func (s *Surface) Capture(ctx context.Context) (Still, error) {
	start := time.Now()
	settings := s.sim.Snapshot()

	s.mu.Lock()
	if s.state != StateReady || s.device == nil {
		s.mu.Unlock()
		return Still{}, ErrNotReady
	}
	dev, lens := s.device, s.lens
	s.mu.Unlock()

	frame, err := dev.Frame(ctx)
	if err != nil {
		return Still{}, fmt.Errorf("failed to grab frame: %w", err)
	}

	payload, err := filehandler.EncodeJPEG(frame, filehandler.CaptureJPEGQuality)
	if err != nil {
		return Still{}, err
	}

	elapsed := time.Since(start)
	metrics.New(metrics.Namespace).
		Dimension("Lens", string(lens)).
		Metric("CaptureMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Metric("CaptureBytes", float64(len(payload.Data)), metrics.UnitBytes).
		Flush()

	log.Info().
		Int("bytes", len(payload.Data)).
		Int("width", frame.Bounds().Dx()).
		Int("height", frame.Bounds().Dy()).
		Str("lens", string(lens)).
		Dur("duration", elapsed).
		Msg("Still captured")

	return Still{
		Payload:    payload,
		Settings:   settings,
		Lens:       lens,
		CapturedAt: time.Now(),
	}, nil
}

// Preview renders the live view: the current frame with the lens zoom and
// the OSD drawn over it.
func (s *Surface) Preview(ctx context.Context) (filehandler.Payload, error) {
	st := s.Status()

	s.mu.Lock()
	dev := s.device
	s.mu.Unlock()
	if st.State != StateReady || dev == nil {
		return filehandler.Payload{}, ErrNotReady
	}

	frame, err := dev.Frame(ctx)
	if err != nil {
		return filehandler.Payload{}, fmt.Errorf("failed to grab frame: %w", err)
	}

	view := renderView(frame, st.Zoom)
	st.OSD.Draw(view)
	return filehandler.EncodeJPEG(view, previewQuality)
}
