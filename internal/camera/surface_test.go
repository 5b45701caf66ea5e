package camera

import (
	"bytes"
	"context"
	"errors"
	"image/jpeg"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fpang/camera-sim/internal/metrics"
)

// recordingOpener fails the first failures calls, then opens a pattern.
type recordingOpener struct {
	mu       sync.Mutex
	failures int
	calls    []Constraints
}

func (o *recordingOpener) Open(ctx context.Context, c Constraints) (Device, error) {
	o.mu.Lock()
	o.calls = append(o.calls, c)
	fail := len(o.calls) <= o.failures
	o.mu.Unlock()
	if fail {
		return nil, errors.New("permission denied")
	}
	return NewPatternOpener(64, 36).Open(ctx, c)
}

func (o *recordingOpener) Calls() []Constraints {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Constraints(nil), o.calls...)
}

func newTestSurface(t *testing.T, opener Opener) *Surface {
	t.Helper()
	prev := metrics.SetOutput(io.Discard)
	t.Cleanup(func() { metrics.SetOutput(prev) })

	s := NewSurface(opener, Options{
		SimulationInterval: time.Hour,
		Battery:            func() int { return 73 },
	})
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSurfaceStartHighRes(t *testing.T) {
	opener := &recordingOpener{}
	s := newTestSurface(t, opener)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	calls := opener.Calls()
	if len(calls) != 1 || calls[0] != HighResConstraints {
		t.Errorf("open calls = %v, want one high-res attempt", calls)
	}
	st := s.Status()
	if st.State != StateReady || st.Error != "" {
		t.Errorf("status = %s %q, want ready", st.State, st.Error)
	}
	if st.Battery != 73 || s.Battery() != 73 {
		t.Errorf("battery = %d, want 73", st.Battery)
	}
	if st.Device.Kind != "pattern" {
		t.Errorf("device = %+v", st.Device)
	}
}

func TestSurfaceFallsBackToDefaults(t *testing.T) {
	opener := &recordingOpener{failures: 1}
	s := newTestSurface(t, opener)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	calls := opener.Calls()
	if len(calls) != 2 || calls[0] != HighResConstraints || calls[1] != DefaultConstraints {
		t.Errorf("open calls = %v, want high-res then default", calls)
	}
	if s.Status().State != StateReady {
		t.Errorf("state = %s, want ready", s.Status().State)
	}
}

func TestSurfaceErrorStateAndRestart(t *testing.T) {
	opener := &recordingOpener{failures: 2}
	s := newTestSurface(t, opener)

	err := s.Start(context.Background())
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("Start() error = %v, want ErrDeviceUnavailable", err)
	}
	if n := len(opener.Calls()); n != 2 {
		t.Errorf("open attempts = %d, want exactly 2", n)
	}
	st := s.Status()
	if st.State != StateError || st.Error != DeviceErrorMessage {
		t.Errorf("status = %s %q, want error %q", st.State, st.Error, DeviceErrorMessage)
	}
	if _, err := s.Capture(context.Background()); !errors.Is(err, ErrNotReady) {
		t.Errorf("Capture() in error state = %v, want ErrNotReady", err)
	}
	if _, err := s.Preview(context.Background()); !errors.Is(err, ErrNotReady) {
		t.Errorf("Preview() in error state = %v, want ErrNotReady", err)
	}

	if err := s.Restart(context.Background()); err != nil {
		t.Fatalf("Restart() error = %v", err)
	}
	if s.Status().State != StateReady {
		t.Errorf("state after restart = %s, want ready", s.Status().State)
	}
}

func TestSurfaceCapture(t *testing.T) {
	s := newTestSurface(t, &recordingOpener{})
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	want := Settings{ISO: 125, ShutterSpeed: "1/320", Aperture: "F2.8", EV: -0.7}
	s.SetSettings(want)
	if err := s.SetLens(LensTelephoto); err != nil {
		t.Fatal(err)
	}

	still, err := s.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if still.Payload.MIMEType != "image/jpeg" {
		t.Errorf("MIME = %q, want image/jpeg", still.Payload.MIMEType)
	}
	img, err := jpeg.Decode(bytes.NewReader(still.Payload.Data))
	if err != nil {
		t.Fatalf("capture is not a JPEG: %v", err)
	}
	// Stills are never cropped by the lens.
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 36 {
		t.Errorf("still size = %v, want 64x36", b)
	}
	if still.Settings != want {
		t.Errorf("settings = %+v, want %+v", still.Settings, want)
	}
	if still.Lens != LensTelephoto {
		t.Errorf("lens = %s, want 50mm", still.Lens)
	}
	if still.CapturedAt.IsZero() {
		t.Error("CapturedAt not set")
	}
}

func TestSurfacePreview(t *testing.T) {
	s := newTestSurface(t, &recordingOpener{})
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	p, err := s.Preview(context.Background())
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if _, err := jpeg.Decode(bytes.NewReader(p.Data)); err != nil {
		t.Errorf("preview is not a JPEG: %v", err)
	}
}

func TestSurfaceSetLensRejectsUnknown(t *testing.T) {
	s := newTestSurface(t, &recordingOpener{})
	if err := s.SetLens("85mm"); err == nil {
		t.Error("SetLens(85mm) should fail")
	}
	if s.Lens() != DefaultLens {
		t.Errorf("lens = %s, want default", s.Lens())
	}
}

func TestSurfaceSimulationDrift(t *testing.T) {
	prev := metrics.SetOutput(io.Discard)
	defer metrics.SetOutput(prev)

	s := NewSurface(&recordingOpener{}, Options{
		SimulationInterval: 5 * time.Millisecond,
		Battery:            func() int { return 50 },
		Initial:            &Settings{ISO: 3200, ShutterSpeed: "1/8000", Aperture: "F1.4"},
	})
	defer s.Close()
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for s.Settings().ISO == 3200 {
		if time.Now().After(deadline) {
			t.Fatal("settings never drifted")
		}
		time.Sleep(5 * time.Millisecond)
	}
	got := s.Settings()
	if got.ISO != 100 && got.ISO != 125 {
		t.Errorf("ISO = %d", got.ISO)
	}
	if got.Aperture != "F1.4" {
		t.Errorf("aperture changed to %s", got.Aperture)
	}
}

func TestSurfaceCloseIdempotent(t *testing.T) {
	s := newTestSurface(t, &recordingOpener{})
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if _, err := s.Capture(context.Background()); !errors.Is(err, ErrNotReady) {
		t.Errorf("Capture() after Close = %v, want ErrNotReady", err)
	}
}

// countingOpener tracks how many devices it has handed out that are not
// yet closed. Each acquisition takes a few milliseconds.
type countingOpener struct {
	open atomic.Int64
}

func (o *countingOpener) Open(ctx context.Context, c Constraints) (Device, error) {
	time.Sleep(5 * time.Millisecond)
	dev, err := NewPatternOpener(16, 9).Open(ctx, c)
	if err != nil {
		return nil, err
	}
	o.open.Add(1)
	return &countedDevice{Device: dev, open: &o.open}, nil
}

type countedDevice struct {
	Device
	once sync.Once
	open *atomic.Int64
}

func (d *countedDevice) Close() error {
	d.once.Do(func() { d.open.Add(-1) })
	return d.Device.Close()
}

func TestSurfaceReleasesEveryDevice(t *testing.T) {
	tests := []struct {
		name string
		run  func(s *Surface)
	}{
		{"concurrent restarts", func(s *Surface) {
			var wg sync.WaitGroup
			for range 2 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					s.Restart(context.Background())
				}()
			}
			wg.Wait()
		}},
		{"start twice", func(s *Surface) {
			s.Start(context.Background())
		}},
		{"close during restart", func(s *Surface) {
			done := make(chan struct{})
			go func() {
				s.Restart(context.Background())
				close(done)
			}()
			s.Close()
			<-done
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opener := &countingOpener{}
			s := newTestSurface(t, opener)
			if err := s.Start(context.Background()); err != nil {
				t.Fatal(err)
			}
			tt.run(s)
			if n := opener.open.Load(); n != 1 && s.Status().State == StateReady {
				t.Errorf("%d devices open while ready, want 1", n)
			}
			if err := s.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}
			if n := opener.open.Load(); n != 0 {
				t.Errorf("%d devices still open after Close", n)
			}
		})
	}
}
