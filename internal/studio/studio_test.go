package studio

import (
	"context"
	"errors"
	"io"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/fpang/camera-sim/internal/camera"
	"github.com/fpang/camera-sim/internal/filehandler"
	"github.com/fpang/camera-sim/internal/metrics"
	"github.com/fpang/camera-sim/internal/session"
)

type fakeCamera struct {
	settings camera.Settings
	err      error
}

func (f *fakeCamera) Capture(context.Context) (camera.Still, error) {
	if f.err != nil {
		return camera.Still{}, f.err
	}
	return camera.Still{
		Payload:    filehandler.Payload{MIMEType: "image/jpeg", Data: []byte("original")},
		Settings:   f.settings,
		Lens:       camera.LensWide,
		CapturedAt: time.Now(),
	}, nil
}

// fakeEnhancer blocks each call until release is closed.
type fakeEnhancer struct {
	available bool
	ok        bool
	release   chan struct{}

	mu    sync.Mutex
	calls int
	ctxs  []context.Context
}

func (f *fakeEnhancer) Available() bool { return f.available }

func (f *fakeEnhancer) EnhancePayload(ctx context.Context, in filehandler.Payload) (filehandler.Payload, bool) {
	f.mu.Lock()
	f.calls++
	f.ctxs = append(f.ctxs, ctx)
	release := f.release
	f.mu.Unlock()
	if release != nil {
		<-release
	}
	if !f.ok {
		return filehandler.Payload{}, false
	}
	return filehandler.Payload{MIMEType: "image/png", Data: append([]byte("enhanced-"), in.Data...)}, true
}

func (f *fakeEnhancer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func waitAll(t *testing.T, s *Studio) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

func TestCaptureAppendsThenPatches(t *testing.T) {
	settings := camera.Settings{ISO: 125, ShutterSpeed: "1/320", Aperture: "F2.8"}
	enh := &fakeEnhancer{available: true, ok: true, release: make(chan struct{})}
	s := New(&fakeCamera{settings: settings}, session.NewStore(), enh)

	img, err := s.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}

	// Stored immediately, before enhancement finishes.
	stored, ok := s.Store().Get(img.ID)
	if !ok {
		t.Fatal("capture not stored")
	}
	if stored.IsEnhanced() {
		t.Error("entry enhanced before the model answered")
	}
	if stored.Meta.ISO != 125 || stored.Meta.ShutterSpeed != "1/320" {
		t.Errorf("metadata = %+v, want the capture-time settings", stored.Meta)
	}
	if !s.IsProcessing() || s.Processing() != 1 {
		t.Errorf("Processing() = %d, want 1", s.Processing())
	}

	close(enh.release)
	waitAll(t, s)

	stored, _ = s.Store().Get(img.ID)
	if !stored.IsEnhanced() || string(stored.Enhanced.Data) != "enhanced-original" {
		t.Errorf("entry not patched: %+v", stored.Enhanced)
	}
	if string(stored.Original.Data) != "original" {
		t.Error("original replaced by enhancement")
	}
	if s.IsProcessing() {
		t.Error("still processing after Wait")
	}
}

func TestCaptureEnhancementFailureKeepsOriginal(t *testing.T) {
	enh := &fakeEnhancer{available: true, ok: false}
	s := New(&fakeCamera{}, session.NewStore(), enh)

	img, err := s.Capture(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	waitAll(t, s)

	stored, _ := s.Store().Get(img.ID)
	if stored.IsEnhanced() {
		t.Error("failed enhancement should leave Enhanced unset")
	}
	if s.Store().Len() != 1 {
		t.Errorf("len = %d, want 1", s.Store().Len())
	}
}

func TestCaptureWithoutCredential(t *testing.T) {
	enh := &fakeEnhancer{available: false}
	s := New(&fakeCamera{}, session.NewStore(), enh)

	if _, err := s.Capture(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitAll(t, s)
	if enh.Calls() != 0 {
		t.Errorf("enhancer called %d times without a credential", enh.Calls())
	}
	if s.EnhancementAvailable() {
		t.Error("EnhancementAvailable() should be false")
	}

	nilEnh := New(&fakeCamera{}, session.NewStore(), nil)
	if _, err := nilEnh.Capture(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestCaptureCameraError(t *testing.T) {
	s := New(&fakeCamera{err: camera.ErrNotReady}, session.NewStore(), &fakeEnhancer{available: true})
	_, err := s.Capture(context.Background())
	if !errors.Is(err, camera.ErrNotReady) {
		t.Errorf("Capture() error = %v, want ErrNotReady", err)
	}
	if s.Store().Len() != 0 {
		t.Error("failed capture should not be stored")
	}
}

func TestEnhancementOutlivesRequest(t *testing.T) {
	enh := &fakeEnhancer{available: true, ok: true, release: make(chan struct{})}
	s := New(&fakeCamera{}, session.NewStore(), enh)

	ctx, cancel := context.WithCancel(context.Background())
	img, err := s.Capture(ctx)
	if err != nil {
		t.Fatal(err)
	}
	cancel()
	close(enh.release)
	waitAll(t, s)

	enh.mu.Lock()
	enhCtx := enh.ctxs[0]
	enh.mu.Unlock()
	if enhCtx.Err() != nil {
		t.Errorf("enhancement context cancelled with the request: %v", enhCtx.Err())
	}
	if stored, _ := s.Store().Get(img.ID); !stored.IsEnhanced() {
		t.Error("enhancement dropped after request cancellation")
	}
}

func TestConcurrentCapturesEachPatchedOnce(t *testing.T) {
	enh := &fakeEnhancer{available: true, ok: true}
	s := New(&fakeCamera{}, session.NewStore(), enh)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Capture(context.Background()); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	waitAll(t, s)

	if enh.Calls() != 20 {
		t.Errorf("enhancer calls = %d, want one per capture", enh.Calls())
	}
	for _, img := range s.Store().List() {
		if !img.IsEnhanced() {
			t.Errorf("%s not enhanced", img.ID)
		}
	}
}

func TestWaitHonoursContext(t *testing.T) {
	enh := &fakeEnhancer{available: true, ok: true, release: make(chan struct{})}
	defer close(enh.release)
	s := New(&fakeCamera{}, session.NewStore(), enh)
	if _, err := s.Capture(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := s.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want DeadlineExceeded", err)
	}
}

func newSurface(t *testing.T) *camera.Surface {
	t.Helper()
	prev := metrics.SetOutput(io.Discard)
	t.Cleanup(func() { metrics.SetOutput(prev) })

	surface := camera.NewSurface(camera.NewPatternOpener(32, 18), camera.Options{
		SimulationInterval: time.Hour,
		Battery:            func() int { return 90 },
	})
	t.Cleanup(func() { surface.Close() })
	if err := surface.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return surface
}

func TestSurfaceCaptureRecordsDefaultSettings(t *testing.T) {
	surface := newSurface(t)
	s := New(surface, session.NewStore(), &fakeEnhancer{available: true, ok: true})

	img, err := s.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	want := session.Meta{ISO: 100, ShutterSpeed: "1/250", Aperture: "F2.8", Lens: camera.LensWide}
	if img.Meta != want {
		t.Errorf("metadata = %+v, want %+v", img.Meta, want)
	}
	if img.Original.MIMEType != "image/jpeg" || len(img.Original.Data) == 0 {
		t.Errorf("original = %s, %d bytes", img.Original.MIMEType, len(img.Original.Data))
	}

	waitAll(t, s)
	stored, ok := s.Store().Get(img.ID)
	if !ok || !stored.IsEnhanced() {
		t.Fatalf("stored entry not enhanced: %+v", stored)
	}
	if stored.Meta != want {
		t.Errorf("metadata after patch = %+v, want %+v", stored.Meta, want)
	}
}

func TestMetadataUnaffectedByLaterDrift(t *testing.T) {
	surface := newSurface(t)
	enh := &fakeEnhancer{available: true, ok: true, release: make(chan struct{})}
	s := New(surface, session.NewStore(), enh)

	surface.SetSettings(camera.Settings{ISO: 125, ShutterSpeed: "1/320", Aperture: "F2.8"})
	img, err := s.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	want := session.Meta{ISO: 125, ShutterSpeed: "1/320", Aperture: "F2.8", Lens: camera.LensWide}

	// Drift and change lens while the enhancement is still in flight.
	surface.SetSettings(camera.Settings{ISO: 100, ShutterSpeed: "1/250", Aperture: "F4", EV: 0.3})
	if err := surface.SetLens(camera.LensTelephoto); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Store().Get(img.ID); got.Meta != want {
		t.Errorf("metadata during enhancement = %+v, want %+v", got.Meta, want)
	}

	close(enh.release)
	waitAll(t, s)

	second, err := s.Capture(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	waitAll(t, s)

	got, ok := s.Store().Get(img.ID)
	if !ok {
		t.Fatal("first capture missing")
	}
	if got.Meta != want {
		t.Errorf("metadata after drift = %+v, want %+v", got.Meta, want)
	}
	if second.Meta.ISO != 100 || second.Meta.Aperture != "F4" || second.Meta.Lens != camera.LensTelephoto {
		t.Errorf("second capture metadata = %+v, want the drifted state", second.Meta)
	}
}

func TestTimedOutWaitsLeaveNoGoroutines(t *testing.T) {
	enh := &fakeEnhancer{available: true, ok: true, release: make(chan struct{})}
	s := New(&fakeCamera{}, session.NewStore(), enh)
	if _, err := s.Capture(context.Background()); err != nil {
		t.Fatal(err)
	}

	before := runtime.NumGoroutine()
	for range 50 {
		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
		if err := s.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("Wait() error = %v, want DeadlineExceeded", err)
		}
		cancel()
	}
	if after := runtime.NumGoroutine(); after > before+5 {
		t.Errorf("goroutines grew from %d to %d across timed-out waits", before, after)
	}

	close(enh.release)
	waitAll(t, s)
	if s.IsProcessing() {
		t.Error("still processing after Wait")
	}
}

func TestWaitRearmsForNextBatch(t *testing.T) {
	first := make(chan struct{})
	enh := &fakeEnhancer{available: true, ok: true, release: first}
	s := New(&fakeCamera{}, session.NewStore(), enh)

	if _, err := s.Capture(context.Background()); err != nil {
		t.Fatal(err)
	}
	close(first)
	waitAll(t, s)

	second := make(chan struct{})
	enh.mu.Lock()
	enh.release = second
	enh.mu.Unlock()
	if _, err := s.Capture(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() on second batch = %v, want DeadlineExceeded", err)
	}
	close(second)
	waitAll(t, s)
	if n := s.Processing(); n != 0 {
		t.Errorf("Processing() = %d, want 0", n)
	}
}
