// Package studio runs the capture pipeline: take a still from the camera,
// store it, and enhance it in the background, patching the stored entry
// when the enhanced image arrives.
package studio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fpang/camera-sim/internal/camera"
	"github.com/fpang/camera-sim/internal/filehandler"
	"github.com/fpang/camera-sim/internal/session"
	"github.com/rs/zerolog/log"
)

// Capturer produces stills. *camera.Surface implements it.
type Capturer interface {
	Capture(ctx context.Context) (camera.Still, error)
}

// Enhancer turns a still into an enhanced image. *enhance.Client implements it.
type Enhancer interface {
	Available() bool
	EnhancePayload(ctx context.Context, in filehandler.Payload) (filehandler.Payload, bool)
}

// Studio wires a camera, the session store and an enhancer together.
type Studio struct {
	cam   Capturer
	store *session.Store
	enh   Enhancer

	mu       sync.Mutex
	inflight int
	// idle is closed when inflight drops to zero; a new one is made when
	// the next enhancement starts.
	idle chan struct{}
}

// New creates a studio. enh may be nil, in which case captures are stored
// without enhancement.
func New(cam Capturer, store *session.Store, enh Enhancer) *Studio {
	return &Studio{cam: cam, store: store, enh: enh}
}

// Store returns the session store captures are appended to.
func (s *Studio) Store() *session.Store {
	return s.store
}

// EnhancementAvailable reports whether captures will be enhanced.
func (s *Studio) EnhancementAvailable() bool {
	return s.enh != nil && s.enh.Available()
}

// Capture takes a still, appends it to the session and starts its
// enhancement. The enhancement outlives ctx: cancelling the request that
// triggered a capture does not cancel the remote call.
func (s *Studio) Capture(ctx context.Context) (session.CapturedImage, error) {
	still, err := s.cam.Capture(ctx)
	if err != nil {
		return session.CapturedImage{}, fmt.Errorf("capture failed: %w", err)
	}

	img, err := session.NewCapturedImage(still)
	if err != nil {
		return session.CapturedImage{}, err
	}
	s.store.Append(img)

	log.Info().
		Str("id", img.ID).
		Int("iso", img.Meta.ISO).
		Str("shutter", img.Meta.ShutterSpeed).
		Str("lens", string(img.Meta.Lens)).
		Msg("Capture stored")

	if s.EnhancementAvailable() {
		s.begin()
		go s.enhance(context.WithoutCancel(ctx), img.ID, img.Original)
	}
	return img, nil
}

func (s *Studio) enhance(ctx context.Context, id string, original filehandler.Payload) {
	defer s.end()

	start := time.Now()
	enhanced, ok := s.enh.EnhancePayload(ctx, original)
	if !ok {
		log.Warn().Str("id", id).Dur("duration", time.Since(start)).Msg("Keeping original, no enhanced image")
		return
	}
	if s.store.PatchEnhancement(id, enhanced) {
		log.Info().Str("id", id).Dur("duration", time.Since(start)).Msg("Enhanced image attached")
	}
}

func (s *Studio) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight == 0 {
		s.idle = make(chan struct{})
	}
	s.inflight++
}

func (s *Studio) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if s.inflight == 0 {
		close(s.idle)
	}
}

// Processing returns the number of enhancements in flight.
func (s *Studio) Processing() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight
}

// IsProcessing reports whether any enhancement is in flight.
func (s *Studio) IsProcessing() bool {
	return s.Processing() > 0
}

// Wait blocks until no enhancement is in flight or ctx is done.
func (s *Studio) Wait(ctx context.Context) error {
	s.mu.Lock()
	if s.inflight == 0 {
		s.mu.Unlock()
		return nil
	}
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
