package session

import (
	"sync"

	"github.com/fpang/camera-sim/internal/filehandler"
	"github.com/rs/zerolog/log"
)

// Store is the ordered list of captured images, most recent first. It is
// safe for concurrent use: captures append from request handlers while
// enhancement goroutines patch.
type Store struct {
	mu sync.RWMutex
	// images is in capture order, oldest first; reads reverse it.
	images []CapturedImage
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Append inserts img at the head in amortized constant time. There is no
// de-duplication.
func (s *Store) Append(img CapturedImage) {
	s.mu.Lock()
	s.images = append(s.images, img.clone())
	n := len(s.images)
	s.mu.Unlock()

	log.Debug().Str("id", img.ID).Int("count", n).Msg("Image added to session")
}

// PatchEnhancement attaches an enhanced payload to the entry with id. It
// reports whether the entry changed: unknown IDs and entries that already
// carry an enhancement are left alone.
func (s *Store) PatchEnhancement(id string, enhanced filehandler.Payload) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.images) - 1; i >= 0; i-- {
		if s.images[i].ID != id {
			continue
		}
		if s.images[i].Enhanced != nil {
			log.Debug().Str("id", id).Msg("Image already enhanced, ignoring patch")
			return false
		}
		s.images[i].Enhanced = &enhanced
		return true
	}
	log.Warn().Str("id", id).Msg("Enhancement for unknown image ignored")
	return false
}

// List returns a copy of every entry, most recent first.
func (s *Store) List() []CapturedImage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.images)
	out := make([]CapturedImage, n)
	for i, img := range s.images {
		out[n-1-i] = img.clone()
	}
	return out
}

// Get returns a copy of the entry with id.
func (s *Store) Get(id string) (CapturedImage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.images) - 1; i >= 0; i-- {
		if s.images[i].ID == id {
			return s.images[i].clone(), true
		}
	}
	return CapturedImage{}, false
}

// At returns a copy of the entry at index i, 0 being the newest.
func (s *Store) At(i int) (CapturedImage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i < 0 || i >= len(s.images) {
		return CapturedImage{}, false
	}
	return s.images[len(s.images)-1-i].clone(), true
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.images)
}
