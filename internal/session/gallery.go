package session

import "sync"

// Gallery is the paging state of the gallery view: one selected entry,
// starting at the newest. The index is clamped against the store on every
// move, so entries prepended while paging shift what is shown rather than
// invalidating the selection.
type Gallery struct {
	store *Store

	mu    sync.Mutex
	index int
}

// NewGallery opens a gallery over store at index 0.
func NewGallery(store *Store) *Gallery {
	return &Gallery{store: store}
}

// Index returns the selected position, clamped to the current store.
func (g *Gallery) Index() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.clampLocked(g.index)
}

// Current returns the selected entry; false when the store is empty.
func (g *Gallery) Current() (CapturedImage, bool) {
	return g.store.At(g.Index())
}

// Next moves towards older entries and returns the new selection.
func (g *Gallery) Next() (CapturedImage, bool) {
	return g.Select(g.Index() + 1)
}

// Prev moves towards newer entries and returns the new selection.
func (g *Gallery) Prev() (CapturedImage, bool) {
	return g.Select(g.Index() - 1)
}

// Select jumps to index i, clamped to the store bounds.
func (g *Gallery) Select(i int) (CapturedImage, bool) {
	g.mu.Lock()
	g.index = g.clampLocked(i)
	idx := g.index
	g.mu.Unlock()
	return g.store.At(idx)
}

func (g *Gallery) clampLocked(i int) int {
	n := g.store.Len()
	if n == 0 || i < 0 {
		return 0
	}
	return min(i, n-1)
}
