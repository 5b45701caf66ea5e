package camera

import (
	"math/rand/v2"
	"sync"
)

// Settings is the simulated exposure state.
type Settings struct {
	ISO          int     `json:"iso"`
	ShutterSpeed string  `json:"shutterSpeed"`
	Aperture     string  `json:"aperture"`
	EV           float64 `json:"ev"`
}

// DefaultSettings is the state a surface starts in.
func DefaultSettings() Settings {
	return Settings{
		ISO:          100,
		ShutterSpeed: "1/250",
		Aperture:     "F2.8",
		EV:           0,
	}
}

// Simulator holds the drifting exposure settings. It has no goroutine of
// its own; the owning Surface calls Step on its schedule.
type Simulator struct {
	mu       sync.RWMutex
	settings Settings
	random   func() float64
}

// NewSimulator creates a simulator starting at initial.
func NewSimulator(initial Settings) *Simulator {
	return &Simulator{settings: initial, random: rand.Float64}
}

// Snapshot returns a copy of the current settings.
func (s *Simulator) Snapshot() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Step applies one drift: ISO flips between 100 and 125 and shutter between
// 1/250 and 1/320, each with equal probability. Aperture and EV are kept.
func (s *Simulator) Step() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.random() > 0.5 {
		s.settings.ISO = 100
	} else {
		s.settings.ISO = 125
	}
	if s.random() > 0.5 {
		s.settings.ShutterSpeed = "1/250"
	} else {
		s.settings.ShutterSpeed = "1/320"
	}
	return s.settings
}

// Set replaces the settings wholesale.
func (s *Simulator) Set(settings Settings) {
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
}
