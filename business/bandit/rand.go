package bandit

import (
	"math/rand/v2"
	"sync"
)

// lockedSource lets concurrent read-locked Recommend calls share one PCG
// stream. Draw order across goroutines is unspecified; a single caller sees
// a fully reproducible sequence for a given seed.
type lockedSource struct {
	mu  sync.Mutex
	src *rand.PCG
}

func newLockedSource(seed uint64) *lockedSource {
	return &lockedSource{src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)}
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}
