package dice

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand/v2"
	"sync"
)

// Source is the randomness provider for every roll in a battle.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

type cryptoSource struct{}

// NewCryptoSource returns a Source backed by crypto/rand.
//
// Postcondition: Every value returned by Intn is in [0, n).
func NewCryptoSource() Source {
	return cryptoSource{}
}

// Intn panics if n <= 0 or if crypto/rand fails.
func (cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	val, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("dice: crypto/rand failure: " + err.Error())
	}
	return int(val.Int64())
}

// seededSource is a deterministic Source for replays and reproducible tests.
type seededSource struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

// NewSeededSource returns a deterministic Source. Two sources built from the
// same seed produce the same sequence.
func NewSeededSource(seed int64) Source {
	return &seededSource{rng: mrand.New(mrand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))}
}

func (s *seededSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// NewSource picks the seeded source when seed is non-zero and the crypto
// source otherwise.
func NewSource(seed int64) Source {
	if seed != 0 {
		return NewSeededSource(seed)
	}
	return NewCryptoSource()
}
