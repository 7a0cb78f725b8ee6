package engine

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
)

// Selector chooses one index out of n equally-likely candidates. Root-server
// selection, glue-IP selection, authority-name selection and CNAME-target
// selection all go through a Selector, so tests can inject a deterministic
// one instead of depending on actual randomness.
type Selector interface {
	// Pick returns an index in [0, n). n is always > 0.
	Pick(n int) int
}

func init() {
	// Seed the shared math/rand source from crypto/rand once at process
	// start, rather than leaving it on its fixed default seed.
	var seed [8]byte
	if _, err := rand.Read(seed[:]); err == nil {
		mrand.Seed(int64(binary.BigEndian.Uint64(seed[:])))
	}
}

type randomSelector struct{}

func newRandomSelector() Selector {
	return randomSelector{}
}

// Pick uses the math/rand global source, which is safe for concurrent use
// by multiple goroutines.
func (randomSelector) Pick(n int) int {
	if n <= 0 {
		panic("engine: Pick called with n <= 0")
	}
	return mrand.Intn(n)
}
