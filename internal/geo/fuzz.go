package geo

import (
	"math/rand"
	"sync"
	"time"
)

// 模糊带宽（度）：主模糊约 ±1km/轴，合计约 2km；微模糊仅用于地图标记
const (
	fuzzBand      = 0.009
	microFuzzBand = 0.0025
)

// Fuzzer degrades coordinate precision for privacy. Fuzz is applied
// once per GPS fix and the result becomes the session's canonical
// location; MicroFuzz is re-applied on every presence tick purely for
// marker rendering and must never feed room computation.
type Fuzzer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewFuzzer returns a Fuzzer seeded from the clock.
func NewFuzzer() *Fuzzer {
	return NewFuzzerWithSource(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewFuzzerWithSource injects the random source, for deterministic tests.
func NewFuzzerWithSource(rng *rand.Rand) *Fuzzer {
	return &Fuzzer{rng: rng}
}

// Fuzz offsets both axes independently by a uniform value in ±fuzzBand.
func (f *Fuzzer) Fuzz(c Coord) Coord {
	return f.offset(c, fuzzBand)
}

// MicroFuzz offsets both axes by a uniform value in ±microFuzzBand.
func (f *Fuzzer) MicroFuzz(c Coord) Coord {
	return f.offset(c, microFuzzBand)
}

func (f *Fuzzer) offset(c Coord, band float64) Coord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Coord{
		Lat: c.Lat + (f.rng.Float64()*2-1)*band,
		Lng: c.Lng + (f.rng.Float64()*2-1)*band,
	}
}
