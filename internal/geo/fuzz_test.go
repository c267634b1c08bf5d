package geo

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func testFuzzer(seed int64) *Fuzzer {
	return NewFuzzerWithSource(rand.New(rand.NewSource(seed)))
}

func TestFuzzStaysInBand(t *testing.T) {
	f := testFuzzer(1)
	for i := 0; i < 1000; i++ {
		out := f.Fuzz(beijing)
		require.LessOrEqual(t, math.Abs(out.Lat-beijing.Lat), fuzzBand)
		require.LessOrEqual(t, math.Abs(out.Lng-beijing.Lng), fuzzBand)
	}
}

func TestMicroFuzzStaysInBand(t *testing.T) {
	f := testFuzzer(2)
	for i := 0; i < 1000; i++ {
		out := f.MicroFuzz(beijing)
		require.LessOrEqual(t, math.Abs(out.Lat-beijing.Lat), microFuzzBand)
		require.LessOrEqual(t, math.Abs(out.Lng-beijing.Lng), microFuzzBand)
	}
}

func TestFuzzDeterministicPerSource(t *testing.T) {
	a := testFuzzer(7).Fuzz(beijing)
	b := testFuzzer(7).Fuzz(beijing)
	require.Equal(t, a, b)
}

func TestFallbackCoord(t *testing.T) {
	sh := FallbackCoord("Asia/Shanghai")
	require.InDelta(t, 31.23, sh.Lat, 0.01)

	// 未知时区退到大洲，再退到格林尼治
	eu := FallbackCoord("Europe/Nowhereville")
	require.Equal(t, FallbackCoord("Europe/Paris"), eu)
	unknown := FallbackCoord("Mars/Olympus")
	require.InDelta(t, 51.48, unknown.Lat, 0.01)
}
