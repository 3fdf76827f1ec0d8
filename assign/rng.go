package assign

import (
	"hash/fnv"
	"math/rand"
)

// Named random streams of a run.
const (
	// StreamDecoder breaks ties between member slots of a group. It is seeded
	// with the run seed itself, so --seed N replays the same slot choices.
	StreamDecoder = "decoder"

	// StreamRoster shuffles the cohort when the order is "shuffle".
	StreamRoster = "roster"

	// StreamGenerator draws synthetic rosters.
	StreamGenerator = "generator"
)

// Streams hands out one *rand.Rand per named stream, all derived from a
// single run seed. Draws on one stream never shift another, so turning
// shuffling on does not change which sub-slot the decoder picks for a given
// solution. Not safe for concurrent use.
type Streams struct {
	seed    int64
	streams map[string]*rand.Rand
}

// NewStreams creates the streams of a run seeded with seed.
func NewStreams(seed int64) *Streams {
	return &Streams{seed: seed, streams: make(map[string]*rand.Rand)}
}

// For returns the stream called name, creating it on first use. Every stream
// but StreamDecoder is seeded with seed XOR fnv-1a(name).
func (s *Streams) For(name string) *rand.Rand {
	if rng, ok := s.streams[name]; ok {
		return rng
	}
	seed := s.seed
	if name != StreamDecoder {
		h := fnv.New64a()
		h.Write([]byte(name))
		seed ^= int64(h.Sum64())
	}
	rng := rand.New(rand.NewSource(seed))
	s.streams[name] = rng
	return rng
}
