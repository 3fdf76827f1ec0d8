package assign

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStreams_DecoderUsesRunSeed(t *testing.T) {
	// GIVEN the streams of seed 42
	s := NewStreams(42)

	// THEN the decoder stream is the plain seed-42 sequence
	assert.Equal(t, newRNG(42).Int63(), s.For(StreamDecoder).Int63())
}

func TestStreams_DrawsDoNotCrossStreams(t *testing.T) {
	// GIVEN two stream sets with the same seed
	a := NewStreams(7)
	b := NewStreams(7)

	// WHEN one draws heavily from the roster stream
	for i := 0; i < 100; i++ {
		a.For(StreamRoster).Int63()
	}

	// THEN the decoder streams still agree
	for i := 0; i < 5; i++ {
		assert.Equal(t, b.For(StreamDecoder).Int63(), a.For(StreamDecoder).Int63())
	}
}

func TestStreams_CachesAndSeparatesByName(t *testing.T) {
	s := NewStreams(1)
	assert.Same(t, s.For(StreamGenerator), s.For(StreamGenerator))
	assert.NotEqual(t,
		NewStreams(1).For(StreamRoster).Int63(),
		NewStreams(1).For(StreamGenerator).Int63())
}
