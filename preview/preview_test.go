package preview

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/quietloop/dat-recover/track"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeStereoWAV writes a minimal stereo 16-bit WAV file with the
// given interleaved samples, one int16 per channel per frame.
func writeStereoWAV(t *testing.T, samples []int16) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "track.wav")
	frames := len(samples) / 2
	header := track.WAVHeader(frames, 2, 48000)

	f, err := os.Create(path)
	require.NoError(t, err)
	_, err = f.Write(header)
	require.NoError(t, err)
	for _, s := range samples {
		require.NoError(t, binary.Write(f, binary.LittleEndian, s))
	}
	require.NoError(t, f.Close())
	return path
}

func TestOpenSkipsHeaderAndReportsLength(t *testing.T) {
	path := writeStereoWAV(t, []int16{100, -100, 200, -200, 300, -300})
	s, err := Open(path, 2)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 0, s.Position())
}

func TestStreamDecodesInterleavedStereoSamples(t *testing.T) {
	path := writeStereoWAV(t, []int16{100, -100, 200, -200})
	s, err := Open(path, 2)
	require.NoError(t, err)
	defer s.Close()

	buf := make([][2]float64, 4)
	n, ok := s.Stream(buf)
	require.True(t, ok)
	require.Equal(t, 2, n)

	assert.InDelta(t, 100.0/(1<<16-1), buf[0][0], 1e-9)
	assert.InDelta(t, -100.0/(1<<16-1), buf[0][1], 1e-9)
	assert.InDelta(t, 200.0/(1<<16-1), buf[1][0], 1e-9)
	assert.InDelta(t, -200.0/(1<<16-1), buf[1][1], 1e-9)
	assert.NoError(t, s.Err())
}

func TestStreamAtEndOfFileReturnsFalse(t *testing.T) {
	path := writeStereoWAV(t, []int16{1, 2})
	s, err := Open(path, 2)
	require.NoError(t, err)
	defer s.Close()

	buf := make([][2]float64, 4)
	n, ok := s.Stream(buf)
	require.True(t, ok)
	require.Equal(t, 1, n)

	n, ok = s.Stream(buf)
	assert.False(t, ok)
	assert.Equal(t, 0, n)
}

func TestSeekMovesPositionForSubsequentStream(t *testing.T) {
	path := writeStereoWAV(t, []int16{1, -1, 2, -2, 3, -3})
	s, err := Open(path, 2)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Seek(2))
	assert.Equal(t, 2, s.Position())

	buf := make([][2]float64, 1)
	n, ok := s.Stream(buf)
	require.True(t, ok)
	require.Equal(t, 1, n)
	assert.InDelta(t, 3.0/(1<<16-1), buf[0][0], 1e-9)
}

func TestQuadStreamDownmixesToFirstTwoChannels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quad.wav")
	header := track.WAVHeader(1, 4, 48000)
	f, err := os.Create(path)
	require.NoError(t, err)
	_, err = f.Write(header)
	require.NoError(t, err)
	for _, s := range []int16{10, -10, 999, -999} {
		require.NoError(t, binary.Write(f, binary.LittleEndian, s))
	}
	require.NoError(t, f.Close())

	s, err := Open(path, 4)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, 1, s.Len())
	buf := make([][2]float64, 1)
	n, ok := s.Stream(buf)
	require.True(t, ok)
	require.Equal(t, 1, n)
	assert.InDelta(t, 10.0/(1<<16-1), buf[0][0], 1e-9)
	assert.InDelta(t, -10.0/(1<<16-1), buf[0][1], 1e-9)
}
