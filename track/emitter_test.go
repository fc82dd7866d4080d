package track

import (
	"bytes"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/quietloop/dat-recover/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memHandle is an in-memory Handle backed by a growable buffer that
// also supports seeking back to the start, the only seek pattern the
// Emitter ever performs (rewind to patch the WAV header).
type memHandle struct {
	buf    []byte
	pos    int
	closed bool
}

func (h *memHandle) Write(p []byte) (int, error) {
	end := h.pos + len(p)
	if end > len(h.buf) {
		grown := make([]byte, end)
		copy(grown, h.buf)
		h.buf = grown
	}
	copy(h.buf[h.pos:end], p)
	h.pos = end
	return len(p), nil
}

func (h *memHandle) Seek(offset int64, whence int) (int64, error) {
	if whence != io.SeekStart || offset != 0 {
		return 0, fmt.Errorf("memHandle: unsupported seek")
	}
	h.pos = 0
	return 0, nil
}

func (h *memHandle) Close() error {
	h.closed = true
	return nil
}

type memFS struct {
	files   map[string]*memHandle
	deleted map[string]bool
	renamed map[string]string
	times   map[string]time.Time
}

func newMemFS() *memFS {
	return &memFS{
		files:   make(map[string]*memHandle),
		deleted: make(map[string]bool),
		renamed: make(map[string]string),
		times:   make(map[string]time.Time),
	}
}

func (m *memFS) Open(path string) (Handle, error) {
	h := &memHandle{}
	m.files[path] = h
	return h, nil
}

func (m *memFS) Delete(path string) error {
	m.deleted[path] = true
	return nil
}

func (m *memFS) Rename(oldPath, newPath string) error {
	m.renamed[oldPath] = newPath
	m.files[newPath] = m.files[oldPath]
	return nil
}

func (m *memFS) SetTimes(path string, t time.Time) error {
	m.times[path] = t
	return nil
}

func TestEmitterWritesHeaderThenRewritesOnClose(t *testing.T) {
	fs := newMemFS()
	e := NewEmitter(fs, "", 0, nil)
	require.NoError(t, e.Open(Info{Channels: frame.Stereo, SampleRate: frame.Rate48kHz}))
	require.NoError(t, e.WriteAudio(bytes.Repeat([]byte{0x01}, 4), 1))
	require.NoError(t, e.Close())

	f := fs.files["0.wav"]
	require.NotNil(t, f)
	assert.True(t, f.closed)
	// header + 4 bytes of audio
	assert.Equal(t, HeaderLength+4, len(f.buf))
	assert.Equal(t, "RIFF", string(f.buf[0:4]))
}

func TestEmitterDeletesShortTracks(t *testing.T) {
	fs := newMemFS()
	e := NewEmitter(fs, "", 5.0, nil)
	require.NoError(t, e.Open(Info{Channels: frame.Stereo, SampleRate: frame.Rate48kHz}))
	require.NoError(t, e.Close())
	assert.True(t, fs.deleted["0.wav"])
}

func TestEmitterNamesByDateWhenAvailable(t *testing.T) {
	fs := newMemFS()
	e := NewEmitter(fs, "", 0, nil)
	dt := time.Date(2024, 3, 15, 14, 30, 45, 0, time.UTC)
	require.NoError(t, e.Open(Info{Channels: frame.Stereo, SampleRate: frame.Rate48kHz, FirstDateTime: &dt}))
	require.NoError(t, e.WriteAudio(bytes.Repeat([]byte{0}, 4), 1))
	require.NoError(t, e.Close())
	_, named := fs.files["2024-03-15-14-30-45.wav"]
	assert.True(t, named)
	assert.NotNil(t, fs.files["2024-03-15-14-30-45.details"])
}

func TestEmitterWarnfDedupsPerTrack(t *testing.T) {
	fs := newMemFS()
	e := NewEmitter(fs, "", 0, nil)
	require.NoError(t, e.Open(Info{Channels: frame.Stereo, SampleRate: frame.Rate48kHz}))
	e.Warnf("bad thing")
	e.Warnf("bad thing")
	assert.Len(t, e.warnSeen, 1)
}

func TestWAVHeaderLayout(t *testing.T) {
	h := WAVHeader(100, 2, 44100)
	require.Len(t, h, HeaderLength)
	assert.Equal(t, "RIFF", string(h[0:4]))
	assert.Equal(t, "WAVE", string(h[8:12]))
	assert.Equal(t, "fmt ", string(h[12:16]))
	assert.Equal(t, "data", string(h[36:40]))
}
