// Package preview streams a just-closed track's .wav file through
// beep for a quick post-recovery sanity check, without re-reading or
// re-decoding tape frames.
package preview

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/faiface/beep"
	"github.com/quietloop/dat-recover/track"
)

const bytesPerSample = 2

// Streamer plays back a finished track's .wav file. It supports both
// the stereo and quad-channel layouts a DAT frame can carry; beep
// itself only understands stereo, so quad streams are downmixed to
// their first two channels.
type Streamer struct {
	f         *os.File
	sizeBytes int64
	offset    int64
	channels  int
	err       error
	buf       bytes.Buffer
}

// Open opens path (a finished track's .wav file) for playback at its
// recorded sample rate. The caller is responsible for calling
// speaker.Init with a matching sample rate before playing the result.
func Open(path string, channels int) (*Streamer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("preview: open %s: %w", path, err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("preview: stat %s: %w", path, err)
	}
	offset, err := f.Seek(track.HeaderLength, io.SeekStart)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("preview: seek past header in %s: %w", path, err)
	}
	return &Streamer{
		f:         f,
		sizeBytes: stat.Size(),
		offset:    offset,
		channels:  channels,
	}, nil
}

// Stream implements beep.Streamer.
func (s *Streamer) Stream(samples [][2]float64) (n int, ok bool) {
	frameBytes := s.channels * bytesPerSample
	want := len(samples) * frameBytes

	r := io.LimitReader(s.f, int64(want))
	if _, err := s.buf.ReadFrom(r); err != nil {
		s.err = err
		return 0, false
	}

	f := make([]byte, frameBytes)
	for i := 0; i < len(samples); i++ {
		if _, err := s.buf.Read(f); err != nil {
			break
		}
		samples[i][0], samples[i][1] = extractFrame(f)
		n++
	}
	if n == 0 {
		return 0, false
	}
	return n, true
}

// extractFrame decodes the left/right channels of one interleaved
// linear-16 sample frame. Quad frames beyond the first two channels
// are dropped rather than mixed in, matching a simple stereo monitor.
func extractFrame(p []byte) (l, r float64) {
	li := int16(p[0]) + int16(p[1])*(1<<8)
	ri := li
	if len(p) >= 4 {
		ri = int16(p[2]) + int16(p[3])*(1<<8)
	}
	return float64(li) / (1<<16 - 1), float64(ri) / (1<<16 - 1)
}

func (s *Streamer) Err() error {
	return s.err
}

func (s *Streamer) Len() int {
	return int((s.sizeBytes - track.HeaderLength) / int64(s.channels*bytesPerSample))
}

func (s *Streamer) Position() int {
	return int((s.offset - track.HeaderLength) / int64(s.channels*bytesPerSample))
}

func (s *Streamer) Seek(p int) error {
	bp := int64(p*s.channels*bytesPerSample) + track.HeaderLength
	n, err := s.f.Seek(bp, io.SeekStart)
	s.offset = n
	s.buf.Reset()
	return err
}

func (s *Streamer) Close() error {
	s.buf.Reset()
	return s.f.Close()
}

var _ beep.StreamSeekCloser = (*Streamer)(nil)
