// Package audio decodes a frame's payload into linear-16 PCM sample
// bytes, dispatching to the 12-bit non-linear (LP-mode) decoder where
// the frame's encoding calls for it.
package audio

import (
	"fmt"
	"io"

	"github.com/quietloop/dat-recover/frame"
	"github.com/quietloop/dat-recover/lptable"
)

// Byte counts of the PCM payload actually carried by a frame at each
// sample rate; the remainder of the DataSize block is padding.
const (
	dataSize48kHz   = frame.DataSize
	dataSize44_1kHz = 5292
	dataSize32kHz   = 3840

	nonlinearPacked   = frame.DataSize
	nonlinearUnpacked = 7680
)

// Write emits one frame's audio payload as linear-16 PCM sample bytes
// (little-endian, regardless of host endianness) to w, and returns
// the number of interleaved sample frames written (i.e. samples per
// channel), for the caller's running sample-count and audio-seconds
// counters.
func Write(w io.Writer, f frame.Frame, info frame.FrameInfo) (int, error) {
	if info.Encoding == frame.NonLinear12 {
		return writeNonLinear(w, f, info)
	}
	return writeLinear(w, f, info)
}

func writeLinear(w io.Writer, f frame.Frame, info frame.FrameInfo) (int, error) {
	var n int
	switch info.SampleRate {
	case frame.Rate48kHz:
		n = dataSize48kHz
	case frame.Rate44_1kHz:
		n = dataSize44_1kHz
	case frame.Rate32kHz:
		n = dataSize32kHz
	default:
		return 0, fmt.Errorf("audio: invalid sample rate %d", info.SampleRate)
	}
	if _, err := w.Write(f[:n]); err != nil {
		return 0, fmt.Errorf("audio: write pcm payload: %w", err)
	}
	return n / (2 * int(info.Channels)), nil
}

// writeNonLinear unpacks 12-bit non-linear (LP-mode) samples. Three
// packed bytes decode to two 16-bit samples via a byte permutation
// table (lptable.Permutation) and a value lookup table
// (lptable.Table); both were reverse-engineered against a Sony
// TCD-D8 and carry no derivation beyond "this is what works".
func writeNonLinear(w io.Writer, f frame.Frame, info frame.FrameInfo) (int, error) {
	buf := make([]byte, nonlinearUnpacked)
	j := 0
	for i := 0; i < nonlinearPacked; i += 3 {
		x0 := f[lptable.Permutation[i]]
		x1 := f[lptable.Permutation[i+1]]
		x2 := f[lptable.Permutation[i+2]]

		s0 := lptable.Table[(uint16(x0)<<4)|((uint16(x1)>>4)&0x0f)]
		s1 := lptable.Table[(uint16(x2)<<4)|(uint16(x1)&0x0f)]

		buf[j] = byte(s0)
		buf[j+1] = byte(uint16(s0) >> 8)
		buf[j+2] = byte(s1)
		buf[j+3] = byte(uint16(s1) >> 8)
		j += 4
	}
	if _, err := w.Write(buf); err != nil {
		return 0, fmt.Errorf("audio: write non-linear payload: %w", err)
	}
	return nonlinearUnpacked / (2 * int(info.Channels)), nil
}
