// Package merge implements triple-redundancy error correction over
// three independent tape reads of the same DAT image: a byte-level
// majority vote, assisted by each drive's own interpolate flags, with
// a three-way tiebreak and a divergence-abort heuristic when the
// three streams stop looking like copies of the same tape.
package merge

import (
	"errors"
	"fmt"
	"io"

	"github.com/quietloop/dat-recover/frame"
)

// ErrDiverged is returned by Merge when the three inputs have
// accumulated too many uncorrectable byte-level disagreements to
// still be treated as noisy copies of the same tape.
var ErrDiverged = errors.New("merge: inputs diverged, tape image may be unaligned or badly damaged")

// Stats accumulates the vote outcome across a whole merge run.
type Stats struct {
	Frames             int
	CorrectedErrors    [3]int
	UncorrectedErrors  int
}

// Merger merges three frame-synchronous readers into a single
// corrected stream.
type Merger struct {
	inputs [3]io.Reader
}

// New constructs a Merger over three readers, each expected to
// produce the same sequence of frame.Size-byte frames read from a
// separate pass over the same tape.
func New(a, b, c io.Reader) *Merger {
	return &Merger{inputs: [3]io.Reader{a, b, c}}
}

// Merge reads frames from all three inputs in lockstep and writes the
// corrected stream to w, until any input reaches a clean EOF at a
// frame boundary. It returns the accumulated Stats and, if the
// streams diverge beyond the abort heuristic, ErrDiverged wrapped
// with the frame number at which the abort triggered.
func (m *Merger) Merge(w io.Writer) (Stats, error) {
	var stats Stats
	buffers := [3][]byte{
		make([]byte, frame.Size),
		make([]byte, frame.Size),
		make([]byte, frame.Size),
	}

	for frameNum := 0; ; frameNum++ {
		var interpolate [3]bool
		done, err := m.readTriple(frameNum, buffers, &interpolate)
		if err != nil {
			return stats, err
		}
		if done {
			return stats, nil
		}

		mergeFrame(buffers, interpolate, &stats)

		if _, err := w.Write(buffers[0]); err != nil {
			return stats, fmt.Errorf("merge: write frame %d: %w", frameNum, err)
		}

		if stats.UncorrectedErrors > frame.Size && stats.UncorrectedErrors > frameNum*frame.Size/16 {
			return stats, fmt.Errorf("%w: %d uncorrected errors in %d frames", ErrDiverged, stats.UncorrectedErrors, frameNum)
		}
		stats.Frames++
	}
}

// readTriple fills buffers[i] with input i's next frame, re-syncing
// past a leading gap marker on frame 0 of each input independently.
// It reports done=true once any input reaches a clean EOF.
func (m *Merger) readTriple(frameNum int, buffers [3][]byte, interpolate *[3]bool) (done bool, err error) {
	for i := 0; i < 3; i++ {
		for {
			_, rerr := io.ReadFull(m.inputs[i], buffers[i])
			if rerr != nil {
				if rerr == io.EOF {
					return true, nil
				}
				return false, fmt.Errorf("merge: read input %d frame %d: %w", i, frameNum, rerr)
			}

			quick := frame.QuickPNO(frame.Frame(buffers[i]))
			interpolate[i] = quick.InterpolateFlags&(frame.InterpolateFlagA|frame.InterpolateFlagB) != 0

			if frameNum != 0 || quick.HexPNO != frame.HexPNOGap {
				break
			}
			// input i starts with a leading gap marker; discard and
			// read another frame from this input only.
		}
	}
	return false, nil
}

// mergeFrame performs the byte-level vote across buffers[0..2],
// leaving the corrected frame in buffers[0] and updating stats.
// Reproduces the source's exact comparison order, including
// re-examining buffers[0][n] after the interpolate-flag assist has
// possibly overwritten it.
func mergeFrame(buffers [3][]byte, interpolate [3]bool, stats *Stats) {
	for n := 0; n < frame.Size; n++ {
		b0, b1, b2 := buffers[0][n], buffers[1][n], buffers[2][n]
		if b0 == b1 && b1 == b2 {
			continue
		}

		nValues := 0
		value := -1
		for i := 0; i < 3; i++ {
			if !interpolate[i] && int(buffers[i][n]) != value {
				nValues++
				value = int(buffers[i][n])
			}
		}
		if nValues == 1 && value != -1 {
			buffers[0][n] = byte(value)
			for i := 0; i < 3; i++ {
				if int(buffers[i][n]) != value {
					stats.CorrectedErrors[i]++
				}
			}
		}

		b0, b1, b2 = buffers[0][n], buffers[1][n], buffers[2][n]
		switch {
		case b0 == b1:
			stats.CorrectedErrors[2]++
		case b0 == b2:
			stats.CorrectedErrors[1]++
		case b1 != b2:
			stats.UncorrectedErrors++
			choosing := tiebreak(stats.CorrectedErrors)
			buffers[0][n] = buffers[choosing][n]
		default:
			stats.CorrectedErrors[0]++
			buffers[0][n] = buffers[1][n]
		}
	}
}

// tiebreak reproduces triple_merge.c's literal nested-if selection
// among the three inputs' running corrected-error counts, not a
// general smallest-index-with-minimum-count argmin (see spec's open
// question on this point).
func tiebreak(errors [3]int) int {
	if errors[0] <= errors[1] {
		if errors[0] > errors[2] {
			return 2
		}
		return 0
	}
	if errors[1] > errors[2] {
		return 2
	}
	return 1
}
