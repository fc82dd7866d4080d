// Package track owns everything about turning a run of decoded audio
// frames into a finished .wav file plus its .details sidecar: naming,
// the open/write/close lifecycle, minimum-length pruning, and
// timestamp mirroring.
package track

import (
	"fmt"
	"io"
	"time"

	"github.com/quietloop/dat-recover/frame"
	"github.com/sirupsen/logrus"
)

// Info is the subset of a track's decoded format the Emitter needs to
// name, header, and describe it. It is a snapshot taken at open time
// and updated as later frames refine it (e.g. once a date/time or
// program number becomes known).
type Info struct {
	Channels      frame.Channels
	SampleRate    frame.SampleRate
	Encoding      frame.Encoding
	Emphasis      frame.Emphasis
	ProgramNumber *int
	FirstDateTime *time.Time
	LastDateTime  *time.Time
	FirstFrame    int
	LastFrame     int
}

// Emitter drives the open/write/close lifecycle for a sequence of
// tracks, one at a time. Callers open a track, feed it audio bytes as
// each frame decodes, and close it when the segmenter says the track
// boundary has been reached.
type Emitter struct {
	fs     FileSystem
	prefix string

	minTrackSeconds float64

	log *logrus.Entry

	trackNumber int

	open      bool
	handle    Handle
	filename  string
	info      Info
	nSamples  int
	warnSeen  map[string]struct{}
	lastKept  bool
}

// NewEmitter constructs an Emitter that writes through fs, prefixing
// every filename with prefix (may be empty), pruning finished tracks
// shorter than minTrackSeconds.
func NewEmitter(fs FileSystem, prefix string, minTrackSeconds float64, log *logrus.Entry) *Emitter {
	return &Emitter{
		fs:              fs,
		prefix:          prefix,
		minTrackSeconds: minTrackSeconds,
		log:             log,
	}
}

// TrackNumber is the zero-based index of the next track to be opened.
func (e *Emitter) TrackNumber() int {
	return e.trackNumber
}

// CurrentFilename returns the filename of the track presently open (or
// most recently open), for logging and disk-image assembly. It is
// empty if no track has been opened yet.
func (e *Emitter) CurrentFilename() string {
	return e.filename
}

// LastClosedKept reports whether the most recently closed track was
// kept on disk (true) or deleted for falling short of the minimum
// track length (false).
func (e *Emitter) LastClosedKept() bool {
	return e.lastKept
}

// LastClosedInfo returns the Info of the most recently closed (or
// discarded) track, e.g. for a caller that wants its channel count
// and sample rate after Close returns.
func (e *Emitter) LastClosedInfo() Info {
	return e.info
}

// Open starts a new track. It is an error to call Open while a track
// is already open.
func (e *Emitter) Open(info Info) error {
	if e.open {
		return fmt.Errorf("track: open called with a track already open")
	}
	e.warnSeen = make(map[string]struct{})
	e.info = info
	e.nSamples = 0

	e.filename = e.filenameFor("wav")
	h, err := e.fs.Open(e.filename)
	if err != nil {
		return fmt.Errorf("track: create %s: %w", e.filename, err)
	}
	e.handle = h
	e.open = true

	header := WAVHeader(0, int(info.Channels), int(info.SampleRate))
	if _, err := e.handle.Write(header); err != nil {
		return fmt.Errorf("track: write header to %s: %w", e.filename, err)
	}
	if e.log != nil {
		e.log.Infof("creating %s", e.filename)
	}
	return nil
}

// IsOpen reports whether a track is currently open.
func (e *Emitter) IsOpen() bool {
	return e.open
}

// Refine merges freshly decoded information (a date/time or program
// number that only became available partway through the track) into
// the open track's Info, following the "first wins" rule for
// program number and "most recent wins" rule for date/time.
func (e *Emitter) Refine(info Info) {
	if !e.open {
		return
	}
	if info.ProgramNumber != nil && e.info.ProgramNumber == nil {
		e.info.ProgramNumber = info.ProgramNumber
	}
	if info.FirstDateTime != nil {
		if e.info.FirstDateTime == nil {
			e.info.FirstDateTime = info.FirstDateTime
		}
		e.info.LastDateTime = info.FirstDateTime
	}
	e.info.LastFrame = info.LastFrame
}

// WriteAudio writes raw PCM bytes for the currently open track and
// advances its sample counter by samples (samples per channel).
func (e *Emitter) WriteAudio(data []byte, samples int) error {
	if !e.open {
		return fmt.Errorf("track: write called with no track open")
	}
	if _, err := e.handle.Write(data); err != nil {
		return fmt.Errorf("track: write audio to %s: %w", e.filename, err)
	}
	e.nSamples += samples
	return nil
}

// Samples returns the number of interleaved sample frames written so
// far to the currently open track.
func (e *Emitter) Samples() int {
	return e.nSamples
}

// Close finalizes the currently open track: rewrites its header with
// the true sample count, mirrors the tape's timestamp onto the file,
// writes its .details sidecar, renames it to its final name, and
// deletes it instead if it fell short of the minimum track length.
// Closing when no track is open is a no-op.
func (e *Emitter) Close() error {
	if !e.open {
		return nil
	}
	defer func() {
		e.open = false
		e.handle = nil
	}()

	length := float64(e.nSamples) / float64(nonZero(int(e.info.SampleRate)))
	if length < e.minTrackSeconds {
		e.lastKept = false
		if err := e.handle.Close(); err != nil {
			return fmt.Errorf("track: close %s: %w", e.filename, err)
		}
		if e.log != nil {
			if e.nSamples == 0 {
				e.log.Infof("deleting %s - no data", e.filename)
			} else {
				e.log.Infof("deleting %s because %.2fs long - minimum track length %.2fs", e.filename, length, e.minTrackSeconds)
			}
		}
		return e.fs.Delete(e.filename)
	}
	e.lastKept = true

	if _, err := e.handle.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("track: seek %s: %w", e.filename, err)
	}
	header := WAVHeader(e.nSamples, int(e.info.Channels), int(e.info.SampleRate))
	if _, err := e.handle.Write(header); err != nil {
		return fmt.Errorf("track: rewrite header of %s: %w", e.filename, err)
	}
	if err := e.handle.Close(); err != nil {
		return fmt.Errorf("track: close %s: %w", e.filename, err)
	}

	if e.info.FirstDateTime != nil {
		if err := e.fs.SetTimes(e.filename, *e.info.FirstDateTime); err != nil {
			return fmt.Errorf("track: set times on %s: %w", e.filename, err)
		}
	}

	if err := e.writeDetails(); err != nil {
		return err
	}

	newName := e.filenameFor("wav")
	if newName != e.filename {
		if e.log != nil {
			e.log.Infof("renaming %s to %s", e.filename, newName)
		}
		if err := e.fs.Rename(e.filename, newName); err != nil {
			return fmt.Errorf("track: rename %s to %s: %w", e.filename, newName, err)
		}
		e.filename = newName
	}
	e.trackNumber++
	return nil
}

// Discard abandons the currently open track without finalizing it:
// the handle is closed and its file deleted, skipping the header
// rewrite, timestamp mirroring, and .details sidecar that Close
// writes for a kept track. Used when an operator declines to keep a
// track under interactive review. Discarding when no track is open is
// a no-op.
func (e *Emitter) Discard() error {
	if !e.open {
		return nil
	}
	defer func() {
		e.open = false
		e.handle = nil
	}()
	e.lastKept = false
	if err := e.handle.Close(); err != nil {
		return fmt.Errorf("track: close %s: %w", e.filename, err)
	}
	if e.log != nil {
		e.log.Infof("discarding %s per operator request", e.filename)
	}
	return e.fs.Delete(e.filename)
}

// formatDetailsTime renders t in ctime's locale-independent layout,
// or "--" when the track never saw a decodable date/time pack.
func formatDetailsTime(t *time.Time) string {
	if t == nil {
		return "--"
	}
	return t.Format(time.ANSIC)
}

func nonZero(v int) int {
	if v == 0 {
		return 1
	}
	return v
}

// filenameFor derives a track's filename from its first known
// date/time, falling back to a zero-padded track-number sequence.
func (e *Emitter) filenameFor(suffix string) string {
	if e.info.FirstDateTime != nil {
		t := *e.info.FirstDateTime
		return fmt.Sprintf("%s%04d-%02d-%02d-%02d-%02d-%02d.%s",
			e.prefix, t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), suffix)
	}
	return fmt.Sprintf("%s%d.%s", e.prefix, e.trackNumber, suffix)
}

func (e *Emitter) writeDetails() error {
	name := e.filenameFor("details")
	if e.log != nil {
		e.log.Infof("creating %s", name)
	}
	h, err := e.fs.Open(name)
	if err != nil {
		return fmt.Errorf("track: create %s: %w", name, err)
	}
	var quantization string
	if e.info.Encoding == frame.NonLinear12 {
		quantization = "12-bit non-linear"
	} else {
		quantization = "16-bit linear"
	}
	emphasis := "none"
	if e.info.Emphasis == frame.PreEmphasis {
		emphasis = "pre-emphasis"
	}

	fmt.Fprintf(h, "Sampling frequency: %d\n", e.info.SampleRate)
	fmt.Fprintf(h, "Channels: %d\n", e.info.Channels)
	fmt.Fprintf(h, "Samples: %d\n", e.nSamples)
	fmt.Fprintf(h, "Quantization: %s\n", quantization)
	fmt.Fprintf(h, "Emphasis: %s\n", emphasis)
	if e.info.ProgramNumber == nil {
		fmt.Fprintf(h, "Program_number: --\n")
	} else {
		fmt.Fprintf(h, "Program_number: %d\n", *e.info.ProgramNumber)
	}
	fmt.Fprintf(h, "First date: %s\n", formatDetailsTime(e.info.FirstDateTime))
	fmt.Fprintf(h, "Last date: %s\n", formatDetailsTime(e.info.LastDateTime))
	fmt.Fprintf(h, "First frame: %d\n", e.info.FirstFrame)
	fmt.Fprintf(h, "Last frame: %d\n", e.info.LastFrame)

	if err := h.Close(); err != nil {
		return fmt.Errorf("track: close %s: %w", name, err)
	}
	if e.info.FirstDateTime != nil {
		if err := e.fs.SetTimes(name, *e.info.FirstDateTime); err != nil {
			return fmt.Errorf("track: set times on %s: %w", name, err)
		}
	}
	return nil
}

// Warnf logs a warning for the currently open track, deduplicated by
// format string against warnings already emitted for this track.
func (e *Emitter) Warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if e.warnSeen == nil {
		e.warnSeen = make(map[string]struct{})
	}
	if _, seen := e.warnSeen[format]; seen {
		return
	}
	e.warnSeen[format] = struct{}{}
	if e.log != nil {
		e.log.Warnf("track %d: %s", e.trackNumber, msg)
	}
}
