// Command dat-demux splits a stream of DAT frames (typically the
// output of dat-merge) into per-track WAV files and .details sidecars.
package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/quietloop/dat-recover/audio"
	"github.com/quietloop/dat-recover/diskimage"
	"github.com/quietloop/dat-recover/frame"
	"github.com/quietloop/dat-recover/preview"
	"github.com/quietloop/dat-recover/progress"
	"github.com/quietloop/dat-recover/review"
	"github.com/quietloop/dat-recover/segment"
	"github.com/quietloop/dat-recover/track"
)

const version = "1.0"

type flags struct {
	maxNonAudioTape    int
	maxNonAudioTrack   int
	ignoreDateTime     bool
	minTrackLength     float64
	maxTrackLength     float64
	ignoreProgramNum   bool
	prefix             string
	quiet              bool
	readNSeconds       float64
	skipNFrames        int
	seekNFrames        int
	verbosity          int
	showVersion        bool
	interactive        bool
	showProgress       bool
	diskimagePath      string
	diskimageSizeBytes int64
	preview            bool
	previewSeconds     float64
}

func main() {
	f := &flags{}
	cmd := &cobra.Command{
		Use:   "dat-demux [input-file]",
		Short: "Split a DAT frame stream into per-track WAV files",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(f, args)
		},
	}

	fl := cmd.Flags()
	fl.IntVarP(&f.maxNonAudioTape, "max_nonaudio_tape", "a", 10, "halt after N consecutive non-audio frames")
	fl.IntVarP(&f.maxNonAudioTrack, "max_nonaudio_track", "A", 0, "close track after N consecutive non-audio frames")
	fl.BoolVarP(&f.ignoreDateTime, "ignore_date_time", "d", false, "disable date/time segmentation")
	fl.Float64VarP(&f.minTrackLength, "minimum_track_length", "m", 1.0, "delete tracks shorter than S seconds")
	fl.Float64VarP(&f.maxTrackLength, "maximum_track_length", "M", 360000.0, "close track at S seconds")
	fl.BoolVarP(&f.ignoreProgramNum, "ignore_program_number", "n", false, "disable PNO segmentation")
	fl.StringVarP(&f.prefix, "prefix", "p", "", "output filename prefix")
	fl.BoolVarP(&f.quiet, "quiet", "q", false, "suppress warnings")
	fl.Float64VarP(&f.readNSeconds, "read_n_seconds", "r", 360000.0, "halt after S audio seconds produced")
	fl.IntVarP(&f.skipNFrames, "skip_n_frames", "s", 0, "drop N frames after each segment change")
	fl.IntVarP(&f.seekNFrames, "seek_n_frames", "S", 0, "advance input by N frames at start")
	fl.IntVarP(&f.verbosity, "verbose", "v", 1, "verbosity 0..5")
	fl.BoolVarP(&f.showVersion, "version", "V", false, "print version and continue")
	fl.BoolVar(&f.interactive, "interactive", false, "confirm each track the segmenter closes, interactively")
	fl.BoolVar(&f.showProgress, "progress", false, "show a live status board while running")
	fl.StringVar(&f.diskimagePath, "diskimage", "", "also build a FAT32 disk image of recovered tracks at this path")
	fl.Int64Var(&f.diskimageSizeBytes, "diskimage_size", 700*1024*1024, "size in bytes of the disk image, if built")
	fl.BoolVar(&f.preview, "preview", false, "play back a few seconds of each finished track")
	fl.Float64Var(&f.previewSeconds, "preview_seconds", 3.0, "seconds of audio to play back per track when --preview is set")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(f *flags, args []string) error {
	if f.showVersion {
		fmt.Printf("dat-demux %s\n", version)
	}

	logger := logrus.New()
	logger.SetLevel(levelFor(f.verbosity, f.quiet))
	entry := logger.WithField("run_id", uuid.New().String())

	in, closeIn, err := openInput(args)
	if err != nil {
		return err
	}
	defer closeIn()

	if err := seekPastFrames(in, f.seekNFrames); err != nil {
		return fmt.Errorf("dat-demux: seeking past %d frames: %w", f.seekNFrames, err)
	}

	segCfg := segment.DefaultConfig()
	segCfg.Options.SegmentOnDateTime = !f.ignoreDateTime
	segCfg.Options.SegmentOnProgramNumber = !f.ignoreProgramNum
	segCfg.SkipFramesOnSegmentChange = f.skipNFrames
	segCfg.MaxConsecutiveNonAudioTrack = f.maxNonAudioTrack
	segCfg.MaxConsecutiveNonAudioTape = f.maxNonAudioTape
	segCfg.MaxTrackSeconds = f.maxTrackLength
	segCfg.MaxAudioSecondsRead = f.readNSeconds
	seg := segment.New(segCfg)

	emitter := track.NewEmitter(track.DiskFileSystem{}, f.prefix, f.minTrackLength, entry)

	var board *progress.Board
	if f.showProgress {
		board = progress.New()
		if err := board.Start(); err != nil {
			return err
		}
		defer board.Stop()
	}

	previewSeconds := 0.0
	if f.preview {
		previewSeconds = f.previewSeconds
	}

	d := &demuxer{
		seg:            seg,
		emitter:        emitter,
		log:            entry,
		board:          board,
		interactive:    f.interactive,
		previewSeconds: previewSeconds,
	}

	if err := d.run(in, f.verbosity, f.seekNFrames); err != nil {
		return err
	}

	if f.diskimagePath != "" {
		if err := buildDiskImage(f.diskimagePath, f.diskimageSizeBytes, d.closedTracks); err != nil {
			return err
		}
	}
	return nil
}

func levelFor(verbosity int, quiet bool) logrus.Level {
	if quiet {
		return logrus.ErrorLevel
	}
	switch {
	case verbosity <= 0:
		return logrus.ErrorLevel
	case verbosity >= 4:
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

func openInput(args []string) (io.Reader, func(), error) {
	if len(args) == 0 || args[0] == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, nil, fmt.Errorf("dat-demux: open %s: %w", args[0], err)
	}
	return f, func() { f.Close() }, nil
}

// seekPastFrames advances past n whole frames, using io.Seeker when
// available and falling back to reading and discarding otherwise.
func seekPastFrames(r io.Reader, n int) error {
	if n <= 0 {
		return nil
	}
	if seeker, ok := r.(io.Seeker); ok {
		if _, err := seeker.Seek(int64(n)*frame.Size, io.SeekCurrent); err == nil {
			return nil
		}
	}
	discard := make([]byte, frame.Size)
	for i := 0; i < n; i++ {
		if _, err := io.ReadFull(r, discard); err != nil {
			return err
		}
	}
	return nil
}

// demuxer holds the state threaded through one run of the frame loop:
// the segmenter and emitter driving track boundaries, and the
// optional side effects (progress board, interactive review, preview
// playback, disk-image bookkeeping) hung off a closed track.
type demuxer struct {
	seg            *segment.Segmenter
	emitter        *track.Emitter
	log            *logrus.Entry
	board          *progress.Board
	interactive    bool
	previewSeconds float64

	closedTracks    []diskimage.Track
	speakerRate     int
	speakerInitDone bool
}

func (d *demuxer) run(in io.Reader, verbosity, seekNFrames int) error {
	cur, err := frame.ReadFrame(in)
	if err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("dat-demux: read frame %d: %w", seekNFrames, err)
	}

	frameNum := seekNFrames
	for {
		next, nextErr := frame.ReadFrame(in)
		hasNext := nextErr == nil
		if nextErr != nil && nextErr != io.EOF {
			return fmt.Errorf("dat-demux: read frame %d: %w", frameNum+1, nextErr)
		}

		info := frame.Parse(cur, frameNum, d.emitter)
		nextInfo := frame.FrameInfo{Validity: frame.NonAudio}
		if hasNext {
			nextInfo = frame.Parse(next, frameNum+1, d.emitter)
		}

		if verbosity >= 4 {
			head, tail := info.DebugSamples(cur)
			d.log.Debugf("frame %d samples: %v ... %v", frameNum, head, tail)
		}

		res := d.seg.Process(info, nextInfo)
		for _, w := range res.Warnings {
			d.log.Warnf("frame %d: %s", frameNum, w)
		}

		if res.CloseTrack && d.emitter.IsOpen() {
			if err := d.closeOrDiscard(res.CloseReason); err != nil {
				return err
			}
		}

		if res.OpenTrack {
			if err := d.emitter.Open(trackInfoFrom(res.EffectiveInfo, frameNum)); err != nil {
				return err
			}
		}

		if res.WriteAudio {
			d.emitter.Refine(trackInfoFrom(res.EffectiveInfo, frameNum))
			var buf bytes.Buffer
			samples, werr := audio.Write(&buf, cur, res.EffectiveInfo)
			if werr != nil {
				return fmt.Errorf("dat-demux: encode frame %d: %w", frameNum, werr)
			}
			if err := d.emitter.WriteAudio(buf.Bytes(), samples); err != nil {
				return err
			}

			rate := float64(res.EffectiveInfo.SampleRate)
			if rate == 0 {
				rate = 1
			}
			delta := float64(samples) / rate
			trackSeconds := float64(d.emitter.Samples()) / rate
			lr := d.seg.AfterAudioWrite(delta, trackSeconds)
			if lr.Reason != "" {
				d.log.Infof("track limit: %s", lr.Reason)
			}
			if lr.CloseTrack && d.emitter.IsOpen() {
				if err := d.closeAndKeep(); err != nil {
					return err
				}
			}
			if lr.Halt {
				res.Action = segment.ActionHalt
			}

			if d.board != nil {
				d.board.Render(progress.Status{
					FramesRead:   frameNum + 1,
					TrackNumber:  d.emitter.TrackNumber(),
					TrackSeconds: trackSeconds,
				})
			}
		}

		if res.Action == segment.ActionHalt {
			break
		}
		if !hasNext {
			break
		}
		cur = next
		frameNum++
	}

	if d.emitter.IsOpen() {
		if err := d.closeAndKeep(); err != nil {
			return err
		}
	}
	return nil
}

// closeOrDiscard finalizes the open track, asking the operator first
// when running interactively and a reason is available to show them.
// Declining discards the track instead of keeping it.
func (d *demuxer) closeOrDiscard(reason string) error {
	keep := true
	if d.interactive && reason != "" {
		keep = review.Confirm(d.emitter.CurrentFilename(), reason)
	}
	if !keep {
		return d.emitter.Discard()
	}
	return d.closeAndKeep()
}

// closeAndKeep finalizes the open track and, if it survived the
// minimum-length prune, records it for disk-image assembly and plays
// back a preview clip when enabled.
func (d *demuxer) closeAndKeep() error {
	if err := d.emitter.Close(); err != nil {
		return err
	}
	if !d.emitter.LastClosedKept() {
		return nil
	}
	name := d.emitter.CurrentFilename()
	recordClosedTrack(&d.closedTracks, name)

	if d.previewSeconds > 0 {
		info := d.emitter.LastClosedInfo()
		if err := d.playPreview(name, int(info.Channels), int(info.SampleRate)); err != nil {
			d.log.Warnf("preview playback of %s failed: %v", name, err)
		}
	}
	return nil
}

// playPreview plays the first previewSeconds of a just-closed track
// through the default audio device, blocking until playback finishes.
func (d *demuxer) playPreview(path string, channels, rate int) error {
	if channels < 1 {
		channels = 1
	}
	if rate < 1 {
		return fmt.Errorf("dat-demux: preview %s: no sample rate known", path)
	}

	st, err := preview.Open(path, channels)
	if err != nil {
		return err
	}
	defer st.Close()

	if !d.speakerInitDone || d.speakerRate != rate {
		sr := beep.SampleRate(rate)
		if err := speaker.Init(sr, sr.N(time.Second/10)); err != nil {
			return fmt.Errorf("dat-demux: init speaker at %d Hz: %w", rate, err)
		}
		d.speakerInitDone = true
		d.speakerRate = rate
	}

	clip := beep.Take(beep.SampleRate(rate).N(time.Duration(d.previewSeconds*float64(time.Second))), st)
	done := make(chan struct{})
	speaker.Play(beep.Seq(clip, beep.Callback(func() { close(done) })))
	<-done
	return nil
}

func trackInfoFrom(fi frame.FrameInfo, frameNum int) track.Info {
	return track.Info{
		Channels:      fi.Channels,
		SampleRate:    fi.SampleRate,
		Encoding:      fi.Encoding,
		Emphasis:      fi.Emphasis,
		ProgramNumber: fi.ProgramNumber,
		FirstDateTime: fi.DateTime,
		FirstFrame:    frameNum,
		LastFrame:     frameNum,
	}
}

func recordClosedTrack(tracks *[]diskimage.Track, wavPath string) {
	if wavPath == "" {
		return
	}
	base := wavPath
	if len(base) > 4 && base[len(base)-4:] == ".wav" {
		base = base[:len(base)-4]
	}
	*tracks = append(*tracks, diskimage.Track{
		Name:        base,
		WAVPath:     wavPath,
		DetailsPath: base + ".details",
	})
}

func buildDiskImage(path string, sizeBytes int64, tracks []diskimage.Track) error {
	img, err := diskimage.Create(sizeBytes, "DATRECOVR")
	if err != nil {
		return err
	}

	for i, t := range tracks {
		if err := img.AddTrack(i, t); err != nil {
			img.Close()
			return err
		}
	}

	if err := img.Close(); err != nil {
		img.Remove()
		return err
	}
	defer img.Remove()

	data, err := os.ReadFile(img.Path)
	if err != nil {
		return fmt.Errorf("dat-demux: read built image: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("dat-demux: write %s: %w", path, err)
	}
	return nil
}
