// Package segment implements the tape-to-track state machine: given
// each frame's decoded info and a one-frame look-ahead, it decides
// whether the current track should keep growing, close, skip a
// frame, or stop reading altogether.
package segment

import (
	"fmt"

	"github.com/quietloop/dat-recover/frame"
)

// Action tells the caller what to do with the input stream after a
// call to Process.
type Action int

const (
	// ActionContinue means keep reading frames normally.
	ActionContinue Action = iota
	// ActionSkip means discard this frame without writing audio and
	// move to the next one.
	ActionSkip
	// ActionHalt means stop reading altogether; the tape end or an
	// unrecoverable run of non-audio frames has been reached.
	ActionHalt
)

// Result reports the caller-visible effect of processing one frame.
type Result struct {
	Action Action

	OpenTrack  bool
	CloseTrack bool
	WriteAudio bool

	// EffectiveInfo is the FrameInfo the caller should actually act
	// on: normally the input info unchanged, but when a lone
	// inconsistent frame is healed by borrowing the look-ahead
	// frame's fields, it differs from the raw parse.
	EffectiveInfo frame.FrameInfo

	CloseReason string
	Warnings    []string
}

// Segmenter is the state machine described in the package doc. Zero
// value is not usable; construct with New.
type Segmenter struct {
	opts Options

	skipFramesOnSegmentChange   int
	maxConsecutiveNonAudioTrack int
	maxConsecutiveNonAudioTape  int
	maxTrackSeconds             float64
	maxAudioSecondsRead         float64

	consecutiveNonAudioFrames int
	skipNFrames               int
	audioSecondsRead          float64

	trackOpen bool
	trackInfo frame.FrameInfo
}

// Config bundles the tunables of a Segmenter, one field per CLI flag
// the demux tool exposes for tuning segmentation.
type Config struct {
	Options                     Options
	SkipFramesOnSegmentChange   int
	MaxConsecutiveNonAudioTrack int
	MaxConsecutiveNonAudioTape  int
	MaxTrackSeconds             float64
	MaxAudioSecondsRead         float64
}

// DefaultConfig matches the original tool's compiled-in defaults.
func DefaultConfig() Config {
	return Config{
		Options:                     DefaultOptions(),
		SkipFramesOnSegmentChange:   0,
		MaxConsecutiveNonAudioTrack: 0,
		MaxConsecutiveNonAudioTape:  10,
		MaxTrackSeconds:             360000.0,
		MaxAudioSecondsRead:         360000.0,
	}
}

// New constructs a Segmenter from cfg, raising MaxConsecutiveNonAudioTape
// to match MaxConsecutiveNonAudioTrack if it would otherwise be smaller
// (with a tighter tape-wide limit, the per-track one could never fire).
func New(cfg Config) *Segmenter {
	if cfg.MaxConsecutiveNonAudioTape < cfg.MaxConsecutiveNonAudioTrack {
		cfg.MaxConsecutiveNonAudioTape = cfg.MaxConsecutiveNonAudioTrack
	}
	return &Segmenter{
		opts:                        cfg.Options,
		skipFramesOnSegmentChange:   cfg.SkipFramesOnSegmentChange,
		maxConsecutiveNonAudioTrack: cfg.MaxConsecutiveNonAudioTrack,
		maxConsecutiveNonAudioTape:  cfg.MaxConsecutiveNonAudioTape,
		maxTrackSeconds:             cfg.MaxTrackSeconds,
		maxAudioSecondsRead:         cfg.MaxAudioSecondsRead,
	}
}

// TrackIsOpen reports whether the Segmenter believes a track is
// currently open.
func (s *Segmenter) TrackIsOpen() bool {
	return s.trackOpen
}

// Process advances the state machine by one frame. info is the
// current frame's decoded control data; next is a one-frame
// look-ahead, used both for glitch-healing and for deciding whether a
// short run of non-audio frames can be bridged.
func (s *Segmenter) Process(info, next frame.FrameInfo) Result {
	res := Result{EffectiveInfo: info}

	if info.HexPNO == frame.HexPNOEndOfTape {
		res.Action = ActionHalt
		res.CloseTrack = s.trackOpen
		res.CloseReason = "end of tape reached (0x0EE pno found)"
		s.trackOpen = false
		return res
	}

	if info.HexPNO == frame.HexPNOGap {
		res.Action = ActionSkip
		if s.trackOpen {
			res.CloseTrack = true
			res.CloseReason = "closing track, 0x0BB pno seen"
			s.trackOpen = false
		}
		return res
	}

	if info.Interpolated() {
		res.Warnings = append(res.Warnings, "interpolate_flags set - ignoring")
	}

	if !info.IsAudio() {
		return s.processNonAudio(info, next, res)
	}

	return s.processAudio(info, next, res)
}

func (s *Segmenter) processNonAudio(info, next frame.FrameInfo, res Result) Result {
	s.consecutiveNonAudioFrames++
	if s.consecutiveNonAudioFrames > s.maxConsecutiveNonAudioTape {
		res.Action = ActionHalt
		res.CloseTrack = s.trackOpen
		res.CloseReason = fmt.Sprintf("%d consecutive frames of non-audio data encountered", s.consecutiveNonAudioFrames)
		s.trackOpen = false
		return res
	}

	if !s.trackOpen {
		res.Action = ActionSkip
		return res
	}

	if next.IsAudio() && inconsistent(s.trackInfo, next, s.opts) == "" {
		// next frame's info belongs with the current track; this
		// non-audio frame is bridged over silently.
		res.Action = ActionSkip
		return res
	}

	if s.consecutiveNonAudioFrames >= s.maxConsecutiveNonAudioTrack {
		res.CloseTrack = true
		res.CloseReason = fmt.Sprintf("%d frames of non-audio data encountered", s.consecutiveNonAudioFrames)
		s.trackOpen = false
	}
	res.Action = ActionSkip
	return res
}

func (s *Segmenter) processAudio(info, next frame.FrameInfo, res Result) Result {
	s.consecutiveNonAudioFrames = 0

	if s.trackOpen {
		reason := inconsistent(s.trackInfo, info, s.opts)
		if reason != "" && inconsistent(s.trackInfo, next, s.opts) == "" {
			healed := info
			healed.Channels = next.Channels
			healed.SampleRate = next.SampleRate
			healed.Encoding = next.Encoding
			healed.Emphasis = next.Emphasis
			healed.ProgramNumber = next.ProgramNumber
			healed.DateTime = next.DateTime
			res.EffectiveInfo = healed
			res.Warnings = append(res.Warnings, fmt.Sprintf("ignoring %s because previous & next frame consistent", reason))
			reason = ""
		}
		if reason != "" {
			res.CloseTrack = true
			res.CloseReason = reason
			s.trackOpen = false
			s.skipNFrames = s.skipFramesOnSegmentChange
		}
	}

	if s.skipNFrames > 0 {
		s.skipNFrames--
		res.Action = ActionSkip
		return res
	}

	if !s.trackOpen {
		res.OpenTrack = true
		s.trackOpen = true
		s.trackInfo = res.EffectiveInfo
	} else {
		s.trackInfo.FrameNumber = res.EffectiveInfo.FrameNumber
		if res.EffectiveInfo.DateTime != nil {
			s.trackInfo.DateTime = res.EffectiveInfo.DateTime
		}
		if res.EffectiveInfo.ProgramNumber != nil && s.trackInfo.ProgramNumber == nil {
			s.trackInfo.ProgramNumber = res.EffectiveInfo.ProgramNumber
		}
	}
	res.WriteAudio = true
	return res
}

// LimitResult reports what should happen after accounting for a
// frame's contribution to the running audio-seconds and track-seconds
// counters.
type LimitResult struct {
	CloseTrack bool
	Halt       bool
	Reason     string
}

// AfterAudioWrite updates the tape-wide audio-seconds counter by
// deltaSeconds and checks it, and the current track's length in
// trackSeconds, against the configured limits. Call once per audio
// frame written, after the audio package reports how many seconds of
// samples it wrote.
func (s *Segmenter) AfterAudioWrite(deltaSeconds, trackSeconds float64) LimitResult {
	s.audioSecondsRead += deltaSeconds
	if s.audioSecondsRead >= s.maxAudioSecondsRead {
		s.trackOpen = false
		return LimitResult{
			CloseTrack: true,
			Halt:       true,
			Reason:     fmt.Sprintf("limit of %.2f seconds reached", s.maxAudioSecondsRead),
		}
	}
	if trackSeconds >= s.maxTrackSeconds {
		s.trackOpen = false
		return LimitResult{
			CloseTrack: true,
			Reason:     fmt.Sprintf("limit of %.2f seconds reached", s.maxTrackSeconds),
		}
	}
	return LimitResult{}
}
