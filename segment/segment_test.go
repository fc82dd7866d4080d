package segment

import (
	"testing"

	"github.com/quietloop/dat-recover/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func audioInfo(n int, rate frame.SampleRate) frame.FrameInfo {
	return frame.FrameInfo{
		FrameNumber: n,
		Validity:    frame.Valid,
		Channels:    frame.Stereo,
		SampleRate:  rate,
		Encoding:    frame.Linear16,
	}
}

func nonAudioInfo(n int) frame.FrameInfo {
	return frame.FrameInfo{FrameNumber: n, Validity: frame.NonAudio}
}

func invalidFieldsInfo(n int) frame.FrameInfo {
	return frame.FrameInfo{FrameNumber: n, Validity: frame.InvalidFields}
}

func TestOpensTrackOnFirstAudioFrame(t *testing.T) {
	s := New(DefaultConfig())
	info := audioInfo(0, frame.Rate48kHz)
	next := audioInfo(1, frame.Rate48kHz)
	res := s.Process(info, next)
	assert.True(t, res.OpenTrack)
	assert.True(t, res.WriteAudio)
	assert.True(t, s.TrackIsOpen())
}

func TestLoneNonAudioFrameDoesNotCloseTrack(t *testing.T) {
	s := New(DefaultConfig())
	// open a track first.
	s.Process(audioInfo(0, frame.Rate48kHz), audioInfo(1, frame.Rate48kHz))
	require.True(t, s.TrackIsOpen())

	// a single non-audio frame surrounded by consistent audio.
	res := s.Process(nonAudioInfo(1), audioInfo(2, frame.Rate48kHz))
	assert.Equal(t, ActionSkip, res.Action)
	assert.False(t, res.CloseTrack)
	assert.True(t, s.TrackIsOpen())
}

func TestSampleRateChangeClosesTrack(t *testing.T) {
	s := New(DefaultConfig())
	s.Process(audioInfo(50, frame.Rate48kHz), audioInfo(51, frame.Rate44_1kHz))
	require.True(t, s.TrackIsOpen())

	// frame 51 changes rate, sustained through the look-ahead (frame 52
	// also 44.1kHz) -> genuinely inconsistent, track closes and, with
	// no frames to skip, a new 44.1kHz track opens on the same frame.
	res := s.Process(audioInfo(51, frame.Rate44_1kHz), audioInfo(52, frame.Rate44_1kHz))
	assert.True(t, res.CloseTrack)
	assert.True(t, s.TrackIsOpen())
	assert.Equal(t, "change in sampling frequency", res.CloseReason)
}

func TestSingleFrameGlitchIsHealed(t *testing.T) {
	s := New(DefaultConfig())
	s.Process(audioInfo(10, frame.Rate48kHz), audioInfo(11, frame.Rate48kHz))
	require.True(t, s.TrackIsOpen())

	// frame 11 glitches to 44.1kHz but frame 12 (the look-ahead) is
	// back to 48kHz matching the open track -> healed, not closed.
	glitch := audioInfo(11, frame.Rate44_1kHz)
	lookahead := audioInfo(12, frame.Rate48kHz)
	res := s.Process(glitch, lookahead)
	assert.False(t, res.CloseTrack)
	assert.True(t, res.WriteAudio)
	assert.Equal(t, frame.Rate48kHz, res.EffectiveInfo.SampleRate)
	assert.True(t, s.TrackIsOpen())
}

func TestInvalidFieldsFrameDoesNotOpenTrack(t *testing.T) {
	s := New(DefaultConfig())
	// no track open yet; a frame with an out-of-range channels/rate
	// code must be treated as non-audio, not opened as a track.
	res := s.Process(invalidFieldsInfo(0), invalidFieldsInfo(1))
	assert.Equal(t, ActionSkip, res.Action)
	assert.False(t, res.OpenTrack)
	assert.False(t, res.WriteAudio)
	assert.False(t, s.TrackIsOpen())
}

func TestInvalidFieldsFrameMidTrackIsBridgedByConsistentLookahead(t *testing.T) {
	s := New(DefaultConfig())
	s.Process(audioInfo(0, frame.Rate48kHz), audioInfo(1, frame.Rate48kHz))
	require.True(t, s.TrackIsOpen())

	// frame 1 fails validation, but frame 2 (the look-ahead) matches
	// the open track -> bridged over silently, track stays open.
	res := s.Process(invalidFieldsInfo(1), audioInfo(2, frame.Rate48kHz))
	assert.Equal(t, ActionSkip, res.Action)
	assert.False(t, res.CloseTrack)
	assert.True(t, s.TrackIsOpen())
}

func TestInvalidFieldsFrameMidTrackWithoutRescueClosesTrack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConsecutiveNonAudioTrack = 0
	s := New(cfg)
	s.Process(audioInfo(0, frame.Rate48kHz), audioInfo(1, frame.Rate48kHz))
	require.True(t, s.TrackIsOpen())

	// frame 1 fails validation and frame 2 is also non-audio, so there
	// is no look-ahead frame to bridge against -> track closes.
	res := s.Process(invalidFieldsInfo(1), nonAudioInfo(2))
	assert.True(t, res.CloseTrack)
	assert.False(t, s.TrackIsOpen())
}

func TestProgramNumberStaysStickyUntilChangeDetected(t *testing.T) {
	s := New(DefaultConfig())

	pno1 := 1
	first := audioInfo(0, frame.Rate48kHz)
	first.ProgramNumber = &pno1
	s.Process(first, audioInfo(1, frame.Rate48kHz))
	require.True(t, s.TrackIsOpen())

	// several continuation frames carry no program number at all; the
	// track's sticky program number must survive them rather than
	// being reset to nil by the per-frame update.
	for n := 1; n <= 4; n++ {
		res := s.Process(audioInfo(n, frame.Rate48kHz), audioInfo(n+1, frame.Rate48kHz))
		assert.False(t, res.CloseTrack)
		require.True(t, s.TrackIsOpen())
	}

	// frame 5 and its look-ahead (frame 6) both carry a new program
	// number, sustained -> genuinely inconsistent, track closes and a
	// new track opens on the same frame.
	pno2 := 2
	changed := audioInfo(5, frame.Rate48kHz)
	changed.ProgramNumber = &pno2
	lookahead := audioInfo(6, frame.Rate48kHz)
	lookahead.ProgramNumber = &pno2
	res := s.Process(changed, lookahead)
	assert.True(t, res.CloseTrack)
	assert.True(t, s.TrackIsOpen())
	assert.Equal(t, "change in program number", res.CloseReason)
}

func TestGapMarkerClosesTrackAndSkipsFrame(t *testing.T) {
	s := New(DefaultConfig())
	s.Process(audioInfo(24, frame.Rate48kHz), audioInfo(25, frame.Rate48kHz))
	require.True(t, s.TrackIsOpen())

	gap := frame.FrameInfo{FrameNumber: 25, HexPNO: frame.HexPNOGap}
	res := s.Process(gap, audioInfo(26, frame.Rate48kHz))
	assert.Equal(t, ActionSkip, res.Action)
	assert.True(t, res.CloseTrack)
	assert.False(t, s.TrackIsOpen())
}

func TestEndOfTapeHalts(t *testing.T) {
	s := New(DefaultConfig())
	s.Process(audioInfo(0, frame.Rate48kHz), audioInfo(1, frame.Rate48kHz))
	eot := frame.FrameInfo{FrameNumber: 100, HexPNO: frame.HexPNOEndOfTape}
	res := s.Process(eot, frame.FrameInfo{})
	assert.Equal(t, ActionHalt, res.Action)
	assert.True(t, res.CloseTrack)
	assert.False(t, s.TrackIsOpen())
}

func TestConsecutiveNonAudioTapeLimitHalts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConsecutiveNonAudioTape = 2
	s := New(cfg)
	// no open track; each non-audio frame with an inconsistent lookahead.
	s.Process(nonAudioInfo(0), nonAudioInfo(1))
	res := s.Process(nonAudioInfo(1), nonAudioInfo(2))
	res = s.Process(nonAudioInfo(2), nonAudioInfo(3))
	assert.Equal(t, ActionHalt, res.Action)
}

func TestAfterAudioWriteMaxAudioSecondsHalts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxAudioSecondsRead = 1.0
	s := New(cfg)
	s.Process(audioInfo(0, frame.Rate48kHz), audioInfo(1, frame.Rate48kHz))
	lr := s.AfterAudioWrite(1.5, 1.5)
	assert.True(t, lr.Halt)
	assert.True(t, lr.CloseTrack)
	assert.False(t, s.TrackIsOpen())
}

func TestAfterAudioWriteMaxTrackSecondsClosesWithoutHalt(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxTrackSeconds = 1.0
	s := New(cfg)
	s.Process(audioInfo(0, frame.Rate48kHz), audioInfo(1, frame.Rate48kHz))
	lr := s.AfterAudioWrite(0.1, 1.5)
	assert.True(t, lr.CloseTrack)
	assert.False(t, lr.Halt)
}
