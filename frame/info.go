package frame

import "time"

// Validity classifies the outcome of parsing a frame's control fields.
type Validity int

const (
	// Valid means the frame carries a fully decoded audio format.
	Valid Validity = iota
	// InvalidFields means the frame claims to carry audio but one or
	// more control fields (channels, sample rate) hold a reserved or
	// out-of-range value.
	InvalidFields
	// NonAudio means the frame's subcode data-id marks it as
	// something other than an audio frame (e.g. table of contents).
	NonAudio
)

// Channels is the decoded channel count.
type Channels int

const (
	Stereo    Channels = 2
	Quad      Channels = 4
)

// SampleRate is the decoded sampling frequency in Hz.
type SampleRate int

const (
	Rate48kHz SampleRate = 48000
	Rate44_1kHz SampleRate = 44100
	Rate32kHz SampleRate = 32000
)

// Encoding is the decoded quantization scheme.
type Encoding int

const (
	Linear16    Encoding = 0
	NonLinear12 Encoding = 1
)

// Emphasis is the decoded pre-emphasis flag.
type Emphasis int

const (
	NoEmphasis  Emphasis = 0
	PreEmphasis Emphasis = 1
)

// Hex-encoded program-number sentinels found in the sub-id field.
const (
	HexPNOGap        = 0x0BB
	HexPNOEndOfTape  = 0x0EE
)

// Interpolate-flag bits that indicate the drive substituted
// interpolated samples for a section it could not read cleanly.
const (
	InterpolateFlagA = 0x40
	InterpolateFlagB = 0x20
)

// FrameInfo is the decoded control information for one frame. Fields
// the source frame did not supply use nil/zero-value pointers rather
// than sentinel values (-1, (time_t)-1).
type FrameInfo struct {
	FrameNumber int

	Validity   Validity
	Channels   Channels
	SampleRate SampleRate
	Encoding   Encoding
	Emphasis   Emphasis

	// DateTime is the decoded subcode date/time pack, if any pack in
	// this frame carried one.
	DateTime *time.Time

	// ProgramNumber is the BCD-decoded program number, present only
	// when the sub-id control bits mark a start of track and all three
	// PNO digits are valid BCD; nil otherwise.
	ProgramNumber *int

	// HexPNO is the raw hex-nibble program number from the sub-id
	// field, used for gap/end-of-tape detection and by the merge tool.
	HexPNO int

	// InterpolateFlags is the raw interpolate-flag byte from the
	// sub-id field.
	InterpolateFlags byte
}

// IsAudio reports whether this frame carries usable audio payload
// data. A frame whose channel or sample-rate code was out of range
// (InvalidFields) is not audio either — it is handled the same way as
// a NonAudio frame, unless look-ahead healing rescues it.
func (fi FrameInfo) IsAudio() bool {
	return fi.Validity == Valid
}

// Interpolated reports whether the drive flagged this frame as
// containing interpolated (concealed) samples.
func (fi FrameInfo) Interpolated() bool {
	return fi.InterpolateFlags&(InterpolateFlagA|InterpolateFlagB) != 0
}
