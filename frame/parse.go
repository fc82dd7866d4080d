package frame

import (
	"fmt"
	"time"
)

// subcode pack id values that carry a decodable payload.
const (
	packIDUnused       = 0
	packIDProgramTime  = 1
	packIDAbsoluteTime = 2
	packIDRunningTime  = 3
	packIDTOC          = 4
	packIDDate         = 5
	packIDCatalog      = 6
)

// sub-id control-id bits identifying the start of a track.
const (
	ctrlPrio  = 8
	ctrlStart = 4
)

// Warner receives non-fatal diagnostics produced while parsing a
// frame. Callers that don't care may pass a nil Warner.
type Warner interface {
	Warnf(format string, args ...any)
}

// Parse decodes the control fields of one frame. frameNumber is
// carried through into the result and into any diagnostics for
// caller-side logging; it plays no role in the decode itself.
func Parse(f Frame, frameNumber int, w Warner) FrameInfo {
	mainid := f.mainid()
	subid := f.subid()

	channels := (mainid[0] >> 0) & 0x3
	samplerate := (mainid[0] >> 2) & 0x3
	emphasis := (mainid[0] >> 4) & 0x3
	encoding := (subMainIDEncoding(mainid))

	dataid := (subid[0] >> 0) & 0xf
	ctrlid := (subid[0] >> 4) & 0xf
	pno1 := (subid[1] >> 4) & 0xf
	pno2 := (subid[2] >> 4) & 0xf
	pno3 := (subid[2] >> 0) & 0xf
	interpolateFlags := subid[3]
	hexPNO := (int(pno1) << 8) | (int(pno2) << 4) | int(pno3)
	bcdPNO := int(pno1)*100 + int(pno2)*10 + int(pno3)

	info := FrameInfo{
		FrameNumber:      frameNumber,
		Channels:         Stereo,
		SampleRate:       Rate48kHz,
		HexPNO:           hexPNO,
		InterpolateFlags: interpolateFlags,
	}

	if dataid != 0 {
		info.Validity = NonAudio
		return info
	}

	if ctrlid&ctrlStart != 0 && ctrlid&ctrlPrio != 0 && pno1 < 10 && pno2 < 10 && pno3 < 10 {
		pn := bcdPNO
		info.ProgramNumber = &pn
	}

	for i := 0; i < NumPacks; i++ {
		parseSubcodePack(f.pack(i), i, frameNumber, &info, w)
	}

	switch channels {
	case 0:
		info.Channels = Stereo
	case 1:
		info.Channels = Quad
	default:
		info.Validity = InvalidFields
		warnf(w, "frame %d: invalid value for channels(%d)", frameNumber, channels)
	}

	switch samplerate {
	case 0:
		info.SampleRate = Rate48kHz
	case 1:
		info.SampleRate = Rate44_1kHz
	case 2:
		info.SampleRate = Rate32kHz
	default:
		info.Validity = InvalidFields
		warnf(w, "frame %d: invalid value for sampling_frequency(%d)", frameNumber, samplerate)
	}

	info.Encoding = encoding
	info.Emphasis = Emphasis(emphasis)

	return info
}

func subMainIDEncoding(mainid []byte) Encoding {
	return Encoding((mainid[1] >> 6) & 0x3)
}

func warnf(w Warner, format string, args ...any) {
	if w != nil {
		w.Warnf(format, args...)
	}
}

// parseSubcodePack decodes one 8-byte subcode pack, checking its
// parity byte first and discarding the pack silently (as the original
// decoder does) on mismatch.
func parseSubcodePack(pack []byte, packIndex, frameNumber int, info *FrameInfo, w Warner) {
	id := (pack[0] >> 4) & 0x0f
	if id == 0 {
		return
	}

	var parity byte
	for j := 0; j < 7; j++ {
		parity ^= pack[j]
	}
	if parity != pack[7] {
		return
	}

	switch id {
	case packIDProgramTime, packIDAbsoluteTime, packIDRunningTime:
		// diagnostic-only index/time fields; nothing to store.
	case packIDDate:
		parseDatePack(pack, frameNumber, info, w)
	default:
		// TOC, catalog, ISRC, pro-binary packs: acknowledged, not decoded.
	}
}

func unBCD(i byte) int {
	return int((i>>4)&0x0f)*10 + int(i&0x0f)
}

// parseDatePack decodes subcode id=5, the date/time pack. The hour
// field carries an empirical -1 adjustment: without it, times decoded
// from a Sony TCD-D8 are off by one hour.
func parseDatePack(pack []byte, frameNumber int, info *FrameInfo, w Warner) {
	weekday := int(pack[0] & 0xf)
	if weekday > 7 {
		return
	}

	year := unBCD(pack[1])
	if year < 50 {
		year += 2000
	} else {
		year += 1900
	}
	month := unBCD(pack[2])
	day := unBCD(pack[3])
	hour := unBCD(pack[4]) - 1
	min := unBCD(pack[5])
	sec := unBCD(pack[6])

	if month < 1 || month > 12 || day < 1 || day > 31 || hour < 0 || hour > 23 {
		warnf(w, "frame %d: can not convert time", frameNumber)
		return
	}

	t := time.Date(year, time.Month(month), day, hour, min, sec, 0, time.Local)
	info.DateTime = &t

	// tape weekday nibble is 1=Sunday; Go's Weekday is 0=Sunday.
	if weekday-1 != int(t.Weekday()) {
		warnf(w, "frame %d: day of week apparently set incorrectly on recording - using correct day of week", frameNumber)
	}
}

// String reports a compact human-readable form of a Validity value.
func (v Validity) String() string {
	switch v {
	case Valid:
		return "valid"
	case InvalidFields:
		return "invalid"
	case NonAudio:
		return "non-audio"
	default:
		return fmt.Sprintf("Validity(%d)", int(v))
	}
}
