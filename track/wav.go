package track

import "encoding/binary"

// HeaderLength is the size in bytes of a canonical 16-bit PCM WAV
// header (RIFF/WAVE/fmt /data chunks, no extension fields).
const HeaderLength = 44

const bytesPerSample = 2
const bitsPerSample = 16

// WAVHeader builds a fresh 44-byte WAV header for samples interleaved
// audio frames of channels channels at frequency Hz. It returns a
// newly allocated slice on every call rather than a shared buffer, so
// concurrent tracks (or a rewrite-on-close followed by a read for
// verification) never alias each other's bytes.
func WAVHeader(samples, channels, frequency int) []byte {
	h := make([]byte, HeaderLength)
	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], uint32(36+samples*channels*bytesPerSample))
	copy(h[8:12], "WAVE")
	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16)
	binary.LittleEndian.PutUint16(h[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(h[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(h[24:28], uint32(frequency))
	binary.LittleEndian.PutUint32(h[28:32], uint32(frequency*channels*bytesPerSample))
	binary.LittleEndian.PutUint16(h[32:34], uint16(channels*bytesPerSample))
	binary.LittleEndian.PutUint16(h[34:36], uint16(bitsPerSample))
	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], uint32(samples*channels*bytesPerSample))
	return h
}
