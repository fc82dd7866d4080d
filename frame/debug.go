package frame

import "encoding/binary"

// DebugSamples returns the first and last five 16-bit little-endian
// sample words of the frame's raw payload, for high-verbosity manual
// inspection. It makes no claim about how those words should be
// interpreted (linear vs. non-linear encoding) — it is a raw dump.
func (fi FrameInfo) DebugSamples(f Frame) (head, tail []int16) {
	head = make([]int16, 5)
	for i := range head {
		head[i] = int16(binary.LittleEndian.Uint16(f[i*2 : i*2+2]))
	}
	tail = make([]int16, 5)
	base := DataSize - 10
	for i := range tail {
		tail[i] = int16(binary.LittleEndian.Uint16(f[base+i*2 : base+i*2+2]))
	}
	return head, tail
}
