package merge

import (
	"bytes"
	"testing"

	"github.com/quietloop/dat-recover/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeFrame(fill byte, hexPNO int) []byte {
	f := make([]byte, frame.Size)
	for i := 0; i < frame.DataSize; i++ {
		f[i] = fill
	}
	subid := f[frame.SubIDOffset : frame.SubIDOffset+4]
	pno1 := byte((hexPNO >> 8) & 0xf)
	pno2 := byte((hexPNO >> 4) & 0xf)
	pno3 := byte(hexPNO & 0xf)
	subid[1] = pno1 << 4
	subid[2] = (pno2 << 4) | pno3
	return f
}

func concatFrames(frames ...[]byte) []byte {
	var out []byte
	for _, f := range frames {
		out = append(out, f...)
	}
	return out
}

func TestMergeIdenticalInputsByteIdentical(t *testing.T) {
	frames := make([][]byte, 0, 100)
	for i := 0; i < 100; i++ {
		frames = append(frames, makeFrame(0x00, 0x001))
	}
	data := concatFrames(frames...)

	m := New(bytes.NewReader(data), bytes.NewReader(append([]byte{}, data...)), bytes.NewReader(append([]byte{}, data...)))
	var out bytes.Buffer
	stats, err := m.Merge(&out)
	require.NoError(t, err)
	assert.Equal(t, 100, stats.Frames)
	assert.Equal(t, [3]int{0, 0, 0}, stats.CorrectedErrors)
	assert.Equal(t, 0, stats.UncorrectedErrors)
	assert.Equal(t, len(data), out.Len())
	assert.True(t, bytes.Equal(data, out.Bytes()))
}

func TestMergeTwoVersusOneMajorityWins(t *testing.T) {
	a := makeFrame(0x00, 0x001)
	b := makeFrame(0x00, 0x001)
	c := makeFrame(0x00, 0x001)
	c[1000] = 0xFF // input 2 disagrees alone

	m := New(bytes.NewReader(a), bytes.NewReader(b), bytes.NewReader(c))
	var out bytes.Buffer
	stats, err := m.Merge(&out)
	require.NoError(t, err)
	assert.Equal(t, byte(0x00), out.Bytes()[1000])
	assert.Equal(t, 1, stats.CorrectedErrors[2])
	assert.Equal(t, 0, stats.CorrectedErrors[0])
	assert.Equal(t, 0, stats.CorrectedErrors[1])
}

func TestMergeThreeWayDisagreementUsesTiebreak(t *testing.T) {
	a := makeFrame(0x00, 0x001)
	b := makeFrame(0x00, 0x001)
	c := makeFrame(0x00, 0x001)
	a[2000] = 0x01
	b[2000] = 0x02
	c[2000] = 0x03

	// seed prior error counts (file0=2, file1=0, file2=1) via a
	// preceding frame that produces exactly those corrections.
	pre0 := makeFrame(0x00, 0x001)
	pre1 := makeFrame(0x00, 0x001)
	pre2 := makeFrame(0x00, 0x001)
	// two bytes where file0 alone disagrees (errors[0]+=2)
	pre0[10] = 0x11
	pre0[11] = 0x12
	// one byte where file2 alone disagrees (errors[2]+=1)
	pre2[12] = 0x13

	data0 := concatFrames(pre0, a)
	data1 := concatFrames(pre1, b)
	data2 := concatFrames(pre2, c)

	merger := New(bytes.NewReader(data0), bytes.NewReader(data1), bytes.NewReader(data2))
	var out bytes.Buffer
	stats, err := merger.Merge(&out)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Frames)
	require.Equal(t, [3]int{2, 0, 1}, stats.CorrectedErrors)

	merged := out.Bytes()
	secondFrame := merged[frame.Size : 2*frame.Size]
	assert.Equal(t, byte(0x02), secondFrame[2000]) // file1's byte chosen
	assert.Equal(t, 1, stats.UncorrectedErrors)
}

func TestMergeResyncsPastLeadingGapMarkerOnFrameZero(t *testing.T) {
	gap := makeFrame(0x00, frame.HexPNOGap)
	real := makeFrame(0x00, 0x001)

	data0 := concatFrames(gap, real)
	data1 := concatFrames(real) // no leading gap on this input
	data2 := concatFrames(gap, real)

	m := New(bytes.NewReader(data0), bytes.NewReader(data1), bytes.NewReader(data2))
	var out bytes.Buffer
	stats, err := m.Merge(&out)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Frames)
}
