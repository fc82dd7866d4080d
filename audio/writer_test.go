package audio

import (
	"bytes"
	"testing"

	"github.com/quietloop/dat-recover/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blankFrame() frame.Frame {
	return make(frame.Frame, frame.Size)
}

func TestWriteLinear48kHzWritesFullDataSize(t *testing.T) {
	f := blankFrame()
	info := frame.FrameInfo{Channels: frame.Stereo, SampleRate: frame.Rate48kHz, Encoding: frame.Linear16}
	var buf bytes.Buffer
	n, err := Write(&buf, f, info)
	require.NoError(t, err)
	assert.Equal(t, dataSize48kHz, buf.Len())
	assert.Equal(t, dataSize48kHz/(2*2), n)
}

func TestWriteLinear44_1kHzTruncatesPayload(t *testing.T) {
	f := blankFrame()
	info := frame.FrameInfo{Channels: frame.Stereo, SampleRate: frame.Rate44_1kHz, Encoding: frame.Linear16}
	var buf bytes.Buffer
	_, err := Write(&buf, f, info)
	require.NoError(t, err)
	assert.Equal(t, dataSize44_1kHz, buf.Len())
}

func TestWriteNonLinearProducesUnpackedSize(t *testing.T) {
	f := blankFrame()
	info := frame.FrameInfo{Channels: frame.Stereo, SampleRate: frame.Rate32kHz, Encoding: frame.NonLinear12}
	var buf bytes.Buffer
	n, err := Write(&buf, f, info)
	require.NoError(t, err)
	assert.Equal(t, nonlinearUnpacked, buf.Len())
	assert.Equal(t, nonlinearUnpacked/(2*2), n)
}

func TestWriteInvalidSampleRateErrors(t *testing.T) {
	f := blankFrame()
	info := frame.FrameInfo{Channels: frame.Stereo, SampleRate: frame.SampleRate(1234), Encoding: frame.Linear16}
	var buf bytes.Buffer
	_, err := Write(&buf, f, info)
	require.Error(t, err)
}
