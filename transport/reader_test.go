package transport

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStreamReaderFraming covers the normative framing case: one complete
// event, then a truncated one followed by connection close.
func TestStreamReaderFraming(t *testing.T) {
	r := NewStreamReader(bytes.NewReader([]byte("<event>A</event><event>B")))

	frame, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, []byte("<event>A</event>"), frame)

	_, err = r.ReadFrame()
	assert.ErrorIs(t, err, ErrNoData, "truncated event at close is no data, not a failure")

	_, err = r.ReadFrame()
	assert.ErrorIs(t, err, io.EOF, "a drained reader reports end of stream")
}

func TestStreamReaderMultipleEvents(t *testing.T) {
	r := NewStreamReader(bytes.NewReader([]byte("<event>A</event><event>B</event>")))

	first, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, []byte("<event>A</event>"), first)

	second, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, []byte("<event>B</event>"), second)
}

func TestStreamReaderEmptyStream(t *testing.T) {
	r := NewStreamReader(bytes.NewReader(nil))

	_, err := r.ReadFrame()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStreamSinkFlushesBuffered(t *testing.T) {
	var buf bytes.Buffer
	sink := NewStreamSink(&buf)

	require.NoError(t, sink.Write([]byte("<event>A</event>")))
	require.NoError(t, sink.Drain())
	require.NoError(t, sink.Flush())
	assert.Equal(t, "<event>A</event>", buf.String())

	// A plain buffer is not closable; Close must still succeed.
	assert.NoError(t, sink.Close())
}
