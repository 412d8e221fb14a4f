package worker

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/cotwire/codec"
	"github.com/opd-ai/cotwire/config"
	"github.com/opd-ai/cotwire/dgram"
	"github.com/opd-ai/cotwire/queue"
	"github.com/opd-ai/cotwire/transport"
)

// TestRXWorkerStream runs a stream reader to exhaustion: one complete
// event lands on the queue, the trailing truncated event is discarded, and
// the worker stops at end of stream.
func TestRXWorkerStream(t *testing.T) {
	reader := transport.NewStreamReader(bytes.NewReader([]byte("<event>A</event><event>B")))

	q := queue.New(10)
	rx, err := NewRXWorker(q, workerConfig(t, nil), nil, reader)
	require.NoError(t, err)

	err = rx.Run(context.Background())
	assert.ErrorIs(t, err, io.EOF)

	frame, ok := q.TryGet()
	require.True(t, ok)
	assert.Equal(t, []byte("<event>A</event>"), frame)

	_, ok = q.TryGet()
	assert.False(t, ok, "the truncated event must not surface")
}

func TestRXWorkerDatagram(t *testing.T) {
	server, err := dgram.Bind("127.0.0.1:0")
	require.NoError(t, err)
	defer server.Close()

	client, err := dgram.Dial(server.LocalAddr().String())
	require.NoError(t, err)
	defer client.Close()

	q := queue.New(10)
	rx, err := NewRXWorker(q, workerConfig(t, nil), nil, transport.NewDatagramReader(server.Stream))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- rx.Run(ctx) }()

	require.NoError(t, client.Send(context.Background(), []byte("<event>dgram</event>")))

	deadline := time.After(2 * time.Second)
	for {
		if frame, ok := q.TryGet(); ok {
			assert.Equal(t, []byte("<event>dgram</event>"), frame)
			break
		}
		select {
		case <-deadline:
			t.Fatal("frame never reached the queue")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on cancellation")
	}
}

func TestRXWorkerBinaryDecode(t *testing.T) {
	codec.Register(&stubCodec{})
	t.Cleanup(func() { codec.Register(nil) })

	cfg := workerConfig(t, map[string]string{
		config.KeyCoTURL:   "tcp://192.0.2.1:8087",
		config.KeyTAKProto: "1",
	})
	reader := transport.NewStreamReader(bytes.NewReader([]byte("BIN2:<event>A</event>")))

	rx, err := NewRXWorker(queue.New(1), cfg, nil, reader)
	require.NoError(t, err)

	frame, err := rx.ReadCoT(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("<event>A</event>"), frame)
}

func TestRXWorkerParksWithoutReader(t *testing.T) {
	rx, err := NewRXWorker(queue.New(1), workerConfig(t, nil), nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = rx.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
