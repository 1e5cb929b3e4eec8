package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame(t *testing.T) {
	assert.Equal(t, "data: hello\n\n", string(Frame([]byte("hello"))))
	assert.Equal(t, "data: [DONE]\n\n", string(Frame([]byte("data: [DONE]"))))
	assert.Equal(t, "data:x\n\n", string(Frame([]byte("data:x"))))
}

type trackingBody struct {
	io.Reader
	closed atomic.Bool
}

func (b *trackingBody) Close() error {
	b.closed.Store(true)
	return nil
}

func TestStream_RelaySkipsBlankLines(t *testing.T) {
	body := &trackingBody{Reader: strings.NewReader("one\r\n\n\ndata: two\nthree")}
	var out strings.Builder
	flushes := 0

	err := NewStream(body).Relay(context.Background(), &out, func() { flushes++ })
	require.NoError(t, err)
	assert.Equal(t, "data: one\n\ndata: two\n\ndata: three\n\n", out.String())
	assert.Equal(t, 3, flushes)
	assert.True(t, body.closed.Load())
}

type errWriter struct{}

func (errWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestStream_RelayWriteError(t *testing.T) {
	body := &trackingBody{Reader: strings.NewReader(strings.Repeat("line\n", 1000))}

	err := NewStream(body).Relay(context.Background(), errWriter{}, nil)
	assert.EqualError(t, err, "broken pipe")
	assert.True(t, body.closed.Load())
}

// blockingBody never yields data until closed.
type blockingBody struct {
	pr *io.PipeReader
	pw *io.PipeWriter
}

func newBlockingBody() *blockingBody {
	pr, pw := io.Pipe()
	return &blockingBody{pr: pr, pw: pw}
}

func (b *blockingBody) Read(p []byte) (int, error) { return b.pr.Read(p) }

func (b *blockingBody) Close() error {
	return b.pr.CloseWithError(io.ErrClosedPipe)
}

func TestStream_RelayCancelClosesUpstream(t *testing.T) {
	body := newBlockingBody()
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		_, _ = body.pw.Write([]byte("first\n"))
		cancel()
	}()

	var out strings.Builder
	done := make(chan error, 1)
	go func() { done <- NewStream(body).Relay(ctx, &out, nil) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop after cancel")
	}
}
